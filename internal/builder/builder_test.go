package builder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woxQAQ/esbuild-plugin-wasm/internal/config"
	"github.com/woxQAQ/esbuild-plugin-wasm/internal/wasm/wasmtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

const app = `import { add } from "./basic.wasm";

export const sum = add(1, 2);
`

func newProject(t *testing.T, wasmBytes []byte) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte(app), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "basic.wasm"), wasmBytes, 0o644))
	return dir
}

func testConfig(dir string) *config.BuildConfig {
	return &config.BuildConfig{
		EntryPoints: []string{filepath.Join(dir, "app.js")},
		Outdir:      filepath.Join(dir, "dist"),
		Format:      "esm",
		Platform:    "browser",
		AssetNames:  "assets/[name]-[hash]",
		Metafile:    true,
		LogLevel:    "info",
		Wasm:        config.WasmConfig{Mode: "deferred"},
	}
}

func TestNewValidates(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.EntryPoints = nil

	_, err := New(cfg, zaptest.NewLogger(t))
	var validationErr *config.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestOptions(t *testing.T) {
	cfg := testConfig("/project")
	cfg.Format = "cjs"
	cfg.Platform = "node"
	cfg.External = []string{"fs"}
	cfg.Minify = true
	cfg.Sourcemap = true

	b, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	opts := b.Options()
	assert.True(t, opts.Bundle)
	assert.True(t, opts.Write)
	assert.Equal(t, api.FormatCommonJS, opts.Format)
	assert.Equal(t, api.PlatformNode, opts.Platform)
	assert.Equal(t, []string{"fs"}, opts.External)
	assert.Equal(t, "assets/[name]-[hash]", opts.AssetNames)
	assert.True(t, opts.MinifyWhitespace)
	assert.True(t, opts.MinifyIdentifiers)
	assert.True(t, opts.MinifySyntax)
	assert.Equal(t, api.SourceMapLinked, opts.Sourcemap)
	require.Len(t, opts.Plugins, 1)
	assert.Equal(t, "wasm", opts.Plugins[0].Name)
}

func TestBuild(t *testing.T) {
	dir := newProject(t, wasmtest.Basic())

	b, err := New(testConfig(dir), zaptest.NewLogger(t))
	require.NoError(t, err)

	res, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "dist", "app.js"))
	assert.Len(t, res.OutputFiles, 2)

	require.NotNil(t, res.Summary)
	require.Len(t, res.Summary.Assets, 1)
	assert.Equal(t, len(wasmtest.Basic()), res.Summary.Assets[0].Bytes)
	require.Len(t, res.Summary.Modules, 1)
	assert.Equal(t, "basic.wasm", filepath.Base(res.Summary.Modules[0].Path))

	asset := filepath.Join(dir, "dist", "assets")
	entries, err := os.ReadDir(asset)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBuildEmbedded(t *testing.T) {
	dir := newProject(t, wasmtest.Basic())
	cfg := testConfig(dir)
	cfg.Wasm.Mode = "embedded"

	b, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	res, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Len(t, res.OutputFiles, 1)
	require.NotNil(t, res.Summary)
	assert.Empty(t, res.Summary.Assets)
	assert.Len(t, res.Summary.Embedded(), 1)
}

func TestBuildWithoutWasm(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("export const sum = 1 + 2;\n"), 0o644))

	core, logs := observer.New(zapcore.DebugLevel)
	b, err := New(testConfig(dir), zap.New(core))
	require.NoError(t, err)

	res, err := b.Build(context.Background())
	require.NoError(t, err)

	require.NotNil(t, res.Summary)
	assert.True(t, res.Summary.Empty())
	assert.Equal(t, 1, logs.FilterMessage("No Wasm modules in build").Len())
	assert.Zero(t, logs.FilterMessage("Emitted Wasm asset").Len())
}

func TestBuildError(t *testing.T) {
	dir := newProject(t, []byte("garbage"))

	b, err := New(testConfig(dir), zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = b.Build(context.Background())
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	require.Len(t, buildErr.Messages, 1)
	assert.Contains(t, buildErr.Messages[0].Text, "failed to compile Wasm module")
	assert.Contains(t, buildErr.Error(), "build failed")
	assert.NotEmpty(t, buildErr.Formatted)
}

func TestBuildCancelled(t *testing.T) {
	dir := newProject(t, wasmtest.Basic())

	b, err := New(testConfig(dir), zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = b.Build(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestWatch(t *testing.T) {
	dir := newProject(t, wasmtest.Basic())
	cfg := testConfig(dir)

	b, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- b.Watch(ctx)
	}()

	out := filepath.Join(dir, "dist", "app.js")
	require.Eventually(t, func() bool {
		_, err := os.Stat(out)
		return err == nil
	}, 10*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Watch did not return after cancellation")
	}
}

func TestBuildErrorFormatting(t *testing.T) {
	err := newBuildError([]api.Message{{Text: "first"}, {Text: "second"}})
	assert.Contains(t, err.Error(), "2 errors")
	assert.Contains(t, err.Formatted, "first")
	assert.Contains(t, err.Formatted, "second")

	single := newBuildError([]api.Message{{Text: "only"}})
	assert.Equal(t, "build failed: only", single.Error())
}
