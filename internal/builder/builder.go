// Package builder drives esbuild with the wasm plugin installed.
package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/woxQAQ/esbuild-plugin-wasm/internal/config"
	"github.com/woxQAQ/esbuild-plugin-wasm/internal/report"
	"github.com/woxQAQ/esbuild-plugin-wasm/pkg/target"
	"github.com/woxQAQ/esbuild-plugin-wasm/pkg/wasmloader"
	"go.uber.org/zap"
)

type Builder struct {
	cfg      *config.BuildConfig
	logger   *zap.Logger
	format   target.Format
	platform target.Platform
	mode     target.Mode
}

// Result describes a successful build.
type Result struct {
	// OutputFiles are the paths written to disk.
	OutputFiles []string
	Warnings    []api.Message
	// Summary is set when the metafile is enabled.
	Summary  *report.Summary
	Duration time.Duration
}

func New(cfg *config.BuildConfig, logger *zap.Logger) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// Validate guarantees these parse.
	format, _ := cfg.OutputFormat()
	platform, _ := cfg.OutputPlatform()
	mode, _ := cfg.WasmMode()

	b := &Builder{
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "builder")),
		format:   format,
		platform: platform,
		mode:     mode,
	}

	b.logger.Info("Builder initialized",
		zap.Strings("entry_points", cfg.EntryPoints),
		zap.Stringer("format", format),
		zap.Stringer("platform", platform),
		zap.Stringer("wasm_mode", mode),
		zap.String("wasm_cache_dir", cfg.Wasm.CacheDir),
	)

	return b, nil
}

// Options returns the esbuild options for the configured build.
func (b *Builder) Options() api.BuildOptions {
	opts := api.BuildOptions{
		EntryPoints:       b.cfg.EntryPoints,
		Bundle:            true,
		Outfile:           b.cfg.Outfile,
		Outdir:            b.cfg.Outdir,
		Format:            esbuildFormat(b.format),
		Platform:          esbuildPlatform(b.platform),
		External:          b.cfg.External,
		AssetNames:        b.cfg.AssetNames,
		Metafile:          b.cfg.Metafile,
		MinifyWhitespace:  b.cfg.Minify,
		MinifyIdentifiers: b.cfg.Minify,
		MinifySyntax:      b.cfg.Minify,
		Write:             true,
		LogLevel:          api.LogLevelSilent,
		Plugins: []api.Plugin{
			wasmloader.Plugin(wasmloader.Options{
				Mode:     b.mode,
				Logger:   b.logger,
				CacheDir: b.cfg.Wasm.CacheDir,
			}),
		},
	}
	if b.cfg.Sourcemap {
		opts.Sourcemap = api.SourceMapLinked
	}
	return opts
}

// Build runs a single build. Cancelling ctx cancels the build in progress.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()

	esbuildCtx, ctxErr := api.Context(b.Options())
	if ctxErr != nil {
		return nil, newBuildError(ctxErr.Errors)
	}
	defer esbuildCtx.Dispose()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			esbuildCtx.Cancel()
		case <-done:
		}
	}()

	result := esbuildCtx.Rebuild()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := b.report(&result)
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)

	b.logger.Info("Build complete",
		zap.Int("outputs", len(res.OutputFiles)),
		zap.Int("warnings", len(res.Warnings)),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// Watch builds, then rebuilds whenever an input changes, until ctx is done.
// Rebuild failures are logged rather than returned.
func (b *Builder) Watch(ctx context.Context) error {
	opts := b.Options()
	opts.Plugins = append(opts.Plugins, api.Plugin{
		Name: "wasmbuild-report",
		Setup: func(build api.PluginBuild) {
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if res, err := b.report(result); err != nil {
					b.logger.Error("Rebuild failed", zap.Error(err))
				} else {
					b.logger.Info("Rebuild complete", zap.Int("outputs", len(res.OutputFiles)))
				}
				return api.OnEndResult{}, nil
			})
		},
	})

	esbuildCtx, ctxErr := api.Context(opts)
	if ctxErr != nil {
		return newBuildError(ctxErr.Errors)
	}
	defer esbuildCtx.Dispose()

	if err := esbuildCtx.Watch(api.WatchOptions{}); err != nil {
		return fmt.Errorf("failed to start watch mode: %w", err)
	}
	b.logger.Info("Watching for changes")

	<-ctx.Done()

	b.logger.Info("Stopping watch mode")
	return nil
}

// report converts a build result, logging warnings and the Wasm summary.
func (b *Builder) report(result *api.BuildResult) (*Result, error) {
	for _, w := range result.Warnings {
		b.logger.Warn("Build warning", zap.String("text", w.Text), zap.String("plugin", w.PluginName))
	}

	if len(result.Errors) > 0 {
		return nil, newBuildError(result.Errors)
	}

	res := &Result{Warnings: result.Warnings}
	for _, f := range result.OutputFiles {
		res.OutputFiles = append(res.OutputFiles, f.Path)
	}

	if result.Metafile != "" {
		summary, err := report.Analyze(result.Metafile)
		if err != nil {
			return nil, err
		}
		res.Summary = summary
		if summary.Empty() {
			b.logger.Debug("No Wasm modules in build")
		} else {
			b.logSummary(summary)
		}
	}

	return res, nil
}

func (b *Builder) logSummary(s *report.Summary) {
	for _, m := range s.Modules {
		b.logger.Debug("Bundled Wasm module",
			zap.String("path", m.Path),
			zap.Int("wrapper_bytes", m.BytesInOutput),
		)
	}
	for _, e := range s.Embedded() {
		b.logger.Info("Embedded Wasm binary",
			zap.String("path", e.Path),
			zap.Int("bytes", e.Bytes),
			zap.Int("bytes_in_output", e.BytesInOutput),
		)
	}
	for _, a := range s.Assets {
		b.logger.Info("Emitted Wasm asset",
			zap.String("path", a.Path),
			zap.Int("bytes", a.Bytes),
		)
	}
}

func esbuildFormat(f target.Format) api.Format {
	switch f {
	case target.FormatIIFE:
		return api.FormatIIFE
	case target.FormatCommonJS:
		return api.FormatCommonJS
	case target.FormatESM:
		return api.FormatESModule
	default:
		return api.FormatDefault
	}
}

func esbuildPlatform(p target.Platform) api.Platform {
	switch p {
	case target.PlatformNode:
		return api.PlatformNode
	case target.PlatformNeutral:
		return api.PlatformNeutral
	default:
		return api.PlatformBrowser
	}
}
