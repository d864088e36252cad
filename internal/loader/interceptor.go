// Package loader routes .wasm imports through the plugin's namespaces.
//
// It is independent of any particular bundler: the esbuild adapter in
// pkg/wasmloader converts between esbuild's hook arguments and the request
// types defined here.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/woxQAQ/esbuild-plugin-wasm/internal/codegen"
	"github.com/woxQAQ/esbuild-plugin-wasm/internal/wasm"
	"github.com/woxQAQ/esbuild-plugin-wasm/pkg/target"
	"go.uber.org/zap"
)

// Filter matches the import paths the resolve hook is registered for.
const Filter = `\.(?:wasm)$`

var filterRe = regexp.MustCompile(Filter)

// Matches reports whether path is handled by the resolve hook.
func Matches(path string) bool {
	return filterRe.MatchString(path)
}

// ResolveRequest is one import the host asks us to resolve.
type ResolveRequest struct {
	// Path is the import specifier as written.
	Path string
	// Importer is the path of the importing module, in its namespace.
	Importer string
	// Namespace is the importer's namespace.
	Namespace Namespace
	// ResolveDir is the directory relative paths resolve against. Empty when unknown.
	ResolveDir string
}

// Resolution is where a request was routed.
type Resolution struct {
	Path      string
	Namespace Namespace
}

// LoadRequest is one module the host asks us to load.
type LoadRequest struct {
	Path      string
	Namespace Namespace
	Platform  target.Platform
}

// LoadResult is what the host should do with a loaded module.
type LoadResult struct {
	Contents   []byte
	Loader     AssetLoader
	ResolveDir string
	WatchFiles []string
}

// Synthesizer produces wrapper module text.
type Synthesizer interface {
	Synthesize(ctx context.Context, path string, t codegen.Target) (string, error)
}

// Interceptor implements the resolve and load hooks.
// It holds no per-build state and is safe for concurrent use.
type Interceptor struct {
	mode        target.Mode
	synthesizer Synthesizer
	readFile    func(string) ([]byte, error)
	logger      *zap.Logger
}

// NewInterceptor creates a new interceptor.
func NewInterceptor(mode target.Mode, synthesizer Synthesizer, logger *zap.Logger) *Interceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interceptor{
		mode:        mode,
		synthesizer: synthesizer,
		readFile:    os.ReadFile,
		logger:      logger.With(zap.String("component", "wasm-interceptor")),
	}
}

// Mode returns the configured mode.
func (i *Interceptor) Mode() target.Mode {
	return i.mode
}

// binaryNamespace is the terminal namespace for the configured mode.
func (i *Interceptor) binaryNamespace() Namespace {
	if i.mode.Embed() {
		return NamespaceEmbedded
	}
	return NamespaceDeferred
}

// Resolve routes a .wasm import. It returns false to decline, leaving the
// request to the host's default resolution.
func (i *Interceptor) Resolve(req ResolveRequest) (Resolution, bool) {
	if !Matches(req.Path) {
		return Resolution{}, false
	}

	// The wrapper importing its own binary: route to the terminal namespace.
	if req.Namespace == NamespaceModule && req.Path == req.Importer {
		res := Resolution{Path: req.Path, Namespace: i.binaryNamespace()}
		i.logger.Debug("Resolved Wasm binary",
			zap.String("path", res.Path),
			zap.Stringer("namespace", res.Namespace),
		)
		return res, true
	}

	if req.ResolveDir == "" {
		i.logger.Debug("Declining Wasm import without resolve directory",
			zap.String("path", req.Path),
			zap.String("importer", req.Importer),
		)
		return Resolution{}, false
	}

	path := req.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(req.ResolveDir, path)
	}

	res := Resolution{Path: path, Namespace: NamespaceModule}
	i.logger.Debug("Resolved Wasm import",
		zap.String("path", res.Path),
		zap.String("importer", req.Importer),
		zap.Stringer("namespace", res.Namespace),
	)
	return res, true
}

// Load loads a path in one of the plugin's namespaces.
func (i *Interceptor) Load(ctx context.Context, req LoadRequest) (*LoadResult, error) {
	switch req.Namespace {
	case NamespaceModule:
		contents, err := i.synthesizer.Synthesize(ctx, req.Path, codegen.Target{
			Platform: req.Platform,
			Mode:     i.mode,
		})
		if err != nil {
			return nil, err
		}
		return &LoadResult{
			Contents: []byte(contents),
			Loader:   LoaderJS,
			// The self-import resolves relative to the binary's directory.
			ResolveDir: filepath.Dir(req.Path),
			WatchFiles: []string{req.Path},
		}, nil

	case NamespaceDeferred:
		return i.loadBinary(req.Path, LoaderFile)

	case NamespaceEmbedded:
		return i.loadBinary(req.Path, LoaderBinary)

	default:
		return nil, fmt.Errorf("namespace %s is not handled by the wasm loader", req.Namespace)
	}
}

func (i *Interceptor) loadBinary(path string, loader AssetLoader) (*LoadResult, error) {
	data, err := i.readFile(path)
	if err != nil {
		return nil, &wasm.ReadError{Path: path, Err: err}
	}

	i.logger.Debug("Loaded Wasm binary",
		zap.String("path", path),
		zap.Stringer("loader", loader),
		zap.Int("size_bytes", len(data)),
	)

	return &LoadResult{
		Contents:   data,
		Loader:     loader,
		WatchFiles: []string{path},
	}, nil
}
