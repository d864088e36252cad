// Package wasmloader is an esbuild plugin that loads .wasm files as ES modules.
//
//	result := api.Build(api.BuildOptions{
//		EntryPoints: []string{"app.js"},
//		Bundle:      true,
//		Format:      api.FormatESModule,
//		Plugins:     []api.Plugin{wasmloader.Plugin(wasmloader.Options{})},
//	})
//
// Importing a .wasm file yields its exports as named bindings, instantiated
// with top-level await, so the output format must be esm.
package wasmloader

import (
	"context"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/woxQAQ/esbuild-plugin-wasm/internal/codegen"
	"github.com/woxQAQ/esbuild-plugin-wasm/internal/loader"
	"github.com/woxQAQ/esbuild-plugin-wasm/internal/wasm"
	"github.com/woxQAQ/esbuild-plugin-wasm/pkg/target"
	"go.uber.org/zap"
)

// PluginName is the name esbuild reports for this plugin.
const PluginName = "wasm"

// Mode selects how the binary is shipped.
type Mode = target.Mode

const (
	// ModeDeferred copies the binary to the output directory and downloads it
	// at runtime. This is the default.
	ModeDeferred = target.ModeDeferred
	// ModeEmbedded inlines the binary into the bundle as base64, which grows
	// it by about a third compared to deferred mode.
	ModeEmbedded = target.ModeEmbedded
)

// ParseMode parses "deferred" or "embedded", case-insensitively.
func ParseMode(s string) (Mode, error) {
	return target.ParseMode(s)
}

// Options configures the plugin.
type Options struct {
	// Mode is the bundling mode for the binary. Defaults to ModeDeferred.
	Mode Mode

	// Logger receives debug logs for every resolve and load. Defaults to a no-op logger.
	Logger *zap.Logger

	// CacheDir enables wazero's on-disk compilation cache.
	CacheDir string
}

// Plugin returns the esbuild plugin.
func Plugin(opts Options) api.Plugin {
	return api.Plugin{
		Name: PluginName,
		Setup: func(build api.PluginBuild) {
			setup(build, opts)
		},
	}
}

func setup(build api.PluginBuild, opts Options) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "wasm-plugin"))

	ctx := context.Background()

	runtime, err := wasm.NewRuntime(ctx, logger, &wasm.RuntimeConfig{CacheDir: opts.CacheDir})
	if err != nil {
		build.OnStart(func() (api.OnStartResult, error) {
			return api.OnStartResult{}, err
		})
		return
	}
	build.OnDispose(func() {
		if err := runtime.Close(ctx); err != nil {
			logger.Warn("Failed to close Wasm runtime", zap.Error(err))
		}
	})

	synthesizer := codegen.NewSynthesizer(wasm.NewExtractor(runtime, logger), logger)
	interceptor := loader.NewInterceptor(opts.Mode, synthesizer, logger)

	build.OnStart(func() (api.OnStartResult, error) {
		format := formatOf(build.InitialOptions)
		if !format.SupportsTopLevelAwait() {
			// esbuild reports the actual error once a .wasm import is bundled.
			logger.Warn("Output format does not support top-level await, Wasm imports will fail to bundle",
				zap.Stringer("format", format),
				zap.Stringer("mode", interceptor.Mode()),
			)
		}
		return api.OnStartResult{}, nil
	})

	build.OnResolve(api.OnResolveOptions{Filter: loader.Filter}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
		res, ok := interceptor.Resolve(loader.ResolveRequest{
			Path:       args.Path,
			Importer:   args.Importer,
			Namespace:  loader.ParseNamespace(args.Namespace),
			ResolveDir: args.ResolveDir,
		})
		if !ok {
			return api.OnResolveResult{}, nil
		}
		return api.OnResolveResult{
			Path:      res.Path,
			Namespace: res.Namespace.String(),
		}, nil
	})

	for _, ns := range loader.Namespaces {
		build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: ns.String()}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
			res, err := interceptor.Load(ctx, loader.LoadRequest{
				Path:      args.Path,
				Namespace: ns,
				Platform:  platformOf(build.InitialOptions),
			})
			if err != nil {
				return api.OnLoadResult{}, err
			}
			return toOnLoadResult(res), nil
		})
	}
}

func toOnLoadResult(res *loader.LoadResult) api.OnLoadResult {
	contents := string(res.Contents)
	return api.OnLoadResult{
		Contents:   &contents,
		ResolveDir: res.ResolveDir,
		Loader:     esbuildLoader(res.Loader),
		WatchFiles: res.WatchFiles,
	}
}

func esbuildLoader(l loader.AssetLoader) api.Loader {
	switch l {
	case loader.LoaderFile:
		return api.LoaderFile
	case loader.LoaderBinary:
		return api.LoaderBinary
	default:
		return api.LoaderJS
	}
}

func platformOf(opts *api.BuildOptions) target.Platform {
	if opts == nil {
		return target.PlatformBrowser
	}
	switch opts.Platform {
	case api.PlatformNode:
		return target.PlatformNode
	case api.PlatformNeutral:
		return target.PlatformNeutral
	default:
		return target.PlatformBrowser
	}
}

// formatOf returns the effective output format, applying esbuild's defaults
// for bundled builds without an explicit format.
func formatOf(opts *api.BuildOptions) target.Format {
	if opts == nil {
		return target.FormatDefault
	}
	switch opts.Format {
	case api.FormatESModule:
		return target.FormatESM
	case api.FormatCommonJS:
		return target.FormatCommonJS
	case api.FormatIIFE:
		return target.FormatIIFE
	}
	if !opts.Bundle {
		return target.FormatDefault
	}
	switch platformOf(opts) {
	case target.PlatformNode:
		return target.FormatCommonJS
	case target.PlatformNeutral:
		return target.FormatESM
	default:
		return target.FormatIIFE
	}
}
