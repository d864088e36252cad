package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/woxQAQ/esbuild-plugin-wasm/internal/builder"
	"github.com/woxQAQ/esbuild-plugin-wasm/internal/config"
	"go.uber.org/zap"
)

func createBuildCmd() *cobra.Command {
	var (
		configPath string
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "build [entry...]",
		Short: "Bundle entry points",
		Long: `Bundle entry points with esbuild. Settings come from the config file,
WASMBUILD_* environment variables and flags, in increasing priority.
Entry points given as arguments replace those in the config.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadBuildConfig(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.EntryPoints = args
			}

			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			logger.Info("Starting wasmbuild",
				zap.String("version", version),
				zap.String("commit", commit),
				zap.String("date", date),
			)

			b, err := builder.New(cfg, logger)
			if err != nil {
				return err
			}

			// Create context with cancellation
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			// Handle shutdown signals
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			go func() {
				select {
				case sig := <-sigChan:
					logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
					cancel()
				case <-ctx.Done():
				}
			}()

			if watch {
				return b.Watch(ctx)
			}

			res, err := b.Build(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, path := range res.OutputFiles {
				fmt.Fprintln(out, path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Rebuild on changes until interrupted")
	cmd.Flags().String("mode", "deferred", "Wasm bundling mode (deferred, embedded)")
	cmd.Flags().String("platform", "browser", "Target platform (browser, node, neutral)")
	cmd.Flags().String("format", "esm", "Output format (esm, cjs, iife)")
	cmd.Flags().String("outfile", "", "Output file for a single entry point")
	cmd.Flags().String("outdir", "", "Output directory")
	cmd.Flags().StringSlice("external", nil, "Packages to exclude from the bundle")
	cmd.Flags().String("asset-names", "assets/[name]-[hash]", "Path template for deferred Wasm assets")
	cmd.Flags().Bool("metafile", false, "Analyze the build and log Wasm asset sizes")
	cmd.Flags().Bool("minify", false, "Minify the output")
	cmd.Flags().Bool("sourcemap", false, "Emit linked source maps")
	cmd.Flags().String("cache-dir", "", "Directory for the Wasm compilation cache")

	return cmd
}
