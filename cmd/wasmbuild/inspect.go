package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/woxQAQ/esbuild-plugin-wasm/internal/codegen"
	"github.com/woxQAQ/esbuild-plugin-wasm/internal/wasm"
	"github.com/woxQAQ/esbuild-plugin-wasm/pkg/target"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// stdinName is the path argument that reads the binary from standard input.
const stdinName = "-"

func createInspectCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "inspect <file.wasm>",
		Short: "Print a binary's imports and exports",
		Long:  "Print the import and export tables of a Wasm binary, in declaration order. Use - to read from stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := commandLogger(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			var meta *wasm.Metadata
			err = withExtractor(cmd.Context(), logger, func(extractor *wasm.Extractor) error {
				meta, err = extract(cmd.Context(), extractor, cmd.InOrStdin(), args[0])
				return err
			})
			if err != nil {
				return err
			}

			return writeMetadata(cmd.OutOrStdout(), meta, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format (yaml, json, table)")

	return cmd
}

func createGenerateCmd() *cobra.Command {
	var (
		mode     string
		platform string
	)

	cmd := &cobra.Command{
		Use:   "generate <file.wasm>",
		Short: "Print the ES module generated for a binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := target.ParseMode(mode)
			if err != nil {
				return err
			}
			p, err := target.ParsePlatform(platform)
			if err != nil {
				return err
			}

			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			logger, err := commandLogger(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			var contents string
			err = withExtractor(cmd.Context(), logger, func(extractor *wasm.Extractor) error {
				synthesizer := codegen.NewSynthesizer(extractor, logger)
				contents, err = synthesizer.Synthesize(cmd.Context(), path, codegen.Target{Platform: p, Mode: m})
				return err
			})
			if err != nil {
				return err
			}

			_, err = io.WriteString(cmd.OutOrStdout(), contents)
			return err
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "deferred", "Wasm bundling mode (deferred, embedded)")
	cmd.Flags().StringVar(&platform, "platform", "browser", "Target platform (browser, node, neutral)")

	return cmd
}

// withExtractor runs fn with an extractor backed by a fresh runtime.
func withExtractor(ctx context.Context, logger *zap.Logger, fn func(*wasm.Extractor) error) error {
	runtime, err := wasm.NewRuntime(ctx, logger, wasm.DefaultRuntimeConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize Wasm runtime: %w", err)
	}
	defer func() {
		if err := runtime.Close(ctx); err != nil {
			logger.Error("Failed to shutdown Wasm runtime", zap.Error(err))
		}
	}()

	return fn(wasm.NewExtractor(runtime, logger))
}

func extract(ctx context.Context, extractor *wasm.Extractor, stdin io.Reader, path string) (*wasm.Metadata, error) {
	if path != stdinName {
		return extractor.ExtractMetadata(ctx, path)
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, &wasm.ReadError{Path: "<stdin>", Err: err}
	}
	return extractor.Extract(ctx, &wasm.MemoryModuleSource{ModuleName: "<stdin>", Data: data})
}

func writeMetadata(w io.Writer, meta *wasm.Metadata, output string) error {
	switch output {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(meta); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	case "table":
		return writeTables(w, meta)
	default:
		return fmt.Errorf("unknown output format %q (must be one of: yaml, json, table)", output)
	}
}

func writeTables(w io.Writer, meta *wasm.Metadata) error {
	imports := table.NewWriter()
	imports.SetStyle(table.StyleLight)
	imports.SetTitle("Imports")
	imports.AppendHeader(table.Row{"#", "Module", "Name", "Kind", "Signature"})
	for i, imp := range meta.Imports {
		imports.AppendRow(table.Row{i, imp.Module, imp.Name, imp.Kind.String(), formatSignature(imp.Signature)})
	}

	exports := table.NewWriter()
	exports.SetStyle(table.StyleLight)
	exports.SetTitle("Exports")
	exports.AppendHeader(table.Row{"#", "Name", "Kind", "Signature"})
	for i, exp := range meta.Exports {
		exports.AppendRow(table.Row{i, exp.Name, exp.Kind.String(), formatSignature(exp.Signature)})
	}

	_, err := fmt.Fprintf(w, "%s\n%s\n", imports.Render(), exports.Render())
	return err
}

// formatSignature renders a signature as "(i32, i32) -> i32".
func formatSignature(sig *wasm.Signature) string {
	if sig == nil {
		return ""
	}
	params := "(" + strings.Join(sig.Params, ", ") + ")"
	switch len(sig.Results) {
	case 0:
		return params
	case 1:
		return params + " -> " + sig.Results[0]
	default:
		return params + " -> (" + strings.Join(sig.Results, ", ") + ")"
	}
}
