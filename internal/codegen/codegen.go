// Package codegen synthesizes the JavaScript module that wraps a Wasm binary.
//
// The generated module imports the binary (as bytes or as a URL, depending on
// the mode), imports every JS module the binary depends on, instantiates the
// binary with top-level await and re-exports its exports as named bindings.
package codegen

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/woxQAQ/esbuild-plugin-wasm/internal/wasm"
	"github.com/woxQAQ/esbuild-plugin-wasm/pkg/target"
	"go.uber.org/zap"
)

// Target selects the loader variant to generate.
type Target struct {
	Platform target.Platform
	Mode     target.Mode
}

// MetadataExtractor provides the import/export tables of a binary.
type MetadataExtractor interface {
	ExtractMetadata(ctx context.Context, path string) (*wasm.Metadata, error)
}

// Synthesizer generates wrapper modules for Wasm files on disk.
type Synthesizer struct {
	extractor MetadataExtractor
	logger    *zap.Logger
}

// NewSynthesizer creates a new synthesizer.
func NewSynthesizer(extractor MetadataExtractor, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{
		extractor: extractor,
		logger:    logger.With(zap.String("component", "wasm-codegen")),
	}
}

// Synthesize extracts the metadata of the binary at path and returns the wrapper module text.
// Extraction errors are returned unchanged. Paths that are not valid UTF-8
// are rejected, since they cannot be written as JavaScript string literals.
func (s *Synthesizer) Synthesize(ctx context.Context, path string, t Target) (string, error) {
	startTime := time.Now()

	if !utf8.ValidString(path) {
		return "", fmt.Errorf("invalid Wasm module path %q: not valid UTF-8", path)
	}

	meta, err := s.extractor.ExtractMetadata(ctx, path)
	if err != nil {
		return "", err
	}

	contents := Generate(path, meta, t)

	s.logger.Debug("Synthesized Wasm module",
		zap.String("path", path),
		zap.Stringer("mode", t.Mode),
		zap.Stringer("platform", t.Platform),
		zap.Int("imports", len(meta.Imports)),
		zap.Int("exports", len(meta.Exports)),
		zap.Duration("duration", time.Since(startTime)),
	)

	return contents, nil
}

// Generate returns the wrapper module for a binary at path with the given metadata.
// The output only depends on its arguments.
func Generate(path string, meta *wasm.Metadata, t Target) string {
	b := bind(meta)
	w := &writer{}

	writeWasmImport(w, b, path)
	writeModuleImports(w, b)
	writeImportObject(w, b)
	writeLoader(w, b, t)
	writeInstantiate(w, b)
	writeExports(w, b)

	return w.b.String()
}
