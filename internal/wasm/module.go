package wasm

import (
	"context"
	"os"
	"time"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// Extractor reads the import and export tables of Wasm binaries.
type Extractor struct {
	runtime *Runtime
	logger  *zap.Logger
}

// NewExtractor creates a new metadata extractor.
func NewExtractor(runtime *Runtime, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		runtime: runtime,
		logger:  logger.With(zap.String("component", "wasm-extractor")),
	}
}

// ModuleSource represents a source for Wasm bytecode.
type ModuleSource interface {
	// Bytes returns the Wasm bytecode.
	Bytes() ([]byte, error)

	// Name returns a name/identifier for this module.
	Name() string
}

// FileModuleSource loads Wasm from a file.
type FileModuleSource struct {
	Path string
}

// Bytes reads the Wasm file.
func (f *FileModuleSource) Bytes() ([]byte, error) {
	return os.ReadFile(f.Path)
}

// Name returns the file path as the module name.
func (f *FileModuleSource) Name() string {
	return f.Path
}

// MemoryModuleSource loads Wasm from memory.
type MemoryModuleSource struct {
	ModuleName string
	Data       []byte
}

// Bytes returns the Wasm bytecode.
func (m *MemoryModuleSource) Bytes() ([]byte, error) {
	return m.Data, nil
}

// Name returns the module name.
func (m *MemoryModuleSource) Name() string {
	return m.ModuleName
}

// ExtractMetadata is a convenience function for extracting from a file path.
func (e *Extractor) ExtractMetadata(ctx context.Context, path string) (*Metadata, error) {
	return e.Extract(ctx, &FileModuleSource{Path: path})
}

// Extract compiles the source and returns its imports and exports.
// Nothing is cached: every call reads and compiles the binary again.
func (e *Extractor) Extract(ctx context.Context, source ModuleSource) (*Metadata, error) {
	wasmBytes, err := source.Bytes()
	if err != nil {
		return nil, &ReadError{Path: source.Name(), Err: err}
	}

	startTime := time.Now()

	// wazero.CompileModule decodes and validates the Wasm binary
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, &CompileError{Path: source.Name(), Err: err}
	}
	defer func() {
		if closeErr := compiled.Close(ctx); closeErr != nil {
			e.logger.Warn("Failed to close compiled module",
				zap.String("module", source.Name()),
				zap.Error(closeErr),
			)
		}
	}()

	imports, exports, err := readTables(wasmBytes)
	if err != nil {
		return nil, &CompileError{Path: source.Name(), Err: err}
	}

	// Decorate function entries with the signatures wazero resolved.
	importedFuncs := make(map[[2]string]api.FunctionDefinition)
	for _, def := range compiled.ImportedFunctions() {
		moduleName, name, _ := def.Import()
		importedFuncs[[2]string{moduleName, name}] = def
	}
	for i := range imports {
		if imports[i].Kind != ExternFunc {
			continue
		}
		if def, ok := importedFuncs[[2]string{imports[i].Module, imports[i].Name}]; ok {
			imports[i].Signature = signatureOf(def)
		}
	}

	exportedFuncs := compiled.ExportedFunctions()
	for i := range exports {
		if exports[i].Kind != ExternFunc {
			continue
		}
		if def, ok := exportedFuncs[exports[i].Name]; ok {
			exports[i].Signature = signatureOf(def)
		}
	}

	e.logger.Debug("Extracted Wasm metadata",
		zap.String("module", source.Name()),
		zap.Int("size_bytes", len(wasmBytes)),
		zap.Int("imports", len(imports)),
		zap.Int("exports", len(exports)),
		zap.Duration("duration", time.Since(startTime)),
	)

	return &Metadata{Imports: imports, Exports: exports}, nil
}

func signatureOf(def api.FunctionDefinition) *Signature {
	sig := &Signature{
		Params:  make([]string, 0, len(def.ParamTypes())),
		Results: make([]string, 0, len(def.ResultTypes())),
	}
	for _, t := range def.ParamTypes() {
		sig.Params = append(sig.Params, api.ValueTypeName(t))
	}
	for _, t := range def.ResultTypes() {
		sig.Results = append(sig.Results, api.ValueTypeName(t))
	}
	return sig
}
