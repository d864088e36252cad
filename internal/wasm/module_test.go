package wasm

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/woxQAQ/esbuild-plugin-wasm/internal/wasm/wasmtest"
	"go.uber.org/zap/zaptest"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()

	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { runtime.Close(ctx) })

	return NewExtractor(runtime, logger)
}

func TestExtractBasic(t *testing.T) {
	extractor := newTestExtractor(t)

	meta, err := extractor.Extract(context.Background(), &MemoryModuleSource{
		ModuleName: "basic",
		Data:       wasmtest.Basic(),
	})
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}

	if len(meta.Imports) != 0 {
		t.Errorf("expected no imports, got %v", meta.Imports)
	}

	if got, want := meta.ExportNames(), []string{"add", "addToNumber"}; !reflect.DeepEqual(got, want) {
		t.Errorf("export names = %v, want %v", got, want)
	}

	add := meta.Exports[0]
	if add.Kind != ExternFunc {
		t.Errorf("add kind = %v, want function", add.Kind)
	}
	if add.Signature == nil {
		t.Fatal("add should carry a signature")
	}
	if !reflect.DeepEqual(add.Signature.Params, []string{"i32", "i32"}) {
		t.Errorf("add params = %v, want [i32 i32]", add.Signature.Params)
	}
	if !reflect.DeepEqual(add.Signature.Results, []string{"i32"}) {
		t.Errorf("add results = %v, want [i32]", add.Signature.Results)
	}
}

func TestExtractPreservesDeclarationOrder(t *testing.T) {
	extractor := newTestExtractor(t)

	meta, err := extractor.Extract(context.Background(), &MemoryModuleSource{
		ModuleName: "imported",
		Data:       wasmtest.Imported(),
	})
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}

	wantImports := []struct {
		module, name string
		kind         ExternKind
	}{
		{"./env.js", "log", ExternFunc},
		{"./math.js", "double", ExternFunc},
		{"./env.js", "memory", ExternMemory},
		{"./math.js", "is-even", ExternFunc},
	}

	if len(meta.Imports) != len(wantImports) {
		t.Fatalf("expected %d imports, got %d", len(wantImports), len(meta.Imports))
	}
	for i, want := range wantImports {
		got := meta.Imports[i]
		if got.Module != want.module || got.Name != want.name || got.Kind != want.kind {
			t.Errorf("import %d = %s/%s (%v), want %s/%s (%v)",
				i, got.Module, got.Name, got.Kind, want.module, want.name, want.kind)
		}
	}

	if meta.Imports[2].Signature != nil {
		t.Error("memory import should not carry a signature")
	}
	if sig := meta.Imports[0].Signature; sig == nil || len(sig.Results) != 0 {
		t.Errorf("log signature = %+v, want no results", sig)
	}

	if got, want := meta.ExportNames(), []string{"run", "memory", "a-b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("export names = %v, want %v", got, want)
	}
	if meta.Exports[1].Kind != ExternMemory {
		t.Errorf("memory export kind = %v, want memory", meta.Exports[1].Kind)
	}
}

func TestExtractSharedMemoryImport(t *testing.T) {
	extractor := newTestExtractor(t)

	b := wasmtest.New()
	b.ImportSharedMemory("env", "memory", 1, 1)

	meta, err := extractor.Extract(context.Background(), &MemoryModuleSource{
		ModuleName: "shared",
		Data:       b.Bytes(),
	})
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}

	if len(meta.Imports) != 1 {
		t.Fatalf("expected 1 import, got %d", len(meta.Imports))
	}
	got := meta.Imports[0]
	if got.Module != "env" || got.Name != "memory" || got.Kind != ExternMemory {
		t.Errorf("import = %s/%s (%v), want env/memory (memory)", got.Module, got.Name, got.Kind)
	}
	if len(meta.Exports) != 0 {
		t.Errorf("expected no exports, got %v", meta.Exports)
	}
}

func TestExtractMetadataFromFile(t *testing.T) {
	extractor := newTestExtractor(t)

	path := filepath.Join(t.TempDir(), "basic.wasm")
	if err := os.WriteFile(path, wasmtest.Basic(), 0o644); err != nil {
		t.Fatal(err)
	}

	first, err := extractor.ExtractMetadata(context.Background(), path)
	if err != nil {
		t.Fatalf("ExtractMetadata() failed: %v", err)
	}

	// No caching: a second call reads and compiles again and yields the same result.
	second, err := extractor.ExtractMetadata(context.Background(), path)
	if err != nil {
		t.Fatalf("second ExtractMetadata() failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("metadata differs between calls: %+v vs %+v", first, second)
	}
}

func TestExtractMetadataReadError(t *testing.T) {
	extractor := newTestExtractor(t)

	_, err := extractor.ExtractMetadata(context.Background(), filepath.Join(t.TempDir(), "missing.wasm"))
	if err == nil {
		t.Fatal("ExtractMetadata() should fail for a missing file")
	}

	var readErr *ReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("expected ReadError, got %T", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadError should wrap fs.ErrNotExist, got %v", readErr.Err)
	}
}

func TestExtractCompileError(t *testing.T) {
	extractor := newTestExtractor(t)

	_, err := extractor.Extract(context.Background(), &MemoryModuleSource{
		ModuleName: "garbage",
		Data:       []byte("definitely not wasm"),
	})
	if err == nil {
		t.Fatal("Extract() should fail for invalid bytes")
	}

	var compileErr *CompileError
	if !errors.As(err, &compileErr) {
		t.Fatalf("expected CompileError, got %T", err)
	}
	if compileErr.Path != "garbage" {
		t.Errorf("CompileError path = %s, want garbage", compileErr.Path)
	}
}

func TestReadTablesTruncated(t *testing.T) {
	data := wasmtest.Imported()

	// Cut the module in the middle of the import section.
	_, _, err := readTables(data[:24])
	if err == nil {
		t.Fatal("readTables() should fail for truncated data")
	}

	var sectionErr *SectionError
	if !errors.As(err, &sectionErr) {
		t.Fatalf("expected SectionError, got %T", err)
	}
}

func TestReadTablesBadMagic(t *testing.T) {
	_, _, err := readTables([]byte{0x01, 0x02, 0x03, 0x04, 0x01, 0x00, 0x00, 0x00})

	var sectionErr *SectionError
	if !errors.As(err, &sectionErr) {
		t.Fatalf("expected SectionError, got %T", err)
	}
	if sectionErr.Section != "header" {
		t.Errorf("section = %s, want header", sectionErr.Section)
	}
}

func TestReadTablesEmptyModule(t *testing.T) {
	imports, exports, err := readTables([]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00})
	if err != nil {
		t.Fatalf("readTables() failed: %v", err)
	}
	if len(imports) != 0 || len(exports) != 0 {
		t.Errorf("expected empty tables, got %v / %v", imports, exports)
	}
}
