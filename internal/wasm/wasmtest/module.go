// Package wasmtest encodes small Wasm binaries for tests.
//
// Only the sections the loader cares about are supported: types, imports,
// functions, memories, globals, exports and code.
package wasmtest

// ValType is a Wasm value type.
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
	F32 ValType = 0x7d
	F64 ValType = 0x7c
)

// Extern kinds, as encoded in import and export entries.
const (
	KindFunc   byte = 0x00
	KindTable  byte = 0x01
	KindMemory byte = 0x02
	KindGlobal byte = 0x03
)

// Opcodes used by the fixtures.
const (
	opLocalGet  = 0x20
	opGlobalGet = 0x23
	opI32Const  = 0x41
	opI32Add    = 0x6a
	opCall      = 0x10
	opEnd       = 0x0b
)

type funcType struct {
	params  []ValType
	results []ValType
}

type importEntry struct {
	module, name string
	kind         byte
	desc         []byte
}

type exportEntry struct {
	name  string
	kind  byte
	index uint32
}

type global struct {
	valType ValType
	mutable bool
	value   int32
}

type function struct {
	typeIdx uint32
	body    []byte
}

// Builder accumulates module contents. Imports must be added before
// functions and globals so indices stay stable.
type Builder struct {
	types          []funcType
	imports        []importEntry
	importedFuncs  uint32
	importedGlobal uint32
	funcs          []function
	memories       []uint32
	globals        []global
	exports        []exportEntry
}

// New returns an empty builder.
func New() *Builder {
	return &Builder{}
}

// Type registers a function type and returns its index. Identical types are shared.
func (b *Builder) Type(params, results []ValType) uint32 {
	for i, t := range b.types {
		if equalTypes(t.params, params) && equalTypes(t.results, results) {
			return uint32(i)
		}
	}
	b.types = append(b.types, funcType{params: params, results: results})
	return uint32(len(b.types) - 1)
}

// ImportFunc imports a function and returns its function index.
func (b *Builder) ImportFunc(module, name string, typeIdx uint32) uint32 {
	b.imports = append(b.imports, importEntry{module: module, name: name, kind: KindFunc, desc: uleb(uint64(typeIdx))})
	b.importedFuncs++
	return b.importedFuncs - 1
}

// ImportMemory imports a memory with the given minimum page count.
func (b *Builder) ImportMemory(module, name string, minPages uint32) {
	desc := append([]byte{0x00}, uleb(uint64(minPages))...)
	b.imports = append(b.imports, importEntry{module: module, name: name, kind: KindMemory, desc: desc})
}

// ImportSharedMemory imports a shared memory. Shared memories always carry a maximum.
func (b *Builder) ImportSharedMemory(module, name string, minPages, maxPages uint32) {
	desc := append([]byte{0x03}, uleb(uint64(minPages))...)
	desc = append(desc, uleb(uint64(maxPages))...)
	b.imports = append(b.imports, importEntry{module: module, name: name, kind: KindMemory, desc: desc})
}

// ImportGlobal imports a global and returns its global index.
func (b *Builder) ImportGlobal(module, name string, vt ValType, mutable bool) uint32 {
	mut := byte(0)
	if mutable {
		mut = 1
	}
	b.imports = append(b.imports, importEntry{module: module, name: name, kind: KindGlobal, desc: []byte{byte(vt), mut}})
	b.importedGlobal++
	return b.importedGlobal - 1
}

// Func defines a function and returns its function index.
// The body holds instructions only; the trailing end opcode is added.
func (b *Builder) Func(typeIdx uint32, body ...byte) uint32 {
	b.funcs = append(b.funcs, function{typeIdx: typeIdx, body: body})
	return b.importedFuncs + uint32(len(b.funcs)) - 1
}

// Memory defines a memory and returns its memory index.
func (b *Builder) Memory(minPages uint32) uint32 {
	b.memories = append(b.memories, minPages)
	return uint32(len(b.memories) - 1)
}

// GlobalI32 defines an i32 global initialized to value and returns its global index.
func (b *Builder) GlobalI32(value int32, mutable bool) uint32 {
	b.globals = append(b.globals, global{valType: I32, mutable: mutable, value: value})
	return b.importedGlobal + uint32(len(b.globals)) - 1
}

// Export exports an entity under name.
func (b *Builder) Export(name string, kind byte, index uint32) {
	b.exports = append(b.exports, exportEntry{name: name, kind: kind, index: index})
}

// Bytes encodes the module.
func (b *Builder) Bytes() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	if len(b.types) > 0 {
		var s []byte
		s = append(s, uleb(uint64(len(b.types)))...)
		for _, t := range b.types {
			s = append(s, 0x60)
			s = append(s, valTypes(t.params)...)
			s = append(s, valTypes(t.results)...)
		}
		out = appendSection(out, 1, s)
	}

	if len(b.imports) > 0 {
		var s []byte
		s = append(s, uleb(uint64(len(b.imports)))...)
		for _, imp := range b.imports {
			s = append(s, name(imp.module)...)
			s = append(s, name(imp.name)...)
			s = append(s, imp.kind)
			s = append(s, imp.desc...)
		}
		out = appendSection(out, 2, s)
	}

	if len(b.funcs) > 0 {
		var s []byte
		s = append(s, uleb(uint64(len(b.funcs)))...)
		for _, f := range b.funcs {
			s = append(s, uleb(uint64(f.typeIdx))...)
		}
		out = appendSection(out, 3, s)
	}

	if len(b.memories) > 0 {
		var s []byte
		s = append(s, uleb(uint64(len(b.memories)))...)
		for _, m := range b.memories {
			s = append(s, 0x00)
			s = append(s, uleb(uint64(m))...)
		}
		out = appendSection(out, 5, s)
	}

	if len(b.globals) > 0 {
		var s []byte
		s = append(s, uleb(uint64(len(b.globals)))...)
		for _, g := range b.globals {
			mut := byte(0)
			if g.mutable {
				mut = 1
			}
			s = append(s, byte(g.valType), mut, opI32Const)
			s = append(s, sleb(int64(g.value))...)
			s = append(s, opEnd)
		}
		out = appendSection(out, 6, s)
	}

	if len(b.exports) > 0 {
		var s []byte
		s = append(s, uleb(uint64(len(b.exports)))...)
		for _, e := range b.exports {
			s = append(s, name(e.name)...)
			s = append(s, e.kind)
			s = append(s, uleb(uint64(e.index))...)
		}
		out = appendSection(out, 7, s)
	}

	if len(b.funcs) > 0 {
		var s []byte
		s = append(s, uleb(uint64(len(b.funcs)))...)
		for _, f := range b.funcs {
			body := []byte{0x00} // no locals
			body = append(body, f.body...)
			body = append(body, opEnd)
			s = append(s, uleb(uint64(len(body)))...)
			s = append(s, body...)
		}
		out = appendSection(out, 10, s)
	}

	return out
}

// LocalGet encodes local.get.
func LocalGet(idx uint32) []byte { return append([]byte{opLocalGet}, uleb(uint64(idx))...) }

// GlobalGet encodes global.get.
func GlobalGet(idx uint32) []byte { return append([]byte{opGlobalGet}, uleb(uint64(idx))...) }

// Call encodes call.
func Call(idx uint32) []byte { return append([]byte{opCall}, uleb(uint64(idx))...) }

// I32Add encodes i32.add.
func I32Add() []byte { return []byte{opI32Add} }

// Seq concatenates instruction encodings.
func Seq(instrs ...[]byte) []byte {
	var out []byte
	for _, in := range instrs {
		out = append(out, in...)
	}
	return out
}

func appendSection(out []byte, id byte, contents []byte) []byte {
	out = append(out, id)
	out = append(out, uleb(uint64(len(contents)))...)
	return append(out, contents...)
}

func valTypes(ts []ValType) []byte {
	out := uleb(uint64(len(ts)))
	for _, t := range ts {
		out = append(out, byte(t))
	}
	return out
}

func name(s string) []byte {
	return append(uleb(uint64(len(s))), s...)
}

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if !done {
			b |= 0x80
		}
		out = append(out, b)
		if done {
			return out
		}
	}
}

func equalTypes(a, b []ValType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
