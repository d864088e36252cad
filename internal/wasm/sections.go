package wasm

import (
	"bytes"
	"unicode/utf8"
)

const (
	sectionImport = 0x02
	sectionExport = 0x07
)

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

// sectionReader walks a byte slice with bounds checks. The first error sticks.
type sectionReader struct {
	buf     []byte
	pos     int
	section string
	err     error
}

func (r *sectionReader) fail(msg string) {
	if r.err == nil {
		r.err = &SectionError{Section: r.section, Offset: r.pos, Message: msg}
	}
}

func (r *sectionReader) readByte() byte {
	if r.err != nil {
		return 0
	}
	if r.pos >= len(r.buf) {
		r.fail("unexpected end of data")
		return 0
	}
	b := r.buf[r.pos]
	r.pos++
	return b
}

func (r *sectionReader) uleb() uint64 {
	var result uint64
	var shift uint
	for {
		b := r.readByte()
		if r.err != nil {
			return 0
		}
		if shift >= 64 {
			r.fail("LEB128 value overflows 64 bits")
			return 0
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result
		}
		shift += 7
	}
}

func (r *sectionReader) name() string {
	n := r.uleb()
	if r.err != nil {
		return ""
	}
	if n > uint64(len(r.buf)-r.pos) {
		r.fail("name length exceeds section")
		return ""
	}
	b := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)
	if !utf8.Valid(b) {
		r.fail("name is not valid UTF-8")
		return ""
	}
	return string(b)
}

func (r *sectionReader) limits() {
	flags := r.readByte()
	r.uleb()
	if flags&0x01 != 0 {
		r.uleb()
	}
}

// skipImportDesc consumes the type part of an import entry.
func (r *sectionReader) skipImportDesc(kind ExternKind) {
	switch kind {
	case ExternFunc:
		r.uleb() // type index
	case ExternTable:
		r.readByte() // reftype
		r.limits()
	case ExternMemory:
		r.limits()
	case ExternGlobal:
		r.readByte() // valtype
		r.readByte() // mutability
	case ExternTag:
		r.readByte() // attribute
		r.uleb() // type index
	default:
		r.fail("unknown import kind")
	}
}

// readTables returns the import and export tables of a binary, in declaration order.
// Only section framing and the two tables are decoded; validation is left to wazero.
func readTables(wasmBytes []byte) ([]Import, []Export, error) {
	if len(wasmBytes) < 8 || !bytes.Equal(wasmBytes[:4], wasmMagic) {
		return nil, nil, &SectionError{Section: "header", Offset: 0, Message: "missing Wasm magic number"}
	}

	imports := []Import{}
	exports := []Export{}

	top := &sectionReader{buf: wasmBytes, pos: 8, section: "module"}
	for top.pos < len(top.buf) {
		id := top.readByte()
		size := top.uleb()
		if top.err != nil {
			return nil, nil, top.err
		}
		if size > uint64(len(top.buf)-top.pos) {
			top.fail("section size exceeds module")
			return nil, nil, top.err
		}
		end := top.pos + int(size)

		switch id {
		case sectionImport:
			r := &sectionReader{buf: wasmBytes[:end], pos: top.pos, section: "import"}
			count := r.uleb()
			for i := uint64(0); i < count && r.err == nil; i++ {
				imp := Import{Module: r.name(), Name: r.name()}
				imp.Kind = ExternKind(r.readByte())
				r.skipImportDesc(imp.Kind)
				if r.err == nil {
					imports = append(imports, imp)
				}
			}
			if r.err != nil {
				return nil, nil, r.err
			}
		case sectionExport:
			r := &sectionReader{buf: wasmBytes[:end], pos: top.pos, section: "export"}
			count := r.uleb()
			for i := uint64(0); i < count && r.err == nil; i++ {
				exp := Export{Name: r.name()}
				exp.Kind = ExternKind(r.readByte())
				r.uleb() // index
				if r.err == nil {
					exports = append(exports, exp)
				}
			}
			if r.err != nil {
				return nil, nil, r.err
			}
		}

		top.pos = end
	}

	return imports, exports, nil
}
