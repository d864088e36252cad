package wasm

import (
	"fmt"
)

// ReadError occurs when the Wasm binary cannot be read from storage
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read Wasm module '%s': %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// CompileError occurs when the bytes are not a valid Wasm module
type CompileError struct {
	Path string
	Err  error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("failed to compile Wasm module '%s': %v", e.Path, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// SectionError occurs when an import or export section cannot be decoded
type SectionError struct {
	Section string
	Offset  int
	Message string
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("malformed %s section at offset %d: %s", e.Section, e.Offset, e.Message)
}
