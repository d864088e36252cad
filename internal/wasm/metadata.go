package wasm

import "fmt"

// ExternKind is the kind of an imported or exported entity.
type ExternKind byte

const (
	ExternFunc   ExternKind = 0x00
	ExternTable  ExternKind = 0x01
	ExternMemory ExternKind = 0x02
	ExternGlobal ExternKind = 0x03
	ExternTag    ExternKind = 0x04
)

func (k ExternKind) String() string {
	switch k {
	case ExternFunc:
		return "function"
	case ExternTable:
		return "table"
	case ExternMemory:
		return "memory"
	case ExternGlobal:
		return "global"
	case ExternTag:
		return "tag"
	default:
		return fmt.Sprintf("kind(0x%02x)", byte(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k ExternKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Signature describes a function's value types.
type Signature struct {
	Params  []string `json:"params" yaml:"params"`
	Results []string `json:"results" yaml:"results"`
}

// Import is one entry of the binary's import table.
type Import struct {
	Module    string     `json:"module" yaml:"module"`
	Name      string     `json:"name" yaml:"name"`
	Kind      ExternKind `json:"kind" yaml:"kind"`
	Signature *Signature `json:"signature,omitempty" yaml:"signature,omitempty"`
}

// Export is one entry of the binary's export table.
type Export struct {
	Name      string     `json:"name" yaml:"name"`
	Kind      ExternKind `json:"kind" yaml:"kind"`
	Signature *Signature `json:"signature,omitempty" yaml:"signature,omitempty"`
}

// Metadata lists what a binary requires and provides, in declaration order.
type Metadata struct {
	Imports []Import `json:"imports" yaml:"imports"`
	Exports []Export `json:"exports" yaml:"exports"`
}

// ExportNames returns the export names in declaration order.
func (m *Metadata) ExportNames() []string {
	names := make([]string, len(m.Exports))
	for i, e := range m.Exports {
		names[i] = e.Name
	}
	return names
}
