package loader

import "fmt"

// Namespace tags a resolved path with the handler that loads it.
//
// Resolution is a small state machine:
//
//	Default --(import of *.wasm)--> Module --(self-import)--> Deferred | Embedded
type Namespace int

const (
	// NamespaceDefault is the host's own file namespace (or any namespace we do not own).
	NamespaceDefault Namespace = iota
	// NamespaceModule holds the synthesized wrapper module.
	NamespaceModule
	// NamespaceDeferred holds the binary, emitted as a separate asset.
	NamespaceDeferred
	// NamespaceEmbedded holds the binary, inlined as bytes.
	NamespaceEmbedded
)

// Namespaces owned by the plugin, in registration order.
var Namespaces = []Namespace{NamespaceModule, NamespaceDeferred, NamespaceEmbedded}

func (n Namespace) String() string {
	switch n {
	case NamespaceDefault:
		return "file"
	case NamespaceModule:
		return "wasm-module"
	case NamespaceDeferred:
		return "wasm-deferred"
	case NamespaceEmbedded:
		return "wasm-embedded"
	default:
		return fmt.Sprintf("Namespace(%d)", int(n))
	}
}

// ParseNamespace maps a host namespace string to a Namespace.
// Namespaces owned by other plugins map to NamespaceDefault.
func ParseNamespace(s string) Namespace {
	for _, n := range Namespaces {
		if n.String() == s {
			return n
		}
	}
	return NamespaceDefault
}

// AssetLoader names the host built-in loader that receives a load result.
type AssetLoader int

const (
	// LoaderJS parses the contents as JavaScript.
	LoaderJS AssetLoader = iota
	// LoaderFile copies the contents to the output directory and yields its URL.
	LoaderFile
	// LoaderBinary embeds the contents and yields a Uint8Array.
	LoaderBinary
)

func (l AssetLoader) String() string {
	switch l {
	case LoaderJS:
		return "js"
	case LoaderFile:
		return "file"
	case LoaderBinary:
		return "binary"
	default:
		return fmt.Sprintf("AssetLoader(%d)", int(l))
	}
}
