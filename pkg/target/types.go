package target

// Shared build target types for the wasm loader.
// This package defines the enums used across internal packages and the public plugin API.

import (
	"fmt"
	"strings"
)

// Mode selects how the WASM binary is shipped.
type Mode int

const (
	// ModeDeferred copies the binary next to the bundle and loads it at runtime.
	ModeDeferred Mode = iota
	// ModeEmbedded inlines the binary into the bundle.
	ModeEmbedded
)

func (m Mode) String() string {
	switch m {
	case ModeDeferred:
		return "deferred"
	case ModeEmbedded:
		return "embedded"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Embed reports whether the binary bytes end up in the bundle.
func (m Mode) Embed() bool {
	return m == ModeEmbedded
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode parses a mode name, case-insensitively. An empty string is the default mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "deferred":
		return ModeDeferred, nil
	case "embedded":
		return ModeEmbedded, nil
	default:
		return ModeDeferred, fmt.Errorf("unknown mode %q (must be one of: deferred, embedded)", s)
	}
}

// Platform is the runtime the bundle targets.
type Platform int

const (
	PlatformBrowser Platform = iota
	PlatformNode
	PlatformNeutral
)

func (p Platform) String() string {
	switch p {
	case PlatformBrowser:
		return "browser"
	case PlatformNode:
		return "node"
	case PlatformNeutral:
		return "neutral"
	default:
		return fmt.Sprintf("Platform(%d)", int(p))
	}
}

// ParsePlatform parses a platform name. An empty string means browser, like esbuild.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "browser":
		return PlatformBrowser, nil
	case "node":
		return PlatformNode, nil
	case "neutral":
		return PlatformNeutral, nil
	default:
		return PlatformBrowser, fmt.Errorf("unknown platform %q (must be one of: browser, node, neutral)", s)
	}
}

// Format is the output module format of the bundle.
type Format int

const (
	FormatDefault Format = iota
	FormatIIFE
	FormatCommonJS
	FormatESM
)

func (f Format) String() string {
	switch f {
	case FormatDefault:
		return "default"
	case FormatIIFE:
		return "iife"
	case FormatCommonJS:
		return "cjs"
	case FormatESM:
		return "esm"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// SupportsTopLevelAwait reports whether the generated wrapper can be emitted in this format.
func (f Format) SupportsTopLevelAwait() bool {
	return f == FormatESM
}

// ParseFormat parses an output format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return FormatDefault, nil
	case "iife":
		return FormatIIFE, nil
	case "cjs", "commonjs":
		return FormatCommonJS, nil
	case "esm":
		return FormatESM, nil
	default:
		return FormatDefault, fmt.Errorf("unknown format %q (must be one of: esm, cjs, iife)", s)
	}
}
