package codegen

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"unicode"
)

// reservedWords cannot be used as binding names in module code.
var reservedWords = map[string]bool{
	"await": true, "break": true, "case": true, "catch": true, "class": true,
	"const": true, "continue": true, "debugger": true, "default": true, "delete": true,
	"do": true, "else": true, "enum": true, "export": true, "extends": true,
	"false": true, "finally": true, "for": true, "function": true, "if": true,
	"implements": true, "import": true, "in": true, "instanceof": true, "interface": true,
	"let": true, "new": true, "null": true, "package": true, "private": true,
	"protected": true, "public": true, "return": true, "static": true, "super": true,
	"switch": true, "this": true, "throw": true, "true": true, "try": true,
	"typeof": true, "var": true, "void": true, "while": true, "with": true,
	"yield": true,
	// strict mode forbids binding these
	"arguments": true, "eval": true,
}

// loaderGlobals are referenced by the generated loader and must stay unshadowed
// at module level.
var loaderGlobals = []string{
	"WebAssembly", "fetch", "URL", "console", "globalThis", "undefined", "NaN", "Infinity",
}

// isIdentifier reports whether s can be written as a bare binding name.
func isIdentifier(s string) bool {
	if s == "" || reservedWords[s] {
		return false
	}
	for i, r := range s {
		switch {
		case r == '$' || r == '_':
		case unicode.IsLetter(r) || unicode.Is(unicode.Nl, r):
		case i > 0 && (unicode.IsDigit(r) || unicode.In(r, unicode.Mn, unicode.Mc, unicode.Pc)):
		case i > 0 && (r == '\u200c' || r == '\u200d'):
		default:
			return false
		}
	}
	return true
}

// isPropertyName reports whether s can be used after a dot or as an unquoted key.
// Reserved words are fine there, the rest of the identifier grammar applies.
func isPropertyName(s string) bool {
	if reservedWords[s] {
		return isIdentifier("_" + s)
	}
	return isIdentifier(s)
}

// sanitize turns an arbitrary name into something identifier-shaped.
func sanitize(s string) string {
	var b strings.Builder
	for i, r := range s {
		ok := r == '$' || r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r))
		if ok {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out == "" {
		out = "_"
	}
	if reservedWords[out] {
		out = "_" + out
	}
	return out
}

// scope hands out module-level binding names without collisions.
type scope struct {
	taken map[string]bool
}

func newScope() *scope {
	s := &scope{taken: make(map[string]bool)}
	for _, g := range loaderGlobals {
		s.taken[g] = true
	}
	return s
}

// claim binds name verbatim if possible and reports whether it did.
func (s *scope) claim(name string) bool {
	if !isIdentifier(name) || s.taken[name] {
		return false
	}
	s.taken[name] = true
	return true
}

// alloc binds a fresh name derived from hint.
func (s *scope) alloc(hint string) string {
	base := sanitize(hint)
	if s.claim(base) {
		return base
	}
	for i := 1; ; i++ {
		candidate := base + "$" + strconv.Itoa(i)
		if s.claim(candidate) {
			return candidate
		}
	}
}

// quote renders s as a JavaScript string literal.
func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a string never fails.
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

// propertyKey renders name as an object literal key.
func propertyKey(name string) string {
	if isPropertyName(name) {
		return name
	}
	return quote(name)
}

// moduleExportName renders name as an import/export specifier name.
// ES2022 allows string literals there for names that are not identifiers.
func moduleExportName(name string) string {
	if isPropertyName(name) {
		return name
	}
	return quote(name)
}

// memberAccess renders object.name, falling back to bracket access.
func memberAccess(object, name string) string {
	if isPropertyName(name) {
		return object + "." + name
	}
	return object + "[" + quote(name) + "]"
}
