package codegen

import (
	"fmt"
	"strings"

	"github.com/woxQAQ/esbuild-plugin-wasm/pkg/target"
)

const wasmMIMEType = "application/wasm"

// writer emits indented JavaScript lines.
type writer struct {
	b      strings.Builder
	indent int
}

func (w *writer) line(format string, args ...any) {
	if format == "" {
		w.b.WriteByte('\n')
		return
	}
	w.b.WriteString(strings.Repeat("  ", w.indent))
	fmt.Fprintf(&w.b, format, args...)
	w.b.WriteByte('\n')
}

// open writes a line ending a block opener and indents.
func (w *writer) open(format string, args ...any) {
	w.line(format, args...)
	w.indent++
}

// close dedents and writes the block closer.
func (w *writer) close(format string, args ...any) {
	w.indent--
	w.line(format, args...)
}

// writeWasmImport imports the binary itself. The path is re-resolved by the
// bundler into the embedded or deferred namespace.
func writeWasmImport(w *writer, b *bindings, path string) {
	w.line("import %s from %s;", b.wasmModule, quote(path))
	w.line("")
}

// writeModuleImports writes one import statement per JS module the binary depends on.
func writeModuleImports(w *writer, b *bindings) {
	if len(b.groups) == 0 {
		return
	}

	w.line("// Import from JS modules")
	for _, g := range b.groups {
		specifiers := make([]string, len(g.bindings))
		for i, ib := range g.bindings {
			if ib.local == ib.name {
				specifiers[i] = ib.local
			} else {
				specifiers[i] = moduleExportName(ib.name) + " as " + ib.local
			}
		}
		w.line("import { %s } from %s;", strings.Join(specifiers, ", "), quote(g.module))
	}
	w.line("")
}

// writeImportObject writes the object passed to WebAssembly.instantiate.
func writeImportObject(w *writer, b *bindings) {
	if len(b.groups) == 0 {
		w.line("const %s = {};", b.imports)
		w.line("")
		return
	}

	w.line("// Build the WASM import object")
	w.open("const %s = {", b.imports)
	for _, g := range b.groups {
		w.open("%s: {", quote(g.module))
		for _, ib := range g.bindings {
			if ib.local == ib.name {
				w.line("%s,", ib.local)
			} else {
				w.line("%s: %s,", propertyKey(ib.name), ib.local)
			}
		}
		w.close("},")
	}
	w.close("};")
	w.line("")
}

// writeLoader writes the instantiation function for the target.
func writeLoader(w *writer, b *bindings, t Target) {
	w.open("async function %s(module, imports) {", b.loadWasm)
	if !t.Mode.Embed() {
		writeURLLoader(w, t.Platform)
	}
	w.line("return await WebAssembly.instantiate(module, imports);")
	w.close("}")
	w.line("")
}

// writeURLLoader handles the deferred case where the binary import yields a URL.
func writeURLLoader(w *writer, platform target.Platform) {
	w.open("if (typeof module === \"string\") {")

	w.line("// Resolve relative urls from the runtime script path")
	w.open("if (module.startsWith(\"./\") || module.startsWith(\"../\")) {")
	w.line("module = new URL(module, import.meta.url).href;")
	w.close("}")
	w.line("")

	if platform == target.PlatformNode {
		w.line("// Read local files from disk instead of fetching them")
		w.open("if (module.startsWith(\"file://\")) {")
		w.line("const fs = await import(\"fs\");")
		w.line("module = await fs.promises.readFile(new URL(module));")
		w.close("} else {")
		w.indent++
		writeFetch(w)
		w.close("}")
	} else {
		writeFetch(w)
	}

	w.close("}")
}

// writeFetch fetches the binary, preferring streaming instantiation.
// A streaming failure on a response not served as exactly application/wasm is
// treated as an environment limitation and falls back to buffering the body.
// Streaming rejects MIME parameters, so a parameterized type falls back too.
func writeFetch(w *writer) {
	w.line("const response = await fetch(module);")
	w.open("if (typeof WebAssembly.instantiateStreaming === \"function\") {")
	w.open("try {")
	w.line("return await WebAssembly.instantiateStreaming(response.clone(), imports);")
	w.close("} catch (e) {")
	w.indent++
	w.line("const contentType = (response.headers.get(\"Content-Type\") || \"\").trim().toLowerCase();")
	w.open("if (contentType !== %s) {", quote(wasmMIMEType))
	w.line("console.warn(\"WebAssembly.instantiateStreaming failed, falling back to WebAssembly.instantiate:\", e);")
	w.close("} else {")
	w.indent++
	w.line("throw e;")
	w.close("}")
	w.close("}")
	w.close("}")
	w.line("module = await response.arrayBuffer();")
}

// writeInstantiate awaits instantiation at the top level of the module.
func writeInstantiate(w *writer, b *bindings) {
	pattern := "instance"
	if b.instance != "instance" {
		pattern = "instance: " + b.instance
	}
	w.line("const { %s } = await %s(%s, %s);", pattern, b.loadWasm, b.wasmModule, b.imports)
	w.line("")
}

// writeExports re-exports every Wasm export in declaration order.
func writeExports(w *writer, b *bindings) {
	for _, e := range b.exports {
		value := memberAccess(b.instance+".exports", e.name)
		if e.direct {
			w.line("export const %s = %s;", e.local, value)
			continue
		}
		w.line("const %s = %s;", e.local, value)
		w.line("export { %s as %s };", e.local, moduleExportName(e.name))
	}
}
