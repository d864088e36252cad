package codegen

import "github.com/woxQAQ/esbuild-plugin-wasm/internal/wasm"

// importBinding is one name required from a JS module and its local binding.
type importBinding struct {
	name  string
	local string
}

// importGroup collects the bindings required from one JS module.
type importGroup struct {
	module   string
	bindings []importBinding
}

// exportBinding maps a Wasm export to the module-level const holding it.
// direct exports are declared with `export const`.
type exportBinding struct {
	name   string
	local  string
	direct bool
}

// bindings is the complete naming plan for one generated module.
type bindings struct {
	groups  []importGroup
	exports []exportBinding

	wasmModule string
	imports    string
	loadWasm   string
	instance   string
}

// groupImports groups imports by module name, keeping first-seen module order
// and declaration order within a module. Repeated (module, name) pairs collapse.
func groupImports(imports []wasm.Import) []importGroup {
	var groups []importGroup
	index := make(map[string]int)
	seen := make(map[[2]string]bool)

	for _, imp := range imports {
		key := [2]string{imp.Module, imp.Name}
		if seen[key] {
			continue
		}
		seen[key] = true

		i, ok := index[imp.Module]
		if !ok {
			i = len(groups)
			index[imp.Module] = i
			groups = append(groups, importGroup{module: imp.Module})
		}
		groups[i].bindings = append(groups[i].bindings, importBinding{name: imp.Name})
	}
	return groups
}

// bind assigns every binding name. Export names are claimed first so they can
// be declared verbatim, then import names, then the loader's own names.
func bind(meta *wasm.Metadata) *bindings {
	s := newScope()
	b := &bindings{groups: groupImports(meta.Imports)}

	b.exports = make([]exportBinding, len(meta.Exports))
	for i, e := range meta.Exports {
		b.exports[i] = exportBinding{name: e.Name}
		if s.claim(e.Name) {
			b.exports[i].local = e.Name
			b.exports[i].direct = true
		}
	}

	for gi := range b.groups {
		for bi := range b.groups[gi].bindings {
			ib := &b.groups[gi].bindings[bi]
			if s.claim(ib.name) {
				ib.local = ib.name
			} else {
				ib.local = s.alloc(ib.name)
			}
		}
	}

	for i := range b.exports {
		if !b.exports[i].direct {
			b.exports[i].local = s.alloc(b.exports[i].name)
		}
	}

	b.wasmModule = s.alloc("wasmModule")
	b.imports = s.alloc("imports")
	b.loadWasm = s.alloc("loadWasm")
	b.instance = s.alloc("instance")
	return b
}
