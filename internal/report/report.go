package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/woxQAQ/esbuild-plugin-wasm/internal/loader"
)

// Input is a Wasm input seen by esbuild in one of the plugin's namespaces.
type Input struct {
	Namespace loader.Namespace
	Path      string
	Bytes     int
	// BytesInOutput sums the input's contribution across all outputs.
	BytesInOutput int
}

// Asset is an emitted .wasm file.
type Asset struct {
	Path  string
	Bytes int
}

// Summary contains the analyzed Wasm content of a build.
type Summary struct {
	// Modules are the synthesized wrapper modules.
	Modules []Input
	// Binaries are the binaries themselves, deferred or embedded.
	Binaries []Input
	// Assets are the binaries emitted next to the bundle.
	Assets []Asset

	TotalAssetBytes int
}

// Embedded returns the binaries inlined into a bundle.
func (s *Summary) Embedded() []Input {
	var out []Input
	for _, in := range s.Binaries {
		if in.Namespace == loader.NamespaceEmbedded {
			out = append(out, in)
		}
	}
	return out
}

// Empty reports whether the build touched no Wasm at all.
func (s *Summary) Empty() bool {
	return len(s.Modules) == 0 && len(s.Binaries) == 0 && len(s.Assets) == 0
}

// Analyze parses an esbuild metafile and extracts its Wasm content.
func Analyze(metafileJSON string) (*Summary, error) {
	var meta Metafile
	if err := json.Unmarshal([]byte(metafileJSON), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}

	contrib := make(map[string]int)
	for _, out := range meta.Outputs {
		for path, c := range out.Inputs {
			contrib[path] += c.BytesInOutput
		}
	}

	summary := &Summary{}
	for key, in := range meta.Inputs {
		// Inputs outside the file namespace are keyed "namespace:path".
		prefix, path, ok := strings.Cut(key, ":")
		if !ok {
			continue
		}
		ns := loader.ParseNamespace(prefix)
		input := Input{
			Namespace:     ns,
			Path:          path,
			Bytes:         in.Bytes,
			BytesInOutput: contrib[key],
		}
		switch ns {
		case loader.NamespaceModule:
			summary.Modules = append(summary.Modules, input)
		case loader.NamespaceDeferred, loader.NamespaceEmbedded:
			summary.Binaries = append(summary.Binaries, input)
		}
	}

	for path, out := range meta.Outputs {
		if !strings.HasSuffix(path, ".wasm") {
			continue
		}
		summary.Assets = append(summary.Assets, Asset{Path: path, Bytes: out.Bytes})
		summary.TotalAssetBytes += out.Bytes
	}

	sortInputs(summary.Modules)
	sortInputs(summary.Binaries)
	sort.Slice(summary.Assets, func(i, j int) bool {
		return summary.Assets[i].Path < summary.Assets[j].Path
	})

	return summary, nil
}

func sortInputs(inputs []Input) {
	sort.Slice(inputs, func(i, j int) bool {
		if inputs[i].Path != inputs[j].Path {
			return inputs[i].Path < inputs[j].Path
		}
		return inputs[i].Namespace < inputs[j].Namespace
	})
}
