package registry

import (
	"embed"
	"fmt"

	"github.com/vk/vegapanel/internal/jsonutil"
)

// The embedded files are condensed renditions of the published v5 grammars.
// They admit every v5 view, mark, channel and transform but constrain fewer
// leaf properties. Regenerating replaces them with the upstream releases.
//
//go:generate curl -sSfL -o schemas/vega-lite-v5.json https://vega.github.io/schema/vega-lite/v5.json
//go:generate curl -sSfL -o schemas/vega-v5.json https://vega.github.io/schema/vega/v5.json

//go:embed schemas/*.json
var schemaFiles embed.FS

// canonical holds the decoded schema trees. They are read-only after package
// initialization.
var canonical = loadCanonical()

func schemaFile(t Tag) string {
	switch t {
	case VegaLite:
		return "schemas/vega-lite-v5.json"
	case Vega:
		return "schemas/vega-v5.json"
	default:
		panic("unreachable")
	}
}

func loadCanonical() map[Tag]map[string]any {
	out := make(map[Tag]map[string]any, len(Tags()))
	for _, t := range Tags() {
		raw, err := schemaFiles.ReadFile(schemaFile(t))
		if err != nil {
			panic(fmt.Sprintf("embedded %s schema missing: %v", t, err))
		}
		tree, err := jsonutil.DecodeObject(raw)
		if err != nil {
			panic(fmt.Sprintf("embedded %s schema is not valid JSON: %v", t, err))
		}
		out[t] = tree
	}
	return out
}

// Canonical returns a private deep copy of a grammar's canonical schema.
func Canonical(t Tag) map[string]any {
	tree, ok := canonical[t]
	if !ok {
		panic("unreachable")
	}
	return jsonutil.CloneObject(tree)
}
