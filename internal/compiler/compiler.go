// Package compiler turns a validated specification document of either
// grammar into a low-level Vega specification aware of the host's dataset
// names.
package compiler

import (
	"fmt"

	"github.com/vk/vegapanel/internal/compiler/vegalite"
	"github.com/vk/vegapanel/internal/jsonutil"
	"github.com/vk/vegapanel/internal/registry"
)

// UnsupportedError reports a valid construct that cannot be lowered.
type UnsupportedError = vegalite.UnsupportedError

// Compile produces a low-level specification from doc. doc is never
// modified. Every name in datasetNames is declared as a named data source the
// host fills at render time. cfg is the render configuration merged into the
// output's config.
func Compile(doc map[string]any, tag registry.Tag, datasetNames []string, cfg map[string]any) (map[string]any, error) {
	doc = jsonutil.CloneObject(doc)
	if doc == nil {
		return nil, fmt.Errorf("cannot compile a null specification")
	}

	switch tag {
	case registry.Vega:
		if data, ok := doc["data"]; ok {
			list, isList := data.([]any)
			if !isList {
				// Left in place for the plan parser to reject.
				return withConfig(doc, cfg), nil
			}
			doc["data"] = MergeData(datasetNames, list)
		} else {
			doc["data"] = MergeData(datasetNames, nil)
		}
		return withConfig(doc, cfg), nil

	case registry.VegaLite:
		InjectDatasets(doc, datasetNames)
		return vegalite.Compile(doc, cfg)

	default:
		return nil, fmt.Errorf("cannot compile grammar '%s'", tag)
	}
}

// MergeData overlays the author's data entries on one placeholder per
// dataset name. Placeholders keep the order of names, an author entry with a
// matching name replaces its placeholder in place, the last duplicate
// winning. Remaining author entries follow in their own order.
func MergeData(names []string, authored []any) []any {
	merged := make([]any, 0, len(names)+len(authored))
	slot := make(map[string]int, len(names))
	for _, name := range names {
		if _, dup := slot[name]; dup {
			continue
		}
		slot[name] = len(merged)
		merged = append(merged, map[string]any{"name": name})
	}

	// Author-only entries are appended once, at their first occurrence.
	for _, entry := range authored {
		obj, ok := entry.(map[string]any)
		name, named := obj["name"].(string)
		if !ok || !named {
			merged = append(merged, entry)
			continue
		}
		if i, ok := slot[name]; ok {
			merged[i] = obj
			continue
		}
		slot[name] = len(merged)
		merged = append(merged, obj)
	}
	return merged
}

// InjectDatasets sets the document's datasets to exactly one empty
// placeholder per name. Author datasets are discarded, and no names leave an
// empty mapping.
func InjectDatasets(doc map[string]any, names []string) {
	datasets := make(map[string]any, len(names))
	for _, name := range names {
		datasets[name] = map[string]any{}
	}
	doc["datasets"] = datasets
}

func withConfig(doc map[string]any, cfg map[string]any) map[string]any {
	if len(cfg) == 0 {
		return doc
	}
	merged := jsonutil.CloneObject(cfg)
	if own, ok := doc["config"].(map[string]any); ok {
		merged = vegalite.MergeConfig(merged, own)
	}
	doc["config"] = merged
	return doc
}
