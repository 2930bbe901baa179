// Package augment derives context-aware variants of the grammar schemas.
//
// The editor offers completion for the field and dataset names the host
// currently provides. Schema produces a copy of a canonical schema in which
// every description carries a markdown twin for hover rendering and, for
// Vega-Lite, the FieldName and NamedData name nodes also accept an enum of
// the known names. Unknown names stay valid; known names just rank first.
package augment

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vk/vegapanel/internal/jsonutil"
	"github.com/vk/vegapanel/internal/registry"
)

// Snapshot is the host context that drives augmentation and dataset
// injection.
type Snapshot struct {
	FieldNames   []string `json:"fieldNames"`
	DatasetNames []string `json:"datasetNames"`
}

// Key serializes the snapshot. Two snapshots with equal keys are treated as
// the same context. A nil list and an empty list produce the same key.
func (s Snapshot) Key() string {
	norm := Snapshot{FieldNames: s.FieldNames, DatasetNames: s.DatasetNames}
	if norm.FieldNames == nil {
		norm.FieldNames = []string{}
	}
	if norm.DatasetNames == nil {
		norm.DatasetNames = []string{}
	}
	raw, err := json.Marshal(norm)
	if err != nil {
		panic(fmt.Sprintf("snapshot is not serializable: %v", err))
	}
	return string(raw)
}

// Equal reports whether two snapshots serialize identically.
func (s Snapshot) Equal(other Snapshot) bool {
	return s.Key() == other.Key()
}

// ShapeError reports a base schema that lacks a node augmentation expects.
type ShapeError struct {
	Grammar registry.Tag
	Pointer string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("bad schema: %s schema has no node at %s", e.Grammar, e.Pointer)
}

// AddMarkdown walks a schema tree and sets markdownDescription next to every
// string description.
func AddMarkdown(node any) {
	switch t := node.(type) {
	case map[string]any:
		if desc, ok := t["description"].(string); ok {
			t["markdownDescription"] = desc
		}
		for _, child := range t {
			AddMarkdown(child)
		}
	case []any:
		for _, child := range t {
			AddMarkdown(child)
		}
	}
}

// target is a schema node typing a name reference.
type target struct {
	keys    []string
	dataset bool
}

func targets(t registry.Tag) []target {
	switch t {
	case registry.VegaLite:
		return []target{
			{keys: []string{"definitions", "FieldName"}},
			{keys: []string{"definitions", "NamedData", "properties", "name"}, dataset: true},
		}
	case registry.Vega:
		// Vega references fields and datasets through signal-capable unions
		// with no dedicated name node, so its schema only gets markdown twins.
		return nil
	default:
		panic("unreachable")
	}
}

// Schema returns an augmented copy of base. The base tree is not modified.
func Schema(t registry.Tag, base map[string]any, snap Snapshot) (map[string]any, error) {
	out := jsonutil.CloneObject(base)
	AddMarkdown(out)

	for _, tg := range targets(t) {
		names := snap.FieldNames
		if tg.dataset {
			names = snap.DatasetNames
		}
		if err := widen(out, tg.keys, names); err != nil {
			return nil, &ShapeError{Grammar: t, Pointer: jsonutil.Pointer(tg.keys...)}
		}
	}
	return out, nil
}

var errMissing = errors.New("node missing")

// widen replaces the node at keys with anyOf[any string, known names],
// keeping its descriptions.
func widen(root map[string]any, keys []string, names []string) error {
	parent, ok := jsonutil.Lookup(root, keys[:len(keys)-1]...)
	if !ok {
		return errMissing
	}
	last := keys[len(keys)-1]
	node, ok := parent[last].(map[string]any)
	if !ok {
		return errMissing
	}

	branches := []any{map[string]any{"type": "string"}}
	if known := unique(names); len(known) > 0 {
		branches = append(branches, map[string]any{"type": "string", "enum": known})
	}
	widened := map[string]any{"anyOf": branches}
	for _, k := range []string{"description", "markdownDescription"} {
		if v, ok := node[k]; ok {
			widened[k] = v
		}
	}
	parent[last] = widened
	return nil
}

func unique(names []string) []any {
	seen := make(map[string]struct{}, len(names))
	out := make([]any, 0, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
