package augment

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/vegapanel/internal/jsonutil"
	"github.com/vk/vegapanel/internal/registry"
)

func TestSnapshot_Key(t *testing.T) {
	a := Snapshot{FieldNames: []string{"time"}, DatasetNames: []string{"A"}}
	b := Snapshot{FieldNames: []string{"time"}, DatasetNames: []string{"A"}}
	c := Snapshot{FieldNames: []string{"time"}, DatasetNames: []string{"B"}}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.True(t, Snapshot{}.Equal(Snapshot{FieldNames: []string{}, DatasetNames: []string{}}))
	assert.Equal(t, `{"fieldNames":["time"],"datasetNames":["A"]}`, a.Key())
}

func TestAddMarkdown(t *testing.T) {
	node := map[string]any{
		"description": "top",
		"properties": map[string]any{
			"description": map[string]any{"type": "string", "description": "nested"},
		},
		"anyOf": []any{map[string]any{"description": "branch"}},
	}
	AddMarkdown(node)

	want := map[string]any{
		"description":         "top",
		"markdownDescription": "top",
		"properties": map[string]any{
			"description": map[string]any{"type": "string", "description": "nested", "markdownDescription": "nested"},
		},
		"anyOf": []any{map[string]any{"description": "branch", "markdownDescription": "branch"}},
	}
	assert.Empty(t, cmp.Diff(want, node))
}

func TestSchema_VegaLiteTargets(t *testing.T) {
	snap := Snapshot{FieldNames: []string{"time", "some_value", "time"}, DatasetNames: []string{"A", "B"}}
	out, err := Schema(registry.VegaLite, registry.Canonical(registry.VegaLite), snap)
	require.NoError(t, err)

	field, ok := jsonutil.Lookup(out, "definitions", "FieldName")
	require.True(t, ok)
	wantField := map[string]any{
		"anyOf": []any{
			map[string]any{"type": "string"},
			map[string]any{"type": "string", "enum": []any{"time", "some_value"}},
		},
	}
	assert.Empty(t, cmp.Diff(wantField, field))

	name, ok := jsonutil.Lookup(out, "definitions", "NamedData", "properties", "name")
	require.True(t, ok)
	assert.Contains(t, name["description"], "placeholder name")
	assert.Equal(t, name["description"], name["markdownDescription"])
	assert.Equal(t, []any{"A", "B"}, name["anyOf"].([]any)[1].(map[string]any)["enum"])
}

func TestSchema_VegaGetsMarkdownOnly(t *testing.T) {
	base := registry.Canonical(registry.Vega)
	out, err := Schema(registry.Vega, base, Snapshot{FieldNames: []string{"x"}, DatasetNames: []string{"A"}})
	require.NoError(t, err)

	AddMarkdown(base)
	assert.Empty(t, cmp.Diff(base, out))
}

func TestSchema_EmptySnapshotKeepsAnyString(t *testing.T) {
	out, err := Schema(registry.VegaLite, registry.Canonical(registry.VegaLite), Snapshot{})
	require.NoError(t, err)

	node, ok := jsonutil.Lookup(out, "definitions", "NamedData", "properties", "name")
	require.True(t, ok)
	assert.Equal(t, []any{map[string]any{"type": "string"}}, node["anyOf"])
}

func TestSchema_MissingNodeIsShapeError(t *testing.T) {
	base := registry.Canonical(registry.VegaLite)
	delete(base["definitions"].(map[string]any), "NamedData")

	_, err := Schema(registry.VegaLite, base, Snapshot{})
	var se *ShapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "/definitions/NamedData/properties/name", se.Pointer)
	assert.Contains(t, err.Error(), "bad schema")
}

func TestSchema_DoesNotMutateBase(t *testing.T) {
	base := registry.Canonical(registry.VegaLite)
	before := jsonutil.CloneObject(base)

	_, err := Schema(registry.VegaLite, base, Snapshot{FieldNames: []string{"a"}, DatasetNames: []string{"A"}})
	require.NoError(t, err)
	_, err = Schema(registry.VegaLite, base, Snapshot{FieldNames: []string{"b"}, DatasetNames: []string{"B"}})
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(before, base))
	assert.Empty(t, cmp.Diff(registry.Canonical(registry.VegaLite), base))
}

func TestSchema_AcceptsWhatCanonicalAccepts(t *testing.T) {
	samples := []string{
		`{"$schema": "https://vega.github.io/schema/vega-lite/v5.json", "mark": "point", "data": {"name": "A"}}`,
		`{"$schema": "https://vega.github.io/schema/vega-lite/v5.json", "mark": "point", "data": {"name": "unknown"}}`,
		`{"$schema": "https://vega.github.io/schema/vega-lite/v5.json", "mark": "point", "encoding": {"x": {"field": "elsewhere"}}}`,
		`{"$schema": "https://vega.github.io/schema/vega-lite/v5.json", "mark": 3}`,
	}
	snap := Snapshot{FieldNames: []string{"time"}, DatasetNames: []string{"A"}}
	set, err := NewCache().Get(snap)
	require.NoError(t, err)
	augmented, err := registry.Compile(registry.VegaLiteSchemaID, set.Schema(registry.VegaLite))
	require.NoError(t, err)

	for _, sample := range samples {
		var doc any
		require.NoError(t, json.Unmarshal([]byte(sample), &doc))
		want := registry.Default().Validate(registry.VegaLite, doc) == nil
		assert.Equal(t, want, augmented.Validate(doc) == nil, sample)
	}
}

func TestCache_RecomputesOnlyOnChange(t *testing.T) {
	cache := NewCache()
	snap := Snapshot{DatasetNames: []string{"A"}}

	first, err := cache.Get(snap)
	require.NoError(t, err)
	again, err := cache.Get(Snapshot{DatasetNames: []string{"A"}})
	require.NoError(t, err)
	assert.Same(t, first, again)

	changed, err := cache.Get(Snapshot{DatasetNames: []string{"A", "B"}})
	require.NoError(t, err)
	assert.NotSame(t, first, changed)
}

func TestSet_Associations(t *testing.T) {
	set, err := NewSet(Snapshot{})
	require.NoError(t, err)

	assoc := set.Associations()
	require.Len(t, assoc, 2)
	assert.Equal(t, registry.VegaLiteSchemaID, assoc[0].URI)
	assert.Equal(t, registry.VegaSchemaID, assoc[1].URI)
	for _, a := range assoc {
		assert.Equal(t, []string{"*.json"}, a.FileMatch)
		assert.NotNil(t, a.Schema)
	}
}
