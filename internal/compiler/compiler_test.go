package compiler

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/vegapanel/internal/jsonutil"
	"github.com/vk/vegapanel/internal/registry"
)

func TestCompile_VegaAuthorEntryWins(t *testing.T) {
	authorA := map[string]any{"name": "A", "values": []any{map[string]any{"x": 1.0}}}
	doc := map[string]any{
		"$schema": registry.VegaSchemaID,
		"data":    []any{authorA},
	}
	before := jsonutil.Clone(doc)

	got, err := Compile(doc, registry.Vega, []string{"A", "B"}, nil)
	require.NoError(t, err)

	want := []any{
		map[string]any{"name": "A", "values": []any{map[string]any{"x": 1.0}}},
		map[string]any{"name": "B"},
	}
	assert.Empty(t, cmp.Diff(want, got["data"]))
	assert.Empty(t, cmp.Diff(before, any(doc)), "input document must not be modified")
}

func TestCompile_VegaMinimal(t *testing.T) {
	doc := map[string]any{
		"$schema": registry.VegaSchemaID,
		"mark":    "point",
		"data":    []any{map[string]any{"name": "A"}},
	}
	got, err := Compile(doc, registry.Vega, []string{"A"}, nil)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff([]any{map[string]any{"name": "A"}}, got["data"]))
	assert.Equal(t, "point", got["mark"])
}

func TestCompile_VegaNonArrayDataIsLeftAlone(t *testing.T) {
	doc := map[string]any{"data": "not-an-array"}
	got, err := Compile(doc, registry.Vega, []string{"A"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "not-an-array", got["data"])
}

func TestCompile_VegaConfig(t *testing.T) {
	doc := map[string]any{"config": map[string]any{"background": "white", "title": map[string]any{"fontSize": 20.0}}}
	cfg := map[string]any{"background": "transparent", "title": map[string]any{"color": "#fff"}}

	got, err := Compile(doc, registry.Vega, nil, cfg)
	require.NoError(t, err)

	want := map[string]any{"background": "white", "title": map[string]any{"color": "#fff", "fontSize": 20.0}}
	assert.Empty(t, cmp.Diff(want, got["config"]))
}

func TestCompile_VegaLiteInjectsDatasets(t *testing.T) {
	doc := map[string]any{
		"$schema": registry.VegaLiteSchemaID,
		"datasets": map[string]any{
			"A":     []any{map[string]any{"v": 1.0}},
			"extra": []any{map[string]any{"v": 2.0}},
		},
		"data": map[string]any{"name": "A"},
		"mark": "point",
		"encoding": map[string]any{
			"x": map[string]any{"field": "v", "type": "quantitative"},
		},
	}

	got, err := Compile(doc, registry.VegaLite, []string{"A", "B"}, nil)
	require.NoError(t, err)

	want := []any{
		map[string]any{"name": "A"},
		map[string]any{"name": "B"},
	}
	assert.Empty(t, cmp.Diff(want, got["data"]))
	assert.Equal(t, registry.VegaSchemaID, got["$schema"])
	_, hasDatasets := doc["datasets"].(map[string]any)["B"]
	assert.False(t, hasDatasets, "input document must not be modified")
}

func TestInjectDatasets_ReplacesAuthorDatasets(t *testing.T) {
	testCases := []struct {
		name  string
		names []string
		want  map[string]any
	}{
		{name: "names", names: []string{"A", "B"}, want: map[string]any{"A": map[string]any{}, "B": map[string]any{}}},
		{name: "no names", names: nil, want: map[string]any{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doc := map[string]any{"datasets": map[string]any{"A": []any{1.0}, "extra": []any{2.0}}}
			InjectDatasets(doc, tc.names)
			assert.Empty(t, cmp.Diff(tc.want, doc["datasets"]))
		})
	}
}

func TestCompile_VegaLiteUnsupported(t *testing.T) {
	doc := map[string]any{"layer": []any{}}
	_, err := Compile(doc, registry.VegaLite, nil, nil)
	var ue *UnsupportedError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "vega-lite: 'layer' is not supported", ue.Error())
}

func TestCompile_Errors(t *testing.T) {
	_, err := Compile(nil, registry.Vega, nil, nil)
	assert.Error(t, err)

	_, err = Compile(map[string]any{}, registry.Tag(9), nil, nil)
	assert.Error(t, err)
}

func TestMergeData(t *testing.T) {
	testCases := []struct {
		name     string
		names    []string
		authored []any
		want     []any
	}{
		{
			name:  "placeholders only",
			names: []string{"B", "A", "B"},
			want:  []any{map[string]any{"name": "B"}, map[string]any{"name": "A"}},
		},
		{
			name:  "override in place then author-only in author order",
			names: []string{"A", "B"},
			authored: []any{
				map[string]any{"name": "z", "url": "z.json"},
				map[string]any{"name": "B", "values": []any{}},
				map[string]any{"name": "y"},
			},
			want: []any{
				map[string]any{"name": "A"},
				map[string]any{"name": "B", "values": []any{}},
				map[string]any{"name": "z", "url": "z.json"},
				map[string]any{"name": "y"},
			},
		},
		{
			name:  "last duplicate wins",
			names: []string{"A"},
			authored: []any{
				map[string]any{"name": "A", "values": []any{1.0}},
				map[string]any{"name": "A", "values": []any{2.0}},
			},
			want: []any{map[string]any{"name": "A", "values": []any{2.0}}},
		},
		{
			name:     "unnamed entries are kept",
			names:    nil,
			authored: []any{map[string]any{"values": []any{}}, "junk"},
			want:     []any{map[string]any{"values": []any{}}, "junk"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Empty(t, cmp.Diff(tc.want, MergeData(tc.names, tc.authored)))
		})
	}
}
