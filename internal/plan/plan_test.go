package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/vegapanel/internal/compiler/vegalite"
)

func names(data []*Data) []string {
	out := make([]string, len(data))
	for i, d := range data {
		out[i] = d.Name
	}
	return out
}

func TestParse_CompiledDefaultSpec(t *testing.T) {
	vg, err := vegalite.Compile(map[string]any{
		"data":   map[string]any{"name": "A"},
		"mark":   map[string]any{"type": "circle", "tooltip": map[string]any{"content": "data"}},
		"width":  "container",
		"height": "container",
		"encoding": map[string]any{
			"x": map[string]any{"field": "time", "type": "temporal"},
			"y": map[string]any{"field": "some_value", "type": "quantitative"},
		},
	}, map[string]any{"background": "transparent"})
	require.NoError(t, err)

	p, err := Parse(vg, nil)
	require.NoError(t, err)

	assert.True(t, p.FitWidth)
	assert.True(t, p.FitHeight)
	assert.Equal(t, "fit", p.Autosize)
	assert.Equal(t, "transparent", p.Background)
	assert.Equal(t, []string{"A"}, p.Roots())

	require.Len(t, p.Scales, 2)
	x, ok := p.Scale("x")
	require.True(t, ok)
	assert.Equal(t, "time", x.Type)
	assert.Equal(t, []string{"time"}, x.Fields)
	y, _ := p.Scale("y")
	assert.True(t, y.Zero)

	require.Len(t, p.Axes, 2)
	assert.Equal(t, "some_value", p.Axes[1].Title)

	require.Len(t, p.Marks, 1)
	m := p.Marks[0]
	assert.Equal(t, "symbol", m.Type)
	assert.Equal(t, "A", m.From)
	require.NotNil(t, m.Encode["tooltip"].Signal)
	assert.Equal(t, "datum", m.Encode["tooltip"].Signal.String())
	assert.Equal(t, "time", m.Encode["x"].Field)
	assert.Equal(t, "x", m.Encode["x"].Scale)
	assert.Equal(t, "circle", m.Encode["shape"].Value)
}

func TestParse_MinimalDocument(t *testing.T) {
	p, err := Parse(map[string]any{
		"$schema": "https://vega.github.io/schema/vega/v5.json",
		"mark":    "point",
		"data":    []any{map[string]any{"name": "A"}},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, names(p.Data))
	assert.Equal(t, defaultSize, p.Width)
	assert.Empty(t, p.Marks)
}

func TestParse_DataOrderAndTransforms(t *testing.T) {
	p, err := Parse(map[string]any{
		"data": []any{
			map[string]any{
				"name":   "derived",
				"source": "A",
				"transform": []any{
					map[string]any{"type": "filter", "expr": "datum.v > 1"},
					map[string]any{"type": "formula", "expr": "datum.v * 2", "as": "w"},
					map[string]any{"type": "aggregate", "groupby": []any{"k"}},
				},
			},
			map[string]any{"name": "A"},
			map[string]any{"name": "inline", "values": []any{1.0, map[string]any{"v": 2.0}}},
		},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "derived", "inline"}, names(p.Data))
	assert.Equal(t, []string{"A"}, p.Roots())

	derived, _ := p.Dataset("derived")
	require.Len(t, derived.Transforms, 3)
	assert.Equal(t, Filter, derived.Transforms[0].Type)
	assert.Equal(t, "w", derived.Transforms[1].As)
	agg := derived.Transforms[2]
	assert.Equal(t, []string{"count"}, agg.Ops)
	assert.Equal(t, []string{"count"}, agg.Outputs)
	assert.Equal(t, []string{"k"}, agg.GroupBy)

	inline, _ := p.Dataset("inline")
	assert.Equal(t, []map[string]any{{"data": 1.0}, {"v": 2.0}}, inline.Values)
}

func TestParse_Rejects(t *testing.T) {
	testCases := []struct {
		name string
		doc  map[string]any
		want string
	}{
		{name: "null document", doc: nil, want: "document is null"},
		{name: "data not an array", doc: map[string]any{"data": "not-an-array"}, want: "'data' must be an array, got string"},
		{name: "unnamed data", doc: map[string]any{"data": []any{map[string]any{}}}, want: "data 0 has no name"},
		{name: "duplicate data", doc: map[string]any{"data": []any{
			map[string]any{"name": "A"}, map[string]any{"name": "A"},
		}}, want: "duplicate data name 'A'"},
		{name: "unknown source", doc: map[string]any{"data": []any{
			map[string]any{"name": "d", "source": "nope"},
		}}, want: "unknown source 'nope'"},
		{name: "source cycle", doc: map[string]any{"data": []any{
			map[string]any{"name": "a", "source": "b"},
			map[string]any{"name": "b", "source": "a"},
		}}, want: "cycle detected"},
		{name: "bad expression", doc: map[string]any{"data": []any{
			map[string]any{"name": "a", "transform": []any{map[string]any{"type": "filter", "expr": "explode(1)"}}},
		}}, want: "unknown function 'explode'"},
		{name: "unsupported transform", doc: map[string]any{"data": []any{
			map[string]any{"name": "a", "transform": []any{map[string]any{"type": "fold"}}},
		}}, want: "unsupported type 'fold'"},
		{name: "unknown mark type", doc: map[string]any{"marks": []any{
			map[string]any{"type": "arc"},
		}}, want: "unsupported type 'arc'"},
		{name: "unknown mark data", doc: map[string]any{"marks": []any{
			map[string]any{"type": "rect", "from": map[string]any{"data": "B"}},
		}}, want: "unknown data 'B'"},
		{name: "unknown scale", doc: map[string]any{"marks": []any{
			map[string]any{"type": "rect", "encode": map[string]any{"update": map[string]any{
				"x": map[string]any{"scale": "x", "field": "a"},
			}}},
		}}, want: "unknown scale 'x'"},
		{name: "axis without scale", doc: map[string]any{"axes": []any{
			map[string]any{"orient": "bottom", "scale": "x"},
		}}, want: "axis 0 references unknown scale 'x'"},
		{name: "unsupported signal size", doc: map[string]any{"width": map[string]any{"signal": "w"}}, want: "'width' signal w is not supported"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.doc, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParse_ReportsEveryProblem(t *testing.T) {
	_, err := Parse(map[string]any{
		"data":  []any{map[string]any{}},
		"marks": []any{map[string]any{"type": "arc"}},
	}, nil)
	require.Error(t, err)
	assert.Equal(t, "invalid render plan:\n- data 0 has no name\n- mark 0: unsupported type 'arc'", err.Error())
}

func TestParse_Config(t *testing.T) {
	p, err := Parse(map[string]any{"config": map[string]any{"background": "white"}}, map[string]any{
		"background": "transparent",
		"axis":       map[string]any{"gridColor": "#444"},
	})
	require.NoError(t, err)
	assert.Equal(t, "white", p.Background)
	assert.Equal(t, map[string]any{"gridColor": "#444"}, p.Config["axis"])
}
