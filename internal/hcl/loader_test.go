package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/vegapanel/internal/frame"
	"github.com/zclconf/go-cty/cty"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "bar.vl.json", `{"mark": "bar"}`)
	path := write(t, dir, "main.hcl", `
server {
  address = ":9090"
  dark    = true
}

storage {
  path = "panels.db"
}

ingest {
  url = "nats://localhost:4222"
}

panel "1" {
  title     = "Bars"
  spec_file = "bar.vl.json"

  frame "A" {
    field "time" {
      type   = "time"
      values = [1704067200000, "2024-01-01T00:00:01Z"]
    }
    field "some_value" {
      values = [1, 2.5, null]
    }
    field "up" {
      values = [true, false, true]
    }
  }
}

panel "2" {
  spec = "{}"
  dark = false
}
`)

	m, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", m.Server.Address)
	assert.True(t, m.Server.Dark)
	assert.Equal(t, "panels.db", m.Storage.Path)
	assert.Equal(t, "nats://localhost:4222", m.Ingest.URL)
	assert.Empty(t, m.Ingest.Prefix)

	require.Len(t, m.Panels, 2)
	p := m.Panels[0]
	assert.Equal(t, "1", p.ID)
	assert.Equal(t, "Bars", p.Title)
	assert.Equal(t, `{"mark": "bar"}`, p.Text)
	assert.Nil(t, p.Dark)
	assert.Equal(t, path, p.Source)

	want := []frame.Frame{{
		RefID: "A",
		Fields: []frame.Field{
			{Name: "time", Type: frame.Time, Values: []any{1704067200000.0, "2024-01-01T00:00:01Z"}},
			{Name: "some_value", Type: frame.Number, Values: []any{1.0, 2.5, nil}},
			{Name: "up", Type: frame.Boolean, Values: []any{true, false, true}},
		},
	}}
	if diff := cmp.Diff(want, p.Frames); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}

	require.NotNil(t, m.Panels[1].Dark)
	assert.False(t, *m.Panels[1].Dark)
	assert.Equal(t, "{}", m.Panels[1].Text)
}

func TestLoader_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		want    string
	}{
		{name: "syntax", content: `panel "1" {`, want: "failed to parse HCL file"},
		{name: "unknown attribute type", content: `storage {}`, want: "failed to decode HCL file"},
		{name: "both texts", content: `panel "1" {
  spec      = "{}"
  spec_file = "x.json"
}`, want: "sets both spec and spec_file"},
		{name: "missing spec file", content: `panel "1" {
  spec_file = "missing.json"
}`, want: "reading spec_file"},
		{name: "values not a list", content: `panel "1" {
  frame "A" {
    field "x" {
      values = 1
    }
  }
}`, want: "values must be a list"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := write(t, t.TempDir(), "main.hcl", tc.content)
			_, err := NewLoader().Load(context.Background(), path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestConverter_Field(t *testing.T) {
	c := NewConverter()
	ctx := context.Background()
	testCases := []struct {
		name   string
		typ    string
		values cty.Value
		want   frame.Field
	}{
		{
			name:   "implied string",
			values: cty.TupleVal([]cty.Value{cty.NullVal(cty.String), cty.StringVal("a")}),
			want:   frame.Field{Name: "f", Type: frame.String, Values: []any{nil, "a"}},
		},
		{
			name:   "number to string",
			typ:    "string",
			values: cty.ListVal([]cty.Value{cty.NumberIntVal(3)}),
			want:   frame.Field{Name: "f", Type: frame.String, Values: []any{"3"}},
		},
		{
			name:   "string to number",
			typ:    "number",
			values: cty.TupleVal([]cty.Value{cty.StringVal("1.5")}),
			want:   frame.Field{Name: "f", Type: frame.Number, Values: []any{1.5}},
		},
		{
			name:   "other keeps structure",
			typ:    "other",
			values: cty.TupleVal([]cty.Value{cty.ObjectVal(map[string]cty.Value{"k": cty.True})}),
			want:   frame.Field{Name: "f", Type: frame.Other, Values: []any{map[string]any{"k": true}}},
		},
		{
			name:   "empty defaults to number",
			values: cty.EmptyTupleVal,
			want:   frame.Field{Name: "f", Type: frame.Number, Values: []any{}},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := c.Field(ctx, "f", tc.typ, tc.values)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestConverter_FieldRejectsBadElement(t *testing.T) {
	_, err := NewConverter().Field(context.Background(), "f", "number", cty.TupleVal([]cty.Value{cty.StringVal("x")}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'f': cannot convert string to number")
}
