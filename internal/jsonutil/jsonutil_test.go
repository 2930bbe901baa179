package jsonutil

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClone_IsDeep(t *testing.T) {
	original := map[string]any{
		"a": []any{map[string]any{"b": "c"}, 1.0},
		"d": map[string]any{"e": true},
	}
	clone := CloneObject(original)
	require.Empty(t, cmp.Diff(original, clone))

	clone["a"].([]any)[0].(map[string]any)["b"] = "changed"
	clone["d"].(map[string]any)["f"] = nil

	assert.Equal(t, "c", original["a"].([]any)[0].(map[string]any)["b"])
	assert.NotContains(t, original["d"], "f")
}

func TestCloneObject_Nil(t *testing.T) {
	assert.Nil(t, CloneObject(nil))
}

func TestLookup(t *testing.T) {
	root := map[string]any{
		"definitions": map[string]any{
			"NamedData": map[string]any{
				"properties": map[string]any{"name": map[string]any{"type": "string"}},
			},
		},
	}

	node, ok := Lookup(root, "definitions", "NamedData", "properties", "name")
	require.True(t, ok)
	assert.Equal(t, "string", node["type"])

	_, ok = Lookup(root, "definitions", "missing")
	assert.False(t, ok)
}

func TestPointer(t *testing.T) {
	assert.Equal(t, "", Pointer())
	assert.Equal(t, "/definitions/FieldName", Pointer("definitions", "FieldName"))
	assert.Equal(t, "/a~1b/c~0d", Pointer("a/b", "c~d"))
}

func TestDecodeObject(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "object", input: `{"a": 1}`},
		{name: "array", input: `[1]`, wantErr: "top-level value must be an object, got array"},
		{name: "trailing data", input: `{} {}`, wantErr: "unexpected data after top-level value"},
		{name: "broken", input: `{`, wantErr: "unexpected EOF"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeObject([]byte(tc.input))
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestCompact(t *testing.T) {
	out, err := Compact(map[string]any{"b": "<x>", "a": []any{1.0, "y"}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":[1,"y"],"b":"<x>"}`, out)
}
