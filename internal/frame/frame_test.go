package frame

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/vegapanel/internal/augment"
)

const wire = `[
	{"refId": "A", "fields": [
		{"name": "time", "type": "time", "values": [1700000000000, "2023-11-14T22:13:21Z"]},
		{"name": "some_value", "type": "number", "values": [1.5, null]},
		{"name": "host", "type": "string", "values": ["a", "b"]},
		{"name": "up", "type": "boolean", "values": [true]},
		{"name": "nested", "type": "frame", "values": [{}, {}]}
	]},
	{"refId": "B", "name": "cpu", "fields": [{"name": "v", "type": "number", "values": [1]}]}
]`

func TestDecodeAndTable(t *testing.T) {
	frames, err := Decode([]byte(wire))
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, "cpu", frames[1].Name)

	tab := frames[0].Table()
	assert.Equal(t, []string{"time", "some_value", "host", "up"}, tab.Columns())
	assert.Equal(t, 2, tab.Len())
	assert.Equal(t, []float64{1700000000000, 1700000001000}, tab.Column("time"))
	vals := tab.Column("some_value").([]float64)
	assert.Equal(t, 1.5, vals[0])
	assert.True(t, math.IsNaN(vals[1]))
	assert.Equal(t, []string{"a", "b"}, tab.Column("host"))
	assert.Equal(t, []bool{true, false}, tab.Column("up"), "short fields are padded")
	assert.Nil(t, tab.Column("nested"))
}

func TestDecode_Rejects(t *testing.T) {
	_, err := Decode([]byte(`{"refId": "A"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding frames")
}

func TestTables(t *testing.T) {
	testCases := []struct {
		name     string
		frames   []Frame
		keys     []string
		warnings []string
	}{
		{
			name:   "keyed by refId",
			frames: []Frame{{RefID: "A"}, {RefID: "B", Name: "cpu"}},
			keys:   []string{"A", "B"},
		},
		{
			name:     "unnamed frame skipped",
			frames:   []Frame{{Name: "x"}, {RefID: "A"}},
			keys:     []string{"A"},
			warnings: []string{"frame 0 has no refId and cannot be used from a specification"},
		},
		{
			name:     "duplicate refId",
			frames:   []Frame{{RefID: "A"}, {RefID: "A", Fields: []Field{{Name: "v", Type: Number, Values: []any{1.0}}}}},
			keys:     []string{"A"},
			warnings: []string{"2 frames share refId 'A', only the last is visible"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tables, warnings := Tables(tc.frames)
			assert.Len(t, tables, len(tc.keys))
			for _, k := range tc.keys {
				assert.Contains(t, tables, k)
			}
			assert.Equal(t, tc.warnings, warnings)
		})
	}

	tables, _ := Tables([]Frame{{RefID: "A"}, {RefID: "A", Fields: []Field{{Name: "v", Type: Number, Values: []any{1.0}}}}})
	assert.Equal(t, []string{"v"}, tables["A"].Columns(), "last frame wins")
}

func TestDatasetNames(t *testing.T) {
	frames := []Frame{{RefID: "A"}, {RefID: "B", Name: "cpu"}, {}}
	assert.Equal(t, []string{"A", "cpu"}, DatasetNames(frames))
	assert.Empty(t, DatasetNames(nil))
}

func TestSnapshot(t *testing.T) {
	frames := []Frame{
		{RefID: "A", Fields: []Field{{Name: "time"}, {Name: "v"}}},
		{RefID: "B", Name: "cpu", Fields: []Field{{Name: "v"}}},
	}
	snap := Snapshot(frames)
	assert.Equal(t, augment.Snapshot{
		FieldNames:   []string{"time", "v", "v"},
		DatasetNames: []string{"A", "B"},
	}, snap)
	assert.Equal(t, augment.Snapshot{FieldNames: []string{}, DatasetNames: []string{}}, Snapshot(nil))
}
