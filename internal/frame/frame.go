// Package frame adapts host data frames to the tables the chart engine
// reads.
package frame

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/aclements/go-gg/table"
	"github.com/vk/vegapanel/internal/augment"
)

// FieldType is the host's type of a field.
type FieldType string

const (
	Number       FieldType = "number"
	String       FieldType = "string"
	Boolean      FieldType = "boolean"
	Time         FieldType = "time"
	Enum         FieldType = "enum"
	Other        FieldType = "other"
	Nested       FieldType = "frame"
	Geo          FieldType = "geo"
	NestedFrames FieldType = "nestedFrames"
	Trace        FieldType = "trace"
)

// Field is one typed column.
type Field struct {
	Name   string    `json:"name"`
	Type   FieldType `json:"type"`
	Values []any     `json:"values"`
}

// Frame is a named series of columns. An empty Name counts as absent.
type Frame struct {
	RefID  string  `json:"refId"`
	Name   string  `json:"name,omitempty"`
	Fields []Field `json:"fields"`
}

// Decode reads a JSON array of frames.
func Decode(data []byte) ([]Frame, error) {
	var frames []Frame
	if err := json.Unmarshal(data, &frames); err != nil {
		return nil, fmt.Errorf("decoding frames: %w", err)
	}
	return frames, nil
}

// Len is the length of the longest field.
func (f Frame) Len() int {
	n := 0
	for _, fl := range f.Fields {
		n = max(n, len(fl.Values))
	}
	return n
}

// Table converts the frame. Fields of types the chart engine cannot read
// are dropped. Short fields are padded to the frame length.
func (f Frame) Table() *table.Table {
	n := f.Len()
	b := new(table.Builder)
	for _, fl := range f.Fields {
		if col := convert(fl, n); col != nil {
			b.Add(fl.Name, col)
		}
	}
	return b.Done()
}

func convert(fl Field, n int) table.Slice {
	switch fl.Type {
	case Number:
		out := make([]float64, n)
		for i := range out {
			out[i] = number(at(fl.Values, i))
		}
		return out
	case Time:
		out := make([]float64, n)
		for i := range out {
			out[i] = millis(at(fl.Values, i))
		}
		return out
	case String, Enum:
		out := make([]string, n)
		for i := range out {
			out[i] = text(at(fl.Values, i))
		}
		return out
	case Boolean:
		out := make([]bool, n)
		for i := range out {
			out[i], _ = at(fl.Values, i).(bool)
		}
		return out
	}
	return nil
}

func at(values []any, i int) any {
	if i < len(values) {
		return values[i]
	}
	return nil
}

func number(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return f
		}
	}
	return math.NaN()
}

// millis reads a time as milliseconds since the epoch. Strings are parsed
// as RFC 3339.
func millis(v any) float64 {
	switch x := v.(type) {
	case time.Time:
		return float64(x.UnixMilli())
	case string:
		t, err := time.Parse(time.RFC3339Nano, x)
		if err != nil {
			return math.NaN()
		}
		return float64(t.UnixMilli())
	}
	return number(v)
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// Tables keys the frames' tables by refId. Frames without a refId are
// skipped and a refId used twice keeps its last frame; both are reported as
// warnings.
func Tables(frames []Frame) (map[string]*table.Table, []string) {
	tables := make(map[string]*table.Table, len(frames))
	counts := make(map[string]int)
	var warnings []string
	for i, f := range frames {
		if f.RefID == "" {
			warnings = append(warnings, fmt.Sprintf("frame %d has no refId and cannot be used from a specification", i))
			continue
		}
		counts[f.RefID]++
		tables[f.RefID] = f.Table()
	}

	var dupes []string
	for id, n := range counts {
		if n > 1 {
			dupes = append(dupes, id)
		}
	}
	sort.Strings(dupes)
	for _, id := range dupes {
		warnings = append(warnings, fmt.Sprintf("%d frames share refId '%s', only the last is visible", counts[id], id))
	}
	return tables, warnings
}

// DatasetNames lists the names the specification can declare: each frame's
// name, or its refId when it has none. Frames with neither are left out.
func DatasetNames(frames []Frame) []string {
	names := make([]string, 0, len(frames))
	for _, f := range frames {
		name := f.Name
		if name == "" {
			name = f.RefID
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Snapshot is the editor context of the frames: every field name and every
// refId, in frame order.
func Snapshot(frames []Frame) augment.Snapshot {
	snap := augment.Snapshot{FieldNames: []string{}, DatasetNames: []string{}}
	for _, f := range frames {
		for _, fl := range f.Fields {
			snap.FieldNames = append(snap.FieldNames, fl.Name)
		}
		snap.DatasetNames = append(snap.DatasetNames, f.RefID)
	}
	return snap
}
