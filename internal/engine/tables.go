package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/aclements/go-gg/table"
)

// tableRows reads t into one datum per row. Integer and time columns are
// read as float64 (time as milliseconds since the epoch), NaN as null.
func tableRows(t *table.Table) []map[string]any {
	n := t.Len()
	rows := make([]map[string]any, n)
	for i := range rows {
		rows[i] = make(map[string]any, len(t.Columns()))
	}
	for _, col := range t.Columns() {
		seq := reflect.ValueOf(t.Column(col))
		if seq.Kind() != reflect.Slice {
			continue
		}
		for i := 0; i < n && i < seq.Len(); i++ {
			rows[i][col] = cell(seq.Index(i))
		}
	}
	return rows
}

var timeType = reflect.TypeOf(time.Time{})

func cell(v reflect.Value) any {
	if v.Type() == timeType {
		t := v.Interface().(time.Time)
		return float64(t.UnixMilli())
	}
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) {
			return nil
		}
		return f
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Bool:
		return v.Bool()
	case reflect.String:
		return v.String()
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		return cell(v.Elem())
	}
	return v.Interface()
}

// numberColumn reads values as numbers; anything that is not a number is
// NaN, which gg leaves unplotted.
func numberColumn(values []any) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		f, ok := v.(float64)
		if !ok {
			f = math.NaN()
		}
		out[i] = f
	}
	return out
}

// stringColumn renders values as category labels.
func stringColumn(values []any) []string {
	out := make([]string, len(values))
	for i, v := range values {
		if v != nil {
			out[i] = label(v)
		}
	}
	return out
}

// numeric reports whether every non-null value is a number.
func numeric(values []any) bool {
	seen := false
	for _, v := range values {
		switch v.(type) {
		case nil:
		case float64:
			seen = true
		default:
			return false
		}
	}
	return seen
}

// column picks the column type for values: numbers stay numeric unless
// the scale they feed is discrete.
func column(values []any, discrete bool) table.Slice {
	if !discrete && numeric(values) {
		return numberColumn(values)
	}
	return stringColumn(values)
}

// label is the text of a category value.
func label(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}
