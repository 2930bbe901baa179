package vegalite

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/vegapanel/internal/jsonutil"
)

const (
	inlineSource  = "source_0"
	derivedSource = "data_0"
)

// compileData resolves the view's data property to the Vega data entry marks
// read from.
func (c *compilation) compileData() error {
	raw, ok := c.spec["data"]
	if !ok || raw == nil {
		return nil
	}
	data, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("vega-lite: 'data' must be an object, got %s", jsonutil.TypeName(raw))
	}

	name, _ := data["name"].(string)
	_, hasValues := data["values"]
	_, hasURL := data["url"]

	switch {
	case hasValues || hasURL:
		if name == "" {
			name = inlineSource
		}
		entry := map[string]any{"name": name}
		for _, key := range []string{"values", "url", "format"} {
			if v, ok := data[key]; ok {
				entry[key] = v
			}
		}
		c.addData(entry)
	case name != "":
		if !c.hasData(name) {
			c.addData(map[string]any{"name": name})
		}
	default:
		return fmt.Errorf("vega-lite: 'data' needs a name, values or url")
	}
	c.source = name
	return nil
}

// compileTransforms lowers the view's transform list, then the aggregation
// implied by encoding channels. A non-empty list is applied in a derived data
// entry that marks read instead of the raw source.
func (c *compilation) compileTransforms() error {
	if raw, ok := c.spec["transform"]; ok {
		list, ok := raw.([]any)
		if !ok {
			return fmt.Errorf("vega-lite: 'transform' must be an array, got %s", jsonutil.TypeName(raw))
		}
		for i, item := range list {
			t, ok := item.(map[string]any)
			if !ok {
				return fmt.Errorf("vega-lite: transform %d must be an object", i)
			}
			lowered, err := lowerTransform(t)
			if err != nil {
				return fmt.Errorf("vega-lite: transform %d: %w", i, err)
			}
			c.transforms = append(c.transforms, lowered)
		}
	}

	if agg := c.encodingAggregate(); agg != nil {
		c.transforms = append(c.transforms, agg)
	}

	if len(c.transforms) == 0 {
		return nil
	}
	if c.source == "" {
		return &UnsupportedError{Construct: "a transform without a data source"}
	}
	c.addData(map[string]any{
		"name":      derivedSource,
		"source":    c.source,
		"transform": c.transforms,
	})
	c.source = derivedSource
	return nil
}

func lowerTransform(t map[string]any) (map[string]any, error) {
	switch {
	case t["filter"] != nil:
		expr, err := filterExpr(t["filter"])
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "filter", "expr": expr}, nil

	case t["calculate"] != nil:
		expr, ok := t["calculate"].(string)
		if !ok {
			return nil, fmt.Errorf("'calculate' must be an expression string")
		}
		as, ok := t["as"].(string)
		if !ok || as == "" {
			return nil, fmt.Errorf("'calculate' needs an 'as' field name")
		}
		return map[string]any{"type": "formula", "expr": expr, "as": as}, nil

	case t["aggregate"] != nil:
		return lowerAggregate(t)
	}

	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return nil, &UnsupportedError{Construct: fmt.Sprintf("transform '%s'", strings.Join(keys, ","))}
}

func lowerAggregate(t map[string]any) (map[string]any, error) {
	defs, ok := t["aggregate"].([]any)
	if !ok {
		return nil, fmt.Errorf("'aggregate' must be an array")
	}
	var ops, fields, as []any
	for _, d := range defs {
		def, ok := d.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("aggregate entries must be objects")
		}
		op, _ := def["op"].(string)
		if !supportedOp(op) {
			return nil, &UnsupportedError{Construct: fmt.Sprintf("aggregate op '%s'", op)}
		}
		name, _ := def["as"].(string)
		if name == "" {
			return nil, fmt.Errorf("aggregate op '%s' needs an 'as' field name", op)
		}
		field, _ := def["field"].(string)
		ops = append(ops, op)
		fields = append(fields, nullable(field))
		as = append(as, name)
	}

	groupby := []any{}
	if raw, ok := t["groupby"].([]any); ok {
		groupby = raw
	}
	return map[string]any{
		"type":    "aggregate",
		"groupby": groupby,
		"ops":     ops,
		"fields":  fields,
		"as":      as,
	}, nil
}

func nullable(field string) any {
	if field == "" {
		return nil
	}
	return field
}

var supportedOps = map[string]bool{
	"count": true, "sum": true, "mean": true, "average": true, "median": true, "min": true, "max": true,
}

func supportedOp(op string) bool {
	return supportedOps[op]
}

// filterExpr turns a filter property into a Vega expression string.
func filterExpr(raw any) (string, error) {
	switch f := raw.(type) {
	case string:
		return f, nil
	case map[string]any:
		return predicateExpr(f)
	default:
		return "", fmt.Errorf("'filter' must be an expression or a field predicate")
	}
}

func predicateExpr(p map[string]any) (string, error) {
	field, ok := p["field"].(string)
	if !ok || field == "" {
		return "", fmt.Errorf("field predicate needs a 'field'")
	}
	if _, ok := p["timeUnit"]; ok {
		return "", &UnsupportedError{Construct: "timeUnit in a field predicate"}
	}
	ref := accessor(field)

	var terms []string
	if v, ok := p["equal"]; ok {
		terms = append(terms, fmt.Sprintf("%s === %s", ref, literal(v)))
	}
	if v, ok := p["oneOf"].([]any); ok {
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = literal(item)
		}
		terms = append(terms, fmt.Sprintf("indexof([%s], %s) !== -1", strings.Join(items, ", "), ref))
	}
	if v, ok := p["range"].([]any); ok {
		if len(v) != 2 {
			return "", fmt.Errorf("'range' needs exactly two bounds")
		}
		if v[0] != nil {
			terms = append(terms, fmt.Sprintf("%s >= %s", ref, literal(v[0])))
		}
		if v[1] != nil {
			terms = append(terms, fmt.Sprintf("%s <= %s", ref, literal(v[1])))
		}
	}
	for _, cmp := range []struct{ key, op string }{{"lt", "<"}, {"lte", "<="}, {"gt", ">"}, {"gte", ">="}} {
		if v, ok := p[cmp.key]; ok {
			terms = append(terms, fmt.Sprintf("%s %s %s", ref, cmp.op, literal(v)))
		}
	}

	if len(terms) == 0 {
		return "", fmt.Errorf("field predicate on '%s' has no test", field)
	}
	return strings.Join(terms, " && "), nil
}

// accessor references a datum field by name.
func accessor(field string) string {
	return fmt.Sprintf("datum[%s]", literal(field))
}

func literal(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(raw)
}
