package plan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vk/vegapanel/internal/dag"
	"github.com/vk/vegapanel/internal/expr"
	"github.com/vk/vegapanel/internal/jsonutil"
)

const (
	defaultSize = 200.0

	containerWidth  = "containerSize()[0]"
	containerHeight = "containerSize()[1]"
)

var markTypes = map[string]bool{
	"symbol": true, "line": true, "area": true, "rect": true, "rule": true, "text": true,
}

var transformTypes = map[string]bool{Filter: true, Formula: true, Aggregate: true}

var aggregateOps = map[string]bool{
	"count": true, "sum": true, "mean": true, "average": true, "median": true, "min": true, "max": true,
}

// parser accumulates every problem found so one pass reports them all.
type parser struct {
	errs []string
}

func (p *parser) fail(format string, args ...any) {
	p.errs = append(p.errs, fmt.Sprintf(format, args...))
}

func (p *parser) err() error {
	if len(p.errs) == 0 {
		return nil
	}
	return errors.New("invalid render plan:\n- " + strings.Join(p.errs, "\n- "))
}

// Parse builds a plan from a Vega document. cfg is the render
// configuration; the document's own config is merged over it by the
// compiler, so cfg only fills what the document leaves unset.
func Parse(vg map[string]any, cfg map[string]any) (*Plan, error) {
	if vg == nil {
		return nil, fmt.Errorf("invalid render plan: document is null")
	}
	p := &parser{}
	pl := &Plan{Config: mergeConfig(cfg, vg["config"])}

	pl.Width, pl.FitWidth = p.size(vg, "width", containerWidth)
	pl.Height, pl.FitHeight = p.size(vg, "height", containerHeight)
	pl.Autosize = autosizeType(vg["autosize"])
	pl.Background = background(vg["background"], pl.Config)
	pl.Title = titleText(vg["title"])
	pl.Description, _ = vg["description"].(string)

	pl.Data = p.data(vg["data"])
	pl.Scales = p.scales(vg["scales"], pl)
	pl.Axes = p.axes(vg["axes"], pl)
	pl.Legends = p.legends(vg["legends"], pl)
	pl.Marks = p.marks(vg["marks"], pl)

	if err := p.err(); err != nil {
		return nil, err
	}
	return pl, nil
}

func mergeConfig(cfg map[string]any, own any) map[string]any {
	merged := jsonutil.CloneObject(cfg)
	if merged == nil {
		merged = map[string]any{}
	}
	if o, ok := own.(map[string]any); ok {
		for k, v := range o {
			merged[k] = jsonutil.Clone(v)
		}
	}
	return merged
}

func (p *parser) size(vg map[string]any, key, container string) (float64, bool) {
	switch v := vg[key].(type) {
	case nil:
		return defaultSize, false
	case float64:
		if v < 0 {
			p.fail("'%s' must not be negative", key)
		}
		return v, false
	case map[string]any:
		if v["signal"] == container {
			return defaultSize, true
		}
		p.fail("'%s' signal %v is not supported", key, v["signal"])
	default:
		p.fail("'%s' must be a number or a container signal, got %s", key, jsonutil.TypeName(v))
	}
	return defaultSize, false
}

func autosizeType(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case map[string]any:
		s, _ := v["type"].(string)
		return s
	}
	return ""
}

func background(raw any, cfg map[string]any) string {
	if s, ok := raw.(string); ok {
		return s
	}
	s, _ := cfg["background"].(string)
	return s
}

func titleText(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case map[string]any:
		return titleText(v["text"])
	case []any:
		parts := make([]string, 0, len(v))
		for _, line := range v {
			if s, ok := line.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}

func (p *parser) data(raw any) []*Data {
	if raw == nil {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		p.fail("'data' must be an array, got %s", jsonutil.TypeName(raw))
		return nil
	}

	byName := make(map[string]*Data, len(list))
	graph := dag.New()
	var parsed []*Data
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			p.fail("data %d must be an object, got %s", i, jsonutil.TypeName(item))
			continue
		}
		name, _ := obj["name"].(string)
		if name == "" {
			p.fail("data %d has no name", i)
			continue
		}
		if _, dup := byName[name]; dup {
			p.fail("duplicate data name '%s'", name)
			continue
		}
		d := p.dataEntry(name, obj)
		byName[name] = d
		graph.AddNode(name)
		parsed = append(parsed, d)
	}

	for _, d := range parsed {
		if d.Source == "" {
			continue
		}
		if !graph.Has(d.Source) {
			p.fail("data '%s' has unknown source '%s'", d.Name, d.Source)
			continue
		}
		if err := graph.AddEdge(d.Source, d.Name); err != nil {
			p.fail("data '%s': %v", d.Name, err)
		}
	}

	order, err := graph.TopologicalOrder()
	if err != nil {
		p.fail("data sources: %v", err)
		return parsed
	}
	out := make([]*Data, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out
}

func (p *parser) dataEntry(name string, obj map[string]any) *Data {
	d := &Data{Name: name}
	if raw, ok := obj["source"]; ok {
		switch s := raw.(type) {
		case string:
			d.Source = s
		case []any:
			if len(s) == 1 {
				d.Source, _ = s[0].(string)
			} else {
				p.fail("data '%s': multiple sources are not supported", name)
			}
		default:
			p.fail("data '%s': 'source' must be a string", name)
		}
	}
	if u, ok := obj["url"].(string); ok {
		d.URL = u
	}
	if raw, ok := obj["values"]; ok {
		d.Values = rows(raw)
		if d.Values == nil {
			p.fail("data '%s': 'values' must be an array", name)
		}
	}

	if raw, ok := obj["transform"]; ok {
		list, ok := raw.([]any)
		if !ok {
			p.fail("data '%s': 'transform' must be an array", name)
			return d
		}
		for i, item := range list {
			if t := p.transform(name, i, item); t != nil {
				d.Transforms = append(d.Transforms, t)
			}
		}
	}
	return d
}

// rows normalizes inline values. Non-object values are wrapped as
// {"data": value}.
func rows(raw any) []map[string]any {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, len(list))
	for i, item := range list {
		if obj, ok := item.(map[string]any); ok {
			out[i] = obj
			continue
		}
		out[i] = map[string]any{"data": item}
	}
	return out
}

func (p *parser) transform(data string, i int, raw any) *Transform {
	obj, ok := raw.(map[string]any)
	if !ok {
		p.fail("data '%s': transform %d must be an object", data, i)
		return nil
	}
	typ, _ := obj["type"].(string)
	if !transformTypes[typ] {
		p.fail("data '%s': transform %d: unsupported type '%s'", data, i, typ)
		return nil
	}
	t := &Transform{Type: typ}

	switch typ {
	case Filter, Formula:
		src, _ := obj["expr"].(string)
		if src == "" {
			p.fail("data '%s': %s transform %d needs an 'expr'", data, typ, i)
			return nil
		}
		e, err := expr.Compile(src)
		if err != nil {
			p.fail("data '%s': %v", data, err)
			return nil
		}
		t.Expr = e
		if typ == Formula {
			t.As, _ = obj["as"].(string)
			if t.As == "" {
				p.fail("data '%s': formula transform %d needs an 'as'", data, i)
				return nil
			}
		}

	case Aggregate:
		t.GroupBy = stringList(obj["groupby"])
		t.Ops = stringList(obj["ops"])
		if len(t.Ops) == 0 {
			t.Ops = []string{"count"}
		}
		fields, _ := obj["fields"].([]any)
		as := stringList(obj["as"])
		for j, op := range t.Ops {
			if !aggregateOps[op] {
				p.fail("data '%s': aggregate op '%s' is not supported", data, op)
				return nil
			}
			var field string
			if j < len(fields) {
				field, _ = fields[j].(string)
			}
			if field == "" && op != "count" {
				p.fail("data '%s': aggregate op '%s' needs a field", data, op)
				return nil
			}
			out := ""
			if j < len(as) {
				out = as[j]
			}
			if out == "" {
				out = op
				if field != "" {
					out = op + "_" + field
				}
			}
			t.Fields = append(t.Fields, field)
			t.Outputs = append(t.Outputs, out)
		}
	}
	return t
}

// stringList extracts the string items of an array, nil items as "".
func stringList(raw any) []string {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, len(list))
	for i, item := range list {
		out[i], _ = item.(string)
	}
	return out
}

func (p *parser) scales(raw any, pl *Plan) []*Scale {
	list, ok := raw.([]any)
	if raw != nil && !ok {
		p.fail("'scales' must be an array, got %s", jsonutil.TypeName(raw))
		return nil
	}
	var out []*Scale
	seen := make(map[string]bool)
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			p.fail("scale %d must be an object", i)
			continue
		}
		s := &Scale{Type: "linear", Range: obj["range"]}
		s.Name, _ = obj["name"].(string)
		if s.Name == "" {
			p.fail("scale %d has no name", i)
			continue
		}
		if seen[s.Name] {
			p.fail("duplicate scale name '%s'", s.Name)
			continue
		}
		seen[s.Name] = true
		if t, ok := obj["type"].(string); ok {
			s.Type = t
		}
		s.Zero, _ = obj["zero"].(bool)
		if _, set := obj["zero"]; !set && (s.Type == "linear" || s.Type == "sqrt" || s.Type == "pow") {
			s.Zero = true
		}
		s.Nice, _ = obj["nice"].(bool)
		s.Padding, _ = obj["padding"].(float64)

		switch dom := obj["domain"].(type) {
		case nil:
		case []any:
			s.DomainValues = dom
		case map[string]any:
			s.Data, _ = dom["data"].(string)
			if f, ok := dom["field"].(string); ok {
				s.Fields = []string{f}
			}
			s.Fields = append(s.Fields, stringList(dom["fields"])...)
			if _, ok := pl.Dataset(s.Data); !ok {
				p.fail("scale '%s' references unknown data '%s'", s.Name, s.Data)
			}
		default:
			p.fail("scale '%s': unsupported domain", s.Name)
		}
		out = append(out, s)
	}
	return out
}

func (p *parser) axes(raw any, pl *Plan) []*Axis {
	list, ok := raw.([]any)
	if raw != nil && !ok {
		p.fail("'axes' must be an array, got %s", jsonutil.TypeName(raw))
		return nil
	}
	var out []*Axis
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			p.fail("axis %d must be an object", i)
			continue
		}
		a := &Axis{}
		a.Orient, _ = obj["orient"].(string)
		a.Scale, _ = obj["scale"].(string)
		a.Title = titleText(obj["title"])
		a.Grid, _ = obj["grid"].(bool)
		if _, ok := pl.Scale(a.Scale); !ok {
			p.fail("axis %d references unknown scale '%s'", i, a.Scale)
			continue
		}
		out = append(out, a)
	}
	return out
}

var legendChannels = []string{"fill", "stroke", "size", "opacity", "shape"}

func (p *parser) legends(raw any, pl *Plan) []*Legend {
	list, ok := raw.([]any)
	if raw != nil && !ok {
		p.fail("'legends' must be an array, got %s", jsonutil.TypeName(raw))
		return nil
	}
	var out []*Legend
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			p.fail("legend %d must be an object", i)
			continue
		}
		l := &Legend{Title: titleText(obj["title"])}
		for _, ch := range legendChannels {
			if s, ok := obj[ch].(string); ok {
				l.Channel, l.Scale = ch, s
				break
			}
		}
		if l.Scale == "" {
			p.fail("legend %d has no scale", i)
			continue
		}
		if _, ok := pl.Scale(l.Scale); !ok {
			p.fail("legend %d references unknown scale '%s'", i, l.Scale)
			continue
		}
		out = append(out, l)
	}
	return out
}

func (p *parser) marks(raw any, pl *Plan) []*Mark {
	list, ok := raw.([]any)
	if raw != nil && !ok {
		p.fail("'marks' must be an array, got %s", jsonutil.TypeName(raw))
		return nil
	}
	var out []*Mark
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			p.fail("mark %d must be an object", i)
			continue
		}
		m := &Mark{Encode: make(map[string]*ValueRef)}
		m.Name, _ = obj["name"].(string)
		m.Type, _ = obj["type"].(string)
		if !markTypes[m.Type] {
			p.fail("mark %d: unsupported type '%s'", i, m.Type)
			continue
		}
		if from, ok := obj["from"].(map[string]any); ok {
			m.From, _ = from["data"].(string)
			if _, ok := pl.Dataset(m.From); !ok {
				p.fail("mark %d references unknown data '%s'", i, m.From)
				continue
			}
		}

		if enc, ok := obj["encode"].(map[string]any); ok {
			for _, set := range []string{"enter", "update"} {
				props, _ := enc[set].(map[string]any)
				for prop, v := range props {
					if ref := p.valueRef(i, prop, v, pl); ref != nil {
						m.Encode[prop] = ref
					}
				}
			}
		}
		out = append(out, m)
	}
	return out
}

func (p *parser) valueRef(mark int, prop string, raw any, pl *Plan) *ValueRef {
	obj, ok := raw.(map[string]any)
	if !ok {
		p.fail("mark %d: property '%s' must be an object", mark, prop)
		return nil
	}
	ref := &ValueRef{}
	ref.Value, ref.HasValue = obj["value"]
	if f, ok := obj["field"]; ok {
		s, ok := f.(string)
		if !ok {
			p.fail("mark %d: property '%s': only string fields are supported", mark, prop)
			return nil
		}
		ref.Field = s
	}
	if s, ok := obj["scale"].(string); ok {
		if _, known := pl.Scale(s); !known {
			p.fail("mark %d: property '%s' references unknown scale '%s'", mark, prop, s)
			return nil
		}
		ref.Scale = s
	}
	ref.Band, _ = obj["band"].(float64)
	if b, ok := obj["band"].(int); ok {
		ref.Band = float64(b)
	}
	if src, ok := obj["signal"].(string); ok {
		e, err := expr.Compile(src)
		if err != nil {
			p.fail("mark %d: property '%s': %v", mark, prop, err)
			return nil
		}
		ref.Signal = e
	}
	if ref.Field == "" && !ref.HasValue && ref.Signal == nil && ref.Band == 0 {
		p.fail("mark %d: property '%s' needs a field, value, signal or band", mark, prop)
		return nil
	}
	return ref
}
