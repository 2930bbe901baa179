package vegalite

import (
	"fmt"
	"strings"

	"github.com/vk/vegapanel/internal/jsonutil"
)

// markDef is the decoded top-level mark property.
type markDef struct {
	typ      string
	vegaType string
	filled   bool
	// shape is set for symbol marks that fix their symbol shape.
	shape    string
	tooltip  any
	point    bool
	props    map[string]any
}

func (m markDef) rectLike() bool { return m.vegaType == "rect" }

// colorProp is the visual property color channels drive for this mark.
func (m markDef) colorProp() string {
	if m.filled {
		return "fill"
	}
	return "stroke"
}

var markTypes = map[string]markDef{
	"point":  {vegaType: "symbol", shape: "circle"},
	"circle": {vegaType: "symbol", shape: "circle", filled: true},
	"square": {vegaType: "symbol", shape: "square", filled: true},
	"bar":    {vegaType: "rect", filled: true},
	"rect":   {vegaType: "rect", filled: true},
	"line":   {vegaType: "line"},
	"area":   {vegaType: "area", filled: true},
	"rule":   {vegaType: "rule"},
	"tick":   {vegaType: "rule"},
	"text":   {vegaType: "text", filled: true},
}

// markProps are mark properties copied to every emitted mark item.
var markProps = []string{"opacity", "size", "strokeWidth", "strokeDash", "fillOpacity", "strokeOpacity", "interpolate", "align", "baseline", "fontSize", "angle"}

func (c *compilation) compileMark() error {
	raw, ok := c.spec["mark"]
	if !ok {
		return fmt.Errorf("vega-lite: 'mark' is required")
	}

	var def map[string]any
	switch m := raw.(type) {
	case string:
		def = map[string]any{"type": m}
	case map[string]any:
		def = m
	default:
		return fmt.Errorf("vega-lite: 'mark' must be a string or an object, got %s", jsonutil.TypeName(raw))
	}

	typ, _ := def["type"].(string)
	mark, ok := markTypes[typ]
	if !ok {
		return &UnsupportedError{Construct: fmt.Sprintf("mark '%s'", typ)}
	}
	mark.typ = typ
	if f, ok := def["filled"].(bool); ok {
		mark.filled = f
	}
	if s, ok := def["shape"].(string); ok {
		mark.shape = s
	}
	mark.tooltip = def["tooltip"]
	mark.point = def["point"] == true

	mark.props = make(map[string]any)
	for _, key := range markProps {
		if v, ok := def[key]; ok {
			mark.props[key] = v
		}
	}
	for _, key := range []string{"color", "fill", "stroke"} {
		if v, ok := def[key]; ok {
			mark.props[key] = v
		}
	}
	c.mark = mark
	return nil
}

func (c *compilation) compileMarks() error {
	update := map[string]any{}
	for key, v := range c.mark.props {
		switch key {
		case "color":
			update[c.mark.colorProp()] = value(v)
		default:
			update[key] = value(v)
		}
	}
	if c.mark.shape != "" {
		update["shape"] = value(c.mark.shape)
	}
	if _, ok := update[c.mark.colorProp()]; !ok {
		update[c.mark.colorProp()] = value(defaultColor)
	}

	for _, ch := range c.ordered() {
		if err := c.encodeChannel(update, ch); err != nil {
			return err
		}
	}
	c.encodeBaseline(update)

	if tip := c.tooltipSignal(); tip != "" {
		update["tooltip"] = map[string]any{"signal": tip}
	}

	mark := map[string]any{
		"name":   "marks",
		"type":   c.mark.vegaType,
		"encode": map[string]any{"update": update},
	}
	if c.source != "" {
		mark["from"] = map[string]any{"data": c.source}
	}
	marks := []any{mark}

	if c.mark.vegaType == "line" && c.mark.point {
		points := map[string]any{
			"name": "points",
			"type": "symbol",
			"encode": map[string]any{"update": map[string]any{
				"x":    jsonutil.Clone(update["x"]),
				"y":    jsonutil.Clone(update["y"]),
				"fill": jsonutil.Clone(update["stroke"]),
			}},
		}
		if c.source != "" {
			points["from"] = map[string]any{"data": c.source}
		}
		marks = append(marks, points)
	}

	if len(c.data) > 0 {
		c.out["data"] = c.data
	}
	if len(c.scales) > 0 {
		c.out["scales"] = c.scales
	}
	if len(c.axes) > 0 {
		c.out["axes"] = c.axes
	}
	if len(c.legends) > 0 {
		c.out["legends"] = c.legends
	}
	c.out["marks"] = marks
	return nil
}

func value(v any) map[string]any {
	return map[string]any{"value": v}
}

// encodeChannel writes the visual properties driven by one channel.
func (c *compilation) encodeChannel(update map[string]any, ch *channel) error {
	if ch.hasValue && ch.field == "" && ch.aggregate == "" {
		prop := ch.name
		if ch.name == "color" {
			prop = c.mark.colorProp()
		}
		if ch.name != "tooltip" && ch.name != "detail" {
			update[prop] = value(ch.value)
		}
		return nil
	}

	scaled := func(scale string) map[string]any {
		ref := map[string]any{"field": ch.output}
		if c.hasScale(scale) {
			ref["scale"] = scale
		}
		return ref
	}

	switch ch.name {
	case "x", "y":
		update[ch.name] = scaled(ch.name)
		if c.bandScale(ch.name) {
			extent := "width"
			if ch.name == "y" {
				extent = "height"
			}
			update[extent] = map[string]any{"scale": ch.name, "band": 1}
		}
	case "x2", "y2":
		update[ch.name] = scaled(scaleName(ch.name))
	case "color", "fill", "stroke":
		prop := ch.name
		if ch.name == "color" {
			prop = c.mark.colorProp()
		}
		update[prop] = scaled("color")
	case "size", "opacity", "shape":
		update[ch.name] = scaled(ch.name)
	case "text":
		update["text"] = map[string]any{"field": ch.output}
	case "tooltip", "detail":
	default:
		return &UnsupportedError{Construct: fmt.Sprintf("encoding channel '%s'", ch.name)}
	}
	return nil
}

func (c *compilation) bandScale(name string) bool {
	for _, s := range c.scales {
		scale := s.(map[string]any)
		if scale["name"] == name {
			return scale["type"] == "band"
		}
	}
	return false
}

// encodeBaseline anchors bars and areas at zero on their quantitative axis.
func (c *compilation) encodeBaseline(update map[string]any) {
	if c.mark.typ != "bar" && c.mark.vegaType != "area" {
		return
	}
	_, hasX2 := update["x2"]
	_, hasY2 := update["y2"]
	_, hasWidth := update["width"]
	_, hasHeight := update["height"]
	switch {
	case hasWidth && !hasY2 && c.hasScale("y"):
		update["y2"] = map[string]any{"scale": "y", "value": 0}
	case hasHeight && !hasX2 && c.hasScale("x"):
		update["x2"] = map[string]any{"scale": "x", "value": 0}
	case !hasWidth && !hasHeight && !hasY2 && c.hasScale("y"):
		update["y2"] = map[string]any{"scale": "y", "value": 0}
	}
}

// tooltipSignal builds the tooltip expression from the tooltip channel or
// the mark's tooltip property. The empty string means no tooltip.
func (c *compilation) tooltipSignal() string {
	if ch, ok := c.channels["tooltip"]; ok && ch.field != "" {
		return objectSignal([]*channel{ch})
	}
	switch tip := c.mark.tooltip.(type) {
	case bool:
		if tip {
			return c.encodingSignal()
		}
	case map[string]any:
		switch tip["content"] {
		case "data":
			return "datum"
		case "encoding", nil:
			return c.encodingSignal()
		}
	}
	return ""
}

// encodingSignal lists the fields of encoded channels, or the whole datum
// when nothing is encoded.
func (c *compilation) encodingSignal() string {
	var chans []*channel
	seen := make(map[string]bool)
	for _, ch := range c.ordered() {
		if ch.output == "" || seen[ch.output] || ch.name == "tooltip" {
			continue
		}
		seen[ch.output] = true
		chans = append(chans, ch)
	}
	if len(chans) == 0 {
		return "datum"
	}
	return objectSignal(chans)
}

func objectSignal(chans []*channel) string {
	parts := make([]string, len(chans))
	for i, ch := range chans {
		title, ok := ch.defaultTitle().(string)
		if !ok || title == "" {
			title = ch.output
		}
		parts[i] = fmt.Sprintf("%s: %s", literal(title), accessor(ch.output))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
