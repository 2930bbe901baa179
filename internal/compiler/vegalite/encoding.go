package vegalite

import (
	"fmt"
	"strings"

	"github.com/vk/vegapanel/internal/jsonutil"
)

// channelOrder fixes the order channels are visited in, so output is stable.
var channelOrder = []string{"x", "y", "x2", "y2", "color", "fill", "stroke", "size", "opacity", "shape", "text", "tooltip", "detail"}

var knownChannels = func() map[string]bool {
	m := make(map[string]bool, len(channelOrder))
	for _, ch := range channelOrder {
		m[ch] = true
	}
	return m
}()

// channel is one decoded encoding channel definition.
type channel struct {
	name      string
	field     string
	typ       string
	aggregate string
	title     any
	hasTitle  bool
	value     any
	hasValue  bool
	timeUnit  string

	scale     map[string]any
	scaleOff  bool
	axis      map[string]any
	axisOff   bool
	legend    map[string]any
	legendOff bool
	// output is the field marks read, which differs from field when the
	// channel is aggregated.
	output string
}

func (ch *channel) quantitative() bool { return ch.typ == "quantitative" }
func (ch *channel) temporal() bool     { return ch.typ == "temporal" }
func (ch *channel) discrete() bool     { return ch.typ == "nominal" || ch.typ == "ordinal" }

func (c *compilation) compileEncoding() error {
	c.channels = make(map[string]*channel)
	raw, ok := c.spec["encoding"]
	if !ok {
		return nil
	}
	enc, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("vega-lite: 'encoding' must be an object, got %s", jsonutil.TypeName(raw))
	}

	for name, def := range enc {
		if !knownChannels[name] {
			return &UnsupportedError{Construct: fmt.Sprintf("encoding channel '%s'", name)}
		}
		if def == nil {
			continue
		}
		if list, ok := def.([]any); ok {
			// Multi-field tooltip and detail channels keep their first field.
			if len(list) == 0 {
				continue
			}
			def = list[0]
		}
		obj, ok := def.(map[string]any)
		if !ok {
			return fmt.Errorf("vega-lite: channel '%s' must be an object", name)
		}
		ch, err := decodeChannel(name, obj)
		if err != nil {
			return fmt.Errorf("vega-lite: channel '%s': %w", name, err)
		}
		c.channels[name] = ch
	}
	return nil
}

func decodeChannel(name string, def map[string]any) (*channel, error) {
	ch := &channel{name: name}
	if f, ok := def["field"]; ok {
		s, ok := f.(string)
		if !ok {
			return nil, &UnsupportedError{Construct: "repeat field references"}
		}
		ch.field = s
	}
	ch.typ, _ = def["type"].(string)
	ch.aggregate, _ = def["aggregate"].(string)
	ch.timeUnit, _ = def["timeUnit"].(string)
	ch.title, ch.hasTitle = def["title"]
	ch.value, ch.hasValue = def["value"]
	if b, ok := def["bin"]; ok && b != nil && b != false {
		return nil, &UnsupportedError{Construct: "binning"}
	}

	if ch.aggregate != "" && !supportedOp(ch.aggregate) {
		return nil, &UnsupportedError{Construct: fmt.Sprintf("aggregate op '%s'", ch.aggregate)}
	}
	if ch.field == "" && ch.aggregate != "count" && !ch.hasValue {
		if _, ok := def["datum"]; ok {
			return nil, &UnsupportedError{Construct: "datum channel definitions"}
		}
		return nil, fmt.Errorf("needs a field or a value")
	}

	if ch.typ == "" {
		switch {
		case ch.aggregate != "":
			ch.typ = "quantitative"
		case ch.timeUnit != "":
			ch.typ = "temporal"
		default:
			ch.typ = "nominal"
		}
	}

	if raw, ok := def["scale"]; ok {
		ch.scale, _ = raw.(map[string]any)
		ch.scaleOff = raw == nil
	}
	if raw, ok := def["axis"]; ok {
		ch.axis, _ = raw.(map[string]any)
		ch.axisOff = raw == nil
	}
	if raw, ok := def["legend"]; ok {
		ch.legend, _ = raw.(map[string]any)
		ch.legendOff = raw == nil
	}

	ch.output = ch.field
	switch {
	case ch.aggregate == "count":
		ch.output = "__count"
	case ch.aggregate != "":
		ch.output = ch.aggregate + "_" + ch.field
	}
	return ch, nil
}

// ordered returns the decoded channels in channelOrder.
func (c *compilation) ordered() []*channel {
	out := make([]*channel, 0, len(c.channels))
	for _, name := range channelOrder {
		if ch, ok := c.channels[name]; ok {
			out = append(out, ch)
		}
	}
	return out
}

// encodingAggregate builds the aggregate transform implied by aggregated
// channels, grouping by every other field-bearing channel.
func (c *compilation) encodingAggregate() map[string]any {
	var ops, fields, as []any
	groupby := []any{}
	seen := make(map[string]bool)
	for _, ch := range c.ordered() {
		if ch.aggregate != "" {
			ops = append(ops, ch.aggregate)
			fields = append(fields, nullable(ch.field))
			as = append(as, ch.output)
			continue
		}
		if ch.field != "" && !seen[ch.field] {
			seen[ch.field] = true
			groupby = append(groupby, ch.field)
		}
	}
	if len(ops) == 0 {
		return nil
	}
	return map[string]any{
		"type":    "aggregate",
		"groupby": groupby,
		"ops":     ops,
		"fields":  fields,
		"as":      as,
	}
}

// defaultTitle follows the Vega-Lite convention for guide titles.
func (ch *channel) defaultTitle() any {
	if ch.hasTitle {
		return ch.title
	}
	switch ch.aggregate {
	case "":
		return ch.field
	case "count":
		return "Count of Records"
	default:
		op := ch.aggregate
		return strings.ToUpper(op[:1]) + op[1:] + " of " + ch.field
	}
}

// scaleType picks the Vega scale type of a channel.
func (c *compilation) scaleType(ch *channel) string {
	if t, ok := ch.scale["type"].(string); ok {
		return t
	}
	switch ch.name {
	case "x", "y":
		switch {
		case ch.temporal():
			return "time"
		case ch.discrete():
			if c.mark.rectLike() {
				return "band"
			}
			return "point"
		default:
			return "linear"
		}
	case "shape":
		return "ordinal"
	default:
		if ch.discrete() {
			return "ordinal"
		}
		return "linear"
	}
}

// scaleName is the Vega scale a channel maps through.
func scaleName(channelName string) string {
	switch channelName {
	case "x", "x2":
		return "x"
	case "y", "y2":
		return "y"
	case "color", "fill", "stroke":
		return "color"
	default:
		return channelName
	}
}

func (c *compilation) compileScales() error {
	done := make(map[string]bool)
	for _, ch := range c.ordered() {
		if ch.field == "" && ch.aggregate == "" {
			continue
		}
		if ch.scaleOff || ch.name == "text" || ch.name == "tooltip" || ch.name == "detail" {
			continue
		}
		name := scaleName(ch.name)
		if done[name] || ch.name == "x2" || ch.name == "y2" {
			continue
		}
		if c.source == "" {
			return &UnsupportedError{Construct: "field encodings without a data source"}
		}
		done[name] = true

		typ := c.scaleType(ch)
		scale := map[string]any{"name": name, "type": typ}
		scale["domain"] = c.domain(ch, name)
		scale["range"] = rangeFor(ch.name, typ)

		switch typ {
		case "linear", "log", "pow", "sqrt", "symlog":
			if ch.name == "x" || ch.name == "y" {
				scale["zero"] = true
			}
			scale["nice"] = true
		case "time", "utc":
			scale["nice"] = true
		case "band":
			scale["padding"] = 0.1
		case "point":
			scale["padding"] = 0.5
		}
		for _, key := range []string{"zero", "nice", "padding", "reverse", "domain", "range", "scheme"} {
			if v, ok := ch.scale[key]; ok {
				scale[key] = v
			}
		}
		c.scales = append(c.scales, scale)
	}
	return nil
}

// domain spans the channel's field, and the paired secondary channel's
// field for ranged marks.
func (c *compilation) domain(ch *channel, scale string) map[string]any {
	var second *channel
	switch scale {
	case "x":
		second = c.channels["x2"]
	case "y":
		second = c.channels["y2"]
	}
	if second != nil && second.field != "" {
		return map[string]any{"data": c.source, "fields": []any{ch.output, second.output}}
	}
	return map[string]any{"data": c.source, "field": ch.output}
}

func rangeFor(channelName, typ string) any {
	switch channelName {
	case "x":
		return "width"
	case "y":
		return "height"
	case "color", "fill", "stroke":
		if typ == "ordinal" {
			return "category"
		}
		return "ramp"
	case "size":
		return []any{9.0, 361.0}
	case "opacity":
		return []any{0.3, 0.8}
	case "shape":
		return "symbol"
	default:
		return nil
	}
}

func (c *compilation) hasScale(name string) bool {
	for _, s := range c.scales {
		if s.(map[string]any)["name"] == name {
			return true
		}
	}
	return false
}

func (c *compilation) compileGuides() error {
	for _, pos := range []struct{ channel, orient string }{{"x", "bottom"}, {"y", "left"}} {
		ch, ok := c.channels[pos.channel]
		if !ok || ch.axisOff || !c.hasScale(pos.channel) {
			continue
		}
		axis := map[string]any{
			"orient": pos.orient,
			"scale":  pos.channel,
			"grid":   ch.quantitative(),
		}
		if title := ch.defaultTitle(); title != nil {
			axis["title"] = title
		}
		for _, key := range []string{"title", "format", "grid", "orient", "labelAngle", "tickCount"} {
			if v, ok := ch.axis[key]; ok {
				axis[key] = v
			}
		}
		c.axes = append(c.axes, axis)
	}

	legendDone := make(map[string]bool)
	for _, ch := range c.ordered() {
		var prop string
		switch ch.name {
		case "color", "fill":
			prop = c.mark.colorProp()
		case "stroke":
			prop = "stroke"
		case "size", "opacity", "shape":
			prop = ch.name
		default:
			continue
		}
		scale := scaleName(ch.name)
		if ch.legendOff || legendDone[scale] || !c.hasScale(scale) {
			continue
		}
		legendDone[scale] = true
		legend := map[string]any{prop: scale}
		if title := ch.defaultTitle(); title != nil {
			legend["title"] = title
		}
		for _, key := range []string{"title", "orient", "format"} {
			if v, ok := ch.legend[key]; ok {
				legend[key] = v
			}
		}
		c.legends = append(c.legends, legend)
	}
	return nil
}
