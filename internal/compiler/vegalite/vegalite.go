// Package vegalite lowers Vega-Lite unit specifications to Vega.
//
// Only single-view specifications are lowered: one mark, its encoding
// channels, and the filter, calculate and aggregate transforms. View
// composition (layer, concat, facet, repeat) and parameters are rejected with
// an *UnsupportedError.
package vegalite

import (
	"fmt"
	"sort"

	"github.com/vk/vegapanel/internal/jsonutil"
	"github.com/vk/vegapanel/internal/registry"
)

// UnsupportedError reports a structurally valid construct the lowering does
// not handle.
type UnsupportedError struct {
	Construct string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("vega-lite: %s is not supported", e.Construct)
}

const (
	defaultWidth  = 200.0
	defaultHeight = 200.0
	defaultColor  = "#4c78a8"
)

// composite lists top-level properties of specifications that are not unit
// views.
var composite = []string{"layer", "hconcat", "vconcat", "concat", "facet", "repeat", "spec", "params", "selection"}

// Compile lowers a Vega-Lite document to Vega. The document is not modified.
// cfg is merged under the document's own config.
func Compile(spec map[string]any, cfg map[string]any) (map[string]any, error) {
	spec = jsonutil.CloneObject(spec)
	for _, key := range composite {
		if _, ok := spec[key]; ok {
			return nil, &UnsupportedError{Construct: fmt.Sprintf("'%s'", key)}
		}
	}

	c := &compilation{spec: spec, out: map[string]any{"$schema": registry.VegaSchemaID}}
	steps := []func() error{
		c.compileMark,
		c.compileDatasets,
		c.compileData,
		c.compileEncoding,
		c.compileTransforms,
		c.compileScales,
		c.compileGuides,
		c.compileMarks,
		c.compileView,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	c.compileConfig(cfg)
	return c.out, nil
}

// compilation carries the state of lowering one specification.
type compilation struct {
	spec map[string]any
	out  map[string]any

	mark     markDef
	data     []any
	source   string
	channels map[string]*channel
	// transforms are the Vega transforms applied to the main source.
	transforms []any
	scales     []any
	axes       []any
	legends    []any
}

func (c *compilation) addData(entry map[string]any) {
	c.data = append(c.data, entry)
}

func (c *compilation) hasData(name string) bool {
	for _, d := range c.data {
		if d.(map[string]any)["name"] == name {
			return true
		}
	}
	return false
}

// compileDatasets turns the top-level datasets mapping into named Vega data
// entries. An empty placeholder becomes a bare named entry that the host
// fills at render time.
func (c *compilation) compileDatasets() error {
	raw, ok := c.spec["datasets"]
	if !ok {
		return nil
	}
	datasets, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("vega-lite: 'datasets' must be an object, got %s", jsonutil.TypeName(raw))
	}

	names := make([]string, 0, len(datasets))
	for name := range datasets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := map[string]any{"name": name}
		if values := datasets[name]; !isEmptyObject(values) {
			entry["values"] = values
		}
		c.addData(entry)
	}
	return nil
}

func (c *compilation) compileView() error {
	width, autosize, err := viewSize(c.spec["width"], defaultWidth, 0)
	if err != nil {
		return fmt.Errorf("vega-lite: width: %w", err)
	}
	height, autosizeY, err := viewSize(c.spec["height"], defaultHeight, 1)
	if err != nil {
		return fmt.Errorf("vega-lite: height: %w", err)
	}
	c.out["width"] = width
	c.out["height"] = height

	switch {
	case autosize && autosizeY:
		c.out["autosize"] = map[string]any{"type": "fit", "contains": "padding"}
	case autosize:
		c.out["autosize"] = map[string]any{"type": "fit-x", "contains": "padding"}
	case autosizeY:
		c.out["autosize"] = map[string]any{"type": "fit-y", "contains": "padding"}
	}
	if v, ok := c.spec["autosize"]; ok {
		c.out["autosize"] = v
	}

	for _, key := range []string{"description", "background", "padding", "usermeta"} {
		if v, ok := c.spec[key]; ok {
			c.out[key] = v
		}
	}
	if title, ok := c.spec["title"]; ok {
		c.out["title"] = lowerTitle(title)
	}
	return nil
}

// viewSize resolves a width or height. "container" sizes the view to its
// container through the containerSize signal.
func viewSize(raw any, fallback float64, axis int) (any, bool, error) {
	switch v := raw.(type) {
	case nil:
		return fallback, false, nil
	case float64:
		return v, false, nil
	case string:
		if v != "container" {
			return nil, false, fmt.Errorf("unknown size '%s'", v)
		}
		return map[string]any{"signal": fmt.Sprintf("containerSize()[%d]", axis)}, true, nil
	case map[string]any:
		if _, ok := v["step"]; ok {
			return fallback, false, nil
		}
		return nil, false, fmt.Errorf("size object must have a 'step'")
	default:
		return nil, false, fmt.Errorf("unexpected %s", jsonutil.TypeName(raw))
	}
}

func lowerTitle(raw any) any {
	switch t := raw.(type) {
	case string, []any:
		return map[string]any{"text": t}
	default:
		return raw
	}
}

// compileConfig merges the render configuration with the document's own
// config, the document winning on conflicts.
func (c *compilation) compileConfig(cfg map[string]any) {
	merged := jsonutil.CloneObject(cfg)
	if own, ok := c.spec["config"].(map[string]any); ok {
		merged = MergeConfig(merged, own)
	}
	if len(merged) > 0 {
		c.out["config"] = merged
	}
}

// MergeConfig deep-merges override into base and returns base. Objects merge
// key by key; any other value in override replaces the one in base.
func MergeConfig(base, override map[string]any) map[string]any {
	if base == nil {
		base = map[string]any{}
	}
	for k, v := range override {
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := base[k].(map[string]any); ok {
				base[k] = MergeConfig(existing, sub)
				continue
			}
			base[k] = jsonutil.CloneObject(sub)
			continue
		}
		base[k] = jsonutil.Clone(v)
	}
	return base
}

func isEmptyObject(v any) bool {
	m, ok := v.(map[string]any)
	return ok && len(m) == 0
}
