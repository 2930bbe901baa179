// Package panel holds the pieces of one dashboard panel: its stored
// option value, the editor that keeps that value in sync with the raw
// text, and the host adapter that owns the panel's live chart.
package panel

import (
	"github.com/vk/vegapanel/internal/registry"
	"github.com/vk/vegapanel/internal/runtime"
	"github.com/vk/vegapanel/internal/specparse"
)

// ParsedSpec is the last validated document, serialized, with its grammar.
type ParsedSpec struct {
	Text string       `json:"text"`
	Mode registry.Tag `json:"mode"`
}

// SpecValue is the stored option value of a panel. ParsedSpec is nil when
// Text does not validate.
type SpecValue struct {
	ParsedSpec *ParsedSpec `json:"parsedSpec"`
	Text       string      `json:"text"`
}

// Source returns the render source of the value, nil without a parsed
// specification.
func (v SpecValue) Source() *runtime.Source {
	if v.ParsedSpec == nil {
		return nil
	}
	return &runtime.Source{Text: v.ParsedSpec.Text, Mode: v.ParsedSpec.Mode}
}

// defaultText is a circle chart of some_value over time from dataset A.
const defaultText = `{
	"$schema": "https://vega.github.io/schema/vega-lite/v5.json",
	"data": {
		"name": "A"
	},
	"mark": {
		"type": "circle",
		"tooltip": {
			"content": "data"
		}
	},
	"width": "container",
	"height": "container",
	"encoding": {
		"x": {
			"field": "time",
			"type": "temporal"
		},
		"y": {
			"field": "some_value",
			"type": "quantitative"
		}
	}
}`

// DefaultValue is the value of a new panel.
func DefaultValue() SpecValue {
	return derive(specparse.Parse(defaultText), defaultText)
}

// derive builds the stored value of text from its parse result.
func derive(res specparse.Result, text string) SpecValue {
	v := SpecValue{Text: text}
	if !res.OK() {
		return v
	}
	normalized, err := specparse.Normalize(res)
	if err != nil {
		return v
	}
	v.ParsedSpec = &ParsedSpec{Text: normalized, Mode: res.Tag}
	return v
}
