// Package plan parses a low-level Vega document into the executable render
// plan the chart engine runs.
//
// Only the subset of Vega needed to draw single-view charts is understood:
// data entries with inline values, named sources, derived sources and the
// filter, formula and aggregate transforms; scales; axes; legends; and
// symbol, line, area, rect, rule and text marks. Anything malformed in that
// subset is rejected with an error. Unknown top-level properties are ignored.
package plan

import (
	"github.com/vk/vegapanel/internal/expr"
)

// Plan is a parsed, validated Vega document.
type Plan struct {
	Width, Height float64
	// FitWidth and FitHeight size the view to its container.
	FitWidth, FitHeight bool
	Autosize            string
	Background          string
	Title               string
	Description         string

	// Data is in dependency order: every source precedes the entries
	// derived from it.
	Data    []*Data
	Scales  []*Scale
	Axes    []*Axis
	Legends []*Legend
	Marks   []*Mark

	Config map[string]any
}

// Dataset returns the named data entry.
func (p *Plan) Dataset(name string) (*Data, bool) {
	for _, d := range p.Data {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// Scale returns the named scale.
func (p *Plan) Scale(name string) (*Scale, bool) {
	for _, s := range p.Scales {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Roots returns the names of the data entries filled by the host: those with
// neither inline values, a url, nor a source.
func (p *Plan) Roots() []string {
	var names []string
	for _, d := range p.Data {
		if d.Root() {
			names = append(names, d.Name)
		}
	}
	return names
}

// Data is one named data entry.
type Data struct {
	Name   string
	Source string
	URL    string
	// Values holds inline rows; nil when the entry has none.
	Values     []map[string]any
	Transforms []*Transform
}

// Root reports whether the entry is filled at render time.
func (d *Data) Root() bool {
	return d.Source == "" && d.URL == "" && d.Values == nil
}

// Transform kinds.
const (
	Filter    = "filter"
	Formula   = "formula"
	Aggregate = "aggregate"
)

// Transform is one dataflow transform.
type Transform struct {
	Type string
	// Expr is set for filter and formula.
	Expr *expr.Expr
	// As is the output field of a formula.
	As string

	GroupBy []string
	Ops     []string
	// Fields holds the aggregated field per op; empty for count.
	Fields  []string
	Outputs []string
}

// Scale is a named scale.
type Scale struct {
	Name string
	Type string
	// Data and Fields name the domain source; DomainValues is an explicit
	// domain.
	Data         string
	Fields       []string
	DomainValues []any
	Range        any
	Zero         bool
	Nice         bool
	Padding      float64
}

// Discrete reports whether the scale maps categories.
func (s *Scale) Discrete() bool {
	switch s.Type {
	case "band", "point", "ordinal":
		return true
	}
	return false
}

// Axis is a guide for a positional scale.
type Axis struct {
	Orient string
	Scale  string
	Title  string
	Grid   bool
}

// Legend is a guide for a color, size, opacity or shape scale.
type Legend struct {
	// Channel is the visual property the legend explains.
	Channel string
	Scale   string
	Title   string
}

// Mark is one mark definition.
type Mark struct {
	Name string
	Type string
	From string
	// Encode merges the enter and update encoding sets, update winning.
	Encode map[string]*ValueRef
}

// ValueRef is the encoding of one visual property.
type ValueRef struct {
	Field    string
	Scale    string
	Value    any
	HasValue bool
	// Band is a fraction of a band scale's bandwidth.
	Band   float64
	Signal *expr.Expr
}
