package engine

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/aclements/go-gg/gg"
	"github.com/aclements/go-gg/table"
	"github.com/vk/vegapanel/internal/plan"
	"github.com/vk/vegapanel/internal/tooltip"
)

// Column names of a mark table.
const (
	colX       = "x"
	colY       = "y"
	colY2      = "y2"
	colColor   = "color"
	colSize    = "size"
	colOpacity = "opacity"
	colText    = "text"
	colTooltip = "tooltip"
	colSegment = "segment"
)

type plotterFunc func(*gg.Plot)

func (f plotterFunc) Apply(p *gg.Plot) { f(p) }

// layer is one mark ready to be added to the plot.
type layer struct {
	data     *table.Table
	plotters []gg.Plotter
}

type renderer struct {
	plan    *plan.Plan
	tooltip *tooltip.Handler
	rows    map[string][]map[string]any
}

// errNoData reports that no mark has anything to draw.
var errNoData = errors.New("no data to draw")

func (r *renderer) render(width, height int) ([]byte, error) {
	var layers []*layer
	for _, m := range r.plan.Marks {
		l, err := r.layer(m)
		if err != nil {
			return nil, err
		}
		if l != nil {
			layers = append(layers, l)
		}
	}
	if len(layers) == 0 {
		return nil, errNoData
	}

	p := gg.NewPlot(layers[0].data)
	r.scales(p)
	for _, l := range layers {
		p.Save().SetData(l.data)
		p.Add(l.plotters...)
		p.Restore()
	}
	if r.plan.Title != "" {
		p.Add(gg.Title(r.plan.Title))
	}
	for aes, label := range r.axisLabels() {
		p.Add(gg.AxisLabel(aes, label))
	}

	var buf bytes.Buffer
	if err := p.WriteSVG(&buf, width, height); err != nil {
		return nil, fmt.Errorf("writing svg: %w", err)
	}
	return buf.Bytes(), nil
}

// scales binds the plan's positional scales to the plot aesthetics.
func (r *renderer) scales(p *gg.Plot) {
	for _, aes := range []string{colX, colY} {
		s := r.positional(aes)
		switch {
		case s == nil:
		case s.Discrete():
			p.SetScale(aes, gg.NewOrdinalScale())
		case s.Zero:
			p.SetScale(aes, gg.NewLinearScaler().Include(0))
		}
	}
}

// positional returns the scale the first mark encoding aes uses.
func (r *renderer) positional(aes string) *plan.Scale {
	for _, m := range r.plan.Marks {
		if ref := m.Encode[aes]; ref != nil && ref.Scale != "" {
			s, _ := r.plan.Scale(ref.Scale)
			return s
		}
	}
	return nil
}

// axisLabels names the x and y axes after the first encoded field, then
// after the titles of the plan's axes.
func (r *renderer) axisLabels() map[string]string {
	labels := make(map[string]string)
	for _, aes := range []string{colX, colY} {
		for _, m := range r.plan.Marks {
			if ref := m.Encode[aes]; ref != nil && ref.Field != "" {
				labels[aes] = ref.Field
				break
			}
		}
	}
	for _, a := range r.plan.Axes {
		if a.Title == "" {
			continue
		}
		switch a.Orient {
		case "bottom", "top":
			labels[colX] = a.Title
		case "left", "right":
			labels[colY] = a.Title
		}
	}
	return labels
}

// layer builds the table and gg layers of m. It returns nil for a mark
// without rows.
func (r *renderer) layer(m *plan.Mark) (*layer, error) {
	rows := r.rows[m.From]
	if m.From == "" {
		rows = []map[string]any{{}}
	}
	if len(rows) == 0 {
		return nil, nil
	}

	b := &builder{renderer: r, mark: m, rows: rows}
	switch m.Type {
	case "symbol":
		b.position()
		b.optional(colColor, colorRef(m))
		b.optional(colSize, fieldRef(m.Encode["size"]))
		b.optional(colOpacity, fieldRef(m.Encode["opacity"]))
		b.plot(gg.LayerPoints{X: colX, Y: colY, Color: b.name(colColor), Size: b.name(colSize), Opacity: b.name(colOpacity)})
	case "line":
		b.position()
		b.optional(colColor, colorRef(m))
		b.plot(gg.LayerLines{X: colX, Y: colY, Color: b.name(colColor)})
	case "area":
		b.position()
		b.baseline()
		b.optional(colColor, colorRef(m))
		b.plot(gg.LayerArea{X: colX, Upper: colY, Lower: colY2, Fill: b.name(colColor)})
	case "rect", "rule":
		b.segments()
		b.optional(colColor, colorRef(m))
		b.plot(plotterFunc(func(p *gg.Plot) { p.GroupBy(colSegment) }))
		b.plot(gg.LayerPaths{X: colX, Y: colY, Color: b.name(colColor)})
	case "text":
		b.position()
		b.optional(colText, m.Encode["text"])
		if b.name(colText) == "" {
			return nil, nil
		}
		b.plot(gg.LayerTags{X: colX, Y: colY, Label: colText})
	default:
		return nil, fmt.Errorf("mark '%s': cannot draw type '%s'", m.Name, m.Type)
	}
	b.tooltips()
	return &layer{data: b.done(), plotters: b.plotters}, nil
}

func colorRef(m *plan.Mark) *plan.ValueRef {
	for _, prop := range []string{"fill", "stroke"} {
		if ref := fieldRef(m.Encode[prop]); ref != nil {
			return ref
		}
	}
	return nil
}

// fieldRef keeps only field encodings; gg has no constant styling.
func fieldRef(ref *plan.ValueRef) *plan.ValueRef {
	if ref == nil || ref.Field == "" {
		return nil
	}
	return ref
}

// builder assembles the columns of one mark table.
type builder struct {
	*renderer
	mark *plan.Mark
	rows []map[string]any

	names    []string
	columns  map[string]table.Slice
	plotters []gg.Plotter
}

func (b *builder) add(name string, col table.Slice) {
	if b.columns == nil {
		b.columns = make(map[string]table.Slice)
	}
	if _, ok := b.columns[name]; !ok {
		b.names = append(b.names, name)
	}
	b.columns[name] = col
}

func (b *builder) name(col string) string {
	if _, ok := b.columns[col]; ok {
		return col
	}
	return ""
}

func (b *builder) plot(p gg.Plotter) { b.plotters = append(b.plotters, p) }

func (b *builder) done() *table.Table {
	tb := new(table.Builder)
	for _, name := range b.names {
		tb.Add(name, b.columns[name])
	}
	return tb.Done()
}

func (b *builder) discrete(ref *plan.ValueRef) bool {
	if ref == nil || ref.Scale == "" {
		return false
	}
	s, ok := b.plan.Scale(ref.Scale)
	return ok && s.Discrete()
}

func (b *builder) values(ref *plan.ValueRef) []any {
	out := make([]any, len(b.rows))
	if ref == nil {
		return out
	}
	for i, row := range b.rows {
		out[i] = resolve(ref, row)
	}
	return out
}

func (b *builder) position() {
	for _, aes := range []string{colX, colY} {
		ref := b.mark.Encode[aes]
		b.add(aes, column(b.values(ref), b.discrete(ref)))
	}
}

// baseline adds the lower bound of an area, zero unless y2 is encoded.
func (b *builder) baseline() {
	ref := b.mark.Encode["y2"]
	vals := b.values(ref)
	if ref == nil {
		for i := range vals {
			vals[i] = 0.0
		}
	}
	b.add(colY2, numberColumn(vals))
}

// segments draws each datum as a two point path from (x, y) to (x2, y2);
// a missing end coordinate repeats the start.
func (b *builder) segments() {
	enc := b.mark.Encode
	xs := b.values(enc["x"])
	ys := b.values(enc["y"])
	x2s, y2s := xs, ys
	if enc["x2"] != nil {
		x2s = b.values(enc["x2"])
	}
	if enc["y2"] != nil {
		y2s = b.values(enc["y2"])
	}

	n := len(b.rows)
	x, y := make([]any, 0, 2*n), make([]any, 0, 2*n)
	seg := make([]float64, 0, 2*n)
	for i := 0; i < n; i++ {
		x = append(x, xs[i], x2s[i])
		y = append(y, ys[i], y2s[i])
		seg = append(seg, float64(i), float64(i))
	}
	b.rows = doubled(b.rows)
	b.add(colX, column(x, b.discrete(enc["x"])))
	b.add(colY, column(y, b.discrete(enc["y"])))
	b.add(colSegment, seg)
}

// doubled repeats every row so row-wise columns line up with segments.
func doubled(rows []map[string]any) []map[string]any {
	out := make([]map[string]any, 0, 2*len(rows))
	for _, r := range rows {
		out = append(out, r, r)
	}
	return out
}

func (b *builder) optional(col string, ref *plan.ValueRef) {
	if ref == nil {
		return
	}
	vals := b.values(ref)
	if col == colText {
		b.add(col, stringColumn(vals))
		return
	}
	b.add(col, column(vals, b.discrete(ref)))
}

func (b *builder) tooltips() {
	ref := b.mark.Encode["tooltip"]
	if ref == nil || b.tooltip == nil {
		return
	}
	labels := make([]string, len(b.rows))
	for i, row := range b.rows {
		labels[i] = b.tooltip.Format(resolve(ref, row))
	}
	b.add(colTooltip, labels)
	b.plot(gg.LayerTooltips{X: colX, Y: colY, Label: colTooltip})
}

// resolve evaluates ref for datum. A signal that fails to evaluate is null.
func resolve(ref *plan.ValueRef, datum map[string]any) any {
	switch {
	case ref.Signal != nil:
		v, err := ref.Signal.Eval(datum)
		if err != nil {
			return nil
		}
		return normalize(v)
	case ref.Field != "":
		return normalize(datum[ref.Field])
	case ref.HasValue:
		return normalize(ref.Value)
	}
	return nil
}

// normalize maps Go numbers to float64, the number type of a datum.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	}
	return v
}
