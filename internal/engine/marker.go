package engine

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/aclements/go-gg/table"
	svg "github.com/ajstarks/svgo"
)

// Marker texts painted instead of a chart.
const (
	MarkerInvalid = "Invalid specification"
	MarkerNoData  = "No data"
	MarkerFailed  = "Render failed"
)

// markerColors returns the text and background colors of a marker.
func markerColors(dark bool) (text, background string) {
	if dark {
		return "#fff", "#333"
	}
	return "#000", "#fff"
}

// Marker draws a centered message over the whole surface.
func Marker(width, height int, dark bool, message string) []byte {
	if width <= 0 || height <= 0 {
		width, height = defaultWidth, defaultHeight
	}
	text, background := markerColors(dark)

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, "fill:"+background)
	canvas.Text(width/2, height/2, message,
		fmt.Sprintf("fill:%s;font-family:sans-serif;font-size:14px;text-anchor:middle;dominant-baseline:middle", text))
	canvas.End()
	return buf.Bytes()
}

// deadView stands in for a plan that could not be built. It only ever
// paints the invalid specification marker.
type deadView struct {
	surface Surface
	dark    bool

	mu        sync.Mutex
	finalized bool
}

// DeadView returns a View that paints the invalid specification marker.
func DeadView(s Surface, dark bool) View {
	return &deadView{surface: s, dark: dark}
}

func (v *deadView) Data(string, *table.Table) error { return nil }

func (v *deadView) Run() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.finalized || v.surface == nil {
		return nil
	}
	w, h := v.surface.Size()
	v.surface.Paint(Marker(w, h, v.dark, MarkerInvalid))
	return nil
}

func (v *deadView) RunAsync() <-chan error { return async(v.Run) }

func (v *deadView) Resize() {}

func (v *deadView) Finalize() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.finalized = true
}
