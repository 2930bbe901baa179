package panel

import (
	"sync"

	"github.com/aclements/go-gg/table"
	"github.com/vk/vegapanel/internal/frame"
	"github.com/vk/vegapanel/internal/runtime"
)

// Panel is one panel's state: its stored value, the host's frames and the
// theme. Its render plan is rebuilt only when one of those changes in a
// way the plan depends on.
type Panel struct {
	ID    string
	Title string

	editor *Editor

	mu     sync.Mutex
	value  SpecValue
	errors []string
	// lastGood is the most recent parsed specification seen, kept while the
	// text is being edited through invalid states.
	lastGood *runtime.Source
	frames   []frame.Frame
	dark     bool
	memo     runtime.Memo
}

// New creates a panel and runs the editor over its value.
func New(id, title string, value SpecValue, editor *Editor) *Panel {
	p := &Panel{ID: id, Title: title, editor: editor}
	p.setValue(editor.Mount(value))
	return p
}

func (p *Panel) setValue(v SpecValue, errs []string) {
	p.value = v
	p.errors = errs
	if src := v.Source(); src != nil {
		p.lastGood = src
	}
}

// SetText is the editor's change notification; it returns the diagnostics
// of the new text.
func (p *Panel) SetText(text string) (SpecValue, []string) {
	v, errs := p.editor.OnNewText(text)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setValue(v, errs)
	return v, errs
}

// Value returns the stored option value.
func (p *Panel) Value() SpecValue {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// Errors returns the diagnostics of the current text.
func (p *Panel) Errors() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.errors...)
}

// SetFrames replaces the host data.
func (p *Panel) SetFrames(frames []frame.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = frames
}

// Frames returns the host data.
func (p *Panel) Frames() []frame.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}

// HasData reports whether the host provided any frame.
func (p *Panel) HasData() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames) > 0
}

// SetDark switches the theme.
func (p *Panel) SetDark(dark bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dark = dark
}

// Dark reports the theme.
func (p *Panel) Dark() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dark
}

// Plan returns the render plan for the current state.
func (p *Panel) Plan() *runtime.RenderPlan {
	p.mu.Lock()
	defer p.mu.Unlock()
	src := p.value.Source()
	if src == nil {
		src = p.lastGood
	}
	return p.memo.Get(src, runtime.Config{Dark: p.dark}, frame.DatasetNames(p.frames))
}

// Tables converts the frames for the chart, with the conversion warnings.
func (p *Panel) Tables() (map[string]*table.Table, []string) {
	return frame.Tables(p.Frames())
}
