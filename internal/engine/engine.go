package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aclements/go-gg/table"
	"github.com/vk/vegapanel/internal/plan"
	"github.com/vk/vegapanel/internal/tooltip"
)

const (
	defaultWidth  = 400
	defaultHeight = 300
)

// Surface is where a view paints. Size reports the container size that
// fit-sized plans adopt.
type Surface interface {
	Size() (width, height int)
	Paint(svg []byte)
}

// View is a live chart over one plan.
type View interface {
	// Data replaces the rows of a named data entry.
	Data(name string, t *table.Table) error
	// Run evaluates the dataflow and paints the surface.
	Run() error
	// RunAsync runs in the background; the channel yields Run's result.
	RunAsync() <-chan error
	// Resize picks up the surface's current size.
	Resize()
	// Finalize releases the view. Every later call is a no-op.
	Finalize()
}

// Options tune a view.
type Options struct {
	Tooltip *tooltip.Handler
	Dark    bool
	Logger  *slog.Logger
}

type view struct {
	plan    *plan.Plan
	surface Surface
	opts    Options
	logger  *slog.Logger

	mu            sync.Mutex
	tables        map[string]*table.Table
	width, height int
	finalized     bool
}

// New creates a view of p painting onto s.
func New(p *plan.Plan, s Surface, opts Options) View {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	v := &view{
		plan:    p,
		surface: s,
		opts:    opts,
		logger:  logger,
		tables:  make(map[string]*table.Table),
	}
	v.resize()
	return v
}

func (v *view) Data(name string, t *table.Table) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.finalized {
		return nil
	}
	if _, ok := v.plan.Dataset(name); !ok {
		return fmt.Errorf("unknown dataset '%s'", name)
	}
	if t == nil {
		return fmt.Errorf("dataset '%s': table is nil", name)
	}
	v.tables[name] = t
	return nil
}

func (v *view) Resize() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.finalized {
		return
	}
	v.resize()
}

// resize must be called with mu held.
func (v *view) resize() {
	w, h := 0, 0
	if v.surface != nil {
		w, h = v.surface.Size()
	}
	v.width = pick(v.plan.FitWidth, w, v.plan.Width, defaultWidth)
	v.height = pick(v.plan.FitHeight, h, v.plan.Height, defaultHeight)
}

func pick(fit bool, container int, own float64, fallback int) int {
	switch {
	case fit && container > 0:
		return ClampSize(container)
	case own > 0:
		return int(min(own, MaxSize))
	case container > 0:
		return ClampSize(container)
	}
	return fallback
}

// MaxSize is the largest width or height, in pixels, a view renders at.
const MaxSize = 8192

// ClampSize bounds a requested dimension to [0, MaxSize].
func ClampSize(n int) int {
	return max(0, min(n, MaxSize))
}

func (v *view) Run() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.finalized {
		return nil
	}

	out, err := v.draw()
	switch {
	case errors.Is(err, errNoData):
		out = Marker(v.width, v.height, v.opts.Dark, MarkerNoData)
		err = nil
	case err != nil:
		v.logger.Error("Render failed.", "error", err)
		out = Marker(v.width, v.height, v.opts.Dark, MarkerFailed)
	}
	if v.surface != nil {
		v.surface.Paint(out)
	}
	return err
}

// draw must be called with mu held.
func (v *view) draw() (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panicked: %v", r)
		}
	}()

	rows, err := evaluate(v.plan, v.tables, v.logger)
	if err != nil {
		return nil, err
	}
	r := &renderer{plan: v.plan, tooltip: v.opts.Tooltip, rows: rows}
	return r.render(v.width, v.height)
}

func (v *view) RunAsync() <-chan error { return async(v.Run) }

func (v *view) Finalize() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.finalized = true
	v.tables = nil
}

func async(run func() error) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- run()
		close(done)
	}()
	return done
}
