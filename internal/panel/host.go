package panel

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aclements/go-gg/table"
	"github.com/vk/vegapanel/internal/ctxlog"
	"github.com/vk/vegapanel/internal/engine"
	"github.com/vk/vegapanel/internal/runtime"
)

// Host owns the live chart of one mounted panel. A nil Host and an
// unmounted Host ignore every call.
type Host struct {
	logger *slog.Logger

	mu      sync.Mutex
	surface engine.Surface
	plan    *runtime.RenderPlan
	view    engine.View
}

// NewHost creates an unmounted host logging through ctx's logger.
func NewHost(ctx context.Context) *Host {
	return &Host{logger: ctxlog.FromContext(ctx)}
}

// Mount binds the host to a surface.
func (h *Host) Mount(s engine.Surface) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.teardown()
	h.surface = s
}

// Mounted reports whether the host has a surface.
func (h *Host) Mounted() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.surface != nil
}

// Update pushes tables into the live view. The view is replaced when rp is
// not the plan it was created from.
func (h *Host) Update(rp *runtime.RenderPlan, tables map[string]*table.Table) <-chan error {
	if h == nil {
		return done(nil)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.surface == nil || rp == nil {
		return done(nil)
	}
	if h.view == nil || h.plan != rp {
		h.teardown()
		h.logger.Debug("Creating chart view.", "dead", rp.Dead())
		h.plan = rp
		h.view = rp.NewView(h.surface, h.logger)
	}
	return rp.Bind(h.view, tables)
}

// Show renders p: its chart, or the no data marker when the host gave the
// panel no frames.
func (h *Host) Show(p *Panel) <-chan error {
	if h == nil || p == nil {
		return done(nil)
	}
	if !p.HasData() {
		h.paintNoData(p.Dark())
		return done(nil)
	}
	tables, warnings := p.Tables()
	for _, w := range warnings {
		h.logger.Warn("Frame cannot be used.", "panel", p.ID, "reason", w)
	}
	return h.Update(p.Plan(), tables)
}

func (h *Host) paintNoData(dark bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.surface == nil {
		return
	}
	h.teardown()
	w, ht := h.surface.Size()
	h.surface.Paint(engine.Marker(w, ht, dark, engine.MarkerNoData))
}

// Resize forwards a container size change to the live view.
func (h *Host) Resize() <-chan error {
	if h == nil {
		return done(nil)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.view == nil {
		return done(nil)
	}
	h.view.Resize()
	return h.view.RunAsync()
}

// Unmount tears down the view and releases the surface.
func (h *Host) Unmount() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.teardown()
	h.surface = nil
}

// teardown must be called with mu held.
func (h *Host) teardown() {
	if h.view != nil {
		h.view.Finalize()
	}
	h.view = nil
	h.plan = nil
}

func done(err error) <-chan error {
	ch := make(chan error, 1)
	ch <- err
	close(ch)
	return ch
}
