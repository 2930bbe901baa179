// Package live streams panel renders to watchers over socket.io.
//
// Watchers of one panel share a room. The first watcher mounts a chart
// host whose surface broadcasts every paint to the room; the last one
// leaving unmounts it.
package live

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/vk/vegapanel/internal/ctxlog"
	"github.com/vk/vegapanel/internal/panel"
)

// FrameEvent is the event name of a render broadcast.
const FrameEvent = "frame"

// Frame is one rendered chart sent to a room.
type Frame struct {
	ID     string `json:"id"`
	Panel  string `json:"panel"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	SVG    string `json:"svg"`
}

// Panels resolves panel ids.
type Panels interface {
	Panel(id string) (*panel.Panel, bool)
}

type emitter interface {
	emit(panelID string, f Frame)
}

// Hub tracks the rooms of watched panels.
type Hub struct {
	ctx    context.Context
	panels Panels
	out    emitter

	mu    sync.Mutex
	rooms map[string]*room
	ids   *ulid.MonotonicEntropy
}

type room struct {
	host    *panel.Host
	surface *surface
	viewers int
}

func newHub(ctx context.Context, panels Panels, out emitter) *Hub {
	return &Hub{
		ctx:    ctx,
		panels: panels,
		out:    out,
		rooms:  make(map[string]*room),
		ids:    ulid.Monotonic(rand.Reader, 0),
	}
}

func (h *Hub) nextID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), h.ids).String()
}

// Join adds a watcher of panelID with the given viewport.
func (h *Hub) Join(panelID string, width, height int) (<-chan error, error) {
	p, ok := h.panels.Panel(panelID)
	if !ok {
		return nil, fmt.Errorf("unknown panel '%s'", panelID)
	}
	h.mu.Lock()
	r, ok := h.rooms[panelID]
	if !ok {
		s := &surface{hub: h, panel: panelID}
		host := panel.NewHost(ctxlog.With(h.ctx, "panel", panelID))
		host.Mount(s)
		r = &room{host: host, surface: s}
		h.rooms[panelID] = r
		ctxlog.FromContext(h.ctx).Info("👀 Panel is being watched.", "panel", panelID)
	}
	r.viewers++
	r.surface.resize(width, height)
	h.mu.Unlock()
	return r.host.Show(p), nil
}

// Leave removes a watcher of panelID.
func (h *Hub) Leave(panelID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[panelID]
	if !ok {
		return
	}
	r.viewers--
	if r.viewers > 0 {
		return
	}
	r.host.Unmount()
	delete(h.rooms, panelID)
	ctxlog.FromContext(h.ctx).Info("Panel is no longer watched.", "panel", panelID)
}

// Resize changes the viewport of a watched panel.
func (h *Hub) Resize(panelID string, width, height int) <-chan error {
	r := h.room(panelID)
	if r == nil {
		return closed()
	}
	r.surface.resize(width, height)
	return r.host.Resize()
}

// Refresh re-renders a watched panel after its specification, data or
// theme changed.
func (h *Hub) Refresh(panelID string) <-chan error {
	r := h.room(panelID)
	p, ok := h.panels.Panel(panelID)
	if r == nil || !ok {
		return closed()
	}
	return r.host.Show(p)
}

// Watched reports the number of watchers of panelID.
func (h *Hub) Watched(panelID string) int {
	if r := h.room(panelID); r != nil {
		h.mu.Lock()
		defer h.mu.Unlock()
		return r.viewers
	}
	return 0
}

// Close unmounts every room.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, r := range h.rooms {
		r.host.Unmount()
		delete(h.rooms, id)
	}
}

func (h *Hub) room(panelID string) *room {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rooms[panelID]
}

// surface is the drawing target of one room.
type surface struct {
	hub   *Hub
	panel string

	mu            sync.Mutex
	width, height int
}

func (s *surface) resize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = width, height
}

func (s *surface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *surface) Paint(svg []byte) {
	w, h := s.Size()
	s.hub.out.emit(s.panel, Frame{
		ID:     s.hub.nextID(),
		Panel:  s.panel,
		Width:  w,
		Height: h,
		SVG:    string(svg),
	})
}

func closed() <-chan error {
	ch := make(chan error)
	close(ch)
	return ch
}
