package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/vk/vegapanel/internal/ctxlog"
	"github.com/vk/vegapanel/internal/engine"
	"github.com/vk/vegapanel/internal/frame"
	"github.com/vk/vegapanel/internal/panel"
	"github.com/vk/vegapanel/internal/store"
)

const maxBody = 8 << 20

// panelView is the API representation of a panel.
type panelView struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Value   panel.SpecValue `json:"value"`
	Errors  []string        `json:"errors"`
	Dark    bool            `json:"dark"`
	HasData bool            `json:"hasData"`
	Dead    bool            `json:"dead"`
}

func view(p *panel.Panel) panelView {
	return panelView{
		ID:      p.ID,
		Title:   p.Title,
		Value:   p.Value(),
		Errors:  p.Errors(),
		Dark:    p.Dark(),
		HasData: p.HasData(),
		Dead:    p.Plan().Dead(),
	}
}

// Handler returns the service's HTTP routes.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.healthHandler)
	mux.HandleFunc("GET /api/panels", a.listPanels)
	mux.HandleFunc("GET /api/panels/{id}", a.getPanel)
	mux.HandleFunc("PUT /api/panels/{id}/spec", a.putSpec)
	mux.HandleFunc("PUT /api/panels/{id}/theme", a.putTheme)
	mux.HandleFunc("GET /api/panels/{id}/schemas", a.getSchemas)
	mux.HandleFunc("PUT /api/panels/{id}/data", a.putData)
	mux.HandleFunc("GET /api/panels/{id}/render", a.render)
	mux.HandleFunc("GET /api/events", a.listEvents)
	mux.Handle("/socket.io/", a.live.Handler())
	return mux
}

func (a *App) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Debug("Writing response failed.", "error", err)
	}
}

func (a *App) writeError(w http.ResponseWriter, status int, err error) {
	a.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (a *App) lookup(w http.ResponseWriter, r *http.Request) (*panel.Panel, bool) {
	id := r.PathValue("id")
	p, ok := a.Panel(id)
	if !ok {
		a.writeError(w, http.StatusNotFound, fmt.Errorf("unknown panel '%s'", id))
	}
	return p, ok
}

func (a *App) listPanels(w http.ResponseWriter, r *http.Request) {
	panels := a.Panels()
	out := make([]panelView, 0, len(panels))
	for _, p := range panels {
		out = append(out, view(p))
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *App) getPanel(w http.ResponseWriter, r *http.Request) {
	if p, ok := a.lookup(w, r); ok {
		a.writeJSON(w, http.StatusOK, view(p))
	}
}

func (a *App) putSpec(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	v, errs, err := a.SetText(r.Context(), r.PathValue("id"), string(raw))
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"value": v, "errors": errs})
}

func (a *App) putTheme(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Dark bool `json:"dark"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&body); err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Errorf("decoding theme: %w", err))
		return
	}
	if err := a.SetDark(r.PathValue("id"), body.Dark); err != nil {
		a.writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) getSchemas(w http.ResponseWriter, r *http.Request) {
	p, ok := a.lookup(w, r)
	if !ok {
		return
	}
	assocs, err := a.editor.Schemas(frame.Snapshot(p.Frames()))
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.writeJSON(w, http.StatusOK, assocs)
}

func (a *App) putData(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	frames, err := frame.Decode(raw)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.SetFrames(r.Context(), r.PathValue("id"), frames); err != nil {
		a.writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// bufferSurface keeps the last paint of a one-shot render.
type bufferSurface struct {
	width, height int

	mu  sync.Mutex
	svg []byte
}

func (s *bufferSurface) Size() (int, int) { return s.width, s.height }

func (s *bufferSurface) Paint(svg []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.svg = bytes.Clone(svg)
}

func (s *bufferSurface) last() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.svg
}

func (a *App) render(w http.ResponseWriter, r *http.Request) {
	p, ok := a.lookup(w, r)
	if !ok {
		return
	}
	s := &bufferSurface{width: dimension(r, "width"), height: dimension(r, "height")}
	host := panel.NewHost(ctxlog.With(r.Context(), "panel", p.ID))
	host.Mount(s)
	defer host.Unmount()

	// A failed render still paints a marker, which is what the viewer gets.
	if err := <-host.Show(p); err != nil {
		ctxlog.FromContext(r.Context()).Debug("Render returned an error.", "panel", p.ID, "error", err)
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(s.last())
}

// dimension reads a size query parameter. Missing or malformed values are 0
// and large ones are capped at engine.MaxSize.
func dimension(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return engine.ClampSize(n)
}

func (a *App) listEvents(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}
	events, err := a.db.Events(r.Context(), limit)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if events == nil {
		events = []store.EventRecord{}
	}
	a.writeJSON(w, http.StatusOK, events)
}
