package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/vk/vegapanel/internal/config"
	"github.com/vk/vegapanel/internal/ctxlog"
	"github.com/vk/vegapanel/internal/inmemorystore"
	"github.com/vk/vegapanel/internal/live"
	"github.com/vk/vegapanel/internal/panel"
	"github.com/vk/vegapanel/internal/store"
)

// App encapsulates the service's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	ctx    context.Context
	config *Config
	model  *config.Model

	db     store.Store
	editor *panel.Editor
	live   *live.Server

	mu     sync.RWMutex
	panels map[string]*panel.Panel

	httpServer   *http.Server
	healthServer *http.Server
	closeOnce    sync.Once
}

// NewApp is the constructor for the service. It loads the configuration,
// opens the store and creates the provisioned panels. A failure to load or
// open is a fatal startup error and panics.
func NewApp(outW io.Writer, cfg *Config, loaders ...config.Loader) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if len(loaders) == 0 {
		loaders = defaultLoaders()
	}
	model, err := loadModel(ctx, cfg, loaders)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Configuration loaded and translated into unified model.", "panels", len(model.Panels))

	a := &App{
		outW:   outW,
		logger: logger,
		ctx:    ctx,
		config: cfg,
		model:  model,
		editor: panel.NewEditor(),
		panels: make(map[string]*panel.Panel),
	}

	if model.Storage.Path != "" {
		db, err := store.Open(model.Storage.Path)
		if err != nil {
			panic(err)
		}
		a.db = db
		logger.Debug("Panel store opened.", "path", model.Storage.Path)
	} else {
		a.db = inmemorystore.New()
		logger.Warn("No storage configured, panel edits are kept in memory only.")
	}

	for _, pc := range model.Panels {
		if err := a.provision(ctx, pc); err != nil {
			panic(fmt.Errorf("failed to provision panel '%s': %w", pc.ID, err))
		}
	}
	a.live = live.NewServer(ctx, a)
	logger.Debug("Panels provisioned.", "count", len(a.panels))
	return a
}

// provision creates one configured panel. A stored value wins over the
// provisioned text.
func (a *App) provision(ctx context.Context, pc *config.Panel) error {
	value := panel.SpecValue{Text: pc.Text}
	if pc.Text == "" {
		value = panel.DefaultValue()
	}
	title := pc.Title

	stored := false
	rec, err := a.db.LoadPanel(ctx, pc.ID)
	switch {
	case err == nil:
		value, stored = rec.Value, true
		if title == "" {
			title = rec.Title
		}
	case !errors.Is(err, store.ErrNotFound):
		return err
	}

	p := panel.New(pc.ID, title, value, a.editor)
	dark := a.model.Server.Dark
	if pc.Dark != nil {
		dark = *pc.Dark
	}
	p.SetDark(dark)
	if len(pc.Frames) > 0 {
		p.SetFrames(pc.Frames)
	}
	if errs := p.Errors(); len(errs) > 0 {
		ctxlog.FromContext(ctx).Warn("Provisioned specification is invalid.", "panel", pc.ID, "errors", errs)
	}

	if !stored {
		if err := a.db.SavePanel(ctx, p.ID, p.Title, p.Value()); err != nil {
			return err
		}
	}

	a.mu.Lock()
	a.panels[p.ID] = p
	a.mu.Unlock()
	return nil
}

// Panel implements live.Panels.
func (a *App) Panel(id string) (*panel.Panel, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.panels[id]
	return p, ok
}

// Panels returns every panel ordered by id.
func (a *App) Panels() []*panel.Panel {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*panel.Panel, 0, len(a.panels))
	for _, p := range a.panels {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ensure returns the panel id, creating it with the default value when it
// does not exist.
func (a *App) ensure(id string) *panel.Panel {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p, ok := a.panels[id]; ok {
		return p
	}
	p := panel.New(id, "", panel.DefaultValue(), a.editor)
	p.SetDark(a.model.Server.Dark)
	a.panels[id] = p
	a.logger.Info("➕ Panel created.", "panel", id)
	return p
}

// SetText applies an editor change to a panel, persists the new value and
// refreshes its watchers.
func (a *App) SetText(ctx context.Context, id, text string) (panel.SpecValue, []string, error) {
	p := a.ensure(id)
	v, errs := p.SetText(text)
	logger := ctxlog.FromContext(ctx).With("panel", id)
	if err := a.db.SavePanel(ctx, id, p.Title, v); err != nil {
		return v, errs, fmt.Errorf("saving panel '%s': %w", id, err)
	}
	if v.ParsedSpec == nil {
		a.db.Event("warn", "spec_rejected", "Specification rejected.", map[string]any{"panel": id, "errors": errs})
	} else {
		a.db.Event("info", "spec_saved", "Specification saved.", map[string]any{"panel": id, "mode": v.ParsedSpec.Mode.String()})
	}
	logger.Debug("Specification changed.", "valid", v.ParsedSpec != nil, "errors", len(errs))
	if rp := p.Plan(); rp.Dead() {
		a.db.Event("error", "plan_dead", "Render plan is dead.", map[string]any{"panel": id, "cause": fmt.Sprint(rp.Err())})
	}
	a.live.Refresh(id)
	return v, errs, nil
}

// SetDark switches a panel's theme.
func (a *App) SetDark(id string, dark bool) error {
	p, ok := a.Panel(id)
	if !ok {
		return fmt.Errorf("unknown panel '%s'", id)
	}
	p.SetDark(dark)
	a.live.Refresh(id)
	return nil
}

// Close releases the live rooms and the store.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.live.Close()
		err = a.db.Close()
	})
	return err
}
