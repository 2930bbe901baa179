// Package runtime builds the render plan of a panel: it compiles a
// specification against the host's dataset names, parses the result into
// an executable plan, and binds host tables to live chart views.
//
// Building never fails. Anything that goes wrong yields a dead plan that
// paints the invalid specification marker.
package runtime

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/aclements/go-gg/table"
	"github.com/vk/vegapanel/internal/compiler"
	"github.com/vk/vegapanel/internal/engine"
	"github.com/vk/vegapanel/internal/plan"
	"github.com/vk/vegapanel/internal/registry"
	"github.com/vk/vegapanel/internal/tooltip"
)

// Spec is a classified specification document.
type Spec struct {
	Doc map[string]any
	Tag registry.Tag
}

// ErrNullSpec is the cause of the dead plan built from no specification.
var ErrNullSpec = errors.New("specification is null")

// compile is swapped in tests.
var compile = compiler.Compile

// ParsePlan parses a compiled low-level document with the render config.
func ParsePlan(vg map[string]any, cfg map[string]any) (*plan.Plan, error) {
	return plan.Parse(vg, cfg)
}

// RenderPlan is the outcome of Build: either a working plan or the dead
// sentinel.
type RenderPlan struct {
	plan    *plan.Plan
	tooltip *tooltip.Handler
	dark    bool
	err     error
}

// Dead reports whether the plan is the fallback sentinel.
func (rp *RenderPlan) Dead() bool { return rp.plan == nil }

// Err returns the cause of a dead plan.
func (rp *RenderPlan) Err() error { return rp.err }

// Plan returns the executable plan, nil when dead.
func (rp *RenderPlan) Plan() *plan.Plan { return rp.plan }

// Build never panics and never returns nil.
func Build(spec *Spec, cfg Config, datasetNames []string) (rp *RenderPlan) {
	logger := slog.Default()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("building render plan panicked: %v", r)
			logger.Error("Render plan is dead.", "error", err)
			rp = &RenderPlan{dark: cfg.Dark, err: err}
		}
	}()

	p, err := build(spec, cfg, datasetNames)
	if err != nil {
		logger.Error("Render plan is dead.", "error", err)
		return &RenderPlan{dark: cfg.Dark, err: err}
	}
	return &RenderPlan{
		plan:    p,
		tooltip: tooltip.New(tooltip.ThemeFor(cfg.Dark)),
		dark:    cfg.Dark,
	}
}

func build(spec *Spec, cfg Config, datasetNames []string) (*plan.Plan, error) {
	if spec == nil || spec.Doc == nil {
		return nil, ErrNullSpec
	}
	doc := cfg.Document()
	vg, err := compile(spec.Doc, spec.Tag, datasetNames, doc)
	if err != nil {
		return nil, fmt.Errorf("compiling %s specification: %w", spec.Tag, err)
	}
	p, err := ParsePlan(vg, doc)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// NewView creates a chart view of the plan on s. A dead plan yields a view
// that only paints the invalid specification marker.
func (rp *RenderPlan) NewView(s engine.Surface, logger *slog.Logger) engine.View {
	if rp.Dead() {
		return engine.DeadView(s, rp.dark)
	}
	return engine.New(rp.plan, s, engine.Options{
		Tooltip: rp.tooltip,
		Dark:    rp.dark,
		Logger:  logger,
	})
}

// Bind pushes every table into view by name, then resizes it and starts
// an asynchronous render. Tables the plan does not declare are skipped; they
// are expected while datasets are added or removed. The returned channel
// yields the render result and may be ignored.
func (rp *RenderPlan) Bind(view engine.View, tables map[string]*table.Table) <-chan error {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_ = view.Data(name, tables[name])
	}
	view.Resize()
	return view.RunAsync()
}
