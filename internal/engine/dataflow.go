package engine

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/aclements/go-gg/table"
	"github.com/aclements/go-moremath/stats"
	"github.com/vk/vegapanel/internal/plan"
)

// evaluate computes every data entry of p in dependency order. A table
// pushed for an entry replaces its own rows before its transforms run.
// Entries loaded from a url are not fetched and stay empty.
func evaluate(p *plan.Plan, tables map[string]*table.Table, logger *slog.Logger) (map[string][]map[string]any, error) {
	out := make(map[string][]map[string]any, len(p.Data))
	for _, d := range p.Data {
		var rows []map[string]any
		switch {
		case tables[d.Name] != nil:
			rows = tableRows(tables[d.Name])
		case d.Values != nil:
			rows = cloneRows(d.Values)
		case d.Source != "":
			rows = cloneRows(out[d.Source])
		case d.URL != "":
			logger.Debug("Data url is not loaded.", "data", d.Name, "url", d.URL)
		}

		for i, t := range d.Transforms {
			var err error
			rows, err = apply(t, rows, logger)
			if err != nil {
				return nil, fmt.Errorf("data '%s' transform %d: %w", d.Name, i, err)
			}
		}
		out[d.Name] = rows
	}
	return out, nil
}

func cloneRows(rows []map[string]any) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		c := make(map[string]any, len(r))
		for k, v := range r {
			c[k] = v
		}
		out[i] = c
	}
	return out
}

func apply(t *plan.Transform, rows []map[string]any, logger *slog.Logger) ([]map[string]any, error) {
	switch t.Type {
	case plan.Filter:
		kept := rows[:0]
		for _, r := range rows {
			ok, err := t.Expr.Test(r)
			if err != nil {
				// A predicate that cannot be evaluated for a datum rejects it.
				logger.Debug("Filter rejected datum.", "expr", t.Expr.String(), "error", err)
				continue
			}
			if ok {
				kept = append(kept, r)
			}
		}
		return kept, nil
	case plan.Formula:
		for _, r := range rows {
			v, err := t.Expr.Eval(r)
			if err != nil {
				logger.Debug("Formula produced null.", "expr", t.Expr.String(), "error", err)
				v = nil
			}
			r[t.As] = v
		}
		return rows, nil
	case plan.Aggregate:
		return aggregate(t, rows), nil
	default:
		return nil, fmt.Errorf("unsupported transform '%s'", t.Type)
	}
}

type group struct {
	key  map[string]any
	rows []map[string]any
}

// aggregate groups rows by t.GroupBy, keeping groups in order of first
// appearance, and emits one datum per group.
func aggregate(t *plan.Transform, rows []map[string]any) []map[string]any {
	var groups []*group
	index := make(map[string]*group)
	for _, r := range rows {
		key := make(map[string]any, len(t.GroupBy))
		vals := make([]any, len(t.GroupBy))
		for i, f := range t.GroupBy {
			key[f] = r[f]
			vals[i] = r[f]
		}
		raw, _ := json.Marshal(vals)
		g, ok := index[string(raw)]
		if !ok {
			g = &group{key: key}
			index[string(raw)] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, r)
	}

	out := make([]map[string]any, len(groups))
	for i, g := range groups {
		datum := g.key
		for j, op := range t.Ops {
			field := ""
			if j < len(t.Fields) {
				field = t.Fields[j]
			}
			datum[t.Outputs[j]] = measure(op, field, g.rows)
		}
		out[i] = datum
	}
	return out
}

// measure computes one aggregate op over the numeric values of field.
// Ops other than count yield null for a group without numbers.
func measure(op, field string, rows []map[string]any) any {
	if op == "count" {
		return float64(len(rows))
	}
	var xs []float64
	for _, r := range rows {
		if f, ok := r[field].(float64); ok && !math.IsNaN(f) {
			xs = append(xs, f)
		}
	}
	if len(xs) == 0 {
		if op == "sum" {
			return 0.0
		}
		return nil
	}
	switch op {
	case "sum":
		var sum float64
		for _, x := range xs {
			sum += x
		}
		return sum
	case "mean", "average":
		return stats.Mean(xs)
	case "median":
		sort.Float64s(xs)
		return stats.Sample{Xs: xs, Sorted: true}.Quantile(0.5)
	case "min":
		lo, _ := stats.Bounds(xs)
		return lo
	case "max":
		_, hi := stats.Bounds(xs)
		return hi
	}
	return nil
}
