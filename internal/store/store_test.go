package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/vegapanel/internal/panel"
	"github.com/vk/vegapanel/internal/registry"
)

func open(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "vegapanel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPanels(t *testing.T) {
	ctx := context.Background()
	db := open(t)

	_, err := db.LoadPanel(ctx, "1")
	require.ErrorIs(t, err, ErrNotFound)

	v := panel.SpecValue{Text: "{}", ParsedSpec: &panel.ParsedSpec{Text: "{}", Mode: registry.Vega}}
	require.NoError(t, db.SavePanel(ctx, "1", "First", v))
	require.NoError(t, db.SavePanel(ctx, "2", "Second", panel.SpecValue{Text: "{"}))

	rec, err := db.LoadPanel(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "First", rec.Title)
	assert.Equal(t, v, rec.Value)
	assert.False(t, rec.UpdatedAt.IsZero())

	updated := panel.SpecValue{Text: "{ }"}
	require.NoError(t, db.SavePanel(ctx, "1", "Renamed", updated))
	rec, err = db.LoadPanel(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", rec.Title)
	assert.Nil(t, rec.Value.ParsedSpec)

	all, err := db.ListPanels(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "1", all[0].ID)
	assert.Equal(t, "2", all[1].ID)
}

func TestEvents(t *testing.T) {
	db := open(t)
	db.Event("info", "spec_saved", "Specification saved.", map[string]any{"panel": "1"})
	db.Event("error", "plan_dead", "Render plan is dead.", nil)

	events, err := db.Events(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "plan_dead", events[0].Code)
	assert.Nil(t, events[0].Meta)
	assert.Equal(t, map[string]any{"panel": "1"}, events[1].Meta)
}
