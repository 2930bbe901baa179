package store

import (
	"context"

	"github.com/vk/vegapanel/internal/panel"
)

// Store persists panel values and the event log.
type Store interface {
	SavePanel(ctx context.Context, id, title string, v panel.SpecValue) error
	LoadPanel(ctx context.Context, id string) (*Record, error)
	ListPanels(ctx context.Context) ([]*Record, error)
	Event(level, code, msg string, meta map[string]any)
	Events(ctx context.Context, limit int) ([]EventRecord, error)
	Close() error
}

var _ Store = (*DB)(nil)
