package inmemorystore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vk/vegapanel/internal/panel"
	"github.com/vk/vegapanel/internal/store"
)

// maxEvents bounds the event log.
const maxEvents = 1000

// Store keeps panels in a sync.Map keyed by id and a bounded event log.
type Store struct {
	panels sync.Map // Key: panel id, Value: store.Record

	mu     sync.Mutex
	events []store.EventRecord
}

// New creates a new, empty in-memory store.
func New() *Store {
	return &Store{}
}

var _ store.Store = (*Store)(nil)

// SavePanel inserts or replaces a panel.
func (s *Store) SavePanel(ctx context.Context, id, title string, v panel.SpecValue) error {
	s.panels.Store(id, store.Record{ID: id, Title: title, Value: v, UpdatedAt: time.Now()})
	return nil
}

// LoadPanel returns a stored panel or store.ErrNotFound.
func (s *Store) LoadPanel(ctx context.Context, id string) (*store.Record, error) {
	rec, ok := s.panels.Load(id)
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", store.ErrNotFound, id)
	}
	r := rec.(store.Record)
	return &r, nil
}

// ListPanels returns every panel ordered by id.
func (s *Store) ListPanels(ctx context.Context) ([]*store.Record, error) {
	var out []*store.Record
	s.panels.Range(func(_, v any) bool {
		r := v.(store.Record)
		out = append(out, &r)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Event appends to the log, dropping the oldest entry when full.
func (s *Store) Event(level, code, msg string, meta map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == maxEvents {
		s.events = s.events[1:]
	}
	s.events = append(s.events, store.EventRecord{Time: time.Now(), Level: level, Code: code, Msg: msg, Meta: meta})
}

// Events returns the most recent events, newest first.
func (s *Store) Events(ctx context.Context, limit int) ([]store.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := min(limit, len(s.events))
	out := make([]store.EventRecord, 0, n)
	for i := len(s.events) - 1; i >= len(s.events)-n; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
