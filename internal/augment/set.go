package augment

import (
	"log/slog"
	"sync"

	"github.com/vk/vegapanel/internal/registry"
)

// editorFileMatch is the file pattern every schema is associated with. The
// editor holds a single buffer, so both grammars share it.
var editorFileMatch = []string{"*.json"}

// SchemaAssociation tells the editor which schema applies to which buffer.
type SchemaAssociation struct {
	URI       string         `json:"uri"`
	FileMatch []string       `json:"fileMatch"`
	Schema    map[string]any `json:"schema"`
}

// Set is both grammars' schemas augmented for one snapshot.
type Set struct {
	Snapshot Snapshot
	schemas  map[registry.Tag]map[string]any
}

// NewSet augments both canonical schemas for a snapshot.
func NewSet(snap Snapshot) (*Set, error) {
	set := &Set{Snapshot: snap, schemas: make(map[registry.Tag]map[string]any, 2)}
	for _, t := range registry.Tags() {
		schema, err := Schema(t, registry.Canonical(t), snap)
		if err != nil {
			return nil, err
		}
		set.schemas[t] = schema
	}
	return set, nil
}

// Schema returns the augmented schema of one grammar.
func (s *Set) Schema(t registry.Tag) map[string]any {
	return s.schemas[t]
}

// Associations lists the schemas keyed by their identifying URI.
func (s *Set) Associations() []SchemaAssociation {
	out := make([]SchemaAssociation, 0, len(s.schemas))
	for _, t := range registry.Tags() {
		out = append(out, SchemaAssociation{
			URI:       registry.SchemaID(t),
			FileMatch: editorFileMatch,
			Schema:    s.schemas[t],
		})
	}
	return out
}

// Cache keeps the Set for the most recent snapshot. A new snapshot replaces
// the previous Set wholesale.
type Cache struct {
	mu  sync.Mutex
	key string
	set *Set
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Get returns the Set for a snapshot, recomputing it only when the snapshot
// key differs from the cached one.
func (c *Cache) Get(snap Snapshot) (*Set, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := snap.Key()
	if c.set != nil && c.key == key {
		return c.set, nil
	}

	slog.Debug("Recomputing augmented schemas.", "snapshot", key)
	set, err := NewSet(snap)
	if err != nil {
		return nil, err
	}
	c.key = key
	c.set = set
	return set, nil
}
