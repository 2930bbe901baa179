package runtime

import (
	"encoding/json"
	"sync"

	"github.com/vk/vegapanel/internal/jsonutil"
	"github.com/vk/vegapanel/internal/registry"
)

// Source is the stored, normalized specification text and its grammar.
type Source struct {
	Text string
	Mode registry.Tag
}

// Spec decodes the source. Text that no longer decodes yields nil, which
// builds the dead plan.
func (s *Source) Spec() *Spec {
	if s == nil {
		return nil
	}
	doc, err := jsonutil.DecodeObject([]byte(s.Text))
	if err != nil {
		return nil
	}
	return &Spec{Doc: doc, Tag: s.Mode}
}

// Memo caches the render plan of one panel. The plan is rebuilt only when
// the source text, its mode, the theme or the content of the dataset names
// change.
type Memo struct {
	mu    sync.Mutex
	key   string
	plan  *RenderPlan
	built int
}

type memoKey struct {
	Null  bool     `json:"null"`
	Text  string   `json:"text"`
	Mode  int      `json:"mode"`
	Dark  bool     `json:"dark"`
	Names []string `json:"names"`
}

func keyOf(src *Source, cfg Config, names []string) string {
	if names == nil {
		names = []string{}
	}
	k := memoKey{Null: src == nil, Dark: cfg.Dark, Names: names}
	if src != nil {
		k.Text, k.Mode = src.Text, int(src.Mode)
	}
	raw, _ := json.Marshal(k)
	return string(raw)
}

// Get returns the plan for the inputs, building it when they changed.
func (m *Memo) Get(src *Source, cfg Config, names []string) *RenderPlan {
	key := keyOf(src, cfg, names)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.plan != nil && m.key == key {
		return m.plan
	}
	m.plan = Build(src.Spec(), cfg, names)
	m.key = key
	m.built++
	return m.plan
}

// Builds returns how many plans the memo has built.
func (m *Memo) Builds() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.built
}
