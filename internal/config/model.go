package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vk/vegapanel/internal/frame"
)

// Model is the unified, format-agnostic representation of the service
// configuration and its provisioned panels.
type Model struct {
	Server  Server
	Storage Storage
	Ingest  Ingest
	Panels  []*Panel
}

// Server configures the HTTP listener.
type Server struct {
	Address string
	Dark    bool
}

// Storage configures the panel store.
type Storage struct {
	Path string
}

// Ingest configures the NATS data subscription. An empty URL disables it.
type Ingest struct {
	URL    string
	Prefix string
}

// Panel is a provisioned panel: its initial specification text and any
// static frames it starts with.
type Panel struct {
	ID     string
	Title  string
	Text   string
	Dark   *bool
	Frames []frame.Frame
	// Source is the file the panel was declared in.
	Source string
}

// Default values applied by Merge when no file sets them.
const (
	DefaultAddress = ":8080"
	DefaultPrefix  = "vegapanel.data"
)

// Merge combines models loaded from several files. Later scalar settings
// win; panels are unique by id.
func Merge(models ...*Model) (*Model, error) {
	out := &Model{
		Server: Server{Address: DefaultAddress},
		Ingest: Ingest{Prefix: DefaultPrefix},
	}
	seen := make(map[string]*Panel)
	var dups []string
	for _, m := range models {
		if m == nil {
			continue
		}
		if m.Server.Address != "" {
			out.Server.Address = m.Server.Address
		}
		out.Server.Dark = out.Server.Dark || m.Server.Dark
		if m.Storage.Path != "" {
			out.Storage.Path = m.Storage.Path
		}
		if m.Ingest.URL != "" {
			out.Ingest.URL = m.Ingest.URL
		}
		if m.Ingest.Prefix != "" {
			out.Ingest.Prefix = m.Ingest.Prefix
		}
		for _, p := range m.Panels {
			if prev, ok := seen[p.ID]; ok {
				dups = append(dups, fmt.Sprintf("panel '%s' declared in %s and %s", p.ID, prev.Source, p.Source))
				continue
			}
			seen[p.ID] = p
			out.Panels = append(out.Panels, p)
		}
	}
	if len(dups) > 0 {
		return nil, fmt.Errorf("configuration has duplicate panels:\n- %s", strings.Join(dups, "\n- "))
	}
	sort.SliceStable(out.Panels, func(i, j int) bool { return out.Panels[i].ID < out.Panels[j].ID })
	return out, nil
}
