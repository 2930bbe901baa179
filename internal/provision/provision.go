// Package provision reads dashboard provisioning files: YAML documents
// listing panels with their specification text and static frames.
//
//	panels:
//	  - id: "1"
//	    title: Requests
//	    spec: |
//	      {"$schema": "https://vega.github.io/schema/vega-lite/v5.json", ...}
//	    frames:
//	      - refId: A
//	        fields:
//	          - {name: time, type: time, values: [1704067200000]}
package provision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vk/vegapanel/internal/config"
	"github.com/vk/vegapanel/internal/ctxlog"
	"github.com/vk/vegapanel/internal/frame"
	"gopkg.in/yaml.v3"
)

type document struct {
	Server *struct {
		Address string `yaml:"address"`
		Dark    bool   `yaml:"dark"`
	} `yaml:"server"`
	Storage *struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Ingest *struct {
		URL    string `yaml:"url"`
		Prefix string `yaml:"prefix"`
	} `yaml:"ingest"`
	Panels []panel `yaml:"panels"`
}

type panel struct {
	ID     string   `yaml:"id"`
	Title  string   `yaml:"title"`
	Spec   string   `yaml:"spec"`
	Dark   *bool    `yaml:"dark"`
	Frames []dframe `yaml:"frames"`
}

type dframe struct {
	RefID  string  `yaml:"refId"`
	Name   string  `yaml:"name"`
	Fields []field `yaml:"fields"`
}

type field struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Values []any  `yaml:"values"`
}

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

// NewLoader creates a provisioning loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Extensions implements config.Loader.
func (l *Loader) Extensions() []string {
	return []string{".yaml", ".yml"}
}

// Load reads every file; a file may hold several YAML documents.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	model := &config.Model{}
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read provisioning file %s: %w", path, err)
		}
		if err := l.decode(model, path, raw); err != nil {
			return nil, err
		}
	}
	logger.Debug("Provisioning loaded.", "files", len(paths), "panels", len(model.Panels))
	return model, nil
}

func (l *Loader) decode(m *config.Model, path string, raw []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	for {
		var doc document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to decode provisioning file %s: %w", path, err)
		}
		if doc.Server != nil {
			m.Server = config.Server{Address: doc.Server.Address, Dark: doc.Server.Dark}
		}
		if doc.Storage != nil {
			m.Storage = config.Storage{Path: doc.Storage.Path}
		}
		if doc.Ingest != nil {
			m.Ingest = config.Ingest{URL: doc.Ingest.URL, Prefix: doc.Ingest.Prefix}
		}
		for i, p := range doc.Panels {
			if p.ID == "" {
				return fmt.Errorf("in %s: panel %d has no id", path, i)
			}
			m.Panels = append(m.Panels, translate(path, p))
		}
	}
}

func translate(path string, p panel) *config.Panel {
	out := &config.Panel{ID: p.ID, Title: p.Title, Text: p.Spec, Dark: p.Dark, Source: path}
	for _, f := range p.Frames {
		fr := frame.Frame{RefID: f.RefID, Name: f.Name, Fields: make([]frame.Field, 0, len(f.Fields))}
		for _, fl := range f.Fields {
			fr.Fields = append(fr.Fields, frame.Field{
				Name:   fl.Name,
				Type:   frame.FieldType(fl.Type),
				Values: values(fl.Values),
			})
		}
		out.Frames = append(out.Frames, fr)
	}
	return out
}

// values widens YAML integers to the float64 the host wire format carries.
func values(in []any) []any {
	out := make([]any, len(in))
	for i, v := range in {
		switch n := v.(type) {
		case int:
			out[i] = float64(n)
		case int64:
			out[i] = float64(n)
		case uint64:
			out[i] = float64(n)
		default:
			out[i] = v
		}
	}
	return out
}
