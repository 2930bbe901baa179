package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/vegapanel/internal/config"
	"github.com/vk/vegapanel/internal/frame"
	"github.com/vk/vegapanel/internal/schema"
)

// translateSettings copies the singleton blocks into the model; a later
// file overrides an earlier one.
func (l *Loader) translateSettings(m *config.Model, f *schema.File) {
	if f.Server != nil {
		m.Server = config.Server{Address: f.Server.Address, Dark: f.Server.Dark}
	}
	if f.Storage != nil {
		m.Storage = config.Storage{Path: f.Storage.Path}
	}
	if f.Ingest != nil {
		m.Ingest = config.Ingest{URL: f.Ingest.URL, Prefix: f.Ingest.Prefix}
	}
}

// translatePanel converts a panel block into the agnostic model.
func (l *Loader) translatePanel(ctx context.Context, file string, p *schema.Panel) (*config.Panel, error) {
	if p.Spec != "" && p.SpecFile != "" {
		return nil, fmt.Errorf("panel '%s' sets both spec and spec_file", p.ID)
	}
	text := p.Spec
	if p.SpecFile != "" {
		path := p.SpecFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(filepath.Dir(file), path)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("panel '%s': reading spec_file: %w", p.ID, err)
		}
		text = string(raw)
	}

	out := &config.Panel{
		ID:     p.ID,
		Title:  p.Title,
		Text:   text,
		Dark:   p.Dark,
		Source: file,
	}
	for _, fb := range p.Frames {
		fr, err := l.translateFrame(ctx, fb)
		if err != nil {
			return nil, fmt.Errorf("panel '%s': %w", p.ID, err)
		}
		out.Frames = append(out.Frames, fr)
	}
	return out, nil
}

// translateFrame converts a frame block into a host data frame.
func (l *Loader) translateFrame(ctx context.Context, f *schema.Frame) (frame.Frame, error) {
	out := frame.Frame{RefID: f.RefID, Name: f.Name, Fields: make([]frame.Field, 0, len(f.Fields))}
	for _, fb := range f.Fields {
		field, err := NewConverter().Field(ctx, fb.Name, fb.Type, fb.Values)
		if err != nil {
			return frame.Frame{}, fmt.Errorf("frame '%s': %w", f.RefID, err)
		}
		out.Fields = append(out.Fields, field)
	}
	return out, nil
}
