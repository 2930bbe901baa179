// Package schema holds the HCL block layout of the service configuration.
package schema

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Server is the `server` block.
type Server struct {
	Address string `hcl:"address,optional"`
	Dark    bool   `hcl:"dark,optional"`
}

// Storage is the `storage` block.
type Storage struct {
	Path string `hcl:"path"`
}

// Ingest is the `ingest` block.
type Ingest struct {
	URL    string `hcl:"url"`
	Prefix string `hcl:"prefix,optional"`
}

// Field is a `field` block of a static frame. Values is a tuple whose
// elements are converted to the field type.
type Field struct {
	Name   string    `hcl:"name,label"`
	Type   string    `hcl:"type,optional"`
	Values cty.Value `hcl:"values"`
}

// Frame is a `frame "<refId>"` block.
type Frame struct {
	RefID  string   `hcl:"ref_id,label"`
	Name   string   `hcl:"name,optional"`
	Fields []*Field `hcl:"field,block"`
}

// Panel is a `panel "<id>"` block. The specification text comes either
// inline from `spec` or from `spec_file`, relative to the declaring file.
type Panel struct {
	ID       string   `hcl:"id,label"`
	Title    string   `hcl:"title,optional"`
	Spec     string   `hcl:"spec,optional"`
	SpecFile string   `hcl:"spec_file,optional"`
	Dark     *bool    `hcl:"dark,optional"`
	Frames   []*Frame `hcl:"frame,block"`
}

// File is the top-level structure of a configuration file.
type File struct {
	Server  *Server  `hcl:"server,block"`
	Storage *Storage `hcl:"storage,block"`
	Ingest  *Ingest  `hcl:"ingest,block"`
	Panels  []*Panel `hcl:"panel,block"`
	Remain  hcl.Body `hcl:",remain"`
}
