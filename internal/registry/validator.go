package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Violation is one failed schema constraint.
type Violation struct {
	// Path is the JSON pointer of the offending value in the document.
	Path    string
	Message string
}

func (v Violation) String() string {
	path := v.Path
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("%s: %s", path, v.Message)
}

// ValidationError lists the violations found in a document. Violations may
// be empty when the validator rejected a document without saying why.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "document does not match schema"
	}
	lines := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		lines[i] = v.String()
	}
	return fmt.Sprintf("document does not match schema:\n- %s", strings.Join(lines, "\n- "))
}

// Messages returns one display line per violation.
func (e *ValidationError) Messages() []string {
	out := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		out = append(out, v.String())
	}
	return out
}

// Validator is a compiled JSON Schema.
type Validator struct {
	id     string
	schema *jsonschema.Schema
}

// Compile compiles a schema tree under the given resource URI. The tree is
// serialized first, so later changes to it do not affect the validator.
func Compile(id string, schema map[string]any) (*Validator, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize schema %s: %w", id, err)
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	if err := c.AddResource(id, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource %s: %w", id, err)
	}
	compiled, err := c.Compile(id)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", id, err)
	}
	return &Validator{id: id, schema: compiled}, nil
}

// ID returns the resource URI the validator was compiled under.
func (v *Validator) ID() string {
	return v.id
}

// Validate checks a decoded JSON document. It returns nil, a
// *ValidationError, or an error for values that are not JSON at all.
func (v *Validator) Validate(doc any) error {
	err := v.schema.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("cannot validate document: %w", err)
	}
	return &ValidationError{Violations: leaves(ve, nil, map[Violation]struct{}{})}
}

// leaves flattens the validator's cause tree into its innermost failures,
// dropping duplicates and empty messages.
func leaves(ve *jsonschema.ValidationError, out []Violation, seen map[Violation]struct{}) []Violation {
	if len(ve.Causes) == 0 {
		if ve.Message == "" {
			return out
		}
		v := Violation{Path: ve.InstanceLocation, Message: ve.Message}
		if _, dup := seen[v]; dup {
			return out
		}
		seen[v] = struct{}{}
		return append(out, v)
	}
	for _, cause := range ve.Causes {
		out = leaves(cause, out, seen)
	}
	return out
}
