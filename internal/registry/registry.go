package registry

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Registry maps each grammar to its compiled validator.
type Registry struct {
	validators map[Tag]*Validator
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		validators: make(map[Tag]*Validator),
	}
}

// Register installs the validator for a grammar. Registering the same grammar
// twice is a programmer error and panics.
func (r *Registry) Register(t Tag, v *Validator) {
	if _, exists := r.validators[t]; exists {
		panic(fmt.Sprintf("validator for grammar '%s' already registered", t))
	}
	slog.Debug("Registering grammar validator.", "grammar", t.String(), "id", v.ID())
	r.validators[t] = v
}

// Validator returns the compiled validator for a grammar.
func (r *Registry) Validator(t Tag) (*Validator, bool) {
	v, ok := r.validators[t]
	return v, ok
}

// Validate checks a document against the compiled validator of its grammar.
func (r *Registry) Validate(t Tag, doc any) error {
	v, ok := r.validators[t]
	if !ok {
		return fmt.Errorf("no validator registered for grammar '%s'", t)
	}
	return v.Validate(doc)
}

// Check verifies that every grammar has a validator compiled under its own
// identifier.
func (r *Registry) Check() error {
	var errs []string
	for _, t := range Tags() {
		v, ok := r.validators[t]
		if !ok {
			errs = append(errs, fmt.Sprintf("grammar '%s' has no compiled validator", t))
			continue
		}
		if v.ID() != SchemaID(t) {
			errs = append(errs, fmt.Sprintf("grammar '%s': validator compiled as '%s', expected '%s'", t, v.ID(), SchemaID(t)))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry holding the compiled canonical
// validators. The first call compiles them; a canonical schema that fails to
// compile panics.
func Default() *Registry {
	defaultOnce.Do(func() {
		reg := New()
		for _, t := range Tags() {
			v, err := Compile(SchemaID(t), Canonical(t))
			if err != nil {
				panic(fmt.Errorf("canonical %s schema does not compile: %w", t, err))
			}
			reg.Register(t, v)
		}
		defaultRegistry = reg
	})
	return defaultRegistry
}
