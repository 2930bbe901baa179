package panel

import (
	"fmt"

	"github.com/vk/vegapanel/internal/augment"
	"github.com/vk/vegapanel/internal/registry"
	"github.com/vk/vegapanel/internal/specparse"
)

// Editor re-derives the stored value on every text change and serves the
// context-aware schemas of the editing widget.
type Editor struct {
	parser  *specparse.Parser
	schemas *augment.Cache
}

// NewEditor creates an Editor validating with the process-wide validators.
func NewEditor() *Editor {
	return &Editor{
		parser:  specparse.New(registry.Default()),
		schemas: augment.NewCache(),
	}
}

// OnNewText parses text and returns the value to store along with the
// diagnostics to show. The value's parsed specification is nil when the
// text is rejected.
func (e *Editor) OnNewText(text string) (SpecValue, []string) {
	res := e.parser.Parse(text)
	v := derive(res, text)
	if res.OK() && v.ParsedSpec == nil {
		return v, []string{"specification cannot be serialized"}
	}
	if res.Errors == nil {
		return v, []string{}
	}
	return v, res.Errors
}

// Mount runs the editor over the current value, so diagnostics and the
// parsed specification match the text from the start.
func (e *Editor) Mount(current SpecValue) (SpecValue, []string) {
	return e.OnNewText(current.Text)
}

// Schemas returns the schema associations for the host context.
func (e *Editor) Schemas(snap augment.Snapshot) ([]augment.SchemaAssociation, error) {
	set, err := e.schemas.Get(snap)
	if err != nil {
		return nil, fmt.Errorf("augmenting schemas: %w", err)
	}
	return set.Associations(), nil
}
