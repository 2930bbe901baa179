package registry

import (
	"fmt"
)

// Tag selects one of the two supported grammars.
type Tag int

const (
	// VegaLite is the high-level grammar.
	VegaLite Tag = iota + 1
	// Vega is the low-level grammar that VegaLite compiles into.
	Vega
)

const (
	VegaLiteSchemaID = "https://vega.github.io/schema/vega-lite/v5.json"
	VegaSchemaID     = "https://vega.github.io/schema/vega/v5.json"
)

// Tags lists every grammar in a stable order.
func Tags() []Tag {
	return []Tag{VegaLite, Vega}
}

// String returns the grammar's mode name as stored in panel options.
func (t Tag) String() string {
	switch t {
	case VegaLite:
		return "vega-lite"
	case Vega:
		return "vega"
	default:
		return fmt.Sprintf("Tag(%d)", int(t))
	}
}

// ParseTag converts a stored mode name back into a Tag.
func ParseTag(s string) (Tag, error) {
	switch s {
	case "vega-lite":
		return VegaLite, nil
	case "vega":
		return Vega, nil
	default:
		return 0, fmt.Errorf("unknown grammar mode '%s': must be 'vega-lite' or 'vega'", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Tag) MarshalText() ([]byte, error) {
	switch t {
	case VegaLite, Vega:
		return []byte(t.String()), nil
	default:
		return nil, fmt.Errorf("cannot marshal invalid grammar %s", t)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tag) UnmarshalText(text []byte) error {
	parsed, err := ParseTag(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// SchemaID returns the identifying URI of a grammar.
func SchemaID(t Tag) string {
	switch t {
	case VegaLite:
		return VegaLiteSchemaID
	case Vega:
		return VegaSchemaID
	default:
		panic("unreachable")
	}
}
