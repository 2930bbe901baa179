package hcl

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vk/vegapanel/internal/ctxlog"
	"github.com/vk/vegapanel/internal/frame"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Converter turns cty values of static frames into the host wire values.
type Converter struct{}

// NewConverter creates a new HCL converter.
func NewConverter() *Converter {
	return &Converter{}
}

// Field converts a field's values. An empty type is implied from the first
// non-null element.
func (c *Converter) Field(ctx context.Context, name, typ string, values cty.Value) (frame.Field, error) {
	logger := ctxlog.FromContext(ctx)

	if values.IsNull() || !values.IsKnown() {
		return frame.Field{}, fmt.Errorf("field '%s': values must be known and not null", name)
	}
	ty := values.Type()
	if !ty.IsTupleType() && !ty.IsListType() && !ty.IsSetType() {
		return frame.Field{}, fmt.Errorf("field '%s': values must be a list, got %s", name, ty.FriendlyName())
	}

	ft := frame.FieldType(typ)
	if typ == "" {
		ft = impliedType(values)
		logger.Debug("Implied field type.", "field", name, "type", ft)
	}

	out := frame.Field{Name: name, Type: ft, Values: make([]any, 0, values.LengthInt())}
	for it := values.ElementIterator(); it.Next(); {
		_, el := it.Element()
		v, err := c.value(ft, el)
		if err != nil {
			return frame.Field{}, fmt.Errorf("field '%s': %w", name, err)
		}
		out.Values = append(out.Values, v)
	}
	return out, nil
}

func impliedType(values cty.Value) frame.FieldType {
	for it := values.ElementIterator(); it.Next(); {
		_, el := it.Element()
		if el.IsNull() {
			continue
		}
		switch el.Type() {
		case cty.Number:
			return frame.Number
		case cty.Bool:
			return frame.Boolean
		case cty.String:
			return frame.String
		}
		return frame.Other
	}
	return frame.Number
}

// value converts one element for a field of type ft.
func (c *Converter) value(ft frame.FieldType, el cty.Value) (any, error) {
	if el.IsNull() {
		return nil, nil
	}
	switch ft {
	case frame.Number:
		return c.number(el)
	case frame.Time:
		if el.Type() == cty.String {
			return el.AsString(), nil
		}
		return c.number(el)
	case frame.String, frame.Enum:
		s, err := convert.Convert(el, cty.String)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %s to string: %w", el.Type().FriendlyName(), err)
		}
		return s.AsString(), nil
	case frame.Boolean:
		var b bool
		v, err := convert.Convert(el, cty.Bool)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %s to bool: %w", el.Type().FriendlyName(), err)
		}
		if err := gocty.FromCtyValue(v, &b); err != nil {
			return nil, err
		}
		return b, nil
	}
	return plain(el)
}

func (c *Converter) number(el cty.Value) (any, error) {
	v, err := convert.Convert(el, cty.Number)
	if err != nil {
		return nil, fmt.Errorf("cannot convert %s to number: %w", el.Type().FriendlyName(), err)
	}
	var f float64
	if err := gocty.FromCtyValue(v, &f); err != nil {
		return nil, err
	}
	return f, nil
}

// plain converts any cty value to its JSON-equivalent Go value.
func plain(v cty.Value) (any, error) {
	raw, err := ctyjson.SimpleJSONValue{Value: v}.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("unsupported value of type %s: %w", v.Type().FriendlyName(), err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
