package expr

import (
	"math"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// functions is the expression function table, named as in Vega.
var functions = map[string]function.Function{
	"abs":   stdlib.AbsoluteFunc,
	"ceil":  stdlib.CeilFunc,
	"floor": stdlib.FloorFunc,
	"pow":   stdlib.PowFunc,
	"max":   stdlib.MaxFunc,
	"min":   stdlib.MinFunc,
	"upper": stdlib.UpperFunc,
	"lower": stdlib.LowerFunc,
	"trim":  stdlib.TrimSpaceFunc,

	"sqrt":     mathFunc(math.Sqrt),
	"exp":      mathFunc(math.Exp),
	"log":      mathFunc(math.Log),
	"round":    mathFunc(func(x float64) float64 { return math.Floor(x + 0.5) }),
	"length":   lengthFunc,
	"indexof":  indexOfFunc,
	"isValid":  isValidFunc,
	"toString": convertFunc(cty.String),
	"toNumber": convertFunc(cty.Number),
}

// Known reports whether name is a supported expression function.
func Known(name string) bool {
	_, ok := functions[name]
	return ok
}

func mathFunc(fn func(float64) float64) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{{Name: "num", Type: cty.Number}},
		Type:   function.StaticReturnType(cty.Number),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			x, _ := args[0].AsBigFloat().Float64()
			return numberVal(fn(x)), nil
		},
	})
}

var lengthFunc = function.New(&function.Spec{
	Params: []function.Parameter{{Name: "value", Type: cty.DynamicPseudoType}},
	Type:   function.StaticReturnType(cty.Number),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		if args[0].Type() == cty.String {
			return stdlib.Strlen(args[0])
		}
		return stdlib.Length(args[0])
	},
})

// indexOfFunc finds value in an array, or a substring in a string. It
// returns -1 when absent.
var indexOfFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "collection", Type: cty.DynamicPseudoType},
		{Name: "value", Type: cty.DynamicPseudoType, AllowNull: true},
	},
	Type: function.StaticReturnType(cty.Number),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		coll, val := args[0], args[1]
		if coll.Type() == cty.String {
			if val.IsNull() || val.Type() != cty.String {
				return cty.NumberIntVal(-1), nil
			}
			return cty.NumberIntVal(int64(strings.Index(coll.AsString(), val.AsString()))), nil
		}
		if !coll.CanIterateElements() {
			return cty.NumberIntVal(-1), nil
		}
		i := int64(0)
		for it := coll.ElementIterator(); it.Next(); i++ {
			_, elem := it.Element()
			if eq := elem.Equals(val); eq.IsKnown() && eq.True() {
				return cty.NumberIntVal(i), nil
			}
		}
		return cty.NumberIntVal(-1), nil
	},
})

var isValidFunc = function.New(&function.Spec{
	Params: []function.Parameter{{Name: "value", Type: cty.DynamicPseudoType, AllowNull: true}},
	Type:   function.StaticReturnType(cty.Bool),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return cty.BoolVal(!args[0].IsNull()), nil
	},
})

func convertFunc(to cty.Type) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{{Name: "value", Type: cty.DynamicPseudoType, AllowNull: true}},
		Type:   function.StaticReturnType(to),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			if args[0].IsNull() {
				return cty.NullVal(to), nil
			}
			return convert.Convert(args[0], to)
		},
	})
}
