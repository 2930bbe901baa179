// Package expr evaluates Vega data expressions against a single datum.
//
// Expressions are translated into HCL expression syntax and evaluated with
// go-cty. The datum is bound to the variable "datum"; fields are read as
// datum.name or datum["name"]. A referenced field missing from the datum
// evaluates to null.
package expr

import (
	"fmt"
	"math"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

const datumVar = "datum"

// Expr is a compiled expression.
type Expr struct {
	src    string
	expr   hclsyntax.Expression
	fields []string
}

// Compile parses src and checks that it only references the datum and known
// functions.
func Compile(src string) (*Expr, error) {
	translated, err := translate(src)
	if err != nil {
		return nil, fmt.Errorf("invalid expression '%s': %w", src, err)
	}
	parsed, diags := hclsyntax.ParseExpression([]byte(translated), "expression", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid expression '%s': %s", src, diags.Error())
	}

	fields := make(map[string]struct{})
	for _, traversal := range parsed.Variables() {
		if root := traversal.RootName(); root != datumVar {
			return nil, fmt.Errorf("invalid expression '%s': unknown variable '%s'", src, root)
		}
		if len(traversal) < 2 {
			continue
		}
		switch step := traversal[1].(type) {
		case hcl.TraverseAttr:
			fields[step.Name] = struct{}{}
		case hcl.TraverseIndex:
			if step.Key.Type() == cty.String {
				fields[step.Key.AsString()] = struct{}{}
			}
		}
	}

	called := make(map[string]struct{})
	walkForFunctions(parsed, called)
	for name := range called {
		if !Known(name) {
			return nil, fmt.Errorf("invalid expression '%s': unknown function '%s'", src, name)
		}
	}

	e := &Expr{src: src, expr: parsed, fields: make([]string, 0, len(fields))}
	for f := range fields {
		e.fields = append(e.fields, f)
	}
	sort.Strings(e.fields)
	return e, nil
}

// MustCompile panics if src does not compile.
func MustCompile(src string) *Expr {
	e, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the source expression.
func (e *Expr) String() string { return e.src }

// Fields returns the datum fields the expression reads, sorted.
func (e *Expr) Fields() []string { return e.fields }

// Eval evaluates the expression against datum.
func (e *Expr) Eval(datum map[string]any) (any, error) {
	obj := make(map[string]cty.Value, len(datum)+len(e.fields))
	for k, v := range datum {
		obj[k] = toCty(v)
	}
	for _, f := range e.fields {
		if _, ok := obj[f]; !ok {
			obj[f] = cty.NullVal(cty.DynamicPseudoType)
		}
	}

	ctx := &hcl.EvalContext{
		Variables: map[string]cty.Value{datumVar: cty.ObjectVal(obj)},
		Functions: functions,
	}
	val, diags := e.expr.Value(ctx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("evaluating '%s': %s", e.src, diags.Error())
	}
	return fromCty(val), nil
}

// Test evaluates the expression as a filter predicate, with the truthiness
// rules of Vega expressions.
func (e *Expr) Test(datum map[string]any) (bool, error) {
	v, err := e.Eval(datum)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

// Truthy reports whether a value counts as true in a predicate.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case string:
		return x != ""
	default:
		return true
	}
}

// walkForFunctions collects the names of all functions called in expr.
func walkForFunctions(expr hclsyntax.Expression, functions map[string]struct{}) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *hclsyntax.FunctionCallExpr:
		functions[e.Name] = struct{}{}
		for _, arg := range e.Args {
			walkForFunctions(arg, functions)
		}
	case *hclsyntax.BinaryOpExpr:
		walkForFunctions(e.LHS, functions)
		walkForFunctions(e.RHS, functions)
	case *hclsyntax.ConditionalExpr:
		walkForFunctions(e.Condition, functions)
		walkForFunctions(e.TrueResult, functions)
		walkForFunctions(e.FalseResult, functions)
	case *hclsyntax.UnaryOpExpr:
		walkForFunctions(e.Val, functions)
	case *hclsyntax.TemplateExpr:
		for _, part := range e.Parts {
			walkForFunctions(part, functions)
		}
	case *hclsyntax.TemplateWrapExpr:
		walkForFunctions(e.Wrapped, functions)
	case *hclsyntax.TupleConsExpr:
		for _, item := range e.Exprs {
			walkForFunctions(item, functions)
		}
	case *hclsyntax.ObjectConsExpr:
		for _, item := range e.Items {
			walkForFunctions(item.KeyExpr, functions)
			walkForFunctions(item.ValueExpr, functions)
		}
	case *hclsyntax.ObjectConsKeyExpr:
		walkForFunctions(e.Wrapped, functions)
	case *hclsyntax.IndexExpr:
		walkForFunctions(e.Collection, functions)
		walkForFunctions(e.Key, functions)
	case *hclsyntax.ParenthesesExpr:
		walkForFunctions(e.Expression, functions)
	}
}

func numberVal(f float64) cty.Value {
	if math.IsNaN(f) {
		return cty.NullVal(cty.Number)
	}
	return cty.NumberFloatVal(f)
}

func toCty(v any) cty.Value {
	switch x := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType)
	case float64:
		return numberVal(x)
	case int:
		return cty.NumberIntVal(int64(x))
	case int64:
		return cty.NumberIntVal(x)
	case string:
		return cty.StringVal(x)
	case bool:
		return cty.BoolVal(x)
	case []any:
		if len(x) == 0 {
			return cty.EmptyTupleVal
		}
		vals := make([]cty.Value, len(x))
		for i, item := range x {
			vals[i] = toCty(item)
		}
		return cty.TupleVal(vals)
	case map[string]any:
		if len(x) == 0 {
			return cty.EmptyObjectVal
		}
		vals := make(map[string]cty.Value, len(x))
		for k, item := range x {
			vals[k] = toCty(item)
		}
		return cty.ObjectVal(vals)
	default:
		return cty.StringVal(fmt.Sprint(v))
	}
}

func fromCty(v cty.Value) any {
	if v.IsNull() || !v.IsKnown() {
		return nil
	}
	ty := v.Type()
	switch {
	case ty == cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return f
	case ty == cty.String:
		return v.AsString()
	case ty == cty.Bool:
		return v.True()
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		for it := v.ElementIterator(); it.Next(); {
			k, elem := it.Element()
			out[k.AsString()] = fromCty(elem)
		}
		return out
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			out = append(out, fromCty(elem))
		}
		return out
	default:
		return nil
	}
}
