// Package specparse turns raw editor text into a classified, validated
// specification document.
//
// The accepted syntax is JSON with comments and trailing commas. Parsing is
// total: every input maps to either a document with its grammar or a list of
// diagnostics, and no panic escapes Parse.
package specparse

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tailscale/hujson"
	"github.com/vk/vegapanel/internal/jsonutil"
	"github.com/vk/vegapanel/internal/registry"
)

// Validator checks a document against the schema of a grammar.
type Validator interface {
	Validate(t registry.Tag, doc any) error
}

// Result is exactly one of a document with its grammar, or diagnostics.
type Result struct {
	Doc    map[string]any
	Tag    registry.Tag
	Errors []string
}

// OK reports whether the result holds an accepted document.
func (r Result) OK() bool {
	return r.Doc != nil
}

func failed(errs ...string) Result {
	if errs == nil {
		errs = []string{}
	}
	return Result{Errors: errs}
}

// Parser parses and validates specification text.
type Parser struct {
	validator Validator
}

// New creates a Parser that validates with v.
func New(v Validator) *Parser {
	return &Parser{validator: v}
}

// Parse uses the process-wide compiled validators.
func Parse(text string) Result {
	return New(registry.Default()).Parse(text)
}

// Parse never panics; an internal failure becomes a single diagnostic.
func (p *Parser) Parse(text string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Specification parser panicked.", "panic", r)
			res = failed(fmt.Sprintf("internal error while parsing specification: %v", r))
		}
	}()

	doc, err := decode(text)
	if err != nil {
		return failed(err.Error())
	}

	tag, err := registry.Classify(doc)
	if err != nil {
		return failed(err.Error())
	}

	if err := p.validator.Validate(tag, doc); err != nil {
		var ve *registry.ValidationError
		if errors.As(err, &ve) {
			return failed(ve.Messages()...)
		}
		return failed(err.Error())
	}

	return Result{Doc: doc, Tag: tag}
}

// decode parses tolerant JSON into an object. Blank text and text holding
// only comments decode to the empty object.
func decode(text string) (map[string]any, error) {
	if strings.TrimSpace(text) == "" {
		return map[string]any{}, nil
	}

	std, err := standardize(text)
	if err != nil {
		if onlyComments(text) {
			return map[string]any{}, nil
		}
		return nil, errors.New(strings.TrimPrefix(err.Error(), "hujson: "))
	}
	return jsonutil.DecodeObject(std)
}

func standardize(text string) ([]byte, error) {
	v, err := hujson.Parse([]byte(text))
	if err != nil {
		return nil, err
	}
	v.Standardize()
	return v.Pack(), nil
}

// onlyComments reports whether text holds no value at all, only comments and
// whitespace. Appending a value to such text makes it parse.
func onlyComments(text string) bool {
	std, err := standardize(text + "\nnull")
	if err != nil {
		return false
	}
	return string(bytes.TrimSpace(std)) == "null"
}

// Normalize serializes an accepted document compactly, the form stored as
// the panel's parsed specification.
func Normalize(r Result) (string, error) {
	if !r.OK() {
		return "", errors.New("cannot normalize a rejected specification")
	}
	return jsonutil.Compact(r.Doc)
}
