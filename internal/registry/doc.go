// Package registry owns the two chart grammars the panel understands: the
// high-level Vega-Lite grammar and the low-level Vega grammar it compiles
// into.
//
// Each grammar is identified by the URI authors put in a document's reserved
// "$schema" field. The registry classifies documents by that field, holds the
// canonical JSON Schema for each grammar, and keeps one compiled validator per
// grammar for the lifetime of the process.
//
// Compiling a schema is expensive compared to validating a document, so the
// validators are built exactly once by Default and shared by every caller.
// The canonical schema trees are never handed out directly; Canonical always
// returns a private copy that the caller may modify.
package registry
