// Package decl defines the resolved declaration model consumed by the
// metadata encoder.
//
// A Unit is the public surface of one compilation unit: header-level
// facts (name, target, dependencies, language items, source maps,
// exported macros) plus a tree of declarations rooted at Unit.Root.
// Declarations form a closed union: every kind the wire format supports
// is a concrete struct implementing Item, so encoders dispatch with an
// exhaustive type switch.
//
// Everything here is assumed already resolved. Types, trait references
// and predicates are computed values, not syntax; the model performs no
// name resolution or type checking of its own.
package decl
