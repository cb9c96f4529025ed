// Package errors provides structured error types for the unitmeta library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: a location path, the rendered path of the
// offending declaration, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseEncode, errors.KindMissingSymbol).
//		Decl("collections::Vec::push").
//		Detail("no linkage symbol recorded").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.MissingSymbol("collections::Vec::push")
//	err := errors.OffsetOverflow("record offset", pos)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
