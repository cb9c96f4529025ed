package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseEncode Phase = "encode" // declaration tree to metadata
	PhaseIndex  Phase = "index"  // lookup table construction or use
	PhaseFrame  Phase = "frame"  // version tag and length prefix
	PhaseDecode Phase = "decode" // metadata to values
	PhaseFile   Phase = "file"   // blob container I/O
)

// Kind categorizes the error
type Kind string

const (
	KindMissingSymbol   Kind = "missing_symbol"
	KindDepNumbering    Kind = "dep_numbering"
	KindOffsetOverflow  Kind = "offset_overflow"
	KindVersionMismatch Kind = "version_mismatch"
	KindTruncated       Kind = "truncated"
	KindInvalidData     Kind = "invalid_data"
	KindInvalidUTF8     Kind = "invalid_utf8"
	KindOverflow        Kind = "overflow"
	KindNotFound        Kind = "not_found"
	KindUnsupported     Kind = "unsupported"
	KindInvariant       Kind = "invariant"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Decl   string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Decl != "" {
		b.WriteString(": decl ")
		b.WriteString(e.Decl)
	}

	if e.Detail != "" {
		if e.Decl != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the location path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Decl sets the offending declaration's rendered path
func (b *Builder) Decl(d string) *Builder {
	b.err.Decl = d
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// MissingSymbol creates an error for a declaration that should carry a
// linkage symbol but has none recorded
func MissingSymbol(decl string) *Error {
	return &Error{
		Phase:  PhaseEncode,
		Kind:   KindMissingSymbol,
		Decl:   decl,
		Detail: "no linkage symbol recorded",
	}
}

// DepNumbering creates an error for a dependency list that is not a
// dense 1..N sequence
func DepNumbering(got, want uint32, name string) *Error {
	return &Error{
		Phase:  PhaseEncode,
		Kind:   KindDepNumbering,
		Detail: fmt.Sprintf("dependency %q numbered %d, expected %d", name, got, want),
		Value:  got,
	}
}

// OffsetOverflow creates an error for an index offset or key that does
// not fit its fixed 32-bit wire field
func OffsetOverflow(what string, v uint64) *Error {
	return &Error{
		Phase:  PhaseIndex,
		Kind:   KindOffsetOverflow,
		Detail: fmt.Sprintf("%s %d exceeds 32-bit field", what, v),
		Value:  v,
	}
}

// VersionMismatch creates an error for an unrecognized version tag
func VersionMismatch(got []byte) *Error {
	preview := got
	if len(preview) > 8 {
		preview = preview[:8]
	}
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindVersionMismatch,
		Detail: fmt.Sprintf("unrecognized version tag %x", preview),
	}
}

// Truncated creates an error for data that ends before its declared
// extent
func Truncated(phase Phase, detail string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTruncated,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// NotFound creates a lookup-miss error
func NotFound(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: what,
	}
}

// Invariant creates an error for a violated internal invariant
func Invariant(phase Phase, detail string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvariant,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context, passing
// through errors that are already structured
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	if cause == nil {
		return nil
	}
	if e, ok := cause.(*Error); ok && detail == "" {
		return e
	}
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
