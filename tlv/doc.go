// Package tlv implements the tagged record stream underlying unit
// metadata blobs.
//
// A record is a (tag, length, payload) triple. Tags and lengths use a
// leading-bit variable-length encoding (1 to 4 bytes carrying 7 to 28
// bits). Payloads are either scalars (packed integers, UTF-8 text, raw
// bytes) or a sequence of nested records, so a stream is a forest of
// self-delimiting trees.
//
// Writing is append-only. Records whose payload length is unknown at
// open time (Start/End) reserve a fixed 4-byte length field that is
// backpatched on close, which keeps every previously returned position
// stable. Scalar writes emit the shortest length form.
//
// Reading is defensive: Doc is a bounds-checked view over an immutable
// byte slice and every accessor validates lengths before slicing, so a
// truncated or corrupt stream produces an error instead of a panic.
// Docs carry no mutable state and may be used from multiple goroutines.
package tlv
