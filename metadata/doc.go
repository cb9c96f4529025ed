// Package metadata encodes a compilation unit's public surface into a
// self-describing binary blob and reads it back with two-seek random
// access by declaration id.
//
// Encode performs one depth-first traversal of the declaration tree,
// appending a tagged record per declaration and collecting each
// record's byte offset. The offsets feed a 256-bucket hash index
// serialized behind the records; struct-like declarations embed a
// smaller index of the same shape over their fields. A fixed version
// tag and a big-endian length prefix frame the finished stream.
//
// Open is the paired consumer. It validates the frame, then resolves
// any declaration through the two-level index without touching the
// rest of the blob. Every record decodes to a complete value on its
// own, so concurrent readers share nothing but the bytes.
package metadata
