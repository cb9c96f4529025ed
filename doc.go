// Package unitmeta serializes the public interface of a compilation
// unit into a compact, self-describing binary blob and reads it back
// with near-constant-time random access by declaration id.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	unitmeta/            Root package with the DiagSink interface
//	├── decl/            Resolved declaration model (the encoder input)
//	├── metadata/        Blob encoder, decoder, and item index
//	├── tlv/             Tagged length-value record primitives
//	├── blobfile/        Compressed on-disk container for blobs
//	├── errors/          Structured error types for debugging
//	└── cmd/metadump/    Interactive blob inspector
//
// # Quick Start
//
// Encode a unit and look up a declaration:
//
//	blob, err := metadata.Encode(unit)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	meta, err := metadata.Open(blob)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	item, err := meta.Item(decl.LocalID(7))
//	fmt.Println(item.Name(), item.Kind())
//
// # Blob Layout
//
// A blob starts with an 8-byte version tag and a 4-byte length prefix,
// followed by a stream of tagged records. Items carry a two-level hash
// index over their numeric ids, so a reader resolves any declaration
// with two seeks regardless of unit size. Container tools may pad the
// blob; readers ignore bytes past the length prefix.
//
// # Thread Safety
//
// An open blob is immutable and safe for concurrent readers. The
// encoder is single-use and not safe for concurrent use.
package unitmeta
