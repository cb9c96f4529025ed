package tlv

import (
	"encoding/binary"
	"fmt"
)

// maxVuint is the largest value representable by the variable-length
// encoding (28 bits).
const maxVuint = 1<<28 - 1

// Writer builds a tagged record stream in memory.
//
// The writer cannot fail: all methods append to an internal buffer that
// grows on demand. The only rewrites ever performed are the 4-byte
// length backpatches in End, so positions returned by Pos remain valid
// for the lifetime of the writer.
type Writer struct {
	buf []byte

	// open holds the offsets of the reserved length fields of all
	// currently open records, innermost last.
	open []int
}

// NewWriter creates an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the stream written so far. The slice aliases the
// writer's buffer and is invalidated by further writes.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Pos returns the current write position. Positions are stable: no
// later operation moves bytes already written.
func (w *Writer) Pos() int {
	return len(w.buf)
}

// Depth returns the number of currently open records.
func (w *Writer) Depth() int {
	return len(w.open)
}

// Start opens a nested record with the given tag. The payload length is
// reserved as a fixed 4-byte field and backpatched by the matching End.
func (w *Writer) Start(tag uint32) {
	w.vuint(tag)
	w.open = append(w.open, len(w.buf))
	w.buf = append(w.buf, 0x10, 0, 0, 0)
}

// End closes the innermost open record, backpatching its length.
// It panics if no record is open or if the payload exceeds the 28-bit
// length limit; both are programming errors, not data errors.
func (w *Writer) End() {
	if len(w.open) == 0 {
		panic("tlv: End without matching Start")
	}
	off := w.open[len(w.open)-1]
	w.open = w.open[:len(w.open)-1]

	n := len(w.buf) - off - 4
	if n > maxVuint {
		panic(fmt.Sprintf("tlv: record payload %d exceeds format limit", n))
	}
	// Always the 4-byte form, so the reservation is exact.
	w.buf[off] = 0x10 | byte(n>>24)
	w.buf[off+1] = byte(n >> 16)
	w.buf[off+2] = byte(n >> 8)
	w.buf[off+3] = byte(n)
}

// TaggedU8 writes a record holding a single byte.
func (w *Writer) TaggedU8(tag uint32, v uint8) {
	w.vuint(tag)
	w.vuint(1)
	w.buf = append(w.buf, v)
}

// TaggedU32 writes a record holding a packed unsigned integer.
func (w *Writer) TaggedU32(tag uint32, v uint32) {
	w.TaggedU64(tag, uint64(v))
}

// TaggedU64 writes a record holding a packed unsigned integer. The
// payload is the shortest big-endian byte string for the value; zero
// encodes as a single zero byte.
func (w *Writer) TaggedU64(tag uint32, v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	i := 0
	for i < 7 && tmp[i] == 0 {
		i++
	}
	w.vuint(tag)
	w.vuint(uint32(8 - i))
	w.buf = append(w.buf, tmp[i:]...)
}

// TaggedStr writes a record holding UTF-8 text.
func (w *Writer) TaggedStr(tag uint32, s string) {
	w.vuint(tag)
	w.lenCheck(len(s))
	w.vuint(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// TaggedBytes writes a record holding raw bytes. A nil or empty slice
// produces an empty record, usable as a presence marker.
func (w *Writer) TaggedBytes(tag uint32, b []byte) {
	w.vuint(tag)
	w.lenCheck(len(b))
	w.vuint(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// RawU32BE appends a fixed 4-byte big-endian integer without any tag or
// length. Used inside index payloads where the layout is positional.
func (w *Writer) RawU32BE(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// RawBytes appends bytes without any tag or length.
func (w *Writer) RawBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *Writer) lenCheck(n int) {
	if n > maxVuint {
		panic(fmt.Sprintf("tlv: payload %d exceeds format limit", n))
	}
}

// vuint appends v in the leading-bit variable-length encoding.
func (w *Writer) vuint(v uint32) {
	switch {
	case v < 1<<7:
		w.buf = append(w.buf, 0x80|byte(v))
	case v < 1<<14:
		w.buf = append(w.buf, 0x40|byte(v>>8), byte(v))
	case v < 1<<21:
		w.buf = append(w.buf, 0x20|byte(v>>16), byte(v>>8), byte(v))
	case v < 1<<28:
		w.buf = append(w.buf, 0x10|byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	default:
		panic(fmt.Sprintf("tlv: value %d exceeds 28-bit limit", v))
	}
}
