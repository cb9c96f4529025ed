package tlv

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Decoding errors.
var (
	ErrTruncated   = errors.New("tlv: truncated record")
	ErrInvalidUTF8 = errors.New("tlv: invalid UTF-8 in string record")
)

// Doc is a read-only view of one record inside a stream. The zero Doc
// is not valid; obtain Docs from Root or At.
type Doc struct {
	// Data is the complete underlying stream. Keeping the whole slice
	// lets nested views resolve absolute back-references.
	Data []byte

	// Tag is the record's tag. The synthetic root has tag 0.
	Tag uint32

	// Start and End bound the record payload within Data.
	Start, End int
}

// Root wraps an entire stream in a synthetic record so the top-level
// records can be walked as children.
func Root(data []byte) Doc {
	return Doc{Data: data, Start: 0, End: len(data)}
}

// At decodes the record header at pos and returns a Doc for it.
func At(data []byte, pos int) (Doc, error) {
	if pos < 0 || pos >= len(data) {
		return Doc{}, fmt.Errorf("%w: position %d out of range", ErrTruncated, pos)
	}
	tag, p, err := vuintAt(data, pos)
	if err != nil {
		return Doc{}, err
	}
	n, p, err := vuintAt(data, p)
	if err != nil {
		return Doc{}, err
	}
	end := p + int(n)
	if end > len(data) {
		return Doc{}, fmt.Errorf("%w: record at %d claims %d payload bytes, %d remain",
			ErrTruncated, pos, n, len(data)-p)
	}
	return Doc{Data: data, Tag: tag, Start: p, End: end}, nil
}

// Len returns the payload length in bytes.
func (d Doc) Len() int {
	return d.End - d.Start
}

// Bytes returns the raw payload.
func (d Doc) Bytes() []byte {
	return d.Data[d.Start:d.End]
}

// U8 interprets the payload as a single byte.
func (d Doc) U8() (uint8, error) {
	if d.Len() != 1 {
		return 0, fmt.Errorf("tlv: tag %d: u8 payload has %d bytes", d.Tag, d.Len())
	}
	return d.Data[d.Start], nil
}

// U64 interprets the payload as a packed big-endian unsigned integer.
func (d Doc) U64() (uint64, error) {
	n := d.Len()
	if n == 0 || n > 8 {
		return 0, fmt.Errorf("tlv: tag %d: packed integer has %d bytes", d.Tag, n)
	}
	var v uint64
	for _, b := range d.Bytes() {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// U32 is U64 narrowed to 32 bits.
func (d Doc) U32() (uint32, error) {
	v, err := d.U64()
	if err != nil {
		return 0, err
	}
	if v > 0xFFFF_FFFF {
		return 0, fmt.Errorf("tlv: tag %d: value %d overflows u32", d.Tag, v)
	}
	return uint32(v), nil
}

// Str interprets the payload as UTF-8 text.
func (d Doc) Str() (string, error) {
	b := d.Bytes()
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w (tag %d)", ErrInvalidUTF8, d.Tag)
	}
	return string(b), nil
}

// EachChild walks the records nested directly inside this one, in
// order, until fn returns false or the payload is exhausted.
func (d Doc) EachChild(fn func(c Doc) bool) error {
	pos := d.Start
	for pos < d.End {
		c, err := At(d.Data, pos)
		if err != nil {
			return err
		}
		if c.End > d.End {
			return fmt.Errorf("%w: child at %d escapes parent payload", ErrTruncated, pos)
		}
		if !fn(c) {
			return nil
		}
		pos = c.End
	}
	return nil
}

// Child returns the first nested record with the given tag.
func (d Doc) Child(tag uint32) (Doc, bool, error) {
	var found Doc
	ok := false
	err := d.EachChild(func(c Doc) bool {
		if c.Tag == tag {
			found, ok = c, true
			return false
		}
		return true
	})
	return found, ok, err
}

// ChildStr is a convenience for the common string-leaf lookup. Missing
// children return the empty string.
func (d Doc) ChildStr(tag uint32) (string, error) {
	c, ok, err := d.Child(tag)
	if err != nil || !ok {
		return "", err
	}
	return c.Str()
}

// ChildU64 is the packed-integer counterpart of ChildStr; missing
// children return (0, false, nil).
func (d Doc) ChildU64(tag uint32) (uint64, bool, error) {
	c, ok, err := d.Child(tag)
	if err != nil || !ok {
		return 0, false, err
	}
	v, err := c.U64()
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// vuintAt decodes the leading-bit variable-length integer at pos.
func vuintAt(data []byte, pos int) (uint32, int, error) {
	if pos >= len(data) {
		return 0, 0, fmt.Errorf("%w: expected vuint at %d", ErrTruncated, pos)
	}
	b := data[pos]
	var size int
	switch {
	case b&0x80 != 0:
		return uint32(b & 0x7F), pos + 1, nil
	case b&0x40 != 0:
		size = 2
	case b&0x20 != 0:
		size = 3
	case b&0x10 != 0:
		size = 4
	default:
		return 0, 0, fmt.Errorf("tlv: invalid vuint lead byte 0x%02x at %d", b, pos)
	}
	if pos+size > len(data) {
		return 0, 0, fmt.Errorf("%w: vuint at %d needs %d bytes", ErrTruncated, pos, size)
	}
	mask := byte(0xFF >> size)
	v := uint32(b & mask)
	for i := 1; i < size; i++ {
		v = v<<8 | uint32(data[pos+i])
	}
	return v, pos + size, nil
}
