package tlv

import (
	"bytes"
	"errors"
	"testing"
)

func TestVuintRoundTrip(t *testing.T) {
	tests := []struct {
		v    uint32
		size int
	}{
		{0, 1},
		{1, 1},
		{0x7F, 1},
		{0x80, 2},
		{0x3FFF, 2},
		{0x4000, 3},
		{0x1F_FFFF, 3},
		{0x20_0000, 4},
		{1<<28 - 1, 4},
	}

	for _, tt := range tests {
		w := NewWriter()
		w.vuint(tt.v)
		if w.Len() != tt.size {
			t.Errorf("vuint(%d): wrote %d bytes, want %d", tt.v, w.Len(), tt.size)
		}
		got, next, err := vuintAt(w.Bytes(), 0)
		if err != nil {
			t.Fatalf("vuintAt(%d): %v", tt.v, err)
		}
		if got != tt.v {
			t.Errorf("vuintAt: got %d, want %d", got, tt.v)
		}
		if next != tt.size {
			t.Errorf("vuintAt: next %d, want %d", next, tt.size)
		}
	}
}

func TestTaggedScalars(t *testing.T) {
	w := NewWriter()
	w.TaggedU8(1, 0xAB)
	w.TaggedU64(2, 0)
	w.TaggedU64(3, 0x1234_5678_9ABC)
	w.TaggedStr(4, "héllo")
	w.TaggedBytes(5, []byte{0xDE, 0xAD})
	w.TaggedBytes(6, nil)

	root := Root(w.Bytes())
	var docs []Doc
	if err := root.EachChild(func(c Doc) bool {
		docs = append(docs, c)
		return true
	}); err != nil {
		t.Fatalf("EachChild: %v", err)
	}
	if len(docs) != 6 {
		t.Fatalf("expected 6 records, got %d", len(docs))
	}

	if v, err := docs[0].U8(); err != nil || v != 0xAB {
		t.Errorf("u8: got %d, %v", v, err)
	}
	if v, err := docs[1].U64(); err != nil || v != 0 {
		t.Errorf("u64 zero: got %d, %v", v, err)
	}
	if docs[1].Len() != 1 {
		t.Errorf("u64 zero should pack to 1 byte, got %d", docs[1].Len())
	}
	if v, err := docs[2].U64(); err != nil || v != 0x1234_5678_9ABC {
		t.Errorf("u64: got %#x, %v", v, err)
	}
	if s, err := docs[3].Str(); err != nil || s != "héllo" {
		t.Errorf("str: got %q, %v", s, err)
	}
	if !bytes.Equal(docs[4].Bytes(), []byte{0xDE, 0xAD}) {
		t.Errorf("bytes: got %v", docs[4].Bytes())
	}
	if docs[5].Len() != 0 {
		t.Errorf("empty marker should have no payload, got %d bytes", docs[5].Len())
	}
}

func TestNestedRecords(t *testing.T) {
	w := NewWriter()
	w.Start(10)
	w.TaggedStr(11, "inner")
	w.Start(12)
	w.TaggedU32(13, 7)
	w.End()
	w.End()
	if w.Depth() != 0 {
		t.Fatalf("unbalanced depth %d", w.Depth())
	}

	outer, err := At(w.Bytes(), 0)
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if outer.Tag != 10 {
		t.Errorf("outer tag: got %d, want 10", outer.Tag)
	}
	if s, err := outer.ChildStr(11); err != nil || s != "inner" {
		t.Errorf("ChildStr: got %q, %v", s, err)
	}
	mid, ok, err := outer.Child(12)
	if err != nil || !ok {
		t.Fatalf("Child(12): ok=%v err=%v", ok, err)
	}
	if v, ok, err := mid.ChildU64(13); err != nil || !ok || v != 7 {
		t.Errorf("ChildU64: got %d ok=%v err=%v", v, ok, err)
	}
}

func TestPosStability(t *testing.T) {
	w := NewWriter()
	w.Start(1)
	mark := w.Pos()
	w.TaggedStr(2, "payload")
	w.End()
	w.TaggedU32(3, 9)

	// The record written at mark must still decode from mark after
	// the enclosing End backpatched its length.
	d, err := At(w.Bytes(), mark)
	if err != nil {
		t.Fatalf("At(mark): %v", err)
	}
	if d.Tag != 2 {
		t.Errorf("tag at mark: got %d, want 2", d.Tag)
	}
	if s, _ := d.Str(); s != "payload" {
		t.Errorf("payload at mark: got %q", s)
	}
}

func TestTruncatedStream(t *testing.T) {
	w := NewWriter()
	w.Start(1)
	w.TaggedStr(2, "some payload here")
	w.End()
	data := w.Bytes()

	// Any proper prefix cuts through the outer record, so walking the
	// truncated stream must report an error rather than panic.
	for cut := 1; cut < len(data); cut++ {
		err := Root(data[:cut]).EachChild(func(c Doc) bool {
			_ = c.EachChild(func(Doc) bool { return true })
			return true
		})
		if err == nil {
			t.Errorf("cut at %d: expected error from child walk", cut)
		}
	}
}

func TestInvalidLeadByte(t *testing.T) {
	_, _, err := vuintAt([]byte{0x00}, 0)
	if err == nil {
		t.Fatal("expected error for invalid lead byte")
	}
}

func TestInvalidUTF8(t *testing.T) {
	w := NewWriter()
	w.TaggedBytes(1, []byte{0xFF, 0xFE})
	d, err := At(w.Bytes(), 0)
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if _, err := d.Str(); !errors.Is(err, ErrInvalidUTF8) {
		t.Errorf("expected ErrInvalidUTF8, got %v", err)
	}
}

func TestEndWithoutStartPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewWriter().End()
}

func FuzzAt(f *testing.F) {
	w := NewWriter()
	w.Start(1)
	w.TaggedStr(2, "seed")
	w.TaggedU64(3, 123456)
	w.End()
	f.Add(w.Bytes())
	f.Add([]byte{0x81, 0x10, 0xFF})

	f.Fuzz(func(t *testing.T, data []byte) {
		d, err := At(data, 0)
		if err != nil {
			return
		}
		// Walking a hostile stream must never panic.
		_ = d.EachChild(func(c Doc) bool {
			_, _ = c.U64()
			_, _ = c.Str()
			_ = c.EachChild(func(Doc) bool { return true })
			return true
		})
	})
}
