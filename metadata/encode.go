package metadata

import (
	"encoding/binary"
	"sort"

	"go.uber.org/zap"

	"github.com/metaforge/unitmeta"
	"github.com/metaforge/unitmeta/decl"
	"github.com/metaforge/unitmeta/errors"
	"github.com/metaforge/unitmeta/tlv"
)

// Encode serializes a unit's public surface into a finished blob.
//
// The encode is single-threaded and run-to-completion: either the
// complete blob is returned or a fatal error is, never a partial
// result. Internal invariant violations (a missing expected symbol,
// non-dense dependency numbering, an index offset overflowing its
// 32-bit field) are reported to the configured diagnostic sink and
// abort the encode.
func Encode(u *decl.Unit, opts ...Option) (out []byte, err error) {
	if u == nil || u.Root == nil {
		return nil, errors.New(errors.PhaseEncode, errors.KindInvalidData).
			Detail("nil unit or unit without root module").Build()
	}

	cx := &encodeContext{
		w:       tlv.NewWriter(),
		unit:    u,
		diag:    unitmeta.NopSink{},
		log:     Logger(),
		abbrevs: make(map[string]abbrev),
		byID:    make(map[decl.ID]decl.Item),
		pathOf:  make(map[decl.ID][]string),
		stats:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(cx)
	}

	defer func() {
		if r := recover(); r != nil {
			abort, ok := r.(encodeAbort)
			if !ok {
				panic(r)
			}
			out, err = nil, abort.err
		}
	}()

	cx.prewalk(u.Root, nil)
	cx.encodeHeader()
	cx.section("items", cx.encodeItems)
	cx.section("field-attrs", cx.encodeFieldAttrs)

	if cx.w.Depth() != 0 {
		cx.fatal(errors.Invariant(errors.PhaseEncode,
			"%d records left open at end of encode", cx.w.Depth()))
	}

	return cx.frame(), nil
}

// frame measures the exact produced stream length, prepends the u32
// big-endian length field, and prepends the fixed version tag. The tag
// itself is never length-prefixed.
func (cx *encodeContext) frame() []byte {
	body := cx.w.Bytes()
	n := cx.w.Len()
	if uint64(n) > 0xFFFF_FFFF {
		cx.fatal(errors.OffsetOverflow("blob length", uint64(n)))
	}

	out := make([]byte, frameHeaderLen+n)
	copy(out, versionTag[:])
	binary.BigEndian.PutUint32(out[len(versionTag):], uint32(n))
	copy(out[frameHeaderLen:], body)

	cx.logStats(n)
	return out
}

func (cx *encodeContext) logStats(total int) {
	names := make([]string, 0, len(cx.stats))
	for name := range cx.stats {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]zap.Field, 0, len(names)+2)
	fields = append(fields,
		zap.String("unit", cx.unit.Name),
		zap.Int("total_bytes", total))
	for _, name := range names {
		fields = append(fields, zap.Int(name+"_bytes", cx.stats[name]))
	}
	cx.log.Debug("metadata encoded", fields...)
}
