package metadata

import (
	"go.uber.org/zap"

	"github.com/metaforge/unitmeta"
	"github.com/metaforge/unitmeta/decl"
	"github.com/metaforge/unitmeta/errors"
	"github.com/metaforge/unitmeta/tlv"
)

// Option configures an encode.
type Option func(*encodeContext)

// WithDiag installs a diagnostic sink. Fatal invariant violations are
// reported to it before the encode aborts.
func WithDiag(sink unitmeta.DiagSink) Option {
	return func(cx *encodeContext) {
		if sink != nil {
			cx.diag = sink
		}
	}
}

// WithLogger overrides the package logger for one encode.
func WithLogger(l *zap.Logger) Option {
	return func(cx *encodeContext) {
		if l != nil {
			cx.log = l
		}
	}
}

// indexEntry records where a declaration record starts. One entry is
// appended the moment the record's header is written, so the index is
// complete by construction.
type indexEntry struct {
	key uint32
	pos uint32
}

// abbrev is a back-reference into already-written type bytes.
type abbrev struct {
	pos int
	len int
}

// encodeContext owns all state mutated during one encode: the writer,
// the abbreviation cache, the collected index entries, and the prewalk
// lookup tables. It is created per encode and never shared.
type encodeContext struct {
	w    *tlv.Writer
	unit *decl.Unit
	diag unitmeta.DiagSink
	log  *zap.Logger

	abbrevs map[string]abbrev
	items   []indexEntry

	// byID and pathOf cover every local declaration, including
	// implicit ones such as tuple constructors and trait members.
	// Built by one prewalk before any record is written.
	byID   map[decl.ID]decl.Item
	pathOf map[decl.ID][]string

	stats map[string]int
}

// encodeAbort carries a fatal error up to the Encode boundary.
type encodeAbort struct {
	err *errors.Error
}

// fatal reports an invariant violation and aborts the encode. It never
// returns.
func (cx *encodeContext) fatal(err *errors.Error) {
	cx.diag.Fatal(err.Error())
	panic(encodeAbort{err: err})
}

// addEntry records an index entry for the record starting at pos.
func (cx *encodeContext) addEntry(id decl.ID, pos int) {
	if uint64(pos) > 0xFFFF_FFFF {
		cx.fatal(errors.OffsetOverflow("item record offset", uint64(pos)))
	}
	cx.items = append(cx.items, indexEntry{key: id.Index, pos: uint32(pos)})
}

// section tracks the byte size of one top-level section for the debug
// stats the encoder logs when finished.
func (cx *encodeContext) section(name string, fn func()) {
	start := cx.w.Pos()
	fn()
	cx.stats[name] = cx.w.Pos() - start
}

// prewalk fills byID and pathOf for the whole module tree.
// path is the enclosing module path; the root module has an empty name
// and adds no segment.
func (cx *encodeContext) prewalk(mod *decl.Mod, path []string) {
	inner := path
	if mod.Name != "" {
		inner = append(append([]string(nil), path...), mod.Name)
	}
	cx.byID[mod.ID] = mod
	cx.pathOf[mod.ID] = inner

	for _, it := range mod.Items {
		base := it.Base()
		cx.byID[base.ID] = it
		cx.pathOf[base.ID] = append(append([]string(nil), inner...), base.Name)

		switch v := it.(type) {
		case *decl.Mod:
			cx.prewalk(v, inner)
		case *decl.Struct:
			for i := range v.Fields {
				cx.pathOf[v.Fields[i].ID] = append(append([]string(nil), inner...), base.Name, v.Fields[i].Name)
			}
			if v.Ctor != nil {
				cx.byID[v.Ctor.ID] = it
				cx.pathOf[v.Ctor.ID] = cx.pathOf[base.ID]
			}
		case *decl.Enum:
			for i := range v.Variants {
				va := &v.Variants[i]
				cx.pathOf[va.ID] = append(append([]string(nil), inner...), base.Name, va.Name)
			}
		case *decl.Trait:
			cx.indexMembers(base, inner, v.Items)
		case *decl.Impl:
			cx.indexMembers(base, inner, v.Items)
		case *decl.ForeignMod:
			for _, fi := range v.Items {
				fb := fi.Base()
				cx.byID[fb.ID] = it
				cx.pathOf[fb.ID] = append(append([]string(nil), inner...), fb.Name)
			}
		}
	}
}

func (cx *encodeContext) indexMembers(owner *decl.ItemBase, path []string, items []decl.TraitItem) {
	for _, ti := range items {
		tb := ti.TraitBase()
		cx.pathOf[tb.ID] = append(append([]string(nil), path...), owner.Name, tb.Name)
	}
}

// itemPath returns the full module path of a declaration, final
// segment included.
func (cx *encodeContext) itemPath(id decl.ID) []string {
	return cx.pathOf[id]
}
