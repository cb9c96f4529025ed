package metadata

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/metaforge/unitmeta/decl"
	"github.com/metaforge/unitmeta/errors"
)

// minAbbrevLen is the smallest encoding worth abbreviating. Shorter
// encodings are cheaper to repeat than a back-reference.
const minAbbrevLen = 16

// trDirect opens a trait reference encoded in place, as opposed to a
// tyAbbrev back-reference.
const trDirect byte = 0x01

func (cx *encodeContext) rawByte(b byte) {
	cx.w.RawBytes([]byte{b})
}

func (cx *encodeContext) rawUvarint(v uint64) {
	cx.w.RawBytes(binary.AppendUvarint(nil, v))
}

func (cx *encodeContext) rawString(s string) {
	cx.rawUvarint(uint64(len(s)))
	cx.w.RawBytes([]byte(s))
}

func (cx *encodeContext) rawID(id decl.ID) {
	cx.rawUvarint(uint64(id.Unit))
	cx.rawUvarint(uint64(id.Index))
}

// encTy writes a type at the current position. Compound encodings of
// at least minAbbrevLen bytes register in the abbreviation cache; a
// structurally identical later type emits a (pos, len) back-reference
// instead, which a random-access reader resolves with no prior state.
func (cx *encodeContext) encTy(t decl.Type) {
	key := typeKey(t)
	if ab, ok := cx.abbrevs[key]; ok {
		cx.encAbbrev(ab)
		return
	}
	pos := cx.w.Pos()
	switch v := t.(type) {
	case decl.Bool:
		cx.rawByte(tyBool)
	case decl.Char:
		cx.rawByte(tyChar)
	case decl.Int:
		cx.rawByte(tyInt)
		cx.rawByte(v.Bits)
	case decl.Uint:
		cx.rawByte(tyUint)
		cx.rawByte(v.Bits)
	case decl.Float:
		cx.rawByte(tyFloat)
		cx.rawByte(v.Bits)
	case decl.Str:
		cx.rawByte(tyStr)
	case decl.Never:
		cx.rawByte(tyNever)
	case decl.Tuple:
		cx.rawByte(tyTuple)
		cx.rawUvarint(uint64(len(v.Elems)))
		for _, e := range v.Elems {
			cx.encTy(e)
		}
	case decl.Ref:
		cx.rawByte(tyRef)
		cx.rawByte(boolByte(v.Mutable))
		cx.encTy(v.Elem)
	case decl.RawPtr:
		cx.rawByte(tyRawPtr)
		cx.rawByte(boolByte(v.Mutable))
		cx.encTy(v.Elem)
	case decl.Slice:
		cx.rawByte(tySlice)
		cx.encTy(v.Elem)
	case decl.Array:
		cx.rawByte(tyArray)
		cx.rawUvarint(v.Len)
		cx.encTy(v.Elem)
	case decl.FnPtr:
		cx.rawByte(tyFnPtr)
		cx.rawString(v.ABI)
		cx.rawUvarint(uint64(len(v.Params)))
		for _, p := range v.Params {
			cx.encTy(p)
		}
		if v.Ret != nil {
			cx.rawByte(1)
			cx.encTy(v.Ret)
		} else {
			cx.rawByte(0)
		}
	case decl.Nominal:
		cx.rawByte(tyNom)
		cx.rawID(v.ID)
		cx.rawUvarint(uint64(len(v.Substs)))
		for _, s := range v.Substs {
			cx.encTy(s)
		}
	case decl.Param:
		cx.rawByte(tyParam)
		cx.rawByte(byte(v.Space))
		cx.rawUvarint(uint64(v.Index))
		cx.rawString(v.Name)
	case decl.Object:
		cx.rawByte(tyObject)
		cx.encTraitRefBody(v.Trait)
	default:
		cx.fatal(errors.New(errors.PhaseEncode, errors.KindUnsupported).
			Detail("type constructor %T", t).Build())
	}
	cx.noteAbbrev(key, pos)
}

// encTraitRef writes a trait reference, abbreviated like a type when
// it has been seen before.
func (cx *encodeContext) encTraitRef(tr decl.TraitRef) {
	key := traitRefKey(tr)
	if ab, ok := cx.abbrevs[key]; ok {
		cx.encAbbrev(ab)
		return
	}
	pos := cx.w.Pos()
	cx.rawByte(trDirect)
	cx.encTraitRefBody(tr)
	cx.noteAbbrev(key, pos)
}

func (cx *encodeContext) encTraitRefBody(tr decl.TraitRef) {
	cx.rawID(tr.ID)
	cx.rawUvarint(uint64(len(tr.Substs)))
	for _, s := range tr.Substs {
		cx.encTy(s)
	}
}

func (cx *encodeContext) encAbbrev(ab abbrev) {
	cx.rawByte(tyAbbrev)
	cx.rawUvarint(uint64(ab.pos))
	cx.rawUvarint(uint64(ab.len))
}

func (cx *encodeContext) noteAbbrev(key string, pos int) {
	n := cx.w.Pos() - pos
	if n >= minAbbrevLen {
		cx.abbrevs[key] = abbrev{pos: pos, len: n}
	}
}

// encPredicate writes one bound.
func (cx *encodeContext) encPredicate(p decl.Predicate) {
	switch v := p.(type) {
	case decl.TraitBound:
		cx.rawByte(predTrait)
		cx.encTraitRef(v.Trait)
	case decl.OutlivesBound:
		cx.rawByte(predOutlives)
		cx.encTy(v.Ty)
	case decl.ProjectionBound:
		cx.rawByte(predProjection)
		cx.encTraitRef(v.Trait)
		cx.rawString(v.Name)
		cx.encTy(v.Ty)
	default:
		cx.fatal(errors.New(errors.PhaseEncode, errors.KindUnsupported).
			Detail("predicate %T", p).Build())
	}
}

// encTypeParamDef writes one declared type parameter.
func (cx *encodeContext) encTypeParamDef(d decl.TypeParamDef) {
	cx.rawString(d.Name)
	cx.rawID(d.ID)
	cx.rawByte(byte(d.Space))
	cx.rawUvarint(uint64(d.Index))
	if d.Default != nil {
		cx.rawByte(1)
		cx.encTy(d.Default)
	} else {
		cx.rawByte(0)
	}
}

// encRegionParamDef writes one declared lifetime parameter.
func (cx *encodeContext) encRegionParamDef(d decl.RegionParamDef) {
	cx.rawString(d.Name)
	cx.rawID(d.ID)
	cx.rawByte(byte(d.Space))
	cx.rawUvarint(uint64(d.Index))
	cx.rawUvarint(uint64(len(d.Bounds)))
	for _, b := range d.Bounds {
		cx.encTy(b)
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// typeKey renders a type's structural shape as the abbreviation-cache
// key. The rendering is injective: strings are quoted and every
// compound carries delimiters.
func typeKey(t decl.Type) string {
	var sb strings.Builder
	appendTypeKey(&sb, t)
	return sb.String()
}

func appendTypeKey(sb *strings.Builder, t decl.Type) {
	switch v := t.(type) {
	case decl.Bool:
		sb.WriteString("b")
	case decl.Char:
		sb.WriteString("c")
	case decl.Int:
		fmt.Fprintf(sb, "i%d", v.Bits)
	case decl.Uint:
		fmt.Fprintf(sb, "u%d", v.Bits)
	case decl.Float:
		fmt.Fprintf(sb, "f%d", v.Bits)
	case decl.Str:
		sb.WriteString("s")
	case decl.Never:
		sb.WriteString("!")
	case decl.Tuple:
		sb.WriteString("T(")
		for _, e := range v.Elems {
			appendTypeKey(sb, e)
			sb.WriteString(",")
		}
		sb.WriteString(")")
	case decl.Ref:
		fmt.Fprintf(sb, "&%d", boolByte(v.Mutable))
		appendTypeKey(sb, v.Elem)
	case decl.RawPtr:
		fmt.Fprintf(sb, "*%d", boolByte(v.Mutable))
		appendTypeKey(sb, v.Elem)
	case decl.Slice:
		sb.WriteString("[]")
		appendTypeKey(sb, v.Elem)
	case decl.Array:
		fmt.Fprintf(sb, "[%d;", v.Len)
		appendTypeKey(sb, v.Elem)
		sb.WriteString("]")
	case decl.FnPtr:
		fmt.Fprintf(sb, "F(%q|", v.ABI)
		for _, p := range v.Params {
			appendTypeKey(sb, p)
			sb.WriteString(",")
		}
		sb.WriteString("|")
		if v.Ret != nil {
			appendTypeKey(sb, v.Ret)
		}
		sb.WriteString(")")
	case decl.Nominal:
		fmt.Fprintf(sb, "N(%s<", v.ID)
		for _, s := range v.Substs {
			appendTypeKey(sb, s)
			sb.WriteString(",")
		}
		sb.WriteString(">)")
	case decl.Param:
		fmt.Fprintf(sb, "P(%d,%d,%q)", v.Space, v.Index, v.Name)
	case decl.Object:
		sb.WriteString("O(")
		appendTraitRefKey(sb, v.Trait)
		sb.WriteString(")")
	default:
		fmt.Fprintf(sb, "?%T", t)
	}
}

func traitRefKey(tr decl.TraitRef) string {
	var sb strings.Builder
	sb.WriteString("TR")
	appendTraitRefKey(&sb, tr)
	return sb.String()
}

func appendTraitRefKey(sb *strings.Builder, tr decl.TraitRef) {
	fmt.Fprintf(sb, "R(%s<", tr.ID)
	for _, s := range tr.Substs {
		appendTypeKey(sb, s)
		sb.WriteString(",")
	}
	sb.WriteString(">)")
}
