package metadata

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/metaforge/unitmeta/decl"
	"github.com/metaforge/unitmeta/errors"
)

// maxTypeDepth bounds recursion while decoding type bytes, covering
// both nesting and abbreviation chains in hostile input.
const maxTypeDepth = 128

// typeReader is a bounds-checked cursor over type-grammar bytes. body
// is the whole blob stream so abbreviation back-references resolve
// without extra state.
type typeReader struct {
	body     []byte
	pos, end int
	depth    int
}

func newTypeReader(body []byte, start, end int) *typeReader {
	return &typeReader{body: body, pos: start, end: end}
}

func (r *typeReader) byte() (byte, error) {
	if r.pos >= r.end {
		return 0, errors.Truncated(errors.PhaseDecode, "type bytes end at %d", r.pos)
	}
	b := r.body[r.pos]
	r.pos++
	return b, nil
}

func (r *typeReader) uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.body[r.pos:r.end])
	if n <= 0 {
		return 0, errors.Truncated(errors.PhaseDecode, "bad varint at %d", r.pos)
	}
	r.pos += n
	return v, nil
}

func (r *typeReader) str() (string, error) {
	n, err := r.uvarint()
	if err != nil {
		return "", err
	}
	if n > uint64(r.end-r.pos) {
		return "", errors.Truncated(errors.PhaseDecode, "string of %d bytes at %d", n, r.pos)
	}
	b := r.body[r.pos : r.pos+int(n)]
	if !utf8.Valid(b) {
		return "", errors.New(errors.PhaseDecode, errors.KindInvalidUTF8).
			Detail("string at %d", r.pos).Build()
	}
	r.pos += int(n)
	return string(b), nil
}

func (r *typeReader) id() (decl.ID, error) {
	unit, err := r.uvarint()
	if err != nil {
		return decl.ID{}, err
	}
	index, err := r.uvarint()
	if err != nil {
		return decl.ID{}, err
	}
	if unit > 0xFFFF_FFFF || index > 0xFFFF_FFFF {
		return decl.ID{}, errors.New(errors.PhaseDecode, errors.KindOverflow).
			Detail("declaration id %d:%d", unit, index).Build()
	}
	return decl.ID{Unit: decl.UnitNum(unit), Index: uint32(index)}, nil
}

// abbrevReader follows a (pos, len) back-reference, returning a reader
// over the referenced bytes.
func (r *typeReader) abbrevReader() (*typeReader, error) {
	if r.depth+1 >= maxTypeDepth {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Detail("type nesting exceeds %d levels", maxTypeDepth).Build()
	}
	pos, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	n, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	if pos+n > uint64(len(r.body)) {
		return nil, errors.Truncated(errors.PhaseDecode,
			"abbreviation (%d, %d) escapes the blob", pos, n)
	}
	sub := newTypeReader(r.body, int(pos), int(pos+n))
	sub.depth = r.depth + 1
	return sub, nil
}

func (r *typeReader) ty() (decl.Type, error) {
	if r.depth >= maxTypeDepth {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Detail("type nesting exceeds %d levels", maxTypeDepth).Build()
	}
	r.depth++
	defer func() { r.depth-- }()

	c, err := r.byte()
	if err != nil {
		return nil, err
	}
	switch c {
	case tyBool:
		return decl.Bool{}, nil
	case tyChar:
		return decl.Char{}, nil
	case tyInt:
		bits, err := r.byte()
		if err != nil {
			return nil, err
		}
		return decl.Int{Bits: bits}, nil
	case tyUint:
		bits, err := r.byte()
		if err != nil {
			return nil, err
		}
		return decl.Uint{Bits: bits}, nil
	case tyFloat:
		bits, err := r.byte()
		if err != nil {
			return nil, err
		}
		return decl.Float{Bits: bits}, nil
	case tyStr:
		return decl.Str{}, nil
	case tyNever:
		return decl.Never{}, nil
	case tyTuple:
		elems, err := r.tyList()
		if err != nil {
			return nil, err
		}
		return decl.Tuple{Elems: elems}, nil
	case tyRef:
		mut, err := r.byte()
		if err != nil {
			return nil, err
		}
		elem, err := r.ty()
		if err != nil {
			return nil, err
		}
		return decl.Ref{Mutable: mut != 0, Elem: elem}, nil
	case tyRawPtr:
		mut, err := r.byte()
		if err != nil {
			return nil, err
		}
		elem, err := r.ty()
		if err != nil {
			return nil, err
		}
		return decl.RawPtr{Mutable: mut != 0, Elem: elem}, nil
	case tySlice:
		elem, err := r.ty()
		if err != nil {
			return nil, err
		}
		return decl.Slice{Elem: elem}, nil
	case tyArray:
		n, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		elem, err := r.ty()
		if err != nil {
			return nil, err
		}
		return decl.Array{Elem: elem, Len: n}, nil
	case tyFnPtr:
		abi, err := r.str()
		if err != nil {
			return nil, err
		}
		params, err := r.tyList()
		if err != nil {
			return nil, err
		}
		hasRet, err := r.byte()
		if err != nil {
			return nil, err
		}
		var ret decl.Type
		if hasRet != 0 {
			if ret, err = r.ty(); err != nil {
				return nil, err
			}
		}
		return decl.FnPtr{ABI: abi, Params: params, Ret: ret}, nil
	case tyNom:
		id, err := r.id()
		if err != nil {
			return nil, err
		}
		substs, err := r.tyList()
		if err != nil {
			return nil, err
		}
		return decl.Nominal{ID: id, Substs: substs}, nil
	case tyParam:
		space, err := r.byte()
		if err != nil {
			return nil, err
		}
		index, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		name, err := r.str()
		if err != nil {
			return nil, err
		}
		return decl.Param{Space: decl.ParamSpace(space), Index: uint32(index), Name: name}, nil
	case tyObject:
		tr, err := r.traitRefBody()
		if err != nil {
			return nil, err
		}
		return decl.Object{Trait: tr}, nil
	case tyAbbrev:
		sub, err := r.abbrevReader()
		if err != nil {
			return nil, err
		}
		return sub.ty()
	default:
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Detail("unknown type constructor 0x%02x", c).Build()
	}
}

func (r *typeReader) tyList() ([]decl.Type, error) {
	n, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	if n > uint64(r.end-r.pos) {
		return nil, errors.Truncated(errors.PhaseDecode, "type list claims %d entries", n)
	}
	out := make([]decl.Type, 0, n)
	for i := uint64(0); i < n; i++ {
		t, err := r.ty()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// traitRef decodes a standalone trait reference, direct or abbreviated.
func (r *typeReader) traitRef() (decl.TraitRef, error) {
	c, err := r.byte()
	if err != nil {
		return decl.TraitRef{}, err
	}
	switch c {
	case trDirect:
		return r.traitRefBody()
	case tyAbbrev:
		sub, err := r.abbrevReader()
		if err != nil {
			return decl.TraitRef{}, err
		}
		return sub.traitRef()
	default:
		return decl.TraitRef{}, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Detail("unknown trait-ref form 0x%02x", c).Build()
	}
}

func (r *typeReader) traitRefBody() (decl.TraitRef, error) {
	id, err := r.id()
	if err != nil {
		return decl.TraitRef{}, err
	}
	substs, err := r.tyList()
	if err != nil {
		return decl.TraitRef{}, err
	}
	return decl.TraitRef{ID: id, Substs: substs}, nil
}

func (r *typeReader) predicate() (decl.Predicate, error) {
	c, err := r.byte()
	if err != nil {
		return nil, err
	}
	switch c {
	case predTrait:
		tr, err := r.traitRef()
		if err != nil {
			return nil, err
		}
		return decl.TraitBound{Trait: tr}, nil
	case predOutlives:
		t, err := r.ty()
		if err != nil {
			return nil, err
		}
		return decl.OutlivesBound{Ty: t}, nil
	case predProjection:
		tr, err := r.traitRef()
		if err != nil {
			return nil, err
		}
		name, err := r.str()
		if err != nil {
			return nil, err
		}
		t, err := r.ty()
		if err != nil {
			return nil, err
		}
		return decl.ProjectionBound{Trait: tr, Name: name, Ty: t}, nil
	default:
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Detail("unknown predicate 0x%02x", c).Build()
	}
}

func (r *typeReader) typeParamDef() (decl.TypeParamDef, error) {
	var d decl.TypeParamDef
	var err error
	if d.Name, err = r.str(); err != nil {
		return d, err
	}
	if d.ID, err = r.id(); err != nil {
		return d, err
	}
	space, err := r.byte()
	if err != nil {
		return d, err
	}
	d.Space = decl.ParamSpace(space)
	index, err := r.uvarint()
	if err != nil {
		return d, err
	}
	d.Index = uint32(index)
	hasDefault, err := r.byte()
	if err != nil {
		return d, err
	}
	if hasDefault != 0 {
		if d.Default, err = r.ty(); err != nil {
			return d, err
		}
	}
	return d, nil
}

func (r *typeReader) regionParamDef() (decl.RegionParamDef, error) {
	var d decl.RegionParamDef
	var err error
	if d.Name, err = r.str(); err != nil {
		return d, err
	}
	if d.ID, err = r.id(); err != nil {
		return d, err
	}
	space, err := r.byte()
	if err != nil {
		return d, err
	}
	d.Space = decl.ParamSpace(space)
	index, err := r.uvarint()
	if err != nil {
		return d, err
	}
	d.Index = uint32(index)
	if d.Bounds, err = r.tyList(); err != nil {
		return d, err
	}
	return d, nil
}
