package metadata

import (
	"github.com/metaforge/unitmeta/decl"
	"github.com/metaforge/unitmeta/errors"
	"github.com/metaforge/unitmeta/tlv"
)

// Item is a lazy view over one declaration record. Accessors decode on
// demand; nothing is cached, so views are safe to share.
type Item struct {
	blob *Blob
	doc  tlv.Doc
}

func (it *Item) child(tag uint32) (tlv.Doc, bool, error) {
	d, ok, err := it.doc.Child(tag)
	if err != nil {
		return tlv.Doc{}, false, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "item record")
	}
	return d, ok, nil
}

func (it *Item) childU8(tag uint32) (uint8, bool, error) {
	d, ok, err := it.child(tag)
	if err != nil || !ok {
		return 0, false, err
	}
	v, err := d.U8()
	if err != nil {
		return 0, false, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "item record")
	}
	return v, true, nil
}

func (it *Item) childWord(tag uint32) (decl.ID, bool, error) {
	d, ok, err := it.child(tag)
	if err != nil || !ok {
		return decl.ID{}, false, err
	}
	v, err := d.U64()
	if err != nil {
		return decl.ID{}, false, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "item record")
	}
	return decl.IDFromWord(v), true, nil
}

func (it *Item) wordList(tag uint32) ([]decl.ID, error) {
	var out []decl.ID
	err := eachChild(it.doc, func(c tlv.Doc) error {
		if c.Tag != tag {
			return nil
		}
		v, err := c.U64()
		if err != nil {
			return err
		}
		out = append(out, decl.IDFromWord(v))
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "item record")
	}
	return out, nil
}

func (it *Item) strList(tag uint32) ([]string, error) {
	var out []string
	err := eachChild(it.doc, func(c tlv.Doc) error {
		if c.Tag != tag {
			return nil
		}
		s, err := c.Str()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "item record")
	}
	return out, nil
}

// Kind returns the declaration kind tag.
func (it *Item) Kind() (decl.Kind, error) {
	v, ok, err := it.childU8(tagItemKind)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.NotFound(errors.PhaseDecode, "item kind")
	}
	return decl.Kind(v), nil
}

// ID returns the declaration's identity.
func (it *Item) ID() (decl.ID, error) {
	id, ok, err := it.childWord(tagItemID)
	if err != nil {
		return decl.ID{}, err
	}
	if !ok {
		return decl.ID{}, errors.NotFound(errors.PhaseDecode, "item id")
	}
	return id, nil
}

// Name returns the declaration's name, empty for unnamed records.
func (it *Item) Name() (string, error) {
	s, err := it.doc.ChildStr(tagItemName)
	if err != nil {
		return "", errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "item record")
	}
	return s, nil
}

// Visibility returns the declaration's downstream visibility.
func (it *Item) Visibility() (decl.Visibility, error) {
	v, ok, err := it.childU8(tagItemVis)
	if err != nil || !ok {
		return 0, err
	}
	return decl.Visibility(v), nil
}

// Path returns the full module path, final segment included.
func (it *Item) Path() ([]string, error) {
	d, ok, err := it.child(tagItemPath)
	if err != nil || !ok {
		return nil, err
	}
	var out []string
	walkErr := eachChild(d, func(c tlv.Doc) error {
		if c.Tag != tagPathMod && c.Tag != tagPathName {
			return nil
		}
		s, err := c.Str()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	if walkErr != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, walkErr, "item path")
	}
	return out, nil
}

// Attrs returns the declaration's attributes.
func (it *Item) Attrs() ([]decl.Attribute, error) {
	d, ok, err := it.child(tagItemAttrs)
	if err != nil || !ok {
		return nil, err
	}
	return decodeAttrs(d)
}

// Stability returns the stability promise, nil when none was made.
func (it *Item) Stability() (*decl.Stability, error) {
	d, ok, err := it.child(tagStab)
	if err != nil || !ok {
		return nil, err
	}
	return decodeStability(d)
}

// Children returns a module's direct children, or a foreign block's
// item list.
func (it *Item) Children() ([]decl.ID, error) {
	return it.wordList(tagItemChild)
}

// Members returns the member list of a trait or impl, in the
// originating trait's order.
func (it *Item) Members() ([]decl.ID, error) {
	return it.wordList(tagItemMember)
}

// Variants returns an enum's variant ids.
func (it *Item) Variants() ([]decl.ID, error) {
	return it.wordList(tagItemVariant)
}

// InherentImpls returns the impl blocks whose self type is this
// declaration.
func (it *Item) InherentImpls() ([]decl.ID, error) {
	return it.wordList(tagItemInherentImpl)
}

// ExtensionImpls returns the local impl blocks of this trait.
func (it *Item) ExtensionImpls() ([]decl.ID, error) {
	return it.wordList(tagItemExtensionImpl)
}

// Fields returns a struct's or struct variant's field ids.
func (it *Item) Fields() ([]decl.ID, error) {
	return it.wordList(tagItemField)
}

// Field resolves one field through the record's embedded sub-index.
func (it *Item) Field(id decl.ID) (*Item, error) {
	d, ok, err := it.child(tagItemFieldIndex)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.NotFound(errors.PhaseIndex, "field sub-index")
	}
	table, err := indexTable(d)
	if err != nil {
		return nil, err
	}
	off, ok, err := lookupIndex(it.blob.body, table, id.Index)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New(errors.PhaseIndex, errors.KindNotFound).
			Decl(id.String()).Detail("no field entry").Build()
	}
	return it.blob.itemAt(int(off))
}

// Ctor returns a tuple struct's implicit constructor id.
func (it *Item) Ctor() (decl.ID, bool, error) {
	return it.childWord(tagItemCtor)
}

// Parent returns the owning declaration of a field, variant,
// constructor or member.
func (it *Item) Parent() (decl.ID, bool, error) {
	return it.childWord(tagItemParent)
}

// Source returns the trait declaration an inherited default points at.
func (it *Item) Source() (decl.ID, bool, error) {
	return it.childWord(tagItemSource)
}

// Symbol returns the linkage symbol when one was attached.
func (it *Item) Symbol() (string, bool, error) {
	d, ok, err := it.child(tagItemSymbol)
	if err != nil || !ok {
		return "", false, err
	}
	s, err := d.Str()
	if err != nil {
		return "", false, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "symbol")
	}
	return s, true, nil
}

// Body returns the inlined body when one was attached.
func (it *Item) Body() ([]byte, bool, error) {
	d, ok, err := it.child(tagItemBody)
	if err != nil || !ok {
		return nil, false, err
	}
	return d.Bytes(), true, nil
}

// Provided reports a trait member's marker: provided (with a default
// body) or required. The second result is false on records without the
// marker.
func (it *Item) Provided() (bool, bool, error) {
	v, ok, err := it.childU8(tagItemProvided)
	return v != 0, ok, err
}

// Self returns a method's receiver category.
func (it *Item) Self() (decl.SelfKind, error) {
	v, ok, err := it.childU8(tagItemSelf)
	if err != nil || !ok {
		return 0, err
	}
	return decl.SelfKind(v), nil
}

// Constness reports whether a function is compile-time evaluable.
func (it *Item) Constness() (decl.Constness, error) {
	v, ok, err := it.childU8(tagItemConstness)
	if err != nil || !ok {
		return decl.NotConst, err
	}
	return decl.Constness(v), nil
}

// Unsafety returns a trait's or impl's safety marker.
func (it *Item) Unsafety() (decl.Unsafety, error) {
	v, _, err := it.childU8(tagItemUnsafety)
	return decl.Unsafety(v), err
}

// Polarity returns an impl's polarity.
func (it *Item) Polarity() (decl.Polarity, error) {
	v, _, err := it.childU8(tagItemPolarity)
	return decl.Polarity(v), err
}

// HasDefaultImpl reports whether a trait carries a default impl.
func (it *Item) HasDefaultImpl() (bool, error) {
	v, _, err := it.childU8(tagItemDefaultImpl)
	return v != 0, err
}

// ABI returns the declared ABI, empty for the default.
func (it *Item) ABI() (string, error) {
	s, err := it.doc.ChildStr(tagItemABI)
	if err != nil {
		return "", errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "item record")
	}
	return s, nil
}

// ArgNames returns a function's argument names.
func (it *Item) ArgNames() ([]string, error) {
	return it.strList(tagItemArgName)
}

// AssocTypeNames returns a trait's associated type names.
func (it *Item) AssocTypeNames() ([]string, error) {
	return it.strList(tagItemAssocTypeName)
}

// Disr returns a variant's explicit discriminant. Absent means the
// implied previous+1 default.
func (it *Item) Disr() (uint64, bool, error) {
	d, ok, err := it.child(tagItemDisr)
	if err != nil || !ok {
		return 0, false, err
	}
	v, err := d.U64()
	if err != nil {
		return 0, false, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "discriminant")
	}
	return v, true, nil
}

// Variances returns the declared parameter variances.
func (it *Item) Variances() ([]decl.Variance, error) {
	d, ok, err := it.child(tagItemVariances)
	if err != nil || !ok {
		return nil, err
	}
	raw := d.Bytes()
	out := make([]decl.Variance, len(raw))
	for i, b := range raw {
		out[i] = decl.Variance(b)
	}
	return out, nil
}

// Reexports returns a module record's re-export edges.
func (it *Item) Reexports() ([]decl.Export, error) {
	exports, err := decodeReexports(it.doc)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "item record")
	}
	return exports, nil
}

// Type decodes the declaration's computed type.
func (it *Item) Type() (decl.Type, error) {
	d, ok, err := it.child(tagItemType)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.NotFound(errors.PhaseDecode, "item type")
	}
	return newTypeReader(it.blob.body, d.Start, d.End).ty()
}

// TraitRef decodes the trait reference of a trait, trait impl or
// default impl.
func (it *Item) TraitRef() (decl.TraitRef, bool, error) {
	d, ok, err := it.child(tagItemTraitRef)
	if err != nil || !ok {
		return decl.TraitRef{}, false, err
	}
	tr, err := newTypeReader(it.blob.body, d.Start, d.End).traitRef()
	if err != nil {
		return decl.TraitRef{}, false, err
	}
	return tr, true, nil
}

// Generics decodes the declaration's parameters and bounds.
func (it *Item) Generics() (decl.Generics, error) {
	var g decl.Generics
	err := eachChild(it.doc, func(c tlv.Doc) error {
		switch c.Tag {
		case tagItemTypeParam:
			d, err := newTypeReader(it.blob.body, c.Start, c.End).typeParamDef()
			if err != nil {
				return err
			}
			g.Types = append(g.Types, d)
		case tagItemRegion:
			d, err := newTypeReader(it.blob.body, c.Start, c.End).regionParamDef()
			if err != nil {
				return err
			}
			g.Regions = append(g.Regions, d)
		case tagItemPredicate:
			pe, err := decodePredicateEntry(it.blob.body, c)
			if err != nil {
				return err
			}
			g.Predicates = append(g.Predicates, pe)
		}
		return nil
	})
	if err != nil {
		return decl.Generics{}, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "item generics")
	}
	return g, nil
}

// SuperBounds decodes a trait's super bounds.
func (it *Item) SuperBounds() ([]decl.PredicateEntry, error) {
	var out []decl.PredicateEntry
	err := eachChild(it.doc, func(c tlv.Doc) error {
		if c.Tag != tagItemSuperBound {
			return nil
		}
		pe, err := decodePredicateEntry(it.blob.body, c)
		if err != nil {
			return err
		}
		out = append(out, pe)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "trait super bounds")
	}
	return out, nil
}

func decodePredicateEntry(body []byte, c tlv.Doc) (decl.PredicateEntry, error) {
	r := newTypeReader(body, c.Start, c.End)
	space, err := r.byte()
	if err != nil {
		return decl.PredicateEntry{}, err
	}
	p, err := r.predicate()
	if err != nil {
		return decl.PredicateEntry{}, err
	}
	return decl.PredicateEntry{Space: decl.ParamSpace(space), Pred: p}, nil
}

func decodeAttrs(d tlv.Doc) ([]decl.Attribute, error) {
	var out []decl.Attribute
	err := eachChild(d, func(c tlv.Doc) error {
		if c.Tag != tagAttr {
			return nil
		}
		a, err := decodeAttr(c)
		if err != nil {
			return err
		}
		out = append(out, a)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "attributes")
	}
	return out, nil
}

func decodeAttr(d tlv.Doc) (decl.Attribute, error) {
	var a decl.Attribute
	err := eachChild(d, func(c tlv.Doc) error {
		switch c.Tag {
		case tagAttrDoc:
			v, err := c.U8()
			if err != nil {
				return err
			}
			a.IsDocComment = v != 0
		default:
			m, err := decodeMeta(c)
			if err != nil {
				return err
			}
			a.Meta = m
		}
		return nil
	})
	if err != nil {
		return decl.Attribute{}, err
	}
	if a.Meta == nil {
		return decl.Attribute{}, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Detail("attribute without meta item").Build()
	}
	return a, nil
}

func decodeMeta(d tlv.Doc) (decl.MetaItem, error) {
	switch d.Tag {
	case tagMetaWord:
		name, err := d.Str()
		if err != nil {
			return nil, err
		}
		return decl.MetaWord{Name: name}, nil
	case tagMetaNameValue:
		name, err := d.ChildStr(tagMetaName)
		if err != nil {
			return nil, err
		}
		value, err := d.ChildStr(tagMetaValue)
		if err != nil {
			return nil, err
		}
		return decl.MetaNameValue{Name: name, Value: value}, nil
	case tagMetaList:
		m := decl.MetaList{}
		err := eachChild(d, func(c tlv.Doc) error {
			if c.Tag == tagMetaName {
				name, err := c.Str()
				if err != nil {
					return err
				}
				m.Name = name
				return nil
			}
			item, err := decodeMeta(c)
			if err != nil {
				return err
			}
			m.Items = append(m.Items, item)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Detail("unknown meta item tag %d", d.Tag).Build()
	}
}

func decodeStability(d tlv.Doc) (*decl.Stability, error) {
	var s decl.Stability
	var err error
	if s.Level, err = d.ChildStr(tagStabLevel); err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "stability")
	}
	if s.Feature, err = d.ChildStr(tagStabFeature); err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "stability")
	}
	if s.Since, err = d.ChildStr(tagStabSince); err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "stability")
	}
	if s.Deprecated, err = d.ChildStr(tagStabDeprecated); err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "stability")
	}
	if s.Reason, err = d.ChildStr(tagStabReason); err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "stability")
	}
	return &s, nil
}
