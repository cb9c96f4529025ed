package metadata

import (
	"go.uber.org/zap"

	"github.com/metaforge/unitmeta/decl"
	"github.com/metaforge/unitmeta/errors"
)

// needsInlineBody reports whether a function-like member exports an
// inlined copy of its body: generic members (the only compilable form
// downstream), trait defaults, and members whose attributes request it.
func needsInlineBody(generic, traitDefault bool, attrs []decl.Attribute) bool {
	return generic || traitDefault || decl.RequestsInline(attrs)
}

// wantsSymbol reports whether a member gets a linkage symbol. Members
// with type parameters have no meaningful single symbol.
func wantsSymbol(g decl.Generics) bool {
	return len(g.Types) == 0
}

func generic(g decl.Generics) bool {
	return len(g.Types) > 0
}

// beginItem opens a declaration record and records its index entry.
func (cx *encodeContext) beginItem(id decl.ID, kind decl.Kind) {
	cx.addEntry(id, cx.w.Pos())
	cx.w.Start(tagItem)
	cx.w.TaggedU8(tagItemKind, uint8(kind))
	cx.w.TaggedU64(tagItemID, id.Word())
}

func (cx *encodeContext) endItem() {
	cx.w.End()
}

func (cx *encodeContext) encodeName(name string) {
	if name != "" {
		cx.w.TaggedStr(tagItemName, name)
	}
}

func (cx *encodeContext) encodeVis(v decl.Visibility) {
	cx.w.TaggedU8(tagItemVis, uint8(v))
}

func (cx *encodeContext) encodePath(path []string) {
	cx.w.Start(tagItemPath)
	for i, seg := range path {
		if i == len(path)-1 {
			cx.w.TaggedStr(tagPathName, seg)
		} else {
			cx.w.TaggedStr(tagPathMod, seg)
		}
	}
	cx.w.End()
}

func (cx *encodeContext) encodeGenerics(g decl.Generics) {
	for _, tp := range g.Types {
		cx.w.Start(tagItemTypeParam)
		cx.encTypeParamDef(tp)
		cx.w.End()
	}
	for _, rp := range g.Regions {
		cx.w.Start(tagItemRegion)
		cx.encRegionParamDef(rp)
		cx.w.End()
	}
	for _, pe := range g.Predicates {
		cx.w.Start(tagItemPredicate)
		cx.rawByte(byte(pe.Space))
		cx.encPredicate(pe.Pred)
		cx.w.End()
	}
}

func (cx *encodeContext) encodeScheme(s decl.Scheme) {
	cx.encodeGenerics(s.Generics)
	cx.w.Start(tagItemType)
	cx.encTy(s.Ty)
	cx.w.End()
}

func (cx *encodeContext) encodeType(t decl.Type) {
	cx.w.Start(tagItemType)
	cx.encTy(t)
	cx.w.End()
}

func (cx *encodeContext) encodeTraitRefRecord(tag uint32, tr decl.TraitRef) {
	cx.w.Start(tag)
	cx.encTraitRef(tr)
	cx.w.End()
}

func (cx *encodeContext) encodeVariances(vs []decl.Variance) {
	if len(vs) == 0 {
		return
	}
	b := make([]byte, len(vs))
	for i, v := range vs {
		b[i] = byte(v)
	}
	cx.w.TaggedBytes(tagItemVariances, b)
}

// encodeSymbol attaches the declaration's linkage symbol. A missing
// expected symbol is an internal invariant violation.
func (cx *encodeContext) encodeSymbol(id decl.ID) {
	sym, ok := cx.unit.SymbolOf(id)
	if !ok {
		cx.fatal(errors.MissingSymbol(id.String()))
	}
	cx.w.TaggedStr(tagItemSymbol, sym)
}

func (cx *encodeContext) encodeAttrs(tag uint32, attrs []decl.Attribute) {
	cx.w.Start(tag)
	for _, a := range attrs {
		cx.encodeAttr(a)
	}
	cx.w.End()
}

func (cx *encodeContext) encodeAttr(a decl.Attribute) {
	cx.w.Start(tagAttr)
	if a.IsDocComment {
		cx.w.TaggedU8(tagAttrDoc, 1)
	}
	cx.encodeMeta(a.Meta)
	cx.w.End()
}

func (cx *encodeContext) encodeMeta(m decl.MetaItem) {
	switch v := m.(type) {
	case decl.MetaWord:
		cx.w.TaggedStr(tagMetaWord, v.Name)
	case decl.MetaNameValue:
		cx.w.Start(tagMetaNameValue)
		cx.w.TaggedStr(tagMetaName, v.Name)
		cx.w.TaggedStr(tagMetaValue, v.Value)
		cx.w.End()
	case decl.MetaList:
		cx.w.Start(tagMetaList)
		cx.w.TaggedStr(tagMetaName, v.Name)
		for _, it := range v.Items {
			cx.encodeMeta(it)
		}
		cx.w.End()
	default:
		cx.fatal(errors.New(errors.PhaseEncode, errors.KindUnsupported).
			Detail("meta item %T", m).Build())
	}
}

func (cx *encodeContext) encodeStability(s *decl.Stability) {
	if s == nil {
		return
	}
	cx.w.Start(tagStab)
	cx.w.TaggedStr(tagStabLevel, s.Level)
	if s.Feature != "" {
		cx.w.TaggedStr(tagStabFeature, s.Feature)
	}
	if s.Since != "" {
		cx.w.TaggedStr(tagStabSince, s.Since)
	}
	if s.Deprecated != "" {
		cx.w.TaggedStr(tagStabDeprecated, s.Deprecated)
	}
	if s.Reason != "" {
		cx.w.TaggedStr(tagStabReason, s.Reason)
	}
	cx.w.End()
}

// encodeItems writes the items section: all declaration records in one
// depth-first pass, then the item index over their offsets.
func (cx *encodeContext) encodeItems() {
	cx.w.Start(tagItems)

	cx.w.Start(tagItemsData)
	cx.encodeMod(cx.unit.Root)
	cx.w.End()

	cx.w.Start(tagIndex)
	cx.writeIndex(cx.items)
	cx.w.End()

	cx.w.End()

	cx.log.Debug("items section written",
		zap.Int("records", len(cx.items)))
}

// encodeMod writes a module record listing only direct children's
// identities, then recurses into the children. Implicit children such
// as tuple-struct constructors appear in the child list.
func (cx *encodeContext) encodeMod(m *decl.Mod) {
	cx.beginItem(m.ID, decl.KindMod)
	cx.encodeName(m.Name)
	cx.encodeVis(m.Vis)
	for _, it := range m.Items {
		cx.w.TaggedU64(tagItemChild, it.Base().ID.Word())
		if st, ok := it.(*decl.Struct); ok && st.Ctor != nil {
			cx.w.TaggedU64(tagItemChild, st.Ctor.ID.Word())
		}
	}
	cx.encodeReexports(m.ID)
	cx.encodePath(cx.itemPath(m.ID))
	cx.encodeAttrs(tagItemAttrs, m.Attrs)
	cx.encodeStability(m.Stab)
	cx.endItem()

	for _, it := range m.Items {
		cx.encodeItem(it)
	}
	cx.encodeReexportedMembers(m.ID)
}

func (cx *encodeContext) encodeItem(it decl.Item) {
	switch v := it.(type) {
	case *decl.Mod:
		cx.encodeMod(v)
	case *decl.Fn:
		cx.encodeFn(v)
	case *decl.Static:
		cx.encodeStatic(v)
	case *decl.Const:
		cx.encodeConst(v)
	case *decl.TypeAlias:
		cx.encodeTypeAlias(v)
	case *decl.Struct:
		cx.encodeStruct(v)
	case *decl.Enum:
		cx.encodeEnum(v)
	case *decl.Trait:
		cx.encodeTrait(v)
	case *decl.Impl:
		cx.encodeImpl(v)
	case *decl.DefaultImpl:
		cx.encodeDefaultImpl(v)
	case *decl.ForeignMod:
		cx.encodeForeignMod(v)
	default:
		cx.fatal(errors.New(errors.PhaseEncode, errors.KindUnsupported).
			Detail("declaration %T", it).Build())
	}
}

func (cx *encodeContext) encodeFn(f *decl.Fn) {
	cx.beginItem(f.ID, decl.KindFn)
	cx.encodeName(f.Name)
	cx.encodeVis(f.Vis)
	cx.encodeScheme(f.Scheme)
	cx.w.TaggedU8(tagItemConstness, uint8(f.Constness))
	if f.ABI != "" {
		cx.w.TaggedStr(tagItemABI, f.ABI)
	}
	for _, a := range f.ArgNames {
		cx.w.TaggedStr(tagItemArgName, a)
	}
	if wantsSymbol(f.Scheme.Generics) {
		cx.encodeSymbol(f.ID)
	}
	if needsInlineBody(generic(f.Scheme.Generics), false, f.Attrs) && f.Body != nil {
		cx.w.TaggedBytes(tagItemBody, f.Body)
	}
	cx.encodePath(cx.itemPath(f.ID))
	cx.encodeAttrs(tagItemAttrs, f.Attrs)
	cx.encodeStability(f.Stab)
	cx.endItem()
}

func (cx *encodeContext) encodeStatic(s *decl.Static) {
	kind := decl.KindStatic
	if s.Mutable {
		kind = decl.KindStaticMut
	}
	cx.beginItem(s.ID, kind)
	cx.encodeName(s.Name)
	cx.encodeVis(s.Vis)
	cx.encodeScheme(s.Scheme)
	cx.encodeSymbol(s.ID)
	cx.encodePath(cx.itemPath(s.ID))
	cx.encodeAttrs(tagItemAttrs, s.Attrs)
	cx.encodeStability(s.Stab)
	cx.endItem()
}

func (cx *encodeContext) encodeConst(c *decl.Const) {
	cx.beginItem(c.ID, decl.KindConst)
	cx.encodeName(c.Name)
	cx.encodeVis(c.Vis)
	cx.encodeScheme(c.Scheme)
	// Constants always carry their body; downstream units evaluate
	// them in place.
	cx.w.TaggedBytes(tagItemBody, c.Body)
	cx.encodePath(cx.itemPath(c.ID))
	cx.encodeAttrs(tagItemAttrs, c.Attrs)
	cx.encodeStability(c.Stab)
	cx.endItem()
}

func (cx *encodeContext) encodeTypeAlias(t *decl.TypeAlias) {
	cx.beginItem(t.ID, decl.KindTypeAlias)
	cx.encodeName(t.Name)
	cx.encodeVis(t.Vis)
	cx.encodeScheme(t.Scheme)
	cx.encodePath(cx.itemPath(t.ID))
	cx.encodeAttrs(tagItemAttrs, t.Attrs)
	cx.encodeStability(t.Stab)
	cx.endItem()
}

// encodeFields writes one record per field and returns their index
// entries, which the owning record embeds as a sub-index. Field records
// come first: the parent must close over a complete sub-index.
func (cx *encodeContext) encodeFields(parent decl.ID, fields []decl.Field) []indexEntry {
	entries := make([]indexEntry, 0, len(fields))
	for i := range fields {
		f := &fields[i]
		pos := cx.w.Pos()
		entries = append(entries, indexEntry{key: f.ID.Index, pos: uint32(pos)})

		kind := decl.KindField
		if f.Name == "" {
			kind = decl.KindFieldUnnamed
		}
		cx.beginItem(f.ID, kind)
		cx.encodeName(f.Name)
		cx.encodeVis(f.Vis)
		cx.w.TaggedU64(tagItemParent, parent.Word())
		cx.encodeScheme(f.Scheme)
		cx.endItem()
	}
	return entries
}

// encodeInherentImpls lists the impl blocks whose self type is this
// declaration, so downstream method resolution can find them without a
// full item scan.
func (cx *encodeContext) encodeInherentImpls(id decl.ID) {
	for _, im := range cx.unit.InherentImpls[id] {
		cx.w.TaggedU64(tagItemInherentImpl, im.Word())
	}
}

func (cx *encodeContext) encodeStruct(s *decl.Struct) {
	fieldEntries := cx.encodeFields(s.ID, s.Fields)

	cx.beginItem(s.ID, decl.KindStruct)
	cx.encodeName(s.Name)
	cx.encodeVis(s.Vis)
	cx.encodeScheme(s.Scheme)
	cx.encodeVariances(s.Variances)
	for i := range s.Fields {
		cx.w.TaggedU64(tagItemField, s.Fields[i].ID.Word())
	}
	if s.Ctor != nil {
		cx.w.TaggedU64(tagItemCtor, s.Ctor.ID.Word())
	}
	cx.w.Start(tagItemFieldIndex)
	cx.writeIndex(fieldEntries)
	cx.w.End()
	cx.encodePath(cx.itemPath(s.ID))
	cx.encodeInherentImpls(s.ID)
	cx.encodeAttrs(tagItemAttrs, s.Attrs)
	cx.encodeStability(s.Stab)
	cx.endItem()

	if s.Ctor != nil {
		cx.encodeCtor(s)
	}
}

// encodeCtor writes the standalone record of a tuple struct's implicit
// constructor, carrying the struct's identity as parent.
func (cx *encodeContext) encodeCtor(s *decl.Struct) {
	ctor := s.Ctor
	cx.beginItem(ctor.ID, decl.KindCtor)
	cx.encodeName(s.Name)
	cx.encodeVis(s.Vis)
	cx.w.TaggedU64(tagItemParent, s.ID.Word())
	cx.encodeScheme(ctor.Scheme)
	if wantsSymbol(ctor.Scheme.Generics) {
		cx.encodeSymbol(ctor.ID)
	}
	cx.encodePath(cx.itemPath(ctor.ID))
	cx.endItem()
}

func (cx *encodeContext) encodeEnum(e *decl.Enum) {
	cx.beginItem(e.ID, decl.KindEnum)
	cx.encodeName(e.Name)
	cx.encodeVis(e.Vis)
	cx.encodeScheme(e.Scheme)
	cx.encodeVariances(e.Variances)
	for i := range e.Variants {
		cx.w.TaggedU64(tagItemVariant, e.Variants[i].ID.Word())
	}
	if needsInlineBody(generic(e.Scheme.Generics), false, e.Attrs) && e.Body != nil {
		cx.w.TaggedBytes(tagItemBody, e.Body)
	}
	cx.encodePath(cx.itemPath(e.ID))
	cx.encodeInherentImpls(e.ID)
	cx.encodeAttrs(tagItemAttrs, e.Attrs)
	cx.encodeStability(e.Stab)
	cx.endItem()

	// A variant with no explicit discriminant gets previous+1, the
	// first one 0; the value is encoded only when it diverges from
	// that default.
	var next uint64
	for i := range e.Variants {
		v := &e.Variants[i]
		actual := next
		explicit := false
		if v.Disr != nil {
			actual = *v.Disr
			explicit = actual != next
		}
		cx.encodeVariant(e.ID, v, actual, explicit)
		next = actual + 1
	}
}

func (cx *encodeContext) encodeVariant(parent decl.ID, v *decl.Variant, disr uint64, explicit bool) {
	var fieldEntries []indexEntry
	if v.IsStruct {
		fieldEntries = cx.encodeFields(v.ID, v.Fields)
	}

	kind := decl.KindVariantTuple
	if v.IsStruct {
		kind = decl.KindVariantStruct
	}
	cx.beginItem(v.ID, kind)
	cx.encodeName(v.Name)
	cx.encodeVis(v.Vis)
	cx.w.TaggedU64(tagItemParent, parent.Word())
	cx.encodeScheme(v.Scheme)
	if explicit {
		cx.w.TaggedU64(tagItemDisr, disr)
	}
	if v.IsStruct {
		for i := range v.Fields {
			cx.w.TaggedU64(tagItemField, v.Fields[i].ID.Word())
		}
		cx.w.Start(tagItemFieldIndex)
		cx.writeIndex(fieldEntries)
		cx.w.End()
	}
	cx.encodePath(cx.itemPath(v.ID))
	cx.encodeAttrs(tagItemAttrs, v.Attrs)
	cx.encodeStability(v.Stab)
	cx.endItem()
}

func (cx *encodeContext) encodeTrait(t *decl.Trait) {
	cx.beginItem(t.ID, decl.KindTrait)
	cx.encodeName(t.Name)
	cx.encodeVis(t.Vis)
	cx.w.TaggedU8(tagItemUnsafety, uint8(t.Unsafety))
	if t.HasDefaultImpl {
		cx.w.TaggedU8(tagItemDefaultImpl, 1)
	}
	cx.encodeGenerics(t.Generics)
	cx.encodeTraitRefRecord(tagItemTraitRef, t.Ref)
	cx.encodeVariances(t.Variances)
	for _, sb := range t.SuperBounds {
		cx.w.Start(tagItemSuperBound)
		cx.rawByte(byte(sb.Space))
		cx.encPredicate(sb.Pred)
		cx.w.End()
	}
	for _, n := range t.AssocTypeNames {
		cx.w.TaggedStr(tagItemAssocTypeName, n)
	}
	for _, ti := range t.Items {
		cx.w.TaggedU64(tagItemMember, ti.TraitBase().ID.Word())
	}
	cx.encodePath(cx.itemPath(t.ID))
	for _, im := range cx.unit.TraitImpls[t.ID] {
		cx.w.TaggedU64(tagItemExtensionImpl, im.Word())
	}
	cx.encodeInherentImpls(t.ID)
	cx.encodeAttrs(tagItemAttrs, t.Attrs)
	cx.encodeStability(t.Stab)
	cx.endItem()

	for _, ti := range t.Items {
		cx.encodeTraitMember(t.ID, ti)
	}
}

// encodeTraitMember writes one trait member record. A member with a
// default body carries a provided marker and the inlined body; a
// required member carries neither.
func (cx *encodeContext) encodeTraitMember(owner decl.ID, ti decl.TraitItem) {
	switch m := ti.(type) {
	case *decl.Method:
		kind := decl.KindMethod
		if m.Self.Static() {
			kind = decl.KindStaticMethod
		}
		cx.beginItem(m.ID, kind)
		cx.encodeName(m.Name)
		cx.encodeVis(m.Vis)
		cx.w.TaggedU64(tagItemParent, owner.Word())
		cx.encodeScheme(m.Scheme)
		cx.w.TaggedU8(tagItemSelf, uint8(m.Self))
		cx.w.TaggedU8(tagItemConstness, uint8(m.Constness))
		for _, a := range m.ArgNames {
			cx.w.TaggedStr(tagItemArgName, a)
		}
		if m.HasBody {
			cx.w.TaggedU8(tagItemProvided, 1)
			if m.Body != nil {
				cx.w.TaggedBytes(tagItemBody, m.Body)
			}
			if wantsSymbol(m.Scheme.Generics) {
				cx.encodeSymbol(m.ID)
			}
		} else {
			cx.w.TaggedU8(tagItemProvided, 0)
		}
		cx.encodePath(cx.itemPath(m.ID))
		cx.encodeAttrs(tagItemAttrs, m.Attrs)
		cx.encodeStability(m.Stab)
		cx.endItem()

	case *decl.AssocConst:
		cx.beginItem(m.ID, decl.KindAssocConst)
		cx.encodeName(m.Name)
		cx.encodeVis(m.Vis)
		cx.w.TaggedU64(tagItemParent, owner.Word())
		cx.encodeScheme(m.Scheme)
		if m.Body != nil {
			cx.w.TaggedU8(tagItemProvided, 1)
			cx.w.TaggedBytes(tagItemBody, m.Body)
		} else {
			cx.w.TaggedU8(tagItemProvided, 0)
		}
		cx.encodePath(cx.itemPath(m.ID))
		cx.encodeAttrs(tagItemAttrs, m.Attrs)
		cx.encodeStability(m.Stab)
		cx.endItem()

	case *decl.AssocType:
		cx.beginItem(m.ID, decl.KindAssocType)
		cx.encodeName(m.Name)
		cx.encodeVis(m.Vis)
		cx.w.TaggedU64(tagItemParent, owner.Word())
		if m.Ty != nil {
			cx.encodeType(m.Ty)
		}
		cx.encodePath(cx.itemPath(m.ID))
		cx.encodeAttrs(tagItemAttrs, m.Attrs)
		cx.encodeStability(m.Stab)
		cx.endItem()

	default:
		cx.fatal(errors.New(errors.PhaseEncode, errors.KindUnsupported).
			Detail("trait member %T", ti).Build())
	}
}

// encodeImpl writes an impl record listing its full resolved member
// list in the originating trait's order: explicit members are a
// prefix, the rest are inherited defaults carrying only their origin.
func (cx *encodeContext) encodeImpl(im *decl.Impl) {
	cx.beginItem(im.ID, decl.KindImpl)
	cx.encodeName(im.BaseTypeName)
	cx.encodeVis(im.Vis)
	cx.w.TaggedU8(tagItemUnsafety, uint8(im.Unsafety))
	cx.w.TaggedU8(tagItemPolarity, uint8(im.Polarity))
	cx.encodeScheme(im.Scheme)
	if im.Trait != nil {
		cx.encodeTraitRefRecord(tagItemTraitRef, *im.Trait)
	}
	for _, ti := range im.Items {
		cx.w.TaggedU64(tagItemMember, ti.TraitBase().ID.Word())
	}
	cx.encodePath(cx.itemPath(im.ID))
	cx.encodeAttrs(tagItemAttrs, im.Attrs)
	cx.encodeStability(im.Stab)
	cx.endItem()

	for i, ti := range im.Items {
		cx.encodeImplMember(im, ti, i < im.NumExplicit)
	}
}

func (cx *encodeContext) encodeImplMember(im *decl.Impl, ti decl.TraitItem, explicit bool) {
	implGeneric := generic(im.Scheme.Generics)

	switch m := ti.(type) {
	case *decl.Method:
		kind := decl.KindMethod
		if m.Self.Static() {
			kind = decl.KindStaticMethod
		}
		cx.beginItem(m.ID, kind)
		cx.encodeName(m.Name)
		cx.encodeVis(m.Vis)
		cx.w.TaggedU64(tagItemParent, im.ID.Word())
		cx.encodeScheme(m.Scheme)
		cx.w.TaggedU8(tagItemSelf, uint8(m.Self))
		cx.w.TaggedU8(tagItemConstness, uint8(m.Constness))
		for _, a := range m.ArgNames {
			cx.w.TaggedStr(tagItemArgName, a)
		}
		if explicit {
			isGeneric := implGeneric || generic(m.Scheme.Generics)
			if wantsSymbol(m.Scheme.Generics) && !implGeneric {
				cx.encodeSymbol(m.ID)
			}
			if needsInlineBody(isGeneric, false, m.Attrs) && m.Body != nil {
				cx.w.TaggedBytes(tagItemBody, m.Body)
			}
		} else if m.ProvidedSource != nil {
			// Inherited default: no local body, only the origin.
			cx.w.TaggedU64(tagItemSource, m.ProvidedSource.Word())
		}
		cx.encodePath(cx.itemPath(m.ID))
		cx.encodeAttrs(tagItemAttrs, m.Attrs)
		cx.encodeStability(m.Stab)
		cx.endItem()

	case *decl.AssocConst:
		cx.beginItem(m.ID, decl.KindAssocConst)
		cx.encodeName(m.Name)
		cx.encodeVis(m.Vis)
		cx.w.TaggedU64(tagItemParent, im.ID.Word())
		cx.encodeScheme(m.Scheme)
		if explicit && m.Body != nil {
			cx.w.TaggedBytes(tagItemBody, m.Body)
		} else if m.Default != nil {
			cx.w.TaggedU64(tagItemSource, m.Default.Word())
		}
		cx.encodePath(cx.itemPath(m.ID))
		cx.encodeAttrs(tagItemAttrs, m.Attrs)
		cx.encodeStability(m.Stab)
		cx.endItem()

	case *decl.AssocType:
		cx.beginItem(m.ID, decl.KindAssocType)
		cx.encodeName(m.Name)
		cx.encodeVis(m.Vis)
		cx.w.TaggedU64(tagItemParent, im.ID.Word())
		if m.Ty != nil {
			cx.encodeType(m.Ty)
		}
		cx.encodePath(cx.itemPath(m.ID))
		cx.encodeAttrs(tagItemAttrs, m.Attrs)
		cx.encodeStability(m.Stab)
		cx.endItem()

	default:
		cx.fatal(errors.New(errors.PhaseEncode, errors.KindUnsupported).
			Detail("impl member %T", ti).Build())
	}
}

func (cx *encodeContext) encodeDefaultImpl(d *decl.DefaultImpl) {
	cx.beginItem(d.ID, decl.KindDefaultImpl)
	cx.encodeName(d.Name)
	cx.encodeVis(d.Vis)
	cx.w.TaggedU8(tagItemUnsafety, uint8(d.Unsafety))
	cx.encodeTraitRefRecord(tagItemTraitRef, d.Trait)
	cx.encodePath(cx.itemPath(d.ID))
	cx.endItem()
}

func (cx *encodeContext) encodeForeignMod(fm *decl.ForeignMod) {
	cx.beginItem(fm.ID, decl.KindForeignMod)
	cx.encodeName(fm.Name)
	cx.encodeVis(fm.Vis)
	cx.w.TaggedStr(tagItemABI, fm.ABI)
	for _, fi := range fm.Items {
		cx.w.TaggedU64(tagItemChild, fi.Base().ID.Word())
	}
	cx.encodePath(cx.itemPath(fm.ID))
	cx.encodeAttrs(tagItemAttrs, fm.Attrs)
	cx.endItem()

	for _, fi := range fm.Items {
		cx.encodeForeignItem(fm, fi)
	}
}

func (cx *encodeContext) encodeForeignItem(fm *decl.ForeignMod, fi decl.ForeignItem) {
	switch v := fi.(type) {
	case *decl.ForeignFn:
		cx.beginItem(v.ID, decl.KindFn)
		cx.encodeName(v.Name)
		cx.encodeVis(v.Vis)
		cx.encodeScheme(v.Scheme)
		cx.w.TaggedStr(tagItemABI, fm.ABI)
		for _, a := range v.ArgNames {
			cx.w.TaggedStr(tagItemArgName, a)
		}
		if wantsSymbol(v.Scheme.Generics) {
			cx.encodeSymbol(v.ID)
		}
		// Intrinsics inline their body: there is nothing to link
		// against.
		if v.Intrinsic && v.Body != nil {
			cx.w.TaggedBytes(tagItemBody, v.Body)
		}
		cx.encodePath(cx.itemPath(v.ID))
		cx.encodeAttrs(tagItemAttrs, v.Attrs)
		cx.encodeStability(v.Stab)
		cx.endItem()

	case *decl.ForeignStatic:
		kind := decl.KindStatic
		if v.Mutable {
			kind = decl.KindStaticMut
		}
		cx.beginItem(v.ID, kind)
		cx.encodeName(v.Name)
		cx.encodeVis(v.Vis)
		cx.encodeScheme(v.Scheme)
		cx.encodeSymbol(v.ID)
		cx.encodePath(cx.itemPath(v.ID))
		cx.encodeAttrs(tagItemAttrs, v.Attrs)
		cx.encodeStability(v.Stab)
		cx.endItem()

	default:
		cx.fatal(errors.New(errors.PhaseEncode, errors.KindUnsupported).
			Detail("foreign item %T", fi).Build())
	}
}
