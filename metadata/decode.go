package metadata

import (
	"bytes"
	"encoding/binary"

	"github.com/metaforge/unitmeta/decl"
	"github.com/metaforge/unitmeta/errors"
	"github.com/metaforge/unitmeta/tlv"
)

// Blob is an open metadata blob. It is immutable and safe for
// concurrent readers: every record decodes on its own, so lookups
// share nothing but the underlying bytes.
type Blob struct {
	body []byte

	// itemTable is the payload of the item index's bucket-start
	// table, located once at open.
	itemTable []byte
}

// Open verifies the version tag and length prefix and returns a
// random-access view of the blob. Container tools may pad the blob;
// bytes past the length prefix are ignored.
func Open(raw []byte) (*Blob, error) {
	if len(raw) < frameHeaderLen {
		return nil, errors.Truncated(errors.PhaseFrame,
			"%d bytes, need at least %d", len(raw), frameHeaderLen)
	}
	if !bytes.Equal(raw[:len(versionTag)], versionTag[:]) {
		return nil, errors.VersionMismatch(raw[:len(versionTag)])
	}
	n := binary.BigEndian.Uint32(raw[len(versionTag):frameHeaderLen])
	if uint64(len(raw)-frameHeaderLen) < uint64(n) {
		return nil, errors.Truncated(errors.PhaseFrame,
			"length prefix claims %d bytes, %d remain", n, len(raw)-frameHeaderLen)
	}

	b := &Blob{body: raw[frameHeaderLen : frameHeaderLen+int(n)]}
	table, err := b.locateItemTable()
	if err != nil {
		return nil, err
	}
	b.itemTable = table
	return b, nil
}

func (b *Blob) locateItemTable() ([]byte, error) {
	items, ok, err := tlv.Root(b.body).Child(tagItems)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "items section")
	}
	if !ok {
		return nil, errors.NotFound(errors.PhaseDecode, "items section")
	}
	index, ok, err := items.Child(tagIndex)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "item index")
	}
	if !ok {
		return nil, errors.NotFound(errors.PhaseDecode, "item index")
	}
	return indexTable(index)
}

// indexTable extracts and validates the bucket-start table of an index
// record, top-level or embedded.
func indexTable(index tlv.Doc) ([]byte, error) {
	table, ok, err := index.Child(tagIndexTable)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseIndex, errors.KindInvalidData, err, "bucket table")
	}
	if !ok {
		return nil, errors.NotFound(errors.PhaseIndex, "bucket table")
	}
	if table.Len() != indexBuckets*4 {
		return nil, errors.New(errors.PhaseIndex, errors.KindInvalidData).
			Detail("bucket table has %d bytes, want %d", table.Len(), indexBuckets*4).Build()
	}
	return table.Bytes(), nil
}

// lookupIndex performs the two-hop lookup: bucket-start table to
// bucket record, then a linear scan of its raw (offset, key) pairs.
func lookupIndex(body, table []byte, key uint32) (uint32, bool, error) {
	start := binary.BigEndian.Uint32(table[bucketOf(key)*4:])
	bucket, err := tlv.At(body, int(start))
	if err != nil {
		return 0, false, errors.Wrap(errors.PhaseIndex, errors.KindTruncated, err, "bucket record")
	}
	if bucket.Tag != tagIndexBucket {
		return 0, false, errors.New(errors.PhaseIndex, errors.KindInvalidData).
			Detail("record at %d has tag %d, want bucket", start, bucket.Tag).Build()
	}
	pairs := bucket.Bytes()
	if len(pairs)%8 != 0 {
		return 0, false, errors.New(errors.PhaseIndex, errors.KindInvalidData).
			Detail("bucket payload of %d bytes is not pair-aligned", len(pairs)).Build()
	}
	for i := 0; i < len(pairs); i += 8 {
		if binary.BigEndian.Uint32(pairs[i+4:]) == key {
			return binary.BigEndian.Uint32(pairs[i:]), true, nil
		}
	}
	return 0, false, nil
}

// Item resolves a local declaration by id in two hops.
func (b *Blob) Item(id decl.ID) (*Item, error) {
	off, ok, err := lookupIndex(b.body, b.itemTable, id.Index)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New(errors.PhaseIndex, errors.KindNotFound).
			Decl(id.String()).Detail("no index entry").Build()
	}
	return b.itemAt(int(off))
}

func (b *Blob) itemAt(off int) (*Item, error) {
	doc, err := tlv.At(b.body, off)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindTruncated, err, "item record")
	}
	if doc.Tag != tagItem {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Detail("record at %d has tag %d, want item", off, doc.Tag).Build()
	}
	return &Item{blob: b, doc: doc}, nil
}

// EachItem walks every declaration record in blob order, mirrored
// re-export records included, until fn returns an error.
func (b *Blob) EachItem(fn func(*Item) error) error {
	items, ok, err := tlv.Root(b.body).Child(tagItems)
	if err != nil {
		return errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "items section")
	}
	if !ok {
		return errors.NotFound(errors.PhaseDecode, "items section")
	}
	data, ok, err := items.Child(tagItemsData)
	if err != nil {
		return errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "items data")
	}
	if !ok {
		return errors.NotFound(errors.PhaseDecode, "items data")
	}
	return eachChild(data, func(c tlv.Doc) error {
		if c.Tag != tagItem {
			return nil
		}
		return fn(&Item{blob: b, doc: c})
	})
}

func (b *Blob) topStr(tag uint32) (string, error) {
	s, err := tlv.Root(b.body).ChildStr(tag)
	if err != nil {
		return "", errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "header section")
	}
	return s, nil
}

func (b *Blob) topChild(tag uint32) (tlv.Doc, bool, error) {
	d, ok, err := tlv.Root(b.body).Child(tag)
	if err != nil {
		return tlv.Doc{}, false, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "header section")
	}
	return d, ok, nil
}

// Name returns the unit name.
func (b *Blob) Name() (string, error) { return b.topStr(tagUnitName) }

// Triple returns the target triple.
func (b *Blob) Triple() (string, error) { return b.topStr(tagUnitTriple) }

// Hash returns the unit content hash.
func (b *Blob) Hash() (string, error) { return b.topStr(tagUnitHash) }

// Attrs returns the unit's root attributes.
func (b *Blob) Attrs() ([]decl.Attribute, error) {
	d, ok, err := b.topChild(tagUnitAttrs)
	if err != nil || !ok {
		return nil, err
	}
	return decodeAttrs(d)
}

// Deps returns the ordered dependency list; Num is the position in
// the dense 1..N sequence.
func (b *Blob) Deps() ([]decl.Dep, error) {
	d, ok, err := b.topChild(tagDeps)
	if err != nil || !ok {
		return nil, err
	}
	var deps []decl.Dep
	walkErr := eachChild(d, func(c tlv.Doc) error {
		if c.Tag != tagDep {
			return nil
		}
		name, err := c.ChildStr(tagDepName)
		if err != nil {
			return err
		}
		hash, err := c.ChildStr(tagDepHash)
		if err != nil {
			return err
		}
		deps = append(deps, decl.Dep{Num: uint32(len(deps) + 1), Name: name, Hash: hash})
		return nil
	})
	if walkErr != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, walkErr, "dependency list")
	}
	return deps, nil
}

// DylibDeps returns the dynamic-link dependency formatting.
func (b *Blob) DylibDeps() ([]decl.DylibDep, error) {
	d, ok, err := b.topChild(tagDylibDeps)
	if err != nil || !ok {
		return nil, err
	}
	var out []decl.DylibDep
	walkErr := eachChild(d, func(c tlv.Doc) error {
		if c.Tag != tagDylibDep {
			return nil
		}
		v, err := c.U64()
		if err != nil {
			return err
		}
		out = append(out, decl.DylibDep{Num: uint32(v >> 1), Dynamic: v&1 != 0})
		return nil
	})
	if walkErr != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, walkErr, "dylib dependency list")
	}
	return out, nil
}

// LangItems returns the local language-item bindings.
func (b *Blob) LangItems() ([]decl.LangItem, error) {
	d, ok, err := b.topChild(tagLangItems)
	if err != nil || !ok {
		return nil, err
	}
	var out []decl.LangItem
	walkErr := eachChild(d, func(c tlv.Doc) error {
		if c.Tag != tagLangItem {
			return nil
		}
		v, err := c.U64()
		if err != nil {
			return err
		}
		out = append(out, decl.LangItem{Slot: uint32(v >> 32), ID: decl.LocalID(uint32(v))})
		return nil
	})
	if walkErr != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, walkErr, "language-item table")
	}
	return out, nil
}

// MissingLangItems returns the slots this unit expects but does not
// define.
func (b *Blob) MissingLangItems() ([]uint32, error) {
	d, ok, err := b.topChild(tagLangItems)
	if err != nil || !ok {
		return nil, err
	}
	var out []uint32
	walkErr := eachChild(d, func(c tlv.Doc) error {
		if c.Tag != tagMissingLang {
			return nil
		}
		v, err := c.U32()
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	if walkErr != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, walkErr, "language-item table")
	}
	return out, nil
}

// NativeLibs returns the propagated native libraries.
func (b *Blob) NativeLibs() ([]decl.NativeLib, error) {
	d, ok, err := b.topChild(tagNativeLibs)
	if err != nil || !ok {
		return nil, err
	}
	var out []decl.NativeLib
	walkErr := eachChild(d, func(c tlv.Doc) error {
		if c.Tag != tagNativeLib {
			return nil
		}
		kind, ok, err := c.ChildU64(tagNativeLibKind)
		if err != nil || !ok {
			return err
		}
		name, err := c.ChildStr(tagNativeLibName)
		if err != nil {
			return err
		}
		out = append(out, decl.NativeLib{Kind: decl.NativeLibKind(kind), Name: name})
		return nil
	})
	if walkErr != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, walkErr, "native library list")
	}
	return out, nil
}

// PluginRegistrar returns the plugin entry point, if any.
func (b *Blob) PluginRegistrar() (decl.ID, bool, error) {
	d, ok, err := b.topChild(tagPluginRegistrar)
	if err != nil || !ok {
		return decl.ID{}, false, err
	}
	v, err := d.U32()
	if err != nil {
		return decl.ID{}, false, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "plugin registrar")
	}
	return decl.LocalID(v), true, nil
}

// Files returns the line-offset tables for span translation.
func (b *Blob) Files() ([]decl.FileMap, error) {
	d, ok, err := b.topChild(tagFiles)
	if err != nil || !ok {
		return nil, err
	}
	var out []decl.FileMap
	walkErr := eachChild(d, func(c tlv.Doc) error {
		if c.Tag != tagFile {
			return nil
		}
		var f decl.FileMap
		var err error
		if f.Name, err = c.ChildStr(tagFileName); err != nil {
			return err
		}
		start, _, err := c.ChildU64(tagFileStart)
		if err != nil {
			return err
		}
		f.StartPos = uint32(start)
		lines, ok, err := c.Child(tagFileLines)
		if err != nil {
			return err
		}
		if ok {
			raw := lines.Bytes()
			if len(raw)%4 != 0 {
				return errors.New(errors.PhaseDecode, errors.KindInvalidData).
					Detail("line table of %d bytes is not u32-aligned", len(raw)).Build()
			}
			f.Lines = make([]uint32, 0, len(raw)/4)
			for i := 0; i < len(raw); i += 4 {
				f.Lines = append(f.Lines, binary.BigEndian.Uint32(raw[i:]))
			}
		}
		out = append(out, f)
		return nil
	})
	if walkErr != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, walkErr, "file table")
	}
	return out, nil
}

// Macros returns the exported macros with their verbatim source text.
func (b *Blob) Macros() ([]decl.MacroDef, error) {
	d, ok, err := b.topChild(tagMacros)
	if err != nil || !ok {
		return nil, err
	}
	var out []decl.MacroDef
	walkErr := eachChild(d, func(c tlv.Doc) error {
		if c.Tag != tagMacro {
			return nil
		}
		var m decl.MacroDef
		var err error
		if m.Name, err = c.ChildStr(tagMacroName); err != nil {
			return err
		}
		if m.Body, err = c.ChildStr(tagMacroBody); err != nil {
			return err
		}
		attrs, ok, err := c.Child(tagItemAttrs)
		if err != nil {
			return err
		}
		if ok {
			if m.Attrs, err = decodeAttrs(attrs); err != nil {
				return err
			}
		}
		out = append(out, m)
		return nil
	})
	if walkErr != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, walkErr, "macro table")
	}
	return out, nil
}

// EagerImpls returns the impls a consumer must load unconditionally.
func (b *Blob) EagerImpls() ([]decl.ID, error) {
	return b.idList(tagEagerImpls, tagEagerImpl)
}

// ReachableExterns returns the externally callable, non-generic,
// foreign-ABI functions reachable from the unit.
func (b *Blob) ReachableExterns() ([]decl.ID, error) {
	return b.idList(tagReachable, tagReachableID)
}

func (b *Blob) idList(section, entry uint32) ([]decl.ID, error) {
	d, ok, err := b.topChild(section)
	if err != nil || !ok {
		return nil, err
	}
	var out []decl.ID
	walkErr := eachChild(d, func(c tlv.Doc) error {
		if c.Tag != entry {
			return nil
		}
		v, err := c.U32()
		if err != nil {
			return err
		}
		out = append(out, decl.LocalID(v))
		return nil
	})
	if walkErr != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, walkErr, "id list")
	}
	return out, nil
}

// RootChildren returns the root module's child list, implicit children
// included.
func (b *Blob) RootChildren() ([]decl.ID, error) {
	d, ok, err := b.topChild(tagRootMod)
	if err != nil || !ok {
		return nil, err
	}
	var out []decl.ID
	walkErr := eachChild(d, func(c tlv.Doc) error {
		if c.Tag != tagItemChild {
			return nil
		}
		v, err := c.U64()
		if err != nil {
			return err
		}
		out = append(out, decl.IDFromWord(v))
		return nil
	})
	if walkErr != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, walkErr, "root module section")
	}
	return out, nil
}

// RootReexports returns the root module's re-export edges.
func (b *Blob) RootReexports() ([]decl.Export, error) {
	d, ok, err := b.topChild(tagRootMod)
	if err != nil || !ok {
		return nil, err
	}
	exports, err := decodeReexports(d)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "root module section")
	}
	return exports, nil
}

// FieldAttrs returns the attributes of a field from the field
// attribute table, nil when the field has none.
func (b *Blob) FieldAttrs(id decl.ID) ([]decl.Attribute, error) {
	d, ok, err := b.topChild(tagFieldAttrs)
	if err != nil || !ok {
		return nil, err
	}
	var attrs []decl.Attribute
	walkErr := eachChild(d, func(c tlv.Doc) error {
		if c.Tag != tagFieldAttrsItem {
			return nil
		}
		w, ok, err := c.ChildU64(tagItemID)
		if err != nil || !ok {
			return err
		}
		if decl.IDFromWord(w) != id {
			return nil
		}
		ad, ok, err := c.Child(tagItemAttrs)
		if err != nil || !ok {
			return err
		}
		attrs, err = decodeAttrs(ad)
		return err
	})
	if walkErr != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, walkErr, "field attribute table")
	}
	return attrs, nil
}

func decodeReexports(d tlv.Doc) ([]decl.Export, error) {
	var out []decl.Export
	err := eachChild(d, func(c tlv.Doc) error {
		if c.Tag != tagItemReexport {
			return nil
		}
		name, err := c.ChildStr(tagItemReexportName)
		if err != nil {
			return err
		}
		w, _, err := c.ChildU64(tagItemReexportTarget)
		if err != nil {
			return err
		}
		out = append(out, decl.Export{Name: name, Target: decl.IDFromWord(w)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// eachChild walks a record's children, stopping at the first error
// from fn or the walker.
func eachChild(d tlv.Doc, fn func(tlv.Doc) error) error {
	var inner error
	err := d.EachChild(func(c tlv.Doc) bool {
		inner = fn(c)
		return inner == nil
	})
	if err != nil {
		return err
	}
	return inner
}
