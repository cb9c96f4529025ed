package metadata_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaforge/unitmeta/decl"
	"github.com/metaforge/unitmeta/errors"
	"github.com/metaforge/unitmeta/metadata"
)

var (
	tyUnit = decl.Tuple{}
	tyU32  = decl.Uint{Bits: 32}
	tyI64  = decl.Int{Bits: 64}
)

func scheme(t decl.Type) decl.Scheme {
	return decl.Scheme{Ty: t}
}

func pub(id uint32, name string) decl.ItemBase {
	return decl.ItemBase{ID: decl.LocalID(id), Name: name, Vis: decl.VisPublic}
}

// testUnit builds a unit touching every declaration kind: a tuple
// struct with a constructor, a named struct with field attributes, an
// enum with an explicit discriminant and a struct variant, a trait
// with one provided and one required method, trait impls (one of them
// a destructor impl, one of a foreign trait), an inherent impl whose
// static member is re-exported under a new name, a nested module, and
// a foreign block.
func testUnit() *decl.Unit {
	point := &decl.Struct{
		ItemBase: pub(10, "Point"),
		Scheme:   scheme(decl.Nominal{ID: decl.LocalID(10)}),
		Fields: []decl.Field{
			{ID: decl.LocalID(11), Vis: decl.VisPublic, Scheme: scheme(tyU32)},
			{ID: decl.LocalID(12), Vis: decl.VisPublic, Scheme: scheme(tyU32)},
		},
		Ctor: &decl.Ctor{
			ID: decl.LocalID(13),
			Scheme: scheme(decl.FnPtr{
				Params: []decl.Type{tyU32, tyU32},
				Ret:    decl.Nominal{ID: decl.LocalID(10)},
			}),
		},
	}

	rect := &decl.Struct{
		ItemBase: pub(15, "Rect"),
		Scheme:   scheme(decl.Nominal{ID: decl.LocalID(15)}),
		Fields: []decl.Field{
			{
				ID: decl.LocalID(16), Name: "w", Vis: decl.VisPublic,
				Attrs:  []decl.Attribute{{Meta: decl.MetaNameValue{Name: "doc", Value: "width"}}},
				Scheme: scheme(tyU32),
			},
			{ID: decl.LocalID(17), Name: "h", Vis: decl.VisInherited, Scheme: scheme(tyU32)},
		},
	}

	bigTuple := decl.Tuple{Elems: []decl.Type{
		tyU32, tyI64, decl.Str{}, decl.Slice{Elem: tyU32},
		decl.Ref{Elem: decl.Nominal{ID: decl.LocalID(15)}},
	}}

	add := &decl.Fn{
		ItemBase: decl.ItemBase{
			ID: decl.LocalID(21), Name: "add", Vis: decl.VisPublic,
			Attrs: []decl.Attribute{{Meta: decl.MetaWord{Name: "inline"}}},
		},
		Scheme:    scheme(decl.FnPtr{Params: []decl.Type{bigTuple}, Ret: tyU32}),
		Constness: decl.NotConst,
		ArgNames:  []string{"input"},
		Body:      []byte("body:add"),
	}

	tparam := decl.Param{Space: decl.TypeSpace, Index: 0, Name: "T"}
	mapIt := &decl.Fn{
		ItemBase: pub(22, "map_it"),
		Scheme: decl.Scheme{
			Generics: decl.Generics{
				Types: []decl.TypeParamDef{{
					Name: "T", ID: decl.LocalID(90), Space: decl.TypeSpace, Index: 0,
				}},
				Predicates: []decl.PredicateEntry{{
					Space: decl.TypeSpace,
					Pred: decl.TraitBound{Trait: decl.TraitRef{
						ID: decl.LocalID(30), Substs: []decl.Type{tparam},
					}},
				}},
			},
			Ty: decl.FnPtr{Params: []decl.Type{bigTuple, tparam}, Ret: tparam},
		},
		Constness: decl.NotConst,
		Body:      []byte("body:map_it"),
	}

	ffi := &decl.Fn{
		ItemBase: pub(23, "ffi_export"),
		Scheme:   scheme(decl.FnPtr{ABI: "C", Params: []decl.Type{tyU32}, Ret: tyU32}),
		ABI:      "C",
	}

	disrGreen := uint64(10)
	color := &decl.Enum{
		ItemBase: pub(50, "Color"),
		Scheme:   scheme(decl.Nominal{ID: decl.LocalID(50)}),
		Variants: []decl.Variant{
			{ID: decl.LocalID(51), Name: "Red", Vis: decl.VisPublic,
				Scheme: scheme(decl.Nominal{ID: decl.LocalID(50)})},
			{ID: decl.LocalID(52), Name: "Green", Vis: decl.VisPublic, Disr: &disrGreen,
				Scheme: scheme(decl.Nominal{ID: decl.LocalID(50)})},
			{ID: decl.LocalID(53), Name: "Blue", Vis: decl.VisPublic,
				Scheme: scheme(decl.Nominal{ID: decl.LocalID(50)})},
			{ID: decl.LocalID(54), Name: "Mix", Vis: decl.VisPublic, IsStruct: true,
				Fields: []decl.Field{{ID: decl.LocalID(55), Name: "ratio", Vis: decl.VisPublic,
					Scheme: scheme(tyU32)}},
				Scheme: scheme(decl.Nominal{ID: decl.LocalID(50)})},
		},
	}

	dispose := &decl.Trait{
		ItemBase: pub(30, "Dispose"),
		Ref:      decl.TraitRef{ID: decl.LocalID(30), Substs: []decl.Type{decl.Param{Space: decl.SelfSpace, Name: "Self"}}},
		Items: []decl.TraitItem{
			&decl.Method{
				TraitItemBase: decl.TraitItemBase{ID: decl.LocalID(31), Name: "dispose", Vis: decl.VisPublic},
				Scheme:        scheme(decl.FnPtr{Ret: tyUnit}),
				Self:          decl.SelfValue,
				Constness:     decl.NotConst,
				HasBody:       true,
				Body:          []byte("body:dispose"),
			},
			&decl.Method{
				TraitItemBase: decl.TraitItemBase{ID: decl.LocalID(32), Name: "create", Vis: decl.VisPublic},
				Scheme:        scheme(decl.FnPtr{Ret: decl.Param{Space: decl.SelfSpace, Name: "Self"}}),
				Self:          decl.SelfStatic,
				Constness:     decl.NotConst,
			},
		},
	}

	disposeRef := decl.TraitRef{ID: decl.LocalID(30), Substs: []decl.Type{decl.Nominal{ID: decl.LocalID(10)}}}
	disposeImpl := &decl.Impl{
		ItemBase:     pub(40, ""),
		Scheme:       scheme(decl.Nominal{ID: decl.LocalID(10)}),
		Trait:        &disposeRef,
		BaseTypeName: "Point",
		Items: []decl.TraitItem{
			&decl.Method{
				TraitItemBase: decl.TraitItemBase{ID: decl.LocalID(41), Name: "dispose", Vis: decl.VisPublic},
				Scheme:        scheme(decl.FnPtr{Ret: tyUnit}),
				Self:          decl.SelfValue,
				Constness:     decl.NotConst,
				HasBody:       true,
				Body:          []byte("body:dispose:impl"),
			},
			&decl.Method{
				TraitItemBase: decl.TraitItemBase{ID: decl.LocalID(42), Name: "create", Vis: decl.VisPublic},
				Scheme:        scheme(decl.FnPtr{Ret: decl.Nominal{ID: decl.LocalID(10)}}),
				Self:          decl.SelfStatic,
				Constness:     decl.NotConst,
				HasBody:       true,
			},
		},
		NumExplicit: 2,
	}

	foreignTrait := decl.TraitRef{ID: decl.ID{Unit: 1, Index: 7}, Substs: []decl.Type{decl.Nominal{ID: decl.LocalID(15)}}}
	src := decl.ID{Unit: 1, Index: 8}
	foreignImpl := &decl.Impl{
		ItemBase:     pub(45, ""),
		Scheme:       scheme(decl.Nominal{ID: decl.LocalID(15)}),
		Trait:        &foreignTrait,
		BaseTypeName: "Rect",
		Items: []decl.TraitItem{
			&decl.Method{
				TraitItemBase:  decl.TraitItemBase{ID: decl.LocalID(46), Name: "show", Vis: decl.VisPublic},
				Scheme:         scheme(decl.FnPtr{Ret: decl.Str{}}),
				Self:           decl.SelfRef,
				Constness:      decl.NotConst,
				ProvidedSource: &src,
			},
		},
		NumExplicit: 0,
	}

	inherent := &decl.Impl{
		ItemBase:     pub(47, ""),
		Scheme:       scheme(decl.Nominal{ID: decl.LocalID(10)}),
		BaseTypeName: "Point",
		Items: []decl.TraitItem{
			&decl.Method{
				TraitItemBase: decl.TraitItemBase{ID: decl.LocalID(48), Name: "origin", Vis: decl.VisPublic},
				Scheme:        scheme(decl.FnPtr{Ret: decl.Nominal{ID: decl.LocalID(10)}}),
				Self:          decl.SelfStatic,
				Constness:     decl.NotConst,
				HasBody:       true,
			},
		},
		NumExplicit: 1,
	}

	inner := &decl.Mod{
		ItemBase: pub(60, "inner"),
		Items: []decl.Item{
			&decl.Fn{
				ItemBase:  pub(61, "inside"),
				Scheme:    scheme(decl.FnPtr{Ret: tyUnit}),
				Constness: decl.NotConst,
			},
		},
	}

	foreign := &decl.ForeignMod{
		ItemBase: pub(70, ""),
		ABI:      "C",
		Items: []decl.ForeignItem{
			&decl.ForeignFn{
				ItemBase: pub(71, "memcpy"),
				Scheme:   scheme(decl.FnPtr{ABI: "C", Params: []decl.Type{decl.RawPtr{Elem: decl.Uint{Bits: 8}}}, Ret: tyUnit}),
			},
			&decl.ForeignStatic{
				ItemBase: pub(72, "errno"),
				Mutable:  true,
				Scheme:   scheme(decl.Int{Bits: 32}),
			},
		},
	}

	root := &decl.Mod{
		ItemBase: decl.ItemBase{ID: decl.LocalID(1), Vis: decl.VisPublic},
		Items: []decl.Item{
			point, rect,
			&decl.Static{ItemBase: pub(20, "MAX"), Scheme: scheme(tyU32)},
			add, mapIt, ffi,
			&decl.Const{ItemBase: pub(25, "LIMIT"), Scheme: scheme(tyI64), Body: []byte("body:limit")},
			&decl.TypeAlias{ItemBase: pub(26, "Pair"), Scheme: scheme(decl.Tuple{Elems: []decl.Type{tyU32, tyU32}})},
			color, dispose, disposeImpl, foreignImpl, inherent, inner, foreign,
		},
	}

	drop := decl.LocalID(30)
	return &decl.Unit{
		Name:   "geometry",
		Triple: "x86_64-unknown-linux-gnu",
		Hash:   "a1b2c3d4",
		Attrs: []decl.Attribute{
			{Meta: decl.MetaList{Name: "crate_type", Items: []decl.MetaItem{decl.MetaWord{Name: "lib"}}}},
		},
		Deps: []decl.Dep{
			{Num: 1, Name: "core", Hash: "hash-core"},
			{Num: 2, Name: "alloc", Hash: "hash-alloc"},
		},
		DylibDeps: []decl.DylibDep{{Num: 1, Dynamic: true}, {Num: 2, Dynamic: false}},
		LangItems: []decl.LangItem{
			{Slot: 3, ID: decl.LocalID(30)},
			{Slot: 5, ID: decl.ID{Unit: 1, Index: 44}},
		},
		MissingLangs: []uint32{9},
		NativeLibs: []decl.NativeLib{
			{Kind: decl.NativeStatic, Name: "folded"},
			{Kind: decl.NativeFramework, Name: "Cocoa"},
		},
		Files: []decl.FileMap{
			{Name: "lib.rs", StartPos: 0, Lines: []uint32{0, 14, 30}},
			{Name: "imported.rs", Imported: true, StartPos: 100, Lines: []uint32{0}},
			{Name: "empty.rs", StartPos: 200},
		},
		Macros: []decl.MacroDef{{Name: "point", Body: "($x:expr, $y:expr) => { ... }"}},
		Root:   root,
		Reexports: map[decl.ID][]decl.Export{
			decl.LocalID(1): {
				{Name: "Pt", Target: decl.LocalID(10)},
				{Name: "inside", Target: decl.LocalID(61)},
			},
		},
		InherentImpls: map[decl.ID][]decl.ID{
			decl.LocalID(10): {decl.LocalID(47)},
		},
		TraitImpls: map[decl.ID][]decl.ID{
			decl.LocalID(30): {decl.LocalID(40)},
		},
		Symbols: map[decl.ID]string{
			decl.LocalID(13): "_geom5Point4ctor",
			decl.LocalID(20): "_geom3MAX",
			decl.LocalID(21): "_geom3add",
			decl.LocalID(23): "ffi_export",
			decl.LocalID(31): "_geom7dispose",
			decl.LocalID(41): "_geom5Point7dispose",
			decl.LocalID(42): "_geom5Point6create",
			decl.LocalID(48): "_geom5Point6origin",
			decl.LocalID(61): "_geom5inner6inside",
			decl.LocalID(71): "memcpy",
			decl.LocalID(72): "errno",
		},
		Reachable: map[decl.ID]bool{decl.LocalID(23): true},
		DropTrait: &drop,
	}
}

func encodeTestUnit(t *testing.T) *metadata.Blob {
	t.Helper()
	blob, err := metadata.Encode(testUnit())
	require.NoError(t, err)
	b, err := metadata.Open(blob)
	require.NoError(t, err)
	return b
}

func TestEncodeNilUnit(t *testing.T) {
	_, err := metadata.Encode(nil)
	require.Error(t, err)

	_, err = metadata.Encode(&decl.Unit{Name: "rootless"})
	require.Error(t, err)
}

func TestHeaderRoundTrip(t *testing.T) {
	b := encodeTestUnit(t)

	name, err := b.Name()
	require.NoError(t, err)
	assert.Equal(t, "geometry", name)

	triple, err := b.Triple()
	require.NoError(t, err)
	assert.Equal(t, "x86_64-unknown-linux-gnu", triple)

	hash, err := b.Hash()
	require.NoError(t, err)
	assert.Equal(t, "a1b2c3d4", hash)

	deps, err := b.Deps()
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, decl.Dep{Num: 1, Name: "core", Hash: "hash-core"}, deps[0])
	assert.Equal(t, decl.Dep{Num: 2, Name: "alloc", Hash: "hash-alloc"}, deps[1])

	dylib, err := b.DylibDeps()
	require.NoError(t, err)
	assert.Equal(t, []decl.DylibDep{{Num: 1, Dynamic: true}, {Num: 2, Dynamic: false}}, dylib)

	attrs, err := b.Attrs()
	require.NoError(t, err)
	require.Len(t, attrs, 1)
	list, ok := attrs[0].Meta.(decl.MetaList)
	require.True(t, ok)
	assert.Equal(t, "crate_type", list.Name)

	langs, err := b.LangItems()
	require.NoError(t, err)
	// Only local bindings are written.
	assert.Equal(t, []decl.LangItem{{Slot: 3, ID: decl.LocalID(30)}}, langs)

	missing, err := b.MissingLangItems()
	require.NoError(t, err)
	assert.Equal(t, []uint32{9}, missing)

	libs, err := b.NativeLibs()
	require.NoError(t, err)
	// The statically linked one is invisible downstream.
	assert.Equal(t, []decl.NativeLib{{Kind: decl.NativeFramework, Name: "Cocoa"}}, libs)

	files, err := b.Files()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "lib.rs", files[0].Name)
	assert.Equal(t, []uint32{0, 14, 30}, files[0].Lines)

	macros, err := b.Macros()
	require.NoError(t, err)
	require.Len(t, macros, 1)
	assert.Equal(t, "point", macros[0].Name)
	assert.Equal(t, "($x:expr, $y:expr) => { ... }", macros[0].Body)

	_, ok2, err := b.PluginRegistrar()
	require.NoError(t, err)
	assert.False(t, ok2)
}

func TestEagerLoadSet(t *testing.T) {
	b := encodeTestUnit(t)

	eager, err := b.EagerImpls()
	require.NoError(t, err)
	// The destructor impl and the foreign-trait impl, in tree order.
	assert.Equal(t, []decl.ID{decl.LocalID(40), decl.LocalID(45)}, eager)
}

func TestReachableExterns(t *testing.T) {
	b := encodeTestUnit(t)

	reach, err := b.ReachableExterns()
	require.NoError(t, err)
	assert.Equal(t, []decl.ID{decl.LocalID(23)}, reach)
}

func TestRootModSection(t *testing.T) {
	b := encodeTestUnit(t)

	children, err := b.RootChildren()
	require.NoError(t, err)
	assert.Contains(t, children, decl.LocalID(10))
	// The tuple ctor is an implicit child.
	assert.Contains(t, children, decl.LocalID(13))
	assert.Contains(t, children, decl.LocalID(60))

	exports, err := b.RootReexports()
	require.NoError(t, err)
	assert.Contains(t, exports, decl.Export{Name: "Pt", Target: decl.LocalID(10)})
}

func TestStructCtorScenario(t *testing.T) {
	b := encodeTestUnit(t)

	st, err := b.Item(decl.LocalID(10))
	require.NoError(t, err)

	kind, err := st.Kind()
	require.NoError(t, err)
	assert.Equal(t, decl.KindStruct, kind)

	fields, err := st.Fields()
	require.NoError(t, err)
	assert.Equal(t, []decl.ID{decl.LocalID(11), decl.LocalID(12)}, fields)

	// The embedded sub-index resolves both field ids.
	for _, fid := range fields {
		f, err := st.Field(fid)
		require.NoError(t, err)
		fk, err := f.Kind()
		require.NoError(t, err)
		assert.Equal(t, decl.KindFieldUnnamed, fk)
		parent, ok, err := f.Parent()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, decl.LocalID(10), parent)
	}

	ctorID, ok, err := st.Ctor()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, decl.LocalID(13), ctorID)

	ctor, err := b.Item(ctorID)
	require.NoError(t, err)
	ck, err := ctor.Kind()
	require.NoError(t, err)
	assert.Equal(t, decl.KindCtor, ck)
	sym, ok, err := ctor.Symbol()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "_geom5Point4ctor", sym)
}

func TestFieldAttrTable(t *testing.T) {
	b := encodeTestUnit(t)

	attrs, err := b.FieldAttrs(decl.LocalID(16))
	require.NoError(t, err)
	require.Len(t, attrs, 1)
	nv, ok := attrs[0].Meta.(decl.MetaNameValue)
	require.True(t, ok)
	assert.Equal(t, "width", nv.Value)

	attrs, err = b.FieldAttrs(decl.LocalID(17))
	require.NoError(t, err)
	assert.Empty(t, attrs)
}

func TestDiscriminantDefaults(t *testing.T) {
	b := encodeTestUnit(t)

	want := map[uint32]struct {
		explicit bool
		value    uint64
	}{
		51: {false, 0},
		52: {true, 10},
		53: {false, 11},
		54: {false, 12},
	}
	prev := uint64(0)
	for _, idx := range []uint32{51, 52, 53, 54} {
		v, err := b.Item(decl.LocalID(idx))
		require.NoError(t, err)
		disr, ok, err := v.Disr()
		require.NoError(t, err)
		assert.Equal(t, want[idx].explicit, ok, "variant %d", idx)
		actual := prev
		if ok {
			actual = disr
		}
		assert.Equal(t, want[idx].value, actual, "variant %d", idx)
		prev = actual + 1
	}
}

func TestStructVariantFields(t *testing.T) {
	b := encodeTestUnit(t)

	mix, err := b.Item(decl.LocalID(54))
	require.NoError(t, err)
	kind, err := mix.Kind()
	require.NoError(t, err)
	assert.Equal(t, decl.KindVariantStruct, kind)

	f, err := mix.Field(decl.LocalID(55))
	require.NoError(t, err)
	name, err := f.Name()
	require.NoError(t, err)
	assert.Equal(t, "ratio", name)
}

func TestTraitProvidedAndRequired(t *testing.T) {
	b := encodeTestUnit(t)

	tr, err := b.Item(decl.LocalID(30))
	require.NoError(t, err)
	members, err := tr.Members()
	require.NoError(t, err)
	assert.Equal(t, []decl.ID{decl.LocalID(31), decl.LocalID(32)}, members)

	provided, err := b.Item(decl.LocalID(31))
	require.NoError(t, err)
	isProvided, ok, err := provided.Provided()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, isProvided)
	body, ok, err := provided.Body()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("body:dispose"), body)

	required, err := b.Item(decl.LocalID(32))
	require.NoError(t, err)
	isProvided, ok, err = required.Provided()
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, isProvided)
	_, ok, err = required.Body()
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = required.Symbol()
	require.NoError(t, err)
	assert.False(t, ok)

	rk, err := required.Kind()
	require.NoError(t, err)
	assert.Equal(t, decl.KindStaticMethod, rk)
	pk, err := provided.Kind()
	require.NoError(t, err)
	assert.Equal(t, decl.KindMethod, pk)
}

func TestImplMembers(t *testing.T) {
	b := encodeTestUnit(t)

	im, err := b.Item(decl.LocalID(40))
	require.NoError(t, err)
	kind, err := im.Kind()
	require.NoError(t, err)
	assert.Equal(t, decl.KindImpl, kind)

	ref, ok, err := im.TraitRef()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, decl.LocalID(30), ref.ID)

	members, err := im.Members()
	require.NoError(t, err)
	assert.Equal(t, []decl.ID{decl.LocalID(41), decl.LocalID(42)}, members)

	// Explicit instance method: symbol and attribute-free body rules.
	m, err := b.Item(decl.LocalID(41))
	require.NoError(t, err)
	sym, ok, err := m.Symbol()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "_geom5Point7dispose", sym)

	// Inherited default on the foreign-trait impl: origin only.
	inherited, err := b.Item(decl.LocalID(46))
	require.NoError(t, err)
	source, ok, err := inherited.Source()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, decl.ID{Unit: 1, Index: 8}, source)
	_, ok, err = inherited.Body()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestImplListsInRecords(t *testing.T) {
	b := encodeTestUnit(t)

	// The type record carries its inherent impl blocks.
	point, err := b.Item(decl.LocalID(10))
	require.NoError(t, err)
	impls, err := point.InherentImpls()
	require.NoError(t, err)
	assert.Equal(t, []decl.ID{decl.LocalID(47)}, impls)

	// The trait record carries the local impls of the trait.
	tr, err := b.Item(decl.LocalID(30))
	require.NoError(t, err)
	ext, err := tr.ExtensionImpls()
	require.NoError(t, err)
	assert.Equal(t, []decl.ID{decl.LocalID(40)}, ext)

	// A type without impl blocks carries no list.
	color, err := b.Item(decl.LocalID(50))
	require.NoError(t, err)
	impls, err = color.InherentImpls()
	require.NoError(t, err)
	assert.Empty(t, impls)
}

// counterUnit exercises the member kinds testUnit leaves out: provided
// and required associated constants, associated types declared in the
// trait and bound in the impl, and a blanket default impl.
func counterUnit() *decl.Unit {
	selfTy := decl.Param{Space: decl.SelfSpace, Name: "Self"}
	counterRef := decl.TraitRef{ID: decl.LocalID(5), Substs: []decl.Type{selfTy}}

	tick := &decl.Struct{
		ItemBase: pub(4, "Tick"),
		Scheme:   scheme(decl.Nominal{ID: decl.LocalID(4)}),
	}

	counter := &decl.Trait{
		ItemBase:       pub(5, "Counter"),
		HasDefaultImpl: true,
		Ref:            counterRef,
		AssocTypeNames: []string{"Output"},
		Items: []decl.TraitItem{
			&decl.AssocConst{
				TraitItemBase: decl.TraitItemBase{ID: decl.LocalID(6), Name: "START", Vis: decl.VisPublic},
				Scheme:        scheme(tyU32),
				Body:          []byte("body:start"),
			},
			&decl.AssocConst{
				TraitItemBase: decl.TraitItemBase{ID: decl.LocalID(7), Name: "STEP", Vis: decl.VisPublic},
				Scheme:        scheme(tyU32),
			},
			&decl.AssocType{
				TraitItemBase: decl.TraitItemBase{ID: decl.LocalID(8), Name: "Output", Vis: decl.VisPublic},
			},
		},
	}

	start := decl.LocalID(6)
	tickRef := decl.TraitRef{ID: decl.LocalID(5), Substs: []decl.Type{decl.Nominal{ID: decl.LocalID(4)}}}
	tickImpl := &decl.Impl{
		ItemBase:     pub(10, ""),
		Scheme:       scheme(decl.Nominal{ID: decl.LocalID(4)}),
		Trait:        &tickRef,
		BaseTypeName: "Tick",
		Items: []decl.TraitItem{
			&decl.AssocConst{
				TraitItemBase: decl.TraitItemBase{ID: decl.LocalID(11), Name: "STEP", Vis: decl.VisPublic},
				Scheme:        scheme(tyU32),
				Body:          []byte("body:step"),
			},
			&decl.AssocType{
				TraitItemBase: decl.TraitItemBase{ID: decl.LocalID(12), Name: "Output", Vis: decl.VisPublic},
				Ty:            tyU32,
			},
			&decl.AssocConst{
				TraitItemBase: decl.TraitItemBase{ID: decl.LocalID(13), Name: "START", Vis: decl.VisPublic},
				Scheme:        scheme(tyU32),
				Default:       &start,
			},
		},
		NumExplicit: 2,
	}

	blanket := &decl.DefaultImpl{
		ItemBase: pub(14, ""),
		Trait:    counterRef,
	}

	return &decl.Unit{
		Name:   "counters",
		Triple: "x86_64-unknown-linux-gnu",
		Hash:   "0f1e2d3c",
		Root: &decl.Mod{
			ItemBase: decl.ItemBase{ID: decl.LocalID(1), Vis: decl.VisPublic},
			Items:    []decl.Item{tick, counter, tickImpl, blanket},
		},
		TraitImpls: map[decl.ID][]decl.ID{
			decl.LocalID(5): {decl.LocalID(10)},
		},
	}
}

func TestAssocItemsAndDefaultImpl(t *testing.T) {
	blob, err := metadata.Encode(counterUnit())
	require.NoError(t, err)
	b, err := metadata.Open(blob)
	require.NoError(t, err)

	tr, err := b.Item(decl.LocalID(5))
	require.NoError(t, err)
	hasDefault, err := tr.HasDefaultImpl()
	require.NoError(t, err)
	assert.True(t, hasDefault)
	names, err := tr.AssocTypeNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"Output"}, names)
	members, err := tr.Members()
	require.NoError(t, err)
	assert.Equal(t, []decl.ID{decl.LocalID(6), decl.LocalID(7), decl.LocalID(8)}, members)
	ext, err := tr.ExtensionImpls()
	require.NoError(t, err)
	assert.Equal(t, []decl.ID{decl.LocalID(10)}, ext)

	// Provided associated constant: marker plus inlined body.
	start, err := b.Item(decl.LocalID(6))
	require.NoError(t, err)
	kind, err := start.Kind()
	require.NoError(t, err)
	assert.Equal(t, decl.KindAssocConst, kind)
	prov, ok, err := start.Provided()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, prov)
	body, ok, err := start.Body()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("body:start"), body)

	// Required associated constant: marker only.
	step, err := b.Item(decl.LocalID(7))
	require.NoError(t, err)
	prov, ok, err = step.Provided()
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, prov)
	_, ok, err = step.Body()
	require.NoError(t, err)
	assert.False(t, ok)

	// Associated type in the trait: declared but unbound.
	output, err := b.Item(decl.LocalID(8))
	require.NoError(t, err)
	kind, err = output.Kind()
	require.NoError(t, err)
	assert.Equal(t, decl.KindAssocType, kind)
	parent, ok, err := output.Parent()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, decl.LocalID(5), parent)
	_, err = output.Type()
	require.Error(t, err)

	// Impl members: explicit constant carries its own body, the
	// bound associated type its type, the inherited one its origin.
	im, err := b.Item(decl.LocalID(10))
	require.NoError(t, err)
	members, err = im.Members()
	require.NoError(t, err)
	assert.Equal(t, []decl.ID{decl.LocalID(11), decl.LocalID(12), decl.LocalID(13)}, members)

	implStep, err := b.Item(decl.LocalID(11))
	require.NoError(t, err)
	body, ok, err = implStep.Body()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("body:step"), body)

	implOutput, err := b.Item(decl.LocalID(12))
	require.NoError(t, err)
	ty, err := implOutput.Type()
	require.NoError(t, err)
	assert.Equal(t, tyU32, ty)

	implStart, err := b.Item(decl.LocalID(13))
	require.NoError(t, err)
	source, ok, err := implStart.Source()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, decl.LocalID(6), source)
	_, ok, err = implStart.Body()
	require.NoError(t, err)
	assert.False(t, ok)

	// Blanket default impl: kind plus the trait it covers.
	blanket, err := b.Item(decl.LocalID(14))
	require.NoError(t, err)
	kind, err = blanket.Kind()
	require.NoError(t, err)
	assert.Equal(t, decl.KindDefaultImpl, kind)
	ref, ok, err := blanket.TraitRef()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, decl.LocalID(5), ref.ID)
}

func TestInlineBodyRules(t *testing.T) {
	b := encodeTestUnit(t)

	// Non-generic fn with #[inline]: symbol and body.
	add, err := b.Item(decl.LocalID(21))
	require.NoError(t, err)
	sym, ok, err := add.Symbol()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "_geom3add", sym)
	body, ok, err := add.Body()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("body:add"), body)

	// Generic fn: body but no symbol.
	mapIt, err := b.Item(decl.LocalID(22))
	require.NoError(t, err)
	_, ok, err = mapIt.Symbol()
	require.NoError(t, err)
	assert.False(t, ok)
	body, ok, err = mapIt.Body()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("body:map_it"), body)

	// Plain non-generic fn without the attribute: symbol, no body.
	inside, err := b.Item(decl.LocalID(61))
	require.NoError(t, err)
	_, ok, err = inside.Symbol()
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok, err = inside.Body()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTypeRoundTrip(t *testing.T) {
	b := encodeTestUnit(t)

	add, err := b.Item(decl.LocalID(21))
	require.NoError(t, err)
	ty, err := add.Type()
	require.NoError(t, err)
	fn, ok := ty.(decl.FnPtr)
	require.True(t, ok)
	require.Len(t, fn.Params, 1)

	// map_it shares the big tuple parameter; its copy decodes through
	// an abbreviation back-reference to the same value.
	mapIt, err := b.Item(decl.LocalID(22))
	require.NoError(t, err)
	ty2, err := mapIt.Type()
	require.NoError(t, err)
	fn2, ok := ty2.(decl.FnPtr)
	require.True(t, ok)
	require.Len(t, fn2.Params, 2)
	assert.Equal(t, fn.Params[0], fn2.Params[0])
}

func TestGenericsRoundTrip(t *testing.T) {
	b := encodeTestUnit(t)

	mapIt, err := b.Item(decl.LocalID(22))
	require.NoError(t, err)
	g, err := mapIt.Generics()
	require.NoError(t, err)
	require.Len(t, g.Types, 1)
	assert.Equal(t, "T", g.Types[0].Name)
	require.Len(t, g.Predicates, 1)
	bound, ok := g.Predicates[0].Pred.(decl.TraitBound)
	require.True(t, ok)
	assert.Equal(t, decl.LocalID(30), bound.Trait.ID)
}

func TestModuleChildrenAndPaths(t *testing.T) {
	b := encodeTestUnit(t)

	inner, err := b.Item(decl.LocalID(60))
	require.NoError(t, err)
	children, err := inner.Children()
	require.NoError(t, err)
	assert.Equal(t, []decl.ID{decl.LocalID(61)}, children)

	inside, err := b.Item(decl.LocalID(61))
	require.NoError(t, err)
	path, err := inside.Path()
	require.NoError(t, err)
	assert.Equal(t, []string{"inner", "inside"}, path)
}

func TestForeignItems(t *testing.T) {
	b := encodeTestUnit(t)

	fn, err := b.Item(decl.LocalID(71))
	require.NoError(t, err)
	kind, err := fn.Kind()
	require.NoError(t, err)
	assert.Equal(t, decl.KindFn, kind)
	abi, err := fn.ABI()
	require.NoError(t, err)
	assert.Equal(t, "C", abi)

	st, err := b.Item(decl.LocalID(72))
	require.NoError(t, err)
	kind, err = st.Kind()
	require.NoError(t, err)
	assert.Equal(t, decl.KindStaticMut, kind)
}

func TestReexportMirroring(t *testing.T) {
	b := encodeTestUnit(t)

	// The renamed re-export of Point mirrors the inherent static
	// member under the exported path.
	var mirrored bool
	err := b.EachItem(func(it *metadata.Item) error {
		name, err := it.Name()
		if err != nil {
			return err
		}
		if name != "Pt::origin" {
			return nil
		}
		mirrored = true
		kind, err := it.Kind()
		require.NoError(t, err)
		assert.Equal(t, decl.KindStaticMethod, kind)
		path, err := it.Path()
		require.NoError(t, err)
		assert.Equal(t, []string{"Pt", "origin"}, path)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, mirrored)

	// Index lookup still resolves the member to its original record.
	orig, err := b.Item(decl.LocalID(48))
	require.NoError(t, err)
	name, err := orig.Name()
	require.NoError(t, err)
	assert.Equal(t, "origin", name)
}

func TestDeterminism(t *testing.T) {
	first, err := metadata.Encode(testUnit())
	require.NoError(t, err)
	second, err := metadata.Encode(testUnit())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

type captureSink struct {
	warns  []string
	fatals []string
}

func (c *captureSink) Warn(msg string)  { c.warns = append(c.warns, msg) }
func (c *captureSink) Fatal(msg string) { c.fatals = append(c.fatals, msg) }

func TestDepNumberingGapIsFatal(t *testing.T) {
	u := testUnit()
	u.Deps[1].Num = 3 // gap

	sink := &captureSink{}
	blob, err := metadata.Encode(u, metadata.WithDiag(sink))
	require.Error(t, err)
	assert.Nil(t, blob)

	var me *errors.Error
	require.ErrorAs(t, err, &me)
	assert.Equal(t, errors.KindDepNumbering, me.Kind)
	require.Len(t, sink.fatals, 1)
}

func TestMissingSymbolIsFatal(t *testing.T) {
	u := testUnit()
	delete(u.Symbols, decl.LocalID(20))

	sink := &captureSink{}
	_, err := metadata.Encode(u, metadata.WithDiag(sink))
	require.Error(t, err)

	var me *errors.Error
	require.ErrorAs(t, err, &me)
	assert.Equal(t, errors.KindMissingSymbol, me.Kind)
	require.Len(t, sink.fatals, 1)
}

func TestIndexCompleteness(t *testing.T) {
	root := &decl.Mod{ItemBase: decl.ItemBase{ID: decl.LocalID(1), Vis: decl.VisPublic}}
	const n = 1000
	for i := uint32(0); i < n; i++ {
		root.Items = append(root.Items, &decl.TypeAlias{
			ItemBase: pub(100+i, fmt.Sprintf("Alias%d", i)),
			Scheme:   scheme(tyU32),
		})
	}
	u := &decl.Unit{Name: "many", Triple: "t", Hash: "h", Root: root}

	raw, err := metadata.Encode(u)
	require.NoError(t, err)
	b, err := metadata.Open(raw)
	require.NoError(t, err)

	for i := uint32(0); i < n; i++ {
		it, err := b.Item(decl.LocalID(100 + i))
		require.NoError(t, err, "id %d", 100+i)
		name, err := it.Name()
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("Alias%d", i), name)
	}

	// Absent keys miss cleanly.
	_, err = b.Item(decl.LocalID(5000))
	require.Error(t, err)
}
