package metadata

import (
	"github.com/metaforge/unitmeta/decl"
	"github.com/metaforge/unitmeta/errors"
)

// encodeHeader writes the fixed unit preamble: independently
// length-delimited sections in a fixed order, everything a consumer
// needs before it starts resolving individual items.
func (cx *encodeContext) encodeHeader() {
	u := cx.unit

	cx.section("unit-identity", func() {
		cx.w.TaggedStr(tagUnitName, u.Name)
		cx.w.TaggedStr(tagUnitTriple, u.Triple)
		cx.w.TaggedStr(tagUnitHash, u.Hash)
	})

	cx.section("dylib-deps", func() {
		cx.w.Start(tagDylibDeps)
		for _, d := range u.DylibDeps {
			v := uint64(d.Num) << 1
			if d.Dynamic {
				v |= 1
			}
			cx.w.TaggedU64(tagDylibDep, v)
		}
		cx.w.End()
	})

	cx.section("unit-attrs", func() {
		cx.encodeAttrs(tagUnitAttrs, u.Attrs)
	})

	cx.section("deps", func() {
		cx.encodeDeps()
	})

	cx.section("lang-items", func() {
		cx.w.Start(tagLangItems)
		for _, li := range u.LangItems {
			if !li.ID.IsLocal() {
				continue
			}
			cx.w.TaggedU64(tagLangItem, uint64(li.Slot)<<32|uint64(li.ID.Index))
		}
		for _, slot := range u.MissingLangs {
			cx.w.TaggedU32(tagMissingLang, slot)
		}
		cx.w.End()
	})

	cx.section("native-libs", func() {
		cx.w.Start(tagNativeLibs)
		for _, lib := range u.NativeLibs {
			// Statically linked libraries are folded into this unit
			// already; downstream units never see them.
			if lib.Kind == decl.NativeStatic {
				continue
			}
			cx.w.Start(tagNativeLib)
			cx.w.TaggedU32(tagNativeLibKind, uint32(lib.Kind))
			cx.w.TaggedStr(tagNativeLibName, lib.Name)
			cx.w.End()
		}
		cx.w.End()
	})

	cx.section("plugin-registrar", func() {
		if u.PluginRegistrar != nil {
			cx.w.TaggedU32(tagPluginRegistrar, u.PluginRegistrar.Index)
		}
	})

	cx.section("files", func() {
		cx.w.Start(tagFiles)
		for i := range u.Files {
			f := &u.Files[i]
			if f.Imported || len(f.Lines) == 0 {
				continue
			}
			cx.w.Start(tagFile)
			cx.w.TaggedStr(tagFileName, f.Name)
			cx.w.TaggedU32(tagFileStart, f.StartPos)
			cx.w.Start(tagFileLines)
			for _, l := range f.Lines {
				cx.w.RawU32BE(l)
			}
			cx.w.End()
			cx.w.End()
		}
		cx.w.End()
	})

	cx.section("macros", func() {
		cx.w.Start(tagMacros)
		for i := range u.Macros {
			m := &u.Macros[i]
			cx.w.Start(tagMacro)
			cx.w.TaggedStr(tagMacroName, m.Name)
			cx.encodeAttrs(tagItemAttrs, m.Attrs)
			cx.w.TaggedStr(tagMacroBody, m.Body)
			cx.w.End()
		}
		cx.w.End()
	})

	cx.section("eager-impls", func() {
		cx.w.Start(tagEagerImpls)
		cx.forEachItem(u.Root, func(it decl.Item) {
			im, ok := it.(*decl.Impl)
			if !ok || im.Trait == nil {
				return
			}
			if cx.eagerImpl(im) {
				cx.w.TaggedU32(tagEagerImpl, im.ID.Index)
			}
		})
		cx.w.End()
	})

	cx.section("root-mod", func() {
		cx.w.Start(tagRootMod)
		for _, it := range u.Root.Items {
			cx.w.TaggedU64(tagItemChild, it.Base().ID.Word())
			if st, ok := it.(*decl.Struct); ok && st.Ctor != nil {
				cx.w.TaggedU64(tagItemChild, st.Ctor.ID.Word())
			}
		}
		cx.encodeReexports(u.Root.ID)
		cx.w.End()
	})

	cx.section("reachable", func() {
		cx.w.Start(tagReachable)
		cx.forEachItem(u.Root, func(it decl.Item) {
			f, ok := it.(*decl.Fn)
			if !ok || f.ABI == "" || generic(f.Scheme.Generics) {
				return
			}
			if u.Reachable[f.ID] {
				cx.w.TaggedU32(tagReachableID, f.ID.Index)
			}
		})
		cx.w.End()
	})
}

// encodeDeps writes the ordered dependency list. Numbers must form a
// dense 1..N sequence in import order; a gap means upstream resolution
// went wrong and silently renumbering would corrupt every cross-unit
// id in the blob.
func (cx *encodeContext) encodeDeps() {
	cx.w.Start(tagDeps)
	for i, d := range cx.unit.Deps {
		want := uint32(i + 1)
		if d.Num != want {
			cx.fatal(errors.DepNumbering(d.Num, want, d.Name))
		}
		cx.w.Start(tagDep)
		cx.w.TaggedStr(tagDepName, d.Name)
		cx.w.TaggedStr(tagDepHash, d.Hash)
		cx.w.End()
	}
	cx.w.End()
}

// eagerImpl reports whether consumers must load a trait impl
// unconditionally: destructor impls and impls of foreign-defined
// traits are needed for coherence checks before lazy loading is
// possible.
func (cx *encodeContext) eagerImpl(im *decl.Impl) bool {
	if !im.Trait.ID.IsLocal() {
		return true
	}
	return cx.unit.DropTrait != nil && im.Trait.ID == *cx.unit.DropTrait
}

// encodeFieldAttrs writes the field attribute table. Fields are not
// top-level declarations, so their attributes need their own index.
func (cx *encodeContext) encodeFieldAttrs() {
	cx.w.Start(tagFieldAttrs)
	cx.forEachItem(cx.unit.Root, func(it decl.Item) {
		switch v := it.(type) {
		case *decl.Struct:
			cx.encodeFieldAttrEntries(v.Fields)
		case *decl.Enum:
			for i := range v.Variants {
				cx.encodeFieldAttrEntries(v.Variants[i].Fields)
			}
		}
	})
	cx.w.End()
}

func (cx *encodeContext) encodeFieldAttrEntries(fields []decl.Field) {
	for i := range fields {
		f := &fields[i]
		if len(f.Attrs) == 0 {
			continue
		}
		cx.w.Start(tagFieldAttrsItem)
		cx.w.TaggedU64(tagItemID, f.ID.Word())
		cx.encodeAttrs(tagItemAttrs, f.Attrs)
		cx.w.End()
	}
}

// forEachItem walks the module tree depth-first.
func (cx *encodeContext) forEachItem(m *decl.Mod, fn func(decl.Item)) {
	for _, it := range m.Items {
		fn(it)
		if sub, ok := it.(*decl.Mod); ok {
			cx.forEachItem(sub, fn)
		}
	}
}
