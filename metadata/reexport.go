package metadata

import (
	"slices"

	"go.uber.org/zap"

	"github.com/metaforge/unitmeta/decl"
)

// encodeReexports lists a module's re-export edges inside its record:
// the exported name and the target identity.
func (cx *encodeContext) encodeReexports(mod decl.ID) {
	for _, exp := range cx.unit.ExportsOf(mod) {
		cx.w.Start(tagItemReexport)
		cx.w.TaggedStr(tagItemReexportName, exp.Name)
		cx.w.TaggedU64(tagItemReexportTarget, exp.Target.Word())
		cx.w.End()
	}
}

// encodeReexportedMembers mirrors the static members reachable through
// a re-export that renames its target or surfaces it under a different
// path. A consumer resolving a member call through the exported path
// can then stop there instead of chasing the original path.
//
// Inherent impls are authoritative; trait-provided members are used
// only when the target has no inherent impl set.
func (cx *encodeContext) encodeReexportedMembers(mod decl.ID) {
	modPath := cx.itemPath(mod)
	for _, exp := range cx.unit.ExportsOf(mod) {
		if !exp.Target.IsLocal() {
			continue
		}
		target, ok := cx.byID[exp.Target]
		if !ok {
			continue
		}
		exportPath := append(append([]string(nil), modPath...), exp.Name)
		if exp.Name == target.Base().Name && slices.Equal(exportPath, cx.itemPath(exp.Target)) {
			continue
		}

		if impls := cx.unit.InherentImpls[exp.Target]; len(impls) > 0 {
			for _, implID := range impls {
				im, ok := cx.byID[implID].(*decl.Impl)
				if !ok {
					continue
				}
				for _, ti := range im.Items {
					if m, ok := ti.(*decl.Method); ok && m.Self.Static() {
						cx.encodeMirroredMethod(exp, exportPath, m)
					}
				}
			}
			continue
		}
		if tr, ok := target.(*decl.Trait); ok {
			for _, ti := range tr.Items {
				if m, ok := ti.(*decl.Method); ok && m.Self.Static() && m.HasBody {
					cx.encodeMirroredMethod(exp, exportPath, m)
				}
			}
		}
	}
}

// encodeMirroredMethod writes a second record for a static member,
// named and pathed through the re-export. The original record keeps
// priority in the index: buckets preserve insertion order.
func (cx *encodeContext) encodeMirroredMethod(exp decl.Export, exportPath []string, m *decl.Method) {
	cx.log.Debug("mirroring static member through re-export",
		zap.String("export", exp.Name),
		zap.String("member", m.Name))

	cx.beginItem(m.ID, decl.KindStaticMethod)
	cx.w.TaggedStr(tagItemName, exp.Name+"::"+m.Name)
	cx.encodeVis(m.Vis)
	cx.w.TaggedU64(tagItemParent, exp.Target.Word())
	cx.encodeScheme(m.Scheme)
	cx.w.TaggedU8(tagItemSelf, uint8(m.Self))
	if wantsSymbol(m.Scheme.Generics) {
		cx.encodeSymbol(m.ID)
	}
	cx.encodePath(append(append([]string(nil), exportPath...), m.Name))
	cx.endItem()
}
