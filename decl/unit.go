package decl

// Dep is one direct dependency of the unit. Nums must form a dense
// 1..N sequence in import order; the encoder asserts this.
type Dep struct {
	Num  uint32
	Name string
	Hash string
}

// LangItem binds a slot of the fixed language-item table to a local
// declaration.
type LangItem struct {
	Slot uint32
	ID   ID
}

// NativeLib is a linked native library.
type NativeLib struct {
	Kind NativeLibKind
	Name string
}

// DylibDep records how one dependency must be linked when this unit is
// built into a dynamic library.
type DylibDep struct {
	Num     uint32
	Dynamic bool
}

// FileMap is the line-offset table of one source file, used downstream
// to translate spans.
type FileMap struct {
	Name     string
	Imported bool
	StartPos uint32
	// Lines holds the byte offset of each line start, relative to
	// StartPos.
	Lines []uint32
}

// MacroDef is an exported macro, carried as verbatim source text.
type MacroDef struct {
	Name  string
	Attrs []Attribute
	Body  string
}

// Export is one re-export edge: a name made visible by a module and
// the declaration it resolves to.
type Export struct {
	Name   string
	Target ID
}

// Unit is the full input to the encoder: the public surface of one
// compilation unit with all resolutions precomputed.
type Unit struct {
	Name   string
	Triple string
	Hash   string

	Attrs     []Attribute
	Deps      []Dep
	DylibDeps []DylibDep

	LangItems    []LangItem
	MissingLangs []uint32

	NativeLibs      []NativeLib
	PluginRegistrar *ID

	Files  []FileMap
	Macros []MacroDef

	// Root is the unit's root module. Its name is empty by
	// convention.
	Root *Mod

	// Reexports maps a module to the exports its public `use`
	// declarations introduce.
	Reexports map[ID][]Export

	// InherentImpls maps a type declaration to the impl blocks
	// attaching members directly to it.
	InherentImpls map[ID][]ID

	// TraitImpls maps a locally defined trait to every local impl of
	// it.
	TraitImpls map[ID][]ID

	// Symbols maps declarations to their linkage symbols. Missing
	// entries for declarations that need one are fatal.
	Symbols map[ID]string

	// Reachable is the set of local declarations reachable from the
	// unit's public surface.
	Reachable map[ID]bool

	// DropTrait is the language's destructor trait, when known. Local
	// impls of it belong to the eager-load set.
	DropTrait *ID
}

// SymbolOf looks up a declaration's linkage symbol.
func (u *Unit) SymbolOf(id ID) (string, bool) {
	s, ok := u.Symbols[id]
	return s, ok
}

// ExportsOf returns the re-exports introduced by a module, nil when
// none.
func (u *Unit) ExportsOf(mod ID) []Export {
	return u.Reexports[mod]
}
