package decl

// ItemBase carries the fields every declaration record opens with.
type ItemBase struct {
	ID    ID
	Name  string
	Vis   Visibility
	Attrs []Attribute
	Stab  *Stability
}

// Base returns the shared header fields.
func (b *ItemBase) Base() *ItemBase { return b }

// Item is one declaration in the module tree. The set of
// implementations is closed: Mod, ForeignMod, Fn, Static, Const,
// TypeAlias, Enum, Struct, Trait, Impl and DefaultImpl.
type Item interface {
	Base() *ItemBase
	isItem()
}

// Mod is a module. Only direct children are held; their records are
// emitted independently and referenced by identity.
type Mod struct {
	ItemBase
	Items []Item
}

// Fn is a free function.
type Fn struct {
	ItemBase
	Scheme    Scheme
	Constness Constness
	ABI       string // "" means the default ABI
	ArgNames  []string
	Body      []byte // pre-rendered inlinable body, nil when absent
}

// Static is a static item.
type Static struct {
	ItemBase
	Mutable bool
	Scheme  Scheme
}

// Const is a constant item. Constants always carry their body so
// downstream units can evaluate them.
type Const struct {
	ItemBase
	Scheme Scheme
	Body   []byte
}

// TypeAlias is a type alias.
type TypeAlias struct {
	ItemBase
	Scheme Scheme
}

// Field is a struct or struct-variant field. An empty Name marks a
// positional field.
type Field struct {
	ID     ID
	Name   string
	Vis    Visibility
	Attrs  []Attribute
	Stab   *Stability
	Scheme Scheme
}

// Ctor is the implicit constructor function of a tuple struct.
type Ctor struct {
	ID     ID
	Scheme Scheme
}

// Struct is a struct declaration.
type Struct struct {
	ItemBase
	Scheme    Scheme
	Variances []Variance
	Fields    []Field
	Ctor      *Ctor // non-nil only for tuple structs
}

// Variant is one enum variant. Disr is the explicit discriminant; nil
// means the implied previous+1 default.
type Variant struct {
	ID       ID
	Name     string
	Vis      Visibility
	Attrs    []Attribute
	Stab     *Stability
	IsStruct bool
	Fields   []Field // struct-style variants only
	Disr     *uint64
	Scheme   Scheme
}

// Enum is an enum declaration.
type Enum struct {
	ItemBase
	Scheme    Scheme
	Variances []Variance
	Variants  []Variant
	Body      []byte
}

// TraitItemBase carries the fields shared by trait and impl members.
type TraitItemBase struct {
	ID    ID
	Name  string
	Vis   Visibility
	Attrs []Attribute
	Stab  *Stability
}

// TraitBase returns the shared member header fields.
func (b *TraitItemBase) TraitBase() *TraitItemBase { return b }

// TraitItem is a member of a trait or an impl: an associated constant,
// a method, or an associated type.
type TraitItem interface {
	TraitBase() *TraitItemBase
	isTraitItem()
}

// AssocConst is an associated constant member.
type AssocConst struct {
	TraitItemBase
	Scheme Scheme
	// Default identifies the trait declaration providing the value
	// this member inherits, nil when the member defines its own.
	Default *ID
	Body    []byte
}

// Method is a function member.
type Method struct {
	TraitItemBase
	Scheme    Scheme
	Self      SelfKind
	Constness Constness
	ArgNames  []string
	// HasBody distinguishes provided members from required ones.
	HasBody bool
	Body    []byte
	// ProvidedSource identifies the trait method whose default body
	// this member inherits, nil when locally written.
	ProvidedSource *ID
}

// AssocType is an associated type member. Ty is the bound type in an
// impl and nil in a trait declaration.
type AssocType struct {
	TraitItemBase
	Ty Type
}

func (*AssocConst) isTraitItem() {}
func (*Method) isTraitItem()     {}
func (*AssocType) isTraitItem()  {}

// Trait is a trait declaration.
type Trait struct {
	ItemBase
	Unsafety       Unsafety
	HasDefaultImpl bool
	Generics       Generics
	SuperBounds    []PredicateEntry
	Ref            TraitRef // the trait's own reference, Self included
	AssocTypeNames []string
	Items          []TraitItem
	Variances      []Variance
}

// Impl is an impl block. Items is the full resolved member list in the
// originating trait's order; the first NumExplicit members were written
// in this impl, the rest are inherited defaults.
type Impl struct {
	ItemBase
	Scheme       Scheme
	Unsafety     Unsafety
	Polarity     Polarity
	Trait        *TraitRef // nil for inherent impls
	BaseTypeName string    // self type's head name when it has one
	Items        []TraitItem
	NumExplicit  int
}

// DefaultImpl is a blanket `impl Trait for ..` declaration.
type DefaultImpl struct {
	ItemBase
	Unsafety Unsafety
	Trait    TraitRef
}

// ForeignItem is a declaration inside a foreign-ABI block.
type ForeignItem interface {
	Base() *ItemBase
	isForeignItem()
}

// ForeignFn is an externally defined function.
type ForeignFn struct {
	ItemBase
	Scheme    Scheme
	ArgNames  []string
	Intrinsic bool
	Body      []byte // intrinsics inline their body
}

// ForeignStatic is an externally defined static.
type ForeignStatic struct {
	ItemBase
	Mutable bool
	Scheme  Scheme
}

func (*ForeignFn) isForeignItem()     {}
func (*ForeignStatic) isForeignItem() {}

// ForeignMod is a foreign-ABI block.
type ForeignMod struct {
	ItemBase
	ABI   string
	Items []ForeignItem
}

func (*Mod) isItem()         {}
func (*Fn) isItem()          {}
func (*Static) isItem()      {}
func (*Const) isItem()       {}
func (*TypeAlias) isItem()   {}
func (*Struct) isItem()      {}
func (*Enum) isItem()        {}
func (*Trait) isItem()       {}
func (*Impl) isItem()        {}
func (*DefaultImpl) isItem() {}
func (*ForeignMod) isItem()  {}
