package decl

// Type is a computed type-system value. The union is closed; the type
// encoder dispatches over exactly these constructors.
type Type interface {
	isType()
}

// Bool is the boolean type.
type Bool struct{}

// Char is the character type.
type Char struct{}

// Int is a signed integer type. Bits 0 means the machine word width.
type Int struct {
	Bits uint8
}

// Uint is an unsigned integer type. Bits 0 means the machine word width.
type Uint struct {
	Bits uint8
}

// Float is a floating point type.
type Float struct {
	Bits uint8
}

// Str is the string slice type.
type Str struct{}

// Never is the diverging type.
type Never struct{}

// Tuple is a product of element types; empty means unit.
type Tuple struct {
	Elems []Type
}

// Ref is a borrowed reference.
type Ref struct {
	Mutable bool
	Elem    Type
}

// RawPtr is an unsafe pointer.
type RawPtr struct {
	Mutable bool
	Elem    Type
}

// Slice is a dynamically sized sequence.
type Slice struct {
	Elem Type
}

// Array is a fixed-length sequence.
type Array struct {
	Elem Type
	Len  uint64
}

// FnPtr is a bare function pointer type.
type FnPtr struct {
	ABI    string
	Params []Type
	Ret    Type // nil means unit
}

// Nominal is a reference to a named struct or enum declaration,
// instantiated with substitution types.
type Nominal struct {
	ID     ID
	Substs []Type
}

// Param is a reference to an in-scope type parameter.
type Param struct {
	Space ParamSpace
	Index uint32
	Name  string
}

// Object is a trait object type.
type Object struct {
	Trait TraitRef
}

func (Bool) isType()    {}
func (Char) isType()    {}
func (Int) isType()     {}
func (Uint) isType()    {}
func (Float) isType()   {}
func (Str) isType()     {}
func (Never) isType()   {}
func (Tuple) isType()   {}
func (Ref) isType()     {}
func (RawPtr) isType()  {}
func (Slice) isType()   {}
func (Array) isType()   {}
func (FnPtr) isType()   {}
func (Nominal) isType() {}
func (Param) isType()   {}
func (Object) isType()  {}

// ParamSpace says which binder a generic parameter belongs to.
type ParamSpace uint8

const (
	TypeSpace ParamSpace = 0 // the declaration's own parameters
	SelfSpace ParamSpace = 1 // the trait Self parameter
	FnSpace   ParamSpace = 2 // late-bound function parameters
)

// TraitRef names a trait instantiated with substitution types. The
// first substitution is the Self type.
type TraitRef struct {
	ID     ID
	Substs []Type
}

// Predicate is one bound a set of generics imposes.
type Predicate interface {
	isPredicate()
}

// TraitBound requires the self type to implement a trait.
type TraitBound struct {
	Trait TraitRef
}

// OutlivesBound requires a type to outlive the declaration's scope.
type OutlivesBound struct {
	Ty Type
}

// ProjectionBound constrains an associated type to equal a type.
type ProjectionBound struct {
	Trait TraitRef
	Name  string
	Ty    Type
}

func (TraitBound) isPredicate()      {}
func (OutlivesBound) isPredicate()   {}
func (ProjectionBound) isPredicate() {}

// PredicateEntry is a predicate together with the parameter space it
// was declared in.
type PredicateEntry struct {
	Space ParamSpace
	Pred  Predicate
}

// TypeParamDef describes one declared type parameter.
type TypeParamDef struct {
	Name    string
	ID      ID
	Space   ParamSpace
	Index   uint32
	Default Type // nil when none
}

// RegionParamDef describes one declared lifetime parameter.
type RegionParamDef struct {
	Name   string
	ID     ID
	Space  ParamSpace
	Index  uint32
	Bounds []Type // region bounds, encoded as types
}

// Generics is the full set of parameters and bounds of a declaration.
type Generics struct {
	Types      []TypeParamDef
	Regions    []RegionParamDef
	Predicates []PredicateEntry
}

// Scheme is a declaration's generics plus its computed type.
type Scheme struct {
	Generics Generics
	Ty       Type
}
