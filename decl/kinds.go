package decl

// Kind is the wire tag identifying what a declaration record describes.
// The set is closed: the format supports exactly these kinds.
type Kind uint8

const (
	KindMod           Kind = 1  // module
	KindForeignMod    Kind = 2  // foreign-ABI block
	KindFn            Kind = 3  // free function
	KindStatic        Kind = 4  // immutable static
	KindStaticMut     Kind = 5  // mutable static
	KindConst         Kind = 6  // constant item
	KindTypeAlias     Kind = 7  // type alias
	KindEnum          Kind = 8  // enum declaration
	KindVariantTuple  Kind = 9  // tuple-style enum variant
	KindVariantStruct Kind = 10 // struct-style enum variant
	KindStruct        Kind = 11 // struct declaration
	KindCtor          Kind = 12 // tuple-struct constructor
	KindTrait         Kind = 13 // trait declaration
	KindImpl          Kind = 14 // impl block
	KindDefaultImpl   Kind = 15 // blanket default impl
	KindField         Kind = 16 // named struct field
	KindFieldUnnamed  Kind = 17 // positional struct field
	KindMethod        Kind = 18 // instance-bound method
	KindStaticMethod  Kind = 19 // static associated function
	KindAssocConst    Kind = 20 // associated constant
	KindAssocType     Kind = 21 // associated type
)

var kindNames = map[Kind]string{
	KindMod:           "mod",
	KindForeignMod:    "foreign mod",
	KindFn:            "fn",
	KindStatic:        "static",
	KindStaticMut:     "static mut",
	KindConst:         "const",
	KindTypeAlias:     "type alias",
	KindEnum:          "enum",
	KindVariantTuple:  "tuple variant",
	KindVariantStruct: "struct variant",
	KindStruct:        "struct",
	KindCtor:          "tuple ctor",
	KindTrait:         "trait",
	KindImpl:          "impl",
	KindDefaultImpl:   "default impl",
	KindField:         "field",
	KindFieldUnnamed:  "unnamed field",
	KindMethod:        "method",
	KindStaticMethod:  "static method",
	KindAssocConst:    "assoc const",
	KindAssocType:     "assoc type",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Visibility of a declaration as seen by downstream units.
type Visibility uint8

const (
	VisPublic    Visibility = 'y'
	VisInherited Visibility = 'i'
)

// Unsafety marks traits and impls that opt out of safety checking.
type Unsafety uint8

const (
	Safe   Unsafety = 0
	Unsafe Unsafety = 1
)

// Polarity distinguishes positive impls from negative ones.
type Polarity uint8

const (
	Positive Polarity = 0
	Negative Polarity = 1
)

// Constness marks functions evaluable at compile time.
type Constness uint8

const (
	NotConst Constness = 'n'
	IsConst  Constness = 'c'
)

// SelfKind is the receiver category of a method.
type SelfKind uint8

const (
	SelfStatic SelfKind = 's' // no receiver
	SelfValue  SelfKind = 'v' // by value
	SelfBox    SelfKind = '~' // boxed
	SelfRef    SelfKind = '&' // by reference
	SelfRefMut SelfKind = 'm' // by mutable reference
)

// Static reports whether the receiver category binds no instance.
func (s SelfKind) Static() bool {
	return s == SelfStatic
}

// Variance of a type or region parameter.
type Variance uint8

const (
	Covariant     Variance = 0
	Contravariant Variance = 1
	Invariant     Variance = 2
	Bivariant     Variance = 3
)

// NativeLibKind classifies linked native libraries. Statically linked
// libraries are not propagated to downstream units.
type NativeLibKind uint32

const (
	NativeStatic    NativeLibKind = 0
	NativeFramework NativeLibKind = 1
	NativeUnknown   NativeLibKind = 2
)
