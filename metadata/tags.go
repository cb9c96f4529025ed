package metadata

// Blob version tag. The tag precedes the length-prefixed record stream
// and is itself never length-prefixed; the last byte is the integer
// format version.
var versionTag = [8]byte{'u', 'm', 'e', 't', 0, 0, 0, 2}

// frameHeaderLen is the version tag plus the u32 length prefix.
const frameHeaderLen = len(versionTag) + 4

// Top-level header sections, emitted in this order.
const (
	tagUnitName   uint32 = 0x01 // unit name (string)
	tagUnitTriple uint32 = 0x02 // target triple (string)
	tagUnitHash   uint32 = 0x03 // content hash (string)

	tagDylibDeps uint32 = 0x04 // dynamic-link dependency formatting
	tagDylibDep  uint32 = 0x05 // packed u64: num<<1 | dynamic

	tagUnitAttrs uint32 = 0x06 // root attributes

	tagDeps    uint32 = 0x07 // ordered 1..N dependency list
	tagDep     uint32 = 0x08
	tagDepName uint32 = 0x09
	tagDepHash uint32 = 0x0A

	tagLangItems   uint32 = 0x0B // language-item table, local slots only
	tagLangItem    uint32 = 0x0C // packed u64: slot<<32 | local index
	tagMissingLang uint32 = 0x0D // packed u32 slot

	tagNativeLibs    uint32 = 0x0E // linked native libraries
	tagNativeLib     uint32 = 0x0F
	tagNativeLibKind uint32 = 0x10
	tagNativeLibName uint32 = 0x11

	tagPluginRegistrar uint32 = 0x12 // packed u32 local index, optional

	tagFiles     uint32 = 0x13 // per-file line-offset tables
	tagFile      uint32 = 0x14
	tagFileName  uint32 = 0x15
	tagFileStart uint32 = 0x16 // packed u32 base position
	tagFileLines uint32 = 0x17 // raw u32 BE line-start offsets

	tagMacros    uint32 = 0x18 // exported macros, verbatim text
	tagMacro     uint32 = 0x19
	tagMacroName uint32 = 0x1A
	tagMacroBody uint32 = 0x1B

	tagEagerImpls uint32 = 0x1C // impls consumers must load eagerly
	tagEagerImpl  uint32 = 0x1D // packed u32 local index

	tagRootMod uint32 = 0x1E // root module children and re-exports

	tagReachable   uint32 = 0x1F // reachable foreign-ABI functions
	tagReachableID uint32 = 0x20 // packed u32 local index
)

// The items section: declaration records followed by the item index.
const (
	tagItems     uint32 = 0x30
	tagItemsData uint32 = 0x31
	tagItem      uint32 = 0x32
)

// Children of a declaration record. Which appear depends on the kind;
// every record opens with kind, id and (when applicable) type data.
const (
	tagItemKind      uint32 = 0x40 // u8 decl.Kind
	tagItemID        uint32 = 0x41 // packed u64 ID word
	tagItemName      uint32 = 0x42 // string
	tagItemVis       uint32 = 0x43 // u8 visibility
	tagItemType      uint32 = 0x44 // type-grammar bytes
	tagItemTypeParam uint32 = 0x45 // type-grammar bytes, one per param
	tagItemRegion    uint32 = 0x46 // type-grammar bytes, one per region
	tagItemPredicate uint32 = 0x47 // u8 space then predicate bytes
	tagItemPath      uint32 = 0x48
	tagItemAttrs     uint32 = 0x49
	tagItemChild     uint32 = 0x4B // packed u64 child ID word
	tagItemSymbol    uint32 = 0x4C // linkage symbol, string
	tagItemBody      uint32 = 0x4D // inlinable body, raw bytes
	tagItemVariances uint32 = 0x4E // raw variance bytes

	tagItemParent     uint32 = 0x4F // packed u64 owning declaration
	tagItemField      uint32 = 0x50 // packed u64 field ID word
	tagItemFieldIndex uint32 = 0x51 // embedded field sub-index
	tagItemCtor       uint32 = 0x52 // packed u64 tuple ctor ID word
	tagItemVariant    uint32 = 0x53 // packed u64 variant ID word
	tagItemDisr       uint32 = 0x54 // packed u64 explicit discriminant

	tagItemABI       uint32 = 0x55 // string
	tagItemConstness uint32 = 0x56 // u8
	tagItemArgName   uint32 = 0x57 // string, one per argument

	tagItemUnsafety      uint32 = 0x58 // u8
	tagItemPolarity      uint32 = 0x59 // u8
	tagItemDefaultImpl   uint32 = 0x5A // u8, trait has a default impl
	tagItemSuperBound    uint32 = 0x5B // u8 space then predicate bytes
	tagItemTraitRef      uint32 = 0x5C // trait-ref bytes
	tagItemAssocTypeName uint32 = 0x5D // string
	tagItemMember        uint32 = 0x5E // packed u64 member ID word

	tagItemSelf     uint32 = 0x5F // u8 receiver category
	tagItemProvided uint32 = 0x60 // u8, 1 provided / 0 required
	tagItemSource   uint32 = 0x61 // packed u64 inherited-default origin

	tagItemReexport       uint32 = 0x62
	tagItemReexportName   uint32 = 0x63
	tagItemReexportTarget uint32 = 0x64 // packed u64 target ID word

	tagItemInherentImpl  uint32 = 0x65 // packed u64 impl block ID word
	tagItemExtensionImpl uint32 = 0x66 // packed u64 trait impl ID word
)

// Path segments.
const (
	tagPathMod  uint32 = 0x70 // enclosing module segment
	tagPathName uint32 = 0x71 // final segment
)

// Attributes and stability.
const (
	tagAttr          uint32 = 0x78
	tagAttrDoc       uint32 = 0x79 // u8, synthesized from a doc comment
	tagMetaWord      uint32 = 0x7A // string
	tagMetaNameValue uint32 = 0x7B
	tagMetaName      uint32 = 0x7C
	tagMetaValue     uint32 = 0x7D
	tagMetaList      uint32 = 0x7E // name child plus nested meta items

	tagStab           uint32 = 0x80
	tagStabLevel      uint32 = 0x81
	tagStabFeature    uint32 = 0x82
	tagStabSince      uint32 = 0x83
	tagStabDeprecated uint32 = 0x84
	tagStabReason     uint32 = 0x85
)

// The two-level item index. Bucket payloads are positional: raw
// (u32 BE offset, u32 BE key) pairs, no nested tags. The table holds
// exactly 256 raw u32 BE bucket-record offsets.
const (
	tagIndex        uint32 = 0x90
	tagIndexBuckets uint32 = 0x91
	tagIndexBucket  uint32 = 0x92
	tagIndexTable   uint32 = 0x93
)

// Field attribute table: fields are not top-level declarations, so
// their attributes get their own section.
const (
	tagFieldAttrs     uint32 = 0x98
	tagFieldAttrsItem uint32 = 0x99
)

// Type-grammar constructor bytes, used inside tagItemType and friends.
const (
	tyBool   byte = 0x01
	tyChar   byte = 0x02
	tyInt    byte = 0x03 // u8 width, 0 = machine word
	tyUint   byte = 0x04 // u8 width, 0 = machine word
	tyFloat  byte = 0x05 // u8 width
	tyStr    byte = 0x06
	tyNever  byte = 0x07
	tyTuple  byte = 0x08 // uvarint count, elements
	tyRef    byte = 0x09 // u8 mut, element
	tyRawPtr byte = 0x0A // u8 mut, element
	tySlice  byte = 0x0B // element
	tyArray  byte = 0x0C // uvarint length, element
	tyFnPtr  byte = 0x0D // abi, params, optional result
	tyNom    byte = 0x0E // declaration id, substitutions
	tyParam  byte = 0x0F // u8 space, uvarint index, name
	tyObject byte = 0x10 // trait ref
	tyAbbrev byte = 0x11 // uvarint absolute pos, uvarint length
)

// Predicate bytes.
const (
	predTrait      byte = 0x01
	predOutlives   byte = 0x02
	predProjection byte = 0x03
)
