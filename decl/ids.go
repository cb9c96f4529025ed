package decl

import "fmt"

// UnitNum identifies a compilation unit within one compile session.
// The unit being encoded is always 0; its dependencies are numbered
// densely from 1 in import order.
type UnitNum uint32

// LocalUnit is the unit number of the unit being encoded.
const LocalUnit UnitNum = 0

// ID identifies a declaration: the unit it was defined in and its
// sequence number within that unit. IDs are unique and stable for the
// duration of one compilation, nothing more.
type ID struct {
	Unit  UnitNum
	Index uint32
}

// LocalID creates an ID in the local unit.
func LocalID(index uint32) ID {
	return ID{Unit: LocalUnit, Index: index}
}

// IsLocal reports whether the declaration belongs to the unit being
// encoded.
func (id ID) IsLocal() bool {
	return id.Unit == LocalUnit
}

// Word packs the ID into the u64 wire form, unit in the high half.
func (id ID) Word() uint64 {
	return uint64(id.Unit)<<32 | uint64(id.Index)
}

// IDFromWord unpacks the u64 wire form.
func IDFromWord(w uint64) ID {
	return ID{Unit: UnitNum(w >> 32), Index: uint32(w)}
}

func (id ID) String() string {
	return fmt.Sprintf("%d:%d", id.Unit, id.Index)
}
