// Package handle implements the port-handle bit layout shared between lport
// and sport identifiers: a single opaque 64-bit value that callers compare,
// hash, and index by, but never construct ad hoc.
package handle

import "fmt"

// Port is an opaque, totally ordered port identifier. Bit 63 distinguishes an
// lport (0) from an sport (1); the remaining bits are interpreted per kind,
// see FromLport and FromSport.
type Port uint64

const (
	sportFlag uint64 = 1 << 63

	// lport field widths/offsets.
	lportSlotShift = 58
	lportSlotMask  = 0x1F // 5 bits

	lportModuleShift = 56
	lportModuleMask  = 0x3 // 2 bits

	lportPortShift = 48
	lportPortMask  = 0xFF // 8 bits

	lportTypeShift = 44
	lportTypeMask  = 0xF // 4 bits

	lportSVLANShift = 43
	lportSVLANMask  = 0x1 // 1 bit

	// sport field widths/offsets.
	sportTypeShift = 59
	sportTypeMask  = 0xF // 4 bits

	sportIDShift = 43
	sportIDMask  = 0xFFFF // 16 bits (bits 43-58)

	// SportTypeLAG is the sport type value for a link aggregation group.
	SportTypeLAG = 1
)

// Compare makes Port satisfy avl.Key[Port].
func (p Port) Compare(other Port) int {
	switch {
	case p < other:
		return -1
	case p > other:
		return 1
	default:
		return 0
	}
}

// String renders the handle for logs and error messages.
func (p Port) String() string {
	if p.IsSport() {
		t, id := p.SportFields()
		return fmt.Sprintf("sport(type=%d,id=%d)", t, id)
	}
	slot, module, port, portType, svlan := p.LportFields()
	return fmt.Sprintf("lport(slot=%d,mod=%d,port=%d,type=%d,svlan=%v)", slot, module, port, portType, svlan)
}

// IsSport reports whether h identifies an aggregator rather than a physical
// port.
func (p Port) IsSport() bool {
	return uint64(p)&sportFlag != 0
}

// FromLport packs (slot, module, port, portType, svlan) into an lport handle.
func FromLport(slot, module, port, portType uint8, svlan bool) Port {
	var h uint64
	h |= (uint64(slot) & lportSlotMask) << lportSlotShift
	h |= (uint64(module) & lportModuleMask) << lportModuleShift
	h |= (uint64(port) & lportPortMask) << lportPortShift
	h |= (uint64(portType) & lportTypeMask) << lportTypeShift
	if svlan {
		h |= lportSVLANMask << lportSVLANShift
	}
	return Port(h)
}

// LportFields unpacks an lport handle. Behavior is undefined if p.IsSport().
func (p Port) LportFields() (slot, module, port, portType uint8, svlan bool) {
	v := uint64(p)
	slot = uint8((v >> lportSlotShift) & lportSlotMask)
	module = uint8((v >> lportModuleShift) & lportModuleMask)
	port = uint8((v >> lportPortShift) & lportPortMask)
	portType = uint8((v >> lportTypeShift) & lportTypeMask)
	svlan = (v>>lportSVLANShift)&lportSVLANMask != 0
	return
}

// FromSport packs (sportType, id) into a sport handle.
func FromSport(sportType uint8, id uint16) Port {
	h := sportFlag
	h |= (uint64(sportType) & sportTypeMask) << sportTypeShift
	h |= (uint64(id) & sportIDMask) << sportIDShift
	return Port(h)
}

// SportFields unpacks a sport handle. Behavior is undefined if !p.IsSport().
func (p Port) SportFields() (sportType uint8, id uint16) {
	v := uint64(p)
	sportType = uint8((v >> sportTypeShift) & sportTypeMask)
	id = uint16((v >> sportIDShift) & sportIDMask)
	return
}

// NewLAG is a convenience constructor for a LAG sport handle.
func NewLAG(id uint16) Port {
	return FromSport(SportTypeLAG, id)
}
