// Package wire implements the LACPDU wire format: the fixed 128-octet frame
// layout from IEEE 802.3ad clause 43, plus the small value types (MacAddr,
// SystemId, PortId, PortState) that the protocol engine operates on.
package wire

import (
	"fmt"
	"net"
)

// MacAddr is a 6-byte hardware address, compared lexicographically.
type MacAddr [6]byte

// DefaultPartnerMAC is the "never responded" sentinel: a partner system MAC
// of all zeroes marks a port's learned partner info as not yet valid.
var DefaultPartnerMAC = MacAddr{}

func (m MacAddr) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// Compare returns <0, 0, >0 lexicographically.
func (m MacAddr) Compare(other MacAddr) int {
	for i := range m {
		if m[i] != other[i] {
			if m[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// IsZero reports whether m is the never-responded sentinel.
func (m MacAddr) IsZero() bool {
	return m == DefaultPartnerMAC
}

// ParseMAC parses a colon- or dash-separated hardware address into a MacAddr.
func ParseMAC(s string) (MacAddr, error) {
	var m MacAddr
	hw, err := net.ParseMAC(s)
	if err != nil {
		return m, err
	}
	if len(hw) != len(m) {
		return m, fmt.Errorf("wire: %q is not a 6-byte MAC address", s)
	}
	copy(m[:], hw)
	return m, nil
}

// DefaultActorSystemPriority is the default actor system priority absent
// operator configuration.
const DefaultActorSystemPriority uint16 = 65534

// SystemId identifies a LACP actor or partner system: (priority, MAC),
// compared lexicographically with priority most significant. The numerically
// smaller SystemId is "higher priority" for tie-breaking.
type SystemId struct {
	Priority uint16
	MAC      MacAddr
}

// Compare returns <0, 0, >0 lexicographically (priority then MAC).
func (s SystemId) Compare(other SystemId) int {
	if s.Priority != other.Priority {
		if s.Priority < other.Priority {
			return -1
		}
		return 1
	}
	return s.MAC.Compare(other.MAC)
}

func (s SystemId) String() string {
	return fmt.Sprintf("%d,%s", s.Priority, s.MAC)
}

// PortId identifies a port within a system: (priority, number), compared
// lexicographically.
type PortId struct {
	Priority uint16
	Number   uint16
}

// Compare returns <0, 0, >0 lexicographically.
func (p PortId) Compare(other PortId) int {
	if p.Priority != other.Priority {
		if p.Priority < other.Priority {
			return -1
		}
		return 1
	}
	switch {
	case p.Number < other.Number:
		return -1
	case p.Number > other.Number:
		return 1
	default:
		return 0
	}
}

// PortState is the 8-bit actor/partner state field carried on the wire.
// Bit numbering matches IEEE 802.3ad clause 43.4.2.
type PortState uint8

const (
	StateLACPActivity      PortState = 1 << 0
	StateLACPTimeout       PortState = 1 << 1
	StateAggregation       PortState = 1 << 2
	StateSynchronization   PortState = 1 << 3
	StateCollecting        PortState = 1 << 4
	StateDistributing      PortState = 1 << 5
	StateDefaulted         PortState = 1 << 6
	StateExpired           PortState = 1 << 7
)

// Has reports whether all bits in mask are set.
func (s PortState) Has(mask PortState) bool { return s&mask == mask }

// With returns s with the bits in mask set to v.
func (s PortState) With(mask PortState, v bool) PortState {
	if v {
		return s | mask
	}
	return s &^ mask
}

// Endpoint bundles the per-direction fields that repeat, byte-for-byte
// identically, for both the actor and partner TLVs of a LACPDU.
type Endpoint struct {
	SystemId SystemId
	Key      uint16
	PortId   PortId
	State    PortState
}

// PDU is the decoded form of a 128-octet LACPDU.
type PDU struct {
	Actor           Endpoint
	Partner         Endpoint
	CollectorMaxDelay uint16
}

// Marker is the decoded form of a marker-protocol PDU (subtype 0x02).
type Marker struct {
	RequesterPort   uint16
	RequesterSystem MacAddr
	RequesterTransactionID uint32
}
