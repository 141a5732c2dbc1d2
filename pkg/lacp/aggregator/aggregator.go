// Package aggregator holds C4, the aggregator (sport/LAG) table: provisioned
// parameters, learned partner parameters, and the priority-preemption
// bookkeeping the Selection Logic (spec.md §4.5.1) depends on.
package aggregator

import (
	"github.com/newtron-network/lacpd/internal/avl"
	"github.com/newtron-network/lacpd/pkg/lacp/handle"
	"github.com/newtron-network/lacpd/pkg/lacp/lacperr"
	"github.com/newtron-network/lacpd/pkg/lacp/wire"
)

// PortPriority is the (actor_port_priority, partner_port_priority) pair used
// for PRIORITY_MATCH preemption, compared lexicographically per spec.md
// §4.5.1.
type PortPriority struct {
	Actor   uint16
	Partner uint16
}

// Less reports whether p is strictly higher priority (numerically smaller)
// than other.
func (p PortPriority) Less(other PortPriority) bool {
	if p.Actor != other.Actor {
		return p.Actor < other.Actor
	}
	return p.Partner < other.Partner
}

// Sport is C4: one aggregator's provisioned and learned state.
type Sport struct {
	Handle handle.Port

	PortType uint8
	ActorKey uint16

	// Learned from the first attached member; cleared when the last member
	// detaches.
	HasPartner      bool
	PartnerKey      uint16
	PartnerSystemID wire.SystemId

	ActorMaxPortPriority   uint16
	PartnerMaxPortPriority uint16

	NumLports int
	AdminUp   bool

	// Administrative partner defaults and aggregation type, provisioned via
	// ConfigSportParams. Flags holds the update mask of the most recent
	// ConfigSportParams: which of PartnerAdminSystemID/PartnerAdminKey that
	// update set.
	Flags                uint8
	PartnerAdminSystemID wire.SystemId
	PartnerAdminKey      uint16
	AggrType             uint8
}

// Administrative flag bits for Sport.Flags, set by ConfigSportParams.
const (
	FlagPartnerSysID uint8 = 1 << 0
	FlagPartnerKey   uint8 = 1 << 1
)

// SetParams records an administrative parameter update: the provisioned
// partner defaults and aggregation type. The values are stored on the Sport
// and reported in snapshots; SelectAggregator does not read them.
func (s *Sport) SetParams(flags uint8, partnerSysPri uint16, partnerSysMAC wire.MacAddr, partnerKey uint16, aggrType uint8) {
	s.Flags = flags
	if flags&FlagPartnerSysID != 0 {
		s.PartnerAdminSystemID = wire.SystemId{Priority: partnerSysPri, MAC: partnerSysMAC}
	}
	if flags&FlagPartnerKey != 0 {
		s.PartnerAdminKey = partnerKey
	}
	s.AggrType = aggrType
}

func (s *Sport) maxPriority() PortPriority {
	return PortPriority{Actor: s.ActorMaxPortPriority, Partner: s.PartnerMaxPortPriority}
}

// Table is C4's AVL-backed index, keyed by sport handle.
type Table struct {
	tree *avl.Tree[handle.Port, *Sport]
}

// NewTable returns an empty aggregator table.
func NewTable() *Table {
	return &Table{tree: avl.New[handle.Port, *Sport]()}
}

// CreateSport provisions a new aggregator. Fails with ErrDupSport if handle
// already exists.
func (t *Table) CreateSport(h handle.Port, portType uint8, actorKey uint16) (*Sport, error) {
	s := &Sport{Handle: h, PortType: portType, ActorKey: actorKey, AdminUp: true}
	if existing, ok := t.tree.InsertOrFind(h, s); ok {
		_ = existing
		return nil, lacperr.NewConfigError("create_sport", h, lacperr.ErrDupSport)
	}
	return s, nil
}

// DestroySport removes a provisioned aggregator. Fails with ErrBusy if it
// still has attached members or learned partner state.
func (t *Table) DestroySport(h handle.Port) error {
	s, ok := t.tree.Find(h)
	if !ok {
		return lacperr.NewConfigError("destroy_sport", h, lacperr.ErrNotFound)
	}
	if s.NumLports > 0 || s.HasPartner {
		return lacperr.NewConfigError("destroy_sport", h, lacperr.ErrBusy)
	}
	t.tree.Delete(h)
	return nil
}

func (t *Table) Find(h handle.Port) (*Sport, bool) { return t.tree.Find(h) }
func (t *Table) Count() int                        { return t.tree.Count() }

// Walk visits every sport in ascending handle order.
func (t *Table) Walk(fn func(*Sport) bool) {
	t.tree.Walk(func(_ handle.Port, s *Sport) bool { return fn(s) })
}

// PortTuple is the input to SelectAggregator: everything the incoming lport
// contributes to the matching decision, per spec.md §4.5.1.
type PortTuple struct {
	PortType        uint8
	ActorKey        uint16
	ActorPortPri    uint16
	PartnerSystemID wire.SystemId
	PartnerKey      uint16
	PartnerPortPri  uint16
	AllowCrossKeyPreemption bool
}

// MatchKind reports which of the three passes in spec.md §4.5.1 produced a
// selection result, for logging.
type MatchKind int

const (
	NoMatch MatchKind = iota
	ExactMatch
	PartialMatch
	PriorityMatch
)

// SelectResult is the outcome of SelectAggregator.
type SelectResult struct {
	Sport *Sport
	Kind  MatchKind
	// Preempted lists lport handles that must be forced UNSELECTED because a
	// PRIORITY_MATCH replaced their sport's learned partner.
	Preempted []handle.Port
}

// SelectAggregator tries EXACT_MATCH, then PARTIAL_MATCH, then PRIORITY_MATCH,
// returning the first successful pass (spec.md §4.5.1). membersOf returns the
// lports currently attached to a given sport, needed to force preempted
// members UNSELECTED.
func (t *Table) SelectAggregator(tuple PortTuple, membersOf func(handle.Port) []handle.Port) SelectResult {
	if tuple.PartnerSystemID.MAC.IsZero() {
		// A learned partner whose MAC is still the sentinel cannot
		// participate in EXACT_MATCH or PRIORITY_MATCH — only
		// PARTIAL_MATCH (which doesn't consult partner identity) can
		// match such a port.
		if s, ok := t.partialMatch(tuple); ok {
			return SelectResult{Sport: s, Kind: PartialMatch}
		}
		return SelectResult{Kind: NoMatch}
	}

	if s, ok := t.exactMatch(tuple); ok {
		return SelectResult{Sport: s, Kind: ExactMatch}
	}
	if s, ok := t.partialMatch(tuple); ok {
		return SelectResult{Sport: s, Kind: PartialMatch}
	}
	if s, preempted, ok := t.priorityMatch(tuple, membersOf); ok {
		return SelectResult{Sport: s, Kind: PriorityMatch, Preempted: preempted}
	}
	return SelectResult{Kind: NoMatch}
}

func (t *Table) exactMatch(tuple PortTuple) (*Sport, bool) {
	var found *Sport
	t.Walk(func(s *Sport) bool {
		if s.PortType != tuple.PortType || s.ActorKey != tuple.ActorKey {
			return true
		}
		if !s.HasPartner || s.PartnerKey != tuple.PartnerKey {
			return true
		}
		if s.PartnerSystemID.Compare(tuple.PartnerSystemID) != 0 {
			return true
		}
		found = s
		return false
	})
	return found, found != nil
}

func (t *Table) partialMatch(tuple PortTuple) (*Sport, bool) {
	var found *Sport
	t.Walk(func(s *Sport) bool {
		if s.NumLports != 0 || s.HasPartner {
			return true
		}
		if s.PortType != tuple.PortType || s.ActorKey != tuple.ActorKey {
			return true
		}
		found = s
		return false
	})
	if found == nil {
		return nil, false
	}
	found.HasPartner = true
	found.PartnerKey = tuple.PartnerKey
	found.PartnerSystemID = tuple.PartnerSystemID
	found.ActorMaxPortPriority = tuple.ActorPortPri
	found.PartnerMaxPortPriority = tuple.PartnerPortPri
	return found, true
}

func (t *Table) priorityMatch(tuple PortTuple, membersOf func(handle.Port) []handle.Port) (*Sport, []handle.Port, bool) {
	incoming := PortPriority{Actor: tuple.ActorPortPri, Partner: tuple.PartnerPortPri}

	var found *Sport
	t.Walk(func(s *Sport) bool {
		if s.PortType != tuple.PortType || s.ActorKey != tuple.ActorKey {
			return true
		}
		if !s.HasPartner {
			return true
		}
		sameKey := s.PartnerKey == tuple.PartnerKey
		systemPreempt := tuple.PartnerSystemID.Priority < s.PartnerSystemID.Priority
		if !sameKey && !tuple.AllowCrossKeyPreemption && !systemPreempt {
			return true
		}
		if !incoming.Less(s.maxPriority()) && !systemPreempt {
			return true
		}
		found = s
		return false
	})
	if found == nil {
		return nil, nil, false
	}

	var preempted []handle.Port
	if membersOf != nil {
		preempted = membersOf(found.Handle)
	}
	found.PartnerKey = tuple.PartnerKey
	found.PartnerSystemID = tuple.PartnerSystemID
	found.HasPartner = true
	found.ActorMaxPortPriority = tuple.ActorPortPri
	found.PartnerMaxPortPriority = tuple.PartnerPortPri
	return found, preempted, true
}

// AttachLport increments num_lports on sportHandle; on the first attach,
// seeds learned partner fields if they are not already set. lportHandle
// identifies the attaching member for logging/error context only — the
// membership set itself lives in porttable (each Port.SportHandle), per the
// ownership model in spec.md §3.
func (t *Table) AttachLport(sportHandle, lportHandle handle.Port, tuple PortTuple) error {
	s, ok := t.tree.Find(sportHandle)
	if !ok {
		return lacperr.NewConfigError("attach_lport", sportHandle, lacperr.ErrNotFound)
	}
	if !s.HasPartner {
		s.HasPartner = true
		s.PartnerKey = tuple.PartnerKey
		s.PartnerSystemID = tuple.PartnerSystemID
	}
	s.NumLports++
	return nil
}

// DetachLport decrements num_lports on sportHandle; when it reaches zero,
// clears learned partner fields and resets the max-priority accumulators.
func (t *Table) DetachLport(sportHandle, lportHandle handle.Port) error {
	s, ok := t.tree.Find(sportHandle)
	if !ok {
		return lacperr.NewConfigError("detach_lport", sportHandle, lacperr.ErrNotFound)
	}
	if s.NumLports > 0 {
		s.NumLports--
	}
	if s.NumLports == 0 {
		s.HasPartner = false
		s.PartnerKey = 0
		s.PartnerSystemID = wire.SystemId{}
		s.ActorMaxPortPriority = 0
		s.PartnerMaxPortPriority = 0
	}
	return nil
}
