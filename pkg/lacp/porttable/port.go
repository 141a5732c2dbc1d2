// Package porttable holds C3, the per-port protocol state, indexed by port
// handle through the AVL-backed Table.
package porttable

import (
	"github.com/newtron-network/lacpd/internal/avl"
	"github.com/newtron-network/lacpd/pkg/lacp/handle"
	"github.com/newtron-network/lacpd/pkg/lacp/wire"
)

// Selected is the per-lport Selection Logic outcome.
type Selected int

const (
	Unselected Selected = iota
	SelectedState
	Standby
)

// RxState enumerates the Receive state machine's states.
type RxState int

const (
	RxBegin RxState = iota
	RxCurrent
	RxExpired
	RxDefaulted
	RxLACPDisabled
	RxPortDisabled
	RxInitialize
)

var rxStateNames = [...]string{
	RxBegin:        "BEGIN",
	RxCurrent:      "CURRENT",
	RxExpired:      "EXPIRED",
	RxDefaulted:    "DEFAULTED",
	RxLACPDisabled: "LACP_DISABLED",
	RxPortDisabled: "PORT_DISABLED",
	RxInitialize:   "INITIALIZE",
}

func (s RxState) String() string {
	if int(s) < 0 || int(s) >= len(rxStateNames) {
		return "UNKNOWN"
	}
	return rxStateNames[s]
}

// MuxState enumerates the Mux state machine's states.
type MuxState int

const (
	MuxBegin MuxState = iota
	MuxDetached
	MuxWaiting
	MuxAttached
	MuxCollecting
	MuxCollectingDistributing
)

var muxStateNames = [...]string{
	MuxBegin:                  "BEGIN",
	MuxDetached:               "DETACHED",
	MuxWaiting:                "WAITING",
	MuxAttached:               "ATTACHED",
	MuxCollecting:             "COLLECTING",
	MuxCollectingDistributing: "COLLECTING_DISTRIBUTING",
}

func (s MuxState) String() string {
	if int(s) < 0 || int(s) >= len(muxStateNames) {
		return "UNKNOWN"
	}
	return muxStateNames[s]
}

// PeriodicState enumerates the Periodic Transmission state machine's states.
type PeriodicState int

const (
	PeriodicBegin PeriodicState = iota
	NoPeriodic
	FastPeriodic
	SlowPeriodic
	PeriodicTx
)

// Endpoint bundles the identity a port advertises or has learned, used for
// both the actor side and (admin/oper) partner sides. It is an alias of
// wire.Endpoint, so SystemId, Key, PortId and State are the same fields the
// codec reads and writes.
type Endpoint = wire.Endpoint

// Stats holds the per-port counters from spec.md §3, extended with the
// additional counters original_source/mlacp_recv.c tracks (§12 of
// SPEC_FULL.md).
type Stats struct {
	LACPDUsSent          uint64
	LACPDUsReceived      uint64
	MarkersReceived      uint64
	MarkerResponsesSent  uint64
	LACPDURxErrors       uint64
	IllegalRx            uint64
	UnknownRx            uint64
}

// Port is C3: the per-lport protocol state, entirely owned and mutated by the
// single dispatcher goroutine.
type Port struct {
	Handle handle.Port // immutable for the lifetime of the entity

	LACPEnabled   bool
	LinkUp        bool
	LinkSpeedMbps uint32

	Actor        Endpoint
	PartnerAdmin Endpoint // operator-configured defaults
	PartnerOper  Endpoint // currently learned

	Selected    Selected
	ReadyN      bool
	SportHandle handle.Port
	HasSport    bool

	RxState       RxState
	MuxState      MuxState
	PeriodicState PeriodicState

	CurrentWhileTicks uint16
	PeriodicTxTicks   uint16
	WaitWhileTicks    uint8

	// PDUBudget is decremented per PDU sent and reset to MaxPDUsPerFastPeriod
	// whenever the Periodic FSM enters FAST_PERIODIC or SLOW_PERIODIC, so at
	// most 3 PDUs go out per periodic window (FAST_PERIODIC_TIME in fast mode,
	// SLOW_PERIODIC_TIME in slow mode); see spec.md §4.5.5.
	PDUBudget uint8

	NTT bool

	Stats Stats
}

// MaxPDUsPerFastPeriod is the per-port transmit rate limit from spec.md
// §4.5.5.
const MaxPDUsPerFastPeriod = 3

// New creates a port record with its handle fixed and admin defaults applied.
func New(h handle.Port, actorSystemID wire.SystemId) *Port {
	return &Port{
		Handle:      h,
		Actor:       Endpoint{SystemId: actorSystemID},
		RxState:     RxBegin,
		MuxState:    MuxBegin,
		HasSport:    false,
		PDUBudget:   MaxPDUsPerFastPeriod,
	}
}

// Table is C1 instantiated over handle.Port keys and *Port values.
type Table struct {
	tree *avl.Tree[handle.Port, *Port]
}

// NewTable returns an empty port table.
func NewTable() *Table {
	return &Table{tree: avl.New[handle.Port, *Port]()}
}

func (t *Table) Insert(p *Port) (existing *Port, ok bool) {
	return t.tree.InsertOrFind(p.Handle, p)
}

func (t *Table) Find(h handle.Port) (*Port, bool) { return t.tree.Find(h) }
func (t *Table) Delete(h handle.Port)             { t.tree.Delete(h) }
func (t *Table) Count() int                       { return t.tree.Count() }

func (t *Table) First() (*Port, bool) {
	_, v, ok := t.tree.First()
	return v, ok
}

func (t *Table) Last() (*Port, bool) {
	_, v, ok := t.tree.Last()
	return v, ok
}

func (t *Table) Next(h handle.Port) (*Port, bool) {
	_, v, ok := t.tree.Next(h)
	return v, ok
}

func (t *Table) Prev(h handle.Port) (*Port, bool) {
	_, v, ok := t.tree.Prev(h)
	return v, ok
}

// Walk visits every port in ascending handle order, stopping early if fn
// returns false. Used by the dispatcher's per-tick pass (spec.md §4.6:
// "process all ports in ascending handle order for determinism").
func (t *Table) Walk(fn func(*Port) bool) {
	t.tree.Walk(func(_ handle.Port, p *Port) bool { return fn(p) })
}
