// Package dispatch implements C6: the single dispatcher goroutine that owns
// the port table (C3) and aggregator table (C4) and is the only caller of the
// protocol engine (C5). External producers — PDU receive, link-state
// monitoring, configuration — only ever push an Event onto the Queue; they
// never touch engine/porttable/aggregator state directly.
package dispatch

import (
	"github.com/newtron-network/lacpd/pkg/lacp/handle"
	"github.com/newtron-network/lacpd/pkg/lacp/wire"
)

// Event is the closed set of inputs the dispatcher accepts. Each concrete
// type corresponds to one of spec.md §4.6's external events or §6's
// configuration operations.
type Event interface {
	event()
}

// RxPDU delivers one received frame (LACPDU or marker) off the wire.
type RxPDU struct {
	Port  handle.Port
	Frame [128]byte
}

// LinkUp delivers E1/E5: a port's link came up at the given speed.
type LinkUp struct {
	Port      handle.Port
	SpeedMbps uint32
}

// LinkDown delivers E2: a port's link went down.
type LinkDown struct {
	Port handle.Port
}

// ConfigLportSet creates (if new) or updates a port's administrative
// parameters and LACP enable state.
type ConfigLportSet struct {
	Port         handle.Port
	ActorKey     uint16
	PortPriority uint16
	Enabled      bool

	// Activity, Timeout and Aggregation set the actor's advertised
	// LACP_Activity, LACP_Timeout and Aggregation state bits.
	Activity    bool
	Timeout     bool
	Aggregation bool

	// SystemID overrides the actor system ID this port advertises; the zero
	// value leaves the engine-configured default in place.
	SystemID wire.SystemId
}

// ConfigLportClear removes a port from the port table, tearing down any
// aggregator membership first.
type ConfigLportClear struct {
	Port handle.Port
}

// ConfigSportCreate provisions a new aggregator. Reply, if non-nil, receives
// the outcome; sent without blocking if the caller isn't listening.
type ConfigSportCreate struct {
	Handle   handle.Port
	PortType uint8
	ActorKey uint16
	Reply    chan error
}

// ConfigSportDelete removes a provisioned aggregator.
type ConfigSportDelete struct {
	Handle handle.Port
	Reply  chan error
}

// ConfigSportParams updates an existing aggregator's administrative
// parameters: the provisioned actor key new member ports are matched
// against, the admin partner defaults, and the aggregation type.
type ConfigSportParams struct {
	Handle        handle.Port
	ActorKey      uint16
	Flags         uint8
	PartnerSysPri uint16
	PartnerSysMAC wire.MacAddr
	PartnerKey    uint16
	AggrType      uint8
	Reply         chan error
}

// SnapshotPorts requests a consistent, ascending-handle-order read of every
// port's protocol state, for `show` commands and monitoring.
type SnapshotPorts struct {
	Reply chan []PortSnapshot
}

// SnapshotSports requests the same for every aggregator.
type SnapshotSports struct {
	Reply chan []SportSnapshot
}

// Shutdown asks Run to stop once every event already queued ahead of it has
// been processed — a graceful drain, as opposed to ctx cancellation which
// stops immediately.
type Shutdown struct{}

func (RxPDU) event()             {}
func (LinkUp) event()            {}
func (LinkDown) event()          {}
func (ConfigLportSet) event()    {}
func (ConfigLportClear) event()  {}
func (ConfigSportCreate) event() {}
func (ConfigSportDelete) event() {}
func (ConfigSportParams) event() {}
func (SnapshotPorts) event()     {}
func (SnapshotSports) event()    {}
func (Shutdown) event()          {}
