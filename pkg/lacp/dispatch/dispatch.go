package dispatch

import (
	"context"
	"time"

	"github.com/newtron-network/lacpd/pkg/lacp/aggregator"
	"github.com/newtron-network/lacpd/pkg/lacp/engine"
	"github.com/newtron-network/lacpd/pkg/lacp/handle"
	"github.com/newtron-network/lacpd/pkg/lacp/porttable"
	"github.com/newtron-network/lacpd/pkg/lacp/wire"
	"github.com/newtron-network/lacpd/pkg/lacplog"
)

// TickInterval is the dispatcher's fixed timer granularity: every engine
// timer constant in spec.md §6 is expressed as a count of these ticks.
const TickInterval = 100 * time.Millisecond

// Dispatcher is C6: the single goroutine that drains Queue and is the only
// caller into Engine, Ports, and Sports. All mutation of protocol state goes
// through here, so none of it needs synchronization.
type Dispatcher struct {
	Engine *engine.Engine
	Queue  *Queue

	tickInterval time.Duration
}

// New builds a Dispatcher. Run must be called to start draining the queue.
func New(e *engine.Engine, q *Queue) *Dispatcher {
	return &Dispatcher{Engine: e, Queue: q, tickInterval: TickInterval}
}

// Run drains the queue and drives the periodic tick until ctx is canceled or
// a Shutdown event is processed. It must run on its own goroutine and is the
// only goroutine allowed to touch Engine/Ports/Sports.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Engine.Ports.Walk(func(p *porttable.Port) bool {
				d.Engine.Tick(p)
				return true
			})
		case ev := <-d.Queue.ch:
			if d.handle(ev) {
				return
			}
		}
	}
}

// handle processes one event, returning true if Run should stop (Shutdown).
func (d *Dispatcher) handle(ev Event) bool {
	switch e := ev.(type) {
	case RxPDU:
		d.handleRxPDU(e)
	case LinkUp:
		if p, ok := d.Engine.Ports.Find(e.Port); ok {
			d.Engine.LinkUp(p, e.SpeedMbps)
		}
	case LinkDown:
		if p, ok := d.Engine.Ports.Find(e.Port); ok {
			d.Engine.LinkDown(p)
		}
	case ConfigLportSet:
		d.handleConfigLportSet(e)
	case ConfigLportClear:
		d.handleConfigLportClear(e)
	case ConfigSportCreate:
		_, err := d.Engine.Sports.CreateSport(e.Handle, e.PortType, e.ActorKey)
		sendReply(e.Reply, err)
	case ConfigSportDelete:
		err := d.Engine.Sports.DestroySport(e.Handle)
		sendReply(e.Reply, err)
	case ConfigSportParams:
		d.handleConfigSportParams(e)
	case SnapshotPorts:
		sendSnapshot(e.Reply, d.snapshotAllPorts())
	case SnapshotSports:
		sendSnapshot(e.Reply, d.snapshotAllSports())
	case Shutdown:
		return true
	}
	return false
}

func (d *Dispatcher) handleRxPDU(e RxPDU) {
	p, ok := d.Engine.Ports.Find(e.Port)
	if !ok {
		return
	}
	frame := e.Frame[:]

	if wire.IsMarker(frame) {
		p.Stats.MarkersReceived++
		m, err := wire.DecodeMarker(frame)
		if err != nil {
			p.Stats.LACPDURxErrors++
			lacplog.WithPort(p.Handle).WithError(err).Warn("lacp: malformed marker PDU")
			return
		}
		resp := wire.EncodeMarkerResponse(m)
		d.Engine.PDU.SendPDU(p.Handle, resp)
		p.Stats.MarkerResponsesSent++
		return
	}

	pdu, err := wire.Decode(frame)
	if err != nil {
		p.Stats.LACPDURxErrors++
		lacplog.WithPort(p.Handle).WithError(err).Warn("lacp: malformed LACPDU")
		return
	}
	d.Engine.ReceivePDU(p, pdu)
}

func (d *Dispatcher) handleConfigLportSet(e ConfigLportSet) {
	p, ok := d.Engine.Ports.Find(e.Port)
	if !ok {
		p = porttable.New(e.Port, d.Engine.Config.ActorSystemID)
		d.Engine.Ports.Insert(p)
		d.Engine.Begin(p)
	}
	p.Actor.Key = e.ActorKey
	p.Actor.PortId.Priority = e.PortPriority
	p.Actor.State = p.Actor.State.
		With(wire.StateLACPActivity, e.Activity).
		With(wire.StateLACPTimeout, e.Timeout).
		With(wire.StateAggregation, e.Aggregation)
	if !e.SystemID.MAC.IsZero() {
		p.Actor.SystemId = e.SystemID
	}
	d.Engine.SetLACPEnabled(p, e.Enabled)
}

func (d *Dispatcher) handleConfigLportClear(e ConfigLportClear) {
	p, ok := d.Engine.Ports.Find(e.Port)
	if !ok {
		return
	}
	d.Engine.LinkDown(p) // drives the normal Detached/detach path before removal
	d.Engine.Ports.Delete(e.Port)
}

func (d *Dispatcher) handleConfigSportParams(e ConfigSportParams) {
	s, ok := d.Engine.Sports.Find(e.Handle)
	if !ok {
		sendReply(e.Reply, lportNotFound(e.Handle))
		return
	}
	s.ActorKey = e.ActorKey
	s.SetParams(e.Flags, e.PartnerSysPri, e.PartnerSysMAC, e.PartnerKey, e.AggrType)
	sendReply(e.Reply, nil)
}

func (d *Dispatcher) snapshotAllPorts() []PortSnapshot {
	var out []PortSnapshot
	d.Engine.Ports.Walk(func(p *porttable.Port) bool {
		out = append(out, snapshotPort(p))
		return true
	})
	return out
}

func (d *Dispatcher) snapshotAllSports() []SportSnapshot {
	var out []SportSnapshot
	d.Engine.Sports.Walk(func(s *aggregator.Sport) bool {
		out = append(out, snapshotSport(s))
		return true
	})
	return out
}

func sendReply(ch chan error, err error) {
	if ch == nil {
		return
	}
	select {
	case ch <- err:
	default:
	}
}

func sendSnapshot[T any](ch chan T, v T) {
	if ch == nil {
		return
	}
	select {
	case ch <- v:
	default:
	}
}

func lportNotFound(h handle.Port) error {
	return &notFoundError{h}
}

type notFoundError struct{ h handle.Port }

func (e *notFoundError) Error() string { return "lacp: sport " + e.h.String() + " not found" }
