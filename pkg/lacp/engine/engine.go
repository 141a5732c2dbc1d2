package engine

import (
	"github.com/newtron-network/lacpd/pkg/lacp/aggregator"
	"github.com/newtron-network/lacpd/pkg/lacp/porttable"
	"github.com/newtron-network/lacpd/pkg/lacp/wire"
)

// Engine is C5: the Receive, Periodic Transmission, and Mux state machines
// plus the Selection Logic, operating on the port table (C3/C1) and
// aggregator table (C4) it is constructed with.
type Engine struct {
	Config Config
	Ports  *porttable.Table
	Sports *aggregator.Table
	FP     ForwardingPlane
	PDU    PDUSink
}

// New builds an Engine. fp/pdu may be Nop* implementations in tests.
func New(cfg Config, ports *porttable.Table, sports *aggregator.Table, fp ForwardingPlane, pdu PDUSink) *Engine {
	return &Engine{Config: cfg, Ports: ports, Sports: sports, FP: fp, PDU: pdu}
}

// Begin drives a port through INITIALIZE (event E6), the entry point for a
// newly-configured port and for any port whose actor SystemId just changed.
func (e *Engine) Begin(p *porttable.Port) {
	p.Actor.SystemId = e.Config.ActorSystemID
	e.rxEnter(p, porttable.RxInitialize)
	e.periodicEvaluate(p)
}

// Restart re-runs Begin on every port, per spec.md §9: a changed actor system
// MAC restarts all Receive FSMs because SystemId is embedded in every PDU.
func (e *Engine) Restart() {
	e.Ports.Walk(func(p *porttable.Port) bool {
		e.Begin(p)
		return true
	})
}

// LinkUp delivers E1/E5 depending on whether LACP is administratively
// enabled, and updates link bookkeeping.
func (e *Engine) LinkUp(p *porttable.Port, speedMbps uint32) {
	p.LinkUp = true
	p.LinkSpeedMbps = speedMbps
	if p.LACPEnabled {
		e.rxEnter(p, porttable.RxExpired)
	} else {
		e.rxEnter(p, porttable.RxLACPDisabled)
	}
	e.periodicEvaluate(p)
	e.muxEvaluate(p)
}

// LinkDown delivers E2.
func (e *Engine) LinkDown(p *porttable.Port) {
	p.LinkUp = false
	p.Selected = porttable.Unselected
	e.rxEnter(p, porttable.RxPortDisabled)
	e.periodicEvaluate(p)
	e.muxEvaluate(p)
}

// SetLACPEnabled toggles administrative LACP enable/disable for a port
// (part of ConfigLportSet handling, spec.md §4.6).
func (e *Engine) SetLACPEnabled(p *porttable.Port, enabled bool) {
	if p.LACPEnabled == enabled {
		return // configurator idempotence, spec.md §6
	}
	p.LACPEnabled = enabled
	if !enabled {
		e.rxEnter(p, porttable.RxLACPDisabled)
		e.periodicEvaluate(p)
		e.muxEvaluate(p)
		return
	}
	if p.LinkUp {
		e.rxEnter(p, porttable.RxExpired)
	}
	e.periodicEvaluate(p)
	e.muxEvaluate(p)
}

// ReceivePDU delivers E3 with the decoded PDU's actor fields becoming this
// port's learned partner_oper.
func (e *Engine) ReceivePDU(p *porttable.Port, pdu wire.PDU) {
	p.Stats.LACPDUsReceived++
	changed := e.updatePartnerOper(p, pdu.Actor)
	e.rxEnter(p, porttable.RxCurrent)
	if changed {
		p.Selected = porttable.Unselected
	}
	e.periodicEvaluate(p)
	e.muxEvaluate(p)
}

// updatePartnerOper applies a received actor TLV to partner_oper, returning
// whether anything that affects Selection changed.
func (e *Engine) updatePartnerOper(p *porttable.Port, actorTLV wire.Endpoint) bool {
	old := p.PartnerOper
	p.PartnerOper = actorTLV
	return old.SystemId.Compare(actorTLV.SystemId) != 0 || old.Key != actorTLV.Key
}

// Tick advances this port's timers by one 100 ms increment and fires any
// expiry-driven transitions. The dispatcher calls this for every port, in
// ascending handle order, on each Tick event (spec.md §4.6).
func (e *Engine) Tick(p *porttable.Port) {
	e.tickCurrentWhile(p)
	e.tickPeriodic(p)
	e.tickWaitWhile(p)
	e.Transmit(p)
}

func (e *Engine) tickCurrentWhile(p *porttable.Port) {
	if p.RxState != porttable.RxCurrent && p.RxState != porttable.RxExpired {
		return
	}
	if p.CurrentWhileTicks == 0 {
		return
	}
	p.CurrentWhileTicks--
	if p.CurrentWhileTicks == 0 {
		e.rxTimerExpired(p)
	}
}
