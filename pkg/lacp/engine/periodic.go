package engine

import (
	"github.com/newtron-network/lacpd/pkg/lacp/porttable"
	"github.com/newtron-network/lacpd/pkg/lacp/wire"
)

// periodicEvaluate re-derives the Periodic Transmission FSM's target state
// from current activity/timeout inputs and walks spec.md §4.5.3's transitions
// until no further one applies.
func (e *Engine) periodicEvaluate(p *porttable.Port) {
	for {
		next, ok := e.periodicNext(p)
		if !ok {
			return
		}
		e.periodicEnter(p, next)
	}
}

func (e *Engine) periodicNext(p *porttable.Port) (porttable.PeriodicState, bool) {
	active := p.LACPEnabled && (p.Actor.State.Has(wire.StateLACPActivity) || p.PartnerOper.State.Has(wire.StateLACPActivity))
	if !active {
		if p.PeriodicState != porttable.NoPeriodic {
			return porttable.NoPeriodic, true
		}
		return porttable.PeriodicBegin, false
	}
	switch p.PeriodicState {
	case porttable.PeriodicBegin, porttable.NoPeriodic:
		return e.periodicTimeoutState(p), true
	case porttable.FastPeriodic, porttable.SlowPeriodic:
		if p.PeriodicTxTicks == 0 {
			return porttable.PeriodicTx, true
		}
	case porttable.PeriodicTx:
		return e.periodicTimeoutState(p), true
	}
	return porttable.PeriodicBegin, false
}

// periodicTimeoutState picks FAST_PERIODIC or SLOW_PERIODIC from the
// partner's timeout preference: transmission period is fast only when the
// partner asked for short timeouts.
func (e *Engine) periodicTimeoutState(p *porttable.Port) porttable.PeriodicState {
	if p.PartnerOper.State.Has(wire.StateLACPTimeout) {
		return porttable.FastPeriodic
	}
	return porttable.SlowPeriodic
}

func (e *Engine) periodicEnter(p *porttable.Port, state porttable.PeriodicState) {
	p.PeriodicState = state
	switch state {
	case porttable.NoPeriodic:
		p.PeriodicTxTicks = 0
	case porttable.FastPeriodic:
		p.PeriodicTxTicks = FastPeriodicTime
		p.PDUBudget = porttable.MaxPDUsPerFastPeriod
	case porttable.SlowPeriodic:
		p.PeriodicTxTicks = SlowPeriodicTime
		p.PDUBudget = porttable.MaxPDUsPerFastPeriod
	case porttable.PeriodicTx:
		p.NTT = true
	}
}

// tickPeriodic advances the periodic timer by one 100 ms increment.
func (e *Engine) tickPeriodic(p *porttable.Port) {
	if p.PeriodicState == porttable.FastPeriodic || p.PeriodicState == porttable.SlowPeriodic {
		if p.PeriodicTxTicks > 0 {
			p.PeriodicTxTicks--
		}
	}
	e.periodicEvaluate(p)
}

// tickWaitWhile advances wait_while by one 100 ms increment while MUX is
// WAITING, driving the aggregator readiness handshake at zero (spec.md §4.5.4).
func (e *Engine) tickWaitWhile(p *porttable.Port) {
	if p.MuxState != porttable.MuxWaiting || p.WaitWhileTicks == 0 {
		return
	}
	p.WaitWhileTicks--
	if p.WaitWhileTicks == 0 {
		e.waitWhileExpired(p)
	}
}
