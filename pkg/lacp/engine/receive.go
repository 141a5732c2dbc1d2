package engine

import (
	"github.com/newtron-network/lacpd/pkg/lacp/porttable"
	"github.com/newtron-network/lacpd/pkg/lacp/wire"
)

// rxEnter transitions the Receive FSM to state and runs its entry action, per
// spec.md §4.5.2. INITIALIZE immediately falls through to PORT_DISABLED, as
// the original transition table specifies.
func (e *Engine) rxEnter(p *porttable.Port, state porttable.RxState) {
	p.RxState = state
	switch state {
	case porttable.RxInitialize:
		p.PartnerOper = p.PartnerAdmin
		p.Selected = porttable.Unselected
		p.NTT = false
		e.rxEnter(p, porttable.RxPortDisabled)
		return

	case porttable.RxPortDisabled:
		p.PartnerOper.State = p.PartnerOper.State.With(wire.StateSynchronization, false)

	case porttable.RxLACPDisabled:
		p.PartnerOper.State = p.PartnerOper.State.With(wire.StateAggregation, false)

	case porttable.RxExpired:
		p.PartnerOper.State = p.PartnerOper.State.With(wire.StateSynchronization, false)
		p.PartnerOper.State = p.PartnerOper.State.With(wire.StateLACPTimeout, true)
		p.CurrentWhileTicks = FastPeriodicTime

	case porttable.RxDefaulted:
		p.PartnerOper = p.PartnerAdmin
		p.PartnerOper.State = p.PartnerOper.State.With(wire.StateDefaulted, true)

	case porttable.RxCurrent:
		if p.Actor.State.Has(wire.StateLACPTimeout) {
			p.CurrentWhileTicks = ShortTimeoutTime
		} else {
			p.CurrentWhileTicks = LongTimeoutTime
		}
	}
}

// rxTimerExpired handles current_while timer expiry (E4/E9), whose effect
// depends on the state it fires from: CURRENT -> EXPIRED, EXPIRED -> DEFAULTED.
func (e *Engine) rxTimerExpired(p *porttable.Port) {
	switch p.RxState {
	case porttable.RxCurrent:
		e.rxEnter(p, porttable.RxExpired)
	case porttable.RxExpired:
		e.rxEnter(p, porttable.RxDefaulted)
	}
	e.periodicEvaluate(p)
	e.muxEvaluate(p)
}
