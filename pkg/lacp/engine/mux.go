package engine

import (
	"github.com/newtron-network/lacpd/pkg/lacp/handle"
	"github.com/newtron-network/lacpd/pkg/lacp/porttable"
	"github.com/newtron-network/lacpd/pkg/lacp/wire"
)

// muxEvaluate re-derives the Mux FSM's target state from current Selected/
// partner-sync inputs and walks the transition guards of spec.md §4.5.4 until
// no further transition applies. It is re-run after every event that can
// change Selected, partner sync bits, or link state.
func (e *Engine) muxEvaluate(p *porttable.Port) {
	// Selection only runs once partner_oper holds real information: either a
	// partner has actually responded, or the operator statically configured
	// partner_admin for a no-protocol member. Attempting PARTIAL_MATCH while
	// partner_oper is still the "never responded" sentinel is the individual/
	// standalone-aggregation fallback that spec.md §9 Open Question 3 puts
	// out of scope.
	if p.Selected == porttable.Unselected && p.RxState != porttable.RxPortDisabled && !p.PartnerOper.SystemId.MAC.IsZero() {
		e.runSelectionLogic(p)
	}
	for {
		next, ok := e.muxNext(p)
		if !ok {
			return
		}
		e.muxEnter(p, next)
	}
}

func (e *Engine) muxNext(p *porttable.Port) (porttable.MuxState, bool) {
	if p.Selected == porttable.Unselected && p.MuxState != porttable.MuxDetached {
		return porttable.MuxDetached, true
	}
	switch p.MuxState {
	case porttable.MuxBegin:
		return porttable.MuxDetached, true
	case porttable.MuxDetached:
		if p.Selected == porttable.SelectedState {
			return porttable.MuxWaiting, true
		}
	case porttable.MuxWaiting:
		if p.WaitWhileTicks == 0 && e.sportReady(p.SportHandle) {
			return porttable.MuxAttached, true
		}
	case porttable.MuxAttached:
		if p.PartnerOper.State.Has(wire.StateSynchronization) {
			return porttable.MuxCollecting, true
		}
	case porttable.MuxCollecting:
		if p.PartnerOper.State.Has(wire.StateSynchronization) && p.PartnerOper.State.Has(wire.StateCollecting) {
			return porttable.MuxCollectingDistributing, true
		}
	case porttable.MuxCollectingDistributing:
		if !p.PartnerOper.State.Has(wire.StateCollecting) {
			return porttable.MuxCollecting, true
		}
	}
	return porttable.MuxBegin, false
}

// muxEnter runs the entry action for state, per spec.md §4.5.4.
func (e *Engine) muxEnter(p *porttable.Port, state porttable.MuxState) {
	prev := p.MuxState
	p.MuxState = state
	switch state {
	case porttable.MuxDetached:
		p.Actor.State = p.Actor.State.With(wire.StateSynchronization, false)
		p.Actor.State = p.Actor.State.With(wire.StateCollecting, false)
		p.Actor.State = p.Actor.State.With(wire.StateDistributing, false)
		if p.HasSport {
			e.detachFromSport(p)
		}
		e.FP.SetRx(p.Handle, false)
		e.FP.SetTx(p.Handle, false)
		p.NTT = true

	case porttable.MuxWaiting:
		p.WaitWhileTicks = AggregateWaitTime
		p.ReadyN = false

	case porttable.MuxAttached:
		e.attachToSport(p)
		p.Actor.State = p.Actor.State.With(wire.StateSynchronization, true)
		p.Actor.State = p.Actor.State.With(wire.StateCollecting, false)
		p.Actor.State = p.Actor.State.With(wire.StateDistributing, false)
		p.NTT = true

	case porttable.MuxCollecting:
		e.FP.SetRx(p.Handle, true)
		p.Actor.State = p.Actor.State.With(wire.StateCollecting, true)
		if prev == porttable.MuxCollectingDistributing {
			e.FP.SetTx(p.Handle, false)
			p.Actor.State = p.Actor.State.With(wire.StateDistributing, false)
		}
		p.NTT = true

	case porttable.MuxCollectingDistributing:
		e.FP.SetTx(p.Handle, true)
		p.Actor.State = p.Actor.State.With(wire.StateDistributing, true)
		p.NTT = true
	}
}

// detachFromSport removes p from its current aggregator, per the DETACHED
// entry action.
func (e *Engine) detachFromSport(p *porttable.Port) {
	sport := p.SportHandle
	e.FP.RemoveSlave(sport, p.Handle)
	if err := e.Sports.DetachLport(sport, p.Handle); err == nil {
		if s, ok := e.Sports.Find(sport); ok && s.NumLports == 0 {
			e.FP.LagDestroy(sport)
		}
	}
	p.HasSport = false
}

// sportReady reports whether every port currently selected (candidate or
// attached) onto sportHandle, and not itself LACP_DISABLED, has ready_n set.
// Per spec.md §9 Open Question 2, members in LACP_DISABLED count as ready
// regardless of their actual ready_n value.
func (e *Engine) sportReady(sportHandle handle.Port) bool {
	ready := true
	e.Ports.Walk(func(port *porttable.Port) bool {
		if port.Selected != porttable.SelectedState || port.SportHandle != sportHandle {
			return true
		}
		if port.RxState == porttable.RxLACPDisabled {
			return true
		}
		if !port.ReadyN {
			ready = false
			return false
		}
		return true
	})
	return ready
}

// waitWhileExpired handles a port's wait_while timer reaching zero: its own
// ready_n becomes true, and if that makes the whole aggregator ready, every
// other member still in WAITING (whose own timer has also expired) advances
// to ATTACHED too.
func (e *Engine) waitWhileExpired(p *porttable.Port) {
	p.ReadyN = true
	e.muxEvaluate(p)
	if p.Selected != porttable.SelectedState {
		return
	}
	sportHandle := p.SportHandle
	if !e.sportReady(sportHandle) {
		return
	}
	e.Ports.Walk(func(port *porttable.Port) bool {
		if port == p || port.Selected != porttable.SelectedState || port.SportHandle != sportHandle {
			return true
		}
		if port.MuxState == porttable.MuxWaiting && port.WaitWhileTicks == 0 {
			e.muxEvaluate(port)
		}
		return true
	})
}
