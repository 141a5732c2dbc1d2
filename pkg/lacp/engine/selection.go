package engine

import (
	"github.com/newtron-network/lacpd/pkg/lacp/aggregator"
	"github.com/newtron-network/lacpd/pkg/lacp/handle"
	"github.com/newtron-network/lacpd/pkg/lacp/porttable"
	"github.com/newtron-network/lacpd/pkg/lacplog"
)

// runSelectionLogic is the Selection Logic (spec.md §4.5.1): it picks a
// candidate aggregator for p and records it in p.SportHandle/p.Selected, but
// does not join it yet. Physical membership (aggregator.Table.AttachLport,
// p.HasSport) is recorded only once the Mux FSM actually reaches ATTACHED,
// via attachToSport — sportReady must be able to see every port that has
// merely been selected onto a candidate, not only the ones already attached,
// so the wait_while/ready_n handshake converges for every member at once.
//
// On ERR_NO_MATCH, p is left UNSELECTED and logged at info severity (not an
// error to the configurator, per spec.md §7).
func (e *Engine) runSelectionLogic(p *porttable.Port) {
	tuple := buildPortTuple(e, p)

	res := e.Sports.SelectAggregator(tuple, func(sportHandle handle.Port) []handle.Port {
		return e.candidatesOf(sportHandle)
	})
	if res.Kind == aggregator.NoMatch {
		p.Selected = porttable.Unselected
		lacplog.WithPort(p.Handle).Info("lacp: ERR_NO_MATCH, no aggregator matched port tuple")
		return
	}

	for _, preempted := range res.Preempted {
		if pp, ok := e.Ports.Find(preempted); ok {
			pp.Selected = porttable.Unselected
			e.muxEvaluate(pp)
		}
	}

	p.SportHandle = res.Sport.Handle
	p.Selected = porttable.SelectedState

	lacplog.WithPort(p.Handle).WithField("sport", res.Sport.Handle).WithField("match", matchKindName(res.Kind)).
		Info("lacp: port selected aggregator")
}

// attachToSport is the ATTACHED mux state's entry action: it commits the
// candidate chosen by runSelectionLogic into the aggregator's membership
// count. A no-op if already attached.
func (e *Engine) attachToSport(p *porttable.Port) {
	if p.HasSport {
		return
	}
	tuple := buildPortTuple(e, p)
	if err := e.Sports.AttachLport(p.SportHandle, p.Handle, tuple); err != nil {
		p.Selected = porttable.Unselected
		lacplog.WithPort(p.Handle).WithError(err).Warn("lacp: attach_lport failed after selection")
		return
	}
	p.HasSport = true
	e.FP.LagCreate(p.SportHandle)
	e.FP.AddSlave(p.SportHandle, p.Handle)
}

func buildPortTuple(e *Engine, p *porttable.Port) aggregator.PortTuple {
	return aggregator.PortTuple{
		PortType:                portTypeOf(p),
		ActorKey:                p.Actor.Key,
		ActorPortPri:            p.Actor.PortId.Priority,
		PartnerSystemID:         p.PartnerOper.SystemId,
		PartnerKey:              p.PartnerOper.Key,
		PartnerPortPri:          p.PartnerOper.PortId.Priority,
		AllowCrossKeyPreemption: e.Config.AllowCrossKeyPreemption,
	}
}

func matchKindName(k aggregator.MatchKind) string {
	switch k {
	case aggregator.ExactMatch:
		return "exact"
	case aggregator.PartialMatch:
		return "partial"
	case aggregator.PriorityMatch:
		return "priority"
	default:
		return "none"
	}
}

// candidatesOf returns the lport handles currently selected (candidate or
// attached) onto sportHandle, in ascending order — the member set spec.md §3's
// ownership model says is derived from porttable, not stored redundantly in
// the aggregator table.
func (e *Engine) candidatesOf(sportHandle handle.Port) []handle.Port {
	var out []handle.Port
	e.Ports.Walk(func(p *porttable.Port) bool {
		if p.Selected == porttable.SelectedState && p.SportHandle == sportHandle {
			out = append(out, p.Handle)
		}
		return true
	})
	return out
}

// portTypeOf derives the link-speed class used to partition aggregator
// eligibility (spec.md §3's SportParameters.port_type) from the port's
// current link speed.
func portTypeOf(p *porttable.Port) uint8 {
	switch {
	case p.LinkSpeedMbps >= 100000:
		return 5
	case p.LinkSpeedMbps >= 40000:
		return 4
	case p.LinkSpeedMbps >= 10000:
		return 3
	case p.LinkSpeedMbps >= 1000:
		return 2
	default:
		return 1
	}
}
