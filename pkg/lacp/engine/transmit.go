package engine

import (
	"github.com/newtron-network/lacpd/pkg/lacp/porttable"
	"github.com/newtron-network/lacpd/pkg/lacp/wire"
)

// Transmit runs the Transmit Logic (spec.md §4.5.5) for p: if NTT is set and
// the port's fast-period send budget allows it, an LACPDU reflecting the
// port's current actor/partner_oper state is encoded and handed to the
// PDUSink. The dispatcher calls this for every port on each Tick, after
// tickPeriodic and tickWaitWhile have run.
func (e *Engine) Transmit(p *porttable.Port) {
	if !p.NTT {
		return
	}
	if p.PDUBudget == 0 {
		return
	}
	frame := wire.Encode(wire.PDU{
		Actor:             p.Actor,
		Partner:           p.PartnerOper,
		CollectorMaxDelay: 0,
	})
	e.PDU.SendPDU(p.Handle, frame)
	p.NTT = false
	p.PDUBudget--
	p.Stats.LACPDUsSent++
}
