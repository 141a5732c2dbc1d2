package dispatch

import (
	"github.com/newtron-network/lacpd/pkg/lacp/aggregator"
	"github.com/newtron-network/lacpd/pkg/lacp/handle"
	"github.com/newtron-network/lacpd/pkg/lacp/porttable"
)

// PortSnapshot is a point-in-time, read-only copy of one port's protocol
// state, safe to hand to a goroutine outside the dispatcher.
type PortSnapshot struct {
	Handle        handle.Port
	LACPEnabled   bool
	LinkUp        bool
	LinkSpeedMbps uint32
	Selected      porttable.Selected
	RxState       porttable.RxState
	MuxState      porttable.MuxState
	PeriodicState porttable.PeriodicState
	HasSport      bool
	SportHandle   handle.Port
	Actor         porttable.Endpoint
	PartnerOper   porttable.Endpoint
	Stats         porttable.Stats
}

func snapshotPort(p *porttable.Port) PortSnapshot {
	return PortSnapshot{
		Handle:        p.Handle,
		LACPEnabled:   p.LACPEnabled,
		LinkUp:        p.LinkUp,
		LinkSpeedMbps: p.LinkSpeedMbps,
		Selected:      p.Selected,
		RxState:       p.RxState,
		MuxState:      p.MuxState,
		PeriodicState: p.PeriodicState,
		HasSport:      p.HasSport,
		SportHandle:   p.SportHandle,
		Actor:         p.Actor,
		PartnerOper:   p.PartnerOper,
		Stats:         p.Stats,
	}
}

// SportSnapshot is a point-in-time, read-only copy of one aggregator's state.
type SportSnapshot struct {
	Handle          handle.Port
	PortType        uint8
	ActorKey        uint16
	HasPartner      bool
	PartnerKey      uint16
	PartnerSystemID string
	NumLports       int
	AdminUp         bool

	Flags                uint8
	PartnerAdminSystemID string
	PartnerAdminKey      uint16
	AggrType             uint8
}

func snapshotSport(s *aggregator.Sport) SportSnapshot {
	return SportSnapshot{
		Handle:               s.Handle,
		PortType:             s.PortType,
		ActorKey:             s.ActorKey,
		HasPartner:           s.HasPartner,
		PartnerKey:           s.PartnerKey,
		PartnerSystemID:      s.PartnerSystemID.String(),
		NumLports:            s.NumLports,
		AdminUp:              s.AdminUp,
		Flags:                s.Flags,
		PartnerAdminSystemID: s.PartnerAdminSystemID.String(),
		PartnerAdminKey:      s.PartnerAdminKey,
		AggrType:             s.AggrType,
	}
}
