package aggregator

import (
	"errors"
	"testing"

	"github.com/newtron-network/lacpd/pkg/lacp/handle"
	"github.com/newtron-network/lacpd/pkg/lacp/lacperr"
	"github.com/newtron-network/lacpd/pkg/lacp/wire"
)

func mac(b byte) wire.MacAddr { return wire.MacAddr{0x02, 0, 0, 0, 0, b} }

func TestCreateDestroySport(t *testing.T) {
	tbl := NewTable()
	h := handle.NewLAG(1)

	if _, err := tbl.CreateSport(h, 10, 5); err != nil {
		t.Fatalf("CreateSport: %v", err)
	}
	if _, err := tbl.CreateSport(h, 10, 5); !errors.Is(err, lacperr.ErrDupSport) {
		t.Fatalf("expected ErrDupSport, got %v", err)
	}
	if err := tbl.DestroySport(h); err != nil {
		t.Fatalf("DestroySport: %v", err)
	}
	if _, ok := tbl.Find(h); ok {
		t.Fatalf("sport still present after destroy")
	}
}

func TestDestroyBusySport(t *testing.T) {
	tbl := NewTable()
	h := handle.NewLAG(1)
	tbl.CreateSport(h, 10, 5)

	lp := handle.FromLport(0, 0, 0, 0, false)
	tuple := PortTuple{PortType: 10, ActorKey: 5, PartnerKey: 7, PartnerSystemID: wire.SystemId{Priority: 100, MAC: mac(1)}}
	if err := tbl.AttachLport(h, lp, tuple); err != nil {
		t.Fatalf("AttachLport: %v", err)
	}
	if err := tbl.DestroySport(h); !errors.Is(err, lacperr.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestExactMatch(t *testing.T) {
	tbl := NewTable()
	h := handle.NewLAG(1)
	tbl.CreateSport(h, 10, 5)
	partner := wire.SystemId{Priority: 100, MAC: mac(1)}

	tuple := PortTuple{PortType: 10, ActorKey: 5, PartnerKey: 7, PartnerSystemID: partner}
	res := tbl.SelectAggregator(tuple, nil)
	if res.Kind != PartialMatch {
		t.Fatalf("first port should PARTIAL_MATCH, got %v", res.Kind)
	}

	res2 := tbl.SelectAggregator(tuple, nil)
	if res2.Kind != ExactMatch || res2.Sport.Handle != h {
		t.Fatalf("second identical tuple should EXACT_MATCH the same sport, got %v", res2.Kind)
	}
}

func TestNeverRespondedCannotMatch(t *testing.T) {
	tbl := NewTable()
	h := handle.NewLAG(1)
	tbl.CreateSport(h, 10, 5)

	tuple := PortTuple{PortType: 10, ActorKey: 5, PartnerSystemID: wire.SystemId{MAC: wire.DefaultPartnerMAC}}
	res := tbl.SelectAggregator(tuple, nil)
	if res.Kind != PartialMatch {
		t.Fatalf("never-responded partner should only PARTIAL_MATCH an empty sport, got %v", res.Kind)
	}

	// A second port with the sentinel MAC must not EXACT_MATCH the now
	// partner-populated (but still sentinel) sport.
	res2 := tbl.SelectAggregator(tuple, nil)
	if res2.Kind != NoMatch {
		t.Fatalf("sentinel partner MAC must never EXACT_MATCH, got %v", res2.Kind)
	}
}

func TestPriorityMatchPreemption(t *testing.T) {
	tbl := NewTable()
	h := handle.NewLAG(1)
	tbl.CreateSport(h, 10, 5)

	lowPriTuple := PortTuple{PortType: 10, ActorKey: 5, ActorPortPri: 100, PartnerPortPri: 100, PartnerKey: 7, PartnerSystemID: wire.SystemId{Priority: 100, MAC: mac(1)}}
	res := tbl.SelectAggregator(lowPriTuple, nil)
	if res.Kind != PartialMatch {
		t.Fatalf("setup: want PARTIAL_MATCH, got %v", res.Kind)
	}
	lportA := handle.FromLport(0, 0, 0, 0, false)
	if err := tbl.AttachLport(h, lportA, lowPriTuple); err != nil {
		t.Fatalf("attach A: %v", err)
	}

	highPriTuple := PortTuple{PortType: 10, ActorKey: 5, ActorPortPri: 50, PartnerPortPri: 50, PartnerKey: 9, PartnerSystemID: wire.SystemId{Priority: 100, MAC: mac(2)}, AllowCrossKeyPreemption: true}
	members := func(s handle.Port) []handle.Port { return []handle.Port{lportA} }
	res2 := tbl.SelectAggregator(highPriTuple, members)
	if res2.Kind != PriorityMatch {
		t.Fatalf("higher-priority port should PRIORITY_MATCH, got %v", res2.Kind)
	}
	if len(res2.Preempted) != 1 || res2.Preempted[0] != lportA {
		t.Fatalf("expected lportA to be preempted, got %v", res2.Preempted)
	}
	s, _ := tbl.Find(h)
	if s.PartnerKey != 9 {
		t.Fatalf("sport partner key not replaced by preemption: got %d", s.PartnerKey)
	}
}

func TestAttachDetachClearsPartnerOnEmpty(t *testing.T) {
	tbl := NewTable()
	h := handle.NewLAG(1)
	tbl.CreateSport(h, 10, 5)
	lp := handle.FromLport(0, 0, 0, 0, false)
	tuple := PortTuple{PortType: 10, ActorKey: 5, PartnerKey: 7, PartnerSystemID: wire.SystemId{Priority: 100, MAC: mac(1)}}

	tbl.AttachLport(h, lp, tuple)
	s, _ := tbl.Find(h)
	if s.NumLports != 1 || !s.HasPartner {
		t.Fatalf("attach did not record member/partner")
	}

	if err := tbl.DetachLport(h, lp); err != nil {
		t.Fatalf("DetachLport: %v", err)
	}
	s, _ = tbl.Find(h)
	if s.NumLports != 0 || s.HasPartner {
		t.Fatalf("detach to zero members did not clear learned partner state")
	}
}

func TestSportSetParams(t *testing.T) {
	tbl := NewTable()
	h := handle.NewLAG(1)
	s, _ := tbl.CreateSport(h, 10, 5)

	sysMAC := mac(9)
	s.SetParams(FlagPartnerSysID|FlagPartnerKey, 200, sysMAC, 42, 1)

	if s.PartnerAdminSystemID.Priority != 200 || s.PartnerAdminSystemID.MAC != sysMAC {
		t.Fatalf("SetParams did not record partner admin system id: %+v", s.PartnerAdminSystemID)
	}
	if s.PartnerAdminKey != 42 {
		t.Fatalf("SetParams did not record partner admin key: got %d", s.PartnerAdminKey)
	}
	if s.AggrType != 1 {
		t.Fatalf("SetParams did not record aggr type: got %d", s.AggrType)
	}

	// A flags value with neither bit set must leave the admin fields alone,
	// modeling an update mask rather than an unconditional overwrite.
	s.SetParams(0, 0, wire.MacAddr{}, 0, 2)
	if s.PartnerAdminSystemID.Priority != 200 || s.PartnerAdminSystemID.MAC != sysMAC {
		t.Fatalf("SetParams with flags=0 must not clear partner admin system id")
	}
	if s.PartnerAdminKey != 42 {
		t.Fatalf("SetParams with flags=0 must not clear partner admin key")
	}
	if s.AggrType != 2 {
		t.Fatalf("SetParams must always apply aggr type: got %d", s.AggrType)
	}
}
