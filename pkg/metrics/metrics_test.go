package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/newtron-network/lacpd/pkg/lacp/aggregator"
	"github.com/newtron-network/lacpd/pkg/lacp/dispatch"
	"github.com/newtron-network/lacpd/pkg/lacp/engine"
	"github.com/newtron-network/lacpd/pkg/lacp/handle"
	"github.com/newtron-network/lacpd/pkg/lacp/porttable"
	"github.com/newtron-network/lacpd/pkg/lacp/wire"
)

func TestCollectReportsPortMetrics(t *testing.T) {
	fp := engine.NewRecordingForwardingPlane()
	pdu := &engine.RecordingPDUSink{}
	cfg := engine.DefaultConfig(wire.MacAddr{0x02, 0, 0, 0, 0, 1})
	e := engine.New(cfg, porttable.NewTable(), aggregator.NewTable(), fp, pdu)

	q := dispatch.NewQueue(16)
	d := dispatch.New(e, q)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	h := handle.FromLport(0, 0, 1, 0, false)
	if err := q.Push(dispatch.ConfigLportSet{Port: h, ActorKey: 5, Enabled: true}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	c := New(q)
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	found := false
	for _, mf := range metricFamilies {
		if mf.GetName() != "lacpd_port_mux_state" {
			continue
		}
		for _, m := range mf.GetMetric() {
			if hasLabel(m, "port", h.String()) {
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("want a lacpd_port_mux_state sample for %v", h)
	}
}

func hasLabel(m *dto.Metric, name, value string) bool {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}
