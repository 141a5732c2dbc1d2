// Package metrics implements a prometheus.Collector that reads live counters
// straight out of the dispatcher's snapshots on every scrape, a pull-model
// Describe/Collect shape rather than a push-based set of pre-registered
// gauges.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/newtron-network/lacpd/pkg/lacp/dispatch"
	"github.com/newtron-network/lacpd/pkg/lacp/porttable"
)

var (
	portSelected = prometheus.NewDesc(
		"lacpd_port_selected",
		"1 if the port's Selection Logic has chosen an aggregator, 0 otherwise.",
		[]string{"port"}, nil,
	)
	portMuxState = prometheus.NewDesc(
		"lacpd_port_mux_state",
		"Mux FSM state, labeled by name.",
		[]string{"port", "state"}, nil,
	)
	portLACPDUsSent = prometheus.NewDesc(
		"lacpd_port_lacpdus_sent_total",
		"Total LACPDUs transmitted on this port.",
		[]string{"port"}, nil,
	)
	portLACPDUsReceived = prometheus.NewDesc(
		"lacpd_port_lacpdus_received_total",
		"Total LACPDUs received on this port.",
		[]string{"port"}, nil,
	)
	portRxErrors = prometheus.NewDesc(
		"lacpd_port_lacpdu_rx_errors_total",
		"Total malformed LACPDUs dropped on receive.",
		[]string{"port"}, nil,
	)
	sportMembers = prometheus.NewDesc(
		"lacpd_sport_members",
		"Number of attached member ports per aggregator.",
		[]string{"sport"}, nil,
	)
)

// Collector scrapes dispatcher state on demand via SnapshotPorts/SnapshotSports.
// The request/reply round trip blocks Collect until the dispatcher answers, so
// queryTimeout bounds how long a scrape can stall behind a busy dispatcher.
type Collector struct {
	queue        *dispatch.Queue
	queryTimeout time.Duration
}

// New returns a Collector that queries q on every scrape.
func New(q *dispatch.Queue) *Collector {
	return &Collector{queue: q, queryTimeout: 2 * time.Second}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- portSelected
	ch <- portMuxState
	ch <- portLACPDUsSent
	ch <- portLACPDUsReceived
	ch <- portRxErrors
	ch <- sportMembers
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ports, sports, err := c.query()
	if err != nil {
		return
	}

	for _, p := range ports {
		label := p.Handle.String()
		selected := 0.0
		if p.Selected == porttable.SelectedState {
			selected = 1.0
		}
		ch <- prometheus.MustNewConstMetric(portSelected, prometheus.GaugeValue, selected, label)
		ch <- prometheus.MustNewConstMetric(portMuxState, prometheus.GaugeValue, 1, label, p.MuxState.String())
		ch <- prometheus.MustNewConstMetric(portLACPDUsSent, prometheus.CounterValue, float64(p.Stats.LACPDUsSent), label)
		ch <- prometheus.MustNewConstMetric(portLACPDUsReceived, prometheus.CounterValue, float64(p.Stats.LACPDUsReceived), label)
		ch <- prometheus.MustNewConstMetric(portRxErrors, prometheus.CounterValue, float64(p.Stats.LACPDURxErrors), label)
	}
	for _, s := range sports {
		ch <- prometheus.MustNewConstMetric(sportMembers, prometheus.GaugeValue, float64(s.NumLports), s.Handle.String())
	}
}

func (c *Collector) query() ([]dispatch.PortSnapshot, []dispatch.SportSnapshot, error) {
	portsReply := make(chan []dispatch.PortSnapshot, 1)
	sportsReply := make(chan []dispatch.SportSnapshot, 1)

	if err := c.queue.Push(dispatch.SnapshotPorts{Reply: portsReply}); err != nil {
		return nil, nil, err
	}
	if err := c.queue.Push(dispatch.SnapshotSports{Reply: sportsReply}); err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.queryTimeout)
	defer cancel()

	var ports []dispatch.PortSnapshot
	var sports []dispatch.SportSnapshot

	select {
	case ports = <-portsReply:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
	select {
	case sports = <-sportsReply:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
	return ports, sports, nil
}
