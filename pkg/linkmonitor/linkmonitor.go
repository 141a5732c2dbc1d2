// Package linkmonitor watches physical port carrier state via rtnetlink and
// turns transitions into dispatch.LinkUp/LinkDown events.
package linkmonitor

import (
	"context"
	"fmt"
	"time"

	"github.com/jsimonetti/rtnetlink"

	"github.com/newtron-network/lacpd/pkg/lacp/dispatch"
	"github.com/newtron-network/lacpd/pkg/lacp/handle"
	"github.com/newtron-network/lacpd/pkg/lacplog"
)

// PollInterval is how often Monitor re-lists interfaces looking for carrier
// and speed changes.
const PollInterval = time.Second

// Monitor polls rtnetlink for the operational state and speed of a
// configured set of physical interfaces and pushes LinkUp/LinkDown events for
// every observed transition.
type Monitor struct {
	conn *rtnetlink.Conn

	// lports maps a kernel interface name to the lport handle it backs; only
	// these interfaces are watched.
	lports map[string]handle.Port

	up map[handle.Port]bool
}

// New dials rtnetlink and returns a Monitor watching the given interfaces.
func New(lports map[string]handle.Port) (*Monitor, error) {
	conn, err := rtnetlink.Dial(nil)
	if err != nil {
		return nil, fmt.Errorf("linkmonitor: dial rtnetlink: %w", err)
	}
	return &Monitor{conn: conn, lports: lports, up: make(map[handle.Port]bool)}, nil
}

// Close releases the rtnetlink connection.
func (m *Monitor) Close() error { return m.conn.Close() }

// Run polls until ctx is canceled, pushing LinkUp/LinkDown onto q for every
// observed carrier transition.
func (m *Monitor) Run(ctx context.Context, q *dispatch.Queue) error {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := m.poll(q); err != nil {
				lacplog.WithField("component", "linkmonitor").WithError(err).Warn("poll failed")
			}
		}
	}
}

func (m *Monitor) poll(q *dispatch.Queue) error {
	links, err := m.conn.Link.List()
	if err != nil {
		return fmt.Errorf("linkmonitor: Link.List: %w", err)
	}

	for _, link := range links {
		if link.Attributes == nil {
			continue
		}
		lport, ok := m.lports[link.Attributes.Name]
		if !ok {
			continue
		}
		nowUp := link.Attributes.OperationalState == rtnetlink.OperUp
		wasUp, known := m.up[lport]
		if known && wasUp == nowUp {
			continue
		}
		m.up[lport] = nowUp

		if nowUp {
			speed := speedMbpsFromMTU(link.Attributes.MTU)
			if err := q.Push(dispatch.LinkUp{Port: lport, SpeedMbps: speed}); err != nil {
				return err
			}
		} else {
			if err := q.Push(dispatch.LinkDown{Port: lport}); err != nil {
				return err
			}
		}
	}
	return nil
}

// speedMbpsFromMTU is a placeholder until ethtool-reported link speed is
// wired in; it defaults every carrier-up interface to a 1G port_type per
// portTypeOf's mapping, which is the common case on lab and ToR hardware.
func speedMbpsFromMTU(uint32) uint32 {
	return 1000
}
