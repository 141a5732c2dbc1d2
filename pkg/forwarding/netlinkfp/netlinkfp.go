// Package netlinkfp is the forwarding-plane adapter. It turns the engine's
// SetRx/SetTx/LagCreate/LagDestroy calls into Linux bonding-driver netlink
// operations against a kernel bond interface.
package netlinkfp

import (
	"sync"

	"github.com/vishvananda/netlink"

	"github.com/newtron-network/lacpd/pkg/lacp/handle"
	"github.com/newtron-network/lacpd/pkg/lacplog"
)

// Adapter implements engine.ForwardingPlane against the kernel's bonding
// driver. Every handle it's asked to operate on must first be registered
// with an interface name via Register.
type Adapter struct {
	mu     sync.Mutex
	ifName map[handle.Port]string
}

// New returns an empty Adapter; ports and sports must be Register'd before
// the engine can drive them.
func New() *Adapter {
	return &Adapter{ifName: make(map[handle.Port]string)}
}

// Register associates h (an lport or sport handle) with its kernel interface
// name, so later SetRx/SetTx/LagCreate/LagDestroy calls know which netlink
// link to operate on.
func (a *Adapter) Register(h handle.Port, ifName string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ifName[h] = ifName
}

// Unregister drops a handle's interface-name mapping, called once a port or
// sport is torn down.
func (a *Adapter) Unregister(h handle.Port) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.ifName, h)
}

func (a *Adapter) nameOf(h handle.Port) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	name, ok := a.ifName[h]
	return name, ok
}

// SetRx enables or disables a trunk member's receive side by setting the
// member link administratively up or down. Bond membership itself is
// handled by AddSlave/RemoveSlave.
func (a *Adapter) SetRx(h handle.Port, enabled bool) {
	a.setMember(h, enabled, "SetRx")
}

// SetTx enables or disables a trunk member's transmit side. The member
// link's admin up/down state gates both directions at once, so this shares
// setMember's logic with SetRx; spec.md §6 still models them
// as distinct calls because some adapters (e.g. a smart NIC) can split them.
func (a *Adapter) SetTx(h handle.Port, enabled bool) {
	a.setMember(h, enabled, "SetTx")
}

func (a *Adapter) setMember(h handle.Port, enabled bool, op string) {
	name, ok := a.nameOf(h)
	if !ok {
		lacplog.WithPort(h).Warnf("netlinkfp: %s on unregistered port", op)
		return
	}
	link, err := netlink.LinkByName(name)
	if err != nil {
		lacplog.WithPort(h).WithError(err).Errorf("netlinkfp: %s: LinkByName(%s)", op, name)
		return
	}
	if enabled {
		if err := netlink.LinkSetUp(link); err != nil {
			lacplog.WithPort(h).WithError(err).Errorf("netlinkfp: %s: LinkSetUp(%s)", op, name)
		}
		return
	}
	if err := netlink.LinkSetDown(link); err != nil {
		lacplog.WithPort(h).WithError(err).Errorf("netlinkfp: %s: LinkSetDown(%s)", op, name)
	}
}

// LagCreate brings up the bond master interface for a newly-attached sport.
func (a *Adapter) LagCreate(h handle.Port) {
	name, ok := a.nameOf(h)
	if !ok {
		lacplog.WithPort(h).Warn("netlinkfp: LagCreate on unregistered sport")
		return
	}
	link, err := netlink.LinkByName(name)
	if err != nil {
		lacplog.WithPort(h).WithError(err).Errorf("netlinkfp: LagCreate: LinkByName(%s)", name)
		return
	}
	if err := netlink.LinkSetUp(link); err != nil {
		lacplog.WithPort(h).WithError(err).Errorf("netlinkfp: LagCreate: LinkSetUp(%s)", name)
	}
}

// LagDestroy brings the bond master interface down once its last member has
// detached.
func (a *Adapter) LagDestroy(h handle.Port) {
	name, ok := a.nameOf(h)
	if !ok {
		lacplog.WithPort(h).Warn("netlinkfp: LagDestroy on unregistered sport")
		return
	}
	link, err := netlink.LinkByName(name)
	if err != nil {
		lacplog.WithPort(h).WithError(err).Errorf("netlinkfp: LagDestroy: LinkByName(%s)", name)
		return
	}
	if err := netlink.LinkSetDown(link); err != nil {
		lacplog.WithPort(h).WithError(err).Errorf("netlinkfp: LagDestroy: LinkSetDown(%s)", name)
	}
}

// AddSlave joins a member interface to its bond master, the netlink
// equivalent of LinuxManager.AddSlave. Called from the Mux FSM's ATTACHED
// entry action, once a port has actually been matched to an aggregator.
func (a *Adapter) AddSlave(sport, lport handle.Port) {
	bondName, ok := a.nameOf(sport)
	if !ok {
		lacplog.WithPort(lport).Warnf("netlinkfp: AddSlave: sport %v not registered", sport)
		return
	}
	memberName, ok := a.nameOf(lport)
	if !ok {
		lacplog.WithPort(lport).Warn("netlinkfp: AddSlave on unregistered port")
		return
	}
	bondLink, err := netlink.LinkByName(bondName)
	if err != nil {
		lacplog.WithPort(lport).WithError(err).Errorf("netlinkfp: AddSlave: LinkByName(%s)", bondName)
		return
	}
	memberLink, err := netlink.LinkByName(memberName)
	if err != nil {
		lacplog.WithPort(lport).WithError(err).Errorf("netlinkfp: AddSlave: LinkByName(%s)", memberName)
		return
	}
	if err := netlink.LinkSetMaster(memberLink, bondLink); err != nil {
		lacplog.WithPort(lport).WithError(err).Errorf("netlinkfp: AddSlave: LinkSetMaster(%s, %s)", memberName, bondName)
	}
}

// RemoveSlave detaches a member interface from its bond master, the netlink
// equivalent of LinuxManager.RemoveSlave. Called from the Mux FSM's
// DETACHED entry action.
func (a *Adapter) RemoveSlave(sport, lport handle.Port) {
	memberName, ok := a.nameOf(lport)
	if !ok {
		// Not every detach followed an attach (e.g. a port that never got
		// past WAITING); nothing to remove.
		return
	}
	memberLink, err := netlink.LinkByName(memberName)
	if err != nil {
		lacplog.WithPort(lport).WithError(err).Errorf("netlinkfp: RemoveSlave: LinkByName(%s)", memberName)
		return
	}
	if err := netlink.LinkSetNoMaster(memberLink); err != nil {
		lacplog.WithPort(lport).WithError(err).Errorf("netlinkfp: RemoveSlave: LinkSetNoMaster(%s)", memberName)
	}
}
