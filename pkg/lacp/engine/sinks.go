package engine

import "github.com/newtron-network/lacpd/pkg/lacp/handle"

// ForwardingPlane is the outbound command interface from spec.md §6: enabling
// or disabling receive/transmit on a trunk member, and creating/destroying the
// LAG itself. Concrete implementations live outside the core (e.g.
// pkg/forwarding/netlinkfp).
type ForwardingPlane interface {
	SetRx(h handle.Port, enabled bool)
	SetTx(h handle.Port, enabled bool)
	LagCreate(h handle.Port)
	LagDestroy(h handle.Port)

	// AddSlave joins lport into sport's kernel bond; RemoveSlave leaves it.
	AddSlave(sport, lport handle.Port)
	RemoveSlave(sport, lport handle.Port)
}

// PDUSink is the outbound PDU interface from spec.md §6. Concrete
// implementations live outside the core (e.g. pkg/pduio/afpacket).
type PDUSink interface {
	SendPDU(h handle.Port, frame [128]byte)
}

// NopForwardingPlane and NopPDUSink are no-op implementations, useful for unit
// tests that only exercise FSM state transitions.
type NopForwardingPlane struct{}

func (NopForwardingPlane) SetRx(handle.Port, bool)              {}
func (NopForwardingPlane) SetTx(handle.Port, bool)              {}
func (NopForwardingPlane) LagCreate(handle.Port)                {}
func (NopForwardingPlane) LagDestroy(handle.Port)               {}
func (NopForwardingPlane) AddSlave(handle.Port, handle.Port)    {}
func (NopForwardingPlane) RemoveSlave(handle.Port, handle.Port) {}

type NopPDUSink struct{}

func (NopPDUSink) SendPDU(handle.Port, [128]byte) {}

// RecordingPDUSink is a test double that records every frame sent.
type RecordingPDUSink struct {
	Sent []struct {
		Handle handle.Port
		Frame  [128]byte
	}
}

func (r *RecordingPDUSink) SendPDU(h handle.Port, frame [128]byte) {
	r.Sent = append(r.Sent, struct {
		Handle handle.Port
		Frame  [128]byte
	}{h, frame})
}

// RecordingForwardingPlane is a test double that records every command.
type RecordingForwardingPlane struct {
	RxEnabled map[handle.Port]bool
	TxEnabled map[handle.Port]bool
	Created   map[handle.Port]bool
	Slaves    map[handle.Port]bool // lport -> currently enslaved
}

func NewRecordingForwardingPlane() *RecordingForwardingPlane {
	return &RecordingForwardingPlane{
		RxEnabled: map[handle.Port]bool{},
		TxEnabled: map[handle.Port]bool{},
		Created:   map[handle.Port]bool{},
		Slaves:    map[handle.Port]bool{},
	}
}

func (r *RecordingForwardingPlane) SetRx(h handle.Port, enabled bool) { r.RxEnabled[h] = enabled }
func (r *RecordingForwardingPlane) SetTx(h handle.Port, enabled bool) { r.TxEnabled[h] = enabled }
func (r *RecordingForwardingPlane) LagCreate(h handle.Port)           { r.Created[h] = true }
func (r *RecordingForwardingPlane) LagDestroy(h handle.Port)          { delete(r.Created, h) }

func (r *RecordingForwardingPlane) AddSlave(sport, lport handle.Port) { r.Slaves[lport] = true }
func (r *RecordingForwardingPlane) RemoveSlave(sport, lport handle.Port) {
	delete(r.Slaves, lport)
}
