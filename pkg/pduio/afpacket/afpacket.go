// Package afpacket is X4: the PDU I/O adapter. It opens a raw AF_PACKET
// socket per configured physical interface, filters for the slow-protocols
// ethertype (0x8809) LACPDUs and markers travel on, and bridges frames
// between the wire and the dispatcher's event queue.
package afpacket

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/google/gopacket/afpacket"

	"github.com/newtron-network/lacpd/pkg/lacp/dispatch"
	"github.com/newtron-network/lacpd/pkg/lacp/handle"
	"github.com/newtron-network/lacpd/pkg/lacplog"
)

// SlowProtocolsEtherType is IEEE 802.3 slow protocols (0x8809), the
// ethertype LACPDUs and marker PDUs share.
const SlowProtocolsEtherType = 0x8809

const etherTypeOffset = 12

// Socket wraps one AF_PACKET handle bound to a single physical interface.
type Socket struct {
	h    *afpacket.TPacket
	port handle.Port
}

// Open binds a raw socket to ifName for lport, ready for Listen and Send.
func Open(ifName string, lport handle.Port) (*Socket, error) {
	h, err := afpacket.NewTPacket(afpacket.OptInterface(ifName))
	if err != nil {
		return nil, fmt.Errorf("afpacket: open %s: %w", ifName, err)
	}
	return &Socket{h: h, port: lport}, nil
}

// Close releases the underlying socket.
func (s *Socket) Close() {
	s.h.Close()
}

// Listen reads frames until ctx is canceled, pushing the payload after the
// Ethernet header of every slow-protocols frame onto q as a dispatch.RxPDU;
// payloads shorter than 128 bytes are dropped. Non-LACP traffic on the interface is
// silently dropped; the kernel's own forwarding already handles it.
func (s *Socket) Listen(ctx context.Context, q *dispatch.Queue) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		data, _, err := s.h.ZeroCopyReadPacketData()
		if err != nil {
			return fmt.Errorf("afpacket: read %v: %w", s.port, err)
		}
		if len(data) < etherTypeOffset+2 {
			continue
		}
		if binary.BigEndian.Uint16(data[etherTypeOffset:]) != SlowProtocolsEtherType {
			continue
		}

		var frame [128]byte
		n := copy(frame[:], data[etherTypeOffset+2:])
		if n < len(frame) {
			lacplog.WithPort(s.port).Warnf("afpacket: short slow-protocols frame (%d bytes)", n)
			continue
		}
		if err := q.Push(dispatch.RxPDU{Port: s.port, Frame: frame}); err != nil {
			lacplog.WithPort(s.port).WithError(err).Warn("afpacket: dropping RxPDU, queue full")
		}
	}
}

// Send transmits frame verbatim on the bound interface. The caller supplies
// a fully-formed Ethernet frame (destination slow-protocols multicast
// address, source MAC, ethertype, payload) — framing is wire's job.
func (s *Socket) Send(frame [128]byte) error {
	if err := s.h.WritePacketData(frame[:]); err != nil {
		return fmt.Errorf("afpacket: write %v: %w", s.port, err)
	}
	return nil
}

// Sink fans SendPDU calls out to the registered per-port sockets, the
// PDUSink half of the same adapter Listen feeds events into.
type Sink struct {
	sockets map[handle.Port]*Socket
}

// NewSink returns an empty Sink; sockets must be Register'd before SendPDU
// can reach them.
func NewSink() *Sink {
	return &Sink{sockets: make(map[handle.Port]*Socket)}
}

// Register associates an open Socket with the lport it backs.
func (s *Sink) Register(h handle.Port, sock *Socket) {
	s.sockets[h] = sock
}

// SendPDU implements engine.PDUSink.
func (s *Sink) SendPDU(h handle.Port, frame [128]byte) {
	sock, ok := s.sockets[h]
	if !ok {
		lacplog.WithPort(h).Warn("afpacket: SendPDU on unregistered port")
		return
	}
	if err := sock.Send(frame); err != nil {
		lacplog.WithPort(h).WithError(err).Error("afpacket: SendPDU failed")
	}
}
