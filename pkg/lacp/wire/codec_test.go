package wire

import (
	"bytes"
	"errors"
	"testing"
)

func samplePDU() PDU {
	return PDU{
		Actor: Endpoint{
			SystemId: SystemId{Priority: 32768, MAC: MacAddr{0x02, 0, 0, 0, 0, 1}},
			Key:      5,
			PortId:   PortId{Priority: 100, Number: 1},
			State:    StateLACPActivity | StateAggregation | StateSynchronization,
		},
		Partner: Endpoint{
			SystemId: SystemId{Priority: 32768, MAC: MacAddr{0x02, 0, 0, 0, 0, 2}},
			Key:      5,
			PortId:   PortId{Priority: 100, Number: 2},
			State:    StateLACPActivity,
		},
		CollectorMaxDelay: 0,
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	p := samplePDU()
	buf := Encode(p)

	got, err := Decode(buf[:])
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != p {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, p)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := samplePDU()
	buf := Encode(p)

	decoded, err := Decode(buf[:])
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	reEncoded := Encode(decoded)
	if !bytes.Equal(buf[:], reEncoded[:]) {
		t.Fatalf("encode(decode(b)) != b")
	}
}

func TestEncodeFixedLength(t *testing.T) {
	p := samplePDU()
	buf := Encode(p)
	if len(buf) != FrameLen {
		t.Fatalf("Encode produced %d bytes, want %d", len(buf), FrameLen)
	}
}

func TestDecodeRejectsBadSubtype(t *testing.T) {
	buf := Encode(samplePDU())
	buf[offSubtype] = 0x99
	_, err := Decode(buf[:])
	if !errors.Is(err, ErrBadPDU) {
		t.Fatalf("expected ErrBadPDU, got %v", err)
	}
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	buf := Encode(samplePDU())
	buf[offVersion] = 0x02
	_, err := Decode(buf[:])
	if !errors.Is(err, ErrBadPDU) {
		t.Fatalf("expected ErrBadPDU, got %v", err)
	}
}

func TestDecodeRejectsBadTLVLength(t *testing.T) {
	buf := Encode(samplePDU())
	buf[offActorLen] = 0x10
	_, err := Decode(buf[:])
	if !errors.Is(err, ErrBadPDU) {
		t.Fatalf("expected ErrBadPDU, got %v", err)
	}
}

func TestDecodeIgnoresReservedBits(t *testing.T) {
	buf := Encode(samplePDU())
	buf[19] = 0xFF // reserved region after actor state
	buf[50] = 0xFF // reserved region after collector delay
	got, err := Decode(buf[:])
	if err != nil {
		t.Fatalf("Decode should accept set reserved bits: %v", err)
	}
	if got.Actor.Key != 5 {
		t.Fatalf("decode corrupted by reserved bits")
	}
}

func TestMarkerRoundTrip(t *testing.T) {
	m := Marker{
		RequesterPort:          7,
		RequesterSystem:        MacAddr{0x02, 0, 0, 0, 0, 9},
		RequesterTransactionID: 0xdeadbeef,
	}
	buf := EncodeMarkerResponse(m)
	if !IsMarker(buf[:]) {
		t.Fatalf("IsMarker false for marker frame")
	}

	req := EncodeMarkerResponse(m)
	req[offMarkerType] = markerTLVTypeRequest
	decoded, err := DecodeMarker(req[:])
	if err != nil {
		t.Fatalf("DecodeMarker: %v", err)
	}
	if decoded != m {
		t.Fatalf("marker round trip mismatch: got %+v want %+v", decoded, m)
	}
}

func TestPortStateBits(t *testing.T) {
	var s PortState
	s = s.With(StateCollecting, true)
	if !s.Has(StateCollecting) {
		t.Fatalf("With(true) did not set bit")
	}
	s = s.With(StateCollecting, false)
	if s.Has(StateCollecting) {
		t.Fatalf("With(false) did not clear bit")
	}
}

func TestSystemIdOrdering(t *testing.T) {
	a := SystemId{Priority: 100, MAC: MacAddr{0, 0, 0, 0, 0, 1}}
	b := SystemId{Priority: 100, MAC: MacAddr{0, 0, 0, 0, 0, 2}}
	if a.Compare(b) >= 0 {
		t.Fatalf("expected a < b")
	}
	c := SystemId{Priority: 50, MAC: MacAddr{0xff, 0, 0, 0, 0, 0}}
	if c.Compare(a) >= 0 {
		t.Fatalf("lower priority must sort first regardless of MAC")
	}
}
