package wire

import (
	"encoding/binary"
	"fmt"
)

// Frame size in octets, per IEEE 802.3ad clause 43 padding requirement.
const FrameLen = 128

const (
	subtypeLACP   = 0x01
	subtypeMarker = 0x02
	version       = 0x01

	tlvTypeActor      = 0x01
	tlvTypePartner    = 0x02
	tlvTypeCollector  = 0x03
	tlvTypeTerminator = 0x00

	tlvLenActorOrPartner = 0x14
	tlvLenCollector      = 0x10
	tlvLenTerminator     = 0x00

	offSubtype      = 0
	offVersion      = 1
	offActorType    = 2
	offActorLen     = 3
	offActorSysPri  = 4
	offActorSysMAC  = 6
	offActorKey     = 12
	offActorPortPri = 14
	offActorPortNum = 16
	offActorState   = 18
	// 3 bytes reserved at 19

	offPartnerType    = 22
	offPartnerLen     = 23
	offPartnerSysPri  = 24
	offPartnerSysMAC  = 26
	offPartnerKey     = 32
	offPartnerPortPri = 34
	offPartnerPortNum = 36
	// 4 bytes unspecified padding at 38-41
	offPartnerState = 42
	// 3 bytes reserved at 43

	offCollectorType  = 46
	offCollectorLen   = 47
	offCollectorDelay = 48
	// 12 bytes reserved at 50

	offTerminatorType = 62
	offTerminatorLen  = 63
	// remaining bytes reserved to end of frame
)

// ErrBadPDU reports a malformed inbound LACPDU: wrong subtype, version, or
// TLV type/length. Matches ERR_BAD_PDU from the error-handling design.
var ErrBadPDU = fmt.Errorf("lacp: malformed PDU")

func badPDU(reason string) error {
	return fmt.Errorf("%w: %s", ErrBadPDU, reason)
}

// Decode parses a received Ethernet payload into a PDU. The padding/reserved
// region is not validated, for wire compatibility with peers that set
// reserved bits.
func Decode(b []byte) (PDU, error) {
	var p PDU
	if len(b) < FrameLen {
		return p, badPDU(fmt.Sprintf("short frame: %d bytes", len(b)))
	}
	if b[offSubtype] != subtypeLACP {
		return p, badPDU(fmt.Sprintf("subtype 0x%02x", b[offSubtype]))
	}
	if b[offVersion] != version {
		return p, badPDU(fmt.Sprintf("version 0x%02x", b[offVersion]))
	}
	if b[offActorType] != tlvTypeActor || b[offActorLen] != tlvLenActorOrPartner {
		return p, badPDU("actor TLV type/length")
	}
	if b[offPartnerType] != tlvTypePartner || b[offPartnerLen] != tlvLenActorOrPartner {
		return p, badPDU("partner TLV type/length")
	}
	if b[offCollectorType] != tlvTypeCollector || b[offCollectorLen] != tlvLenCollector {
		return p, badPDU("collector TLV type/length")
	}

	p.Actor = decodeEndpoint(b, offActorSysPri, offActorSysMAC, offActorKey, offActorPortPri, offActorPortNum, offActorState)
	p.Partner = decodeEndpoint(b, offPartnerSysPri, offPartnerSysMAC, offPartnerKey, offPartnerPortPri, offPartnerPortNum, offPartnerState)
	p.CollectorMaxDelay = binary.BigEndian.Uint16(b[offCollectorDelay:])
	return p, nil
}

func decodeEndpoint(b []byte, sysPriOff, sysMACOff, keyOff, portPriOff, portNumOff, stateOff int) Endpoint {
	var e Endpoint
	e.SystemId.Priority = binary.BigEndian.Uint16(b[sysPriOff:])
	copy(e.SystemId.MAC[:], b[sysMACOff:sysMACOff+6])
	e.Key = binary.BigEndian.Uint16(b[keyOff:])
	e.PortId.Priority = binary.BigEndian.Uint16(b[portPriOff:])
	e.PortId.Number = binary.BigEndian.Uint16(b[portNumOff:])
	e.State = PortState(b[stateOff])
	return e
}

// Encode emits the canonical 128-octet LACPDU for p.
func Encode(p PDU) [FrameLen]byte {
	var b [FrameLen]byte
	b[offSubtype] = subtypeLACP
	b[offVersion] = version

	b[offActorType] = tlvTypeActor
	b[offActorLen] = tlvLenActorOrPartner
	encodeEndpoint(b[:], p.Actor, offActorSysPri, offActorSysMAC, offActorKey, offActorPortPri, offActorPortNum, offActorState)

	b[offPartnerType] = tlvTypePartner
	b[offPartnerLen] = tlvLenActorOrPartner
	encodeEndpoint(b[:], p.Partner, offPartnerSysPri, offPartnerSysMAC, offPartnerKey, offPartnerPortPri, offPartnerPortNum, offPartnerState)

	b[offCollectorType] = tlvTypeCollector
	b[offCollectorLen] = tlvLenCollector
	binary.BigEndian.PutUint16(b[offCollectorDelay:], p.CollectorMaxDelay)

	b[offTerminatorType] = tlvTypeTerminator
	b[offTerminatorLen] = tlvLenTerminator

	return b
}

func encodeEndpoint(b []byte, e Endpoint, sysPriOff, sysMACOff, keyOff, portPriOff, portNumOff, stateOff int) {
	binary.BigEndian.PutUint16(b[sysPriOff:], e.SystemId.Priority)
	copy(b[sysMACOff:sysMACOff+6], e.SystemId.MAC[:])
	binary.BigEndian.PutUint16(b[keyOff:], e.Key)
	binary.BigEndian.PutUint16(b[portPriOff:], e.PortId.Priority)
	binary.BigEndian.PutUint16(b[portNumOff:], e.PortId.Number)
	b[stateOff] = byte(e.State)
}

// IsMarker reports whether b looks like a marker-protocol frame (subtype
// 0x02), without fully validating it.
func IsMarker(b []byte) bool {
	return len(b) >= 1 && b[offSubtype] == subtypeMarker
}

const (
	markerTLVTypeRequest  = 0x01
	markerTLVTypeResponse = 0x02
	markerTLVLen          = 0x10

	offMarkerType       = 2
	offMarkerLen        = 3
	offMarkerReqPort    = 4
	offMarkerReqSystem  = 6
	offMarkerReqTransID = 12
	offMarkerTerminator = 18
)

// DecodeMarker parses a marker-protocol request frame.
func DecodeMarker(b []byte) (Marker, error) {
	var m Marker
	if len(b) < FrameLen {
		return m, badPDU(fmt.Sprintf("short marker frame: %d bytes", len(b)))
	}
	if b[offSubtype] != subtypeMarker || b[offVersion] != version {
		return m, badPDU("marker subtype/version")
	}
	if b[offMarkerType] != markerTLVTypeRequest || b[offMarkerLen] != markerTLVLen {
		return m, badPDU("marker TLV type/length")
	}
	m.RequesterPort = binary.BigEndian.Uint16(b[offMarkerReqPort:])
	copy(m.RequesterSystem[:], b[offMarkerReqSystem:offMarkerReqSystem+6])
	m.RequesterTransactionID = binary.BigEndian.Uint32(b[offMarkerReqTransID:])
	return m, nil
}

// EncodeMarkerResponse emits a marker response frame for m: identical
// requester fields, TLV type changed from request (0x01) to response (0x02).
// Per spec.md §4.2, marker handling is a pure echo with no FSM interaction.
func EncodeMarkerResponse(m Marker) [FrameLen]byte {
	var b [FrameLen]byte
	b[offSubtype] = subtypeMarker
	b[offVersion] = version
	b[offMarkerType] = markerTLVTypeResponse
	b[offMarkerLen] = markerTLVLen
	binary.BigEndian.PutUint16(b[offMarkerReqPort:], m.RequesterPort)
	copy(b[offMarkerReqSystem:offMarkerReqSystem+6], m.RequesterSystem[:])
	binary.BigEndian.PutUint32(b[offMarkerReqTransID:], m.RequesterTransactionID)
	b[offMarkerTerminator] = tlvTypeTerminator
	b[offMarkerTerminator+1] = tlvLenTerminator
	return b
}
