package f1codec

// Packet is the decoded result of one datagram: a Header plus a typed
// Body. Body is nil for packet kinds this service does not cache
// (LapData, CarSetups, LobbyInfo, TyreSets, MotionEx, TimeTrial) — those
// PacketIDs are recognised, not errors, but carry no further decode here
// because the Packet Cache never stores them.
type Packet struct {
	Header Header
	Body   any
}

// unhandledKinds are valid PacketIDs that this service does not cache.
// They are recognised (not UnsupportedFormat) and simply produce a nil
// Body.
var unhandledKinds = map[PacketID]bool{
	PacketLapData:   true,
	PacketCarSetups: true,
	PacketLobbyInfo: true,
	PacketTyreSets:  true,
	PacketMotionEx:  true,
	PacketTimeTrial: true,
}

// Decode decodes one datagram end to end: header gate, then body dispatch
// by PacketID. ok is false on a soft-drop (length mismatch in a body this
// service understands); header-level UnsupportedFormat/CastingError come
// back as an error from DecodeHeader, not a soft-drop.
func Decode(datagram []byte) (Packet, bool, error) {
	header, err := DecodeHeader(datagram)
	if err != nil {
		return Packet{}, false, err
	}
	body := datagram[HeaderSize:]

	if unhandledKinds[header.PacketID] {
		return Packet{Header: header, Body: nil}, true, nil
	}

	switch header.PacketID {
	case PacketMotion:
		v, ok := decodeMotion(body)
		if !ok {
			return Packet{}, false, nil
		}
		return Packet{Header: header, Body: v}, true, nil
	case PacketSession:
		v, ok := decodeSession(body)
		if !ok {
			return Packet{}, false, nil
		}
		return Packet{Header: header, Body: v}, true, nil
	case PacketEvent:
		v, ok := decodeEvent(body)
		if !ok {
			return Packet{}, false, nil
		}
		return Packet{Header: header, Body: v}, true, nil
	case PacketParticipants:
		v, ok := decodeParticipants(body)
		if !ok {
			return Packet{}, false, nil
		}
		return Packet{Header: header, Body: v}, true, nil
	case PacketCarTelemetry:
		v, ok := decodeCarTelemetry(body)
		if !ok {
			return Packet{}, false, nil
		}
		return Packet{Header: header, Body: v}, true, nil
	case PacketCarStatus:
		v, ok := decodeCarStatus(body)
		if !ok {
			return Packet{}, false, nil
		}
		return Packet{Header: header, Body: v}, true, nil
	case PacketFinalClassification:
		v, ok := decodeFinalClassification(body)
		if !ok {
			return Packet{}, false, nil
		}
		return Packet{Header: header, Body: v}, true, nil
	case PacketCarDamage:
		v, ok := decodeCarDamage(body)
		if !ok {
			return Packet{}, false, nil
		}
		return Packet{Header: header, Body: v}, true, nil
	case PacketSessionHistory:
		v, ok := decodeSessionHistory(body)
		if !ok {
			return Packet{}, false, nil
		}
		return Packet{Header: header, Body: v}, true, nil
	default:
		// Unrecognised PacketId: ignored, not an error.
		return Packet{Header: header, Body: nil}, true, nil
	}
}
