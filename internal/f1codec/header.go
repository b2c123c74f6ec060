// Package f1codec decodes the F1 2023/2024 UDP telemetry packet family.
// Every decoder is a length-checked, allocation-light view over the
// datagram buffer: fields are read directly with encoding/binary rather
// than held as borrows into the caller's buffer, since Go has no borrow
// checker to enforce the buffer's lifetime past the call that produced it
// (see DESIGN.md for why this departs from the zerocopy/unsafe-aliasing
// approach of the source this was distilled from). Decoders never retain
// a reference to the input slice.
package f1codec

import (
	"encoding/binary"
	"intelliserver/internal/apperror"
)

// PacketID discriminates the body layout that follows a Header.
type PacketID uint8

const (
	PacketMotion              PacketID = 0
	PacketSession             PacketID = 1
	PacketLapData             PacketID = 2
	PacketEvent               PacketID = 3
	PacketParticipants        PacketID = 4
	PacketCarSetups           PacketID = 5
	PacketCarTelemetry        PacketID = 6
	PacketCarStatus           PacketID = 7
	PacketFinalClassification PacketID = 8
	PacketLobbyInfo           PacketID = 9
	PacketCarDamage           PacketID = 10
	PacketSessionHistory      PacketID = 11
	PacketTyreSets            PacketID = 12
	PacketMotionEx            PacketID = 13
	PacketTimeTrial           PacketID = 14
)

// HeaderSize is the fixed byte length of every datagram's Header prefix.
const HeaderSize = 29

// acceptedFormats are the only packet_format values this codec accepts.
// Anything else is rejected as UnsupportedFormat per the invariant in the
// data model.
var acceptedFormats = map[uint16]bool{2023: true, 2024: true}

// Header is the fixed prefix of every F1 telemetry datagram.
type Header struct {
	PacketFormat            uint16
	GameYear                uint8
	GameMajorVersion        uint8
	GameMinorVersion        uint8
	PacketVersion           uint8
	PacketID                PacketID
	SessionUID              uint64
	SessionTime             float32
	FrameIdentifier         uint32
	OverallFrameIdentifier  uint32
	PlayerCarIndex          uint8
	SecondaryPlayerCarIndex uint8
}

// DecodeHeader validates length and packet_format, then decodes the fixed
// header prefix. It never copies or retains the input buffer.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, apperror.New(apperror.KindCastingError)
	}

	format := binary.LittleEndian.Uint16(buf[0:2])
	if !acceptedFormats[format] {
		return Header{}, apperror.New(apperror.KindUnsupportedFormat)
	}

	h := Header{
		PacketFormat:            format,
		GameYear:                buf[2],
		GameMajorVersion:        buf[3],
		GameMinorVersion:        buf[4],
		PacketVersion:           buf[5],
		PacketID:                PacketID(buf[6]),
		SessionUID:              binary.LittleEndian.Uint64(buf[7:15]),
		SessionTime:             decodeFloat32(buf[15:19]),
		FrameIdentifier:         binary.LittleEndian.Uint32(buf[19:23]),
		OverallFrameIdentifier:  binary.LittleEndian.Uint32(buf[23:27]),
		PlayerCarIndex:          buf[27],
		SecondaryPlayerCarIndex: buf[28],
	}
	return h, nil
}
