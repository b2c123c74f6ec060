package cache

import (
	"bytes"
	"encoding/binary"

	"intelliserver/internal/f1codec"
)

// entry is one TLV record inside a Frame: a packet kind tag, a
// little-endian uint32 payload length, then the payload itself. Readers on
// the other end of the wire decode these the same way this package writes
// them; the payload layout per kind matches intelliserver/internal/f1codec
// field order exactly, so a client holding both codecs needs no additional
// schema.
func writeEntry(buf *bytes.Buffer, kind f1codec.PacketID, payload []byte) {
	buf.WriteByte(byte(kind))
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	buf.Write(lenBuf[:])
	buf.Write(payload)
}

func encodeFixed(v any) []byte {
	var buf bytes.Buffer
	// Every cached singleton kind (Motion, Participants, CarDamage,
	// CarStatus, CarTelemetry, FinalClassification) is built entirely from
	// fixed-width arrays and scalars, so binary.Write can serialize it
	// directly without a hand-written field list.
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		panic("cache: fixed-size packet encode failed: " + err.Error())
	}
	return buf.Bytes()
}

// fixedSession mirrors f1codec.Session's scalar fields, minus the
// variable-length Raw tail, so binary.Write can serialize it directly.
type fixedSession struct {
	Weather                   uint8
	TrackTemperature          int8
	AirTemperature            int8
	TotalLaps                 uint8
	TrackLength               uint16
	SessionType               uint8
	TrackID                   int8
	Formula                   uint8
	SessionTimeLeft           uint16
	SessionDuration           uint16
	PitSpeedLimit             uint8
	GamePaused                uint8
	IsSpectating              uint8
	SpectatorCarIndex         uint8
	SliProNativeSupport       uint8
	NumWeatherForecastSamples uint8
}

func encodeSession(s f1codec.Session) []byte {
	var buf bytes.Buffer
	fixed := fixedSession{
		Weather:                   s.Weather,
		TrackTemperature:          s.TrackTemperature,
		AirTemperature:            s.AirTemperature,
		TotalLaps:                 s.TotalLaps,
		TrackLength:               s.TrackLength,
		SessionType:               s.SessionType,
		TrackID:                   s.TrackID,
		Formula:                   s.Formula,
		SessionTimeLeft:           s.SessionTimeLeft,
		SessionDuration:           s.SessionDuration,
		PitSpeedLimit:             s.PitSpeedLimit,
		GamePaused:                s.GamePaused,
		IsSpectating:              s.IsSpectating,
		SpectatorCarIndex:         s.SpectatorCarIndex,
		SliProNativeSupport:       s.SliProNativeSupport,
		NumWeatherForecastSamples: s.NumWeatherForecastSamples,
	}
	binary.Write(&buf, binary.LittleEndian, fixed)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s.Raw)))
	buf.Write(lenBuf[:])
	buf.Write(s.Raw)
	return buf.Bytes()
}

func encodeEvent(e f1codec.Event) []byte {
	var buf bytes.Buffer
	buf.Write(e.Tag[:])
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(e.Raw)))
	buf.Write(lenBuf[:])
	buf.Write(e.Raw)
	return buf.Bytes()
}

func encodeSessionHistory(sh f1codec.SessionHistory) []byte {
	var buf bytes.Buffer
	buf.WriteByte(sh.CarIdx)
	buf.WriteByte(sh.NumLaps)
	buf.WriteByte(sh.NumTyreStints)
	buf.WriteByte(sh.BestLapTimeLapNum)
	buf.WriteByte(sh.BestSector1LapNum)
	buf.WriteByte(sh.BestSector2LapNum)
	buf.WriteByte(sh.BestSector3LapNum)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(sh.Raw)))
	buf.Write(lenBuf[:])
	buf.Write(sh.Raw)
	return buf.Bytes()
}
