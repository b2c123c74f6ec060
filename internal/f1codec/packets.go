package f1codec

// MaxCars is the largest grid size the 2023/2024 packet family supports.
const MaxCars = 22

// --- Motion -----------------------------------------------------------

const carMotionSize = 60

// CarMotionData is one car's entry in a Motion packet.
type CarMotionData struct {
	WorldPositionX, WorldPositionY, WorldPositionZ float32
	WorldVelocityX, WorldVelocityY, WorldVelocityZ float32
	WorldForwardDirX, WorldForwardDirY, WorldForwardDirZ int16
	WorldRightDirX, WorldRightDirY, WorldRightDirZ       int16
	GForceLateral, GForceLongitudinal, GForceVertical     float32
	Yaw, Pitch, Roll                                      float32
}

const motionBodySize = MaxCars * carMotionSize

// Motion is the decoded body of a PacketMotion datagram.
type Motion struct {
	Cars [MaxCars]CarMotionData
}

func decodeMotion(body []byte) (Motion, bool) {
	if len(body) < motionBodySize {
		return Motion{}, false
	}
	var m Motion
	c := cursor{buf: body}
	for i := 0; i < MaxCars; i++ {
		m.Cars[i] = CarMotionData{
			WorldPositionX: c.f32(), WorldPositionY: c.f32(), WorldPositionZ: c.f32(),
			WorldVelocityX: c.f32(), WorldVelocityY: c.f32(), WorldVelocityZ: c.f32(),
			WorldForwardDirX: decodeInt16fromCursor(&c), WorldForwardDirY: decodeInt16fromCursor(&c), WorldForwardDirZ: decodeInt16fromCursor(&c),
			WorldRightDirX: decodeInt16fromCursor(&c), WorldRightDirY: decodeInt16fromCursor(&c), WorldRightDirZ: decodeInt16fromCursor(&c),
			GForceLateral: c.f32(), GForceLongitudinal: c.f32(), GForceVertical: c.f32(),
			Yaw: c.f32(), Pitch: c.f32(), Roll: c.f32(),
		}
	}
	return m, true
}

func decodeInt16fromCursor(c *cursor) int16 {
	v := decodeInt16(c.buf[c.pos : c.pos+2])
	c.pos += 2
	return v
}

// --- Session ------------------------------------------------------------

const sessionBodyMinSize = 19

// Session is the decoded body of a PacketSession datagram. Fields beyond
// the ones listed here (per-marshal-zone and weather-forecast arrays) are
// retained verbatim in Raw for forward compatibility; nothing downstream
// reads them.
type Session struct {
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
	Raw                       []byte
}

func decodeSession(body []byte) (Session, bool) {
	if len(body) < sessionBodyMinSize {
		return Session{}, false
	}
	c := cursor{buf: body}
	s := Session{
		Weather:          c.u8(),
		TrackTemperature: c.i8(),
		AirTemperature:   c.i8(),
		TotalLaps:        c.u8(),
		TrackLength:      c.u16(),
		SessionType:      c.u8(),
		TrackID:          c.i8(),
		Formula:          c.u8(),
		SessionTimeLeft:  c.u16(),
		SessionDuration:  c.u16(),
		PitSpeedLimit:    c.u8(),
		GamePaused:       c.u8(),
		IsSpectating:     c.u8(),
	}
	s.SpectatorCarIndex = c.u8()
	s.SliProNativeSupport = c.u8()
	s.NumWeatherForecastSamples = c.u8()
	if c.pos < len(body) {
		raw := make([]byte, len(body)-c.pos)
		copy(raw, c.bytes(len(body)-c.pos))
		s.Raw = raw
	}
	return s, true
}

// --- Event ----------------------------------------------------------------

// Event is the decoded body of a PacketEvent datagram. The dispatcher only
// needs the four-byte tag and the raw remaining payload; per-tag field
// layouts are not interpreted here.
type Event struct {
	Tag [4]byte
	Raw []byte
}

func decodeEvent(body []byte) (Event, bool) {
	if len(body) < 4 {
		return Event{}, false
	}
	var e Event
	copy(e.Tag[:], body[:4])
	if len(body) > 4 {
		raw := make([]byte, len(body)-4)
		copy(raw, body[4:])
		e.Raw = raw
	}
	return e, true
}

// --- Participants -----------------------------------------------------

const participantSize = 58
const participantsBodyMinSize = 1 + MaxCars*participantSize

// Participant is one driver slot in a Participants packet.
type Participant struct {
	AIControlled    uint8
	DriverID        uint8
	NetworkID       uint8
	TeamID          uint8
	MyTeam          uint8
	RaceNumber      uint8
	Nationality     uint8
	Name            [48]byte
	YourTelemetry   uint8
	ShowOnlineNames uint8
	Platform        uint8
}

// SteamName returns Name trimmed at its first NUL byte.
func (p Participant) SteamName() string {
	n := 0
	for n < len(p.Name) && p.Name[n] != 0 {
		n++
	}
	return string(p.Name[:n])
}

// Participants is the decoded body of a PacketParticipants datagram.
type Participants struct {
	NumActiveCars uint8
	Cars          [MaxCars]Participant
}

func decodeParticipants(body []byte) (Participants, bool) {
	if len(body) < participantsBodyMinSize {
		return Participants{}, false
	}
	c := cursor{buf: body}
	p := Participants{NumActiveCars: c.u8()}
	for i := 0; i < MaxCars; i++ {
		var d Participant
		d.AIControlled = c.u8()
		d.DriverID = c.u8()
		d.NetworkID = c.u8()
		d.TeamID = c.u8()
		d.MyTeam = c.u8()
		d.RaceNumber = c.u8()
		d.Nationality = c.u8()
		copy(d.Name[:], c.bytes(48))
		d.YourTelemetry = c.u8()
		d.ShowOnlineNames = c.u8()
		d.Platform = c.u8()
		p.Cars[i] = d
	}
	return p, true
}

// --- CarDamage --------------------------------------------------------

const carDamageSize = 25
const carDamageBodySize = MaxCars * carDamageSize

// CarDamageData is one car's entry in a CarDamage packet.
type CarDamageData struct {
	TyresWear            [4]float32
	TyresDamage          [4]uint8
	FrontLeftWingDamage  uint8
	FrontRightWingDamage uint8
	RearWingDamage       uint8
	EngineDamage         uint8
	GearBoxDamage        uint8
}

// CarDamage is the decoded body of a PacketCarDamage datagram.
type CarDamage struct {
	Cars [MaxCars]CarDamageData
}

func decodeCarDamage(body []byte) (CarDamage, bool) {
	if len(body) < carDamageBodySize {
		return CarDamage{}, false
	}
	c := cursor{buf: body}
	var d CarDamage
	for i := 0; i < MaxCars; i++ {
		var car CarDamageData
		for j := 0; j < 4; j++ {
			car.TyresWear[j] = c.f32()
		}
		for j := 0; j < 4; j++ {
			car.TyresDamage[j] = c.u8()
		}
		car.FrontLeftWingDamage = c.u8()
		car.FrontRightWingDamage = c.u8()
		car.RearWingDamage = c.u8()
		car.EngineDamage = c.u8()
		car.GearBoxDamage = c.u8()
		d.Cars[i] = car
	}
	return d, true
}

// --- CarStatus ----------------------------------------------------------

const carStatusSize = 26
const carStatusBodySize = MaxCars * carStatusSize

// CarStatusData is one car's entry in a CarStatus packet.
type CarStatusData struct {
	TractionControl    uint8
	AntiLockBrakes     uint8
	FuelMix            uint8
	FrontBrakeBias     uint8
	FuelInTank         float32
	FuelCapacity       float32
	MaxRPM             uint16
	IdleRPM            uint16
	MaxGears           uint8
	DRSAllowed         uint8
	ActualTyreCompound uint8
	VisualTyreCompound uint8
	TyresAgeLaps       uint8
	ERSStoreEnergy     float32
	ERSDeployMode      uint8
}

// CarStatus is the decoded body of a PacketCarStatus datagram.
type CarStatus struct {
	Cars [MaxCars]CarStatusData
}

func decodeCarStatus(body []byte) (CarStatus, bool) {
	if len(body) < carStatusBodySize {
		return CarStatus{}, false
	}
	c := cursor{buf: body}
	var s CarStatus
	for i := 0; i < MaxCars; i++ {
		s.Cars[i] = CarStatusData{
			TractionControl:    c.u8(),
			AntiLockBrakes:     c.u8(),
			FuelMix:            c.u8(),
			FrontBrakeBias:     c.u8(),
			FuelInTank:         c.f32(),
			FuelCapacity:       c.f32(),
			MaxRPM:             c.u16(),
			IdleRPM:            c.u16(),
			MaxGears:           c.u8(),
			DRSAllowed:         c.u8(),
			ActualTyreCompound: c.u8(),
			VisualTyreCompound: c.u8(),
			TyresAgeLaps:       c.u8(),
			ERSStoreEnergy:     c.f32(),
			ERSDeployMode:      c.u8(),
		}
	}
	return s, true
}

// --- CarTelemetry -----------------------------------------------------

const carTelemetrySize = 58
const carTelemetryBodySize = MaxCars * carTelemetrySize

// CarTelemetryData is one car's entry in a CarTelemetry packet.
type CarTelemetryData struct {
	Speed                     uint16
	Throttle                  float32
	Steer                     float32
	Brake                     float32
	Clutch                    uint8
	Gear                      int8
	EngineRPM                 uint16
	DRS                       uint8
	RevLightsPercent          uint8
	BrakesTemperature         [4]uint16
	TyresSurfaceTemperature   [4]uint8
	TyresInnerTemperature     [4]uint8
	EngineTemperature         uint16
	TyresPressure             [4]float32
	SurfaceType               [4]uint8
}

// CarTelemetry is the decoded body of a PacketCarTelemetry datagram.
type CarTelemetry struct {
	Cars [MaxCars]CarTelemetryData
}

func decodeCarTelemetry(body []byte) (CarTelemetry, bool) {
	if len(body) < carTelemetryBodySize {
		return CarTelemetry{}, false
	}
	c := cursor{buf: body}
	var t CarTelemetry
	for i := 0; i < MaxCars; i++ {
		var car CarTelemetryData
		car.Speed = c.u16()
		car.Throttle = c.f32()
		car.Steer = c.f32()
		car.Brake = c.f32()
		car.Clutch = c.u8()
		car.Gear = c.i8()
		car.EngineRPM = c.u16()
		car.DRS = c.u8()
		car.RevLightsPercent = c.u8()
		for j := 0; j < 4; j++ {
			car.BrakesTemperature[j] = c.u16()
		}
		for j := 0; j < 4; j++ {
			car.TyresSurfaceTemperature[j] = c.u8()
		}
		for j := 0; j < 4; j++ {
			car.TyresInnerTemperature[j] = c.u8()
		}
		car.EngineTemperature = c.u16()
		for j := 0; j < 4; j++ {
			car.TyresPressure[j] = c.f32()
		}
		for j := 0; j < 4; j++ {
			car.SurfaceType[j] = c.u8()
		}
		t.Cars[i] = car
	}
	return t, true
}

// --- FinalClassification -----------------------------------------------

const finalClassificationSize = 20
const finalClassificationBodyMinSize = 1 + MaxCars*finalClassificationSize

// FinalClassificationData is one car's entry in a FinalClassification packet.
type FinalClassificationData struct {
	Position      uint8
	NumLaps       uint8
	GridPosition  uint8
	Points        uint8
	NumPitStops   uint8
	ResultStatus  uint8
	BestLapTimeMS uint32
	TotalRaceTime float64
	PenaltiesTime uint8
	NumPenalties  uint8
}

// FinalClassification is the decoded body of a PacketFinalClassification datagram.
type FinalClassification struct {
	NumCars uint8
	Cars    [MaxCars]FinalClassificationData
}

func decodeFinalClassification(body []byte) (FinalClassification, bool) {
	if len(body) < finalClassificationBodyMinSize {
		return FinalClassification{}, false
	}
	c := cursor{buf: body}
	fc := FinalClassification{NumCars: c.u8()}
	for i := 0; i < MaxCars; i++ {
		fc.Cars[i] = FinalClassificationData{
			Position:      c.u8(),
			NumLaps:       c.u8(),
			GridPosition:  c.u8(),
			Points:        c.u8(),
			NumPitStops:   c.u8(),
			ResultStatus:  c.u8(),
			BestLapTimeMS: c.u32(),
			TotalRaceTime: c.f64(),
			PenaltiesTime: c.u8(),
			NumPenalties:  c.u8(),
		}
	}
	return fc, true
}

// --- SessionHistory -----------------------------------------------------

const sessionHistoryMinSize = 7

// SessionHistory is the decoded body of a PacketSessionHistory datagram,
// scoped to the single car named by CarIdx. Per-lap time records are kept
// as Raw rather than individually typed; the cache only needs the slot
// keyed by CarIdx, not each lap's breakdown.
type SessionHistory struct {
	CarIdx            uint8
	NumLaps           uint8
	NumTyreStints     uint8
	BestLapTimeLapNum uint8
	BestSector1LapNum uint8
	BestSector2LapNum uint8
	BestSector3LapNum uint8
	Raw               []byte
}

func decodeSessionHistory(body []byte) (SessionHistory, bool) {
	if len(body) < sessionHistoryMinSize {
		return SessionHistory{}, false
	}
	c := cursor{buf: body}
	sh := SessionHistory{
		CarIdx:            c.u8(),
		NumLaps:           c.u8(),
		NumTyreStints:     c.u8(),
		BestLapTimeLapNum: c.u8(),
		BestSector1LapNum: c.u8(),
		BestSector2LapNum: c.u8(),
		BestSector3LapNum: c.u8(),
	}
	if c.pos < len(body) {
		raw := make([]byte, len(body)-c.pos)
		copy(raw, c.bytes(len(body)-c.pos))
		sh.Raw = raw
	}
	return sh, true
}
