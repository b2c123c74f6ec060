// Package synthload is a synthetic UDP load generator for locally exercising
// a running F1 Service without a real game session, grounded on the
// teacher's testbot.go (a virtual client that loops pre-encoded audio
// frames at a fixed tick into a Room) but repurposed to emit synthetic F1
// telemetry datagrams at a configurable rate instead of Opus audio frames.
package synthload

import (
	"context"
	"encoding/binary"
	"math/rand"
	"net"
	"time"

	"github.com/rs/zerolog/log"

	"intelliserver/internal/f1codec"
)

// Config controls one generator run.
type Config struct {
	Addr     string        // destination, e.g. "127.0.0.1:27700"
	Interval time.Duration // datagram send cadence
	Kinds    []f1codec.PacketID
}

// Generator sends synthetic, well-formed F1 datagrams to Addr on Interval,
// cycling through Kinds. It exists for local exercising of the F1 Service
// and its Cache/broadcast fan-out, not as a protocol conformance test.
type Generator struct {
	cfg  Config
	conn net.Conn
	seq  uint32
}

// New dials Addr (UDP) and returns a Generator ready to Run.
func New(cfg Config) (*Generator, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = 700 * time.Millisecond
	}
	if len(cfg.Kinds) == 0 {
		cfg.Kinds = []f1codec.PacketID{f1codec.PacketMotion, f1codec.PacketSession, f1codec.PacketParticipants}
	}
	conn, err := net.Dial("udp", cfg.Addr)
	if err != nil {
		return nil, err
	}
	return &Generator{cfg: cfg, conn: conn}, nil
}

// Close releases the underlying socket.
func (g *Generator) Close() error {
	return g.conn.Close()
}

// Run sends datagrams on cfg.Interval until ctx is cancelled.
func (g *Generator) Run(ctx context.Context) {
	ticker := time.NewTicker(g.cfg.Interval)
	defer ticker.Stop()

	idx := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		kind := g.cfg.Kinds[idx%len(g.cfg.Kinds)]
		idx++

		dgram := g.buildDatagram(kind)
		if _, err := g.conn.Write(dgram); err != nil {
			log.Warn().Err(err).Str("addr", g.cfg.Addr).Msg("synthload: send failed")
			continue
		}
		g.seq++
	}
}

func (g *Generator) buildDatagram(kind f1codec.PacketID) []byte {
	body := syntheticBody(kind)
	dgram := make([]byte, f1codec.HeaderSize+len(body))
	g.writeHeader(dgram, kind)
	copy(dgram[f1codec.HeaderSize:], body)
	return dgram
}

func (g *Generator) writeHeader(buf []byte, kind f1codec.PacketID) {
	binary.LittleEndian.PutUint16(buf[0:2], 2024)
	buf[2] = 24                                     // GameYear
	buf[3] = 1                                       // GameMajorVersion
	buf[4] = 0                                       // GameMinorVersion
	buf[5] = 1                                       // PacketVersion
	buf[6] = byte(kind)
	binary.LittleEndian.PutUint64(buf[7:15], 0xF1F1F1F1)
	binary.LittleEndian.PutUint32(buf[15:19], uint32(rand.Int31()))
	binary.LittleEndian.PutUint32(buf[19:23], g.seq)
	binary.LittleEndian.PutUint32(buf[23:27], g.seq)
	buf[27] = 0 // PlayerCarIndex
	buf[28] = 255
}

// syntheticBody returns a zero-filled body of the minimum valid size for
// kind. Zero-valued telemetry is sufficient to exercise decode + cache +
// broadcast; it need not resemble a plausible race.
func syntheticBody(kind f1codec.PacketID) []byte {
	const maxCars = f1codec.MaxCars
	switch kind {
	case f1codec.PacketMotion:
		return make([]byte, maxCars*60)
	case f1codec.PacketSession:
		return make([]byte, 19)
	case f1codec.PacketParticipants:
		return make([]byte, 1+maxCars*58)
	case f1codec.PacketEvent:
		return make([]byte, 4)
	case f1codec.PacketFinalClassification:
		return make([]byte, 1+maxCars*20)
	case f1codec.PacketSessionHistory:
		return make([]byte, 7)
	case f1codec.PacketCarDamage:
		return make([]byte, maxCars*25)
	case f1codec.PacketCarStatus:
		return make([]byte, maxCars*26)
	case f1codec.PacketCarTelemetry:
		return make([]byte, maxCars*58)
	default:
		return make([]byte, 8)
	}
}
