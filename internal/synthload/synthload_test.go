package synthload

import (
	"net"
	"testing"

	"intelliserver/internal/f1codec"
)

func TestBuildDatagramDecodesCleanly(t *testing.T) {
	g := &Generator{cfg: Config{Kinds: []f1codec.PacketID{f1codec.PacketMotion}}}

	for _, kind := range []f1codec.PacketID{
		f1codec.PacketMotion,
		f1codec.PacketSession,
		f1codec.PacketParticipants,
		f1codec.PacketEvent,
		f1codec.PacketFinalClassification,
		f1codec.PacketSessionHistory,
	} {
		dgram := g.buildDatagram(kind)
		pkt, ok, err := f1codec.Decode(dgram)
		if err != nil {
			t.Fatalf("kind %v: decode error: %v", kind, err)
		}
		if !ok {
			t.Fatalf("kind %v: decode reported not-ok for a well-formed datagram", kind)
		}
		if pkt.Header.PacketID != kind {
			t.Fatalf("kind %v: header round-trip mismatch, got %v", kind, pkt.Header.PacketID)
		}
	}
}

func TestNewRejectsUnresolvableAddr(t *testing.T) {
	if _, err := New(Config{Addr: "256.256.256.256:0"}); err == nil {
		t.Fatal("expected dial error for an invalid address")
	}
}

func TestGeneratorSendsWellFormedDatagrams(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer conn.Close()

	g, err := New(Config{Addr: conn.LocalAddr().String()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer g.Close()

	dgram := g.buildDatagram(f1codec.PacketMotion)
	if _, err := g.conn.Write(dgram); err != nil {
		t.Fatalf("write: %v", err)
	}

	buf := make([]byte, 4096)
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if _, ok, err := f1codec.Decode(buf[:n]); err != nil || !ok {
		t.Fatalf("received datagram failed to decode: ok=%v err=%v", ok, err)
	}
}
