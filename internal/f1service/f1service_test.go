package f1service

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"net"
	"sync"
	"testing"
	"time"

	"intelliserver/internal/f1codec"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

type fakeConn struct {
	mu        sync.Mutex
	datagrams [][]byte
	closed    bool
}

func (f *fakeConn) push(d []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.datagrams = append(f.datagrams, d)
}

func (f *fakeConn) ReadFrom(p []byte) (int, net.Addr, error) {
	f.mu.Lock()
	if len(f.datagrams) > 0 {
		d := f.datagrams[0]
		f.datagrams = f.datagrams[1:]
		f.mu.Unlock()
		return copy(p, d), &net.UDPAddr{}, nil
	}
	f.mu.Unlock()
	time.Sleep(2 * time.Millisecond)
	return 0, nil, timeoutErr{}
}

func (f *fakeConn) WriteTo(p []byte, addr net.Addr) (int, error) { return len(p), nil }
func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}
func (f *fakeConn) LocalAddr() net.Addr                { return &net.UDPAddr{} }
func (f *fakeConn) SetDeadline(t time.Time) error      { return nil }
func (f *fakeConn) SetReadDeadline(t time.Time) error  { return nil }
func (f *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *clock { return &clock{now: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func buildHeader(format uint16, packetID f1codec.PacketID) []byte {
	buf := make([]byte, f1codec.HeaderSize)
	binary.LittleEndian.PutUint16(buf[0:2], format)
	buf[2] = 24
	buf[3] = 1
	buf[4] = 24
	buf[5] = 1
	buf[6] = byte(packetID)
	binary.LittleEndian.PutUint64(buf[7:15], 1)
	binary.LittleEndian.PutUint32(buf[15:19], math.Float32bits(1))
	binary.LittleEndian.PutUint32(buf[19:23], 1)
	binary.LittleEndian.PutUint32(buf[23:27], 1)
	buf[27] = 0
	buf[28] = 1
	return buf
}

func waitForDone(t *testing.T, h *Handle, timeout time.Duration) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(timeout):
		t.Fatal("timed out waiting for service to terminate")
	}
}

func TestIdleTimeoutTerminatesAndReleasesPort(t *testing.T) {
	clk := newClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	conn := &fakeConn{}
	released := make(chan int, 1)

	h := Start(Config{
		ChampionshipID: 700000001,
		Port:           27700,
		Conn:           conn,
		Now:            clk.Now,
		Release: func(port int) {
			released <- port
		},
	})

	clk.Advance(SocketTimeout + time.Second)
	waitForDone(t, h, 2*time.Second)

	if h.State() != StateTerminated {
		t.Fatalf("expected Terminated, got %v", h.State())
	}
	select {
	case port := <-released:
		if port != 27700 {
			t.Fatalf("released port %d, want 27700", port)
		}
	default:
		t.Fatal("expected port release on idle timeout")
	}
	if !conn.closed {
		t.Fatal("expected socket closed on termination")
	}
}

func TestUnsupportedFormatDropLeavesServiceRunning(t *testing.T) {
	clk := newClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	conn := &fakeConn{}
	h := Start(Config{ChampionshipID: 700000002, Port: 27701, Conn: conn, Now: clk.Now})
	defer h.Stop()

	datagram := buildHeader(2019, f1codec.PacketMotion)
	conn.push(datagram)

	deadline := time.Now().Add(time.Second)
	for h.DecodeErrorCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if h.DecodeErrorCount() != 1 {
		t.Fatalf("expected decode error count 1, got %d", h.DecodeErrorCount())
	}
	if !h.Active() {
		t.Fatal("expected service to remain Running after an unsupported-format datagram")
	}
}

func TestWarmSnapshotContainsMotionThenSession(t *testing.T) {
	clk := newClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	conn := &fakeConn{}
	h := Start(Config{ChampionshipID: 700000003, Port: 27702, Conn: conn, Now: clk.Now})
	defer h.Stop()

	motionBody := make([]byte, motionBodySizeForTest())
	motionDatagram := append(buildHeader(2024, f1codec.PacketMotion), motionBody...)
	conn.push(motionDatagram)

	sessionBody := make([]byte, 19)
	sessionBody[3] = 50 // TotalLaps
	sessionDatagram := append(buildHeader(2024, f1codec.PacketSession), sessionBody...)
	conn.push(sessionDatagram)

	var snapshot []byte
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		snapshot = h.InitialSnapshot()
		if len(snapshot) > 0 && bytes.IndexByte(snapshot, byte(f1codec.PacketSession)) > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if len(snapshot) == 0 {
		t.Fatal("expected non-empty snapshot")
	}
	if snapshot[0] != byte(f1codec.PacketMotion) {
		t.Fatalf("expected first entry to be Motion, got tag %d", snapshot[0])
	}
	sessionIdx := bytes.IndexByte(snapshot, byte(f1codec.PacketSession))
	if sessionIdx <= 0 {
		t.Fatal("expected Session entry to follow Motion in the snapshot")
	}
}

func motionBodySizeForTest() int {
	return f1codec.MaxCars * 60
}

type recordingDrivers struct {
	mu    sync.Mutex
	names []string
}

func (r *recordingDrivers) Upsert(ctx context.Context, name string, nationality uint8) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	return nil
}

func TestParticipantsSideEffectUpsertsUnknownDrivers(t *testing.T) {
	clk := newClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	conn := &fakeConn{}
	drivers := &recordingDrivers{}
	h := Start(Config{ChampionshipID: 700000004, Port: 27703, Conn: conn, Now: clk.Now, Drivers: drivers})
	defer h.Stop()

	body := make([]byte, 1+f1codec.MaxCars*58)
	body[0] = 1
	copy(body[1+7:], []byte("hamilton"))
	datagram := append(buildHeader(2024, f1codec.PacketParticipants), body...)
	conn.push(datagram)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		drivers.mu.Lock()
		n := len(drivers.names)
		drivers.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	drivers.mu.Lock()
	defer drivers.mu.Unlock()
	if len(drivers.names) == 0 || drivers.names[0] != "hamilton" {
		t.Fatalf("expected hamilton upserted, got %v", drivers.names)
	}
}

func TestStopTerminatesService(t *testing.T) {
	clk := newClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	conn := &fakeConn{}
	h := Start(Config{ChampionshipID: 700000005, Port: 27704, Conn: conn, Now: clk.Now})

	h.Stop()
	waitForDone(t, h, 3*time.Second)

	if h.State() != StateTerminated {
		t.Fatalf("expected Terminated after Stop, got %v", h.State())
	}
}
