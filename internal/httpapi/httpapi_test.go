package httpapi

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"intelliserver/internal/championship"
	"intelliserver/internal/firewall"
	"intelliserver/internal/ports"
	"intelliserver/internal/store"
)

type nopRunner struct{}

func (nopRunner) Run(string) error { return nil }

type fakeConn struct{}

func (f *fakeConn) ReadFrom(p []byte) (int, net.Addr, error) {
	time.Sleep(time.Millisecond)
	return 0, nil, timeoutErr{}
}
func (f *fakeConn) WriteTo(p []byte, addr net.Addr) (int, error) { return len(p), nil }
func (f *fakeConn) Close() error                                 { return nil }
func (f *fakeConn) LocalAddr() net.Addr                          { return &net.UDPAddr{} }
func (f *fakeConn) SetDeadline(time.Time) error                  { return nil }
func (f *fakeConn) SetReadDeadline(time.Time) error              { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error             { return nil }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func newTestServer(t *testing.T) (*Server, *store.ChampionshipRepository) {
	t.Helper()
	pool, err := ports.New(27700, 27710, nil)
	if err != nil {
		t.Fatalf("ports.New: %v", err)
	}
	fw := firewall.New(nopRunner{})
	dial := func(int) (net.PacketConn, error) { return &fakeConn{}, nil }
	mgr := championship.New(pool, fw, dial, nil, nil)

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	champs := store.NewChampionshipRepository(st)

	return New(mgr, champs, nil, nil), champs
}

func TestStartServiceUnknownChampionshipReturns404(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/championships/700000099/start", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestStartServiceThenAlreadyStartedThenStop(t *testing.T) {
	s, champs := newTestServer(t)
	if err := champs.Create(context.Background(), 700000001, "GT3 League", "gt3"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/championships/700000001/start", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/championships/700000001/start", nil)
	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/championships/700000001/status", nil)
	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/championships/700000001/stop", nil)
	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestStopServiceNotActiveReturns503(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/championships/700000002/stop", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestEnumerateListsStartedServices(t *testing.T) {
	s, champs := newTestServer(t)
	if err := champs.Create(context.Background(), 700000003, "F2 Feeder", "f2"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/championships/700000003/start", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/championships", nil)
	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}
