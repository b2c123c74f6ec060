// Package championship is the process-wide registry of running F1
// Services: one map from championship id to service handle, generalized
// from the teacher's ChannelState — a single mutex guarding a map of
// per-connection handles, each independently constructed and torn down.
package championship

import (
	"net"
	"sync"

	"intelliserver/internal/apperror"
	"intelliserver/internal/f1service"
	"intelliserver/internal/firewall"
	"intelliserver/internal/ports"
)

// Dialer opens the UDP socket a new service will read from. Production
// code binds a real *net.UDPConn; tests inject a fake net.PacketConn.
type Dialer func(port int) (net.PacketConn, error)

// DefaultDialer binds 0.0.0.0:<port>, the bind address named in the
// external interface.
func DefaultDialer(port int) (net.PacketConn, error) {
	return net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: port})
}

// Manager owns the pool, firewall, and dialer shared by every F1 Service
// it starts, and the registry mapping championship id to its handle.
type Manager struct {
	mu       sync.RWMutex
	handles  map[int32]*f1service.Handle
	pool     *ports.Pool
	firewall *firewall.Coordinator
	dial     Dialer
	drivers  f1service.DriverUpserter
	results  f1service.RaceResultPersister
}

// New builds a Manager backed by pool and firewall. drivers/results may be
// nil if no persistence side-effects are wired (e.g. in tests).
func New(pool *ports.Pool, fw *firewall.Coordinator, dial Dialer, drivers f1service.DriverUpserter, results f1service.RaceResultPersister) *Manager {
	if dial == nil {
		dial = DefaultDialer
	}
	return &Manager{
		handles:  make(map[int32]*f1service.Handle),
		pool:     pool,
		firewall: fw,
		dial:     dial,
		drivers:  drivers,
		results:  results,
	}
}

// StartService starts a new F1 Service for championshipID on port. If the
// id already has a live (non-Terminated) entry, it returns AlreadyStarted.
// A Terminated entry from a prior run is garbage-collected here, just
// before the new one replaces it.
//
// port must already have been acquired from Pool() by the caller — the
// control API layer owns the sequence of "acquire a port, then start a
// service on it" so that NoPortAvailable can be reported before any
// service construction begins, exactly as the external Control API's
// start_service contract describes.
func (m *Manager) StartService(championshipID int32, port int) (*f1service.Handle, error) {
	m.mu.Lock()
	if existing, ok := m.handles[championshipID]; ok {
		if existing.State() != f1service.StateTerminated {
			m.mu.Unlock()
			return nil, apperror.New(apperror.KindAlreadyStarted)
		}
		delete(m.handles, championshipID)
	}
	m.mu.Unlock()

	if err := m.firewall.Open(port); err != nil {
		m.pool.Return(port)
		return nil, apperror.Wrap(apperror.KindInternalServerError, err)
	}

	conn, err := m.dial(port)
	if err != nil {
		m.firewall.Close(port)
		m.pool.Return(port)
		return nil, apperror.Wrap(apperror.KindInternalServerError, err)
	}

	release := func(p int) {
		m.firewall.Close(p)
		m.pool.Return(p)
	}

	handle := f1service.Start(f1service.Config{
		ChampionshipID: championshipID,
		Port:           port,
		Conn:           conn,
		Drivers:        m.drivers,
		RaceResults:    m.results,
		Release:        release,
	})

	m.mu.Lock()
	m.handles[championshipID] = handle
	m.mu.Unlock()

	return handle, nil
}

// StopService requests cooperative shutdown of championshipID's service.
// It returns NotActive if there is no running entry.
func (m *Manager) StopService(championshipID int32) error {
	m.mu.RLock()
	handle, ok := m.handles[championshipID]
	m.mu.RUnlock()
	if !ok || !handle.Active() {
		return apperror.New(apperror.KindNotActive)
	}
	handle.Stop()
	return nil
}

// Pool exposes the shared port pool so the control API layer can acquire a
// port (and surface NoPortAvailable) before calling StartService, and
// return one directly if it needs to abandon a start attempt early (e.g.
// StartService reporting AlreadyStarted, which leaves the port untouched).
func (m *Manager) Pool() *ports.Pool {
	return m.pool
}

// ServiceActive reports whether championshipID has a live, Running
// service.
func (m *Manager) ServiceActive(championshipID int32) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	handle, ok := m.handles[championshipID]
	return ok && handle.Active()
}

// Subscribe returns a broadcast channel for championshipID's service, or
// NotActive if it has no live service.
func (m *Manager) Subscribe(championshipID int32) (<-chan []byte, []byte, error) {
	m.mu.RLock()
	handle, ok := m.handles[championshipID]
	m.mu.RUnlock()
	if !ok || !handle.Active() {
		return nil, nil, apperror.New(apperror.KindNotActive)
	}
	return handle.Subscribe(), handle.InitialSnapshot(), nil
}

// Unsubscribe removes a receiver obtained from Subscribe. It is a no-op if
// championshipID no longer has a tracked handle (the service may have
// terminated and released its Hub already).
func (m *Manager) Unsubscribe(championshipID int32, ch <-chan []byte) {
	m.mu.RLock()
	handle, ok := m.handles[championshipID]
	m.mu.RUnlock()
	if !ok {
		return
	}
	handle.Unsubscribe(ch)
}

// Status is the enumerable view of one championship's service.
type Status struct {
	ChampionshipID int32
	Active         bool
	GeneralConn    int
	// EngineerConn has no producer in this design; it is always 0 — see
	// DESIGN.md's Open Question resolution.
	EngineerConn int
}

// ServiceStatus reports one championship's status, or NotActive if it has
// no entry at all.
func (m *Manager) ServiceStatus(championshipID int32) (Status, error) {
	m.mu.RLock()
	handle, ok := m.handles[championshipID]
	m.mu.RUnlock()
	if !ok {
		return Status{}, apperror.New(apperror.KindNotActive)
	}
	return Status{
		ChampionshipID: championshipID,
		Active:         handle.Active(),
		GeneralConn:    handle.SubscriberCount(),
	}, nil
}

// Enumerate lists every tracked championship's status.
func (m *Manager) Enumerate() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Status, 0, len(m.handles))
	for id, handle := range m.handles {
		out = append(out, Status{
			ChampionshipID: id,
			Active:         handle.Active(),
			GeneralConn:    handle.SubscriberCount(),
		})
	}
	return out
}
