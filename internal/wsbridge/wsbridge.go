// Package wsbridge upgrades an HTTP request to a WebSocket and streams one
// championship's broadcast frames to it, grounded on the teacher's
// internal/ws.Handler upgrade-then-serve shape (gorilla/websocket, a
// per-session send loop reading off a channel with a write deadline) but
// one-way: subscribers only ever receive Binary frames, never send.
package wsbridge

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"intelliserver/internal/apperror"
	"intelliserver/internal/championship"
)

const writeTimeout = 5 * time.Second

// pingInterval keeps intermediate proxies from idling out the connection
// while a championship is quiet between batch ticks.
const pingInterval = 30 * time.Second

// Bridge upgrades subscribe requests and streams broadcast frames.
type Bridge struct {
	manager  *championship.Manager
	upgrader websocket.Upgrader
}

// New builds a Bridge over manager.
func New(manager *championship.Manager) *Bridge {
	return &Bridge{
		manager: manager,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}
}

// Register binds the subscribe route on an Echo router.
func (b *Bridge) Register(e *echo.Echo) {
	e.GET("/championships/:id/subscribe", b.handleSubscribe)
}

func (b *Bridge) handleSubscribe(c echo.Context) error {
	id, err := parseChampionshipID(c.Param("id"))
	if err != nil {
		return err
	}

	frames, snapshot, err := b.manager.Subscribe(id)
	if err != nil {
		return echo.NewHTTPError(apperror.StatusCode(err), apperror.Message(err))
	}

	conn, err := b.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Error().Err(err).Int32("championship_id", id).Msg("wsbridge upgrade failed")
		return nil
	}
	b.serve(conn, id, frames, snapshot)
	return nil
}

func (b *Bridge) serve(conn *websocket.Conn, championshipID int32, frames <-chan []byte, snapshot []byte) {
	defer conn.Close()
	defer b.manager.Unsubscribe(championshipID, frames)

	if len(snapshot) > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.BinaryMessage, snapshot); err != nil {
			log.Debug().Err(err).Int32("championship_id", championshipID).Msg("wsbridge snapshot write failed")
			return
		}
	}

	// Drain client-initiated messages (pings/close) on a background
	// goroutine purely to detect disconnects; subscribers never send data
	// frames we need to act on.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				log.Debug().Err(err).Int32("championship_id", championshipID).Msg("wsbridge frame write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func parseChampionshipID(raw string) (int32, error) {
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "championship id must be an integer")
	}
	return int32(id), nil
}
