// Package ratelimit implements the fixed-window per-IP login gate: five
// attempts per 120-second window, keyed by a trusted client-IP header.
package ratelimit

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"intelliserver/internal/apperror"
)

// Limit and Window match the source middleware's constants exactly.
const (
	Limit  = 5
	Window = 120 * time.Second
)

const shardCount = 16

type entry struct {
	count     uint8
	windowEnd time.Time
}

type shard struct {
	mu      sync.Mutex
	entries map[string]entry
}

// Gate is a sharded, fixed-window per-IP rate limiter.
type Gate struct {
	shards [shardCount]*shard
	now    func() time.Time
}

// New builds an empty Gate.
func New() *Gate {
	g := &Gate{now: time.Now}
	for i := range g.shards {
		g.shards[i] = &shard{entries: make(map[string]entry)}
	}
	return g
}

// SetClock overrides the gate's notion of "now", for tests.
func (g *Gate) SetClock(now func() time.Time) {
	g.now = now
}

func (g *Gate) shardFor(ip string) *shard {
	var h uint32
	for i := 0; i < len(ip); i++ {
		h = h*31 + uint32(ip[i])
	}
	return g.shards[h%shardCount]
}

// Allow records one attempt from ip and reports RateLimited once more than
// Limit attempts land within Window of the first attempt in the current
// window.
func (g *Gate) Allow(ip string) error {
	s := g.shardFor(ip)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := g.now()
	e, ok := s.entries[ip]
	if !ok || now.After(e.windowEnd) {
		s.entries[ip] = entry{count: 1, windowEnd: now.Add(Window)}
		return nil
	}
	if e.count >= Limit {
		return apperror.New(apperror.KindRateLimited)
	}
	e.count++
	s.entries[ip] = e
	return nil
}

// Middleware builds an echo.MiddlewareFunc that applies Allow to the value
// of trustedHeader. Requests with no value for that header are not
// limited; upstream infrastructure is expected to strip or overwrite a
// client-supplied value for it before it reaches this process.
func (g *Gate) Middleware(trustedHeader string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.Request().Header.Get(trustedHeader)
			if ip == "" {
				return next(c)
			}
			if err := g.Allow(ip); err != nil {
				return err
			}
			return next(c)
		}
	}
}
