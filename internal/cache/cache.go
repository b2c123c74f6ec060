// Package cache holds the most recent packet of each kind for one F1
// Service and turns them into broadcast-ready frames. A PacketCache is
// owned exclusively by its service's receive goroutine — per the
// concurrency model, nothing else ever touches it, so there is no internal
// locking here, the same way ChannelState's per-connection session state
// in the teacher repo is never shared outside its owning goroutine.
package cache

import (
	"bytes"
	"sort"

	"intelliserver/internal/f1codec"
)

// maxEvents bounds the event ring; the oldest event is evicted once the
// ring would exceed this size.
const maxEvents = 64

// PacketCache holds the latest snapshot of every cached packet kind plus a
// bounded ring of recent events and a per-car session-history table.
type PacketCache struct {
	motion               *f1codec.Motion
	session              *f1codec.Session
	participants         *f1codec.Participants
	carDamage            *f1codec.CarDamage
	carStatus            *f1codec.CarStatus
	carTelemetry         *f1codec.CarTelemetry
	finalClassification  *f1codec.FinalClassification

	sessionHistory map[uint8]f1codec.SessionHistory
	events         []f1codec.Event

	// dirty tracks which singleton kinds changed since the last drain.
	dirty map[f1codec.PacketID]bool
	// dirtyHistory tracks which car indices changed since the last drain.
	dirtyHistory map[uint8]bool
	// pendingEvents holds events saved since the last drain, in arrival
	// order; it is distinct from the bounded events ring because drain
	// must forget them once flushed while the ring keeps them for
	// late-joiner snapshots.
	pendingEvents []f1codec.Event
}

// New builds an empty PacketCache.
func New() *PacketCache {
	return &PacketCache{
		sessionHistory: make(map[uint8]f1codec.SessionHistory),
		dirty:          make(map[f1codec.PacketID]bool),
		dirtyHistory:   make(map[uint8]bool),
	}
}

// Save stores one decoded packet body. Singleton kinds replace their prior
// value; SessionHistory upserts by car index; Event pushes onto the
// bounded ring, evicting the oldest entry once it would exceed maxEvents.
func (c *PacketCache) Save(kind f1codec.PacketID, body any) {
	switch v := body.(type) {
	case f1codec.Motion:
		c.motion = &v
		c.dirty[f1codec.PacketMotion] = true
	case f1codec.Session:
		c.session = &v
		c.dirty[f1codec.PacketSession] = true
	case f1codec.Participants:
		c.participants = &v
		c.dirty[f1codec.PacketParticipants] = true
	case f1codec.CarDamage:
		c.carDamage = &v
		c.dirty[f1codec.PacketCarDamage] = true
	case f1codec.CarStatus:
		c.carStatus = &v
		c.dirty[f1codec.PacketCarStatus] = true
	case f1codec.CarTelemetry:
		c.carTelemetry = &v
		c.dirty[f1codec.PacketCarTelemetry] = true
	case f1codec.FinalClassification:
		c.finalClassification = &v
		c.dirty[f1codec.PacketFinalClassification] = true
	case f1codec.SessionHistory:
		c.sessionHistory[v.CarIdx] = v
		c.dirtyHistory[v.CarIdx] = true
	case f1codec.Event:
		c.events = append(c.events, v)
		if len(c.events) > maxEvents {
			c.events = c.events[len(c.events)-maxEvents:]
		}
		c.pendingEvents = append(c.pendingEvents, v)
	}
}

// Snapshot produces a single frame containing every currently held packet,
// in a fixed deterministic order: Motion, Session, Participants, CarDamage,
// CarStatus, CarTelemetry, FinalClassification, then SessionHistory
// entries sorted by car index, then every event still in the ring.
func (c *PacketCache) Snapshot() []byte {
	var buf bytes.Buffer
	c.writeSingletonsLocked(&buf, func(f1codec.PacketID) bool { return true })
	c.writeHistoryLocked(&buf, func(uint8) bool { return true })
	for _, ev := range c.events {
		writeEntry(&buf, f1codec.PacketEvent, encodeEvent(ev))
	}
	return buf.Bytes()
}

// DrainDelta produces a frame of everything changed since the last
// DrainDelta call, or nil if nothing changed. Calling it resets the dirty
// tracking.
func (c *PacketCache) DrainDelta() []byte {
	if len(c.dirty) == 0 && len(c.dirtyHistory) == 0 && len(c.pendingEvents) == 0 {
		return nil
	}

	var buf bytes.Buffer
	c.writeSingletonsLocked(&buf, func(id f1codec.PacketID) bool { return c.dirty[id] })
	c.writeHistoryLocked(&buf, func(idx uint8) bool { return c.dirtyHistory[idx] })
	for _, ev := range c.pendingEvents {
		writeEntry(&buf, f1codec.PacketEvent, encodeEvent(ev))
	}

	c.dirty = make(map[f1codec.PacketID]bool)
	c.dirtyHistory = make(map[uint8]bool)
	c.pendingEvents = nil

	return buf.Bytes()
}

func (c *PacketCache) writeSingletonsLocked(buf *bytes.Buffer, want func(f1codec.PacketID) bool) {
	if c.motion != nil && want(f1codec.PacketMotion) {
		writeEntry(buf, f1codec.PacketMotion, encodeFixed(*c.motion))
	}
	if c.session != nil && want(f1codec.PacketSession) {
		writeEntry(buf, f1codec.PacketSession, encodeSession(*c.session))
	}
	if c.participants != nil && want(f1codec.PacketParticipants) {
		writeEntry(buf, f1codec.PacketParticipants, encodeFixed(*c.participants))
	}
	if c.carDamage != nil && want(f1codec.PacketCarDamage) {
		writeEntry(buf, f1codec.PacketCarDamage, encodeFixed(*c.carDamage))
	}
	if c.carStatus != nil && want(f1codec.PacketCarStatus) {
		writeEntry(buf, f1codec.PacketCarStatus, encodeFixed(*c.carStatus))
	}
	if c.carTelemetry != nil && want(f1codec.PacketCarTelemetry) {
		writeEntry(buf, f1codec.PacketCarTelemetry, encodeFixed(*c.carTelemetry))
	}
	if c.finalClassification != nil && want(f1codec.PacketFinalClassification) {
		writeEntry(buf, f1codec.PacketFinalClassification, encodeFixed(*c.finalClassification))
	}
}

func (c *PacketCache) writeHistoryLocked(buf *bytes.Buffer, want func(uint8) bool) {
	indices := make([]uint8, 0, len(c.sessionHistory))
	for idx := range c.sessionHistory {
		if want(idx) {
			indices = append(indices, idx)
		}
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	for _, idx := range indices {
		writeEntry(buf, f1codec.PacketSessionHistory, encodeSessionHistory(c.sessionHistory[idx]))
	}
}

// SessionHistoryCount reports how many per-car slots are currently held,
// so callers can enforce the "size ≤ participant count" invariant.
func (c *PacketCache) SessionHistoryCount() int {
	return len(c.sessionHistory)
}

// EventCount reports how many events the ring currently holds.
func (c *PacketCache) EventCount() int {
	return len(c.events)
}
