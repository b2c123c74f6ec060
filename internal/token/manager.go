package token

import (
	"sync"
	"time"

	"intelliserver/internal/apperror"
)

// MaxTokensPerUser is the FIFO cap enforced by Create.
const MaxTokensPerUser = 10

// DefaultPurgeInterval is how often StartPurgeLoop sweeps expired tokens
// and rewrites the snapshot file.
const DefaultPurgeInterval = 15 * time.Minute

const shardCount = 32

type tokenShard struct {
	mu     sync.RWMutex
	tokens map[Token]Entry
}

type userShard struct {
	mu    sync.Mutex
	queue map[int32][]Token
}

// Manager holds every live token, sharded to keep validate() from
// blocking on a full-table purge sweep.
type Manager struct {
	shards     [shardCount]*tokenShard
	userShards [shardCount]*userShard
	now        func() time.Time
}

// New builds an empty Manager. now defaults to time.Now; tests may
// override it to exercise expiry deterministically.
func New() *Manager {
	m := &Manager{now: time.Now}
	for i := range m.shards {
		m.shards[i] = &tokenShard{tokens: make(map[Token]Entry)}
	}
	for i := range m.userShards {
		m.userShards[i] = &userShard{queue: make(map[int32][]Token)}
	}
	return m
}

// SetClock overrides the manager's notion of "now", for tests.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

func (m *Manager) tokenShardFor(t Token) *tokenShard {
	return m.shards[t[0]%shardCount]
}

func (m *Manager) userShardFor(userID int32) *userShard {
	idx := uint32(userID) % shardCount
	return m.userShards[idx]
}

// Create mints a token for userID with the given intent. If the user
// already holds MaxTokensPerUser tokens, the oldest is evicted (FIFO) from
// both the token table and the user's queue before the new one is
// inserted.
func (m *Manager) Create(userID int32, intent Intent) Token {
	t := NewToken()
	expiry := uint32(m.now().Add(intent.Lifespan()).Unix())
	entry := Entry{UserID: userID, ExpiryUnixS: expiry, Intent: intent}

	us := m.userShardFor(userID)
	us.mu.Lock()
	queue := us.queue[userID]
	if len(queue) >= MaxTokensPerUser {
		oldest := queue[0]
		queue = queue[1:]
		m.deleteToken(oldest)
	}
	queue = append(queue, t)
	us.queue[userID] = queue
	us.mu.Unlock()

	ts := m.tokenShardFor(t)
	ts.mu.Lock()
	ts.tokens[t] = entry
	ts.mu.Unlock()

	return t
}

func (m *Manager) deleteToken(t Token) {
	ts := m.tokenShardFor(t)
	ts.mu.Lock()
	delete(ts.tokens, t)
	ts.mu.Unlock()
}

// Validate looks up token and checks it against expected. An expired
// token is deleted and reports ExpiredToken; an intent mismatch reports
// InvalidToken without deleting anything (the token may still be valid
// for its actual intent).
func (m *Manager) Validate(t Token, expected Intent) (int32, error) {
	ts := m.tokenShardFor(t)
	ts.mu.RLock()
	entry, ok := ts.tokens[t]
	ts.mu.RUnlock()

	if !ok {
		return 0, apperror.New(apperror.KindInvalidToken)
	}
	if entry.expired(m.now()) {
		m.removeFromUserQueue(entry.UserID, t)
		m.deleteToken(t)
		return 0, apperror.New(apperror.KindExpiredToken)
	}
	if entry.Intent != expected {
		return 0, apperror.New(apperror.KindInvalidToken)
	}
	return entry.UserID, nil
}

// Remove deletes token if and only if its stored intent matches intent,
// removing it from both the token table and its owner's queue. It
// reports whether a token was removed.
func (m *Manager) Remove(t Token, intent Intent) bool {
	ts := m.tokenShardFor(t)
	ts.mu.Lock()
	entry, ok := ts.tokens[t]
	if !ok || entry.Intent != intent {
		ts.mu.Unlock()
		return false
	}
	delete(ts.tokens, t)
	ts.mu.Unlock()

	m.removeFromUserQueue(entry.UserID, t)
	return true
}

func (m *Manager) removeFromUserQueue(userID int32, t Token) {
	us := m.userShardFor(userID)
	us.mu.Lock()
	defer us.mu.Unlock()
	queue := us.queue[userID]
	for i, qt := range queue {
		if qt == t {
			us.queue[userID] = append(queue[:i], queue[i+1:]...)
			break
		}
	}
}

// PurgeExpired sweeps every shard removing entries whose expiry has
// passed. Each shard is snapshotted then cleared of expired keys under
// its own lock, so a sweep never holds every shard at once and never
// blocks Validate for longer than one shard's worth of work.
func (m *Manager) PurgeExpired() int {
	now := m.now()
	removed := 0
	for _, ts := range m.shards {
		ts.mu.Lock()
		var expired []Token
		for t, entry := range ts.tokens {
			if entry.expired(now) {
				expired = append(expired, t)
			}
		}
		for _, t := range expired {
			entry := ts.tokens[t]
			delete(ts.tokens, t)
			ts.mu.Unlock()
			m.removeFromUserQueue(entry.UserID, t)
			ts.mu.Lock()
		}
		removed += len(expired)
		ts.mu.Unlock()
	}
	return removed
}

// Count returns the total number of live tokens, for diagnostics and
// tests.
func (m *Manager) Count() int {
	total := 0
	for _, ts := range m.shards {
		ts.mu.RLock()
		total += len(ts.tokens)
		ts.mu.RUnlock()
	}
	return total
}

// UserTokenCount returns how many tokens userID currently holds.
func (m *Manager) UserTokenCount(userID int32) int {
	us := m.userShardFor(userID)
	us.mu.Lock()
	defer us.mu.Unlock()
	return len(us.queue[userID])
}

// StartPurgeLoop runs PurgeExpired then snapshots to disk every interval,
// until stop is closed. It is meant to be started once per process in a
// background goroutine.
func (m *Manager) StartPurgeLoop(stop <-chan struct{}, interval time.Duration, snapshotPath string) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.PurgeExpired()
			if snapshotPath != "" {
				_ = m.SaveSnapshot(snapshotPath)
			}
		}
	}
}
