package token

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
)

// SaveSnapshot writes every live token to path in the packed little-endian
// layout from the external interface spec: a Header of two uint64 counts,
// then one fixed-width record per token, then one variable-width record
// per user's token queue.
func (m *Manager) SaveSnapshot(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("token: create snapshot: %w", err)
	}
	w := bufio.NewWriter(f)

	type tokenRecord struct {
		tok   Token
		entry Entry
	}
	var records []tokenRecord
	for _, ts := range m.shards {
		ts.mu.RLock()
		for t, e := range ts.tokens {
			records = append(records, tokenRecord{t, e})
		}
		ts.mu.RUnlock()
	}

	type userRecord struct {
		userID int32
		queue  []Token
	}
	var users []userRecord
	for _, us := range m.userShards {
		us.mu.Lock()
		for uid, q := range us.queue {
			if len(q) == 0 {
				continue
			}
			cp := make([]Token, len(q))
			copy(cp, q)
			users = append(users, userRecord{uid, cp})
		}
		us.mu.Unlock()
	}

	var header [16]byte
	binary.LittleEndian.PutUint64(header[0:8], uint64(len(records)))
	binary.LittleEndian.PutUint64(header[8:16], uint64(len(users)))
	if _, err := w.Write(header[:]); err != nil {
		f.Close()
		return err
	}

	var rec [25]byte
	for _, r := range records {
		copy(rec[0:16], r.tok[:])
		binary.LittleEndian.PutUint32(rec[16:20], uint32(r.entry.UserID))
		binary.LittleEndian.PutUint32(rec[20:24], r.entry.ExpiryUnixS)
		rec[24] = byte(r.entry.Intent)
		if _, err := w.Write(rec[:]); err != nil {
			f.Close()
			return err
		}
	}

	for _, u := range users {
		var prefix [6]byte
		binary.LittleEndian.PutUint32(prefix[0:4], uint32(u.userID))
		binary.LittleEndian.PutUint16(prefix[4:6], uint16(len(u.queue)))
		if _, err := w.Write(prefix[:]); err != nil {
			f.Close()
			return err
		}
		for _, t := range u.queue {
			if _, err := w.Write(t[:]); err != nil {
				f.Close()
				return err
			}
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadSnapshot replaces the manager's state with the contents of path.
// The file format is exactly SaveSnapshot's; any structural inconsistency
// (short read, truncated record) is reported as an error so the caller can
// decide to start from empty state.
func (m *Manager) LoadSnapshot(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var header [16]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return fmt.Errorf("token: read snapshot header: %w", err)
	}
	tokensCount := binary.LittleEndian.Uint64(header[0:8])
	userTokensCount := binary.LittleEndian.Uint64(header[8:16])

	newShards := [shardCount]*tokenShard{}
	for i := range newShards {
		newShards[i] = &tokenShard{tokens: make(map[Token]Entry)}
	}
	newUserShards := [shardCount]*userShard{}
	for i := range newUserShards {
		newUserShards[i] = &userShard{queue: make(map[int32][]Token)}
	}

	var rec [25]byte
	for i := uint64(0); i < tokensCount; i++ {
		if _, err := io.ReadFull(r, rec[:]); err != nil {
			return fmt.Errorf("token: read token record %d: %w", i, err)
		}
		var t Token
		copy(t[:], rec[0:16])
		entry := Entry{
			UserID:      int32(binary.LittleEndian.Uint32(rec[16:20])),
			ExpiryUnixS: binary.LittleEndian.Uint32(rec[20:24]),
			Intent:      Intent(rec[24]),
		}
		shard := newShards[t[0]%shardCount]
		shard.tokens[t] = entry
	}

	var prefix [6]byte
	for i := uint64(0); i < userTokensCount; i++ {
		if _, err := io.ReadFull(r, prefix[:]); err != nil {
			return fmt.Errorf("token: read user record %d: %w", i, err)
		}
		userID := int32(binary.LittleEndian.Uint32(prefix[0:4]))
		queueLen := binary.LittleEndian.Uint16(prefix[4:6])
		queue := make([]Token, queueLen)
		for j := uint16(0); j < queueLen; j++ {
			var t Token
			if _, err := io.ReadFull(r, t[:]); err != nil {
				return fmt.Errorf("token: read user %d token %d: %w", userID, j, err)
			}
			queue[j] = t
		}
		shard := newUserShards[uint32(userID)%shardCount]
		shard.queue[userID] = queue
	}

	m.shards = newShards
	m.userShards = newUserShards
	return nil
}

// LoadSnapshotOrEmpty attempts LoadSnapshot, logging and leaving the
// manager in its current (empty, for a fresh Manager) state on any
// failure, per the external interface's "on malformed or missing file,
// start with empty state" rule.
func (m *Manager) LoadSnapshotOrEmpty(path string) {
	if err := m.LoadSnapshot(path); err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("token snapshot unreadable, starting empty")
		}
	}
}
