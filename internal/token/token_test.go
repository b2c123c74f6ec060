package token

import (
	"path/filepath"
	"testing"
	"time"

	"intelliserver/internal/apperror"
)

func TestTokenBase64RoundTrip(t *testing.T) {
	tok := NewToken()
	again, err := FromBase64(tok.Base64())
	if err != nil {
		t.Fatalf("FromBase64: %v", err)
	}
	if again != tok {
		t.Fatalf("round trip mismatch")
	}
}

func TestCreateValidate(t *testing.T) {
	m := New()
	tok := m.Create(42, IntentAuth)

	uid, err := m.Validate(tok, IntentAuth)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if uid != 42 {
		t.Fatalf("uid = %d, want 42", uid)
	}
}

func TestValidateWrongIntent(t *testing.T) {
	m := New()
	tok := m.Create(42, IntentAuth)

	_, err := m.Validate(tok, IntentRefreshAuth)
	if !apperror.Is(err, apperror.KindInvalidToken) {
		t.Fatalf("expected InvalidToken, got %v", err)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := New()
	m.SetClock(func() time.Time { return now })
	tok := m.Create(42, IntentAuth)

	now = now.Add(24*time.Hour + time.Second)
	m.SetClock(func() time.Time { return now })

	_, err := m.Validate(tok, IntentAuth)
	if !apperror.Is(err, apperror.KindExpiredToken) {
		t.Fatalf("expected ExpiredToken, got %v", err)
	}
	if m.Count() != 0 {
		t.Fatalf("expected expired token removed from map, count = %d", m.Count())
	}
}

func TestPerUserCapEviction(t *testing.T) {
	m := New()
	var first Token
	var rest []Token
	for i := 0; i < 11; i++ {
		tok := m.Create(7, IntentAuth)
		if i == 0 {
			first = tok
		} else {
			rest = append(rest, tok)
		}
	}
	if m.UserTokenCount(7) != MaxTokensPerUser {
		t.Fatalf("expected %d tokens held, got %d", MaxTokensPerUser, m.UserTokenCount(7))
	}
	if _, err := m.Validate(first, IntentAuth); !apperror.Is(err, apperror.KindInvalidToken) {
		t.Fatalf("expected evicted first token to be InvalidToken, got %v", err)
	}
	for i, tok := range rest {
		if _, err := m.Validate(tok, IntentAuth); err != nil {
			t.Fatalf("token %d should still validate: %v", i, err)
		}
	}
}

func TestRemoveRequiresMatchingIntent(t *testing.T) {
	m := New()
	tok := m.Create(1, IntentEmailVerify)

	if m.Remove(tok, IntentAuth) {
		t.Fatalf("expected Remove to fail on intent mismatch")
	}
	if !m.Remove(tok, IntentEmailVerify) {
		t.Fatalf("expected Remove to succeed on matching intent")
	}
	if _, err := m.Validate(tok, IntentEmailVerify); !apperror.Is(err, apperror.KindInvalidToken) {
		t.Fatalf("expected removed token to be invalid, got %v", err)
	}
}

func TestPurgeExpiredRemovesOnlyExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := New()
	m.SetClock(func() time.Time { return now })

	expiring := m.Create(1, IntentPasswordReset) // 30 min lifespan
	surviving := m.Create(2, IntentAuth)          // 1 day lifespan

	now = now.Add(31 * time.Minute)
	m.SetClock(func() time.Time { return now })

	removed := m.PurgeExpired()
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := m.Validate(expiring, IntentPasswordReset); err == nil {
		t.Fatalf("expected expiring token gone")
	}
	if _, err := m.Validate(surviving, IntentAuth); err != nil {
		t.Fatalf("expected surviving token still valid: %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	m := New()
	m.Create(1, IntentAuth)
	m.Create(1, IntentRefreshAuth)
	m.Create(2, IntentEmailVerify)

	path := filepath.Join(t.TempDir(), "tokens.bin")
	if err := m.SaveSnapshot(path); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	restored := New()
	if err := restored.LoadSnapshot(path); err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if restored.Count() != m.Count() {
		t.Fatalf("restored count = %d, want %d", restored.Count(), m.Count())
	}
	if restored.UserTokenCount(1) != 2 {
		t.Fatalf("restored user 1 token count = %d, want 2", restored.UserTokenCount(1))
	}
}

func TestLoadSnapshotOrEmptyToleratesMissingFile(t *testing.T) {
	m := New()
	m.LoadSnapshotOrEmpty(filepath.Join(t.TempDir(), "does-not-exist.bin"))
	if m.Count() != 0 {
		t.Fatalf("expected empty state for missing snapshot file")
	}
}
