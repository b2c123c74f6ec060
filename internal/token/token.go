// Package token manages ephemeral authentication tokens: minting,
// validating against an intent, per-user eviction, periodic purge, and
// disk persistence across restarts. It is the Go rendering of the
// repr-packed, snapshot-capable token manager variant (see DESIGN.md for
// why the chrono/Instant-based sibling implementation was not carried
// forward).
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

// Token is 16 cryptographically random bytes.
type Token [16]byte

// NewToken mints a fresh Token from a cryptographic RNG.
func NewToken() Token {
	var t Token
	if _, err := rand.Read(t[:]); err != nil {
		// crypto/rand.Read only fails if the OS entropy source is
		// unavailable, which is unrecoverable for a process that needs
		// secure tokens at all.
		panic(fmt.Sprintf("token: crypto/rand unavailable: %v", err))
	}
	return t
}

// Base64 renders the token as URL-safe, unpadded base64.
func (t Token) Base64() string {
	return base64.RawURLEncoding.EncodeToString(t[:])
}

// FromBase64 parses a token previously rendered by Base64.
func FromBase64(s string) (Token, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Token{}, fmt.Errorf("token: invalid base64: %w", err)
	}
	if len(b) != 16 {
		return Token{}, fmt.Errorf("token: decoded length %d, want 16", len(b))
	}
	var t Token
	copy(t[:], b)
	return t, nil
}

// Intent is the purpose a token was minted for; validation requires an
// exact intent match.
type Intent uint8

const (
	IntentAuth Intent = iota
	IntentRefreshAuth
	IntentEmailVerify
	IntentPasswordReset
)

// Lifespan returns how long a freshly minted token of this intent is
// valid.
func (i Intent) Lifespan() time.Duration {
	switch i {
	case IntentAuth:
		return 24 * time.Hour
	case IntentRefreshAuth:
		return 7 * 24 * time.Hour
	case IntentEmailVerify:
		return 20 * time.Minute
	case IntentPasswordReset:
		return 30 * time.Minute
	default:
		panic(fmt.Sprintf("token: unknown intent %d", i))
	}
}

// Entry is what the manager stores against a Token.
type Entry struct {
	UserID      int32
	ExpiryUnixS uint32
	Intent      Intent
}

func (e Entry) expired(now time.Time) bool {
	return uint32(now.Unix()) >= e.ExpiryUnixS
}
