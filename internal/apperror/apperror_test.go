package apperror

import (
	"errors"
	"net/http"
	"testing"
)

func TestStatusCodeAndMessage(t *testing.T) {
	cases := []struct {
		kind    Kind
		status  int
		message string
	}{
		{KindValidationFailed, http.StatusBadRequest, "data validation failed"},
		{KindRateLimited, http.StatusTooManyRequests, "rate limited"},
		{KindUpdateLimit, http.StatusTooManyRequests, "update limit exceeded"},
		{KindInvalidToken, http.StatusUnauthorized, "invalid token"},
		{KindMissingToken, http.StatusBadRequest, "missing token"},
		{KindExpiredToken, http.StatusBadRequest, "expired token"},
		{KindAlreadyStarted, http.StatusConflict, "service already started"},
		{KindNotActive, http.StatusServiceUnavailable, "service not active"},
		{KindUnsupportedFormat, http.StatusBadRequest, "unsupported udp format"},
		{KindNoPortAvailable, http.StatusServiceUnavailable, "no port available"},
	}
	for _, c := range cases {
		err := New(c.kind)
		if got := err.StatusCode(); got != c.status {
			t.Errorf("kind %v: status = %d, want %d", c.kind, got, c.status)
		}
		if got := err.Message(); got != c.message {
			t.Errorf("kind %v: message = %q, want %q", c.kind, got, c.message)
		}
	}
}

func TestUnknownKindDefaultsToInternal(t *testing.T) {
	err := New(Kind(999))
	if err.StatusCode() != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", err.StatusCode())
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("socket closed")
	err := Wrap(KindShutdown, cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped error to unwrap to cause")
	}
	if err.Message() != "error shutting down service" {
		t.Fatalf("message = %q", err.Message())
	}
}

func TestIs(t *testing.T) {
	err := New(KindAlreadyExists)
	if !Is(err, KindAlreadyExists) {
		t.Fatalf("expected Is to match kind")
	}
	if Is(err, KindNotFound) {
		t.Fatalf("expected Is to not match different kind")
	}
	if Is(errors.New("plain"), KindAlreadyExists) {
		t.Fatalf("expected Is to be false for non-apperror")
	}
}

func TestPackageLevelHelpersFallBackForPlainErrors(t *testing.T) {
	plain := errors.New("boom")
	if StatusCode(plain) != http.StatusInternalServerError {
		t.Fatalf("StatusCode fallback = %d", StatusCode(plain))
	}
	if Message(plain) != "internal server error" {
		t.Fatalf("Message fallback = %q", Message(plain))
	}
}
