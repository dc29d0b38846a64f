package errdefs

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrappedErrorMatchesSentinelByKind(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindNetworkUnavailable, cause, "push dial failed")

	if !errors.Is(err, ErrNetworkUnavailable) {
		t.Fatal("wrapped error must match its kind sentinel")
	}
	if errors.Is(err, ErrServerRejected) {
		t.Fatal("error must not match a different kind")
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause must remain reachable via Unwrap")
	}
}

func TestWrapNilIsNil(t *testing.T) {
	if Wrap(KindServerRejected, nil, "whatever") != nil {
		t.Fatal("wrapping nil must remain nil")
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(New(KindAuthorizationDenied, "no role")); got != KindAuthorizationDenied {
		t.Fatalf("got %q", got)
	}
	if got := KindOf(errors.New("plain")); got != "" {
		t.Fatalf("plain error must carry no kind, got %q", got)
	}
	// kind survives fmt wrapping
	wrapped := fmt.Errorf("context: %w", New(KindServerRejected, "bad body"))
	if got := KindOf(wrapped); got != KindServerRejected {
		t.Fatalf("kind lost through fmt.Errorf: %q", got)
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(New(KindNetworkUnavailable, "timeout")) {
		t.Fatal("network failures are retryable")
	}
	for _, k := range []Kind{KindAuthenticationMissing, KindAuthorizationDenied, KindServerRejected} {
		if Retryable(New(k, "x")) {
			t.Fatalf("%s must not be retryable", k)
		}
	}
}
