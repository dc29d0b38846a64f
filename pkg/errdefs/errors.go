// Package errdefs defines the error taxonomy shared by the transport
// adapters, the feed, and the moderation queue. Transport failures are
// mapped into one of these kinds at the adapter boundary; nothing past
// that boundary inspects raw network errors.
package errdefs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for upstream consumers.
type Kind string

const (
	// KindNetworkUnavailable marks transient connectivity failures;
	// callers may retry.
	KindNetworkUnavailable Kind = "network_unavailable"
	// KindAuthenticationMissing marks requests rejected for a missing or
	// expired credential; fatal to the operation, surfaced to trigger
	// re-login.
	KindAuthenticationMissing Kind = "authentication_missing"
	// KindAuthorizationDenied marks moderation actions attempted without
	// the required role. Distinct from generic failure on purpose.
	KindAuthorizationDenied Kind = "authorization_denied"
	// KindServerRejected marks validation-level rejections whose message
	// is shown to the user.
	KindServerRejected Kind = "server_rejected"
	// KindReconciliationConflict is internal only: the reconciler always
	// has a deterministic resolution, so these are logged, never surfaced.
	KindReconciliationConflict Kind = "reconciliation_conflict"
)

// Sentinel errors for errors.Is checks.
var (
	ErrNetworkUnavailable     = &taxonomyError{kind: KindNetworkUnavailable, msg: "network unavailable"}
	ErrAuthenticationMissing  = &taxonomyError{kind: KindAuthenticationMissing, msg: "authentication missing"}
	ErrAuthorizationDenied    = &taxonomyError{kind: KindAuthorizationDenied, msg: "authorization denied"}
	ErrServerRejected         = &taxonomyError{kind: KindServerRejected, msg: "server rejected request"}
	ErrReconciliationConflict = &taxonomyError{kind: KindReconciliationConflict, msg: "reconciliation conflict"}
)

type taxonomyError struct {
	kind  Kind
	msg   string
	cause error
}

func (e *taxonomyError) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *taxonomyError) Unwrap() error { return e.cause }

// Is matches any taxonomy error of the same kind, so wrapped instances
// compare equal to their sentinel.
func (e *taxonomyError) Is(target error) bool {
	var te *taxonomyError
	if errors.As(target, &te) {
		return te.kind == e.kind
	}
	return false
}

// New builds a taxonomy error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) error {
	return &taxonomyError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a taxonomy kind, preserving the original error
// for errors.Unwrap chains.
func Wrap(kind Kind, cause error, msg string) error {
	if cause == nil {
		return nil
	}
	return &taxonomyError{kind: kind, msg: msg, cause: cause}
}

// KindOf extracts the taxonomy kind from err, or "" when err carries none.
func KindOf(err error) Kind {
	var te *taxonomyError
	if errors.As(err, &te) {
		return te.kind
	}
	return ""
}

// Retryable reports whether the failure is transient.
func Retryable(err error) bool {
	return KindOf(err) == KindNetworkUnavailable
}
