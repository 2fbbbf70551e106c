// Package core is the Data Repository: the orchestrator that reconciles the
// DAO, the outbox, EKSS, and the event bus into the access-control state
// machine described for DRS objects. It never imports pkg/errors — it
// raises its own sealed Kind values, and the HTTP adapter
// (internal/httpapi) maps each Kind onto its own exception_id and status
// code, the same one-to-one mapping the teacher's auth middleware applies
// between internal failures and AppError values.
package core

import "fmt"

// Kind identifies one of the fixed set of ways a core operation can fail.
// It is a closed enumeration by convention (not by Go's type system) the
// same way the source's hexagonal ports raised a small fixed set of
// exception classes per port.
type Kind string

const (
	KindDrsObjectNotFound         Kind = "DrsObjectNotFound"
	KindRetryAccessLater          Kind = "RetryAccessLater"
	KindAPICommunicationError     Kind = "APICommunicationError"
	KindEnvelopeNotFound          Kind = "EnvelopeNotFound"
	KindSecretNotFound            Kind = "SecretNotFound"
	KindDuplicateEntry            Kind = "DuplicateEntry"
	KindStorageAliasNotConfigured Kind = "StorageAliasNotConfigured"
	KindCleanupError              Kind = "CleanupError"
	KindTokenMalformed            Kind = "TokenMalformed"
	KindTokenSignature            Kind = "TokenSignature"
	KindTokenExpired              Kind = "TokenExpired"
)

// Error is the single error type core operations return. Its Kind tells the
// caller which of the fixed recovery paths applies; Detail and RetryAfter
// carry the kind-specific payload named in spec §7.
type Error struct {
	Kind       Kind
	Detail     string
	RetryAfter int // seconds; populated only for KindRetryAccessLater
	cause      error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return string(e.Kind)
}

// Unwrap exposes the underlying cause, if any, for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports equality by Kind, letting callers write errors.Is(err, core.ErrDrsObjectNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newError(kind Kind, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, cause: cause}
}

// Sentinel values for use with errors.Is. Only Kind is compared.
var (
	ErrDrsObjectNotFound         = &Error{Kind: KindDrsObjectNotFound}
	ErrRetryAccessLater          = &Error{Kind: KindRetryAccessLater}
	ErrAPICommunicationError     = &Error{Kind: KindAPICommunicationError}
	ErrEnvelopeNotFound          = &Error{Kind: KindEnvelopeNotFound}
	ErrSecretNotFound            = &Error{Kind: KindSecretNotFound}
	ErrDuplicateEntry            = &Error{Kind: KindDuplicateEntry}
	ErrStorageAliasNotConfigured = &Error{Kind: KindStorageAliasNotConfigured}
	ErrCleanupError              = &Error{Kind: KindCleanupError}
	ErrTokenMalformed            = &Error{Kind: KindTokenMalformed}
	ErrTokenSignature            = &Error{Kind: KindTokenSignature}
	ErrTokenExpired              = &Error{Kind: KindTokenExpired}
)
