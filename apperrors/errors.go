// Package apperrors defines the error kinds the analysis pipeline reports.
// Kinds are preserved end-to-end so the API layer can map each one to a
// distinct status code and user-facing message instead of a generic failure.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind identifies a failure category in the pipeline.
type Kind string

const (
	KindInvalidInput   Kind = "invalid_input"
	KindUnauthorized   Kind = "unauthorized"
	KindRateLimited    Kind = "rate_limited"
	KindQuotaExhausted Kind = "quota_exhausted"
	KindUpstream       Kind = "upstream_error"
	KindEmptyReply     Kind = "empty_reply"
	KindStorage        Kind = "storage_error"
	KindPersistence    Kind = "persistence_error"
	KindNotFound       Kind = "not_found"
	KindForbidden      Kind = "forbidden"
)

// Error carries a failure kind along with the underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is match two *Error values by kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// New wraps err with the given kind. A nil err produces an error that
// carries only the kind.
func New(kind Kind, err error) error {
	return &Error{Kind: kind, Err: err}
}

// Newf wraps a formatted message with the given kind.
func Newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind carried by err, or an empty kind if err does not
// carry one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Sentinel values for errors.Is checks.
var (
	ErrInvalidInput   = &Error{Kind: KindInvalidInput}
	ErrUnauthorized   = &Error{Kind: KindUnauthorized}
	ErrRateLimited    = &Error{Kind: KindRateLimited}
	ErrQuotaExhausted = &Error{Kind: KindQuotaExhausted}
	ErrUpstream       = &Error{Kind: KindUpstream}
	ErrEmptyReply     = &Error{Kind: KindEmptyReply}
	ErrStorage        = &Error{Kind: KindStorage}
	ErrPersistence    = &Error{Kind: KindPersistence}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrForbidden      = &Error{Kind: KindForbidden}
)
