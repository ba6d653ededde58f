package downloader

import (
	"errors"
	"fmt"

	"tubegate/internal/credentials"
)

// Kind classifies a request failure.
type Kind int

const (
	// KindBadRequest is a missing or invalid client parameter. It is always
	// reported before any upstream call.
	KindBadRequest Kind = iota + 1
	// KindNotFound means the resolved metadata lacks the requested format.
	KindNotFound
	// KindUpstream is a failure of the extraction library or the remuxer.
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream_error"
	default:
		return "unknown"
	}
}

// Error is a typed request failure. Message is safe to show to clients; Debug,
// when set, carries credential diagnostics without any cookie values.
type Error struct {
	Kind    Kind
	Message string
	Debug   *credentials.Diagnostics
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or KindUpstream for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}

func badRequest(msg string, err error) *Error {
	return &Error{Kind: KindBadRequest, Message: msg, Err: err}
}

func notFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func upstream(msg string, diag credentials.Diagnostics, err error) *Error {
	return &Error{Kind: KindUpstream, Message: msg, Debug: &diag, Err: err}
}
