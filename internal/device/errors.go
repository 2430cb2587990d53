package device

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// Kind classifies a device-facing failure. Health and reporting logic
// branches on these values, so they are part of the public contract.
type Kind string

const (
	KindTimeout    Kind = "timeout"
	KindConnection Kind = "connection"
	KindHTTP       Kind = "http"
	KindValidation Kind = "validation"
	KindUnknown    Kind = "unknown"
)

// Error is a classified device failure. It serializes to the same shape
// the HTTP layer reports to operators.
type Error struct {
	Kind       Kind   `json:"type"`
	Message    string `json:"message"`
	StatusCode int    `json:"status,omitempty"`
	Body       string `json:"data,omitempty"`
	URL        string `json:"url,omitempty"`
	TimeoutMs  int64  `json:"timeout,omitempty"`
	Code       string `json:"code,omitempty"`

	cause error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("device %s error: %d %s", e.Kind, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("device %s error: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.cause }

// IsKind reports whether err is a device Error of kind k.
func IsKind(err error, k Kind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == k
}

// AsError returns err as a classified *Error, classifying it if needed.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	return Classify(err)
}

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Classify maps an arbitrary transport error onto the taxonomy.
// Errors that are already classified are returned unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: "request timeout", cause: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Kind: KindTimeout, Message: "request timeout", cause: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{Kind: KindConnection, Message: "cannot connect to device", Code: "ENOTFOUND", cause: err}
	}
	for _, errno := range []struct {
		no   syscall.Errno
		code string
	}{
		{syscall.ECONNREFUSED, "ECONNREFUSED"},
		{syscall.ECONNRESET, "ECONNRESET"},
		{syscall.EHOSTUNREACH, "EHOSTUNREACH"},
		{syscall.ENETUNREACH, "ENETUNREACH"},
	} {
		if errors.Is(err, errno.no) {
			return &Error{Kind: KindConnection, Message: "cannot connect to device", Code: errno.code, cause: err}
		}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return &Error{Kind: KindConnection, Message: "cannot connect to device", cause: err}
	}

	return &Error{Kind: KindUnknown, Message: err.Error(), cause: err}
}
