package classifier

import (
	"errors"
	"fmt"
)

// Kind identifies which part of the classification round trip failed.
type Kind string

// Failure kinds surfaced by the client.
const (
	KindUnreachable       Kind = "unreachable"
	KindServiceRejected   Kind = "service_rejected"
	KindMalformedResponse Kind = "malformed_response"
)

// Sentinel errors matching each Kind, usable with errors.Is.
var (
	ErrUnreachable       = errors.New("classifier unreachable")
	ErrServiceRejected   = errors.New("classifier rejected the request")
	ErrMalformedResponse = errors.New("classifier returned a malformed response")
)

// Messages shown to the user when the service gives nothing better.
const (
	genericRejectedMessage   = "Prediction failed"
	unreachableMessage       = "Failed to connect to server"
	malformedResponseMessage = "Received an invalid response from the classifier"
)

// Error is a transport level failure talking to the classification service.
type Error struct {
	Kind   Kind
	Status int
	Detail string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinel so callers can write errors.Is(err, ErrUnreachable).
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnreachable:
		return e.Kind == KindUnreachable
	case ErrServiceRejected:
		return e.Kind == KindServiceRejected
	case ErrMalformedResponse:
		return e.Kind == KindMalformedResponse
	}
	return false
}

// Malformed reports a response that does not honor the classification contract.
func Malformed(format string, args ...any) error {
	return &Error{Kind: KindMalformedResponse, Detail: fmt.Sprintf(format, args...)}
}

// KindOf extracts the failure kind from err, or "" when err is not a classifier error.
func KindOf(err error) Kind {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	return ""
}

// UserMessage renders err as the text a user sees after a failed submission.
func UserMessage(err error) string {
	var cerr *Error
	if !errors.As(err, &cerr) {
		return unreachableMessage
	}
	switch cerr.Kind {
	case KindServiceRejected:
		if cerr.Detail != "" {
			return cerr.Detail
		}
		return genericRejectedMessage
	case KindMalformedResponse:
		return malformedResponseMessage
	default:
		return unreachableMessage
	}
}
