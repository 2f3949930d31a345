package api

import "errors"

type Kind string

const (
	// KindTransport covers network failures, timeouts and non-2xx replies without a server message.
	KindTransport Kind = "transport"
	// KindApplication is a structured error reported by the backend.
	KindApplication Kind = "application"
)

// Error is the single normalized failure returned by every operation.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fallbackMessage
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message extracts the user-facing text of any error, falling back to the generic message.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallbackMessage
}
