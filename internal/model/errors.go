package model

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when caller supplied data is rejected before any network call.
	ErrNotValid = errors.New("not valid")
)

// TransportError is returned when a call to the image service fails: network errors,
// timeouts and non 2xx responses.
type TransportError struct {
	// Op is the logical operation that failed (e.g. "create task").
	Op string
	// StatusCode is the HTTP status code, 0 when no response was received.
	StatusCode int
	// Detail is the server supplied detail message, if any.
	Detail string
	// Timeout is true when the request exceeded the client timeout.
	Timeout bool
	// Err is the underlying error, if any.
	Err error
}

func (e *TransportError) Error() string {
	msg := e.Detail
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "unknown error"
	}

	switch {
	case e.Timeout:
		return fmt.Sprintf("%s: timeout: %s", e.Op, msg)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, msg)
	default:
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// NotFound returns true if the server answered with a 404.
func (e *TransportError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

// PollingError is returned when a polling tick probe fails. The task tracker treats it
// as terminal for the tracked task.
type PollingError struct {
	TaskID string
	Err    error
}

func (e *PollingError) Error() string {
	return fmt.Sprintf("polling task %s: %s", e.TaskID, e.Err)
}

func (e *PollingError) Unwrap() error { return e.Err }
