package session

import (
	"errors"
	"fmt"
)

// Wire error codes reported to clients.
const (
	CodeSessionNotFound   = "session_not_found"
	CodeInvalidState      = "invalid_state"
	CodeEmptyQueue        = "empty_queue"
	CodeResourceExhausted = "resource_exhausted"
	CodeInternal          = "internal_error"
)

// Error pairs a stable wire code with a human-readable message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

// ErrorCode extracts the wire code from err, defaulting to internal_error.
func ErrorCode(err error) string {
	var sessErr *Error
	if errors.As(err, &sessErr) {
		return sessErr.Code
	}
	return CodeInternal
}

func notFound(id string) *Error {
	return &Error{Code: CodeSessionNotFound, Message: "no session with id " + id}
}

func invalidState(status Status, op string) *Error {
	return &Error{Code: CodeInvalidState, Message: "cannot " + op + " while session is " + status.String()}
}

func emptyQueue() *Error {
	return &Error{Code: CodeEmptyQueue, Message: "no files queued for processing"}
}

func resourceExhausted(limit int) *Error {
	return &Error{Code: CodeResourceExhausted, Message: fmt.Sprintf("session limit reached (max %d)", limit)}
}
