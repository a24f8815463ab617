package client

import (
	"errors"
	"fmt"
)

var (
	ErrRegistrationFailed = errors.New("room registration failed")
	ErrConnectionClosed   = errors.New("room connection closed unexpectedly")
	ErrMalformedPayload   = errors.New("malformed inbound payload")
	ErrAlreadyJoined      = errors.New("session already joined")
	ErrInvalidBaseURL     = errors.New("base url must be an absolute http(s) url")
)

// RegistrationError describes a failed create-room call. It matches
// ErrRegistrationFailed with errors.Is.
type RegistrationError struct {
	RoomID     string
	StatusCode int
	Err        error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register room %s: %v", e.RoomID, e.Err)
}

func (e *RegistrationError) Unwrap() []error {
	return []error{ErrRegistrationFailed, e.Err}
}
