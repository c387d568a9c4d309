package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeRoomNotFound = "room_not_found"
	ErrCodeBadRequest   = "bad_request"
)

var (
	// ErrSendFailure wraps a transport error for a single recipient.
	ErrSendFailure = errors.New("send failure")
	// ErrUnknownSession is returned for messages from a connection that is no longer registered.
	ErrUnknownSession = errors.New("unknown session")
	// ErrRateLimited is returned by the transport when a connection exceeds its inbound quota.
	ErrRateLimited = errors.New("rate limited")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
