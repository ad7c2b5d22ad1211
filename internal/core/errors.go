package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeRoomNotFound    = "room_not_found"
	ErrCodeTaskNotFound    = "task_not_found"
	ErrCodeTaskExists      = "task_exists"
	ErrCodeVersionConflict = "version_conflict"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeQueueOverflow   = "queue_overflow"
	ErrCodeInternal        = "internal"
)

// KickShutdown is the kick reason used when the hub stops.
const KickShutdown = "server_shutdown"

var (
	ErrBadRequest   = errors.New("bad request")
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskExists   = errors.New("task already exists")
	ErrRoomClosed   = errors.New("room closed")
	ErrHubClosed    = errors.New("hub closed")
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

// errorFor maps a sentinel to the code sent to clients.
func errorFor(err error) *CoreError {
	switch {
	case errors.Is(err, ErrTaskNotFound):
		return coreError(ErrCodeTaskNotFound, err.Error())
	case errors.Is(err, ErrTaskExists):
		return coreError(ErrCodeTaskExists, err.Error())
	case errors.Is(err, ErrBadRequest):
		return coreError(ErrCodeBadRequest, err.Error())
	default:
		return coreError(ErrCodeBadRequest, err.Error())
	}
}
