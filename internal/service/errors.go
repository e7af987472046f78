package service

import (
	"errors"
	"fmt"
)

// ErrCompletionUnavailable is matched by every completion failure: network
// errors, timeouts, non-success responses and unusable response bodies.
var ErrCompletionUnavailable = errors.New("completion unavailable")

// CompletionError describes a failed completion call.
type CompletionError struct {
	Op         string // "chat", "chat stream" or "embeddings"
	StatusCode int    // HTTP status, 0 when no response was received
	Err        error
}

func (e *CompletionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", ErrCompletionUnavailable, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrCompletionUnavailable, e.Op, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// Is reports every CompletionError as ErrCompletionUnavailable.
func (e *CompletionError) Is(target error) bool {
	return target == ErrCompletionUnavailable
}

func unavailable(op string, status int, err error) error {
	return &CompletionError{Op: op, StatusCode: status, Err: err}
}
