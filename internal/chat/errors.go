package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParticipant rejects thread resolution with an empty peer or a
	// user talking to themselves.
	ErrInvalidParticipant = errors.New("invalid participant")

	// ErrEmptyMessage rejects sends whose text is blank after trimming.
	ErrEmptyMessage = errors.New("empty message")

	// ErrBackendUnavailable wraps storage failures so callers can offer a
	// user-visible retry.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrFeedClosed is returned by feed operations after Close, and by Open on
	// a feed that is already past Idle.
	ErrFeedClosed = errors.New("feed closed")
)

// backendErr tags err as a backend availability failure while keeping the cause.
func backendErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrBackendUnavailable, err)
}
