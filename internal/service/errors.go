package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Error kinds surfaced to callers. Services wrap them with detail; the
// handler layer maps each kind to one HTTP status.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrForbidden           = errors.New("forbidden")
	ErrUpstreamUnavailable = errors.New("answer service unavailable")
	ErrStorage             = errors.New("storage failure")
)

// UpstreamError reports that the employee message was stored but no bot
// reply could be produced for it.
type UpstreamError struct {
	ChannelID string
	Sequence  int64
	Err       error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("message %d in channel %s stored, bot reply failed: %v", e.Sequence, e.ChannelID, e.Err)
}

func (e *UpstreamError) Unwrap() []error {
	return []error{ErrUpstreamUnavailable, e.Err}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// lockErr keeps a cancelled or expired request distinguishable from a storage failure
func lockErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return storageErr("lock channel", err)
}

// lookupErr turns a missing row into ErrNotFound and anything else into ErrStorage
func lookupErr(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return storageErr("load "+what, err)
}

// parseChannelID treats a malformed id the same as an unknown one
func parseChannelID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: channel", ErrNotFound)
	}
	return parsed, nil
}
