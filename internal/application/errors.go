package application

import (
	"errors"
	"fmt"
)

var (
	ErrStore           = errors.New("store failure")
	ErrInvalidToken    = errors.New("invalid verification token")
	ErrNoDestination   = errors.New("destination not configured")
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrRequesterUnreachable means the requester has to open a private
	// conversation with the bot before it can deliver to them.
	ErrRequesterUnreachable = errors.New("requester unreachable")
)

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

// ForwardError is a failed relay into a destination.
type ForwardError struct {
	Destination string
	Err         error
}

func (e *ForwardError) Error() string {
	return fmt.Sprintf("forward to %s: %v", e.Destination, e.Err)
}

func (e *ForwardError) Unwrap() error { return e.Err }
