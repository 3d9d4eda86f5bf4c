package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrNetworkUnavailable is returned by Handle when no cached entry exists
	// and the live fetch could not complete.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrReplayFailed marks a replay attempt that failed during a sweep.
	// It is only ever logged; the item stays queued.
	ErrReplayFailed = errors.New("replay failed")
)

// UnavailableError describes a Handle call that could not be served.
// It matches ErrNetworkUnavailable with errors.Is.
type UnavailableError struct {
	Policy Policy
	Key    string

	// Queued is true when the request was enrolled for background replay.
	Queued bool

	Err error
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	msg := fmt.Sprintf("%s: %s (%s)", ErrNetworkUnavailable, e.Key, e.Policy)
	if e.Queued {
		msg += ", queued for replay"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrNetworkUnavailable.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrNetworkUnavailable
}
