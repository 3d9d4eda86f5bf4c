package client

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/Sternrassler/offline-cache-gateway/pkg/fetch"
)

// ErrBodyTooLarge is returned when a response body exceeds Config.MaxBodyBytes.
var ErrBodyTooLarge = errors.New("response body too large")

// ErrorClass represents a classification of transport failures.
type ErrorClass string

const (
	// ErrorClassNetwork represents unreachable hosts, refused or reset connections.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassTimeout represents deadline and timeout errors.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassCanceled represents a fetch abandoned by its caller.
	ErrorClassCanceled ErrorClass = "canceled"

	// ErrorClassBody represents failures while reading the response body.
	ErrorClassBody ErrorClass = "body"
)

// FetchError is a transport failure with its classification.
type FetchError struct {
	Method     string
	URL        string
	ErrorClass ErrorClass
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s %s: %s error: %v", e.Method, e.URL, e.ErrorClass, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports fetch.ErrUnavailable for network and timeout failures. Body and
// cancellation failures happen after the origin may have seen the request.
func (e *FetchError) Is(target error) bool {
	return target == fetch.ErrUnavailable && countsAsOffline(e.ErrorClass)
}

// classifyError categorizes a transport error for observability.
func classifyError(err error) ErrorClass {
	if errors.Is(err, context.Canceled) {
		return ErrorClassCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorClassTimeout
	}
	return ErrorClassNetwork
}

// countsAsOffline reports whether a failure says anything about connectivity.
// A caller abandoning its own fetch does not.
func countsAsOffline(class ErrorClass) bool {
	switch class {
	case ErrorClassNetwork, ErrorClassTimeout:
		return true
	default:
		return false
	}
}
