package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/Sternrassler/offline-cache-gateway/pkg/fetch"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestFetchError_Error(t *testing.T) {
	err := &FetchError{
		Method:     "POST",
		URL:        "https://example.com/api/items",
		ErrorClass: ErrorClassNetwork,
		Err:        errors.New("connection refused"),
	}

	msg := err.Error()
	for _, want := range []string{"POST", "https://example.com/api/items", "network", "connection refused"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestFetchError_Unwrap(t *testing.T) {
	inner := context.DeadlineExceeded
	err := &FetchError{ErrorClass: ErrorClassTimeout, Err: inner}

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("errors.Is should see the wrapped error")
	}

	wrapped := fmt.Errorf("live fetch: %w", err)
	var fe *FetchError
	if !errors.As(wrapped, &fe) {
		t.Fatal("errors.As should find FetchError")
	}
	if fe.ErrorClass != ErrorClassTimeout {
		t.Errorf("ErrorClass = %v, want timeout", fe.ErrorClass)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{name: "canceled", err: context.Canceled, want: ErrorClassCanceled},
		{name: "wrapped canceled", err: fmt.Errorf("do: %w", context.Canceled), want: ErrorClassCanceled},
		{name: "deadline", err: context.DeadlineExceeded, want: ErrorClassTimeout},
		{name: "net timeout", err: &net.OpError{Op: "dial", Err: timeoutError{}}, want: ErrorClassTimeout},
		{name: "refused", err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}, want: ErrorClassNetwork},
		{name: "dns", err: &net.DNSError{Err: "no such host", Name: "example.invalid"}, want: ErrorClassNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyError(tt.err); got != tt.want {
				t.Errorf("classifyError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCountsAsOffline(t *testing.T) {
	tests := []struct {
		class ErrorClass
		want  bool
	}{
		{class: ErrorClassNetwork, want: true},
		{class: ErrorClassTimeout, want: true},
		{class: ErrorClassCanceled, want: false},
		{class: ErrorClassBody, want: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			if got := countsAsOffline(tt.class); got != tt.want {
				t.Errorf("countsAsOffline(%v) = %v, want %v", tt.class, got, tt.want)
			}
		})
	}
}

func TestFetchError_IsUnavailable(t *testing.T) {
	tests := []struct {
		class ErrorClass
		err   error
		want  bool
	}{
		{class: ErrorClassNetwork, err: errors.New("connection refused"), want: true},
		{class: ErrorClassTimeout, err: context.DeadlineExceeded, want: true},
		{class: ErrorClassCanceled, err: context.Canceled, want: false},
		{class: ErrorClassBody, err: ErrBodyTooLarge, want: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			err := fmt.Errorf("live fetch: %w", &FetchError{Method: "POST", ErrorClass: tt.class, Err: tt.err})
			if got := errors.Is(err, fetch.ErrUnavailable); got != tt.want {
				t.Errorf("errors.Is(err, fetch.ErrUnavailable) = %v, want %v", got, tt.want)
			}
			if !errors.Is(err, tt.err) {
				t.Error("wrapped cause should still be visible")
			}
		})
	}
}
