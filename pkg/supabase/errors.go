package supabase

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

var (
	ErrNoSession       = errors.New("supabase: no session")
	ErrInvalidProvider = errors.New("supabase: unsupported oauth provider")
	ErrMissingVerifier = errors.New("supabase: no pending oauth verifier")
)

// APIError is a non-2xx answer from GoTrue.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: %d: %s", e.StatusCode, e.Message)
}

// IsConnectivityError reports whether err means the auth service could not be
// reached at all, as opposed to the service answering with a failure.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
