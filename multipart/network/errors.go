package network

import (
	"fmt"
	"time"
)

// TimeoutError is returned when a fragment request doesn't finish within the client timeout.
type TimeoutError struct {
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("fragment request timed out after %s: %s", e.Timeout, e.Err)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// RemoteRejectedError is returned for any non-2xx response.
type RemoteRejectedError struct {
	StatusCode int
	Body       []byte
}

func (e *RemoteRejectedError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}
