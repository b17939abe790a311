package content

import "errors"

var (
	// ErrNotReady is returned when the content lacks a file or a destination, or the file
	// can't be accessed.
	ErrNotReady = errors.New("content is not ready")

	// ErrOutOfRange is returned when a fragment beyond the total fragment count is requested.
	ErrOutOfRange = errors.New("fragment index out of range")

	// ErrInvalidState is returned when the content is mutated after its first fragment was handed out.
	ErrInvalidState = errors.New("invalid content state")
)
