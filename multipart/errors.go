package multipart

import (
	"errors"
	"fmt"

	"github.com/bitrise-io/go-multipart-uploader/multipart/content"
)

var (
	// ErrAlreadyExecuting is returned by Start while the upload runs. It is harmless.
	ErrAlreadyExecuting = errors.New("upload is already executing")

	// ErrNotExecuting is returned by Pause when the upload doesn't run.
	ErrNotExecuting = errors.New("upload is not executing")

	// ErrTerminated is returned by Start on finished or cancelled uploads and by Cancel on any terminal state.
	ErrTerminated = errors.New("upload is terminated")

	// ErrSessionNotSet fails an upload started without a session identifier.
	ErrSessionNotSet = fmt.Errorf("session identifier not set: %w", content.ErrInvalidState)
)
