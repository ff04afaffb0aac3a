package ports

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned when a call is made in a state that forbids it.
	ErrInvalidState = errors.New("vidout: invalid state")

	// ErrNotStreaming is returned by Get and Send while the sink is idle.
	ErrNotStreaming = fmt.Errorf("%w: not streaming", ErrInvalidState)

	// ErrUnsupportedFormat is returned when a backend cannot satisfy a descriptor.
	ErrUnsupportedFormat = errors.New("vidout: unsupported format")

	// ErrInvalidHandle is returned when a frame does not belong to the sink's current pool.
	ErrInvalidHandle = errors.New("vidout: invalid frame handle")

	// ErrDevice is returned after a transport failure forced the sink back to idle.
	// SetFormat and StreamOn must be reattempted from scratch.
	ErrDevice = errors.New("vidout: device error")

	// ErrAcquireTimeout is returned when Get waited longer than the backend allows.
	ErrAcquireTimeout = errors.New("vidout: timed out waiting for a free buffer")
)
