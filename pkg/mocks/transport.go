package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/user/vidout/pkg/ports"
)

// ErrTransmitFailed is returned by Transport.Transmit on the FailAfter-th frame.
var ErrTransmitFailed = errors.New("mocks: transmit failed")

// TransmittedFrame is a copy of a frame seen by Transport.Transmit.
type TransmittedFrame struct {
	Index int
	Seq   uint64
	Data  []byte
}

// Transport is a scriptable ports.Transport.
type Transport struct {
	NameValue    string
	SupportsFunc func(desc ports.FrameDescriptor) error
	OpenErr      error
	CloseErr     error

	// Gate, when non-nil, makes every Transmit wait for one receive
	// (or for its context to end) before completing.
	Gate chan struct{}

	// FailAfter makes the n-th Transmit (1-based) fail. Zero never fails.
	FailAfter int

	mu       sync.Mutex
	frames   []TransmittedFrame
	attempts int
	opened   int
	closed   int
	sessions []string
}

// Name returns NameValue or "mock".
func (t *Transport) Name() string {
	if t.NameValue == "" {
		return "mock"
	}
	return t.NameValue
}

// Supports delegates to SupportsFunc when set.
func (t *Transport) Supports(desc ports.FrameDescriptor) error {
	if t.SupportsFunc != nil {
		return t.SupportsFunc(desc)
	}
	return nil
}

// Open records the session.
func (t *Transport) Open(ctx context.Context, desc ports.FrameDescriptor, session string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.OpenErr != nil {
		return t.OpenErr
	}
	t.opened++
	t.sessions = append(t.sessions, session)
	return nil
}

// Transmit copies the frame after the gate opens.
func (t *Transport) Transmit(ctx context.Context, frame *ports.RawFrame) error {
	if t.Gate != nil {
		select {
		case <-t.Gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.attempts++
	if t.FailAfter > 0 && t.attempts == t.FailAfter {
		return ErrTransmitFailed
	}

	data := make([]byte, len(frame.Bytes()))
	copy(data, frame.Bytes())
	t.frames = append(t.frames, TransmittedFrame{Index: frame.Index, Seq: frame.Seq, Data: data})
	return nil
}

// Close counts the call.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed++
	return t.CloseErr
}

// Frames returns the transmitted frames in order.
func (t *Transport) Frames() []TransmittedFrame {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TransmittedFrame, len(t.frames))
	copy(out, t.frames)
	return out
}

// Opened returns how many sessions were opened.
func (t *Transport) Opened() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opened
}

// Closed returns how many sessions were closed.
func (t *Transport) Closed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Sessions returns the session ids passed to Open.
func (t *Transport) Sessions() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.sessions...)
}

// Ensure Transport implements ports.Transport
var _ ports.Transport = (*Transport)(nil)
