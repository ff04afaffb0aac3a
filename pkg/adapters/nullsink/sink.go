// Package nullsink provides an output sink that discards every frame.
// It is used when no output device is attached (headless processing,
// benchmarking) and is the behavioural baseline for the other sinks.
package nullsink

import (
	"context"
	"fmt"
	"sync"

	"github.com/user/vidout/pkg/ports"
)

// Sink is a no-op implementation of ports.OutputSink.
// It owns a single scratch buffer that is always free: Get never blocks and
// never reports an abort, and Send drops the frame.
type Sink struct {
	mu        sync.Mutex
	state     ports.State
	desc      ports.FrameDescriptor
	hasFormat bool
	buf       []byte
	epoch     uint64
	seq       uint64 // sequence of the last handout
	sent      bool   // the last handout was sent
	discarded uint64
	logger    ports.Logger
}

// New creates a new NullSink.
func New(logger ports.Logger) *Sink {
	return &Sink{
		logger: logger.WithComponent("nullsink"),
	}
}

// Name returns the backend name.
func (s *Sink) Name() string {
	return "null"
}

// SetFormat stores the descriptor and clears the scratch buffer to a blank
// image of the requested size.
func (s *Sink) SetFormat(desc ports.FrameDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != ports.StateIdle {
		return fmt.Errorf("%w: cannot set format while %s", ports.ErrInvalidState, s.state)
	}
	if err := desc.Validate(); err != nil {
		return err
	}

	s.desc = desc
	s.hasFormat = true
	s.buf = make([]byte, desc.FrameSize())
	s.epoch++

	s.logger.Debug("Format set to %s", desc)
	return nil
}

// Get returns the scratch buffer tagged with the current descriptor.
func (s *Sink) Get(ctx context.Context) (*ports.RawFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == ports.StateIdle {
		return nil, ports.ErrNotStreaming
	}

	s.seq++
	s.sent = false
	return &ports.RawFrame{
		Index:      0,
		Epoch:      s.epoch,
		Descriptor: s.desc,
		Pix:        s.buf,
		Len:        len(s.buf),
		Seq:        s.seq,
	}, nil
}

// Send discards the frame. The scratch buffer is immediately free again.
// Only the most recent handout is accepted, and only once.
func (s *Sink) Send(frame *ports.RawFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == ports.StateIdle {
		return ports.ErrNotStreaming
	}
	if frame == nil || frame.Index != 0 || frame.Epoch != s.epoch {
		return fmt.Errorf("%w: frame does not belong to the current buffer", ports.ErrInvalidHandle)
	}
	if frame.Seq != s.seq || s.sent {
		return fmt.Errorf("%w: frame %d is stale or already sent", ports.ErrInvalidHandle, frame.Seq)
	}

	s.sent = true
	s.discarded++
	return nil
}

// StreamOn starts streaming. A format must have been set.
func (s *Sink) StreamOn() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != ports.StateIdle {
		return fmt.Errorf("%w: already %s", ports.ErrInvalidState, s.state)
	}
	if !s.hasFormat {
		return fmt.Errorf("%w: no format negotiated", ports.ErrInvalidState)
	}

	s.state = ports.StateStreaming
	s.logger.Debug("Stream on: %s", s.desc)
	return nil
}

// AbortStream marks the stream as aborting. There is never anything to unblock.
func (s *Sink) AbortStream() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == ports.StateStreaming {
		s.state = ports.StateAborting
	}
}

// StreamOff returns to idle. The scratch buffer and format are kept.
func (s *Sink) StreamOff() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != ports.StateIdle {
		s.logger.Debug("Stream off after %d discarded frames", s.discarded)
	}
	s.state = ports.StateIdle
	return nil
}

// State returns the current streaming state.
func (s *Sink) State() ports.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Format returns the negotiated descriptor.
func (s *Sink) Format() (ports.FrameDescriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desc, s.hasFormat
}

// Discarded returns the number of frames dropped by Send.
func (s *Sink) Discarded() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discarded
}

// Ensure Sink implements ports.OutputSink
var _ ports.OutputSink = (*Sink)(nil)
