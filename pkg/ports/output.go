package ports

import (
	"context"
)

// State is the streaming state of an OutputSink.
type State int

const (
	// StateIdle means the sink is not streaming. Buffers may or may not be allocated.
	StateIdle State = iota
	// StateStreaming means the sink accepts Get and Send.
	StateStreaming
	// StateAborting means a cancellation was requested. Pending calls return
	// without making further queue progress.
	StateAborting
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateAborting:
		return "aborting"
	default:
		return "unknown"
	}
}

// RawFrame is a transient handle over one buffer of a sink's pool.
// It does not own the backing memory: its validity ends when it is passed
// to Send or when the stream is aborted.
type RawFrame struct {
	// Index is the buffer index within the sink's pool.
	Index int

	// Epoch identifies the pool allocation this frame was handed out from.
	// A SetFormat or StreamOff/StreamOn cycle that reallocates the pool bumps it.
	Epoch uint64

	// Descriptor is the negotiated format the buffer was sized for.
	Descriptor FrameDescriptor

	// Pix is the writable pixel storage of the buffer.
	Pix []byte

	// Len is the number of valid bytes in Pix. Get sets it to the full frame size.
	Len int

	// Seq is assigned by the sink on Get and increases for every handed out frame.
	Seq uint64
}

// Bytes returns the valid portion of the pixel storage.
func (f *RawFrame) Bytes() []byte {
	if f.Len < 0 || f.Len > len(f.Pix) {
		return f.Pix
	}
	return f.Pix[:f.Len]
}

// OutputSink abstracts a video output device that hands out writable frame
// buffers and accepts them back for transmission.
//
// The zero state is StateIdle. Transitions:
//
//	Idle --SetFormat--> Idle
//	Idle --StreamOn--> Streaming
//	Streaming --AbortStream--> Aborting
//	Aborting --StreamOff--> Idle
//	Streaming --StreamOff--> Idle
type OutputSink interface {
	// SetFormat negotiates the format and (re)allocates the buffer pool.
	// Valid only while idle.
	SetFormat(desc FrameDescriptor) error

	// Get acquires a free buffer for writing, blocking while none is free.
	// A nil frame with a nil error means the stream was aborted while waiting.
	Get(ctx context.Context) (*RawFrame, error)

	// Send hands a filled frame back to the sink. The caller must not touch
	// the frame afterwards.
	Send(frame *RawFrame) error

	// StreamOn starts a streaming session.
	StreamOn() error

	// AbortStream requests cancellation and unblocks any pending Get.
	// It is safe to call from any goroutine and is idempotent.
	AbortStream()

	// StreamOff stops streaming and releases the pool. It is idempotent.
	StreamOff() error

	// State returns the current streaming state.
	State() State

	// Format returns the negotiated descriptor, if any.
	Format() (FrameDescriptor, bool)

	// Name returns a human-readable backend name.
	Name() string
}

// Drainer is implemented by sinks that queue sent frames. Drain waits until
// every sent frame was transmitted. StreamOff alone drops queued frames.
type Drainer interface {
	Drain(ctx context.Context) error
}

// Transport is the transmission path behind a multi-buffer sink.
// Transmit is called from the sink's device goroutine, one frame at a time.
type Transport interface {
	// Name returns the transport name (e.g., "file", "mjpeg").
	Name() string

	// Supports reports whether the transport can carry the given format.
	// It returns an error wrapping ErrUnsupportedFormat when it cannot.
	Supports(desc FrameDescriptor) error

	// Open prepares the transport for a streaming session.
	Open(ctx context.Context, desc FrameDescriptor, session string) error

	// Transmit sends one frame. The frame is only valid until Transmit returns.
	Transmit(ctx context.Context, frame *RawFrame) error

	// Close ends the session.
	Close() error
}

// FrameSource fills writable frames on the producer side.
type FrameSource interface {
	// Fill writes pixel data for the frame with the given sequence number.
	Fill(ctx context.Context, frame *RawFrame, seq uint64) error
}
