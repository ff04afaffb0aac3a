package nullsink

import (
	"context"
	"errors"
	"testing"

	"github.com/user/vidout/pkg/adapters/logger"
	"github.com/user/vidout/pkg/ports"
)

var testDesc = ports.FrameDescriptor{Width: 320, Height: 240, Format: ports.PixelYUYV, FrameRate: ports.FPS(30)}

func newStreaming(t *testing.T) *Sink {
	t.Helper()
	s := New(logger.NewNoop())
	if err := s.SetFormat(testDesc); err != nil {
		t.Fatalf("SetFormat failed: %v", err)
	}
	if err := s.StreamOn(); err != nil {
		t.Fatalf("StreamOn failed: %v", err)
	}
	return s
}

func TestSink_GetReturnsRequestedFormat(t *testing.T) {
	s := newStreaming(t)

	f, err := s.Get(context.Background())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !f.Descriptor.Equal(testDesc) {
		t.Errorf("expected %s, got %s", testDesc, f.Descriptor)
	}
	if len(f.Pix) != 320*240*2 {
		t.Errorf("expected %d bytes, got %d", 320*240*2, len(f.Pix))
	}
	for i, b := range f.Pix {
		if b != 0 {
			t.Fatalf("expected blank buffer, byte %d is %d", i, b)
		}
	}
}

func TestSink_NeverBlocks(t *testing.T) {
	s := newStreaming(t)

	// Far more Gets than any pool would hold, with no Send in between.
	var last uint64
	for i := 0; i < 100; i++ {
		f, err := s.Get(context.Background())
		if err != nil || f == nil {
			t.Fatalf("Get %d: frame=%v err=%v", i, f, err)
		}
		if f.Seq <= last {
			t.Errorf("expected increasing sequence, got %d after %d", f.Seq, last)
		}
		last = f.Seq
	}
}

func TestSink_SendDiscards(t *testing.T) {
	s := newStreaming(t)

	for i := 0; i < 5; i++ {
		f, _ := s.Get(context.Background())
		if err := s.Send(f); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}
	if s.Discarded() != 5 {
		t.Errorf("expected 5 discarded frames, got %d", s.Discarded())
	}
}

func TestSink_StateTransitions(t *testing.T) {
	s := New(logger.NewNoop())

	if s.Name() != "null" {
		t.Errorf("expected name null, got %s", s.Name())
	}
	if _, err := s.Get(context.Background()); !errors.Is(err, ports.ErrNotStreaming) {
		t.Errorf("expected ErrNotStreaming, got %v", err)
	}
	if err := s.StreamOn(); !errors.Is(err, ports.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState without format, got %v", err)
	}
	if err := s.SetFormat(ports.FrameDescriptor{}); !errors.Is(err, ports.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}

	if err := s.SetFormat(testDesc); err != nil {
		t.Fatalf("SetFormat failed: %v", err)
	}
	if err := s.StreamOn(); err != nil {
		t.Fatalf("StreamOn failed: %v", err)
	}
	if err := s.SetFormat(testDesc); !errors.Is(err, ports.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState while streaming, got %v", err)
	}

	s.AbortStream()
	if s.State() != ports.StateAborting {
		t.Errorf("expected aborting, got %s", s.State())
	}
	// The scratch buffer is always free, so Get still succeeds.
	if f, err := s.Get(context.Background()); err != nil || f == nil {
		t.Errorf("expected a frame while aborting, got frame=%v err=%v", f, err)
	}

	if err := s.StreamOff(); err != nil {
		t.Fatalf("StreamOff failed: %v", err)
	}
	if err := s.StreamOff(); err != nil {
		t.Errorf("expected StreamOff to be idempotent, got %v", err)
	}
	if s.State() != ports.StateIdle {
		t.Errorf("expected idle, got %s", s.State())
	}
	if err := s.Send(&ports.RawFrame{}); !errors.Is(err, ports.ErrNotStreaming) {
		t.Errorf("expected ErrNotStreaming, got %v", err)
	}
}

func TestSink_StaleFrameAfterReformat(t *testing.T) {
	s := newStreaming(t)
	f, _ := s.Get(context.Background())

	s.StreamOff()
	other := ports.FrameDescriptor{Width: 16, Height: 16, Format: ports.PixelGrey}
	if err := s.SetFormat(other); err != nil {
		t.Fatalf("SetFormat failed: %v", err)
	}
	s.StreamOn()

	if err := s.Send(f); !errors.Is(err, ports.ErrInvalidHandle) {
		t.Errorf("expected ErrInvalidHandle, got %v", err)
	}
	if err := s.Send(nil); !errors.Is(err, ports.ErrInvalidHandle) {
		t.Errorf("expected ErrInvalidHandle for nil, got %v", err)
	}

	g, _ := s.Get(context.Background())
	if !g.Descriptor.Equal(other) || len(g.Pix) != 256 {
		t.Errorf("expected %s with 256 bytes, got %s with %d", other, g.Descriptor, len(g.Pix))
	}
}

func TestSink_SetFormatRejects(t *testing.T) {
	tests := []struct {
		name string
		desc ports.FrameDescriptor
	}{
		{"empty", ports.FrameDescriptor{}},
		{"odd yuyv width", ports.FrameDescriptor{Width: 5, Height: 4, Format: ports.PixelYUYV}},
		{"frame size wraps", ports.FrameDescriptor{Width: 1 << 32, Height: 1 << 30, Format: ports.PixelRGBA}},
		{"frame size overflows", ports.FrameDescriptor{Width: 1 << 32, Height: 1 << 31, Format: ports.PixelGrey}},
		{"over the cap", ports.FrameDescriptor{Width: 1 << 16, Height: 1 << 16, Format: ports.PixelGrey}},
	}

	s := New(logger.NewNoop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.SetFormat(tt.desc); !errors.Is(err, ports.ErrUnsupportedFormat) {
				t.Errorf("expected ErrUnsupportedFormat, got %v", err)
			}
			if _, ok := s.Format(); ok {
				t.Error("expected no format after a rejected SetFormat")
			}
		})
	}
}

func TestSink_RejectsRepeatedAndStaleHandles(t *testing.T) {
	s := newStreaming(t)

	f, _ := s.Get(context.Background())
	if err := s.Send(f); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if err := s.Send(f); !errors.Is(err, ports.ErrInvalidHandle) {
		t.Errorf("expected ErrInvalidHandle on second send, got %v", err)
	}

	older, _ := s.Get(context.Background())
	newer, _ := s.Get(context.Background())
	if err := s.Send(older); !errors.Is(err, ports.ErrInvalidHandle) {
		t.Errorf("expected ErrInvalidHandle for a superseded handout, got %v", err)
	}
	if err := s.Send(newer); err != nil {
		t.Errorf("expected the latest handout to be accepted, got %v", err)
	}
	if s.Discarded() != 2 {
		t.Errorf("expected 2 discarded frames, got %d", s.Discarded())
	}
}
