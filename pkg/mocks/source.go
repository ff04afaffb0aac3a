package mocks

import (
	"context"
	"sync"

	"github.com/user/vidout/pkg/ports"
)

// FrameSource is a mock implementation of ports.FrameSource. By default it
// writes the low byte of seq into every pixel byte.
type FrameSource struct {
	FillFunc func(ctx context.Context, frame *ports.RawFrame, seq uint64) error

	mu    sync.Mutex
	calls []uint64
}

func (m *FrameSource) Fill(ctx context.Context, frame *ports.RawFrame, seq uint64) error {
	m.mu.Lock()
	m.calls = append(m.calls, seq)
	m.mu.Unlock()

	if m.FillFunc != nil {
		return m.FillFunc(ctx, frame, seq)
	}
	for i := range frame.Pix {
		frame.Pix[i] = byte(seq)
	}
	return nil
}

// Calls returns the sequence numbers Fill was called with.
func (m *FrameSource) Calls() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uint64(nil), m.calls...)
}

var _ ports.FrameSource = (*FrameSource)(nil)
