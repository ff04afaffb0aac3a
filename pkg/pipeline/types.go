package pipeline

import (
	"time"

	"github.com/user/vidout/pkg/ports"
)

// =============================================================================
// Stream Stage Types
// =============================================================================

// StreamInput describes one streaming run against an output sink.
type StreamInput struct {
	Descriptor ports.FrameDescriptor // format negotiated with the sink
	MaxFrames  int                   // 0 streams until the context ends
	Pace       bool                  // wait one frame interval between frames
}

// StreamResult reports how a streaming run ended.
type StreamResult struct {
	FramesSent uint64
	Aborted    bool // the run was cut short by cancellation or an abort
	Duration   time.Duration
}

// FPS returns the achieved frame rate of the run.
func (r StreamResult) FPS() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.FramesSent) / r.Duration.Seconds()
}
