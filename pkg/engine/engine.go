// Package engine drives an output sink: it negotiates the format, then loops
// Get, Fill, Send until the frame budget is spent or the run is cancelled.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/vidout/pkg/pipeline"
	"github.com/user/vidout/pkg/ports"
)

// Config contains all configuration for a streaming run.
type Config struct {
	Descriptor ports.FrameDescriptor
	MaxFrames  int  // 0 streams until ctx ends
	Pace       bool // honour the descriptor's frame rate
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Descriptor: ports.FrameDescriptor{
			Width:     640,
			Height:    480,
			Format:    ports.PixelYUYV,
			FrameRate: ports.FPS(30),
		},
		Pace: true,
	}
}

// RunResult summarises a streaming run.
type RunResult struct {
	FramesSent uint64        `yaml:"frames_sent"`
	Aborted    bool          `yaml:"aborted"`
	Duration   time.Duration `yaml:"duration"`
	Sink       string        `yaml:"sink"`
	Format     string        `yaml:"format"`
}

// FPS returns the average frame rate of the run.
func (r RunResult) FPS() float64 {
	return pipeline.StreamResult{FramesSent: r.FramesSent, Duration: r.Duration}.FPS()
}

// Engine feeds frames from a source into a sink.
type Engine struct {
	sink   ports.OutputSink
	source ports.FrameSource
	logger ports.Logger
}

// New creates a new Engine.
func New(sink ports.OutputSink, source ports.FrameSource, logger ports.Logger) *Engine {
	return &Engine{
		sink:   sink,
		source: source,
		logger: logger.WithComponent("engine"),
	}
}

// Run streams according to config. Cancelling ctx aborts the stream: a Get
// blocked on a full queue returns, and the sink is stopped before Run returns.
func (e *Engine) Run(ctx context.Context, config Config) (RunResult, error) {
	res, err := e.Execute(ctx, pipeline.StreamInput{
		Descriptor: config.Descriptor,
		MaxFrames:  config.MaxFrames,
		Pace:       config.Pace,
	})
	return RunResult{
		FramesSent: res.FramesSent,
		Aborted:    res.Aborted,
		Duration:   res.Duration,
		Sink:       e.sink.Name(),
		Format:     config.Descriptor.String(),
	}, err
}

// Execute implements pipeline.Stage.
func (e *Engine) Execute(ctx context.Context, input pipeline.StreamInput) (result pipeline.StreamResult, err error) {
	if err := e.sink.SetFormat(input.Descriptor); err != nil {
		return result, fmt.Errorf("set format: %w", err)
	}
	if err := e.sink.StreamOn(); err != nil {
		return result, fmt.Errorf("stream on: %w", err)
	}
	e.logger.Info("Streaming to %s (%s)", e.sink.Name(), input.Descriptor)

	start := time.Now()
	stop := context.AfterFunc(ctx, e.sink.AbortStream)
	defer func() {
		stop()
		if offErr := e.sink.StreamOff(); offErr != nil && err == nil {
			err = fmt.Errorf("stream off: %w", offErr)
		}
		result.Duration = time.Since(start)
		if result.Aborted {
			e.logger.Info("Stream aborted after %d frames", result.FramesSent)
		} else if err == nil {
			e.logger.Info("Stream finished: %d frames in %s", result.FramesSent, result.Duration.Round(time.Millisecond))
		}
	}()

	var tick <-chan time.Time
	if interval := input.Descriptor.FrameRate.Interval(); input.Pace && interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for seq := uint64(0); input.MaxFrames <= 0 || seq < uint64(input.MaxFrames); seq++ {
		// Sinks that never block would otherwise not notice the cancellation.
		if ctx.Err() != nil {
			result.Aborted = true
			return result, nil
		}

		frame, err := e.sink.Get(ctx)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				result.Aborted = true
				return result, nil
			}
			return result, fmt.Errorf("get frame %d: %w", seq, err)
		}
		if frame == nil {
			result.Aborted = true
			return result, nil
		}

		if err := e.source.Fill(ctx, frame, seq); err != nil {
			if ctx.Err() != nil {
				result.Aborted = true
				return result, nil
			}
			e.logger.Error("Frame source failed on frame %d: %v", seq, err)
			return result, fmt.Errorf("fill frame %d: %w", seq, err)
		}

		if err := e.sink.Send(frame); err != nil {
			return result, fmt.Errorf("send frame %d: %w", seq, err)
		}
		result.FramesSent++

		if tick != nil {
			select {
			case <-tick:
			case <-ctx.Done():
				result.Aborted = true
				return result, nil
			}
		}
	}

	if d, ok := e.sink.(ports.Drainer); ok {
		if err := d.Drain(ctx); err != nil {
			if ctx.Err() != nil {
				result.Aborted = true
				return result, nil
			}
			return result, fmt.Errorf("drain: %w", err)
		}
	}
	return result, nil
}

// Ensure Engine implements pipeline.Stage
var _ pipeline.Stage[pipeline.StreamInput, pipeline.StreamResult] = (*Engine)(nil)
