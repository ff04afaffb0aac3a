// Package summarizer provides summary generation for streaming sessions.
package summarizer

import (
	"time"

	"github.com/user/vidout/pkg/adapters/devicesink"
	"github.com/user/vidout/pkg/engine"
)

// Summary contains all data collected during a streaming session.
type Summary struct {
	// Metadata
	GeneratedAt time.Time `yaml:"generated_at"`

	// Stream results
	Result ResultInfo `yaml:"result"`

	// Run settings
	Settings Settings `yaml:"settings"`

	// Buffer traffic, absent for sinks without a buffer pool
	Buffers *BufferInfo `yaml:"buffers,omitempty"`
}

// ResultInfo contains the outcome of the run.
type ResultInfo struct {
	Session    string        `yaml:"session,omitempty"`
	FramesSent uint64        `yaml:"frames_sent"`
	Aborted    bool          `yaml:"aborted"`
	Duration   time.Duration `yaml:"duration"`
	FPS        float64       `yaml:"fps"`
	Error      string        `yaml:"error,omitempty"`
}

// Settings contains the run configuration.
type Settings struct {
	Backend    string `yaml:"backend"`
	Sink       string `yaml:"sink"`
	Format     string `yaml:"format"`
	Source     string `yaml:"source"`
	FrameLimit int    `yaml:"frame_limit"`
	Pace       bool   `yaml:"pace"`
	Buffers    int    `yaml:"buffers"`
}

// BufferInfo contains device sink buffer statistics.
type BufferInfo struct {
	Acquired    uint64 `yaml:"acquired"`
	Sent        uint64 `yaml:"sent"`
	Transmitted uint64 `yaml:"transmitted"`
	Dropped     uint64 `yaml:"dropped"`
	Waits       uint64 `yaml:"waits"`
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithResult sets the run outcome. A non-nil err is recorded as text.
func (b *Builder) WithResult(res engine.RunResult, err error) *Builder {
	b.summary.Result = ResultInfo{
		FramesSent: res.FramesSent,
		Aborted:    res.Aborted,
		Duration:   res.Duration,
		FPS:        res.FPS(),
	}
	if err != nil {
		b.summary.Result.Error = err.Error()
	}
	if b.summary.Settings.Sink == "" {
		b.summary.Settings.Sink = res.Sink
	}
	if b.summary.Settings.Format == "" {
		b.summary.Settings.Format = res.Format
	}
	return b
}

// WithSession sets the session identifier.
func (b *Builder) WithSession(session string) *Builder {
	b.summary.Result.Session = session
	return b
}

// WithSettings sets run settings. Empty sink and format keep the values
// taken from the result.
func (b *Builder) WithSettings(settings Settings) *Builder {
	if settings.Sink == "" {
		settings.Sink = b.summary.Settings.Sink
	}
	if settings.Format == "" {
		settings.Format = b.summary.Settings.Format
	}
	b.summary.Settings = settings
	return b
}

// WithBufferStats sets device sink statistics.
func (b *Builder) WithBufferStats(stats devicesink.Stats) *Builder {
	b.summary.Buffers = &BufferInfo{
		Acquired:    stats.Acquired,
		Sent:        stats.Sent,
		Transmitted: stats.Transmitted,
		Dropped:     stats.Dropped,
		Waits:       stats.Waits,
	}
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
