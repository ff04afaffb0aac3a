// Package devicesink provides a multi-buffer output sink that hands filled
// frames to a ports.Transport from its own device goroutine and recycles
// each buffer once the transport is done with it.
package devicesink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/user/vidout/pkg/bufpool"
	"github.com/user/vidout/pkg/ports"
	"github.com/user/vidout/pkg/steprange"
)

// DefaultBufferCount is the pool size used when no option overrides it.
const DefaultBufferCount = 4

// Limits restricts the formats the sink accepts. A zero range means "no limit".
type Limits struct {
	Width  steprange.StepRange[int]
	Height steprange.StepRange[int]
	FPS    steprange.StepRange[float64]
}

// Check returns an error wrapping ports.ErrUnsupportedFormat when desc is outside the limits.
func (l Limits) Check(desc ports.FrameDescriptor) error {
	if l.Width != (steprange.StepRange[int]{}) && !l.Width.IsValueValid(desc.Width) {
		return fmt.Errorf("%w: width %d not in %s", ports.ErrUnsupportedFormat, desc.Width, l.Width)
	}
	if l.Height != (steprange.StepRange[int]{}) && !l.Height.IsValueValid(desc.Height) {
		return fmt.Errorf("%w: height %d not in %s", ports.ErrUnsupportedFormat, desc.Height, l.Height)
	}
	if l.FPS != (steprange.StepRange[float64]{}) && !desc.FrameRate.IsZero() && !l.FPS.IsValueValid(desc.FrameRate.Float64()) {
		return fmt.Errorf("%w: frame rate %s not in %s", ports.ErrUnsupportedFormat, desc.FrameRate, l.FPS)
	}
	return nil
}

// Stats counts buffer traffic since the sink was created.
type Stats struct {
	Acquired    uint64 // frames handed out by Get
	Sent        uint64 // frames queued by Send
	Transmitted uint64 // frames completed by the transport and recycled
	Dropped     uint64 // frames discarded because the stream was aborting
	Waits       uint64 // Get calls that had to block
}

// Option configures a Sink.
type Option func(*Sink)

// WithBufferCount sets the pool size. Values below 1 are raised to 1.
func WithBufferCount(n int) Option {
	return func(s *Sink) {
		if n < 1 {
			n = 1
		}
		s.bufferCount = n
	}
}

// WithAcquireTimeout bounds how long Get waits for a free buffer.
// Zero waits until a buffer is free, the stream is aborted or the context ends.
func WithAcquireTimeout(d time.Duration) Option {
	return func(s *Sink) {
		s.acquireTimeout = d
	}
}

// WithLimits restricts accepted formats.
func WithLimits(l Limits) Option {
	return func(s *Sink) {
		s.limits = l
	}
}

// session is the per-StreamOn state of the device goroutine.
type session struct {
	id     string
	queue  chan int
	cancel context.CancelFunc
	done   chan struct{}
}

// Sink implements ports.OutputSink on top of a buffer pool and a Transport.
type Sink struct {
	transport      ports.Transport
	logger         ports.Logger
	bufferCount    int
	acquireTimeout time.Duration
	limits         Limits

	// ctrl serialises SetFormat, StreamOn and StreamOff so StreamOff can wait
	// for the device goroutine without holding mu.
	ctrl sync.Mutex

	mu        sync.Mutex
	cond      *sync.Cond // broadcast on recycle, abort, fault and context end
	state     ports.State
	desc      ports.FrameDescriptor
	hasFormat bool
	pool      *bufpool.Pool
	epoch     uint64
	waiters   int
	fault     error
	sess      *session
	last      string // id of the most recent session
	stats     Stats
}

// New creates a sink transmitting through transport.
func New(transport ports.Transport, logger ports.Logger, opts ...Option) *Sink {
	s := &Sink{
		transport:   transport,
		logger:      logger.WithComponent("devicesink"),
		bufferCount: DefaultBufferCount,
	}
	s.cond = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the backend name.
func (s *Sink) Name() string {
	return "device:" + s.transport.Name()
}

// SetFormat negotiates desc and reallocates the pool. The existing pool is
// left untouched when the call fails.
func (s *Sink) SetFormat(desc ports.FrameDescriptor) error {
	s.ctrl.Lock()
	defer s.ctrl.Unlock()

	s.mu.Lock()
	if s.state != ports.StateIdle {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot set format while %s", ports.ErrInvalidState, state)
	}
	stale := s.sess != nil
	s.mu.Unlock()

	// A device fault leaves its session behind.
	if stale {
		if err := s.shutdown(); err != nil {
			s.logger.Warn("Transport %s failed: %v", s.transport.Name(), err)
		}
	}

	if err := desc.Validate(); err != nil {
		return err
	}
	if err := s.limits.Check(desc); err != nil {
		return err
	}
	if err := s.transport.Supports(desc); err != nil {
		return fmt.Errorf("%s: %w", s.transport.Name(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pool, err := bufpool.New(desc, s.bufferCount, s.epoch+1)
	if err != nil {
		return err
	}
	s.epoch++
	s.pool = pool
	s.desc = desc
	s.hasFormat = true
	s.fault = nil

	s.logger.Debug("Format set to %s", desc)
	return nil
}

// StreamOn opens the transport and starts the device goroutine. The pool is
// reallocated if a previous StreamOff released it.
func (s *Sink) StreamOn() error {
	s.ctrl.Lock()
	defer s.ctrl.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fault != nil {
		return s.fault
	}
	if s.state != ports.StateIdle {
		return fmt.Errorf("%w: already %s", ports.ErrInvalidState, s.state)
	}
	if !s.hasFormat {
		return fmt.Errorf("%w: no format negotiated", ports.ErrInvalidState)
	}

	if s.pool == nil {
		pool, err := bufpool.New(s.desc, s.bufferCount, s.epoch+1)
		if err != nil {
			return err
		}
		s.epoch++
		s.pool = pool
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		id:     uuid.NewString(),
		queue:  make(chan int, s.pool.Len()),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if err := s.transport.Open(ctx, s.desc, sess.id); err != nil {
		cancel()
		return fmt.Errorf("%w: open %s: %v", ports.ErrDevice, s.transport.Name(), err)
	}

	s.sess = sess
	s.last = sess.id
	s.state = ports.StateStreaming
	go s.run(ctx, sess)

	s.logger.Info("Stream on: %s, %d buffers, session %s", s.desc, s.pool.Len(), sess.id)
	return nil
}

// Get acquires a free buffer, blocking until one is recycled, the stream is
// aborted, ctx ends or the acquire timeout elapses. It returns (nil, nil)
// when the stream was aborted.
func (s *Sink) Get(ctx context.Context) (*ports.RawFrame, error) {
	parent := ctx
	if s.acquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.acquireTimeout)
		defer cancel()
	}

	// Taking mu before broadcasting guarantees the wakeup cannot slip in
	// between the ctx.Err check below and cond.Wait.
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.waiters++
	defer func() {
		s.waiters--
		s.cond.Broadcast()
	}()

	waited := false
	for {
		if s.fault != nil {
			return nil, s.fault
		}
		switch s.state {
		case ports.StateIdle:
			return nil, ports.ErrNotStreaming
		case ports.StateAborting:
			return nil, nil
		}

		if frame, ok := s.pool.Acquire(); ok {
			s.stats.Acquired++
			return frame, nil
		}

		if err := ctx.Err(); err != nil {
			if parent.Err() != nil {
				return nil, parent.Err()
			}
			return nil, fmt.Errorf("%w after %s", ports.ErrAcquireTimeout, s.acquireTimeout)
		}

		if !waited {
			waited = true
			s.stats.Waits++
		}
		s.cond.Wait()
	}
}

// Send queues a filled frame for transmission. While aborting, the frame is
// dropped and its buffer returned to the free list.
func (s *Sink) Send(frame *ports.RawFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fault != nil {
		return s.fault
	}

	switch s.state {
	case ports.StateIdle:
		return ports.ErrNotStreaming
	case ports.StateAborting:
		if err := s.pool.Reclaim(frame); err != nil {
			return err
		}
		s.stats.Dropped++
		s.cond.Broadcast()
		return nil
	}

	idx, err := s.pool.Submit(frame)
	if err != nil {
		return err
	}

	// The queue holds one slot per buffer, so this never blocks.
	s.sess.queue <- idx
	s.stats.Sent++
	return nil
}

// Drain blocks until every sent frame was transmitted. It returns early when
// the stream stops or faults, or when ctx ends.
func (s *Sink) Drain(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.waiters++
	defer func() {
		s.waiters--
		s.cond.Broadcast()
	}()

	for {
		if s.fault != nil {
			return s.fault
		}
		if s.state != ports.StateStreaming || s.pool.Count(bufpool.OwnerSink) == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		s.cond.Wait()
	}
}

// AbortStream moves a streaming sink to aborting, stops the device goroutine
// from transmitting further frames and wakes every blocked Get.
func (s *Sink) AbortStream() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != ports.StateStreaming {
		return
	}
	s.state = ports.StateAborting
	if s.sess != nil {
		s.sess.cancel()
	}
	s.logger.Debug("Abort requested, waking %d waiters", s.waiters)
	s.cond.Broadcast()
}

// StreamOff stops streaming and releases the pool. Called while streaming, it
// aborts first. It returns only after every Get woken by the abort returned
// and the device goroutine exited.
func (s *Sink) StreamOff() error {
	s.ctrl.Lock()
	defer s.ctrl.Unlock()
	return s.shutdown()
}

// shutdown tears the session down. ctrl must be held.
func (s *Sink) shutdown() error {
	s.mu.Lock()
	if s.state == ports.StateStreaming {
		s.state = ports.StateAborting
	}
	sess := s.sess
	if sess != nil {
		sess.cancel()
	}
	s.cond.Broadcast()
	for s.waiters > 0 {
		s.cond.Wait()
	}
	s.state = ports.StateIdle
	s.sess = nil
	s.mu.Unlock()

	if sess == nil {
		return nil
	}

	<-sess.done
	err := s.transport.Close()

	s.mu.Lock()
	s.pool = nil
	transmitted := s.stats.Transmitted
	s.mu.Unlock()

	s.logger.Debug("Stream off after %d transmitted frames", transmitted)
	if err != nil {
		return fmt.Errorf("close %s: %w", s.transport.Name(), err)
	}
	return nil
}

// run is the device goroutine: it transmits queued buffers in order and
// recycles each one when the transport returns.
func (s *Sink) run(ctx context.Context, sess *session) {
	defer close(sess.done)

	for {
		select {
		case <-ctx.Done():
			return
		case idx := <-sess.queue:
			if ctx.Err() != nil {
				return
			}
			if err := s.transmit(ctx, idx); err != nil {
				s.fail(err)
				return
			}
		}
	}
}

func (s *Sink) transmit(ctx context.Context, idx int) error {
	s.mu.Lock()
	frame, err := s.pool.View(idx)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	err = s.transport.Transmit(ctx, frame)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil && ctx.Err() == nil {
		return err
	}
	if err := s.pool.Recycle(idx); err != nil {
		return err
	}
	if err == nil {
		s.stats.Transmitted++
	}
	s.cond.Broadcast()
	return nil
}

// fail records a transport fault and forces the sink idle. Blocked and
// future calls report the fault until SetFormat succeeds.
func (s *Sink) fail(err error) {
	s.logger.Error("Transport %s failed: %v", s.transport.Name(), err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if errors.Is(err, ports.ErrDevice) {
		s.fault = err
	} else {
		s.fault = fmt.Errorf("%w: %s: %v", ports.ErrDevice, s.transport.Name(), err)
	}
	s.state = ports.StateIdle
	s.hasFormat = false
	if s.sess != nil {
		s.sess.cancel()
	}
	s.cond.Broadcast()
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

// Session returns the id of the current streaming session, or "".
func (s *Sink) Session() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return ""
	}
	return s.sess.id
}

// LastSession returns the id of the current or most recent session.
func (s *Sink) LastSession() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Free returns the number of free buffers, or 0 when no pool is allocated.
func (s *Sink) Free() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool == nil {
		return 0
	}
	return s.pool.FreeCount()
}

// Stats returns a snapshot of the traffic counters.
func (s *Sink) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Ensure Sink implements ports.OutputSink and ports.Drainer
var (
	_ ports.OutputSink = (*Sink)(nil)
	_ ports.Drainer    = (*Sink)(nil)
)
