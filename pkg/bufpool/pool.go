// Package bufpool implements the fixed-size, index-addressed frame buffer arena
// shared by multi-buffer output sinks.
//
// A Pool does no locking of its own: the owning sink guards it with the same
// mutex that guards its streaming state, so ownership changes and wakeups are
// decided under one lock.
package bufpool

import (
	"fmt"

	"github.com/user/vidout/pkg/ports"
)

// Owner tells who currently holds a buffer.
type Owner int

const (
	// OwnerFree means the buffer is on the free list.
	OwnerFree Owner = iota
	// OwnerProducer means the buffer was handed out by Get and is being filled.
	OwnerProducer
	// OwnerSink means the buffer was sent and is queued or in flight.
	OwnerSink
)

// String returns the string representation of the owner.
func (o Owner) String() string {
	switch o {
	case OwnerFree:
		return "free"
	case OwnerProducer:
		return "producer"
	case OwnerSink:
		return "sink"
	default:
		return "unknown"
	}
}

// Buffer is one pixel storage slot of the pool.
type Buffer struct {
	Index int
	Data  []byte
	Owner Owner
	Used  int    // valid bytes, as reported by the producer on submit
	Seq   uint64 // sequence number of the last handout
}

// Pool is an arena of equally sized buffers for one negotiated descriptor.
type Pool struct {
	desc  ports.FrameDescriptor
	epoch uint64
	bufs  []Buffer
	free  []int // FIFO, so buffers are reused round-robin
	seq   uint64
}

// New allocates count buffers sized for desc. The epoch tags every frame handed
// out from this pool so stale handles can be told apart after a reallocation.
func New(desc ports.FrameDescriptor, count int, epoch uint64) (*Pool, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if count < 1 {
		return nil, fmt.Errorf("bufpool: buffer count must be at least 1, got %d", count)
	}

	size := desc.FrameSize()
	p := &Pool{
		desc:  desc,
		epoch: epoch,
		bufs:  make([]Buffer, count),
		free:  make([]int, 0, count),
	}
	for i := range p.bufs {
		p.bufs[i] = Buffer{Index: i, Data: make([]byte, size)}
		p.free = append(p.free, i)
	}
	return p, nil
}

// Descriptor returns the descriptor the pool was allocated for.
func (p *Pool) Descriptor() ports.FrameDescriptor { return p.desc }

// Epoch returns the allocation tag of the pool.
func (p *Pool) Epoch() uint64 { return p.epoch }

// Len returns the number of buffers.
func (p *Pool) Len() int { return len(p.bufs) }

// FreeCount returns the number of buffers on the free list.
func (p *Pool) FreeCount() int { return len(p.free) }

// Count returns how many buffers the given owner holds.
func (p *Pool) Count(owner Owner) int {
	n := 0
	for i := range p.bufs {
		if p.bufs[i].Owner == owner {
			n++
		}
	}
	return n
}

// Acquire pops the oldest free buffer and hands it to the producer.
// It returns false when no buffer is free.
func (p *Pool) Acquire() (*ports.RawFrame, bool) {
	if len(p.free) == 0 {
		return nil, false
	}
	idx := p.free[0]
	p.free = p.free[1:]

	p.seq++
	b := &p.bufs[idx]
	b.Owner = OwnerProducer
	b.Used = 0
	b.Seq = p.seq

	return &ports.RawFrame{
		Index:      idx,
		Epoch:      p.epoch,
		Descriptor: p.desc,
		Pix:        b.Data,
		Len:        len(b.Data),
		Seq:        b.Seq,
	}, true
}

// Check verifies that frame is a live producer-side handle of this pool.
func (p *Pool) Check(frame *ports.RawFrame) error {
	if frame == nil {
		return fmt.Errorf("%w: nil frame", ports.ErrInvalidHandle)
	}
	if frame.Epoch != p.epoch {
		return fmt.Errorf("%w: frame from pool epoch %d, current epoch is %d", ports.ErrInvalidHandle, frame.Epoch, p.epoch)
	}
	if frame.Index < 0 || frame.Index >= len(p.bufs) {
		return fmt.Errorf("%w: buffer index %d out of range", ports.ErrInvalidHandle, frame.Index)
	}
	b := &p.bufs[frame.Index]
	if b.Owner != OwnerProducer || b.Seq != frame.Seq {
		return fmt.Errorf("%w: buffer %d is not held by the producer (owner %s)", ports.ErrInvalidHandle, frame.Index, b.Owner)
	}
	return nil
}

// Submit moves a producer-held buffer to the sink side and returns its index.
func (p *Pool) Submit(frame *ports.RawFrame) (int, error) {
	if err := p.Check(frame); err != nil {
		return -1, err
	}
	b := &p.bufs[frame.Index]
	b.Owner = OwnerSink
	b.Used = frame.Len
	if b.Used < 0 || b.Used > len(b.Data) {
		b.Used = len(b.Data)
	}
	return frame.Index, nil
}

// Reclaim returns a producer-held buffer straight to the free list without
// transmitting it. Used when a frame is sent while the stream is aborting.
func (p *Pool) Reclaim(frame *ports.RawFrame) error {
	if err := p.Check(frame); err != nil {
		return err
	}
	p.release(frame.Index)
	return nil
}

// Recycle returns a sink-held buffer to the free list once transmission completed.
func (p *Pool) Recycle(index int) error {
	if index < 0 || index >= len(p.bufs) {
		return fmt.Errorf("%w: buffer index %d out of range", ports.ErrInvalidHandle, index)
	}
	if p.bufs[index].Owner != OwnerSink {
		return fmt.Errorf("%w: buffer %d is not held by the sink (owner %s)", ports.ErrInvalidHandle, index, p.bufs[index].Owner)
	}
	p.release(index)
	return nil
}

// View returns a read-only frame over a sink-held buffer for transmission.
func (p *Pool) View(index int) (*ports.RawFrame, error) {
	if index < 0 || index >= len(p.bufs) || p.bufs[index].Owner != OwnerSink {
		return nil, fmt.Errorf("%w: buffer %d is not queued", ports.ErrInvalidHandle, index)
	}
	b := &p.bufs[index]
	return &ports.RawFrame{
		Index:      index,
		Epoch:      p.epoch,
		Descriptor: p.desc,
		Pix:        b.Data,
		Len:        b.Used,
		Seq:        b.Seq,
	}, nil
}

func (p *Pool) release(index int) {
	b := &p.bufs[index]
	b.Owner = OwnerFree
	b.Used = 0
	p.free = append(p.free, index)
}
