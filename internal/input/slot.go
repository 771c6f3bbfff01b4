package input

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Frame is an immutable view of one published frame.
type Frame struct {
	Data       []byte
	Timestamp  time.Time
	Generation uint64
}

// FrameSlot is a single-writer, multi-reader latest-frame mailbox. Each
// Publish copies into a fresh buffer, so a Frame handed to a reader never
// changes underneath it.
type FrameSlot struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	current  Frame
	closed   bool
}

// NewFrameSlot allocates a slot accepting frames up to capacity bytes.
func NewFrameSlot(capacity int) (*FrameSlot, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("frame slot capacity must be positive, got %d", capacity)
	}
	s := &FrameSlot{capacity: capacity}
	s.cond = sync.NewCond(&s.mu)
	return s, nil
}

// Capacity returns the largest frame the slot accepts.
func (s *FrameSlot) Capacity() int {
	return s.capacity
}

// Publish stores data as the latest frame, bumps the generation and wakes
// all waiting readers. It returns the new generation.
func (s *FrameSlot) Publish(data []byte, ts time.Time) (uint64, error) {
	if len(data) > s.capacity {
		return 0, fmt.Errorf("%w: %d > %d bytes", ErrFrameTooLarge, len(data), s.capacity)
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrSlotClosed
	}
	s.current = Frame{
		Data:       buf,
		Timestamp:  ts,
		Generation: s.current.Generation + 1,
	}
	s.cond.Broadcast()
	return s.current.Generation, nil
}

// Snapshot returns the latest frame. Generation is zero before the first
// Publish.
func (s *FrameSlot) Snapshot() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Generation returns the number of frames published so far.
func (s *FrameSlot) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Generation
}

// WaitForNext blocks until a frame newer than last is available, the slot
// is closed, or ctx is done. A newer frame is returned even if the slot
// has closed meanwhile.
func (s *FrameSlot) WaitForNext(ctx context.Context, last uint64) (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.cond.Broadcast()
	})
	defer stop()

	for s.current.Generation <= last {
		if s.closed {
			return Frame{}, ErrSlotClosed
		}
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		s.cond.Wait()
	}
	return s.current, nil
}

// Close wakes every waiter with ErrSlotClosed. Further publishes fail.
func (s *FrameSlot) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cond.Broadcast()
}
