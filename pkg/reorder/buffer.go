package reorder

import (
	"context"
	"sync"
)

// Stats is a snapshot of the buffer state and counters.
type Stats struct {
	Threshold uint64
	Pending   int
	Ready     int

	Released   uint64
	Buffered   uint64
	Duplicates uint64
	Stale      uint64
	Rejected   uint64
}

// Buffer is a bounded re-order buffer.
// All state is guarded by a single mutex; Take waits on a signal channel
// rather than a condition variable so it can also observe context
// cancellation and Close.
type Buffer[T any] struct {
	config Config

	mu        sync.Mutex
	threshold uint64
	pending   map[uint64]T
	ready     []T
	closed    bool
	stats     Stats

	// readyCh carries at most one pending wake-up.
	readyCh   chan struct{}
	closeCh   chan struct{}
	closeOnce sync.Once
}

// New returns a buffer with the given configuration.
// A zero PendingCapacity falls back to DefaultPendingCapacity.
func New[T any](config Config) *Buffer[T] {
	if config.PendingCapacity <= 0 {
		config.PendingCapacity = DefaultPendingCapacity
	}

	return &Buffer[T]{
		config:    config,
		threshold: config.InitialSequence,
		pending:   make(map[uint64]T, config.PendingCapacity),
		ready:     make([]T, 0, config.PendingCapacity),
		readyCh:   make(chan struct{}, 1),
		closeCh:   make(chan struct{}),
	}
}

// Enqueue adds item with sequence number seq and reports whether it was
// accepted. Stale duplicates are accepted and dropped.
func (b *Buffer[T]) Enqueue(item T, seq uint64) bool {
	status, _ := b.Push(item, seq)
	return status.Accepted()
}

// Push adds item with sequence number seq and returns the detailed outcome.
//
// It returns:
//   - [ErrReadyFull] if the item is in order but the ready queue is over its bound
//   - [ErrPendingFull] if the item is ahead of the threshold and the pending set is full
//   - [ErrClosed] if the buffer has been closed
func (b *Buffer[T]) Push(item T, seq uint64) (EnqueueStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return EnqueueStatusRejected, ErrClosed
	}

	switch {
	case seq < b.threshold:
		b.stats.Stale++
		return EnqueueStatusStale, nil

	case seq > b.threshold:
		if _, dup := b.pending[seq]; dup {
			b.stats.Duplicates++
			return EnqueueStatusDuplicate, nil
		}
		if len(b.pending) >= b.config.PendingCapacity {
			b.stats.Rejected++
			return EnqueueStatusRejected, ErrPendingFull
		}
		b.pending[seq] = item
		b.stats.Buffered++
		return EnqueueStatusBuffered, nil
	}

	if len(b.ready) > b.config.ReadyCapacity() {
		b.stats.Rejected++
		return EnqueueStatusRejected, ErrReadyFull
	}

	b.release(item)

	// Cascade through every buffered successor that is now contiguous
	for {
		next, ok := b.pending[b.threshold]
		if !ok {
			break
		}
		delete(b.pending, b.threshold)
		b.release(next)
	}

	b.signal()
	return EnqueueStatusReleased, nil
}

// release appends item to the ready queue and advances the threshold.
// The caller must hold b.mu.
func (b *Buffer[T]) release(item T) {
	b.ready = append(b.ready, item)
	b.threshold++
	b.stats.Released++
}

func (b *Buffer[T]) signal() {
	select {
	case b.readyCh <- struct{}{}:
	default:
	}
}

// Take blocks until at least one item is ready, then drains and returns
// the whole ready queue in sequence order.
//
// It returns [ErrClosed] once the buffer is closed and nothing is left to
// drain, or the context error if ctx is done first.
func (b *Buffer[T]) Take(ctx context.Context) ([]T, error) {
	for {
		b.mu.Lock()
		if len(b.ready) > 0 {
			out := b.ready
			b.ready = make([]T, 0, b.config.PendingCapacity)
			b.mu.Unlock()
			return out, nil
		}
		closed := b.closed
		b.mu.Unlock()

		if closed {
			return nil, ErrClosed
		}

		select {
		case <-b.readyCh:
		case <-b.closeCh:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Threshold returns the next sequence number the buffer expects.
func (b *Buffer[T]) Threshold() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.threshold
}

// Stats returns a snapshot of the buffer state.
func (b *Buffer[T]) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.stats
	s.Threshold = b.threshold
	s.Pending = len(b.pending)
	s.Ready = len(b.ready)
	return s
}

// Close discards pending items, refuses further pushes and wakes blocked
// takers. Items already in the ready queue can still be taken.
// It is safe to call Close multiple times.
func (b *Buffer[T]) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		clear(b.pending)
		b.mu.Unlock()

		close(b.closeCh)
	})
}

// IsClosed reports whether Close has been called.
func (b *Buffer[T]) IsClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
