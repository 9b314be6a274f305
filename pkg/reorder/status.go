package reorder

import "errors"

var (
	// ErrPendingFull is returned when an out-of-order item arrives while the
	// pending set is at capacity.
	ErrPendingFull = errors.New("reorder: pending set full")

	// ErrReadyFull is returned when an in-order item arrives while the ready
	// queue is not being drained fast enough.
	ErrReadyFull = errors.New("reorder: ready queue full")

	// ErrClosed is returned once the buffer has been closed.
	ErrClosed = errors.New("reorder: buffer closed")
)

// EnqueueStatus is the outcome of a push.
type EnqueueStatus uint8

const (
	// EnqueueStatusReleased means the item was in order and it, plus any
	// contiguous successors, moved to the ready queue.
	EnqueueStatusReleased EnqueueStatus = iota
	// EnqueueStatusBuffered means the item went into the pending set.
	EnqueueStatusBuffered
	// EnqueueStatusDuplicate means an item with the same sequence number is
	// already pending.
	EnqueueStatusDuplicate
	// EnqueueStatusStale means the sequence number is behind the threshold.
	EnqueueStatusStale
	// EnqueueStatusRejected means the item was refused.
	EnqueueStatusRejected
)

// Accepted reports whether the status counts as an acceptance. Only
// rejections do not, so that stale duplicates never trigger resends.
func (es EnqueueStatus) Accepted() bool {
	return es != EnqueueStatusRejected
}

func (es EnqueueStatus) String() string {
	switch es {
	case EnqueueStatusReleased:
		return "released"
	case EnqueueStatusBuffered:
		return "buffered"
	case EnqueueStatusDuplicate:
		return "duplicate"
	case EnqueueStatusStale:
		return "stale"
	case EnqueueStatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}
