// Package reorder implements the bounded re-order buffer that turns an
// unordered, possibly duplicated stream of sequenced items into a strictly
// ordered one.
//
// # Threshold, Pending and Ready
//
// The buffer tracks a threshold: the next sequence number it expects. An
// item whose sequence number equals the threshold is released to the ready
// queue together with every buffered successor that is now contiguous (the
// release cascade). Items ahead of the threshold wait in the pending set.
// Items behind it are stale duplicates and are dropped.
//
//	threshold = 1
//	pending   = {3, 2}
//	push(1)  -> ready = [1 2 3], threshold = 4
//
// # Bounds
//
// The pending set holds at most PendingCapacity items and the ready queue
// refuses in-order insertions once it holds more than twice that. A refused
// push is terminal for that call: the buffer never retries.
//
// # Consuming
//
// Take blocks until the ready queue is non-empty and drains it in one go.
// Close wakes every blocked taker.
package reorder
