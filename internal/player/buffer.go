// Package player implements the client side of a streaming session: the
// media receiver, the reorder buffer bridging it to the playback scheduler,
// and the scheduler's presentation-time pacing.
package player

import (
	"container/heap"
	"sync"
)

// Frame is one decompressed media segment awaiting playback.
type Frame struct {
	ID      uint32
	PTSms   uint32
	Payload []byte
}

// JitterBuffer admits frames in any arrival order and yields them in
// ascending frame-id order. It is the only mutable state shared between the
// receiver goroutine (producer) and the scheduler goroutine (consumer).
type JitterBuffer struct {
	mu   sync.Mutex
	heap frameHeap
}

// NewJitterBuffer creates an empty buffer.
func NewJitterBuffer() *JitterBuffer {
	return &JitterBuffer{}
}

// Push inserts a frame. Duplicate ids are admitted; the scheduler discards
// stale ones on extraction.
func (b *JitterBuffer) Push(f Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	heap.Push(&b.heap, f)
}

// Pop extracts the frame with the minimum pending id. The second return is
// false when the buffer is empty.
func (b *JitterBuffer) Pop() (Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.heap.Len() == 0 {
		return Frame{}, false
	}
	return heap.Pop(&b.heap).(Frame), true
}

// Len returns the number of pending frames.
func (b *JitterBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.heap.Len()
}

// Reset discards all pending frames.
func (b *JitterBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.heap = nil
}

// ---------------------------------------------------------------------------
// frameHeap implements a min-heap sorted by frame id.
// ---------------------------------------------------------------------------

type frameHeap []Frame

func (h frameHeap) Len() int           { return len(h) }
func (h frameHeap) Less(i, j int) bool { return h[i].ID < h[j].ID }
func (h frameHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *frameHeap) Push(x interface{}) { *h = append(*h, x.(Frame)) }

func (h *frameHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = Frame{} // avoid holding payload memory
	*h = old[:n-1]
	return item
}
