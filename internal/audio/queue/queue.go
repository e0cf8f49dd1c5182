// Package queue implements the FIFO audio queue that decouples bursty TTS
// production from the isochronous 20ms track consumer.
package queue

import "sync"

// FIFO is an unbounded, concurrency-safe queue of PCM blobs, drained in
// exact-size chunks with a zero-padded (silent) tail on underflow. It never
// drops audio except via an explicit Clear.
type FIFO struct {
	mu      sync.Mutex
	chunks  [][]byte
	current []byte
	offset  int
}

// New returns an empty FIFO.
func New() *FIFO {
	return &FIFO{}
}

// Enqueue appends a PCM blob. A no-op on an empty blob.
func (q *FIFO) Enqueue(data []byte) {
	if len(data) == 0 {
		return
	}
	q.mu.Lock()
	q.chunks = append(q.chunks, data)
	q.mu.Unlock()
}

// Read returns exactly n bytes, draining the partially-consumed current
// blob first, then the head of the queue. If the queue empties before n
// bytes are produced, the remainder of the result is zero-padded silence.
// Never blocks.
func (q *FIFO) Read(n int) []byte {
	q.mu.Lock()
	defer q.mu.Unlock()

	result := make([]byte, n)
	written := 0
	for written < n {
		if q.offset >= len(q.current) {
			if len(q.chunks) == 0 {
				break
			}
			q.current = q.chunks[0]
			q.chunks = q.chunks[1:]
			q.offset = 0
		}
		remaining := len(q.current) - q.offset
		toCopy := n - written
		if remaining < toCopy {
			toCopy = remaining
		}
		copy(result[written:written+toCopy], q.current[q.offset:q.offset+toCopy])
		q.offset += toCopy
		written += toCopy
	}
	return result
}

// Clear discards the current cursor and all queued blobs.
func (q *FIFO) Clear() {
	q.mu.Lock()
	q.chunks = nil
	q.current = nil
	q.offset = 0
	q.mu.Unlock()
}

// Available reports the exact number of bytes currently readable.
func (q *FIFO) Available() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	total := len(q.current) - q.offset
	for _, c := range q.chunks {
		total += len(c)
	}
	return total
}
