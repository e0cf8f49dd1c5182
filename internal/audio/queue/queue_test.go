package queue

import (
	"bytes"
	"testing"
)

func TestEnqueueReadRoundTrip(t *testing.T) {
	q := New()
	b := []byte{1, 2, 3, 4}
	q.Enqueue(b)
	got := q.Read(len(b))
	if !bytes.Equal(got, b) {
		t.Fatalf("got %v, want %v", got, b)
	}
}

func TestReadZeroPadsOnUnderflow(t *testing.T) {
	q := New()
	q.Enqueue([]byte{1, 2})
	got := q.Read(5)
	want := []byte{1, 2, 0, 0, 0}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestReadZeroOnEmptyQueue(t *testing.T) {
	q := New()
	got := q.Read(4)
	if !bytes.Equal(got, make([]byte, 4)) {
		t.Fatalf("expected all-zero, got %v", got)
	}
}

func TestReadZeroLengthReturnsEmpty(t *testing.T) {
	q := New()
	q.Enqueue([]byte{9, 9})
	got := q.Read(0)
	if len(got) != 0 {
		t.Fatalf("expected empty slice, got %v", got)
	}
}

func TestMultipleBlobConcatenation(t *testing.T) {
	q := New()
	q.Enqueue([]byte{1, 2})
	q.Enqueue([]byte{3, 4, 5})
	got := q.Read(5)
	want := []byte{1, 2, 3, 4, 5}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPartialReadsAdvanceCursor(t *testing.T) {
	q := New()
	q.Enqueue([]byte{1, 2, 3, 4})
	first := q.Read(2)
	second := q.Read(2)
	if !bytes.Equal(first, []byte{1, 2}) || !bytes.Equal(second, []byte{3, 4}) {
		t.Fatalf("partial reads did not advance cursor: %v %v", first, second)
	}
}

func TestClearDiscardsEverything(t *testing.T) {
	q := New()
	q.Enqueue([]byte{1, 2, 3, 4})
	q.Clear()
	if q.Available() != 0 {
		t.Fatalf("expected 0 available after clear, got %d", q.Available())
	}
	got := q.Read(4)
	if !bytes.Equal(got, make([]byte, 4)) {
		t.Fatalf("expected silence after clear, got %v", got)
	}
}

func TestAvailableTracksPartialAndQueued(t *testing.T) {
	q := New()
	q.Enqueue([]byte{1, 2, 3, 4})
	q.Enqueue([]byte{5, 6})
	if q.Available() != 6 {
		t.Fatalf("expected 6 available, got %d", q.Available())
	}
	q.Read(3)
	if q.Available() != 3 {
		t.Fatalf("expected 3 available after partial read, got %d", q.Available())
	}
}

func TestEnqueueEmptyIsNoOp(t *testing.T) {
	q := New()
	q.Enqueue(nil)
	q.Enqueue([]byte{})
	if q.Available() != 0 {
		t.Fatalf("expected 0 available, got %d", q.Available())
	}
}

func TestConcurrentProducersSingleConsumer(t *testing.T) {
	q := New()
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				q.Enqueue([]byte{1, 2})
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	// 8 * 100 * 2 bytes enqueued; draining in arbitrary chunk sizes must
	// never panic and must account for every byte plus any zero-pad tail.
	total := 0
	for i := 0; i < 200; i++ {
		total += len(q.Read(10))
	}
	if total != 2000 {
		t.Fatalf("expected to read 2000 bytes total, got %d", total)
	}
}
