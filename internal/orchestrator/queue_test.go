package orchestrator

import "testing"

func TestPendingQueueFIFO(t *testing.T) {
	q := newPendingQueue()

	q.Enqueue("a")
	q.Enqueue("b")
	q.Enqueue("c")

	for _, want := range []string{"a", "b", "c"} {
		id, ok := q.Dequeue()
		if !ok || id != want {
			t.Fatalf("dequeued %q (%v), want %q", id, ok, want)
		}
	}
	if _, ok := q.Dequeue(); ok {
		t.Error("dequeue on empty queue succeeded")
	}
}

func TestPendingQueueDedupes(t *testing.T) {
	q := newPendingQueue()

	if !q.Enqueue("a") {
		t.Error("first enqueue rejected")
	}
	if q.Enqueue("a") {
		t.Error("duplicate enqueue accepted")
	}
	if q.Len() != 1 {
		t.Errorf("len = %d, want 1", q.Len())
	}
}

// TestPendingQueuePeekKeepsOrder covers the dispatch drain: peeking a
// head that cannot assign yet must not rotate it behind later arrivals.
func TestPendingQueuePeekKeepsOrder(t *testing.T) {
	q := newPendingQueue()
	q.Enqueue("a")
	q.Enqueue("b")
	q.Enqueue("c")

	for i := 0; i < 3; i++ {
		id, ok := q.Peek()
		if !ok || id != "a" {
			t.Fatalf("peek %d returned %q (%v), want a", i, id, ok)
		}
	}
	if q.Len() != 3 {
		t.Errorf("len after peeks = %d, want 3", q.Len())
	}

	q.Remove("a")
	for _, want := range []string{"b", "c"} {
		id, ok := q.Dequeue()
		if !ok || id != want {
			t.Fatalf("dequeued %q (%v), want %q", id, ok, want)
		}
	}
}

func TestPendingQueueRemove(t *testing.T) {
	q := newPendingQueue()
	q.Enqueue("a")
	q.Enqueue("b")

	q.Remove("a")
	if q.Contains("a") {
		t.Error("removed task still queued")
	}

	id, ok := q.Dequeue()
	if !ok || id != "b" {
		t.Errorf("dequeued %q, want b", id)
	}
}
