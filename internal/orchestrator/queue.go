package orchestrator

import "sync"

// pendingQueue holds tasks that are ready to run but could not be
// assigned because every eligible worker was at capacity. Tasks drain
// in FIFO order when a worker frees up.
type pendingQueue struct {
	mu     sync.Mutex
	ids    []string
	queued map[string]bool
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{queued: make(map[string]bool)}
}

// Enqueue adds a task ID unless it is already queued.
func (q *pendingQueue) Enqueue(taskID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.queued[taskID] {
		return false
	}
	q.queued[taskID] = true
	q.ids = append(q.ids, taskID)
	return true
}

// Peek returns the oldest queued task ID without removing it.
func (q *pendingQueue) Peek() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.ids) == 0 {
		return "", false
	}
	return q.ids[0], true
}

// Dequeue removes and returns the oldest queued task ID.
func (q *pendingQueue) Dequeue() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.ids) == 0 {
		return "", false
	}
	id := q.ids[0]
	q.ids = q.ids[1:]
	delete(q.queued, id)
	return id, true
}

// Remove drops a task from the queue, e.g. when it goes obsolete.
func (q *pendingQueue) Remove(taskID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.queued[taskID] {
		return
	}
	delete(q.queued, taskID)
	for i, id := range q.ids {
		if id == taskID {
			q.ids = append(q.ids[:i], q.ids[i+1:]...)
			break
		}
	}
}

// Len returns the number of queued tasks.
func (q *pendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ids)
}

// Contains reports whether the task is queued.
func (q *pendingQueue) Contains(taskID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.queued[taskID]
}
