package assign

import "sync"

// DefaultHistoryWindow is the number of recent outcomes considered
// when computing a worker's success rate.
const DefaultHistoryWindow = 20

// NeutralSuccessRate is the prior used for workers with no history.
const NeutralSuccessRate = 0.5

// History tracks recent task outcomes per worker over a sliding window.
type History struct {
	mu       sync.RWMutex
	window   int
	outcomes map[string][]bool
}

// NewHistory creates a History with the given window size.
func NewHistory(window int) *History {
	if window < 1 {
		window = DefaultHistoryWindow
	}
	return &History{
		window:   window,
		outcomes: make(map[string][]bool),
	}
}

// Record appends one task outcome for a worker, evicting the oldest
// outcome once the window is full.
func (h *History) Record(workerID string, success bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	outcomes := append(h.outcomes[workerID], success)
	if len(outcomes) > h.window {
		outcomes = outcomes[len(outcomes)-h.window:]
	}
	h.outcomes[workerID] = outcomes
}

// SuccessRate returns the worker's completed/attempted ratio over the
// window, or the neutral prior when the worker has no history.
func (h *History) SuccessRate(workerID string) float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	outcomes := h.outcomes[workerID]
	if len(outcomes) == 0 {
		return NeutralSuccessRate
	}
	succeeded := 0
	for _, ok := range outcomes {
		if ok {
			succeeded++
		}
	}
	return float64(succeeded) / float64(len(outcomes))
}

// Attempts returns the number of outcomes currently in the window.
func (h *History) Attempts(workerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.outcomes[workerID])
}
