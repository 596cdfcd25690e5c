package orchestrator

import (
	"sync"
)

// BudgetStatus indicates where a team's spend sits against its ceiling.
type BudgetStatus int

const (
	// BudgetOK means spend is below the warning threshold.
	BudgetOK BudgetStatus = iota
	// BudgetWarning means spend crossed the warning threshold.
	BudgetWarning
	// BudgetExhausted means spend reached the ceiling.
	BudgetExhausted
)

func (s BudgetStatus) String() string {
	switch s {
	case BudgetOK:
		return "ok"
	case BudgetWarning:
		return "warning"
	case BudgetExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// DefaultWarningThreshold is the fraction of the ceiling at which a
// budget warning fires.
const DefaultWarningThreshold = 0.80

// BudgetHandler tracks a team's engine spend against its cost ceiling.
// A ceiling of zero means unlimited.
type BudgetHandler struct {
	mu        sync.Mutex
	ceiling   float64
	spent     float64
	threshold float64
	warned    bool
}

// NewBudgetHandler creates a handler with the given dollar ceiling.
func NewBudgetHandler(ceiling float64) *BudgetHandler {
	return &BudgetHandler{
		ceiling:   ceiling,
		threshold: DefaultWarningThreshold,
	}
}

// Add records engine spend and returns the resulting status. The
// warning status is reported once per crossing.
func (h *BudgetHandler) Add(cost float64) BudgetStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.spent += cost
	if h.ceiling <= 0 {
		return BudgetOK
	}

	if h.spent >= h.ceiling {
		return BudgetExhausted
	}
	if h.spent >= h.ceiling*h.threshold && !h.warned {
		h.warned = true
		return BudgetWarning
	}
	return BudgetOK
}

// Status returns the current budget status without recording spend.
func (h *BudgetHandler) Status() BudgetStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ceiling <= 0 {
		return BudgetOK
	}
	if h.spent >= h.ceiling {
		return BudgetExhausted
	}
	if h.spent >= h.ceiling*h.threshold {
		return BudgetWarning
	}
	return BudgetOK
}

// CanStartNew reports whether new work may be dispatched. In-flight
// tasks run to completion even after exhaustion; only new assignment
// is blocked.
func (h *BudgetHandler) CanStartNew() bool {
	return h.Status() != BudgetExhausted
}

// Usage returns spend, ceiling, and the spent fraction (0 when no
// ceiling is set).
func (h *BudgetHandler) Usage() (spent, ceiling, fraction float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ceiling > 0 {
		fraction = h.spent / h.ceiling
	}
	return h.spent, h.ceiling, fraction
}

// SetWarningThreshold overrides the warning threshold fraction.
func (h *BudgetHandler) SetWarningThreshold(threshold float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if threshold > 0 && threshold < 1 {
		h.threshold = threshold
	}
}
