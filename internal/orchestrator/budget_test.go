package orchestrator

import "testing"

func TestBudgetNoCeiling(t *testing.T) {
	h := NewBudgetHandler(0)
	if status := h.Add(1000); status != BudgetOK {
		t.Errorf("status = %s, want ok with no ceiling", status)
	}
	if !h.CanStartNew() {
		t.Error("unlimited budget blocked new work")
	}
}

func TestBudgetWarningFiresOnce(t *testing.T) {
	h := NewBudgetHandler(10)

	if status := h.Add(5); status != BudgetOK {
		t.Errorf("status at 50%% = %s", status)
	}
	if status := h.Add(3.5); status != BudgetWarning {
		t.Errorf("status at 85%% = %s, want warning", status)
	}
	if status := h.Add(0.5); status != BudgetOK {
		t.Errorf("second warning crossing = %s, want ok (warn once)", status)
	}
}

func TestBudgetExhaustion(t *testing.T) {
	h := NewBudgetHandler(10)
	if status := h.Add(10); status != BudgetExhausted {
		t.Errorf("status at ceiling = %s, want exhausted", status)
	}
	if h.CanStartNew() {
		t.Error("exhausted budget allows new work")
	}

	spent, ceiling, fraction := h.Usage()
	if spent != 10 || ceiling != 10 || fraction != 1.0 {
		t.Errorf("usage = %f/%f (%f)", spent, ceiling, fraction)
	}
}

func TestBudgetCustomThreshold(t *testing.T) {
	h := NewBudgetHandler(100)
	h.SetWarningThreshold(0.5)

	if status := h.Add(49); status != BudgetOK {
		t.Errorf("status below threshold = %s", status)
	}
	if status := h.Add(2); status != BudgetWarning {
		t.Errorf("status past 50%% = %s, want warning", status)
	}
}
