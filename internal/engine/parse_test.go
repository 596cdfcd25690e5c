package engine

import "testing"

func TestParseAnalysisPlain(t *testing.T) {
	response := `{
		"core_objective": "Build a scraper",
		"subtasks": [
			{"ref": "t1", "title": "Fetch", "description": "Fetch pages", "acceptance_criteria": ["pages stored"], "required_skills": ["go"], "depends_on": []},
			{"ref": "t2", "title": "Parse", "description": "Parse pages", "acceptance_criteria": ["fields extracted"], "depends_on": ["t1"]}
		],
		"required_specializations": ["coder", "tester"],
		"estimated_timeline_hours": 4,
		"potential_blockers": ["rate limits"],
		"success_criteria": ["data exported"]
	}`

	analysis, err := ParseAnalysis(response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.CoreObjective != "Build a scraper" {
		t.Errorf("core objective = %q", analysis.CoreObjective)
	}
	if len(analysis.Subtasks) != 2 {
		t.Fatalf("expected 2 subtasks, got %d", len(analysis.Subtasks))
	}
	if analysis.Subtasks[1].DependsOn[0] != "t1" {
		t.Errorf("t2 depends_on = %v", analysis.Subtasks[1].DependsOn)
	}
}

func TestParseAnalysisWrappedInProse(t *testing.T) {
	response := "Here is the decomposition:\n```json\n" +
		`{"core_objective": "x", "subtasks": [{"ref": "t1", "title": "A", "description": "d", "acceptance_criteria": ["c"]}]}` +
		"\n```\nLet me know if you need changes."

	analysis, err := ParseAnalysis(response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(analysis.Subtasks) != 1 {
		t.Errorf("expected 1 subtask, got %d", len(analysis.Subtasks))
	}
}

func TestParseAnalysisNoJSON(t *testing.T) {
	if _, err := ParseAnalysis("I could not decompose this goal."); err == nil {
		t.Error("expected error for missing JSON")
	}
}

func TestParseAnalysisEmptySubtasks(t *testing.T) {
	if _, err := ParseAnalysis(`{"core_objective": "x", "subtasks": []}`); err == nil {
		t.Error("expected error for empty subtasks")
	}
}

func TestParseReviewVerdicts(t *testing.T) {
	cases := []struct {
		response string
		want     Verdict
		wantErr  bool
	}{
		{`{"verdict": "approved", "feedback": ""}`, VerdictApproved, false},
		{`{"verdict": "revision_requested", "feedback": "handle empty input"}`, VerdictRevisionRequested, false},
		{`{"verdict": "rejected", "feedback": "wrong approach entirely"}`, VerdictRejected, false},
		{`{"verdict": "revision_requested", "feedback": ""}`, "", true},
		{`{"verdict": "maybe", "feedback": "x"}`, "", true},
		{`not json at all`, "", true},
	}

	for _, tc := range cases {
		result, err := ParseReview(tc.response)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseReview(%q): expected error", tc.response)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseReview(%q): %v", tc.response, err)
			continue
		}
		if result.Verdict != tc.want {
			t.Errorf("ParseReview(%q) = %s, want %s", tc.response, result.Verdict, tc.want)
		}
	}
}

func TestTokenTracker(t *testing.T) {
	tr := NewTokenTracker()
	tr.Add(1000, 500)
	tr.Add(2000, 1000)

	in, out := tr.Total()
	if in != 3000 || out != 1500 {
		t.Errorf("totals = %d/%d", in, out)
	}
	if tr.Calls() != 2 {
		t.Errorf("calls = %d", tr.Calls())
	}
	if tr.Cost() <= 0 {
		t.Error("expected positive cost")
	}

	tr.Reset()
	in, out = tr.Total()
	if in != 0 || out != 0 || tr.Calls() != 0 {
		t.Error("reset did not clear tracker")
	}
}

func TestEstimateCost(t *testing.T) {
	cost := estimateCost(1_000_000, 1_000_000)
	if cost < 17.9 || cost > 18.1 {
		t.Errorf("cost for 1M/1M tokens = %f, want ~18", cost)
	}
	if got := estimateCost(0, 0); got != 0 {
		t.Errorf("zero tokens cost = %f", got)
	}
}
