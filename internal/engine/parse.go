package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseAnalysis parses the engine's JSON goal analysis. The model
// occasionally wraps JSON in prose or code fences, so the first
// balanced object in the response is extracted before decoding.
func ParseAnalysis(response string) (*GoalAnalysis, error) {
	jsonStr, err := extractObject(response)
	if err != nil {
		return nil, err
	}

	var analysis GoalAnalysis
	if err := json.Unmarshal([]byte(jsonStr), &analysis); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	if len(analysis.Subtasks) == 0 {
		return nil, fmt.Errorf("analysis contains no subtasks")
	}
	return &analysis, nil
}

// ParseReview parses the engine's JSON review verdict.
func ParseReview(response string) (*ReviewResult, error) {
	jsonStr, err := extractObject(response)
	if err != nil {
		return nil, err
	}

	var result ReviewResult
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("decode review: %w", err)
	}
	if !result.Verdict.Valid() {
		return nil, fmt.Errorf("unknown verdict %q", result.Verdict)
	}
	if result.Verdict != VerdictApproved && strings.TrimSpace(result.Feedback) == "" {
		return nil, fmt.Errorf("verdict %s requires feedback", result.Verdict)
	}
	return &result, nil
}

// extractObject returns the first top-level JSON object in the response.
func extractObject(response string) (string, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end <= start {
		preview := response
		if len(preview) > 200 {
			preview = preview[:200] + "... (truncated)"
		}
		return "", fmt.Errorf("no JSON object found in response (%d chars): %q", len(response), preview)
	}
	return response[start : end+1], nil
}

// estimateCost estimates USD cost from token counts. Sonnet pricing:
// $3/1M input, $15/1M output (approximate).
func estimateCost(input, output int64) float64 {
	return float64(input)/1_000_000*3.0 + float64(output)/1_000_000*15.0
}
