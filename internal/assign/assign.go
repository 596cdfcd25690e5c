// Package assign selects the worker for a task by scoring candidates
// on skill match, current workload, and historical success rate.
package assign

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ShayCichocki/flotilla/pkg/models"
)

// ErrNoEligibleWorker indicates every candidate is at its concurrency
// ceiling. The caller queues the task and retries on the next
// worker-availability event rather than failing the task.
var ErrNoEligibleWorker = errors.New("no eligible worker")

// Scoring weights. The workload term rewards idle workers; the history
// term rewards workers that finish what they start.
const (
	weightSkillMatch = 0.5
	weightWorkload   = 0.3
	weightHistory    = 0.2
)

// Assigner scores candidate workers against tasks.
type Assigner struct {
	history *History
}

// New creates an Assigner backed by the given outcome history.
func New(history *History) *Assigner {
	if history == nil {
		history = NewHistory(DefaultHistoryWindow)
	}
	return &Assigner{history: history}
}

// History returns the assigner's outcome history for recording results.
func (a *Assigner) History() *History {
	return a.history
}

// Assign returns the ID of the best candidate for the task. Candidates
// at their concurrency ceiling are excluded; if none remain, the error
// is ErrNoEligibleWorker. Ties are broken by lowest current workload,
// then by worker ID, so identical inputs always produce the same
// assignment.
func (a *Assigner) Assign(task *models.Task, candidates []*models.Worker) (string, error) {
	type scored struct {
		worker *models.Worker
		score  float64
	}

	var eligible []scored
	for _, w := range candidates {
		if w.Role == models.RoleManager {
			continue
		}
		if !w.Available() {
			continue
		}
		eligible = append(eligible, scored{worker: w, score: a.Score(task, w)})
	}

	if len(eligible) == 0 {
		return "", fmt.Errorf("%w: task %s with %d candidates", ErrNoEligibleWorker, task.ID, len(candidates))
	}

	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].score != eligible[j].score {
			return eligible[i].score > eligible[j].score
		}
		if eligible[i].worker.CurrentWorkload != eligible[j].worker.CurrentWorkload {
			return eligible[i].worker.CurrentWorkload < eligible[j].worker.CurrentWorkload
		}
		return eligible[i].worker.ID < eligible[j].worker.ID
	})

	return eligible[0].worker.ID, nil
}

// Score computes the weighted assignment score for one candidate:
//
//	0.5*skill_match + 0.3*(1/(1+workload)) + 0.2*success_rate
func (a *Assigner) Score(task *models.Task, w *models.Worker) float64 {
	return weightSkillMatch*SkillMatch(task.RequiredSkills, w) +
		weightWorkload*(1.0/(1.0+float64(w.CurrentWorkload))) +
		weightHistory*a.history.SuccessRate(w.ID)
}

// SkillMatch returns the fraction of required skill tags the worker
// carries. A task with no required skills matches every worker fully.
func SkillMatch(required []string, w *models.Worker) float64 {
	if len(required) == 0 {
		return 1.0
	}
	matched := 0
	for _, tag := range required {
		if w.HasSkill(tag) {
			matched++
		}
	}
	return float64(matched) / float64(len(required))
}
