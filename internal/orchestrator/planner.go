package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/flotilla/internal/config"
	"github.com/ShayCichocki/flotilla/internal/engine"
	"github.com/ShayCichocki/flotilla/pkg/models"
)

// ErrDecompositionInvalid indicates the engine produced an unusable
// decomposition twice in a row.
var ErrDecompositionInvalid = errors.New("decomposition invalid")

// Planner turns a team goal into a validated, persisted task tree via
// the reasoning engine.
type Planner struct {
	eng    engine.Engine
	logger *DebugLogger
	specs  map[string]bool
}

// NewPlanner creates a Planner. The role catalog bounds the
// specializations a decomposition may require; an empty catalog falls
// back to the defaults.
func NewPlanner(eng engine.Engine, logger *DebugLogger, roles []config.RoleTemplate) *Planner {
	if logger == nil {
		logger = NopLogger()
	}
	return &Planner{eng: eng, logger: logger, specs: catalogSpecs(roles)}
}

// catalogSpecs collects the specialization labels a catalog can staff.
func catalogSpecs(roles []config.RoleTemplate) map[string]bool {
	if len(roles) == 0 {
		roles = config.DefaultRoleTemplates()
	}
	specs := make(map[string]bool, len(roles))
	for _, role := range roles {
		specs[role.Specialization] = true
	}
	return specs
}

// Plan analyzes the goal and materializes tasks for the team. An
// invalid decomposition is re-requested once before giving up.
func (p *Planner) Plan(ctx context.Context, team *models.Team) (*engine.GoalAnalysis, []*models.Task, engine.Usage, error) {
	var total engine.Usage

	analysis, usage, err := p.eng.Analyze(ctx, team.Goal)
	total.InputTokens += usage.InputTokens
	total.OutputTokens += usage.OutputTokens
	total.Cost += usage.Cost
	if err != nil {
		return nil, nil, total, fmt.Errorf("analyze goal: %w", err)
	}

	if verr := ValidateAnalysis(analysis, p.specs); verr != nil {
		p.logger.Log("decomposition for team %s invalid, re-requesting: %v", team.ID, verr)

		analysis, usage, err = p.eng.Analyze(ctx, team.Goal)
		total.InputTokens += usage.InputTokens
		total.OutputTokens += usage.OutputTokens
		total.Cost += usage.Cost
		if err != nil {
			return nil, nil, total, fmt.Errorf("re-analyze goal: %w", err)
		}
		if verr := ValidateAnalysis(analysis, p.specs); verr != nil {
			return nil, nil, total, fmt.Errorf("%w: %v", ErrDecompositionInvalid, verr)
		}
	}

	tasks, err := MaterializeTasks(team, analysis)
	if err != nil {
		return nil, nil, total, err
	}
	return analysis, tasks, total, nil
}

// ValidateAnalysis checks a decomposition for structural soundness:
// unique refs, non-empty titles and descriptions, at least one
// acceptance criterion per subtask, known dependency refs, an acyclic
// dependency relation, and specializations the catalog can actually
// staff. A nil spec set falls back to the default catalog. Failing
// here keeps the re-request path open; a bad label never has to reach
// team formation.
func ValidateAnalysis(a *engine.GoalAnalysis, knownSpecs map[string]bool) error {
	if a == nil {
		return errors.New("no analysis")
	}
	if strings.TrimSpace(a.CoreObjective) == "" {
		return errors.New("empty core objective")
	}
	if len(a.Subtasks) == 0 {
		return errors.New("no subtasks")
	}

	if len(knownSpecs) == 0 {
		knownSpecs = catalogSpecs(nil)
	}
	if len(a.RequiredSpecializations) == 0 {
		return errors.New("no required specializations")
	}
	for _, spec := range a.RequiredSpecializations {
		if !knownSpecs[spec] {
			return fmt.Errorf("specialization %q not in the role catalog", spec)
		}
	}

	refs := make(map[string]bool, len(a.Subtasks))
	for i, st := range a.Subtasks {
		if strings.TrimSpace(st.Ref) == "" {
			return fmt.Errorf("subtask %d has no ref", i)
		}
		if refs[st.Ref] {
			return fmt.Errorf("duplicate subtask ref %q", st.Ref)
		}
		refs[st.Ref] = true

		if strings.TrimSpace(st.Title) == "" {
			return fmt.Errorf("subtask %q has no title", st.Ref)
		}
		if strings.TrimSpace(st.Description) == "" {
			return fmt.Errorf("subtask %q has no description", st.Ref)
		}
		if len(st.AcceptanceCriteria) == 0 {
			return fmt.Errorf("subtask %q has no acceptance criteria", st.Ref)
		}
	}

	for _, st := range a.Subtasks {
		for _, dep := range st.DependsOn {
			if !refs[dep] {
				return fmt.Errorf("subtask %q depends on unknown ref %q", st.Ref, dep)
			}
			if dep == st.Ref {
				return fmt.Errorf("subtask %q depends on itself", st.Ref)
			}
		}
		if st.ParentRef != "" && !refs[st.ParentRef] {
			return fmt.Errorf("subtask %q has unknown parent ref %q", st.Ref, st.ParentRef)
		}
	}

	if hasRefCycle(a.Subtasks) {
		return ErrCycleDetected
	}
	return nil
}

// hasRefCycle runs cycle detection over subtask refs before any task
// IDs exist.
func hasRefCycle(subtasks []engine.Subtask) bool {
	g := NewDependencyGraph()
	tasks := make([]*models.Task, 0, len(subtasks))
	for _, st := range subtasks {
		tasks = append(tasks, &models.Task{
			ID:        st.Ref,
			Status:    models.TaskStatusPending,
			DependsOn: st.DependsOn,
		})
	}
	return errors.Is(g.Build(tasks), ErrCycleDetected)
}

// MaterializeTasks converts a validated analysis into task rows for
// the team, mapping subtask refs to generated task IDs.
func MaterializeTasks(team *models.Team, a *engine.GoalAnalysis) ([]*models.Task, error) {
	idByRef := make(map[string]string, len(a.Subtasks))
	for _, st := range a.Subtasks {
		idByRef[st.Ref] = uuid.New().String()
	}

	now := time.Now()
	tasks := make([]*models.Task, 0, len(a.Subtasks))
	for _, st := range a.Subtasks {
		task := &models.Task{
			ID:                 idByRef[st.Ref],
			TeamID:             team.ID,
			Title:              st.Title,
			Description:        st.Description,
			AcceptanceCriteria: st.AcceptanceCriteria,
			RequiredSkills:     st.RequiredSkills,
			Status:             models.TaskStatusPending,
			MaxRevisions:       models.DefaultMaxRevisions,
			CreatedAt:          now,
		}
		for _, dep := range st.DependsOn {
			task.DependsOn = append(task.DependsOn, idByRef[dep])
		}
		if st.ParentRef != "" {
			task.ParentID = idByRef[st.ParentRef]
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
