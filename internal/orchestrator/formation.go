package orchestrator

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ShayCichocki/flotilla/internal/config"
	"github.com/ShayCichocki/flotilla/pkg/models"
)

// Team sizing bounds, manager included.
const (
	MinTeamSize = 3
	MaxTeamSize = 5
)

// FormTeam staffs a team for the required specializations from the
// role catalog: one manager plus one specialist worker per required
// specialization, clamped to the team size bounds. When fewer
// specializations are required than the minimum size allows, extra
// workers are drawn from the catalog in order.
func FormTeam(teamID string, specializations []string, roles []config.RoleTemplate) ([]*models.Worker, error) {
	if len(roles) == 0 {
		roles = config.DefaultRoleTemplates()
	}

	bySpec := make(map[string]config.RoleTemplate, len(roles))
	for _, role := range roles {
		if _, ok := bySpec[role.Specialization]; !ok {
			bySpec[role.Specialization] = role
		}
	}

	var templates []config.RoleTemplate
	seen := make(map[string]bool)
	for _, spec := range specializations {
		role, ok := bySpec[spec]
		if !ok {
			return nil, fmt.Errorf("no role template for specialization %q", spec)
		}
		if seen[spec] {
			continue
		}
		seen[spec] = true
		templates = append(templates, role)
	}
	if len(templates) == 0 {
		return nil, fmt.Errorf("no specializations required for team %s", teamID)
	}

	// Pad up to the minimum size with unused catalog roles, then with
	// duplicates of the required ones.
	minWorkers := MinTeamSize - 1
	for _, role := range roles {
		if len(templates) >= minWorkers {
			break
		}
		if !seen[role.Specialization] {
			seen[role.Specialization] = true
			templates = append(templates, role)
		}
	}
	for i := 0; len(templates) < minWorkers; i++ {
		templates = append(templates, templates[i%len(templates)])
	}

	maxWorkers := MaxTeamSize - 1
	if len(templates) > maxWorkers {
		templates = templates[:maxWorkers]
	}

	workers := []*models.Worker{
		{
			ID:             uuid.New().String(),
			TeamID:         teamID,
			Role:           models.RoleManager,
			Specialization: "manager",
			MaxConcurrent:  models.DefaultMaxConcurrent,
		},
	}
	for _, role := range templates {
		maxConcurrent := role.MaxConcurrent
		if maxConcurrent <= 0 {
			maxConcurrent = models.DefaultMaxConcurrent
		}
		workers = append(workers, &models.Worker{
			ID:             uuid.New().String(),
			TeamID:         teamID,
			Role:           models.RoleWorker,
			Specialization: role.Specialization,
			Skills:         role.Skills,
			MaxConcurrent:  maxConcurrent,
		})
	}
	return workers, nil
}
