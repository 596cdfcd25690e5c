package orchestrator

import (
	"testing"

	"github.com/ShayCichocki/flotilla/internal/config"
	"github.com/ShayCichocki/flotilla/pkg/models"
)

func TestFormTeamStaffsSpecializations(t *testing.T) {
	workers, err := FormTeam("team-1", []string{"coder", "tester"}, nil)
	if err != nil {
		t.Fatalf("form: %v", err)
	}

	if len(workers) < MinTeamSize || len(workers) > MaxTeamSize {
		t.Fatalf("team size %d outside [%d, %d]", len(workers), MinTeamSize, MaxTeamSize)
	}

	managers := 0
	specs := make(map[string]bool)
	for _, w := range workers {
		if w.Role == models.RoleManager {
			managers++
		}
		specs[w.Specialization] = true
		if w.TeamID != "team-1" {
			t.Errorf("worker %s has team %q", w.ID, w.TeamID)
		}
	}
	if managers != 1 {
		t.Errorf("managers = %d, want 1", managers)
	}
	if !specs["coder"] || !specs["tester"] {
		t.Errorf("required specializations not staffed: %v", specs)
	}
}

func TestFormTeamPadsToMinimum(t *testing.T) {
	workers, err := FormTeam("team-1", []string{"coder"}, nil)
	if err != nil {
		t.Fatalf("form: %v", err)
	}
	if len(workers) < MinTeamSize {
		t.Errorf("team size %d below minimum %d", len(workers), MinTeamSize)
	}
}

func TestFormTeamClampsToMaximum(t *testing.T) {
	workers, err := FormTeam("team-1",
		[]string{"researcher", "coder", "reviewer", "tester", "writer"}, nil)
	if err != nil {
		t.Fatalf("form: %v", err)
	}
	if len(workers) > MaxTeamSize {
		t.Errorf("team size %d above maximum %d", len(workers), MaxTeamSize)
	}
}

func TestFormTeamUnknownSpecialization(t *testing.T) {
	if _, err := FormTeam("team-1", []string{"alchemist"}, nil); err == nil {
		t.Error("expected error for unknown specialization")
	}
}

func TestFormTeamUsesCustomRoles(t *testing.T) {
	roles := []config.RoleTemplate{
		{Name: "scraper", Specialization: "researcher", Skills: []string{"scraping"}, MaxConcurrent: 2},
		{Name: "backend", Specialization: "coder", Skills: []string{"go"}},
		{Name: "qa", Specialization: "tester", Skills: []string{"testing"}},
	}

	workers, err := FormTeam("team-1", []string{"researcher"}, roles)
	if err != nil {
		t.Fatalf("form: %v", err)
	}

	var researcher *models.Worker
	for _, w := range workers {
		if w.Specialization == "researcher" {
			researcher = w
		}
	}
	if researcher == nil {
		t.Fatal("no researcher staffed")
	}
	if researcher.MaxConcurrent != 2 {
		t.Errorf("researcher max concurrent = %d, want 2", researcher.MaxConcurrent)
	}
	if len(researcher.Skills) != 1 || researcher.Skills[0] != "scraping" {
		t.Errorf("researcher skills = %v", researcher.Skills)
	}
}
