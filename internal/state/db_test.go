package state

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/flotilla/pkg/models"
)

// openTestDB opens a migrated database in a temp directory.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedTeam(t *testing.T, db *DB) *models.Team {
	t.Helper()
	team := &models.Team{
		ID:        "team-1",
		Goal:      "Build a web scraper",
		Status:    models.TeamStatusPending,
		CreatedAt: time.Now(),
	}
	if err := db.CreateTeam(team); err != nil {
		t.Fatalf("create team: %v", err)
	}
	return team
}

func seedTask(t *testing.T, db *DB, id string) *models.Task {
	t.Helper()
	task := &models.Task{
		ID:                 id,
		TeamID:             "team-1",
		Title:              "Fetch pages",
		Description:        "Fetch and store pages",
		AcceptanceCriteria: []string{"pages stored"},
		Status:             models.TaskStatusPending,
		MaxRevisions:       3,
		CreatedAt:          time.Now(),
	}
	if err := db.CreateTask(task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestTeamRoundTrip(t *testing.T) {
	db := openTestDB(t)
	seedTeam(t, db)

	got, err := db.GetTeam("team-1")
	if err != nil {
		t.Fatalf("get team: %v", err)
	}
	if got.Goal != "Build a web scraper" {
		t.Errorf("goal = %q", got.Goal)
	}
	if got.Status != models.TeamStatusPending {
		t.Errorf("status = %s", got.Status)
	}
	if got.StartedAt != nil {
		t.Error("expected nil started_at")
	}

	if _, err := db.GetTeam("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTeamStatusTransitionEnforced(t *testing.T) {
	db := openTestDB(t)
	seedTeam(t, db)

	// Pending -> Active is illegal.
	err := db.UpdateTeamStatus("team-1", models.TeamStatusActive)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	for _, next := range []models.TeamStatus{
		models.TeamStatusPlanning, models.TeamStatusActive, models.TeamStatusCompleted,
	} {
		if err := db.UpdateTeamStatus("team-1", next); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}

	team, err := db.GetTeam("team-1")
	if err != nil {
		t.Fatalf("get team: %v", err)
	}
	if team.StartedAt == nil || team.CompletedAt == nil {
		t.Error("expected started_at and completed_at to be stamped")
	}

	// Completed -> Archived is the only legal continuation.
	if err := db.UpdateTeamStatus("team-1", models.TeamStatusActive); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition out of completed, got %v", err)
	}
	if err := db.UpdateTeamStatus("team-1", models.TeamStatusArchived); err != nil {
		t.Fatalf("archive: %v", err)
	}
	// Archived teams never change.
	if err := db.UpdateTeamStatus("team-1", models.TeamStatusArchived); !errors.Is(err, ErrArchived) {
		t.Errorf("expected ErrArchived, got %v", err)
	}
}

func TestTaskRoundTrip(t *testing.T) {
	db := openTestDB(t)
	seedTeam(t, db)
	task := seedTask(t, db, "task-1")

	task.Status = models.TaskStatusAssigned
	task.AssignedTo = "worker-1"
	if err := db.UpdateTask(task); err != nil {
		t.Fatalf("update task: %v", err)
	}

	got, err := db.GetTask("task-1")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Status != models.TaskStatusAssigned {
		t.Errorf("status = %s", got.Status)
	}
	if got.AssignedTo != "worker-1" {
		t.Errorf("assigned_to = %q", got.AssignedTo)
	}
	if len(got.AcceptanceCriteria) != 1 || got.AcceptanceCriteria[0] != "pages stored" {
		t.Errorf("acceptance criteria = %v", got.AcceptanceCriteria)
	}

	if err := db.UpdateTask(&models.Task{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWorkerWorkloadBounds(t *testing.T) {
	db := openTestDB(t)
	seedTeam(t, db)

	w := &models.Worker{
		ID:             "worker-1",
		TeamID:         "team-1",
		Role:           models.RoleWorker,
		Specialization: "coder",
		Skills:         []string{"go"},
		MaxConcurrent:  2,
		CreatedAt:      time.Now(),
	}
	if err := db.CreateWorker(w); err != nil {
		t.Fatalf("create worker: %v", err)
	}

	if err := db.AdjustWorkload("worker-1", 1); err != nil {
		t.Fatalf("adjust +1: %v", err)
	}
	if err := db.AdjustWorkload("worker-1", 1); err != nil {
		t.Fatalf("adjust +1: %v", err)
	}
	// Ceiling reached.
	if err := db.AdjustWorkload("worker-1", 1); err == nil {
		t.Error("expected error above ceiling")
	}
	if err := db.AdjustWorkload("worker-1", -2); err != nil {
		t.Fatalf("adjust -2: %v", err)
	}
	// Floor.
	if err := db.AdjustWorkload("worker-1", -1); err == nil {
		t.Error("expected error below zero")
	}
}

func TestRevisionsAppendOnly(t *testing.T) {
	db := openTestDB(t)
	seedTeam(t, db)
	seedTask(t, db, "task-1")

	rev := &models.Revision{TaskID: "task-1", Number: 1, Feedback: "tighten error handling", CreatedAt: time.Now()}
	if err := db.AppendRevision(rev); err != nil {
		t.Fatalf("append revision: %v", err)
	}
	// Duplicate number rejected by the primary key.
	if err := db.AppendRevision(rev); err == nil {
		t.Error("expected duplicate revision to fail")
	}
	if err := db.CompleteRevision("task-1", 1); err != nil {
		t.Fatalf("complete revision: %v", err)
	}

	revs, err := db.ListRevisions("task-1")
	if err != nil {
		t.Fatalf("list revisions: %v", err)
	}
	if len(revs) != 1 || revs[0].CompletedAt == nil {
		t.Errorf("unexpected revisions: %+v", revs)
	}
}

func TestAuditAppendOrder(t *testing.T) {
	db := openTestDB(t)
	seedTeam(t, db)

	events := []string{"team_created", "task_status", "escalation"}
	for _, e := range events {
		if err := db.AppendAudit("team-1", "", e, "detail"); err != nil {
			t.Fatalf("append audit: %v", err)
		}
	}

	entries, err := db.ListAudit("team-1")
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(entries) != len(events) {
		t.Fatalf("expected %d entries, got %d", len(events), len(entries))
	}
	for i, e := range entries {
		if e.Event != events[i] {
			t.Errorf("entry %d = %q, want %q", i, e.Event, events[i])
		}
	}
}
