package state

import (
	"errors"
	"testing"
	"time"

	"github.com/ShayCichocki/flotilla/pkg/models"

	"pgregory.net/rapid"
)

func TestCheckpointAppendAndLatest(t *testing.T) {
	db := openTestDB(t)
	seedTeam(t, db)
	seedTask(t, db, "task-1")

	for step := 1; step <= 4; step++ {
		cp := &models.Checkpoint{TaskID: "task-1", Step: step, Context: "after step", CreatedAt: time.Now()}
		if err := db.AppendCheckpoint(cp); err != nil {
			t.Fatalf("append step %d: %v", step, err)
		}
	}

	latest, err := db.LatestCheckpoint("task-1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Step != 4 {
		t.Errorf("latest step = %d, want 4", latest.Step)
	}

	has, err := db.HasCheckpoint("task-1")
	if err != nil || !has {
		t.Errorf("HasCheckpoint = %v, %v", has, err)
	}
	has, err = db.HasCheckpoint("task-2")
	if err != nil || has {
		t.Errorf("HasCheckpoint for unknown task = %v, %v", has, err)
	}

	if _, err := db.LatestCheckpoint("task-2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCheckpointRejectsDuplicate(t *testing.T) {
	db := openTestDB(t)
	seedTeam(t, db)
	seedTask(t, db, "task-1")

	cp := &models.Checkpoint{TaskID: "task-1", Step: 1, CreatedAt: time.Now()}
	if err := db.AppendCheckpoint(cp); err != nil {
		t.Fatalf("append: %v", err)
	}
	err := db.AppendCheckpoint(cp)
	if !errors.Is(err, ErrDuplicateCheckpoint) {
		t.Errorf("expected ErrDuplicateCheckpoint, got %v", err)
	}
}

func TestCheckpointRejectsOutOfOrder(t *testing.T) {
	db := openTestDB(t)
	seedTeam(t, db)
	seedTask(t, db, "task-1")

	if err := db.AppendCheckpoint(&models.Checkpoint{TaskID: "task-1", Step: 3, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("append step 3: %v", err)
	}
	err := db.AppendCheckpoint(&models.Checkpoint{TaskID: "task-1", Step: 2, CreatedAt: time.Now()})
	if !errors.Is(err, ErrOutOfOrderCheckpoint) {
		t.Errorf("expected ErrOutOfOrderCheckpoint, got %v", err)
	}
	err = db.AppendCheckpoint(&models.Checkpoint{TaskID: "task-1", Step: 0, CreatedAt: time.Now()})
	if !errors.Is(err, ErrOutOfOrderCheckpoint) {
		t.Errorf("expected ErrOutOfOrderCheckpoint for step 0, got %v", err)
	}
}

func TestCheckpointIndependentTasks(t *testing.T) {
	db := openTestDB(t)
	seedTeam(t, db)
	seedTask(t, db, "task-1")
	seedTask(t, db, "task-2")

	// The uniqueness constraint is per (task, step); different tasks
	// may share step numbers.
	for _, id := range []string{"task-1", "task-2"} {
		if err := db.AppendCheckpoint(&models.Checkpoint{TaskID: id, Step: 1, CreatedAt: time.Now()}); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}
}

func TestPurgeRequiresArchivedTeam(t *testing.T) {
	db := openTestDB(t)
	seedTeam(t, db)
	seedTask(t, db, "task-1")
	if err := db.AppendCheckpoint(&models.Checkpoint{TaskID: "task-1", Step: 1, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("append: %v", err)
	}

	if _, err := db.PurgeTeamCheckpoints("team-1"); err == nil {
		t.Fatal("expected purge of live team to fail")
	}

	for _, next := range []models.TeamStatus{
		models.TeamStatusPlanning, models.TeamStatusActive,
		models.TeamStatusCompleted, models.TeamStatusArchived,
	} {
		if err := db.UpdateTeamStatus("team-1", next); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}

	n, err := db.PurgeTeamCheckpoints("team-1")
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d checkpoints, want 1", n)
	}
}

// TestCheckpointStepsAlwaysMonotonic drives random valid and invalid
// step sequences and verifies the stored log is always strictly
// increasing regardless of write order.
func TestCheckpointStepsAlwaysMonotonic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		db := openTestDB(t)
		seedTeam(t, db)
		seedTask(t, db, "task-1")

		n := rapid.IntRange(1, 15).Draw(rt, "writes")
		for i := 0; i < n; i++ {
			step := rapid.IntRange(0, 10).Draw(rt, "step")
			_ = db.AppendCheckpoint(&models.Checkpoint{
				TaskID: "task-1", Step: step, CreatedAt: time.Now(),
			})
		}

		cps, err := db.ListCheckpoints("task-1")
		if err != nil {
			rt.Fatalf("list: %v", err)
		}
		prev := 0
		for _, cp := range cps {
			if cp.Step <= prev {
				rt.Fatalf("steps not strictly increasing: %d after %d", cp.Step, prev)
			}
			prev = cp.Step
		}
	})
}
