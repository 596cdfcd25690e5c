package state

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ShayCichocki/flotilla/pkg/models"
)

// ErrDuplicateCheckpoint indicates a checkpoint already exists for the
// (task, step) pair.
var ErrDuplicateCheckpoint = errors.New("duplicate checkpoint")

// ErrOutOfOrderCheckpoint indicates a checkpoint write whose step
// number is not strictly greater than the task's latest step.
var ErrOutOfOrderCheckpoint = errors.New("out-of-order checkpoint")

// AppendCheckpoint durably records a completed step. Checkpoints are
// append-only: steps must increase strictly, and a (task, step) pair
// can be written at most once.
func (db *DB) AppendCheckpoint(cp *models.Checkpoint) error {
	if cp.Step < 1 {
		return fmt.Errorf("%w: step %d for task %s", ErrOutOfOrderCheckpoint, cp.Step, cp.TaskID)
	}

	return db.Transaction(func(tx *sql.Tx) error {
		var latest int
		row := tx.QueryRow("SELECT COALESCE(MAX(step), 0) FROM checkpoints WHERE task_id = ?", cp.TaskID)
		if err := row.Scan(&latest); err != nil {
			return fmt.Errorf("read latest step: %w", err)
		}

		if cp.Step == latest {
			return fmt.Errorf("%w: task %s step %d", ErrDuplicateCheckpoint, cp.TaskID, cp.Step)
		}
		if cp.Step < latest {
			return fmt.Errorf("%w: task %s step %d behind latest %d", ErrOutOfOrderCheckpoint, cp.TaskID, cp.Step, latest)
		}

		_, err := tx.Exec(`
			INSERT INTO checkpoints (task_id, step, context, created_at)
			VALUES (?, ?, ?, ?)
		`, cp.TaskID, cp.Step, cp.Context, formatTime(cp.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert checkpoint: %w", err)
		}
		return nil
	})
}

// LatestCheckpoint returns the highest-step checkpoint for a task, or
// ErrNotFound if the task has none.
func (db *DB) LatestCheckpoint(taskID string) (*models.Checkpoint, error) {
	row := db.QueryRow(`
		SELECT task_id, step, context, created_at
		FROM checkpoints WHERE task_id = ? ORDER BY step DESC LIMIT 1
	`, taskID)

	cp, err := scanCheckpoint(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest checkpoint: %w", err)
	}
	return cp, nil
}

// HasCheckpoint reports whether any checkpoint exists for the task.
// This satisfies the failure handler's CheckpointSource contract.
func (db *DB) HasCheckpoint(taskID string) (bool, error) {
	var n int
	row := db.QueryRow("SELECT COUNT(*) FROM checkpoints WHERE task_id = ?", taskID)
	if err := row.Scan(&n); err != nil {
		return false, fmt.Errorf("count checkpoints: %w", err)
	}
	return n > 0, nil
}

// ListCheckpoints returns all checkpoints for a task in step order.
func (db *DB) ListCheckpoints(taskID string) ([]*models.Checkpoint, error) {
	rows, err := db.Query(`
		SELECT task_id, step, context, created_at
		FROM checkpoints WHERE task_id = ? ORDER BY step
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var cps []*models.Checkpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		cps = append(cps, cp)
	}
	return cps, rows.Err()
}

// PurgeTeamCheckpoints deletes all checkpoints for an archived team's
// tasks. This is the only deletion path for checkpoints; it exists for
// the archival retention policy. Returns the number deleted.
func (db *DB) PurgeTeamCheckpoints(teamID string) (int64, error) {
	team, err := db.GetTeam(teamID)
	if err != nil {
		return 0, err
	}
	if team.Status != models.TeamStatusArchived {
		return 0, fmt.Errorf("team %s is not archived", teamID)
	}

	res, err := db.Exec(`
		DELETE FROM checkpoints WHERE task_id IN (SELECT id FROM tasks WHERE team_id = ?)
	`, teamID)
	if err != nil {
		return 0, fmt.Errorf("purge checkpoints: %w", err)
	}
	return res.RowsAffected()
}

func scanCheckpoint(s scanner) (*models.Checkpoint, error) {
	var cp models.Checkpoint
	var createdAt string
	var ctx sql.NullString

	if err := s.Scan(&cp.TaskID, &cp.Step, &ctx, &createdAt); err != nil {
		return nil, err
	}

	cp.Context = ctx.String
	created, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	cp.CreatedAt = created
	return &cp, nil
}
