package state

import (
	"database/sql"
	"fmt"

	"github.com/ShayCichocki/flotilla/pkg/models"
)

// CreateWorker inserts a new worker slot for a team.
func (db *DB) CreateWorker(w *models.Worker) error {
	_, err := db.Exec(`
		INSERT INTO workers (id, team_id, role, specialization, skills, current_workload, max_concurrent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, w.ID, w.TeamID, string(w.Role), w.Specialization, encodeStrings(w.Skills),
		w.CurrentWorkload, w.EffectiveMaxConcurrent(), formatTime(w.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert worker: %w", err)
	}
	return nil
}

// GetWorker returns the worker with the given ID, or ErrNotFound.
func (db *DB) GetWorker(id string) (*models.Worker, error) {
	row := db.QueryRow(`
		SELECT id, team_id, role, specialization, skills, current_workload, max_concurrent, created_at
		FROM workers WHERE id = ?
	`, id)

	w, err := scanWorker(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get worker: %w", err)
	}
	return w, nil
}

// ListWorkers returns all workers belonging to a team, ordered by ID
// for deterministic iteration.
func (db *DB) ListWorkers(teamID string) ([]*models.Worker, error) {
	rows, err := db.Query(`
		SELECT id, team_id, role, specialization, skills, current_workload, max_concurrent, created_at
		FROM workers WHERE team_id = ? ORDER BY id
	`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	defer rows.Close()

	var workers []*models.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, fmt.Errorf("scan worker: %w", err)
		}
		workers = append(workers, w)
	}
	return workers, rows.Err()
}

// AdjustWorkload changes a worker's current workload by delta. The
// 0 <= workload <= max_concurrent invariant is enforced both here and
// by the table's CHECK constraints.
func (db *DB) AdjustWorkload(id string, delta int) error {
	return db.Transaction(func(tx *sql.Tx) error {
		var workload, max int
		row := tx.QueryRow("SELECT current_workload, max_concurrent FROM workers WHERE id = ?", id)
		if err := row.Scan(&workload, &max); err != nil {
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			return fmt.Errorf("read workload: %w", err)
		}

		next := workload + delta
		if next < 0 || next > max {
			return fmt.Errorf("workload %d out of range [0, %d] for worker %s", next, max, id)
		}

		if _, err := tx.Exec("UPDATE workers SET current_workload = ? WHERE id = ?", next, id); err != nil {
			return fmt.Errorf("update workload: %w", err)
		}
		return nil
	})
}

func scanWorker(s scanner) (*models.Worker, error) {
	var w models.Worker
	var role, createdAt string
	var skills sql.NullString

	if err := s.Scan(&w.ID, &w.TeamID, &role, &w.Specialization, &skills,
		&w.CurrentWorkload, &w.MaxConcurrent, &createdAt); err != nil {
		return nil, err
	}

	w.Role = models.WorkerRole(role)
	w.Skills = decodeStrings(skills)
	created, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	w.CreatedAt = created
	return &w, nil
}
