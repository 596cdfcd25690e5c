package state

import (
	"database/sql"
	"fmt"

	"github.com/ShayCichocki/flotilla/pkg/models"
)

// CreateTeam inserts a new team record.
func (db *DB) CreateTeam(team *models.Team) error {
	_, err := db.Exec(`
		INSERT INTO teams (id, goal, status, budget_limit, created_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, team.ID, team.Goal, string(team.Status), team.BudgetLimit,
		formatTime(team.CreatedAt), formatNullableTime(team.StartedAt), formatNullableTime(team.CompletedAt))
	if err != nil {
		return fmt.Errorf("insert team: %w", err)
	}
	return nil
}

// GetTeam returns the team with the given ID, or ErrNotFound.
func (db *DB) GetTeam(id string) (*models.Team, error) {
	row := db.QueryRow(`
		SELECT id, goal, status, budget_limit, created_at, started_at, completed_at
		FROM teams WHERE id = ?
	`, id)

	team, err := scanTeam(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	return team, nil
}

// ListTeams returns all teams, optionally filtered by status.
func (db *DB) ListTeams(status *models.TeamStatus) ([]*models.Team, error) {
	query := `
		SELECT id, goal, status, budget_limit, created_at, started_at, completed_at
		FROM teams`
	var args []any
	if status != nil {
		query += " WHERE status = ?"
		args = append(args, string(*status))
	}
	query += " ORDER BY created_at"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var teams []*models.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

// UpdateTeamStatus transitions a team to the given status, enforcing
// the lifecycle rules at the storage boundary. The started/completed
// timestamps are stamped on the corresponding transitions.
func (db *DB) UpdateTeamStatus(id string, next models.TeamStatus) error {
	return db.Transaction(func(tx *sql.Tx) error {
		var current string
		row := tx.QueryRow("SELECT status FROM teams WHERE id = ?", id)
		if err := row.Scan(&current); err != nil {
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			return fmt.Errorf("read team status: %w", err)
		}

		from := models.TeamStatus(current)
		if from == models.TeamStatusArchived {
			return ErrArchived
		}
		if !from.CanTransitionTo(next) {
			return fmt.Errorf("%w: team %s %s -> %s", ErrInvalidTransition, id, from, next)
		}

		set := "status = ?"
		args := []any{string(next)}
		switch next {
		case models.TeamStatusPlanning:
			set += ", started_at = ?"
			args = append(args, formatTime(nowFn()))
		case models.TeamStatusCompleted, models.TeamStatusFailed:
			set += ", completed_at = ?"
			args = append(args, formatTime(nowFn()))
		}
		args = append(args, id)

		if _, err := tx.Exec("UPDATE teams SET "+set+" WHERE id = ?", args...); err != nil {
			return fmt.Errorf("update team status: %w", err)
		}
		return nil
	})
}

// scanner abstracts *sql.Row and *sql.Rows for scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanTeam(s scanner) (*models.Team, error) {
	var team models.Team
	var status, createdAt string
	var startedAt, completedAt sql.NullString

	if err := s.Scan(&team.ID, &team.Goal, &status, &team.BudgetLimit,
		&createdAt, &startedAt, &completedAt); err != nil {
		return nil, err
	}

	team.Status = models.TeamStatus(status)
	created, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	team.CreatedAt = created
	team.StartedAt = parseNullableTime(startedAt)
	team.CompletedAt = parseNullableTime(completedAt)
	return &team, nil
}
