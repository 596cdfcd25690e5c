package state

import (
	"database/sql"
	"fmt"

	"github.com/ShayCichocki/flotilla/pkg/models"
)

// CreateTask inserts a new task record.
func (db *DB) CreateTask(task *models.Task) error {
	_, err := db.Exec(`
		INSERT INTO tasks (id, team_id, parent_id, title, description, acceptance_criteria,
			required_skills, depends_on, assigned_to, status, revision_count, max_revisions,
			input, output, error, created_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, task.ID, task.TeamID, nullableString(task.ParentID), task.Title, task.Description,
		encodeStrings(task.AcceptanceCriteria), encodeStrings(task.RequiredSkills),
		encodeStrings(task.DependsOn), nullableString(task.AssignedTo), string(task.Status),
		task.RevisionCount, task.EffectiveMaxRevisions(), task.Input, task.Output, task.Error,
		formatTime(task.CreatedAt), formatNullableTime(task.StartedAt), formatNullableTime(task.CompletedAt))
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetTask returns the task with the given ID, or ErrNotFound.
func (db *DB) GetTask(id string) (*models.Task, error) {
	row := db.QueryRow(taskSelect+" WHERE id = ?", id)

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// ListTasks returns all tasks belonging to a team, ordered by creation
// time then ID.
func (db *DB) ListTasks(teamID string) ([]*models.Task, error) {
	rows, err := db.Query(taskSelect+" WHERE team_id = ? ORDER BY created_at, id", teamID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// UpdateTask persists the mutable fields of a task: status, revision
// count, assignment, payloads, error, and timestamps.
func (db *DB) UpdateTask(task *models.Task) error {
	res, err := db.Exec(`
		UPDATE tasks SET assigned_to = ?, status = ?, revision_count = ?,
			input = ?, output = ?, error = ?, started_at = ?, completed_at = ?
		WHERE id = ?
	`, nullableString(task.AssignedTo), string(task.Status), task.RevisionCount,
		task.Input, task.Output, task.Error,
		formatNullableTime(task.StartedAt), formatNullableTime(task.CompletedAt), task.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendRevision records one round of review feedback. Revisions are
// append-only; (task_id, number) is unique.
func (db *DB) AppendRevision(rev *models.Revision) error {
	_, err := db.Exec(`
		INSERT INTO revisions (task_id, number, feedback, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?)
	`, rev.TaskID, rev.Number, rev.Feedback, formatTime(rev.CreatedAt), formatNullableTime(rev.CompletedAt))
	if err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}
	return nil
}

// CompleteRevision stamps the completion time on a revision when the
// revised output is resubmitted for review.
func (db *DB) CompleteRevision(taskID string, number int) error {
	res, err := db.Exec(`
		UPDATE revisions SET completed_at = ? WHERE task_id = ? AND number = ?
	`, formatTime(nowFn()), taskID, number)
	if err != nil {
		return fmt.Errorf("complete revision: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRevisions returns all revisions for a task in order.
func (db *DB) ListRevisions(taskID string) ([]*models.Revision, error) {
	rows, err := db.Query(`
		SELECT task_id, number, feedback, created_at, completed_at
		FROM revisions WHERE task_id = ? ORDER BY number
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	var revs []*models.Revision
	for rows.Next() {
		var rev models.Revision
		var createdAt string
		var completedAt sql.NullString
		if err := rows.Scan(&rev.TaskID, &rev.Number, &rev.Feedback, &createdAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		created, err := parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		rev.CreatedAt = created
		rev.CompletedAt = parseNullableTime(completedAt)
		revs = append(revs, &rev)
	}
	return revs, rows.Err()
}

const taskSelect = `
	SELECT id, team_id, parent_id, title, description, acceptance_criteria,
		required_skills, depends_on, assigned_to, status, revision_count, max_revisions,
		input, output, error, created_at, started_at, completed_at
	FROM tasks`

func scanTask(s scanner) (*models.Task, error) {
	var task models.Task
	var parentID, assignedTo, criteria, skills, deps sql.NullString
	var input, output, errMsg sql.NullString
	var status, createdAt string
	var startedAt, completedAt sql.NullString

	if err := s.Scan(&task.ID, &task.TeamID, &parentID, &task.Title, &task.Description,
		&criteria, &skills, &deps, &assignedTo, &status, &task.RevisionCount, &task.MaxRevisions,
		&input, &output, &errMsg, &createdAt, &startedAt, &completedAt); err != nil {
		return nil, err
	}

	task.ParentID = parentID.String
	task.AssignedTo = assignedTo.String
	task.AcceptanceCriteria = decodeStrings(criteria)
	task.RequiredSkills = decodeStrings(skills)
	task.DependsOn = decodeStrings(deps)
	task.Status = models.TaskStatus(status)
	task.Input = input.String
	task.Output = output.String
	task.Error = errMsg.String

	created, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	task.CreatedAt = created
	task.StartedAt = parseNullableTime(startedAt)
	task.CompletedAt = parseNullableTime(completedAt)
	return &task, nil
}

// nullableString maps the empty string to NULL for optional columns.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
