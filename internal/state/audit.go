package state

import (
	"database/sql"
	"fmt"
	"time"
)

// AuditEntry is one record of the immutable audit log. Every state
// transition and error in a mission is appended here; entries are
// never edited or deleted.
type AuditEntry struct {
	// Seq is the global sequence number assigned on insert.
	Seq int64
	// TeamID is the team the entry belongs to.
	TeamID string
	// TaskID is the related task, if any.
	TaskID string
	// Event is the short event name (e.g. "task_status", "escalation").
	Event string
	// Detail is free-text context for the event.
	Detail string
	// CreatedAt is when the entry was appended.
	CreatedAt time.Time
}

// AppendAudit appends one entry to the audit log.
func (db *DB) AppendAudit(teamID, taskID, event, detail string) error {
	_, err := db.Exec(`
		INSERT INTO audit_log (team_id, task_id, event, detail, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, teamID, nullableString(taskID), event, detail, formatTime(nowFn()))
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// ListAudit returns all audit entries for a team in append order.
func (db *DB) ListAudit(teamID string) ([]*AuditEntry, error) {
	rows, err := db.Query(`
		SELECT seq, team_id, task_id, event, detail, created_at
		FROM audit_log WHERE team_id = ? ORDER BY seq
	`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		var e AuditEntry
		var taskID, detail sql.NullString
		var createdAt string
		if err := rows.Scan(&e.Seq, &e.TeamID, &taskID, &e.Event, &detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.TaskID = taskID.String
		e.Detail = detail.String
		created, err := parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		e.CreatedAt = created
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
