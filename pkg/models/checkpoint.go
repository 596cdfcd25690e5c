package models

import "time"

// Checkpoint is a durable snapshot of in-progress task state. A task
// emits one checkpoint per completed step; resumption loads the
// highest step and replays from there, never re-running completed
// steps. (TaskID, Step) is unique and checkpoints are append-only.
type Checkpoint struct {
	// TaskID is the task this checkpoint belongs to.
	TaskID string `json:"task_id"`
	// Step is the monotonically increasing step number, starting at 1.
	Step int `json:"step"`
	// Context is the opaque payload needed to resume after this step.
	Context string `json:"context"`
	// CreatedAt is when the checkpoint was written.
	CreatedAt time.Time `json:"created_at"`
}
