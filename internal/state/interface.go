package state

import "github.com/ShayCichocki/flotilla/pkg/models"

// Store is the persistence contract consumed by the orchestrator and
// its components. *DB satisfies it; tests may substitute their own.
type Store interface {
	// Teams
	CreateTeam(team *models.Team) error
	GetTeam(id string) (*models.Team, error)
	ListTeams(status *models.TeamStatus) ([]*models.Team, error)
	UpdateTeamStatus(id string, next models.TeamStatus) error

	// Workers
	CreateWorker(w *models.Worker) error
	GetWorker(id string) (*models.Worker, error)
	ListWorkers(teamID string) ([]*models.Worker, error)
	AdjustWorkload(id string, delta int) error

	// Tasks and revisions
	CreateTask(task *models.Task) error
	GetTask(id string) (*models.Task, error)
	ListTasks(teamID string) ([]*models.Task, error)
	UpdateTask(task *models.Task) error
	AppendRevision(rev *models.Revision) error
	CompleteRevision(taskID string, number int) error
	ListRevisions(taskID string) ([]*models.Revision, error)

	// Checkpoints
	AppendCheckpoint(cp *models.Checkpoint) error
	LatestCheckpoint(taskID string) (*models.Checkpoint, error)
	HasCheckpoint(taskID string) (bool, error)
	ListCheckpoints(taskID string) ([]*models.Checkpoint, error)
	PurgeTeamCheckpoints(teamID string) (int64, error)

	// Audit log
	AppendAudit(teamID, taskID, event, detail string) error
	ListAudit(teamID string) ([]*AuditEntry, error)
}

// Assert *DB satisfies Store.
var _ Store = (*DB)(nil)
