package task

import "time"

// Worker is a long-lived UE Editor child process on the local host, in
// worker mode. Its id is of the form "<hostIP>-w<index>", generated once at
// spawn and reused across respawns of the same logical slot.
type Worker struct {
	ID            string       `json:"worker_id"`
	PID           int          `json:"pid,omitempty"`
	Status        WorkerStatus `json:"status"`
	CurrentTaskID string       `json:"current_task_id,omitempty"`

	LastHeartbeat  time.Time `json:"last_heartbeat"`
	HeartbeatCount int64     `json:"heartbeat_count"`

	SpawnedAt time.Time  `json:"spawned_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`

	TasksCompleted int64 `json:"tasks_completed"`
	TasksFailed    int64 `json:"tasks_failed"`
}

// NewWorker registers a worker slot immediately after its process is spawned.
func NewWorker(id string, pid int) *Worker {
	now := time.Now()
	return &Worker{
		ID:            id,
		PID:           pid,
		Status:        WorkerStarting,
		LastHeartbeat: now,
		SpawnedAt:     now,
	}
}
