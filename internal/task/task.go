package task

import (
	"time"

	"github.com/google/uuid"
)

// Task is a single render unit corresponding to one frame (or shot) of one
// UE Movie Render Queue job. Immutable inputs are set once at creation;
// everything else mutates as the task moves through the state machine.
type Task struct {
	ID             string            `json:"task_id"`
	JobID          string            `json:"job_id"`
	LevelSequence  string            `json:"level_sequence"`
	MapPath        string            `json:"map_path"`
	MovieQuality   int               `json:"movie_quality"`
	MovieFormat    string            `json:"movie_format"`
	ExtraParams    map[string]string `json:"extra_params"`
	Status         Status            `json:"status"`
	AssignedWorker string            `json:"assigned_worker_id,omitempty"`

	ProgressPercent float64 `json:"progress_percent"`
	ProgressETA     int     `json:"progress_eta_seconds"`

	CreatedAt   time.Time  `json:"created_at"`
	AssignedAt  *time.Time `json:"assigned_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Success        bool   `json:"success"`
	ErrorMessage   string `json:"error_message,omitempty"`
	VideoDirectory string `json:"video_directory,omitempty"`
}

// CreateTaskRequest is the decoded body of POST /tasks.
type CreateTaskRequest struct {
	JobID         string            `json:"job_id"`
	LevelSequence string            `json:"level_sequence"`
	MapPath       string            `json:"map_path"`
	MovieQuality  int               `json:"movie_quality"`
	MovieFormat   string            `json:"movie_format"`
	ExtraParams   map[string]string `json:"extra_params"`
}

// New builds a Task in StatusPending from a create request, applying the
// defaults documented in the HTTP API table (movie_quality=1, movie_format=mp4).
func New(req CreateTaskRequest) *Task {
	quality := req.MovieQuality
	if quality == 0 {
		quality = 1
	}
	format := req.MovieFormat
	if format == "" {
		format = "mp4"
	}
	params := req.ExtraParams
	if params == nil {
		params = map[string]string{}
	}

	return &Task{
		ID:            uuid.NewString(),
		JobID:         req.JobID,
		LevelSequence: req.LevelSequence,
		MapPath:       req.MapPath,
		MovieQuality:  quality,
		MovieFormat:   format,
		ExtraParams:   params,
		Status:        StatusPending,
		CreatedAt:     time.Now(),
	}
}

// LeaseObject is the shape returned to a worker on GET /workers/{id}/lease.
// "map" (not "map_path") is the wire field name for back-compat.
type LeaseObject struct {
	TaskID        string            `json:"task_id"`
	JobID         string            `json:"job_id"`
	LevelSequence string            `json:"level_sequence"`
	Map           string            `json:"map"`
	MovieQuality  int               `json:"movie_quality"`
	MovieFormat   string            `json:"movie_format"`
	ExtraParams   map[string]string `json:"extra_params"`
}

func (t *Task) ToLeaseObject() LeaseObject {
	return LeaseObject{
		TaskID:        t.ID,
		JobID:         t.JobID,
		LevelSequence: t.LevelSequence,
		Map:           t.MapPath,
		MovieQuality:  t.MovieQuality,
		MovieFormat:   t.MovieFormat,
		ExtraParams:   t.ExtraParams,
	}
}
