package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/opencueforunreal/ue-worker-pool/internal/logger"
	"github.com/opencueforunreal/ue-worker-pool/internal/metrics"
	"github.com/opencueforunreal/ue-worker-pool/internal/task"
)

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"host_ip": s.hostIP,
		"workers": s.queue.WorkerCounts(),
		"tasks":   s.queue.TaskCounts(),
	})
}

func (s *Server) handleListWorkers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.queue.ListWorkers())
}

func (s *Server) handleScale(w http.ResponseWriter, r *http.Request) {
	target, err := strconv.Atoi(r.URL.Query().Get("target"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "target must be an integer")
		return
	}

	actual, err := s.pool.Scale(target)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"host_ip": s.hostIP,
		"workers": s.queue.WorkerCounts(),
		"tasks":   s.queue.TaskCounts(),
		"target":  actual,
	})
}

func (s *Server) handleKillWorker(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "workerID")
	graceful := r.URL.Query().Get("graceful") == "true"

	if err := s.pool.KillWorker(id, graceful); err != nil {
		if errors.Is(err, task.ErrWorkerNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWorkerReady(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "workerID")
	s.queue.Ready(id)
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLease(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "workerID")

	t, ok := s.queue.Lease(id)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, t.ToLeaseObject())
}

// heartbeatRequest decodes POST /workers/{id}/heartbeat. status accepts
// either a worker-reported busy string ("busy"/"idle") or a bare bool, per
// the two wire shapes seen across worker-side reporting code; see
// heartbeatStatus.UnmarshalJSON.
type heartbeatRequest struct {
	Status heartbeatStatus `json:"status"`
	TaskID string          `json:"task_id"`
}

type heartbeatStatus struct {
	set  bool
	busy bool
}

func (h *heartbeatStatus) UnmarshalJSON(data []byte) error {
	var asBool bool
	if err := json.Unmarshal(data, &asBool); err == nil {
		h.set = true
		h.busy = asBool
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return err
	}
	h.set = true
	h.busy = asString == "busy"
	return nil
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "workerID")

	var req heartbeatRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	hb := task.Heartbeat{TaskID: req.TaskID}
	if req.Status.set {
		hb.Busy = &req.Status.busy
	}

	if err := s.queue.ApplyHeartbeat(id, hb); err != nil {
		if errors.Is(err, task.ErrWorkerNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type doneRequest struct {
	TaskID         string `json:"task_id"`
	Success        bool   `json:"success"`
	VideoDirectory string `json:"video_directory"`
	ErrorMessage   string `json:"error_message"`
}

func (s *Server) handleDone(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "workerID")

	var req doneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.queue.Done(id, req.TaskID, req.Success, req.VideoDirectory, req.ErrorMessage); err != nil {
		if errors.Is(err, task.ErrTaskNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := "completed"
	if !req.Success {
		result = "failed"
	}
	duration := 0.0
	if t, err := s.queue.GetTask(req.TaskID); err == nil && t.CompletedAt != nil {
		duration = t.CompletedAt.Sub(t.CreatedAt).Seconds()
	}
	metrics.RecordTaskCompletion(result, duration)
	logger.WithWorkerTask(id, req.TaskID).Info().Str("result", result).Msg("task done reported")

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req task.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.JobID == "" || req.LevelSequence == "" {
		respondError(w, http.StatusBadRequest, "job_id and level_sequence are required")
		return
	}

	t := task.New(req)
	s.queue.AddTask(t)
	metrics.RecordTaskSubmission()

	logger.WithTask(t.ID).Info().Str("job_id", t.JobID).Msg("task submitted")

	respondJSON(w, http.StatusCreated, map[string]string{
		"task_id": t.ID,
		"status":  string(t.Status),
	})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	t, err := s.queue.GetTask(id)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	status := task.Status(r.URL.Query().Get("status"))

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	respondJSON(w, http.StatusOK, s.queue.ListTasks(status, limit))
}

func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	if err := s.queue.Cancel(id); err != nil {
		if errors.Is(err, task.ErrTaskNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics.TasksCompleted.WithLabelValues("canceled").Inc()
	respondJSON(w, http.StatusOK, map[string]string{"status": "canceled"})
}
