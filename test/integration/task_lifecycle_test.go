package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencueforunreal/ue-worker-pool/internal/api"
	"github.com/opencueforunreal/ue-worker-pool/internal/config"
	"github.com/opencueforunreal/ue-worker-pool/internal/supervisor"
	"github.com/opencueforunreal/ue-worker-pool/internal/task"
	"github.com/opencueforunreal/ue-worker-pool/internal/worker"
)

// setupServer builds a queue + pool + HTTP server with MinWorkers=0 so no
// real UE process is spawned; workers are registered directly in tests that
// need one, mirroring how the pool itself would have registered them.
func setupServer(t *testing.T) (*httptest.Server, *task.Queue, *worker.Pool) {
	t.Helper()
	q := task.NewQueue()
	cfg := config.WorkerPoolConfig{
		Port:                 9100,
		MinWorkers:           0,
		MaxWorkers:           3,
		HeartbeatTimeout:     60 * time.Second,
		WorkerStartupTimeout: 300 * time.Second,
		LogRoot:              t.TempDir(),
	}
	p := worker.NewPool(cfg, q, supervisor.New())
	s := api.NewServer(q, p, p.HostIP(), config.MetricsConfig{Enabled: true, Path: "/metrics"})
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return srv, q, p
}

func doJSON(t *testing.T, method, url string, body interface{}, out interface{}) int {
	t.Helper()
	var reqBody *strings.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = strings.NewReader(string(b))
	} else {
		reqBody = strings.NewReader("")
	}

	req, err := http.NewRequest(method, url, reqBody)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// TestHappyLease exercises scenario 1: a single worker leases the one
// submitted task, heartbeats into RUNNING, and reports success.
func TestHappyLease(t *testing.T) {
	srv, q, _ := setupServer(t)

	w := task.NewWorker("host-w0", 111)
	q.RegisterWorker(w)
	status := doJSON(t, http.MethodPost, srv.URL+"/workers/host-w0/ready", nil, nil)
	require.Equal(t, http.StatusOK, status)

	var created struct {
		TaskID string `json:"task_id"`
	}
	status = doJSON(t, http.MethodPost, srv.URL+"/tasks", task.CreateTaskRequest{
		JobID:         "j1",
		LevelSequence: "/Game/Seqs/S.S",
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, created.TaskID)

	var lease task.LeaseObject
	status = doJSON(t, http.MethodGet, srv.URL+"/workers/host-w0/lease", nil, &lease)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, created.TaskID, lease.TaskID)
	assert.Equal(t, "j1", lease.JobID)

	status = doJSON(t, http.MethodPost, srv.URL+"/workers/host-w0/heartbeat", map[string]interface{}{
		"task_id": created.TaskID,
		"status":  "busy",
	}, nil)
	require.Equal(t, http.StatusOK, status)

	got, err := q.GetTask(created.TaskID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusRunning, got.Status)

	status = doJSON(t, http.MethodPost, srv.URL+"/workers/host-w0/done", map[string]interface{}{
		"task_id":         created.TaskID,
		"success":         true,
		"video_directory": "/tmp/out/j1",
	}, nil)
	require.Equal(t, http.StatusOK, status)

	got, err = q.GetTask(created.TaskID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, got.Status)
	assert.True(t, got.Success)

	wk, err := q.GetWorker("host-w0")
	require.NoError(t, err)
	assert.EqualValues(t, 1, wk.TasksCompleted)
}

// TestWorkerCrashDuringTask exercises scenario 3: a real OS process stands
// in for the UE worker, leases a task, then dies; the reconcile loop must
// detect the dead pid and requeue the task to PENDING.
func TestWorkerCrashDuringTask(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a real child process")
	}

	q := task.NewQueue()
	sup := supervisor.New()

	h, err := sup.Launch(context.Background(), "host-w0", "/bin/sleep", []string{"30"}, t.TempDir(), nil)
	require.NoError(t, err)

	w := task.NewWorker("host-w0", h.PID)
	w.Status = task.WorkerIdle
	w.LastHeartbeat = time.Now()
	q.RegisterWorker(w)

	tk := task.New(task.CreateTaskRequest{JobID: "j2", LevelSequence: "/Game/Seqs/S.S"})
	q.AddTask(tk)

	leased, ok := q.Lease("host-w0")
	require.True(t, ok)
	require.Equal(t, tk.ID, leased.ID)

	require.NoError(t, supervisor.KillTree(h.PID))
	require.Eventually(t, func() bool { return !supervisor.IsAlive(h.PID) }, 2*time.Second, 20*time.Millisecond)

	cfg := config.WorkerPoolConfig{
		Port:             9100,
		MinWorkers:       0,
		MaxWorkers:       3,
		HeartbeatTimeout: 60 * time.Second,
		LogRoot:          t.TempDir(),
	}
	p := worker.NewPool(cfg, q, sup)
	p.ReconcileNow()

	got, err := q.GetTask(tk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusPending, got.Status)

	dead, err := q.GetWorker("host-w0")
	require.NoError(t, err)
	assert.Equal(t, task.WorkerDead, dead.Status)
}

// TestCancelPending exercises scenario 4: a PENDING task canceled before any
// lease moves straight to CANCELED and is no longer leasable.
func TestCancelPending(t *testing.T) {
	srv, q, _ := setupServer(t)

	w := task.NewWorker("host-w0", 111)
	q.RegisterWorker(w)
	doJSON(t, http.MethodPost, srv.URL+"/workers/host-w0/ready", nil, nil)

	var created struct {
		TaskID string `json:"task_id"`
	}
	status := doJSON(t, http.MethodPost, srv.URL+"/tasks", task.CreateTaskRequest{JobID: "j3", LevelSequence: "/Game/Seqs/S.S"}, &created)
	require.Equal(t, http.StatusCreated, status)

	status = doJSON(t, http.MethodPost, srv.URL+"/tasks/"+created.TaskID+"/cancel", nil, nil)
	require.Equal(t, http.StatusOK, status)

	got, err := q.GetTask(created.TaskID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCanceled, got.Status)

	status = doJSON(t, http.MethodGet, srv.URL+"/workers/host-w0/lease", nil, nil)
	assert.Equal(t, http.StatusNoContent, status)
}

// TestCancelRunning_Rejected documents the state-machine boundary noted in
// the design notes: cancel is refused once a task is RUNNING.
func TestCancelRunning_Rejected(t *testing.T) {
	srv, q, _ := setupServer(t)

	w := task.NewWorker("host-w0", 111)
	q.RegisterWorker(w)
	doJSON(t, http.MethodPost, srv.URL+"/workers/host-w0/ready", nil, nil)

	var created struct {
		TaskID string `json:"task_id"`
	}
	doJSON(t, http.MethodPost, srv.URL+"/tasks", task.CreateTaskRequest{JobID: "j4", LevelSequence: "/Game/Seqs/S.S"}, &created)
	doJSON(t, http.MethodGet, srv.URL+"/workers/host-w0/lease", nil, nil)
	doJSON(t, http.MethodPost, srv.URL+"/workers/host-w0/heartbeat", map[string]interface{}{
		"task_id": created.TaskID,
		"status":  "busy",
	}, nil)

	status := doJSON(t, http.MethodPost, srv.URL+"/tasks/"+created.TaskID+"/cancel", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

// TestOrphanCleanup exercises scenario 5: a leftover UE-worker-shaped
// process on the daemon's port is killed by the sweep before the pool
// spawns anything of its own.
func TestOrphanCleanup(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a real child process")
	}

	port := 19100
	sup := supervisor.New()
	// sleep itself rejects dash-prefixed arguments, so a shell carries the
	// UE-worker-shaped tokens in its own command line while sleeping.
	h, err := sup.Launch(context.Background(), "orphan", "/bin/sh", []string{
		"-c", "sleep 30; true", "-MRQWorkerMode", "-WorkerPoolBaseUrl=http://127.0.0.1:19100/",
	}, t.TempDir(), nil)
	require.NoError(t, err)
	require.True(t, supervisor.IsAlive(h.PID))

	require.NoError(t, supervisor.SweepOrphans(port))

	require.Eventually(t, func() bool { return !supervisor.IsAlive(h.PID) }, 2*time.Second, 20*time.Millisecond)
}

// TestListTasks_FiltersByStatusAndLimit sanity-checks GET /tasks?status=&limit=.
func TestListTasks_FiltersByStatusAndLimit(t *testing.T) {
	srv, _, _ := setupServer(t)

	for i := 0; i < 3; i++ {
		doJSON(t, http.MethodPost, srv.URL+"/tasks", task.CreateTaskRequest{JobID: "j", LevelSequence: "/Game/Seqs/S.S"}, nil)
	}

	var list []task.Task
	status := doJSON(t, http.MethodGet, srv.URL+"/tasks?status=pending&limit=2", nil, &list)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, list, 2)
}

func TestHealthAndStatusEndpoints(t *testing.T) {
	srv, _, _ := setupServer(t)

	var health map[string]string
	status := doJSON(t, http.MethodGet, srv.URL+"/health", nil, &health)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", health["status"])

	var st struct {
		HostIP string `json:"host_ip"`
	}
	status = doJSON(t, http.MethodGet, srv.URL+"/status", nil, &st)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, st.HostIP)
}
