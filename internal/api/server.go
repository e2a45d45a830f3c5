// Package api wires the HTTP surface documented in SPEC_FULL.md's external
// interfaces table onto the in-memory task queue and worker pool manager.
// There is no auth, no rate limiting, and no websocket hub: this daemon is a
// single trusted process on the render host, not a multi-tenant gateway.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apimiddleware "github.com/opencueforunreal/ue-worker-pool/internal/api/middleware"
	"github.com/opencueforunreal/ue-worker-pool/internal/config"
	"github.com/opencueforunreal/ue-worker-pool/internal/task"
	"github.com/opencueforunreal/ue-worker-pool/internal/worker"
)

// Server is the daemon's HTTP surface: health/status, worker lifecycle and
// leasing, task submission/query/cancel, and Prometheus exposition.
type Server struct {
	router *chi.Mux
	queue  *task.Queue
	pool   *worker.Pool
	cfg    config.MetricsConfig
	hostIP string
}

// NewServer builds the router bound to an already-running queue and pool.
func NewServer(q *task.Queue, p *worker.Pool, hostIP string, cfg config.MetricsConfig) *Server {
	s := &Server{
		router: chi.NewRouter(),
		queue:  q,
		pool:   p,
		cfg:    cfg,
		hostIP: hostIP,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(apimiddleware.RequestLogger())
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/status", s.handleStatus)

	s.router.Get("/workers", s.handleListWorkers)
	s.router.Post("/workers/scale", s.handleScale)
	s.router.Delete("/workers/{workerID}", s.handleKillWorker)
	s.router.Post("/workers/{workerID}/ready", s.handleWorkerReady)
	s.router.Get("/workers/{workerID}/lease", s.handleLease)
	s.router.Post("/workers/{workerID}/heartbeat", s.handleHeartbeat)
	s.router.Post("/workers/{workerID}/done", s.handleDone)

	s.router.Post("/tasks", s.handleCreateTask)
	s.router.Get("/tasks/{taskID}", s.handleGetTask)
	s.router.Get("/tasks", s.handleListTasks)
	s.router.Post("/tasks/{taskID}/cancel", s.handleCancelTask)

	if s.cfg.Enabled {
		s.router.Handle(s.cfg.Path, promhttp.Handler())
	}
}

// Router returns the chi router for use with http.Server.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
