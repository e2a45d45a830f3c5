// Package worker implements the Worker Pool Manager: it spawns and
// supervises persistent UE Editor worker processes, runs the background
// reconciliation loop that keeps the queue's worker bookkeeping in sync with
// real process liveness, and exposes pool-sizing operations (scale up/down,
// graceful kill) for the HTTP surface to call into.
package worker

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/opencueforunreal/ue-worker-pool/internal/config"
	"github.com/opencueforunreal/ue-worker-pool/internal/logger"
	"github.com/opencueforunreal/ue-worker-pool/internal/metrics"
	"github.com/opencueforunreal/ue-worker-pool/internal/supervisor"
	"github.com/opencueforunreal/ue-worker-pool/internal/task"
	"github.com/opencueforunreal/ue-worker-pool/internal/uepath"
)

const (
	reconcileInterval = 10 * time.Second

	// workerStartupGrace is the age-since-spawn an IDLE/BUSY worker must
	// reach before its heartbeat age is even considered (step 2 of the
	// reconcile loop). It is a fixed internal constant, not one of the
	// documented env vars: unlike WORKER_STARTUP_TIMEOUT (which bounds the
	// STARTING phase and is configurable), this grace period exists purely
	// to avoid killing a worker whose UE process is still cold-starting and
	// hasn't sent its first heartbeat yet.
	workerStartupGrace = 300 * time.Second
)

// Pool owns every worker this daemon has spawned: it launches UE in worker
// mode, tracks the OS-level process handle per worker id, and reconciles
// that reality against the queue's worker records every 10s.
type Pool struct {
	cfg   config.WorkerPoolConfig
	queue *task.Queue
	sup   *supervisor.Supervisor

	mu         sync.Mutex
	handles    map[string]*supervisor.Handle
	nextIndex  int
	deadIDPool []string // recently-deceased ids, reused before fresh allocation
	hostIP     string

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewPool builds a pool bound to a queue and process supervisor. Neither is
// started until Start is called.
func NewPool(cfg config.WorkerPoolConfig, q *task.Queue, sup *supervisor.Supervisor) *Pool {
	return &Pool{
		cfg:     cfg,
		queue:   q,
		sup:     sup,
		handles: make(map[string]*supervisor.Handle),
		hostIP:  LocalIP(),
		stopCh:  make(chan struct{}),
	}
}

// HostIP returns the host IP this pool's worker ids are prefixed with.
func (p *Pool) HostIP() string {
	return p.hostIP
}

// Start sweeps orphaned workers from a previous daemon incarnation, spawns
// up to MinWorkers, and begins the background reconciliation loop.
func (p *Pool) Start(ctx context.Context) error {
	if err := supervisor.SweepOrphans(p.cfg.Port); err != nil {
		logger.Warn().Err(err).Msg("orphan sweep failed, continuing")
	}

	for i := 0; i < p.cfg.MinWorkers; i++ {
		if err := p.spawnOne(); err != nil {
			logger.Error().Err(err).Msg("failed to spawn initial worker")
		}
	}

	p.wg.Add(1)
	go p.reconcileLoop(ctx)

	logger.Info().Int("min_workers", p.cfg.MinWorkers).Int("max_workers", p.cfg.MaxWorkers).Msg("worker pool started")
	return nil
}

// Stop cancels the reconciliation loop, then kills every tracked worker's
// process subtree.
func (p *Pool) Stop(ctx context.Context) error {
	close(p.stopCh)
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	for id, h := range p.handles {
		if err := supervisor.KillTree(h.PID); err != nil {
			logger.Warn().Err(err).Str("worker_id", id).Msg("failed to kill worker on shutdown")
		}
	}
	logger.Info().Msg("worker pool stopped")
	return nil
}

func (p *Pool) reconcileLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.reconcileOnce()
		}
	}
}

// ReconcileNow runs one reconciliation pass synchronously, outside the
// ticker. Exposed for tests that need a deterministic reconcile rather than
// waiting on the 10s ticker.
func (p *Pool) ReconcileNow() {
	p.reconcileOnce()
}

// reconcileOnce runs the five numbered steps of the reconciliation loop.
func (p *Pool) reconcileOnce() {
	metrics.ReconcileRuns.Inc()
	now := time.Now()

	var toKill []string   // process subtree kill needed (pid already known dead or must be force-killed)
	var toMarkDead []string

	p.queue.WithLock(func(tasks map[string]*task.Task, workers map[string]*task.Worker) {
		for id, w := range workers {
			switch w.Status {
			case task.WorkerStopping, task.WorkerDead:
				continue
			}

			// Step 1: pid liveness.
			if w.PID != 0 && !supervisor.IsAlive(w.PID) {
				toMarkDead = append(toMarkDead, id)
				continue
			}

			age := now.Sub(w.SpawnedAt)

			// Step 2: IDLE/BUSY heartbeat timeout, gated by startup grace.
			if w.Status == task.WorkerIdle || w.Status == task.WorkerBusy {
				if age >= workerStartupGrace && now.Sub(w.LastHeartbeat) > p.cfg.HeartbeatTimeout {
					toKill = append(toKill, id)
					toMarkDead = append(toMarkDead, id)
				}
				continue
			}

			// Step 3: STARTING timeout.
			if w.Status == task.WorkerStarting && age > p.cfg.WorkerStartupTimeout {
				toKill = append(toKill, id)
				toMarkDead = append(toMarkDead, id)
			}
		}
	})

	p.mu.Lock()
	for _, id := range toKill {
		if h, ok := p.handles[id]; ok {
			if err := supervisor.KillTree(h.PID); err != nil {
				logger.Warn().Err(err).Str("worker_id", id).Msg("reconcile: failed to kill timed-out worker")
			}
		}
	}
	p.mu.Unlock()

	// Step 4 is folded into MarkDead (re-queues the bound task).
	for _, id := range toMarkDead {
		dead, err := p.queue.MarkDead(id)
		if err != nil {
			continue
		}
		if dead.RequeuedTaskID != "" {
			logger.WithWorkerTask(id, dead.RequeuedTaskID).Info().Msg("worker marked dead by reconcile loop, task requeued")
		} else {
			logger.WithWorker(id).Info().Msg("worker marked dead by reconcile loop")
		}
		p.retireHandle(id)
	}

	// Step 5: top up to MinWorkers, preferring STARTING/IDLE/BUSY count.
	active := p.queue.CountActiveWorkers()
	for active < p.cfg.MinWorkers {
		if err := p.spawnOne(); err != nil {
			logger.Error().Err(err).Msg("reconcile: failed to respawn worker")
			break
		}
		metrics.WorkerRespawns.Inc()
		active++
	}

	p.reportGaugeCounts()
}

func (p *Pool) reportGaugeCounts() {
	wc := p.queue.WorkerCounts()
	metrics.SetWorkersTotal("idle", float64(wc.Idle))
	metrics.SetWorkersTotal("busy", float64(wc.Busy))
	metrics.SetWorkersTotal("starting", float64(wc.Starting))
	metrics.SetWorkersTotal("dead", float64(wc.Dead))

	tc := p.queue.TaskCounts()
	metrics.SetQueueDepth("pending", float64(tc.Pending))
	metrics.SetQueueDepth("assigned", float64(tc.Assigned))
	metrics.SetQueueDepth("running", float64(tc.Running))
}

// Scale clamps target to [MinWorkers, MaxWorkers] and spawns or kills
// workers to reach it. Scaling down kills IDLE workers oldest-first; BUSY
// workers are never preempted. Returns the clamped target actually pursued.
func (p *Pool) Scale(target int) (int, error) {
	if target < p.cfg.MinWorkers {
		target = p.cfg.MinWorkers
	}
	if target > p.cfg.MaxWorkers {
		target = p.cfg.MaxWorkers
	}

	current := p.queue.CountActiveWorkers()
	if target > current {
		for i := 0; i < target-current; i++ {
			if err := p.spawnOne(); err != nil {
				return target, fmt.Errorf("scale up: %w", err)
			}
		}
		return target, nil
	}

	if target < current {
		idle := p.queue.ListIdleWorkers()
		sort.Slice(idle, func(i, j int) bool { return idle[i].SpawnedAt.Before(idle[j].SpawnedAt) })
		need := current - target
		for i := 0; i < need && i < len(idle); i++ {
			if err := p.KillWorker(idle[i].ID, false); err != nil {
				logger.Warn().Err(err).Str("worker_id", idle[i].ID).Msg("scale down: failed to kill idle worker")
			}
		}
	}
	return target, nil
}

// KillWorker kills a worker's process subtree and marks it DEAD. If graceful
// is true it first waits up to 3 seconds, without sending any signal, before
// forcing the subtree kill (giving UE a bounded window to exit on its own).
func (p *Pool) KillWorker(id string, graceful bool) error {
	w, err := p.queue.GetWorker(id)
	if err != nil {
		return err
	}

	p.mu.Lock()
	h, tracked := p.handles[id]
	p.mu.Unlock()

	if tracked {
		if graceful {
			supervisor.WaitForExit(h.PID, 3*time.Second)
		}
		if supervisor.IsAlive(h.PID) {
			if err := supervisor.KillTree(h.PID); err != nil {
				return fmt.Errorf("kill worker %s: %w", id, err)
			}
		}
	} else if w.PID != 0 {
		supervisor.KillTree(w.PID)
	}

	if _, err := p.queue.MarkDead(id); err != nil {
		return err
	}
	p.retireHandle(id)
	return nil
}

func (p *Pool) retireHandle(id string) {
	p.mu.Lock()
	delete(p.handles, id)
	p.deadIDPool = append(p.deadIDPool, id)
	p.mu.Unlock()
}

// spawnOne allocates a worker id (reusing a recently-deceased one when
// available, for log-file continuity), launches UE in persistent worker
// mode, and registers the worker in the queue as STARTING.
func (p *Pool) spawnOne() error {
	id := p.allocateID()

	args, err := p.buildArgs(id)
	if err != nil {
		return err
	}

	env := []string{"NO_PROXY=localhost,127.0.0.1"}
	h, err := p.sup.Launch(context.Background(), id, p.uecmdPath(), args, p.cfg.LogRoot, env)
	if err != nil {
		return fmt.Errorf("launch worker %s: %w", id, err)
	}

	p.mu.Lock()
	p.handles[id] = h
	p.mu.Unlock()

	p.queue.RegisterWorker(task.NewWorker(id, h.PID))
	logger.WithWorker(id).Info().Int("pid", h.PID).Msg("spawned worker")
	return nil
}

func (p *Pool) allocateID() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.deadIDPool); n > 0 {
		id := p.deadIDPool[n-1]
		p.deadIDPool = p.deadIDPool[:n-1]
		return id
	}

	id := fmt.Sprintf("%s-w%d", p.hostIP, p.nextIndex)
	p.nextIndex++
	return id
}

func (p *Pool) uecmdPath() string {
	cmd, _ := uepath.ResolveUECmd("", "", p.cfg.UERoot, "", p.cfg.UERoot)
	return cmd
}

// buildArgs assembles the persistent-mode UE subprocess contract: the
// project file plus worker-mode flags naming this worker's id and the
// daemon's own base URL.
func (p *Pool) buildArgs(workerID string) ([]string, error) {
	uproject, candidates := uepath.ResolveUProject("", "", p.cfg.UProject, "", "")
	if uproject == "" {
		return nil, fmt.Errorf("%w: checked %v", uepath.ErrUProjectNotFound, candidates)
	}

	absLog := filepath.Join(p.cfg.LogRoot, workerID+".ue.log")
	baseURL := fmt.Sprintf("http://127.0.0.1:%d/", p.cfg.Port)

	return []string{
		uproject,
		"-MRQWorkerMode",
		"-MRQWorkerId=" + workerID,
		"-WorkerPoolBaseUrl=" + baseURL,
		"-MoviePipelineLocalExecutorClass=" + p.cfg.ExecutorClass,
		"-Unattended",
		"-NoLoadingScreen",
		"-notexturestreaming",
		"-stdout",
		"-ABSLOG=" + absLog,
	}, nil
}

// LocalIP returns the first non-loopback IPv4 address of this host, or
// "127.0.0.1" if none can be determined. Used as the worker id prefix.
func LocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if v4 := ipNet.IP.To4(); v4 != nil {
			return v4.String()
		}
	}
	return "127.0.0.1"
}
