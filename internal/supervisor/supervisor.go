// Package supervisor spawns and supervises UE Editor child processes: it
// launches them with a prescribed argument vector, captures their output to
// a per-worker log file, kills a process and its entire descendant subtree,
// tests pid liveness, and sweeps the process table for orphans left behind
// by a previous daemon incarnation.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/opencueforunreal/ue-worker-pool/internal/logger"
)

var ErrUEExecutableNotFound = fmt.Errorf("ue executable not found under configured engine root")

// Handle is the supervisor's view of a launched child: its pid and a way to
// wait for (or force) its exit.
type Handle struct {
	PID     int
	LogPath string

	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

// Wait blocks until the process exits and returns its wait error (nil on a
// clean zero exit). Safe to call more than once.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// ExitCode returns the child's exit code once Wait has returned, or -1.
func (h *Handle) ExitCode() int {
	if h.cmd.ProcessState == nil {
		return -1
	}
	return h.cmd.ProcessState.ExitCode()
}

// Supervisor launches and tracks UE child processes for one daemon instance.
// It carries no state of its own beyond what's needed to launch — the pool
// manager is the one tracking which Handle belongs to which worker id.
type Supervisor struct{}

func New() *Supervisor {
	return &Supervisor{}
}

// Launch starts the UE binary at path with args, placing it in its own
// process group (so KillTree can signal the whole subtree) and redirecting
// stdout/stderr to a per-worker log file under logDir named "<workerID>.log".
func (s *Supervisor) Launch(ctx context.Context, workerID, path string, args []string, logDir string, env []string) (*Handle, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUEExecutableNotFound, path)
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	logPath := filepath.Join(logDir, workerID+".log")
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create worker log file: %w", err)
	}

	cmd := exec.Command(path, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if env != nil {
		cmd.Env = append(os.Environ(), env...)
	}
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return nil, fmt.Errorf("start ue process: %w", err)
	}

	h := &Handle{PID: cmd.Process.Pid, LogPath: logPath, cmd: cmd, done: make(chan struct{})}
	go func() {
		h.err = cmd.Wait()
		logFile.Close()
		close(h.done)
	}()

	logger.WithWorker(workerID).Info().
		Int("pid", h.PID).
		Str("log_path", logPath).
		Msg("launched ue worker process")

	return h, nil
}

// IsAlive reports whether pid refers to a live, non-zombie process.
func IsAlive(pid int) bool {
	return isProcessAlive(pid)
}

// KillTree kills pid and its descendant subtree. It first attempts a
// process-group signal (the fast path, since Launch places every child in
// its own group); if that fails it falls back to enumerating descendants by
// parent-pid and killing each individually, deepest first.
func KillTree(pid int) error {
	if err := killProcessGroup(pid); err == nil {
		return nil
	}
	return killDescendantsFallback(pid)
}

// WaitForExit blocks up to timeout for pid to stop being alive. Used after a
// graceful kill signal to give the process a bounded window to exit before
// the supervisor considers it gone.
func WaitForExit(pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !IsAlive(pid) {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return !IsAlive(pid)
}
