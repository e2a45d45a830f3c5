//go:build !windows

package supervisor

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// isProcessAlive checks liveness with a signal-0 probe: EPERM means the
// process exists but we lack permission to signal it; ESRCH means it's gone.
// A process that answers the probe but whose /proc/<pid>/stat state is 'Z'
// is a zombie and reported as not alive; where /proc is absent, zombies are
// not told apart from live processes.
func isProcessAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	if err == nil || errors.Is(err, syscall.EPERM) {
		if data, rerr := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid)); rerr == nil {
			if i := bytes.LastIndexByte(data, ')'); i >= 0 && i+2 < len(data) && data[i+2] == 'Z' {
				return false
			}
		}
	}
	if err == nil {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPERM
	}
	return false
}

// setProcessGroup places the child in its own process group so the whole
// subtree can be killed with a single negated-pid signal.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup sends SIGKILL to the negated pid, which on Unix targets
// every process in pid's process group (valid only when Launch placed the
// child in its own group via setProcessGroup).
func killProcessGroup(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}
