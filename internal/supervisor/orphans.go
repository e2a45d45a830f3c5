package supervisor

import (
	"fmt"
	"strings"

	gopsutilprocess "github.com/shirou/gopsutil/v3/process"

	"github.com/opencueforunreal/ue-worker-pool/internal/logger"
)

// ueWorkerModeFlag is the literal token that identifies a UE process running
// in worker mode; see the UE subprocess contract in SPEC_FULL.md §6.
const ueWorkerModeFlag = "-MRQWorkerMode"

// SweepOrphans kills any running UE worker process whose command line
// carries both ueWorkerModeFlag and a ":<port>/" fragment naming this
// daemon's port (as in its -WorkerPoolBaseUrl argument; the fragment is
// matched anywhere in the command line), left over from a previous
// incarnation. It must run
// before the pool spawns its own workers.
func SweepOrphans(port int) error {
	portMarker := fmt.Sprintf(":%d/", port)

	procs, err := gopsutilprocess.Processes()
	if err != nil {
		return fmt.Errorf("enumerate processes: %w", err)
	}

	killed := 0
	for _, p := range procs {
		cmdline, err := p.Cmdline()
		if err != nil || cmdline == "" {
			continue
		}
		if !strings.Contains(cmdline, ueWorkerModeFlag) {
			continue
		}
		if !strings.Contains(cmdline, portMarker) {
			continue
		}

		pid := int(p.Pid)
		logger.Info().Int("pid", pid).Str("cmdline", cmdline).Msg("killing orphaned ue worker from previous daemon incarnation")
		if err := KillTree(pid); err != nil {
			logger.Warn().Err(err).Int("pid", pid).Msg("failed to kill orphaned ue worker")
			continue
		}
		killed++
	}

	if killed > 0 {
		logger.Info().Int("count", killed).Msg("orphan sweep complete")
	}
	return nil
}

// killDescendantsFallback enumerates the process table by parent-pid and
// kills pid's descendants deepest-first, then pid itself. Used when the
// fast process-group kill path is unavailable (killProcessGroup error, or
// the Windows build where there is no process-group equivalent).
func killDescendantsFallback(pid int) error {
	procs, err := gopsutilprocess.Processes()
	if err != nil {
		return fmt.Errorf("enumerate processes for tree kill: %w", err)
	}

	children := map[int32][]int32{}
	for _, p := range procs {
		ppid, err := p.Ppid()
		if err != nil {
			continue
		}
		children[ppid] = append(children[ppid], p.Pid)
	}

	var order []int32
	var walk func(root int32)
	walk = func(root int32) {
		for _, c := range children[root] {
			walk(c)
			order = append(order, c)
		}
	}
	walk(int32(pid))
	order = append(order, int32(pid))

	var lastErr error
	for _, target := range order {
		proc, err := gopsutilprocess.NewProcess(target)
		if err != nil {
			continue // already gone
		}
		if err := proc.Kill(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
