// Package runner implements the one-shot task runner: given a render plan,
// a task index, and resolved UE paths, it launches UnrealEditor-Cmd
// synchronously, tails its log for progress, and reports UE's exit code as
// its own.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opencueforunreal/ue-worker-pool/internal/config"
	"github.com/opencueforunreal/ue-worker-pool/internal/logger"
	"github.com/opencueforunreal/ue-worker-pool/internal/plan"
	"github.com/opencueforunreal/ue-worker-pool/internal/progress"
	"github.com/opencueforunreal/ue-worker-pool/internal/supervisor"
	"github.com/opencueforunreal/ue-worker-pool/internal/uepath"
)

// Options carries the one-shot runner's CLI-derived inputs.
type Options struct {
	PlanPath     string
	PlanSHA256   string
	WorkRoot     string
	UProjectPath string
	UECmdPath    string
	UERoot       string
	TaskIndex    *int
}

// Run executes the full one-shot sequence and returns the process exit
// code: UE's own exit code on a successful launch, or 1 on any
// plan-resolution, checksum, or path-resolution failure.
func Run(ctx context.Context, opts Options, cfg config.RunnerConfig) int {
	taskIndex, err := ResolveTaskIndex(opts.TaskIndex)
	if err != nil {
		logger.Error().Err(err).Msg("could not resolve task index")
		return 1
	}

	if err := os.MkdirAll(opts.WorkRoot, 0o755); err != nil {
		logger.Error().Err(err).Msg("failed to create work root")
		return 1
	}

	p, err := plan.Load(opts.PlanPath, opts.PlanSHA256)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load render plan")
		return 1
	}

	task, err := p.TaskByIndex(taskIndex)
	if err != nil {
		logger.Error().Err(err).Int("task_index", taskIndex).Msg("task not found in plan")
		return 1
	}

	uproject, uprojectCandidates := uepath.ResolveUProject(
		opts.UProjectPath, os.Getenv("UE_UPROJECT"), cfg.UEUProjectDefault,
		p.Project.UProjectHint, cfg.UEProjectRoot,
	)
	if uproject == "" {
		logger.Error().Strs("candidates", uprojectCandidates).Msg("uproject not found")
		return 1
	}

	uecmd, uecmdCandidates := uepath.ResolveUECmd(
		opts.UECmdPath, os.Getenv("UE_CMD_PATH"), opts.UERoot, os.Getenv("UE_ROOT"), cfg.UECmdPathDefault,
	)
	if uecmd == "" {
		logger.Error().Strs("candidates", uecmdCandidates).Msg("UnrealEditor-Cmd binary not found")
		return 1
	}

	logDir := filepath.Join(opts.WorkRoot, safeJobDirName(p.JobID))
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		logger.Error().Err(err).Msg("failed to create log directory")
		return 1
	}
	logPath := filepath.Join(logDir, fmt.Sprintf("task_%d.log", taskIndex))
	ueLogPath := filepath.Join(logDir, fmt.Sprintf("task_%d.ue.log", taskIndex))
	runtimePath := filepath.Join(logDir, fmt.Sprintf("task_%d.runtime.json", taskIndex))

	ueArgs := buildUEArgs(p, task, ueLogPath, cfg.WrapperHeadless)
	jobLog := logger.WithJob(p.JobID)
	jobLog.Info().Str("ue_cmd", uecmd).Str("ue_args", strings.Join(ueArgs, " ")).Msg("launching ue")

	reporter := progress.NewReporter(newFrameStatePusher())
	tailer := progress.NewLogTailer(ueLogPath, reporter.ReportLine)
	tailer.Start()
	defer tailer.Stop()

	sup := supervisor.New()
	startTime := time.Now().UTC()
	exitCode := 1

	h, launchErr := sup.Launch(ctx, fmt.Sprintf("task-%d", taskIndex), uecmd, append([]string{uproject}, ueArgs...), logDir, nil)
	if launchErr != nil {
		jobLog.Error().Err(launchErr).Msg("failed to launch ue")
	} else {
		if waitErr := h.Wait(); waitErr != nil {
			jobLog.Warn().Err(waitErr).Msg("ue process wait returned error")
		}
		exitCode = h.ExitCode()
		if err := copyProcessLog(h.LogPath, logPath); err != nil {
			jobLog.Warn().Err(err).Msg("failed to mirror ue process log")
		}
	}

	endTime := time.Now().UTC()

	if err := writeRuntimeSummary(runtimePath, p, task, opts.PlanPath, uproject, uecmd, ueLogPath, ueArgs, startTime, endTime, exitCode); err != nil {
		jobLog.Error().Err(err).Str("runtime_path", runtimePath).Msg("failed to write runtime summary")
	}

	jobLog.Info().Int("exit_code", exitCode).Msg("ue process exited")
	return exitCode
}

// buildUEArgs assembles the one-shot UE argument vector per §4.5's exact
// ordering: map URL, abs log, flush/stdout flags, -game, executor class,
// job id, level sequence, quality/format, optional headless flags, optional
// shot filter, optional frame range, then raw additional args.
func buildUEArgs(p *plan.Plan, t *plan.Task, ueLogPath string, headless bool) []string {
	mapURL := p.MapAssetPath
	if p.Render.GameModeClass != "" && !strings.Contains(strings.ToLower(mapURL), "?game=") {
		if strings.HasSuffix(mapURL, "?") {
			mapURL = mapURL + "game=" + p.Render.GameModeClass
		} else {
			mapURL = mapURL + "?game=" + p.Render.GameModeClass
		}
	}

	format := p.Render.Format
	if format == "" {
		format = "mp4"
	}

	args := []string{
		mapURL,
		"-AbsLog=" + ueLogPath,
		"-forcelogflush",
		"-stdout",
		"-FullStdOutLogOutput",
		"-game",
		"-MoviePipelineLocalExecutorClass=" + p.ExecutorClass,
		"-JobId=" + p.JobID,
		"-LevelSequence=" + p.LevelSequenceAssetPath,
		fmt.Sprintf("-MovieQuality=%d", p.Render.Quality),
		"-MovieFormat=" + format,
	}

	if headless {
		args = append(args, "-RenderOffscreen", "-Unattended", "-NOSPLASH", "-NoLoadingScreen", "-notexturestreaming")
	}

	if !t.Extensions.DisableShotFilter && t.Shot.Name != "" {
		args = append(args, "-ShotName="+t.Shot.Name)
	}

	if t.FrameRange != nil && t.FrameRange.Start != nil && t.FrameRange.End != nil {
		args = append(args,
			fmt.Sprintf("-CustomStartFrame=%d", *t.FrameRange.Start),
			fmt.Sprintf("-CustomEndFrame=%d", *t.FrameRange.End),
		)
	}

	for _, extra := range p.Render.AdditionalUEArgs {
		extra = strings.TrimSpace(extra)
		if extra != "" {
			args = append(args, extra)
		}
	}

	return args
}

type runtimeSummary struct {
	JobID      string           `json:"job_id"`
	TaskIndex  int              `json:"task_index"`
	ShotName   string           `json:"shot_name,omitempty"`
	FrameRange *plan.FrameRange `json:"frame_range,omitempty"`
	PlanPath   string           `json:"plan_path"`
	UProject   string           `json:"uproject"`
	UECmd      string           `json:"ue_cmd"`
	UELogPath  string           `json:"ue_log_path"`
	UEArgs     []string         `json:"ue_args"`
	StartTime  time.Time        `json:"start_time"`
	EndTime    time.Time        `json:"end_time"`
	ExitCode   int              `json:"exit_code"`
}

func writeRuntimeSummary(path string, p *plan.Plan, t *plan.Task, planPath, uproject, uecmd, ueLogPath string, ueArgs []string, start, end time.Time, exitCode int) error {
	summary := runtimeSummary{
		JobID:      p.JobID,
		TaskIndex:  t.TaskIndex,
		ShotName:   t.Shot.Name,
		FrameRange: t.FrameRange,
		PlanPath:   planPath,
		UProject:   uproject,
		UECmd:      uecmd,
		UELogPath:  ueLogPath,
		UEArgs:     ueArgs,
		StartTime:  start,
		EndTime:    end,
		ExitCode:   exitCode,
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal runtime summary: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func safeJobDirName(jobID string) string {
	if jobID == "" {
		return "unknown_job"
	}
	return jobID
}

// copyProcessLog mirrors the supervisor's combined stdout/stderr capture
// file to the per-task log path the runner promises in its runtime summary.
func copyProcessLog(src, dst string) error {
	if src == dst {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// newFrameStatePusher builds the progress reporter's pusher only when
// CUE_FRAME_ID names a frame to report against; otherwise progress sync
// stays a no-op, per §4.6.
func newFrameStatePusher() progress.Pusher {
	frameID := strings.TrimSpace(os.Getenv("CUE_FRAME_ID"))
	if frameID == "" {
		return nil
	}

	host := strings.TrimSpace(os.Getenv("CUEBOT_HOST"))
	if host == "" {
		host = strings.TrimSpace(os.Getenv("CUEBOT_HOSTNAME"))
	}
	if host == "" {
		logger.Warn().Msg("CUE_FRAME_ID set but no CUEBOT_HOST; progress sync disabled")
		return nil
	}
	port := strings.TrimSpace(os.Getenv("CUEBOT_PORT"))
	if port == "" {
		port = "8443"
	}

	return progress.NewHTTPPusher(fmt.Sprintf("http://%s:%s", host, port), frameID)
}
