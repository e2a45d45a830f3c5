package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/opencueforunreal/ue-worker-pool/internal/config"
	"github.com/opencueforunreal/ue-worker-pool/internal/logger"
	"github.com/opencueforunreal/ue-worker-pool/internal/runner"
)

var (
	oneShotPlanPath     string
	oneShotPlanSHA256   string
	oneShotWorkRoot     string
	oneShotUProjectPath string
	oneShotUECmdPath    string
	oneShotUERoot       string
	oneShotTaskIndex    int
	oneShotTaskIndexSet bool
)

var runOneShotCmd = &cobra.Command{
	Use:   "run-one-shot-plan",
	Short: "Launch UE synchronously against a single task in a render plan",
	RunE:  runRunOneShot,
}

func init() {
	rootCmd.AddCommand(runOneShotCmd)

	runOneShotCmd.Flags().StringVar(&oneShotPlanPath, "plan-path", "", "path to render_plan.json (required)")
	runOneShotCmd.Flags().StringVar(&oneShotPlanSHA256, "plan-sha256", "", "expected SHA-256 checksum of the plan file")
	runOneShotCmd.Flags().StringVar(&oneShotWorkRoot, "work-root", ".", "directory for per-task logs and runtime summaries")
	runOneShotCmd.Flags().StringVar(&oneShotUProjectPath, "uproject-path", "", "explicit .uproject path")
	runOneShotCmd.Flags().StringVar(&oneShotUECmdPath, "ue-cmd-path", "", "explicit UnrealEditor-Cmd path")
	runOneShotCmd.Flags().StringVar(&oneShotUERoot, "ue-root", "", "engine install root, used to derive the cmd path")
	runOneShotCmd.Flags().IntVar(&oneShotTaskIndex, "task-index", 0, "task index, used when CUE_IFRAME/CUE_FRAME yield none")

	runOneShotCmd.MarkFlagRequired("plan-path")
}

func runRunOneShot(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger.Init(cfg.Logging)

	oneShotTaskIndexSet = cmd.Flags().Changed("task-index")

	opts := runner.Options{
		PlanPath:     oneShotPlanPath,
		PlanSHA256:   oneShotPlanSHA256,
		WorkRoot:     oneShotWorkRoot,
		UProjectPath: oneShotUProjectPath,
		UECmdPath:    oneShotUECmdPath,
		UERoot:       oneShotUERoot,
	}
	if oneShotTaskIndexSet {
		idx := oneShotTaskIndex
		opts.TaskIndex = &idx
	}

	exitCode := runner.Run(context.Background(), opts, cfg.Runner)
	os.Exit(exitCode)
	return nil
}
