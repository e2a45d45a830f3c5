package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencueforunreal/ue-worker-pool/pkg/client"
)

var (
	runTaskJobID         string
	runTaskLevelSequence string
	runTaskMapPath       string
	runTaskMovieQuality  int
	runTaskMovieFormat   string
	runTaskPoolURL       string
	runTaskPollInterval  float64
	runTaskTimeout       float64
	runTaskExtraParams   string
)

var runTaskCmd = &cobra.Command{
	Use:   "run-task",
	Short: "Submit a render task to a running worker pool and wait for it",
	RunE:  runRunTask,
}

func init() {
	rootCmd.AddCommand(runTaskCmd)

	runTaskCmd.Flags().StringVar(&runTaskJobID, "job-id", "", "job id for tracking (required)")
	runTaskCmd.Flags().StringVar(&runTaskLevelSequence, "level-sequence", "", "level sequence asset path (required)")
	runTaskCmd.Flags().StringVar(&runTaskMapPath, "map-path", "", "map asset path")
	runTaskCmd.Flags().IntVar(&runTaskMovieQuality, "movie-quality", 1, "movie quality 0=LOW..3=EPIC")
	runTaskCmd.Flags().StringVar(&runTaskMovieFormat, "movie-format", "mp4", "output format: mp4|mov")
	runTaskCmd.Flags().StringVar(&runTaskPoolURL, "worker-pool-url", "http://127.0.0.1:9100/", "worker pool base URL")
	runTaskCmd.Flags().Float64Var(&runTaskPollInterval, "poll-interval", 5.0, "polling interval in seconds")
	runTaskCmd.Flags().Float64Var(&runTaskTimeout, "timeout", 3600.0, "maximum time to wait in seconds")
	runTaskCmd.Flags().StringVar(&runTaskExtraParams, "extra-params", "", "extra params as a JSON object")

	runTaskCmd.MarkFlagRequired("job-id")
	runTaskCmd.MarkFlagRequired("level-sequence")
}

func runRunTask(cmd *cobra.Command, args []string) error {
	extraParams := map[string]string{}
	if runTaskExtraParams != "" {
		if err := json.Unmarshal([]byte(runTaskExtraParams), &extraParams); err != nil {
			return writeResultAndExit(map[string]interface{}{
				"ok":    false,
				"error": fmt.Sprintf("invalid --extra-params JSON: %v", err),
			})
		}
	}

	c := client.New(runTaskPoolURL)
	ctx := context.Background()

	taskID, err := c.CreateTask(ctx, client.CreateTaskRequest{
		JobID:         runTaskJobID,
		LevelSequence: runTaskLevelSequence,
		MapPath:       runTaskMapPath,
		MovieQuality:  runTaskMovieQuality,
		MovieFormat:   runTaskMovieFormat,
		ExtraParams:   extraParams,
	})
	if err != nil {
		return writeResultAndExit(map[string]interface{}{
			"ok":    false,
			"error": fmt.Sprintf("failed to submit task: %v", err),
		})
	}

	pollInterval := time.Duration(runTaskPollInterval * float64(time.Second))
	timeout := time.Duration(runTaskTimeout * float64(time.Second))

	final, err := c.WaitForCompletion(ctx, taskID, pollInterval, timeout, nil)
	if err != nil {
		return writeResultAndExit(map[string]interface{}{
			"ok":      false,
			"task_id": taskID,
			"error":   err.Error(),
		})
	}

	return writeResultAndExit(map[string]interface{}{
		"ok":              final.Status == "completed",
		"task_id":         final.TaskID,
		"status":          final.Status,
		"video_directory": final.VideoDirectory,
		"error_message":   final.ErrorMessage,
	})
}

// writeResultAndExit writes a single JSON line to stdout and exits 0 if
// result["ok"] is true, 1 otherwise, per the CLI surface's documented
// contract for both agent and submitter binaries.
func writeResultAndExit(result map[string]interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(result); err != nil {
		return err
	}
	ok, _ := result["ok"].(bool)
	if !ok {
		os.Exit(1)
	}
	os.Exit(0)
	return nil
}
