// Package plan holds the render_plan.json shape consumed by the one-shot
// task runner, plus the verification and task-index lookup helpers it needs
// before it can build a UE argument vector.
package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Plan is the top-level shape of render_plan.json.
type Plan struct {
	JobID                  string  `json:"job_id"`
	MapAssetPath           string  `json:"map_asset_path"`
	LevelSequenceAssetPath string  `json:"level_sequence_asset_path"`
	ExecutorClass          string  `json:"executor_class"`
	Project                Project `json:"project"`
	Render                 Render  `json:"render"`
	Tasks                  []Task  `json:"tasks"`
}

type Project struct {
	UProjectHint string `json:"uproject_hint"`
}

type Render struct {
	Quality          int      `json:"quality"`
	Format           string   `json:"format"`
	GameModeClass    string   `json:"game_mode_class"`
	AdditionalUEArgs []string `json:"additional_ue_args"`
}

type Task struct {
	TaskIndex  int         `json:"task_index"`
	Shot       Shot        `json:"shot"`
	FrameRange *FrameRange `json:"frame_range"`
	Extensions Extensions  `json:"extensions"`
}

type Shot struct {
	Name string `json:"name"`
}

type FrameRange struct {
	Start *int `json:"start"`
	End   *int `json:"end"`
}

type Extensions struct {
	DisableShotFilter bool `json:"disable_shot_filter"`
}

var ErrChecksumMismatch = errors.New("plan_sha256 mismatch")
var ErrTaskNotFound = errors.New("no task found for task_index")

// Load reads and parses render_plan.json from path, verifying its SHA-256
// against expectedSHA256 first when non-empty.
func Load(path, expectedSHA256 string) (*Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("render_plan.json not found at %s: %w", path, err)
	}

	if expectedSHA256 != "" {
		sum := sha256.Sum256(raw)
		actual := hex.EncodeToString(sum[:])
		if !strings.EqualFold(actual, expectedSHA256) {
			return nil, fmt.Errorf("%w: expected=%s actual=%s", ErrChecksumMismatch, expectedSHA256, actual)
		}
	}

	var p Plan
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to parse render_plan.json: %w", err)
	}
	return &p, nil
}

// TaskByIndex finds the task whose task_index equals idx.
func (p *Plan) TaskByIndex(idx int) (*Task, error) {
	for i := range p.Tasks {
		if p.Tasks[i].TaskIndex == idx {
			return &p.Tasks[i], nil
		}
	}
	return nil, fmt.Errorf("%w: task_index=%d", ErrTaskNotFound, idx)
}
