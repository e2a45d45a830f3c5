package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opencueforunreal/ue-worker-pool/internal/plan"
)

func TestBuildUEArgs_AppendsGameModeQuery(t *testing.T) {
	p := &plan.Plan{
		MapAssetPath:           "/Game/Maps/Test",
		ExecutorClass:          "/Script/Executor",
		JobID:                  "job-1",
		LevelSequenceAssetPath: "/Game/Seq/Test",
		Render: plan.Render{
			Quality:       3,
			Format:        "mov",
			GameModeClass: "/Script/Game.Mode",
		},
	}
	task := &plan.Task{TaskIndex: 0}

	args := buildUEArgs(p, task, "/tmp/ue.log", false)

	assert.Equal(t, "/Game/Maps/Test?game=/Script/Game.Mode", args[0])
	assert.Contains(t, args, "-AbsLog=/tmp/ue.log")
	assert.Contains(t, args, "-MovieQuality=3")
	assert.Contains(t, args, "-MovieFormat=mov")
	assert.NotContains(t, args, "-RenderOffscreen")
}

func TestBuildUEArgs_HeadlessFlags(t *testing.T) {
	p := &plan.Plan{MapAssetPath: "/Game/Maps/Test"}
	task := &plan.Task{TaskIndex: 0}

	args := buildUEArgs(p, task, "/tmp/ue.log", true)

	assert.Contains(t, args, "-RenderOffscreen")
	assert.Contains(t, args, "-Unattended")
	assert.Contains(t, args, "-NOSPLASH")
	assert.Contains(t, args, "-NoLoadingScreen")
	assert.Contains(t, args, "-notexturestreaming")
}

func TestBuildUEArgs_ShotNameSkippedWhenDisabled(t *testing.T) {
	p := &plan.Plan{MapAssetPath: "/Game/Maps/Test"}
	task := &plan.Task{
		TaskIndex:  0,
		Shot:       plan.Shot{Name: "Shot010"},
		Extensions: plan.Extensions{DisableShotFilter: true},
	}

	args := buildUEArgs(p, task, "/tmp/ue.log", false)
	assert.NotContains(t, args, "-ShotName=Shot010")
}

func TestBuildUEArgs_ShotNameAndFrameRange(t *testing.T) {
	start, end := 10, 20
	p := &plan.Plan{MapAssetPath: "/Game/Maps/Test"}
	task := &plan.Task{
		TaskIndex:  0,
		Shot:       plan.Shot{Name: "Shot010"},
		FrameRange: &plan.FrameRange{Start: &start, End: &end},
	}

	args := buildUEArgs(p, task, "/tmp/ue.log", false)
	assert.Contains(t, args, "-ShotName=Shot010")
	assert.Contains(t, args, "-CustomStartFrame=10")
	assert.Contains(t, args, "-CustomEndFrame=20")
}

func TestBuildUEArgs_AppendsAdditionalArgs(t *testing.T) {
	p := &plan.Plan{
		MapAssetPath: "/Game/Maps/Test",
		Render:       plan.Render{AdditionalUEArgs: []string{"-ExtraFlag=1", "  ", "-AnotherFlag"}},
	}
	task := &plan.Task{TaskIndex: 0}

	args := buildUEArgs(p, task, "/tmp/ue.log", false)
	assert.Contains(t, args, "-ExtraFlag=1")
	assert.Contains(t, args, "-AnotherFlag")
}
