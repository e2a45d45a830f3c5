package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	tk := New(CreateTaskRequest{JobID: "j1", LevelSequence: "/Game/Seqs/S.S"})

	assert.NotEmpty(t, tk.ID)
	assert.Equal(t, StatusPending, tk.Status)
	assert.Equal(t, 1, tk.MovieQuality, "movie_quality defaults to 1 when omitted from the request")
	assert.Equal(t, "mp4", tk.MovieFormat)
	assert.NotNil(t, tk.ExtraParams)
	assert.False(t, tk.CreatedAt.IsZero())
}

func TestNew_PreservesExplicitFormatAndParams(t *testing.T) {
	tk := New(CreateTaskRequest{
		JobID:        "j1",
		MovieQuality: 3,
		MovieFormat:  "mov",
		ExtraParams:  map[string]string{"a": "b"},
	})

	assert.Equal(t, 3, tk.MovieQuality)
	assert.Equal(t, "mov", tk.MovieFormat)
	assert.Equal(t, "b", tk.ExtraParams["a"])
}

func TestTask_ToLeaseObject(t *testing.T) {
	tk := New(CreateTaskRequest{JobID: "j1", LevelSequence: "/Game/Seqs/S.S", MapPath: "/Game/Maps/M.M"})
	lease := tk.ToLeaseObject()

	assert.Equal(t, tk.ID, lease.TaskID)
	assert.Equal(t, "/Game/Maps/M.M", lease.Map, "wire field name is 'map', not 'map_path'")
}
