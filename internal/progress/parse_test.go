package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLine_Render(t *testing.T) {
	stage, percent, ok := ParseLine("LogTemp: [OpenCueCmdExecutor] Render progress: 42.5%")
	assert.True(t, ok)
	assert.Equal(t, "Rendering", stage)
	assert.Equal(t, 42.5, percent)
}

func TestParseLine_Encoding(t *testing.T) {
	stage, percent, ok := ParseLine("[opencuecmdexecutor] encoding progress: 7%")
	assert.True(t, ok)
	assert.Equal(t, "Encoding", stage)
	assert.Equal(t, float64(7), percent)
}

func TestParseLine_NoMatch(t *testing.T) {
	_, _, ok := ParseLine("just a regular log line")
	assert.False(t, ok)
}
