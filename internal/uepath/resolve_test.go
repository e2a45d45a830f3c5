package uepath

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveUProject_PrefersExplicit(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "explicit.uproject")
	hint := filepath.Join(dir, "hint.uproject")
	os.WriteFile(explicit, []byte("{}"), 0o644)
	os.WriteFile(hint, []byte("{}"), 0o644)

	got, candidates := ResolveUProject(explicit, "", "", "hint.uproject", dir)
	assert.Equal(t, explicit, got)
	assert.Contains(t, candidates, explicit)
}

func TestResolveUProject_FallsBackToHintUnderProjectRoot(t *testing.T) {
	dir := t.TempDir()
	hintPath := filepath.Join(dir, "hint.uproject")
	os.WriteFile(hintPath, []byte("{}"), 0o644)

	got, _ := ResolveUProject("", "", "", "hint.uproject", dir)
	assert.Equal(t, hintPath, got)
}

func TestResolveUProject_NoneExist(t *testing.T) {
	got, candidates := ResolveUProject("/no/such.uproject", "", "", "", "")
	assert.Empty(t, got)
	assert.Equal(t, []string{"/no/such.uproject"}, candidates)
}

func TestCmdFromRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		assert.Equal(t, filepath.Join("C:", "UE", "Engine", "Binaries", "Win64", "UnrealEditor-Cmd.exe"), CmdFromRoot(filepath.Join("C:", "UE")))
	} else {
		assert.Equal(t, filepath.Join("/opt/ue", "Engine", "Binaries", "Linux", "UnrealEditor-Cmd"), CmdFromRoot("/opt/ue"))
	}
	assert.Equal(t, "", CmdFromRoot(""))
	assert.Equal(t, "/explicit/UnrealEditor-Cmd.exe", CmdFromRoot("/explicit/UnrealEditor-Cmd.exe"))
}

func TestResolveUECmd_ExplicitRootNormalized(t *testing.T) {
	dir := t.TempDir()
	cmdPath := CmdFromRoot(dir)
	os.MkdirAll(filepath.Dir(cmdPath), 0o755)
	os.WriteFile(cmdPath, []byte{}, 0o755)

	got, _ := ResolveUECmd("", "", dir, "", "")
	assert.Equal(t, cmdPath, got)
}
