// Package uepath resolves the on-disk location of a .uproject file and the
// UnrealEditor-Cmd binary from a ranked list of candidates, and normalizes an
// engine root directory into its platform-specific command path. Shared by
// the persistent worker pool and the one-shot task runner so both modes
// agree on the same resolution order.
package uepath

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

// ErrUProjectNotFound is returned by callers (not by this package's
// functions themselves, which report absence via an empty string) when no
// resolution candidate exists on disk.
var ErrUProjectNotFound = errors.New("uproject file not found among resolution candidates")

// ErrUECmdNotFound mirrors ErrUProjectNotFound for the UE command binary.
var ErrUECmdNotFound = errors.New("ue command binary not found among resolution candidates")

// ResolveUProject tries, in order: explicit (CLI flag), env var UE_UPROJECT,
// the configured default, the plan's uproject_hint, and that hint resolved
// under UE_PROJECT_ROOT. The first candidate that exists on disk wins.
// Returns the winning path and the full candidate list (for error reporting
// when none exist).
func ResolveUProject(explicit, envUProject, configured, hint, projectRoot string) (string, []string) {
	var candidates []string
	if explicit != "" {
		candidates = append(candidates, explicit)
	}
	if envUProject != "" {
		candidates = append(candidates, envUProject)
	}
	if configured != "" {
		candidates = append(candidates, configured)
	}
	if hint != "" {
		candidates = append(candidates, hint)
		if projectRoot != "" {
			candidates = append(candidates, filepath.Join(projectRoot, hint))
		}
	}

	for _, c := range candidates {
		if pathExists(c) {
			return c, candidates
		}
	}
	return "", candidates
}

// ResolveUECmd tries, in order: explicit (CLI flag) command path, env var
// UE_CMD_PATH, then each of explicitRoot/envRoot/configuredRoot normalized
// via CmdFromRoot. The first candidate that exists on disk wins.
func ResolveUECmd(explicitCmd, envCmd, explicitRoot, envRoot, configuredRoot string) (string, []string) {
	var candidates []string
	if explicitCmd != "" {
		candidates = append(candidates, explicitCmd)
	}
	if envCmd != "" {
		candidates = append(candidates, envCmd)
	}
	for _, root := range []string{explicitRoot, envRoot, configuredRoot} {
		if cmd := CmdFromRoot(root); cmd != "" {
			candidates = append(candidates, cmd)
		}
	}

	for _, c := range candidates {
		if pathExists(c) {
			return c, candidates
		}
	}
	return "", candidates
}

// CmdFromRoot normalizes an engine root (or an already-explicit binary path
// ending in the platform executable suffix) to the UnrealEditor-Cmd binary
// path. Empty input returns "".
func CmdFromRoot(root string) string {
	if root == "" {
		return ""
	}
	if filepath.Ext(root) == ".exe" || filepath.Base(root) == "UnrealEditor-Cmd" {
		return root
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(root, "Engine", "Binaries", "Win64", "UnrealEditor-Cmd.exe")
	}
	return filepath.Join(root, "Engine", "Binaries", "Linux", "UnrealEditor-Cmd")
}

func pathExists(p string) bool {
	if p == "" {
		return false
	}
	_, err := os.Stat(p)
	return err == nil
}
