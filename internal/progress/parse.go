// Package progress parses UE's movie-render-queue log output for progress
// lines, tails a growing log file to find them as they're appended, and
// pushes deduplicated updates to the outer scheduler's frame-state override
// API.
package progress

import (
	"regexp"
	"strconv"
)

// Render/Encoding progress regexes are a wire-format contract with UE's
// OpenCueCmdExecutor log output: changing them changes what progress this
// system can see, not just how it's parsed.
var (
	renderProgressRe   = regexp.MustCompile(`(?i)\[OpenCueCmdExecutor\]\s*Render progress:\s*([0-9]+(?:\.[0-9]+)?)%`)
	encodingProgressRe = regexp.MustCompile(`(?i)\[OpenCueCmdExecutor\]\s*Encoding progress:\s*([0-9]+(?:\.[0-9]+)?)%`)
)

// ParseLine extracts a (stage, percent) pair from one UE log line. ok is
// false if the line matches neither progress pattern.
func ParseLine(line string) (stage string, percent float64, ok bool) {
	if m := renderProgressRe.FindStringSubmatch(line); m != nil {
		p, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return "", 0, false
		}
		return "Rendering", p, true
	}
	if m := encodingProgressRe.FindStringSubmatch(line); m != nil {
		p, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return "", 0, false
		}
		return "Encoding", p, true
	}
	return "", 0, false
}
