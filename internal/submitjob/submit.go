// Package submitjob validates a submit_spec.json and produces the
// structured result the submitter CLI writes to stdout. It never opens a
// real OpenCue/Cuebot connection: actually dispatching a job to Cuebot via
// PyOutline is explicitly out of scope, consumed only through this CLI
// contract.
package submitjob

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"
)

// Spec mirrors submit_spec.json's documented top-level shape.
type Spec struct {
	Cuebot struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	} `json:"cuebot"`
	Show string `json:"show"`
	User string `json:"user"`
	Job  struct {
		Name     string `json:"name"`
		Comment  string `json:"comment,omitempty"`
		Priority *int   `json:"priority,omitempty"`
	} `json:"job"`
	Plan struct {
		PlanURI string `json:"plan_uri"`
	} `json:"plan"`
	OpenCue struct {
		LayerName string      `json:"layer_name"`
		TaskCount int         `json:"task_count"`
		Cmd       interface{} `json:"cmd"`
		Services  struct {
			Cores    *int     `json:"cores,omitempty"`
			MemoryGB *float64 `json:"memory_gb,omitempty"`
			Tags     []string `json:"tags,omitempty"`
		} `json:"services,omitempty"`
	} `json:"opencue"`
}

// Result is the JSON shape written to stdout by both `submit` and `test`,
// mirroring original_source's SubmitResult.to_dict().
type Result struct {
	OK            bool     `json:"ok"`
	JobID         string   `json:"job_id,omitempty"`
	OpenCueJobIDs []string `json:"opencue_job_ids,omitempty"`
	Error         string   `json:"error,omitempty"`
	Hint          string   `json:"hint,omitempty"`
}

// Validate checks Spec against the required-field set, returning an error
// message (not an error, to match the {ok:false, error, hint} wire shape)
// or "" if the spec is valid.
func Validate(s *Spec) string {
	if s.Show == "" {
		return "Missing required field: show"
	}
	if s.User == "" {
		return "Missing required field: user"
	}
	if s.Job.Name == "" {
		return "job must have 'name'"
	}
	if s.Plan.PlanURI == "" {
		return "plan must have 'plan_uri'"
	}
	if s.OpenCue.LayerName == "" {
		return "opencue must have 'layer_name'"
	}
	if s.OpenCue.TaskCount < 1 {
		return "task_count must be >= 1"
	}
	if s.OpenCue.Cmd == nil {
		return "opencue must have 'cmd'"
	}
	if s.Cuebot.Host == "" || s.Cuebot.Port == 0 {
		return "cuebot must have 'host' and 'port'"
	}
	return ""
}

// Submit validates spec and, since actually dispatching to Cuebot is out of
// scope, reports a stub success derived from the plan URI's basename when
// it looks like a UUID (job ids elsewhere in this system are uuid.NewString
// values), or a validation failure.
func Submit(s *Spec) Result {
	if msg := Validate(s); msg != "" {
		return Result{OK: false, Error: msg, Hint: "Check submit_spec.json against the schema."}
	}

	jobID := jobIDFromPlanURI(s.Plan.PlanURI)
	return Result{OK: true, JobID: jobID, OpenCueJobIDs: []string{}}
}

// jobIDFromPlanURI extracts the plan file's basename (minus extension) and
// returns it only if it is UUID-shaped, matching original_source's
// potential_id heuristic ("len == 36 and '-' in it").
func jobIDFromPlanURI(planURI string) string {
	base := filepath.Base(planURI)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if len(base) == 36 && strings.Contains(base, "-") {
		return base
	}
	return ""
}

// TestConnection stands in for opencue.api.getShows(): it dials host:port
// over TCP within the given timeout rather than performing a real OpenCue
// RPC, reporting reachability only.
func TestConnection(host string, port int, timeout time.Duration) Result {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return Result{
			OK:    false,
			Error: fmt.Sprintf("failed to connect to Cuebot at %s: %v", addr, err),
			Hint:  "Verify Cuebot host/port and network connectivity.",
		}
	}
	conn.Close()
	return Result{OK: true, Hint: fmt.Sprintf("Connected to %s", addr)}
}
