package runner

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ResolveTaskIndex returns the task index to render: CUE_IFRAME is tried
// first, then CUE_FRAME, and only when neither yields an integer is the
// explicit value (the --task-index CLI flag) used. CUE_FRAME may carry a
// "<index>-<suffix>" form (observed in the field as a dash-separated frame
// spec); only the numeric prefix before the first dash is used.
func ResolveTaskIndex(explicit *int) (int, error) {
	if raw := strings.TrimSpace(os.Getenv("CUE_IFRAME")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v, nil
		}
	}

	raw := strings.TrimSpace(os.Getenv("CUE_FRAME"))
	if raw != "" {
		if idx := strings.Index(raw, "-"); idx >= 0 {
			prefix := strings.TrimSpace(raw[:idx])
			if v, err := strconv.Atoi(prefix); err == nil {
				return v, nil
			}
		}
		if v, err := strconv.Atoi(raw); err == nil {
			return v, nil
		}
	}

	if explicit != nil {
		return *explicit, nil
	}
	if raw == "" {
		return 0, fmt.Errorf("CUE_IFRAME/CUE_FRAME is not set and no --task-index was given; the outer scheduler must provide a task index")
	}
	return 0, fmt.Errorf("invalid task index env (CUE_IFRAME=%q, CUE_FRAME=%q)", os.Getenv("CUE_IFRAME"), raw)
}
