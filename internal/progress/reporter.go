package progress

import (
	"math"
	"sync"
	"time"

	"github.com/opencueforunreal/ue-worker-pool/internal/logger"
)

// dedup thresholds: an update is dropped if it's the same stage, within 0.5
// percentage points of the last emitted value, and less than 2s have
// elapsed since that emission.
const (
	dedupPercentDelta = 0.5
	dedupWindow       = 2 * time.Second
)

// OverrideColor is the fixed RGB triple used for every frame-state override
// this reporter pushes.
var OverrideColor = [3]int{80, 170, 255}

// Pusher delivers one deduplicated progress update to the outer scheduler.
type Pusher interface {
	Push(stage string, percent float64, color [3]int) error
}

// Reporter turns parsed UE log lines into deduplicated pushes. It is a
// no-op when constructed with a nil Pusher (no frame identifier was
// supplied for this run). Any push error latches it off for the remainder
// of the process — a single fault disables reporting rather than retrying
// indefinitely against a scheduler that has already rejected an update.
type Reporter struct {
	mu      sync.Mutex
	pusher  Pusher
	enabled bool

	lastStage   string
	lastPercent float64
	lastUpdate  time.Time
}

// NewReporter builds a Reporter. Pass a nil pusher to get a permanent no-op
// (the frame-id-not-set case).
func NewReporter(pusher Pusher) *Reporter {
	return &Reporter{
		pusher:      pusher,
		enabled:     pusher != nil,
		lastPercent: -1,
	}
}

// ReportLine parses line and reports it if it carries a progress update.
func (r *Reporter) ReportLine(line string) {
	stage, percent, ok := ParseLine(line)
	if !ok {
		return
	}
	r.Report(stage, percent)
}

// Report pushes stage/percent unless it's a duplicate of the last emitted
// update or the reporter has latched off.
func (r *Reporter) Report(stage string, percent float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.enabled {
		return
	}

	normalized := clamp(percent, 0, 100)
	now := time.Now()

	if stage == r.lastStage &&
		r.lastPercent >= 0 &&
		math.Abs(normalized-r.lastPercent) < dedupPercentDelta &&
		now.Sub(r.lastUpdate) < dedupWindow {
		return
	}

	if err := r.pusher.Push(stage, normalized, OverrideColor); err != nil {
		logger.Warn().Err(err).Msg("progress push failed, disabling reporter for remainder of process")
		r.enabled = false
		return
	}

	r.lastStage = stage
	r.lastPercent = normalized
	r.lastUpdate = now
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
