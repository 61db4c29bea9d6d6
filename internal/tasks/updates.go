package tasks

import (
	"fmt"
	"math"
	"sync/atomic"
)

// ProgressUpdate represents a progress event during a pipeline run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Stage    Stage   // Stage that produced the update
	Progress float64 // Completion fraction in [0,1], never decreasing within a run
	Message  string  // Human-readable message for display
	Data     any     // Optional stage-specific data for advanced UIs
}

// Stage enumerates the load pipeline stages in execution order.
type Stage int

const (
	StageValidate Stage = iota
	StageChart
	StageBackgrounds
	StageMusic
	StageVideo
	StageFinalize
)

func (s Stage) String() string {
	switch s {
	case StageValidate:
		return "validate_metadata"
	case StageChart:
		return "load_chart"
	case StageBackgrounds:
		return "load_backgrounds"
	case StageMusic:
		return "load_music"
	case StageVideo:
		return "detect_video"
	case StageFinalize:
		return "finalize"
	default:
		return ""
	}
}

// Progress checkpoints.
const (
	progressValidated   = 0.5
	progressChart       = 0.6
	progressMapped      = 0.65
	progressTransition  = 0.95
	progressTransitionW = 0.05
	progressDone        = 1.0
)

// backgroundCheckpoints holds the progress reached after each role in [models.LoadOrder].
var backgroundCheckpoints = [...]float64{0.7, 0.8, 0.9}

// Progress is a completion fraction that only moves forward. Safe for concurrent polling.
type Progress struct {
	bits atomic.Uint64
}

// Value returns the current fraction.
func (p *Progress) Value() float64 {
	return math.Float64frombits(p.bits.Load())
}

// Advance raises the fraction to v, clamped to [0,1]. Lower values are ignored.
func (p *Progress) Advance(v float64) float64 {
	v = min(max(v, 0), 1)
	for {
		old := p.bits.Load()
		if math.Float64frombits(old) >= v {
			return math.Float64frombits(old)
		}
		if p.bits.CompareAndSwap(old, math.Float64bits(v)) {
			return v
		}
	}
}

func (p *Progress) reset() {
	p.bits.Store(0)
}

func stageUpdate(stage Stage, progress float64, format string, args ...any) ProgressUpdate {
	return ProgressUpdate{
		Stage:    stage,
		Progress: progress,
		Message:  fmt.Sprintf(format, args...),
	}
}
