// Package render enforces the preview-duration ceiling. Every preview
// playback the orchestrator requests passes through the Enforcer, so no
// step can hold the viewer longer than the configured ceiling.
package render

import (
	"fmt"
	"math"
	"sync"
)

// Ceiling bounds in seconds. The default matches the 20-second iteration
// cycle the compositor workflow is built around.
const (
	DefaultCeiling   = 20.0
	MinCeiling       = 1.0
	MaxCeiling       = 120.0
	DefaultFrameRate = 24.0
)

// ErrCeilingOutOfRange is returned by SetCeiling for values outside 1-120s.
var ErrCeilingOutOfRange = fmt.Errorf("ceiling must be between %v and %v seconds", MinCeiling, MaxCeiling)

// Enforcer clamps requested preview durations to a process-wide ceiling.
// It is safe for concurrent use; the ceiling can be changed at runtime via
// SetCeiling (config live-reload uses this).
type Enforcer struct {
	mu      sync.RWMutex
	ceiling float64
}

// NewEnforcer creates an Enforcer with the default 20-second ceiling.
func NewEnforcer() *Enforcer {
	return &Enforcer{ceiling: DefaultCeiling}
}

// Ceiling returns the current ceiling in seconds.
func (e *Enforcer) Ceiling() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ceiling
}

// SetCeiling sets the ceiling. Values outside [MinCeiling, MaxCeiling]
// are rejected.
func (e *Enforcer) SetCeiling(seconds float64) error {
	if math.IsNaN(seconds) || seconds < MinCeiling || seconds > MaxCeiling {
		return fmt.Errorf("%w: got %v", ErrCeilingOutOfRange, seconds)
	}
	e.mu.Lock()
	e.ceiling = seconds
	e.mu.Unlock()
	return nil
}

// Clamp returns min(requested, ceiling). A non-positive or NaN request is
// invalid and silently substitutes the ceiling rather than failing the
// step; the caller logs the substitution.
func (e *Enforcer) Clamp(requestedSeconds float64) float64 {
	ceiling := e.Ceiling()
	if math.IsNaN(requestedSeconds) || requestedSeconds <= 0 {
		return ceiling
	}
	return math.Min(requestedSeconds, ceiling)
}

// FramesFor converts an effective duration to an in/out frame range.
// inFrame is always 0. A zero or negative frame rate falls back to
// DefaultFrameRate, and a zero or negative duration falls back to the
// ceiling, so the returned range is never empty.
func (e *Enforcer) FramesFor(effectiveSeconds, frameRate float64) (inFrame, outFrame int) {
	if math.IsNaN(frameRate) || frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	if math.IsNaN(effectiveSeconds) || effectiveSeconds <= 0 {
		effectiveSeconds = e.Ceiling()
	}
	outFrame = int(math.Round(effectiveSeconds * frameRate))
	if outFrame < 1 {
		outFrame = 1
	}
	return 0, outFrame
}
