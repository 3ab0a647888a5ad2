package render

import (
	"math"
	"testing"
)

func TestEnforcer_Clamp(t *testing.T) {
	e := NewEnforcer()

	tests := []struct {
		name      string
		requested float64
		want      float64
	}{
		{"under_ceiling", 5, 5},
		{"at_ceiling", 20, 20},
		{"over_ceiling", 45, 20},
		{"zero_substitutes_ceiling", 0, 20},
		{"negative_substitutes_ceiling", -3, 20},
		{"nan_substitutes_ceiling", math.NaN(), 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Clamp(tt.requested); got != tt.want {
				t.Errorf("Clamp(%v) = %v, want %v", tt.requested, got, tt.want)
			}
		})
	}
}

func TestEnforcer_ClampIdempotent(t *testing.T) {
	e := NewEnforcer()
	for _, s := range []float64{0, 0.5, 1, 19.9, 20, 21, 1000} {
		once := e.Clamp(s)
		twice := e.Clamp(once)
		if once != twice {
			t.Errorf("Clamp(Clamp(%v)) = %v, want %v", s, twice, once)
		}
		if once > e.Ceiling() {
			t.Errorf("Clamp(%v) = %v exceeds ceiling %v", s, once, e.Ceiling())
		}
	}
}

func TestEnforcer_SetCeiling(t *testing.T) {
	e := NewEnforcer()

	if err := e.SetCeiling(5); err != nil {
		t.Fatalf("SetCeiling(5) returned error: %v", err)
	}
	if got := e.Clamp(20); got != 5 {
		t.Errorf("after SetCeiling(5), Clamp(20) = %v, want 5", got)
	}

	for _, bad := range []float64{0, 0.5, -1, 121, math.NaN()} {
		if err := e.SetCeiling(bad); err == nil {
			t.Errorf("SetCeiling(%v) accepted an out-of-range value", bad)
		}
	}

	// Rejected values must not change the ceiling.
	if got := e.Ceiling(); got != 5 {
		t.Errorf("ceiling changed to %v after rejected SetCeiling calls", got)
	}
}

func TestEnforcer_FramesFor(t *testing.T) {
	e := NewEnforcer()

	tests := []struct {
		name    string
		seconds float64
		fps     float64
		wantIn  int
		wantOut int
	}{
		{"twenty_at_24", 20, 24, 0, 480},
		{"five_at_30", 5, 30, 0, 150},
		{"rounds", 1.5, 29.97, 0, 45},
		{"zero_fps_falls_back", 20, 0, 0, 480},
		{"zero_seconds_falls_back_to_ceiling", 0, 24, 0, 480},
		{"both_zero", 0, 0, 0, 480},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, out := e.FramesFor(tt.seconds, tt.fps)
			if in != tt.wantIn || out != tt.wantOut {
				t.Errorf("FramesFor(%v, %v) = (%d, %d), want (%d, %d)",
					tt.seconds, tt.fps, in, out, tt.wantIn, tt.wantOut)
			}
			if out < 1 {
				t.Errorf("FramesFor returned empty range out=%d", out)
			}
		})
	}
}
