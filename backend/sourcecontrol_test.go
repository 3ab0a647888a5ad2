package backend

import (
	"context"
	"errors"
	"testing"
)

type recordingSourceControl struct {
	calls []string
}

func (r *recordingSourceControl) Invoke(_ context.Context, tool string, _ map[string]any, _ bool) (Result, error) {
	r.calls = append(r.calls, tool)
	return Result{Success: true}, nil
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		tool string
		want Tier
	}{
		{"repo_info", TierReadOnly},
		{"issue_view", TierReadOnly},
		{"ci_status", TierReadOnly},
		{"issue_create", TierWrite},
		{"pr_create", TierWrite},
		{"pr_merge", TierDestructive},
		{"branch_delete", TierDestructive},
		// Unknown tools must never classify below destructive.
		{"something_new", TierDestructive},
		{"", TierDestructive},
	}

	for _, tt := range tests {
		name := tt.tool
		if name == "" {
			name = "empty"
		}
		t.Run(name, func(t *testing.T) {
			if got := TierFor(tt.tool); got != tt.want {
				t.Errorf("TierFor(%q) = %s, want %s", tt.tool, got, tt.want)
			}
		})
	}
}

func TestGate_ReadOnlyNeedsNoApproval(t *testing.T) {
	inner := &recordingSourceControl{}
	gate := NewGate(inner)

	res, err := gate.Invoke(context.Background(), "issue_view", nil, false)
	if err != nil {
		t.Fatalf("read-only invoke failed: %v", err)
	}
	if !res.Success {
		t.Error("read-only invoke did not succeed")
	}
	if len(inner.calls) != 1 {
		t.Errorf("inner called %d times, want 1", len(inner.calls))
	}
}

func TestGate_WriteWithoutApprovalIsDenied(t *testing.T) {
	inner := &recordingSourceControl{}
	gate := NewGate(inner)

	for _, tool := range []string{"issue_create", "pr_merge", "unknown_tool"} {
		_, err := gate.Invoke(context.Background(), tool, nil, false)
		if !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("Invoke(%s, approved=false) error = %v, want ErrPermissionDenied", tool, err)
		}
	}
	if len(inner.calls) != 0 {
		t.Errorf("denied calls reached the backend: %v", inner.calls)
	}
}

func TestGate_WriteWithApprovalPasses(t *testing.T) {
	inner := &recordingSourceControl{}
	gate := NewGate(inner)

	if _, err := gate.Invoke(context.Background(), "issue_create", map[string]any{"title": "t"}, true); err != nil {
		t.Fatalf("approved write invoke failed: %v", err)
	}
	if len(inner.calls) != 1 || inner.calls[0] != "issue_create" {
		t.Errorf("inner calls = %v, want [issue_create]", inner.calls)
	}
}

func TestGate_NoBackendConfigured(t *testing.T) {
	gate := NewGate(nil)
	_, err := gate.Invoke(context.Background(), "repo_info", nil, false)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestColorRGBA(t *testing.T) {
	if got := ColorRGBA("blue"); got != [4]float64{0, 0, 1, 1} {
		t.Errorf("ColorRGBA(blue) = %v", got)
	}
	if got := ColorRGBA("chartreuse"); got != defaultColor {
		t.Errorf("ColorRGBA(unknown) = %v, want gray fallback", got)
	}
}
