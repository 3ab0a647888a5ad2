package backend

import (
	"context"
	"fmt"
)

// Tier is a source-control tool permission tier.
type Tier string

const (
	TierReadOnly    Tier = "read-only"
	TierWrite       Tier = "write"
	TierDestructive Tier = "destructive"
)

// toolTiers classifies every known source-control tool. Unknown tools
// classify as destructive so an unrecognized name can never slip past the
// approval gate.
var toolTiers = map[string]Tier{
	"repo_info":     TierReadOnly,
	"issue_view":    TierReadOnly,
	"issue_list":    TierReadOnly,
	"pr_view":       TierReadOnly,
	"pr_list":       TierReadOnly,
	"ci_status":     TierReadOnly,
	"issue_create":  TierWrite,
	"issue_edit":    TierWrite,
	"pr_create":     TierWrite,
	"pr_comment":    TierWrite,
	"issue_close":   TierDestructive,
	"pr_merge":      TierDestructive,
	"branch_delete": TierDestructive,
}

// TierFor returns the permission tier for a tool name.
func TierFor(tool string) Tier {
	if tier, ok := toolTiers[tool]; ok {
		return tier
	}
	return TierDestructive
}

// Gate wraps a SourceControl implementation and enforces the tier contract:
// write and destructive tools require approved=true. A violation is a bug
// in the caller and surfaces as ErrPermissionDenied.
type Gate struct {
	inner SourceControl
}

// NewGate wraps inner with tier enforcement.
func NewGate(inner SourceControl) *Gate {
	return &Gate{inner: inner}
}

// Invoke checks the tool's tier against the approval flag, then delegates.
func (g *Gate) Invoke(ctx context.Context, tool string, params map[string]any, approved bool) (Result, error) {
	if tier := TierFor(tool); tier != TierReadOnly && !approved {
		return Result{}, fmt.Errorf("%w: tool %s is tier %s", ErrPermissionDenied, tool, tier)
	}
	if g.inner == nil {
		return Result{}, fmt.Errorf("%w: no source-control backend configured", ErrUnavailable)
	}
	return g.inner.Invoke(ctx, tool, params, approved)
}
