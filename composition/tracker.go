// Package composition tracks a point-in-time snapshot of the external
// composition state, so later plan steps and the user can reason about
// what exists right now.
package composition

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/framelight/fusionpilot/backend"
)

// outputCapableKinds are element kinds that can produce an image on their
// own. Modifiers (Transform, Glow, Blur) need an upstream input and do not
// make a composition previewable by themselves.
var outputCapableKinds = map[string]bool{
	"Background": true,
	"Text":       true,
	"Merge":      true,
	"Loader":     true,
}

// Snapshot is a point-in-time summary of the composition.
type Snapshot struct {
	TotalElements   int            `json:"total_elements"`
	ElementsByKind  map[string]int `json:"elements_by_kind"`
	ReadyForPreview bool           `json:"ready_for_preview"`
	LastModified    time.Time      `json:"last_modified"`
}

// Tracker recomputes and caches the latest Snapshot. Refresh is invoked by
// the orchestrator after every successfully executed step; readers get the
// cached value via Latest or as text via Summarize.
type Tracker struct {
	vfx backend.VisualEffects

	mu     sync.RWMutex
	latest *Snapshot
}

// NewTracker creates a Tracker over the given compositor capability.
func NewTracker(vfx backend.VisualEffects) *Tracker {
	return &Tracker{vfx: vfx}
}

// Refresh queries the compositor's enumeration capability and rebuilds the
// snapshot. ReadyForPreview is a pure function of the enumeration result,
// never carried over from a previous call.
func (t *Tracker) Refresh(ctx context.Context) (*Snapshot, error) {
	elements, err := t.vfx.Enumerate(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate composition: %w", err)
	}

	snap := &Snapshot{
		TotalElements:  len(elements),
		ElementsByKind: make(map[string]int, len(elements)),
		LastModified:   time.Now(),
	}
	for _, el := range elements {
		snap.ElementsByKind[el.Kind]++
		if outputCapableKinds[el.Kind] {
			snap.ReadyForPreview = true
		}
	}

	t.mu.Lock()
	t.latest = snap
	t.mu.Unlock()
	return snap, nil
}

// Latest returns the most recent snapshot, or nil if Refresh has never run.
func (t *Tracker) Latest() *Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest
}

// Summarize renders the latest snapshot as a human-readable block.
func (t *Tracker) Summarize() string {
	snap := t.Latest()
	if snap == nil {
		return "Composition: not yet inspected. Run a step or ask again."
	}

	var sb strings.Builder
	sb.WriteString("Composition:\n")
	fmt.Fprintf(&sb, "  Total elements: %d\n", snap.TotalElements)

	if snap.TotalElements == 0 {
		sb.WriteString("  (empty composition)\n")
	} else {
		kinds := make([]string, 0, len(snap.ElementsByKind))
		for kind := range snap.ElementsByKind {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			fmt.Fprintf(&sb, "  - %s: %d\n", kind, snap.ElementsByKind[kind])
		}
	}

	if snap.ReadyForPreview {
		sb.WriteString("  Ready for preview: yes\n")
	} else {
		sb.WriteString("  Ready for preview: no\n")
	}
	fmt.Fprintf(&sb, "  Last modified: %s", snap.LastModified.Format("2006-01-02 15:04:05"))
	return sb.String()
}
