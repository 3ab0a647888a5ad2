package composition

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/framelight/fusionpilot/backend"
)

// fakeVFX implements backend.VisualEffects with a canned element list.
type fakeVFX struct {
	elements []backend.ElementDescriptor
	err      error
}

func (f *fakeVFX) Create(context.Context, string, map[string]string) (backend.ElementRef, error) {
	return "", nil
}
func (f *fakeVFX) Connect(context.Context, backend.ElementRef, backend.ElementRef, string) error {
	return nil
}
func (f *fakeVFX) Enumerate(context.Context) ([]backend.ElementDescriptor, error) {
	return f.elements, f.err
}
func (f *fakeVFX) ClearAll(context.Context) error          { return nil }
func (f *fakeVFX) Preview(context.Context, int, int) error { return nil }

func TestTracker_Refresh(t *testing.T) {
	vfx := &fakeVFX{elements: []backend.ElementDescriptor{
		{Ref: "bg1", Name: "Background1", Kind: "Background"},
		{Ref: "txt1", Name: "Title", Kind: "Text"},
		{Ref: "xf1", Name: "Transform1", Kind: "Transform"},
	}}
	tracker := NewTracker(vfx)

	snap, err := tracker.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}

	if snap.TotalElements != 3 {
		t.Errorf("TotalElements = %d, want 3", snap.TotalElements)
	}
	if snap.ElementsByKind["Background"] != 1 || snap.ElementsByKind["Text"] != 1 {
		t.Errorf("ElementsByKind = %v", snap.ElementsByKind)
	}
	if !snap.ReadyForPreview {
		t.Error("ReadyForPreview = false with output-capable elements present")
	}
}

func TestTracker_ReadinessNotCachedAcrossRefresh(t *testing.T) {
	vfx := &fakeVFX{elements: []backend.ElementDescriptor{
		{Ref: "bg1", Kind: "Background"},
	}}
	tracker := NewTracker(vfx)

	snap, err := tracker.Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !snap.ReadyForPreview {
		t.Fatal("expected ReadyForPreview with a Background element")
	}

	// Composition cleared externally; readiness must be recomputed, not
	// carried over.
	vfx.elements = nil
	snap, err = tracker.Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.ReadyForPreview {
		t.Error("ReadyForPreview = true after the composition emptied")
	}
}

func TestTracker_ModifierOnlyIsNotPreviewable(t *testing.T) {
	vfx := &fakeVFX{elements: []backend.ElementDescriptor{
		{Ref: "xf1", Kind: "Transform"},
		{Ref: "gl1", Kind: "Glow"},
	}}
	tracker := NewTracker(vfx)

	snap, err := tracker.Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.ReadyForPreview {
		t.Error("modifier-only composition reported as previewable")
	}
}

func TestTracker_LastModifiedAdvances(t *testing.T) {
	vfx := &fakeVFX{}
	tracker := NewTracker(vfx)

	first, err := tracker.Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	second, err := tracker.Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !second.LastModified.After(first.LastModified) {
		t.Errorf("LastModified did not advance: %v then %v", first.LastModified, second.LastModified)
	}
}

func TestTracker_RefreshError(t *testing.T) {
	wantErr := errors.New("bridge down")
	tracker := NewTracker(&fakeVFX{err: wantErr})

	if _, err := tracker.Refresh(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("Refresh error = %v, want wrapped %v", err, wantErr)
	}
	if tracker.Latest() != nil {
		t.Error("failed refresh must not install a snapshot")
	}
}

func TestTracker_Summarize(t *testing.T) {
	tracker := NewTracker(&fakeVFX{})
	if got := tracker.Summarize(); !strings.Contains(got, "not yet inspected") {
		t.Errorf("pre-refresh summary = %q", got)
	}

	if _, err := tracker.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := tracker.Summarize()
	if !strings.Contains(got, "Total elements: 0") || !strings.Contains(got, "empty composition") {
		t.Errorf("empty-composition summary = %q", got)
	}
}
