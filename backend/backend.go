// Package backend defines the capability interfaces the orchestrator
// dispatches to, and client implementations that reach the external
// collaborator services over NATS request/reply. The backends themselves
// (the compositor engine, the image generator, the source-control system)
// live outside this process.
package backend

import (
	"context"
	"errors"
)

// Sentinel errors mapping onto the wire taxonomy.
var (
	// ErrUnavailable means the capability could not be reached at all.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrExecution means the backend was reachable but the operation failed.
	ErrExecution = errors.New("backend execution error")
	// ErrPermissionDenied means a write or destructive source-control tool
	// was invoked without prior approval. This is a contract violation in
	// the caller, not a normal runtime condition.
	ErrPermissionDenied = errors.New("permission denied: tool requires prior approval")
)

// ElementRef identifies an element in the external composition.
type ElementRef string

// AssetRef identifies a generated asset (a file path or URL the
// compositor can load).
type AssetRef string

// ElementDescriptor describes one enumerated composition element.
type ElementDescriptor struct {
	Ref  ElementRef `json:"ref"`
	Name string     `json:"name"`
	Kind string     `json:"kind"`
}

// VisualEffects is the compositor capability interface.
type VisualEffects interface {
	// Create adds an element of the given kind (Background, Text, Merge,
	// Transform, Glow, Blur, Loader) to the composition.
	Create(ctx context.Context, kind string, params map[string]string) (ElementRef, error)
	// Connect wires element a into element b's named input slot.
	Connect(ctx context.Context, a, b ElementRef, slot string) error
	// Enumerate lists the composition's current elements.
	Enumerate(ctx context.Context) ([]ElementDescriptor, error)
	// ClearAll removes every element.
	ClearAll(ctx context.Context) error
	// Preview plays back the given frame range. Callers treat it as
	// fire-and-forget: a preview failure never gates plan progress.
	Preview(ctx context.Context, inFrame, outFrame int) error
}

// Constraints bound a generation call. The defaults are deliberately small
// and fast so generation fits the interactive iteration cycle.
type Constraints struct {
	MaxSteps int `json:"max_steps"`
	Width    int `json:"width"`
	Height   int `json:"height"`
}

// DefaultConstraints returns the fast-generation settings.
func DefaultConstraints() Constraints {
	return Constraints{MaxSteps: 15, Width: 512, Height: 512}
}

// Generative is the image-generation capability interface.
type Generative interface {
	Generate(ctx context.Context, prompt string, c Constraints) (AssetRef, error)
}

// Result is a generic source-control invocation result.
type Result struct {
	Success bool              `json:"success"`
	Details map[string]string `json:"details,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// SourceControl is the source-control capability interface. Every tool name
// classifies into a permission tier; write and destructive tiers require
// the caller to have obtained explicit approval first.
type SourceControl interface {
	Invoke(ctx context.Context, tool string, params map[string]any, approved bool) (Result, error)
}
