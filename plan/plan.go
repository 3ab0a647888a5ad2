// Package plan defines the ordered, approvable step sequences the
// orchestrator executes, and the builder that expands a classified intent
// into one.
package plan

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/framelight/fusionpilot/intent"
)

// Domain routes a step to an execution backend.
type Domain string

const (
	DomainVisualEffects Domain = "visual-effects"
	DomainGenerative    Domain = "generative"
	DomainQuery         Domain = "query"
)

// Status is a step's execution status. Transitions are monotonic:
// pending → executing → completed|failed, never any other order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusExecuting Status = "executing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsValid reports whether the status is one of the known values.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusExecuting, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether the transition s → to is allowed.
func (s Status) CanTransitionTo(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusExecuting
	case StatusExecuting:
		return to == StatusCompleted || to == StatusFailed
	}
	return false
}

// Step kinds. Kind selects the concrete backend operation; Domain selects
// the backend.
const (
	KindBackground = "background"
	KindText       = "text"
	KindGlow       = "glow"
	KindBlur       = "blur"
	KindTransform  = "transform"
	KindMerge      = "merge"
	KindGeneric    = "generic"
	KindGenerate   = "generate"
	KindComposite  = "composite"
	KindQuery      = "query"
)

// Step is one approvable, executable unit of work.
type Step struct {
	ID          int               `json:"id"`
	Description string            `json:"description"`
	Domain      Domain            `json:"domain"`
	Kind        string            `json:"kind"`
	Params      map[string]string `json:"params,omitempty"`
	Status      Status            `json:"status"`
}

// SetStatus applies a status transition, enforcing monotonicity.
func (s *Step) SetStatus(to Status) error {
	if !s.Status.CanTransitionTo(to) {
		return fmt.Errorf("invalid step status transition %s → %s", s.Status, to)
	}
	s.Status = to
	return nil
}

// Plan is an ordered step sequence built from one classified request. It is
// owned by the orchestrator for the lifetime of the request and replaced
// wholesale when a new top-level request arrives.
type Plan struct {
	ID        string     `json:"id"`
	RawText   string     `json:"raw_text"`
	Tag       intent.Tag `json:"tag"`
	Steps     []*Step    `json:"steps"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewPlan creates an empty plan for the given classified request.
func NewPlan(tag intent.Tag, rawText string) *Plan {
	return &Plan{
		ID:        uuid.New().String(),
		RawText:   rawText,
		Tag:       tag,
		CreatedAt: time.Now(),
	}
}

// Append adds a step with the next ordinal ID and pending status.
func (p *Plan) Append(description string, domain Domain, kind string, params map[string]string) *Step {
	if params == nil {
		params = map[string]string{}
	}
	step := &Step{
		ID:          len(p.Steps),
		Description: description,
		Domain:      domain,
		Kind:        kind,
		Params:      params,
		Status:      StatusPending,
	}
	p.Steps = append(p.Steps, step)
	return step
}

// IsQuery reports whether the plan bypasses the approval gate entirely.
func (p *Plan) IsQuery() bool {
	return len(p.Steps) > 0 && p.Steps[0].Domain == DomainQuery
}
