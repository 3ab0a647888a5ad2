package orchestrator

import (
	"time"

	"github.com/google/uuid"

	"github.com/framelight/fusionpilot/backend"
	"github.com/framelight/fusionpilot/plan"
)

// State is the orchestrator state machine's position for one conversation.
type State string

const (
	StateIdle             State = "idle"
	StatePlanProposed     State = "plan_proposed"
	StateStepExecuting    State = "step_executing"
	StateAwaitingApproval State = "awaiting_approval"
	StateCompleted        State = "completed"
	StateCancelled        State = "cancelled"
	StateFailed           State = "failed"
)

// Speakers for the conversation log.
const (
	SpeakerUser      = "user"
	SpeakerAssistant = "assistant"
)

// Utterance is one conversation-log entry.
type Utterance struct {
	Speaker string    `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// Session is the per-conversation state. It is passed into and returned
// from every orchestrator call and persisted by the caller keyed by
// conversation ID; the orchestrator itself holds no cross-call state.
type Session struct {
	ID          string     `json:"id"`
	State       State      `json:"state"`
	Plan        *plan.Plan `json:"plan,omitempty"`
	CurrentStep int        `json:"current_step"`

	// PendingAsset carries a generated asset reference from a generative
	// step to the compositing step that consumes it.
	PendingAsset backend.AssetRef `json:"pending_asset,omitempty"`

	// Log is the append-only conversation transcript. It survives plan
	// completion, cancellation, and replacement.
	Log []Utterance `json:"log,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates an idle session. Pass an empty id to generate one.
func NewSession(id string) *Session {
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now()
	return &Session{
		ID:        id,
		State:     StateIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// clearPlan drops the active plan and returns the session to idle. The
// conversation log is untouched.
func (s *Session) clearPlan() {
	s.Plan = nil
	s.CurrentStep = 0
	s.PendingAsset = ""
	s.State = StateIdle
}

// currentStep returns the step awaiting execution, or nil when the plan is
// exhausted or absent.
func (s *Session) currentStep() *plan.Step {
	if s.Plan == nil || s.CurrentStep >= len(s.Plan.Steps) {
		return nil
	}
	return s.Plan.Steps[s.CurrentStep]
}

// hasActivePlan reports whether a plan is proposed or mid-execution.
func (s *Session) hasActivePlan() bool {
	return s.Plan != nil && (s.State == StatePlanProposed || s.State == StateAwaitingApproval)
}

// appendLog records one utterance and bumps UpdatedAt.
func (s *Session) appendLog(speaker, text string) {
	now := time.Now()
	s.Log = append(s.Log, Utterance{Speaker: speaker, Text: text, At: now})
	s.UpdatedAt = now
}
