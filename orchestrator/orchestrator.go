// Package orchestrator implements the plan-execution state machine. It
// turns a classified request into a proposed plan, advances one approved
// step at a time through the execution backends, keeps the composition
// snapshot fresh, and bounds every preview with the render ceiling.
//
// The orchestrator is deliberately stateless across calls: all
// per-conversation state lives in the Session the caller passes in and
// persists.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/framelight/fusionpilot/backend"
	"github.com/framelight/fusionpilot/composition"
	"github.com/framelight/fusionpilot/intent"
	"github.com/framelight/fusionpilot/plan"
	"github.com/framelight/fusionpilot/render"
)

// Options configure an Orchestrator.
type Options struct {
	VisualEffects backend.VisualEffects
	Generative    backend.Generative
	SourceControl *backend.Gate
	Enforcer      *render.Enforcer
	Tracker       *composition.Tracker
	Logger        *slog.Logger

	// Constraints bound generative calls; zero value uses the fast
	// defaults.
	Constraints backend.Constraints

	// FrameRate converts preview seconds to frames; zero uses the
	// enforcer's default.
	FrameRate float64
}

// Orchestrator is the central state machine. One instance serves many
// conversations; Session carries everything per-conversation.
type Orchestrator struct {
	classifier *intent.Classifier
	builder    *plan.Builder
	enforcer   *render.Enforcer
	tracker    *composition.Tracker
	vfx        backend.VisualEffects
	gen        backend.Generative
	scm        *backend.Gate

	constraints backend.Constraints
	frameRate   float64
	logger      *slog.Logger
}

// Reply is the user-facing outcome of one orchestrator call.
type Reply struct {
	Text    string            `json:"text"`
	State   State             `json:"state"`
	Details map[string]string `json:"details,omitempty"`
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	enforcer := opts.Enforcer
	if enforcer == nil {
		enforcer = render.NewEnforcer()
	}
	tracker := opts.Tracker
	if tracker == nil {
		tracker = composition.NewTracker(opts.VisualEffects)
	}
	constraints := opts.Constraints
	if constraints == (backend.Constraints{}) {
		constraints = backend.DefaultConstraints()
	}
	return &Orchestrator{
		classifier:  intent.NewClassifier(),
		builder:     plan.NewBuilder(),
		enforcer:    enforcer,
		tracker:     tracker,
		vfx:         opts.VisualEffects,
		gen:         opts.Generative,
		scm:         opts.SourceControl,
		constraints: constraints,
		frameRate:   opts.FrameRate,
		logger:      logger,
	}
}

// Enforcer exposes the render-range enforcer (config live-reload adjusts
// its ceiling).
func (o *Orchestrator) Enforcer() *render.Enforcer { return o.enforcer }

// HandleMessage processes one conversational turn: classify the text, then
// either gate the active plan (approval, rejection, modification), cancel
// on empty input, or treat it as a new top-level request that hard-replaces
// any in-flight plan.
func (o *Orchestrator) HandleMessage(ctx context.Context, sess *Session, text string) (*Reply, error) {
	sess.appendLog(SpeakerUser, text)

	tag := o.classifier.Classify(text)
	o.logger.Debug("classified message", "session", sess.ID, "tag", tag, "state", sess.State)

	var (
		reply *Reply
		err   error
	)
	switch tag {
	case intent.TagCancel:
		reply = o.handleCancel(sess)
	case intent.TagApproval:
		reply, err = o.handleApproval(ctx, sess)
	case intent.TagRejection:
		reply = o.handleRejection(sess)
	case intent.TagModification:
		if sess.hasActivePlan() {
			reply, err = o.AmendStep(sess, text)
		} else {
			// No pending step to amend; the text is a fresh request.
			reply, err = o.newRequest(ctx, sess, tag, text)
		}
	default:
		reply, err = o.newRequest(ctx, sess, tag, text)
	}

	if err != nil {
		return nil, err
	}
	sess.appendLog(SpeakerAssistant, reply.Text)
	return reply, nil
}

// ClassifyAndPlan classifies text as a new top-level request and installs
// the resulting plan, replacing any in-flight plan. Query plans execute
// immediately and leave any in-flight plan untouched.
func (o *Orchestrator) ClassifyAndPlan(ctx context.Context, sess *Session, text string) (*Reply, error) {
	sess.appendLog(SpeakerUser, text)
	tag := o.classifier.Classify(text)
	if tag == intent.TagCancel {
		reply := o.handleCancel(sess)
		sess.appendLog(SpeakerAssistant, reply.Text)
		return reply, nil
	}
	reply, err := o.newRequest(ctx, sess, tag, text)
	if err != nil {
		return nil, err
	}
	sess.appendLog(SpeakerAssistant, reply.Text)
	return reply, nil
}

// newRequest builds and proposes a plan for an actionable tag. A non-domain
// tag (approval, rejection, modification with no plan) is planned as a
// visual-effects request so the user always gets an actionable answer.
// Queries are answered in place; an in-flight plan survives them.
func (o *Orchestrator) newRequest(ctx context.Context, sess *Session, tag intent.Tag, text string) (*Reply, error) {
	switch tag {
	case intent.TagVisualEffects, intent.TagGenerative, intent.TagHybrid, intent.TagQuery:
	default:
		tag = intent.TagVisualEffects
	}

	p, err := o.builder.Build(tag, text)
	if err != nil {
		return nil, err
	}

	// Query plans bypass the approval gate and are read-only. A plan
	// awaiting approval stays in place and is re-shown after the answer,
	// so a status question never discards the user's pending work.
	if p.IsQuery() {
		summary, err := o.ContextSummary(ctx)
		if err != nil {
			return nil, err
		}
		reply := &Reply{Text: summary, State: StateIdle, Details: map[string]string{"domain": string(plan.DomainQuery)}}
		if step := sess.currentStep(); sess.hasActivePlan() && step != nil {
			reply.Text = fmt.Sprintf("%s\n\nThe plan for %q is still waiting. Step %d: %s\nApprove?",
				summary, sess.Plan.RawText, step.ID+1, step.Description)
			reply.State = sess.State
		}
		return reply, nil
	}

	replaced := ""
	if sess.hasActivePlan() {
		replaced = sess.Plan.RawText
		o.logger.Info("replacing in-flight plan", "session", sess.ID, "discarded", replaced)
	}
	sess.clearPlan()

	sess.Plan = p
	sess.CurrentStep = 0
	sess.State = StatePlanProposed

	var sb strings.Builder
	if replaced != "" {
		fmt.Fprintf(&sb, "Discarded the previous plan for %q.\n\n", replaced)
	}
	fmt.Fprintf(&sb, "Proposed plan (%d steps):\n", len(p.Steps))
	for _, step := range p.Steps {
		fmt.Fprintf(&sb, "  %d. %s\n", step.ID+1, step.Description)
	}
	sb.WriteString("Approve step 1?")

	return &Reply{
		Text:  sb.String(),
		State: sess.State,
		Details: map[string]string{
			"plan_id": p.ID,
			"tag":     string(tag),
			"steps":   strconv.Itoa(len(p.Steps)),
		},
	}, nil
}

// handleApproval advances the plan by one step.
func (o *Orchestrator) handleApproval(ctx context.Context, sess *Session) (*Reply, error) {
	if !sess.hasActivePlan() {
		return &Reply{Text: "There is no plan awaiting approval. Tell me what to create.", State: sess.State}, nil
	}
	return o.AdvanceStep(ctx, sess)
}

// handleRejection cancels the active plan.
func (o *Orchestrator) handleRejection(sess *Session) *Reply {
	if !sess.hasActivePlan() {
		return &Reply{Text: "Nothing to cancel.", State: sess.State}
	}
	discarded := sess.Plan.RawText
	sess.State = StateCancelled
	sess.clearPlan()
	o.logger.Info("plan cancelled", "session", sess.ID, "request", discarded)
	return &Reply{Text: fmt.Sprintf("Cancelled the plan for %q.", discarded), State: StateIdle}
}

// handleCancel treats empty input as an implicit cancellation signal. It
// cancels the active plan and keeps the conversation alive; it never starts
// a new intent.
func (o *Orchestrator) handleCancel(sess *Session) *Reply {
	if sess.hasActivePlan() {
		return o.handleRejection(sess)
	}
	return &Reply{Text: "Nothing in progress.", State: sess.State}
}

// AdvanceStep executes the current step: marks it executing, routes it to
// its backend, refreshes the composition snapshot on success, fires the
// clamped preview, and either proposes the next step or completes the plan.
// A failed step ends the plan; it is never retried automatically.
func (o *Orchestrator) AdvanceStep(ctx context.Context, sess *Session) (*Reply, error) {
	step := sess.currentStep()
	if step == nil || !(sess.State == StatePlanProposed || sess.State == StateAwaitingApproval) {
		return nil, ErrNoActivePlan
	}

	sess.State = StateStepExecuting
	if err := step.SetStatus(plan.StatusExecuting); err != nil {
		return nil, err
	}
	o.logger.Info("executing step", "session", sess.ID, "step", step.ID, "kind", step.Kind, "domain", step.Domain)

	details, execErr := o.executeStep(ctx, sess, step)
	if execErr != nil {
		if err := step.SetStatus(plan.StatusFailed); err != nil {
			return nil, err
		}
		sess.State = StateFailed
		o.logger.Error("step failed", "session", sess.ID, "step", step.ID, "error", execErr)
		return &Reply{
			Text:  fmt.Sprintf("Step %d failed: %s (%v). The plan stops here; issue a new request to continue.", step.ID+1, step.Description, execErr),
			State: StateFailed,
			Details: map[string]string{
				"status":      string(plan.StatusFailed),
				"domain":      string(step.Domain),
				"description": step.Description,
				"code":        string(CodeFor(execErr)),
			},
		}, nil
	}

	if err := step.SetStatus(plan.StatusCompleted); err != nil {
		return nil, err
	}

	// Keep the composition snapshot fresh for planning and queries. A
	// refresh failure is logged, not fatal: the mutation already landed.
	if _, err := o.tracker.Refresh(ctx); err != nil {
		o.logger.Warn("snapshot refresh failed", "session", sess.ID, "error", err)
	}

	o.preview(ctx, sess)

	sess.CurrentStep++
	if details == nil {
		details = map[string]string{}
	}
	details["status"] = string(plan.StatusCompleted)
	details["domain"] = string(step.Domain)
	details["description"] = step.Description

	if next := sess.currentStep(); next != nil {
		sess.State = StateAwaitingApproval
		return &Reply{
			Text:    fmt.Sprintf("Completed: %s\nNext step %d: %s\nApprove?", step.Description, next.ID+1, next.Description),
			State:   sess.State,
			Details: details,
		}, nil
	}

	sess.State = StateCompleted
	done := sess.Plan.RawText
	sess.clearPlan()
	o.logger.Info("plan completed", "session", sess.ID, "request", done)
	return &Reply{
		Text:    fmt.Sprintf("Completed: %s\nAll steps done for %q.", step.Description, done),
		State:   StateIdle,
		Details: details,
	}, nil
}

// executeStep routes one step to its backend and returns machine-readable
// details for the reply envelope.
func (o *Orchestrator) executeStep(ctx context.Context, sess *Session, step *plan.Step) (map[string]string, error) {
	switch step.Domain {
	case plan.DomainQuery:
		summary, err := o.ContextSummary(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]string{"summary": summary}, nil

	case plan.DomainGenerative:
		asset, err := o.gen.Generate(ctx, step.Params["prompt"], o.constraints)
		if err != nil {
			return nil, err
		}
		sess.PendingAsset = asset
		return map[string]string{"asset": string(asset)}, nil

	case plan.DomainVisualEffects:
		return o.executeVisualEffects(ctx, sess, step)

	default:
		return nil, fmt.Errorf("%w: unroutable step domain %s", backend.ErrExecution, step.Domain)
	}
}

// elementKinds maps step kinds to compositor element kinds.
var elementKinds = map[string]string{
	plan.KindBackground: "Background",
	plan.KindText:       "Text",
	plan.KindGlow:       "Glow",
	plan.KindBlur:       "Blur",
	plan.KindTransform:  "Transform",
	plan.KindMerge:      "Merge",
	plan.KindGeneric:    "Background",
}

// executeVisualEffects performs the compositor operations for one step. A
// compositing step consumes the session's pending asset as an implicit
// parameter: it loads the asset, then merges it into the composition.
func (o *Orchestrator) executeVisualEffects(ctx context.Context, sess *Session, step *plan.Step) (map[string]string, error) {
	if step.Kind == plan.KindComposite {
		if sess.PendingAsset != "" {
			step.Params["asset"] = string(sess.PendingAsset)
		}
		loader, err := o.vfx.Create(ctx, "Loader", step.Params)
		if err != nil {
			return nil, err
		}
		merge, err := o.vfx.Create(ctx, "Merge", nil)
		if err != nil {
			return nil, err
		}
		if err := o.vfx.Connect(ctx, loader, merge, "Foreground"); err != nil {
			return nil, err
		}
		sess.PendingAsset = ""
		return map[string]string{"loader": string(loader), "merge": string(merge)}, nil
	}

	kind, ok := elementKinds[step.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown element kind %s", backend.ErrExecution, step.Kind)
	}
	ref, err := o.vfx.Create(ctx, kind, step.Params)
	if err != nil {
		return nil, err
	}
	return map[string]string{"element": string(ref)}, nil
}

// preview issues the clamped preview playback. It is fire-and-forget: a
// failure is logged and never gates the next transition.
func (o *Orchestrator) preview(ctx context.Context, sess *Session) {
	effective := o.enforcer.Clamp(0) // unset request: play the full ceiling window
	in, out := o.enforcer.FramesFor(effective, o.frameRate)
	if err := o.vfx.Preview(ctx, in, out); err != nil {
		o.logger.Warn("preview playback failed", "session", sess.ID, "in", in, "out", out, "error", err)
	}
}

// AmendStep applies a modification to the current not-yet-executed step.
// The step stays pending, the state stays where it was, and the amended
// description is re-shown; execution still requires a fresh approval.
func (o *Orchestrator) AmendStep(sess *Session, modification string) (*Reply, error) {
	step := sess.currentStep()
	if step == nil || !sess.hasActivePlan() {
		return nil, ErrNoActivePlan
	}

	if changed := o.builder.Amend(step, modification); !changed {
		return &Reply{
			Text:    fmt.Sprintf("I couldn't map that change onto the step. Still: %s\nApprove?", step.Description),
			State:   sess.State,
			Details: map[string]string{"description": step.Description},
		}, nil
	}

	o.logger.Info("step amended", "session", sess.ID, "step", step.ID, "modification", modification)
	return &Reply{
		Text:    fmt.Sprintf("Updated step %d: %s\nApprove?", step.ID+1, step.Description),
		State:   sess.State,
		Details: map[string]string{"description": step.Description},
	}, nil
}

// ContextSummary refreshes and renders the composition snapshot.
func (o *Orchestrator) ContextSummary(ctx context.Context) (string, error) {
	if _, err := o.tracker.Refresh(ctx); err != nil {
		return "", err
	}
	return o.tracker.Summarize(), nil
}

// SetRenderCeiling changes the preview ceiling and returns the effective
// value.
func (o *Orchestrator) SetRenderCeiling(seconds float64) (float64, error) {
	if err := o.enforcer.SetCeiling(seconds); err != nil {
		return o.enforcer.Ceiling(), err
	}
	o.logger.Info("render ceiling changed", "seconds", seconds)
	return o.enforcer.Ceiling(), nil
}

// ResetSession drops the active plan and returns the session to idle. The
// conversation log is append-only and survives the reset.
func (o *Orchestrator) ResetSession(sess *Session) *Reply {
	sess.clearPlan()
	o.logger.Info("session reset", "session", sess.ID)
	return &Reply{Text: "Session reset.", State: StateIdle}
}

// InvokeSourceControl forwards a source-control tool call through the
// permission gate. approved must reflect a real prior user approval for
// write and destructive tiers; passing it incorrectly is a caller bug.
func (o *Orchestrator) InvokeSourceControl(ctx context.Context, tool string, params map[string]any, approved bool) (backend.Result, error) {
	if o.scm == nil {
		return backend.Result{}, fmt.Errorf("%w: no source-control backend configured", backend.ErrUnavailable)
	}
	return o.scm.Invoke(ctx, tool, params, approved)
}
