package plan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/framelight/fusionpilot/intent"
)

// ErrPlanEmpty is returned when an actionable tag yields zero steps. It is
// fatal to the current request.
var ErrPlanEmpty = errors.New("plan has no steps")

// ErrNotActionable is returned when Build is called with a tag that does
// not describe work (approval, rejection, modification, cancel).
var ErrNotActionable = errors.New("tag is not an actionable domain")

// Builder expands a classified intent into an ordered plan.
type Builder struct{}

// NewBuilder constructs a Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build returns a plan for an actionable domain tag. Every returned plan is
// non-empty; a query plan always has exactly one read-only step.
func (b *Builder) Build(tag intent.Tag, rawText string) (*Plan, error) {
	p := NewPlan(tag, rawText)

	switch tag {
	case intent.TagVisualEffects:
		b.buildVisualEffects(p, rawText)
	case intent.TagGenerative:
		b.buildGenerative(p, rawText)
	case intent.TagHybrid:
		b.buildHybrid(p, rawText)
	case intent.TagQuery:
		p.Append("Summarize the current composition", DomainQuery, KindQuery, nil)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotActionable, tag)
	}

	if len(p.Steps) == 0 {
		return nil, fmt.Errorf("%w: tag %s, request %q", ErrPlanEmpty, tag, rawText)
	}
	return p, nil
}

// buildVisualEffects emits element steps for every compositor primitive the
// request mentions, then a merge step when two or more elements must be
// combined. A request matching nothing gets a single generic step.
func (b *Builder) buildVisualEffects(p *Plan, rawText string) {
	lower := strings.ToLower(rawText)
	elements := 0

	if strings.Contains(lower, "background") {
		params := map[string]string{}
		if color := extractColor(rawText); color != "" {
			params["color"] = color
		}
		step := p.Append("", DomainVisualEffects, KindBackground, params)
		step.Description = describe(step)
		elements++
	}

	if containsAny(lower, "text", "title", "subtitle", "lower third", "lower-third", "caption") {
		params := map[string]string{"text": extractTextContent(rawText)}
		if color := extractColor(rawText); color != "" {
			params["color"] = color
		}
		step := p.Append("", DomainVisualEffects, KindText, params)
		step.Description = describe(step)
		elements++
	}

	if strings.Contains(lower, "glow") {
		p.Append("Add a glow effect", DomainVisualEffects, KindGlow,
			map[string]string{"intensity": "5"})
	}
	if strings.Contains(lower, "blur") {
		p.Append("Add a blur effect", DomainVisualEffects, KindBlur,
			map[string]string{"size": "5"})
	}
	if containsAny(lower, "move", "position", "transform", "scale", "rotate") {
		p.Append("Transform the element", DomainVisualEffects, KindTransform, nil)
	}

	if elements >= 2 {
		p.Append("Merge the elements into the composition", DomainVisualEffects, KindMerge, nil)
	}

	if len(p.Steps) == 0 {
		p.Append(rawText, DomainVisualEffects, KindGeneric, nil)
	}
}

// buildGenerative emits the fixed generate-then-composite pair. The
// compositing step consumes the asset reference the generate step produces,
// so the ordering is a hard invariant, not a preference.
func (b *Builder) buildGenerative(p *Plan, rawText string) {
	prompt := buildPrompt(rawText)
	p.Append(fmt.Sprintf("Generate image: %s", prompt), DomainGenerative, KindGenerate,
		map[string]string{"prompt": prompt})
	p.Append("Import the generated image into the composition", DomainVisualEffects, KindComposite, nil)
}

// buildHybrid emits the generative step first, then the element steps the
// request also calls for, then the compositing step that consumes the
// generated asset.
func (b *Builder) buildHybrid(p *Plan, rawText string) {
	prompt := buildPrompt(rawText)
	p.Append(fmt.Sprintf("Generate image: %s", prompt), DomainGenerative, KindGenerate,
		map[string]string{"prompt": prompt})

	lower := strings.ToLower(rawText)
	if containsAny(lower, "text", "title", "subtitle", "lower third", "lower-third") {
		content := extractTextContent(rawText)
		p.Append(fmt.Sprintf("Create text %q", content), DomainVisualEffects, KindText,
			map[string]string{"text": content})
	}

	p.Append("Composite the generated image with the elements", DomainVisualEffects, KindComposite, nil)
}

// Amend updates a pending step's parameters from modification text: a
// recognized color word replaces the color parameter, a quoted substring
// replaces the text parameter. The description is regenerated from the
// updated parameters; the step's status is untouched.
func (b *Builder) Amend(step *Step, modification string) bool {
	if step.Status != StatusPending {
		return false
	}

	changed := false
	if color := extractColor(modification); color != "" {
		step.Params["color"] = color
		changed = true
	}
	if quoted := extractQuoted(modification); len(quoted) > 0 {
		if _, ok := step.Params["text"]; ok {
			step.Params["text"] = quoted[0]
			changed = true
		}
	}
	if changed {
		step.Description = describe(step)
	}
	return changed
}

// describe renders a step's description from its kind and current params,
// so a re-shown step always reflects what will actually execute. Kinds
// without a parameter-driven template keep their description as built.
func describe(step *Step) string {
	switch step.Kind {
	case KindBackground:
		if color := step.Params["color"]; color != "" {
			return fmt.Sprintf("Create a %s background", color)
		}
		return "Create a background"
	case KindText:
		return fmt.Sprintf("Create text %q", step.Params["text"])
	}
	return step.Description
}

func containsAny(text string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}
