// Package intent classifies free-text creative requests into domain tags.
// All detection is deterministic keyword scoring, no model calls. The
// scoring tables and the tie-break rule are separate, so each is testable
// in isolation.
package intent

import (
	"strings"
	"unicode"
)

// Tag is the classification result routing a request.
type Tag string

const (
	TagVisualEffects Tag = "visual-effects"
	TagGenerative    Tag = "generative"
	TagHybrid        Tag = "hybrid-pair"
	TagQuery         Tag = "query"
	TagApproval      Tag = "approval"
	TagRejection     Tag = "rejection"
	TagModification  Tag = "modification"

	// TagCancel marks empty or whitespace-only input. It is a distinct
	// signal, not an intent: the orchestrator cancels the active plan and
	// keeps the conversation alive.
	TagCancel Tag = "cancel"
)

// weightedKeyword is one row of a domain scoring table.
type weightedKeyword struct {
	keyword string
	weight  int
}

// visualEffectsTable scores requests achievable with compositor elements
// alone: shapes, text overlays, transforms, basic color work.
var visualEffectsTable = []weightedKeyword{
	{"background", 2},
	{"text", 2},
	{"title", 2},
	{"subtitle", 2},
	{"lower third", 3},
	{"lower-third", 3},
	{"gradient", 2},
	{"shape", 2},
	{"rectangle", 2},
	{"overlay", 2},
	{"blur", 2},
	{"glow", 2},
	{"merge", 2},
	{"mask", 2},
	{"transform", 2},
	{"position", 1},
	{"scale", 1},
	{"rotate", 1},
	{"color", 1},
	{"brightness", 1},
	{"contrast", 1},
	{"effect", 1},
}

// generativeTable scores requests that need image generation: photoreal
// content, complex scenes, anything the compositor cannot synthesize.
var generativeTable = []weightedKeyword{
	{"ai-generated", 3},
	{"ai generated", 3},
	{"using ai", 3},
	{"with ai", 3},
	{"generate", 2},
	{"photorealistic", 3},
	{"photoreal", 3},
	{"realistic", 2},
	{"photo", 2},
	{"landscape", 2},
	{"nebula", 2},
	{"dragon", 2},
	{"character", 2},
	{"person", 2},
	{"scene", 1},
	{"environment", 1},
	{"fantasy", 2},
	{"painting", 2},
	{"artistic", 1},
}

// queryIndicators signal a status/context question. A query tag requires at
// least two distinct indicators so a creative request mentioning "show" in
// passing is not misrouted.
var queryIndicators = []string{
	"what", "show", "status", "context", "current", "list",
	"which", "describe", "how many", "exists", "state",
}

// Closed-class phrase sets, checked before scoring. Matching is
// case-insensitive and whole-word or phrase-leading only: "novel" never
// matches "no", "yesterday" never matches "yes".
var (
	approvalPhrases = []string{
		"yes", "y", "ok", "okay", "sure", "yep", "yeah",
		"go ahead", "approve", "approved", "proceed", "do it", "confirm",
	}
	rejectionPhrases = []string{
		"no", "n", "nope", "cancel", "stop", "reject", "abort",
		"never mind", "nevermind", "skip",
	}
	modificationPhrases = []string{
		"make it", "change", "instead", "actually", "rather",
		"swap", "adjust", "modify",
	}
)

// Classifier scores text against the domain tables. The zero value is not
// usable; call NewClassifier.
type Classifier struct {
	visualEffects []weightedKeyword
	generative    []weightedKeyword
}

// NewClassifier constructs a Classifier with the built-in scoring tables.
func NewClassifier() *Classifier {
	return &Classifier{
		visualEffects: visualEffectsTable,
		generative:    generativeTable,
	}
}

// Classify maps free text to a Tag. Precedence: empty input, the
// closed-class phrase sets, query detection, then domain scoring with the
// documented tie-break.
func (c *Classifier) Classify(text string) Tag {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return TagCancel
	}

	lower := strings.ToLower(trimmed)

	switch {
	case matchesAnyPhrase(lower, approvalPhrases):
		return TagApproval
	case matchesAnyPhrase(lower, rejectionPhrases):
		return TagRejection
	case matchesAnyPhrase(lower, modificationPhrases):
		return TagModification
	}

	if countDistinct(lower, queryIndicators) >= 2 {
		return TagQuery
	}

	vfx := scoreTable(lower, c.visualEffects)
	gen := scoreTable(lower, c.generative)
	return resolveTie(vfx, gen)
}

// resolveTie applies the documented tie-break: a strictly higher generative
// score wins; two positive scores mean a hybrid pair; anything else defaults
// to visual effects, since most atomic creative asks need no generation.
func resolveTie(visualEffectsScore, generativeScore int) Tag {
	switch {
	case generativeScore > visualEffectsScore:
		return TagGenerative
	case generativeScore > 0 && visualEffectsScore > 0:
		return TagHybrid
	default:
		return TagVisualEffects
	}
}

// scoreTable sums weights for every table keyword occurrence in text.
// Matching is case-insensitive substring; text must already be lowercased.
func scoreTable(text string, table []weightedKeyword) int {
	score := 0
	for _, wk := range table {
		score += strings.Count(text, wk.keyword) * wk.weight
	}
	return score
}

// countDistinct returns how many distinct indicators appear in text as
// whole words (or whole phrases for multi-word indicators).
func countDistinct(text string, indicators []string) int {
	n := 0
	for _, ind := range indicators {
		if containsWord(text, ind) {
			n++
		}
	}
	return n
}

// matchesAnyPhrase reports whether text equals or leads with one of the
// phrases at a word boundary.
func matchesAnyPhrase(text string, phrases []string) bool {
	for _, p := range phrases {
		if matchesPhrase(text, p) {
			return true
		}
	}
	return false
}

// matchesPhrase reports whether text is exactly phrase or starts with
// phrase followed by a word boundary. "yes please" matches "yes";
// "yesterday" does not.
func matchesPhrase(text, phrase string) bool {
	if text == phrase {
		return true
	}
	if !strings.HasPrefix(text, phrase) {
		return false
	}
	next := rune(text[len(phrase)])
	return !unicode.IsLetter(next) && !unicode.IsDigit(next)
}

// containsWord reports whether word appears in text bounded by non-alphanumeric
// runes on both sides.
func containsWord(text, word string) bool {
	for start := 0; ; {
		idx := strings.Index(text[start:], word)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(word)
		leftOK := idx == 0 || !isWordRune(rune(text[idx-1]))
		rightOK := end == len(text) || !isWordRune(rune(text[end]))
		if leftOK && rightOK {
			return true
		}
		start = idx + 1
		if start >= len(text) {
			return false
		}
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
