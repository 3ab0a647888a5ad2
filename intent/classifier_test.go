package intent

import "testing"

func TestClassifier_ClosedClassPhrases(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		input string
		want  Tag
	}{
		// Approval, any casing, phrase-leading.
		{"yes", TagApproval},
		{"Yes", TagApproval},
		{"YES", TagApproval},
		{"yes please", TagApproval},
		{"ok, go ahead", TagApproval},
		{"Proceed", TagApproval},
		{"do it", TagApproval},

		// Whole-word only: "yesterday" must not match "yes", "novel" must
		// not match "no".
		{"yesterday", TagVisualEffects},
		{"novel background", TagVisualEffects},

		// Rejection.
		{"no", TagRejection},
		{"No thanks", TagRejection},
		{"cancel", TagRejection},
		{"never mind", TagRejection},

		// Modification.
		{"make it orange instead", TagModification},
		{"change the color to red", TagModification},
		{"actually, use a bigger font", TagModification},

		// Empty input is a cancellation signal, not an intent.
		{"", TagCancel},
		{"   \t  ", TagCancel},
	}

	for _, tt := range tests {
		name := tt.input
		if name == "" || name == "   \t  " {
			name = "whitespace"
		}
		t.Run(name, func(t *testing.T) {
			if got := c.Classify(tt.input); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestClassifier_QueryDetection(t *testing.T) {
	c := NewClassifier()

	// Two distinct indicators required.
	if got := c.Classify("what is the current status"); got != TagQuery {
		t.Errorf("Classify(status question) = %q, want %q", got, TagQuery)
	}
	if got := c.Classify("show me the context"); got != TagQuery {
		t.Errorf("Classify(context question) = %q, want %q", got, TagQuery)
	}

	// A single indicator falls through to domain scoring.
	if got := c.Classify("show a red background"); got != TagVisualEffects {
		t.Errorf("Classify(single indicator) = %q, want %q", got, TagVisualEffects)
	}
}

func TestClassifier_DomainScoring(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		input string
		want  Tag
	}{
		{"create a blue background", TagVisualEffects},
		{"add a title saying \"Hello\"", TagVisualEffects},
		{"add a glow to the text", TagVisualEffects},
		{"generate a photorealistic dragon", TagGenerative},
		{"create a title card with AI-generated nebula background", TagGenerative},
		{"a fantasy landscape painting", TagGenerative},
		// Teapot: no keywords at all defaults to visual effects.
		{"draw me a teapot", TagVisualEffects},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := c.Classify(tt.input); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestResolveTie(t *testing.T) {
	tests := []struct {
		name     string
		vfx, gen int
		want     Tag
	}{
		{"generative_strictly_higher", 2, 5, TagGenerative},
		{"generative_higher_vfx_zero", 0, 1, TagGenerative},
		{"both_positive_vfx_wins_or_ties", 5, 5, TagHybrid},
		{"both_positive_vfx_higher", 6, 2, TagHybrid},
		{"only_vfx", 3, 0, TagVisualEffects},
		{"neither", 0, 0, TagVisualEffects},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveTie(tt.vfx, tt.gen); got != tt.want {
				t.Errorf("resolveTie(%d, %d) = %q, want %q", tt.vfx, tt.gen, got, tt.want)
			}
		})
	}
}

func TestMatchesPhrase(t *testing.T) {
	tests := []struct {
		text, phrase string
		want         bool
	}{
		{"yes", "yes", true},
		{"yes please", "yes", true},
		{"yes, do it", "yes", true},
		{"yesterday", "yes", false},
		{"novel", "no", false},
		{"no", "no", true},
		{"make it red", "make it", true},
		{"make itchy", "make it", false},
	}

	for _, tt := range tests {
		if got := matchesPhrase(tt.text, tt.phrase); got != tt.want {
			t.Errorf("matchesPhrase(%q, %q) = %v, want %v", tt.text, tt.phrase, got, tt.want)
		}
	}
}
