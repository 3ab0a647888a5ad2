package plan

import (
	"regexp"
	"strings"
)

// colorNames maps recognized color words to a canonical parameter value.
// The backend resolves names to RGBA at execution time.
var colorNames = []string{
	"red", "green", "blue", "yellow", "cyan", "magenta",
	"orange", "purple", "white", "black", "gray", "grey",
}

var (
	doubleQuoted = regexp.MustCompile(`"([^"]+)"`)
	singleQuoted = regexp.MustCompile(`'([^']+)'`)
)

// extractColor returns the first recognized color word in text, or "".
// Matching is case-insensitive whole-word.
func extractColor(text string) string {
	lower := strings.ToLower(text)
	for _, name := range colorNames {
		if containsColorWord(lower, name) {
			return name
		}
	}
	return ""
}

func containsColorWord(lower, name string) bool {
	idx := strings.Index(lower, name)
	for idx >= 0 {
		end := idx + len(name)
		leftOK := idx == 0 || !isAlpha(lower[idx-1])
		rightOK := end == len(lower) || !isAlpha(lower[end])
		if leftOK && rightOK {
			return true
		}
		next := strings.Index(lower[idx+1:], name)
		if next < 0 {
			return false
		}
		idx = idx + 1 + next
	}
	return false
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// extractQuoted returns all quoted substrings in order, double quotes
// first, then single quotes.
func extractQuoted(text string) []string {
	var out []string
	for _, m := range doubleQuoted.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	for _, m := range singleQuoted.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

// extractTextContent finds display text: the first quoted substring, or the
// remainder after a text-introducing keyword, or a placeholder.
func extractTextContent(text string) string {
	if quoted := extractQuoted(text); len(quoted) > 0 {
		return quoted[0]
	}
	lower := strings.ToLower(text)
	for _, keyword := range []string{"saying", "that says", "reading"} {
		if idx := strings.Index(lower, keyword); idx >= 0 {
			rest := strings.TrimSpace(text[idx+len(keyword):])
			rest = strings.Trim(rest, `"'`)
			if rest != "" {
				return rest
			}
		}
	}
	return "Sample Text"
}

// commandWords are stripped from a request before it becomes a generation
// prompt.
var commandWords = []string{
	"create", "generate", "make", "add", "using ai", "with ai", "ai-generated",
}

// buildPrompt cleans the request into a generation prompt and enriches it
// with a subject-specific template.
func buildPrompt(rawText string) string {
	prompt := strings.ToLower(rawText)
	for _, w := range commandWords {
		prompt = strings.ReplaceAll(prompt, w, "")
	}
	prompt = strings.Join(strings.Fields(prompt), " ")

	lower := strings.ToLower(rawText)
	switch {
	case strings.Contains(lower, "background"):
		return "cinematic background, " + prompt + ", high quality, detailed"
	case strings.Contains(lower, "character"):
		return "character, " + prompt + ", professional lighting, detailed"
	default:
		return prompt + ", high quality, professional"
	}
}
