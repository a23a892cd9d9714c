package transcript

import (
	"strings"
	"unicode/utf8"
)

const (
	// maxPlausiblePromptLen rejects user records that are almost certainly
	// echoed tool results rather than typed prompts.
	maxPlausiblePromptLen = 500
	// promptExcerptLen is how much of each accepted prompt is retained.
	promptExcerptLen = 200
)

// continuationBoilerplate marks session-continuation preambles injected by
// the assistant tooling, not typed by a human.
var continuationBoilerplate = []string{
	"This session is being continued from a previous conversation",
	"Continue from where you left off",
}

// isHumanPrompt reports whether user-record text looks like something a
// human actually typed: not a markup tag, not continuation boilerplate,
// not implausibly long.
func isHumanPrompt(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	if strings.HasPrefix(t, "<") {
		return false
	}
	for _, prefix := range continuationBoilerplate {
		if strings.HasPrefix(t, prefix) {
			return false
		}
	}
	if utf8.RuneCountInString(t) > maxPlausiblePromptLen {
		return false
	}
	return true
}

// promptExcerpt returns the first promptExcerptLen characters of text.
func promptExcerpt(text string) string {
	t := strings.TrimSpace(text)
	runes := []rune(t)
	if len(runes) <= promptExcerptLen {
		return t
	}
	return string(runes[:promptExcerptLen])
}
