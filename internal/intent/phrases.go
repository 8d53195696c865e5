package intent

import (
	"regexp"
	"strings"
)

// Control phrases are matched before the rule table: they steer the
// orchestrator itself rather than producing an Intent.

var (
	confirmPhrases = regexp.MustCompile(`(?i)^\s*(yes|yeah|yep|confirm|confirmed|do it|go ahead|proceed|sure)[.!]?\s*$`)
	denyPhrases    = regexp.MustCompile(`(?i)^\s*(no|nope|cancel|deny|denied|don't|do not|stop|abort|never mind|nevermind)[.!]?\s*$`)
	stopPhrases    = regexp.MustCompile(`(?i)^\s*(stop|be quiet|quiet|silence)[.!]?\s*$`)
)

// IsConfirmation reports whether text is an affirmative answer to a
// pending confirmation prompt.
func IsConfirmation(text string) bool {
	return confirmPhrases.MatchString(text)
}

// IsDenial reports whether text rejects a pending confirmation prompt.
func IsDenial(text string) bool {
	return denyPhrases.MatchString(text)
}

// IsStop reports whether text asks to abort the in-flight turn.
func IsStop(text string) bool {
	return stopPhrases.MatchString(text)
}

// IsShutdownPhrase reports whether text matches the configured session
// shutdown phrase (whole words, case-insensitive).
func IsShutdownPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(phrase))
}

// StripWakeWord checks for the wake word in text. If found it returns the
// remainder with the wake word removed and true; otherwise the original
// text and false.
func StripWakeWord(text, wakeWord string) (string, bool) {
	if wakeWord == "" {
		return text, true
	}

	pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(wakeWord) + `\b[,.!]?\s*`)
	if !pattern.MatchString(text) {
		return text, false
	}
	return strings.TrimSpace(pattern.ReplaceAllString(text, "")), true
}
