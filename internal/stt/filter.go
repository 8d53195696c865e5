package stt

import (
	"regexp"
	"strings"
	"sync"
)

// DefaultFillerWords are hesitation sounds stripped from transcripts.
// Real words that double as confirmations ("okay", "right") stay.
var DefaultFillerWords = []string{
	"um", "uh", "uhh", "umm",
	"er", "ah", "hmm", "mm",
}

// hallucinations are phrases whisper models emit for silence or noise.
// A transcript that is exactly one of these is discarded.
var hallucinations = map[string]struct{}{
	"thank you":              {},
	"thanks for watching":    {},
	"thank you for watching": {},
	"subtitles by":           {},
	"you":                    {},
	"bye":                    {},
}

// TranscriptFilter cleans filler words and model hallucinations out of
// transcripts before they reach intent classification.
type TranscriptFilter struct {
	mu          sync.RWMutex
	fillerWords map[string]struct{}
	pattern     *regexp.Regexp
}

// NewTranscriptFilter creates a filter; nil fillerWords selects the
// defaults.
func NewTranscriptFilter(fillerWords []string) *TranscriptFilter {
	if fillerWords == nil {
		fillerWords = DefaultFillerWords
	}

	f := &TranscriptFilter{
		fillerWords: make(map[string]struct{}, len(fillerWords)),
	}
	for _, word := range fillerWords {
		f.fillerWords[strings.ToLower(word)] = struct{}{}
	}
	f.buildPattern()
	return f
}

func (f *TranscriptFilter) buildPattern() {
	if len(f.fillerWords) == 0 {
		f.pattern = nil
		return
	}
	patterns := make([]string, 0, len(f.fillerWords))
	for word := range f.fillerWords {
		patterns = append(patterns, `\b`+regexp.QuoteMeta(word)+`\b`)
	}
	f.pattern = regexp.MustCompile(`(?i)(` + strings.Join(patterns, `|`) + `)`)
}

// SetFillerWords replaces the filler word list.
func (f *TranscriptFilter) SetFillerWords(words []string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fillerWords = make(map[string]struct{}, len(words))
	for _, word := range words {
		f.fillerWords[strings.ToLower(word)] = struct{}{}
	}
	f.buildPattern()
}

var (
	spacePattern    = regexp.MustCompile(`\s+`)
	punctOnlyRegexp = regexp.MustCompile(`^[.,!?;:\s]+$`)
)

// Clean removes fillers and normalizes whitespace. The second return is
// false when nothing meaningful remains, the transcript is punctuation
// only, or the whole utterance is a known hallucination.
func (f *TranscriptFilter) Clean(text string) (string, bool) {
	if text == "" {
		return "", false
	}

	normalized := strings.ToLower(strings.Trim(strings.TrimSpace(text), ".,!? "))
	if _, ok := hallucinations[normalized]; ok {
		return "", false
	}

	f.mu.RLock()
	pattern := f.pattern
	f.mu.RUnlock()

	cleaned := text
	if pattern != nil {
		cleaned = pattern.ReplaceAllString(cleaned, "")
	}
	cleaned = strings.TrimSpace(spacePattern.ReplaceAllString(cleaned, " "))
	if punctOnlyRegexp.MatchString(cleaned) {
		cleaned = ""
	}

	return cleaned, cleaned != ""
}

// IsNoise reports whether a transcript carries no usable content.
func (f *TranscriptFilter) IsNoise(text string) bool {
	_, meaningful := f.Clean(text)
	return !meaningful
}
