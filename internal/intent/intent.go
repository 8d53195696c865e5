// Package intent classifies transcribed utterances into tool calls,
// memory queries, or free-form chat using a priority-ordered rule table.
package intent

import (
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Kind discriminates the Intent variants.
type Kind string

const (
	// KindToolCall requests execution of a named tool.
	KindToolCall Kind = "tool_call"
	// KindMemoryQuery asks the assistant to recall stored memories.
	KindMemoryQuery Kind = "memory_query"
	// KindFreeForm is ordinary conversation, answered by the generator.
	KindFreeForm Kind = "free_form"
)

// Intent is the classification of one utterance. Exactly the fields for
// its Kind are populated: Tool/Params for tool calls, Query for memory
// queries, Text always carries the original utterance.
type Intent struct {
	Kind   Kind
	Tool   string
	Params map[string]string
	Query  string
	Text   string
}

// Rule maps an utterance pattern to an intent template. Rules are
// evaluated in ascending Priority order; the first match wins, so lower
// numbers take precedence regardless of registration order.
type Rule struct {
	Name     string
	Priority int
	Pattern  *regexp.Regexp
	Kind     Kind
	Tool     string
	// Extract derives parameters from the raw (not lowercased) utterance.
	// May be nil for rules without parameters.
	Extract func(text string) map[string]string
	// Required lists parameter names that must be non-empty after
	// extraction; otherwise the utterance degrades to free-form.
	Required []string
}

// Classifier evaluates the rule table. It holds no mutable state after
// construction: classification is a pure function of the text.
type Classifier struct {
	rules  []Rule
	logger zerolog.Logger
}

// NewClassifier creates a classifier over the given rules, sorted by
// explicit priority. Equal priorities keep their given order.
func NewClassifier(logger zerolog.Logger, rules []Rule) *Classifier {
	sorted := append([]Rule(nil), rules...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	return &Classifier{
		rules:  sorted,
		logger: logger.With().Str("component", "intent").Logger(),
	}
}

// Classify maps text to an Intent. It never fails: unmatched or
// under-parameterized utterances come back as free-form chat.
func (c *Classifier) Classify(text string) Intent {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	for _, rule := range c.rules {
		if !rule.Pattern.MatchString(lower) {
			continue
		}

		params := map[string]string{}
		if rule.Extract != nil {
			params = rule.Extract(trimmed)
		}

		if missing := missingRequired(rule, params); missing != "" {
			c.logger.Debug().
				Str("rule", rule.Name).
				Str("missing", missing).
				Msg("Rule matched but required parameter unresolved, degrading to free-form")
			continue
		}

		c.logger.Debug().
			Str("rule", rule.Name).
			Str("kind", string(rule.Kind)).
			Msg("Matched intent rule")

		switch rule.Kind {
		case KindMemoryQuery:
			return Intent{
				Kind:  KindMemoryQuery,
				Query: params["query"],
				Text:  trimmed,
			}
		default:
			return Intent{
				Kind:   KindToolCall,
				Tool:   rule.Tool,
				Params: params,
				Text:   trimmed,
			}
		}
	}

	return Intent{Kind: KindFreeForm, Text: trimmed}
}

func missingRequired(rule Rule, params map[string]string) string {
	for _, name := range rule.Required {
		if strings.TrimSpace(params[name]) == "" {
			return name
		}
	}
	return ""
}
