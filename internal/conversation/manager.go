// Package conversation tracks the rolling dialogue history for the assistant.
package conversation

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is a single dialogue turn.
type Turn struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Config configures the Manager behavior.
type Config struct {
	// MaxTurns is the maximum number of turns to retain (default: 20)
	MaxTurns int
	// InactivityTimeout is the duration after which context expires (default: 5 minutes)
	InactivityTimeout time.Duration
}

// DefaultConfig returns sensible defaults for conversation management.
func DefaultConfig() Config {
	return Config{
		MaxTurns:          20,
		InactivityTimeout: 5 * time.Minute,
	}
}

// Manager holds a bounded ring of dialogue turns. Appending past capacity
// drops the oldest turn; reads never mutate state.
type Manager struct {
	mu           sync.RWMutex
	turns        []Turn
	lastActivity time.Time
	config       Config
}

// NewManager creates a new Manager with the given config.
func NewManager(config Config) *Manager {
	if config.MaxTurns <= 0 {
		config.MaxTurns = 20
	}
	if config.InactivityTimeout <= 0 {
		config.InactivityTimeout = 5 * time.Minute
	}

	return &Manager{
		turns:        make([]Turn, 0, config.MaxTurns),
		lastActivity: time.Now(),
		config:       config,
	}
}

// Append records a turn, trimming the oldest once MaxTurns is exceeded.
func (m *Manager) Append(turn Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isExpiredLocked() {
		m.clearLocked()
	}

	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}

	m.turns = append(m.turns, turn)
	m.lastActivity = time.Now()

	if len(m.turns) > m.config.MaxTurns {
		m.turns = m.turns[len(m.turns)-m.config.MaxTurns:]
	}
}

// AppendExchange records a user/assistant turn pair.
func (m *Manager) AppendExchange(userText, assistantText string) {
	m.Append(Turn{Speaker: SpeakerUser, Text: userText})
	m.Append(Turn{Speaker: SpeakerAssistant, Text: assistantText})
}

// Recent returns up to n turns, oldest to newest, as a copy.
func (m *Manager) Recent(n int) []Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.isExpiredLocked() || len(m.turns) == 0 {
		return nil
	}

	start := len(m.turns) - n
	if n <= 0 || start < 0 {
		start = 0
	}

	result := make([]Turn, len(m.turns)-start)
	copy(result, m.turns[start:])
	return result
}

// PromptContext returns the recent history formatted for the LLM prompt.
// Returns empty string if the context has expired or is empty.
func (m *Manager) PromptContext(maxTurns int) string {
	turns := m.Recent(maxTurns)
	if len(turns) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Recent conversation:\n")

	for _, t := range turns {
		text := t.Text
		// Truncate long assistant responses for context
		if t.Speaker == SpeakerAssistant && len(text) > 200 {
			text = text[:200] + "..."
		}
		switch t.Speaker {
		case SpeakerUser:
			fmt.Fprintf(&sb, "User: %s\n", text)
		case SpeakerAssistant:
			fmt.Fprintf(&sb, "Assistant: %s\n", text)
		}
	}

	return sb.String()
}

// Len returns the number of stored turns.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}

// Clear removes all conversation history.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked()
}

// clearLocked clears turns without acquiring lock (caller must hold lock).
func (m *Manager) clearLocked() {
	m.turns = make([]Turn, 0, m.config.MaxTurns)
}

// IsExpired checks if the conversation has expired due to inactivity.
func (m *Manager) IsExpired() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isExpiredLocked()
}

// isExpiredLocked checks expiry without acquiring lock (caller must hold lock).
func (m *Manager) isExpiredLocked() bool {
	if len(m.turns) == 0 {
		return false // Nothing to expire
	}
	return time.Since(m.lastActivity) > m.config.InactivityTimeout
}

// LastActivity returns the timestamp of the most recent activity.
func (m *Manager) LastActivity() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastActivity
}

// Stats summarizes the session for shutdown logging.
func (m *Manager) Stats() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, assistant := 0, 0
	for _, t := range m.turns {
		switch t.Speaker {
		case SpeakerUser:
			user++
		case SpeakerAssistant:
			assistant++
		}
	}
	return map[string]int{
		"total":     len(m.turns),
		"user":      user,
		"assistant": assistant,
	}
}
