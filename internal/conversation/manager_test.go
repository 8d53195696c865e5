package conversation

import (
	"strings"
	"testing"
	"time"
)

func TestNewManager_DefaultConfig(t *testing.T) {
	m := NewManager(DefaultConfig())

	if m.config.MaxTurns != 20 {
		t.Errorf("expected MaxTurns=20, got %d", m.config.MaxTurns)
	}
	if m.config.InactivityTimeout != 5*time.Minute {
		t.Errorf("expected InactivityTimeout=5m, got %v", m.config.InactivityTimeout)
	}
	if m.Len() != 0 {
		t.Errorf("expected empty history, got %d", m.Len())
	}
}

func TestNewManager_InvalidConfig(t *testing.T) {
	// Zero values should be replaced with defaults
	m := NewManager(Config{})

	if m.config.MaxTurns != 20 {
		t.Errorf("expected default MaxTurns=20, got %d", m.config.MaxTurns)
	}
	if m.config.InactivityTimeout != 5*time.Minute {
		t.Errorf("expected default InactivityTimeout=5m, got %v", m.config.InactivityTimeout)
	}
}

func TestManager_Append(t *testing.T) {
	m := NewManager(Config{MaxTurns: 4})

	m.Append(Turn{Speaker: SpeakerUser, Text: "Hello"})
	if m.Len() != 1 {
		t.Errorf("expected 1 turn, got %d", m.Len())
	}

	m.Append(Turn{Speaker: SpeakerAssistant, Text: "Hi there!"})
	if m.Len() != 2 {
		t.Errorf("expected 2 turns, got %d", m.Len())
	}
}

func TestManager_Append_TrimsOldTurns(t *testing.T) {
	m := NewManager(Config{MaxTurns: 2})

	m.Append(Turn{Speaker: SpeakerUser, Text: "First"})
	m.Append(Turn{Speaker: SpeakerUser, Text: "Second"})
	m.Append(Turn{Speaker: SpeakerUser, Text: "Third"})

	if m.Len() != 2 {
		t.Errorf("expected 2 turns after trim, got %d", m.Len())
	}

	turns := m.Recent(2)
	if turns[0].Text != "Second" {
		t.Errorf("expected oldest turn to be 'Second', got '%s'", turns[0].Text)
	}
	if turns[1].Text != "Third" {
		t.Errorf("expected newest turn to be 'Third', got '%s'", turns[1].Text)
	}
}

func TestManager_Recent_OrderAndBounds(t *testing.T) {
	m := NewManager(DefaultConfig())

	m.AppendExchange("What is Go?", "Go is a programming language.")
	m.AppendExchange("Who made it?", "Google.")

	// Asking for more than stored returns everything
	turns := m.Recent(100)
	if len(turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(turns))
	}
	if turns[0].Text != "What is Go?" || turns[3].Text != "Google." {
		t.Errorf("unexpected ordering: first=%q last=%q", turns[0].Text, turns[3].Text)
	}

	// Recent is a copy, mutating it must not affect the manager
	turns[0].Text = "mutated"
	if m.Recent(1)[0].Text == "mutated" {
		t.Error("Recent must return a copy")
	}
}

func TestManager_PromptContext(t *testing.T) {
	m := NewManager(DefaultConfig())

	if ctx := m.PromptContext(10); ctx != "" {
		t.Errorf("expected empty context for no turns, got: %s", ctx)
	}

	m.AppendExchange("What is Go?", "Go is a programming language.")
	ctx := m.PromptContext(10)

	if !strings.Contains(ctx, "Recent conversation:") {
		t.Error("expected context to contain 'Recent conversation:' header")
	}
	if !strings.Contains(ctx, "User: What is Go?") {
		t.Error("expected context to contain user text")
	}
	if !strings.Contains(ctx, "Assistant: Go is a programming language.") {
		t.Error("expected context to contain assistant text")
	}
}

func TestManager_PromptContext_TruncatesLongResponses(t *testing.T) {
	m := NewManager(DefaultConfig())

	longResponse := strings.Repeat("a", 300)
	m.AppendExchange("Question", longResponse)

	ctx := m.PromptContext(10)
	if !strings.Contains(ctx, "...") {
		t.Error("expected long assistant response to be truncated")
	}
	if strings.Contains(ctx, longResponse) {
		t.Error("expected full response to be absent from context")
	}
}

func TestManager_Clear(t *testing.T) {
	m := NewManager(DefaultConfig())

	m.AppendExchange("Hello", "Hi")
	m.Clear()

	if m.Len() != 0 {
		t.Errorf("expected 0 turns after clear, got %d", m.Len())
	}
	if ctx := m.PromptContext(10); ctx != "" {
		t.Errorf("expected empty context after clear, got: %s", ctx)
	}
}

func TestManager_ExpiryClearsContext(t *testing.T) {
	m := NewManager(Config{MaxTurns: 10, InactivityTimeout: 10 * time.Millisecond})

	m.AppendExchange("Hello", "Hi")
	time.Sleep(20 * time.Millisecond)

	if !m.IsExpired() {
		t.Error("expected conversation to be expired")
	}
	if turns := m.Recent(10); turns != nil {
		t.Errorf("expected nil turns after expiry, got %d", len(turns))
	}
	if ctx := m.PromptContext(10); ctx != "" {
		t.Errorf("expected empty context after expiry, got: %s", ctx)
	}
}

func TestManager_Stats(t *testing.T) {
	m := NewManager(DefaultConfig())

	m.AppendExchange("Hello", "Hi")
	m.Append(Turn{Speaker: SpeakerUser, Text: "More"})

	stats := m.Stats()
	if stats["total"] != 3 || stats["user"] != 2 || stats["assistant"] != 1 {
		t.Errorf("unexpected stats: %v", stats)
	}
}
