package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/normanking/cortexassist/internal/embed"
)

// Manager is the high-level memory interface: it embeds text through the
// external embedding service and delegates storage to the Store.
type Manager struct {
	embedder embed.Embedder
	store    *Store
	topK     int
	minSim   float64
	logger   zerolog.Logger
}

// ManagerConfig configures retrieval behavior.
type ManagerConfig struct {
	// RetrievalTopK is the default number of records Recall returns.
	RetrievalTopK int
	// MinSimilarity filters weak matches out of Recall results.
	MinSimilarity float64
}

// NewManager creates a Manager over the given embedder and store. It loads
// the store's snapshot; a corrupt snapshot degrades to an empty store with
// a warning rather than failing startup.
func NewManager(logger zerolog.Logger, embedder embed.Embedder, store *Store, cfg ManagerConfig) *Manager {
	if cfg.RetrievalTopK <= 0 {
		cfg.RetrievalTopK = 5
	}

	m := &Manager{
		embedder: embedder,
		store:    store,
		topK:     cfg.RetrievalTopK,
		minSim:   cfg.MinSimilarity,
		logger:   logger.With().Str("component", "memory").Logger(),
	}

	if err := store.Load(); err != nil {
		if errors.Is(err, ErrCorruptSnapshot) {
			m.logger.Warn().Err(err).Msg("Memory snapshot unusable, starting with empty store")
		} else {
			m.logger.Warn().Err(err).Msg("Failed to load memory snapshot")
		}
	}

	return m
}

// Remember embeds text and stores it under the given category, then saves
// a snapshot so the record survives a crash. Returns the record id.
func (m *Manager) Remember(ctx context.Context, text, category string) (int64, error) {
	vec, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return 0, fmt.Errorf("failed to embed memory: %w", err)
	}

	id, err := m.store.Insert(vec, text, category)
	if err != nil {
		return 0, err
	}

	if err := m.store.Save(); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to save memory snapshot after insert")
	}

	m.logger.Info().
		Int64("id", id).
		Str("category", category).
		Str("text", truncate(text, 50)).
		Msg("Stored memory")

	return id, nil
}

// RememberExchange stores a user/assistant exchange as one record under
// the "conversation" category.
func (m *Manager) RememberExchange(ctx context.Context, userText, assistantText string) error {
	text := fmt.Sprintf("User: %s\nAssistant: %s", userText, assistantText)
	_, err := m.Remember(ctx, text, "conversation")
	return err
}

// Recall embeds the query and returns up to topK similar records,
// strongest first, filtered by the minimum similarity threshold.
// topK <= 0 uses the configured default.
func (m *Manager) Recall(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = m.topK
	}

	vec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := m.store.Query(vec, topK)
	if err != nil {
		return nil, err
	}

	filtered := results[:0]
	for _, r := range results {
		if r.Score >= m.minSim {
			filtered = append(filtered, r)
		}
	}

	m.logger.Debug().
		Str("query", truncate(query, 50)).
		Int("results", len(filtered)).
		Msg("Recalled memories")

	return filtered, nil
}

// Context returns relevant memories formatted for the LLM prompt, or an
// empty string when nothing relevant is stored. max <= 0 uses the
// configured retrieval top-k.
func (m *Manager) Context(ctx context.Context, query string, max int) string {
	results, err := m.Recall(ctx, query, max)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Memory retrieval failed, continuing without context")
		return ""
	}
	if len(results) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Relevant memories:\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, r.Record.Text)
	}
	return sb.String()
}

// Stats reports the underlying store's contents.
func (m *Manager) Stats() Stats {
	return m.store.Stats()
}

// Save persists the current snapshot.
func (m *Manager) Save() error {
	return m.store.Save()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
