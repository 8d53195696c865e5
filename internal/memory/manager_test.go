package memory

import (
	"context"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hashEmbedder is a deterministic stand-in for the embedding service:
// identical texts map to identical vectors, shared words overlap.
type hashEmbedder struct {
	dim int
}

func (e *hashEmbedder) Dimension() int { return e.dim }

func (e *hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[int(h.Sum32())%e.dim] += 1
	}
	return vec, nil
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	embedder := &hashEmbedder{dim: 64}
	store, err := NewStore(zerolog.Nop(), StoreConfig{
		Dimension:    embedder.dim,
		Capacity:     100,
		SnapshotPath: filepath.Join(t.TempDir(), "memory.json"),
	})
	require.NoError(t, err)

	return NewManager(zerolog.Nop(), embedder, store, ManagerConfig{
		RetrievalTopK: 3,
		MinSimilarity: 0.1,
	})
}

func TestManager_RememberAndRecall(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	id, err := m.Remember(ctx, "my favorite color is blue", "preference")
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = m.Remember(ctx, "the meeting is on tuesday", "fact")
	require.NoError(t, err)

	results, err := m.Recall(ctx, "what is my favorite color", 0)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "my favorite color is blue", results[0].Record.Text)
	assert.Equal(t, "preference", results[0].Record.Category)
}

func TestManager_Recall_EmptyStore(t *testing.T) {
	m := newTestManager(t)

	results, err := m.Recall(context.Background(), "anything", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestManager_Recall_ConfiguredTopKGoverns(t *testing.T) {
	embedder := &hashEmbedder{dim: 64}
	store, err := NewStore(zerolog.Nop(), StoreConfig{
		Dimension:    embedder.dim,
		Capacity:     100,
		SnapshotPath: filepath.Join(t.TempDir(), "memory.json"),
	})
	require.NoError(t, err)

	m := NewManager(zerolog.Nop(), embedder, store, ManagerConfig{
		RetrievalTopK: 2,
		MinSimilarity: 0,
	})
	ctx := context.Background()

	for _, text := range []string{
		"coffee order is espresso",
		"coffee order is cappuccino",
		"coffee order is flat white",
		"coffee order is cortado",
	} {
		_, err := m.Remember(ctx, text, "preference")
		require.NoError(t, err)
	}

	// topK 0 falls back to the configured value, not a hardcoded one.
	results, err := m.Recall(ctx, "coffee order", 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	// An explicit topK still wins.
	results, err = m.Recall(ctx, "coffee order", 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestManager_Context_Format(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.Remember(ctx, "the user lives in Berlin", "fact")
	require.NoError(t, err)

	text := m.Context(ctx, "where does the user live", 3)
	assert.Contains(t, text, "Relevant memories:")
	assert.Contains(t, text, "the user lives in Berlin")

	assert.Empty(t, m.Context(ctx, "completely unrelated zxqv", 3))
}

func TestManager_RememberExchange(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.RememberExchange(ctx, "hello there", "hi, how can I help"))

	stats := m.Stats()
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, 1, stats.Categories["conversation"])
}

func TestManager_SurvivesCorruptSnapshot(t *testing.T) {
	embedder := &hashEmbedder{dim: 8}
	dir := t.TempDir()
	path := filepath.Join(dir, "memory.json")

	store, err := NewStore(zerolog.Nop(), StoreConfig{
		Dimension:    8,
		Capacity:     10,
		SnapshotPath: path,
	})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{corrupt"), 0644))

	// Construction must not fail on the corrupt snapshot
	m := NewManager(zerolog.Nop(), embedder, store, ManagerConfig{})
	assert.Equal(t, 0, m.Stats().Count)

	_, err = m.Remember(context.Background(), "still works", "fact")
	assert.NoError(t, err)
}
