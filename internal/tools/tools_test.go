package tools

import (
	"context"
	"hash/fnv"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cortexassist/internal/memory"
)

const embedDim = 32

type wordEmbedder struct{}

func (wordEmbedder) Dimension() int { return embedDim }

func (wordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, embedDim)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%embedDim]++
	}
	return vec, nil
}

func newTestMemory(t *testing.T) *memory.Manager {
	t.Helper()
	store, err := memory.NewStore(zerolog.Nop(), memory.StoreConfig{
		Dimension:    embedDim,
		Capacity:     100,
		SnapshotPath: filepath.Join(t.TempDir(), "memories.json"),
	})
	require.NoError(t, err)
	return memory.NewManager(zerolog.Nop(), wordEmbedder{}, store, memory.ManagerConfig{RetrievalTopK: 3})
}

func TestTimeTool(t *testing.T) {
	fixed := time.Date(2026, time.March, 14, 15, 9, 0, 0, time.UTC)
	tool := &TimeTool{Now: func() time.Time { return fixed }}

	result := tool.Execute(context.Background(), map[string]string{"format": "time"})
	require.True(t, result.Success)
	assert.Equal(t, "It's 3:09 PM.", result.Text)

	result = tool.Execute(context.Background(), map[string]string{"format": "date"})
	require.True(t, result.Success)
	assert.Equal(t, "Today is Saturday, March 14, 2026.", result.Text)

	result = tool.Execute(context.Background(), map[string]string{"format": "full"})
	require.True(t, result.Success)
	assert.Contains(t, result.Text, "3:09 PM")
	assert.Contains(t, result.Text, "March 14, 2026")
}

func TestSystemInfoTool(t *testing.T) {
	tool := &SystemInfoTool{}
	result := tool.Execute(context.Background(), nil)
	require.True(t, result.Success)
	assert.Contains(t, result.Text, "CPUs")
}

func TestExecToolRejectsUnlistedCommand(t *testing.T) {
	tool := &ExecTool{Whitelist: []string{"date"}}

	result := tool.Execute(context.Background(), map[string]string{"command": "rm -rf /"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Err, "not whitelisted")

	result = tool.Execute(context.Background(), map[string]string{"command": "   "})
	assert.False(t, result.Success)
}

func TestMemoryToolsRoundtrip(t *testing.T) {
	mem := newTestMemory(t)
	remember := &RememberTool{Memory: mem}
	recall := &RecallTool{Memory: mem}
	stats := &MemoryStatsTool{Memory: mem}

	result := remember.Execute(context.Background(), map[string]string{
		"information": "my favorite color is blue",
		"category":    "preference",
	})
	require.True(t, result.Success)

	result = recall.Execute(context.Background(), map[string]string{
		"query": "favorite color",
		"limit": "3",
	})
	require.True(t, result.Success)
	assert.Contains(t, result.Text, "favorite color is blue")
	assert.Contains(t, result.Text, "relevance")

	result = stats.Execute(context.Background(), nil)
	require.True(t, result.Success)
	assert.Contains(t, result.Text, "preference: 1")
}

func TestRecallToolOmittedLimitUsesConfiguredTopK(t *testing.T) {
	store, err := memory.NewStore(zerolog.Nop(), memory.StoreConfig{
		Dimension:    embedDim,
		Capacity:     100,
		SnapshotPath: filepath.Join(t.TempDir(), "memories.json"),
	})
	require.NoError(t, err)
	mem := memory.NewManager(zerolog.Nop(), wordEmbedder{}, store, memory.ManagerConfig{
		RetrievalTopK: 1,
		MinSimilarity: 0,
	})

	ctx := context.Background()
	for _, text := range []string{"cat named felix", "cat named tom"} {
		_, err := mem.Remember(ctx, text, "fact")
		require.NoError(t, err)
	}

	reg := NewRegistry(RegistryConfig{}, zerolog.Nop())
	recall := &RecallTool{Memory: mem}
	require.NoError(t, reg.Register(recall.Descriptor(), recall))

	// No limit parameter: the memory manager's configured top-k decides,
	// so exactly one match comes back.
	result, err := reg.Invoke(ctx, "turn-1", "memory.recall", map[string]string{
		"query": "cat named",
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, 1, strings.Count(result.Text, "cat named"))
}

func TestRecallToolEmptyMemory(t *testing.T) {
	mem := newTestMemory(t)
	recall := &RecallTool{Memory: mem}

	result := recall.Execute(context.Background(), map[string]string{
		"query": "anything",
		"limit": "3",
	})
	require.True(t, result.Success)
	assert.Equal(t, "I don't remember anything about that.", result.Text)
}

type fakeSender struct {
	sent []tgbotapi.Chattable
	fail error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.fail != nil {
		return tgbotapi.Message{}, f.fail
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func TestTelegramTool(t *testing.T) {
	sender := &fakeSender{}
	tool := &TelegramTool{bot: sender, chatID: 42}

	result := tool.Execute(context.Background(), map[string]string{"message": "dinner is ready"})
	require.True(t, result.Success)
	require.Len(t, sender.sent, 1)

	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "dinner is ready", msg.Text)
}

func TestRegisterBuiltins(t *testing.T) {
	reg := newTestRegistry(t)
	mem := newTestMemory(t)

	err := RegisterBuiltins(reg, mem, BuiltinOptions{
		ExecWhitelist: []string{"uptime", "date"},
	}, zerolog.Nop())
	require.NoError(t, err)

	for _, name := range []string{
		"time.now", "system.info", "calc.eval",
		"volume.up", "volume.down", "app.open", "system.exec",
		"web.search", "memory.remember", "memory.recall", "memory.stats",
	} {
		_, ok := reg.Get(name)
		assert.True(t, ok, "missing tool %s", name)
	}

	desc, ok := reg.Get("system.shutdown")
	require.True(t, ok)
	assert.Equal(t, TierForbidden, desc.Tier)

	// no telegram token configured, so no telegram tool
	_, ok = reg.Get("telegram.alert")
	assert.False(t, ok)
}
