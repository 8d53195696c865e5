package tools

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/normanking/cortexassist/internal/memory"
)

// RememberTool stores a fact in semantic memory.
type RememberTool struct {
	Memory *memory.Manager
}

// Descriptor returns the tool registration record.
func (t *RememberTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "memory.remember",
		Description: "Store a fact or preference in long-term memory",
		Tier:        TierSafe,
		Params: []Param{
			{Name: "information", Type: "string", Description: "text to remember", Required: true},
			{Name: "category", Type: "string", Description: "memory category", Default: "fact"},
		},
	}
}

// Execute implements Handler.
func (t *RememberTool) Execute(ctx context.Context, params map[string]string) Result {
	id, err := t.Memory.Remember(ctx, params["information"], params["category"])
	if err != nil {
		return Result{Success: false, Err: err.Error(), Text: "I couldn't store that."}
	}
	return Result{Success: true, Text: fmt.Sprintf("Got it, I'll remember that. (memory %d)", id)}
}

// RecallTool searches semantic memory and formats the matches.
type RecallTool struct {
	Memory *memory.Manager
}

// Descriptor returns the tool registration record.
func (t *RecallTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "memory.recall",
		Description: "Search long-term memory for relevant facts",
		Tier:        TierSafe,
		Params: []Param{
			{Name: "query", Type: "string", Description: "what to look for", Required: true},
			{Name: "limit", Type: "int", Description: "max results, memory's configured top-k when omitted"},
		},
	}
}

// Execute implements Handler.
func (t *RecallTool) Execute(ctx context.Context, params map[string]string) Result {
	limit, _ := strconv.Atoi(params["limit"])

	results, err := t.Memory.Recall(ctx, params["query"], limit)
	if err != nil {
		return Result{Success: false, Err: err.Error(), Text: "Memory search failed."}
	}
	if len(results) == 0 {
		return Result{Success: true, Text: "I don't remember anything about that."}
	}

	var b strings.Builder
	b.WriteString("Here's what I remember:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s (relevance %.2f)\n", i+1, r.Record.Text, r.Score)
	}
	return Result{Success: true, Text: strings.TrimRight(b.String(), "\n")}
}

// MemoryStatsTool reports how much the assistant remembers, by category.
type MemoryStatsTool struct {
	Memory *memory.Manager
}

// Descriptor returns the tool registration record.
func (t *MemoryStatsTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "memory.stats",
		Description: "Report memory usage by category",
		Tier:        TierSafe,
	}
}

// Execute implements Handler.
func (t *MemoryStatsTool) Execute(_ context.Context, _ map[string]string) Result {
	stats := t.Memory.Stats()
	if stats.Count == 0 {
		return Result{Success: true, Text: "My memory is empty."}
	}

	categories := make([]string, 0, len(stats.Categories))
	for c := range stats.Categories {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var b strings.Builder
	fmt.Fprintf(&b, "I'm holding %d of %d memories.", stats.Count, stats.Capacity)
	for _, c := range categories {
		fmt.Fprintf(&b, " %s: %d.", c, stats.Categories[c])
	}
	return Result{Success: true, Text: b.String()}
}
