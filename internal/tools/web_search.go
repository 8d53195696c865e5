package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const duckDuckGoURL = "https://api.duckduckgo.com"

// WebSearchTool answers queries through DuckDuckGo's instant-answer API.
// No API key is needed; the endpoint returns an abstract plus related
// topics, which is enough for a spoken summary.
type WebSearchTool struct {
	BaseURL string
	Client  *http.Client
}

type duckDuckGoTopic struct {
	Text     string            `json:"Text"`
	FirstURL string            `json:"FirstURL"`
	Topics   []duckDuckGoTopic `json:"Topics"`
}

type duckDuckGoResponse struct {
	Heading       string            `json:"Heading"`
	AbstractText  string            `json:"AbstractText"`
	AbstractURL   string            `json:"AbstractURL"`
	RelatedTopics []duckDuckGoTopic `json:"RelatedTopics"`
}

// Descriptor returns the tool registration record.
func (t *WebSearchTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "web.search",
		Description: "Search the web for current information or answers",
		Tier:        TierSafe,
		Params: []Param{
			{Name: "query", Type: "string", Description: "search query or question", Required: true},
			{Name: "limit", Type: "int", Description: "max results", Default: "5"},
		},
	}
}

// Execute implements Handler.
func (t *WebSearchTool) Execute(ctx context.Context, params map[string]string) Result {
	limit, _ := strconv.Atoi(params["limit"])
	if limit <= 0 {
		limit = 5
	}

	base := t.BaseURL
	if base == "" {
		base = duckDuckGoURL
	}
	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	query := params["query"]
	endpoint := strings.TrimRight(base, "/") + "/?" + url.Values{
		"q":             {query},
		"format":        {"json"},
		"no_html":       {"1"},
		"skip_disambig": {"1"},
		"no_redirect":   {"1"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{Success: false, Err: err.Error(), Text: "Web search failed."}
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Success: false, Err: err.Error(), Text: "Web search failed."}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{
			Success: false,
			Err:     fmt.Sprintf("search returned status %d", resp.StatusCode),
			Text:    "Web search failed.",
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{Success: false, Err: err.Error(), Text: "Web search failed."}
	}

	var parsed duckDuckGoResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Result{Success: false, Err: err.Error(), Text: "Web search failed."}
	}

	snippets := collectSnippets(parsed, limit)
	if len(snippets) == 0 {
		return Result{Success: true, Text: "No results found for your search."}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here's what I found about %s:\n", query)
	for i, s := range snippets {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	return Result{Success: true, Text: strings.TrimRight(b.String(), "\n")}
}

// collectSnippets flattens the abstract and one level of related topics
// into at most limit result lines.
func collectSnippets(parsed duckDuckGoResponse, limit int) []string {
	var snippets []string
	if parsed.AbstractText != "" {
		snippets = append(snippets, parsed.AbstractText)
	}
	for _, topic := range parsed.RelatedTopics {
		if len(snippets) >= limit {
			break
		}
		if topic.Text != "" {
			snippets = append(snippets, topic.Text)
			continue
		}
		for _, sub := range topic.Topics {
			if len(snippets) >= limit {
				break
			}
			if sub.Text != "" {
				snippets = append(snippets, sub.Text)
			}
		}
	}
	if len(snippets) > limit {
		snippets = snippets[:limit]
	}
	return snippets
}
