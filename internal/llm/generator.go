// Package llm produces conversational responses through an
// OpenAI-compatible chat completion endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"
)

// Common errors
var (
	ErrGeneration = errors.New("response generation failed")
	ErrEmptyInput = errors.New("empty generation input")
)

const systemPrompt = `You are a concise voice assistant running on the user's own machine.

RULES:
1. Answer in one to three short spoken sentences; your output is read aloud.
2. No markdown, no lists, no code blocks.
3. You cannot shut down, reboot or modify the host system, and you must refuse requests to do so.
4. You cannot run commands yourself; dedicated tools handle that with their own safeguards.
5. If relevant memories or a tool result are provided, ground your answer in them.
6. If you do not know, say so briefly.`

// Prompt is the assembled input for one response.
type Prompt struct {
	// UserText is what the user just said.
	UserText string
	// MemoryContext lists relevant long-term memories, may be empty.
	MemoryContext string
	// ConversationContext is the recent exchange history, may be empty.
	ConversationContext string
	// ToolResult is output to be rephrased conversationally, may be empty.
	ToolResult string
}

// Generator produces a spoken response for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// Config holds chat endpoint settings.
type Config struct {
	BaseURL     string        `json:"base_url"`
	APIKey      string        `json:"api_key"`
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Timeout     time.Duration `json:"timeout"`
}

// DefaultConfig returns sensible defaults for a local server.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "http://localhost:11434/v1",
		Model:       "llama3.2",
		MaxTokens:   256,
		Temperature: 0.7,
		Timeout:     30 * time.Second,
	}
}

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	api    openai.Client
	config *Config
	logger zerolog.Logger
}

// NewClient creates a chat completion client.
func NewClient(logger zerolog.Logger, config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	opts := []option.RequestOption{}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.APIKey != "" {
		opts = append(opts, option.WithAPIKey(config.APIKey))
	}

	return &Client{
		api:    openai.NewClient(opts...),
		config: config,
		logger: logger.With().Str("component", "llm").Logger(),
	}
}

// Generate produces one spoken response.
func (c *Client) Generate(ctx context.Context, prompt Prompt) (string, error) {
	if strings.TrimSpace(prompt.UserText) == "" {
		return "", ErrEmptyInput
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	startTime := time.Now()

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(BuildUserMessage(prompt)),
		},
		Model:               openai.ChatModel(c.config.Model),
		MaxCompletionTokens: openai.Int(int64(c.config.MaxTokens)),
		Temperature:         openai.Float(c.config.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrGeneration)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty message content", ErrGeneration)
	}

	c.logger.Debug().
		Int("chars", len(content)).
		Dur("time", time.Since(startTime)).
		Msg("Response generated")
	return content, nil
}

// BuildUserMessage folds memory, history and tool output into one user
// message so small local models see a single coherent block.
func BuildUserMessage(prompt Prompt) string {
	var b strings.Builder

	if prompt.MemoryContext != "" {
		b.WriteString(prompt.MemoryContext)
		b.WriteString("\n\n")
	}
	if prompt.ConversationContext != "" {
		b.WriteString(prompt.ConversationContext)
		b.WriteString("\n\n")
	}
	if prompt.ToolResult != "" {
		b.WriteString("Tool output: ")
		b.WriteString(prompt.ToolResult)
		b.WriteString("\n\n")
	}
	b.WriteString(prompt.UserText)
	return b.String()
}
