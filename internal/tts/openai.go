package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Voice identifiers accepted by OpenAI-style speech endpoints.
const (
	VoiceAlloy   = "alloy"
	VoiceEcho    = "echo"
	VoiceFable   = "fable"
	VoiceOnyx    = "onyx"
	VoiceNova    = "nova"
	VoiceShimmer = "shimmer"
)

// OpenAIConfig holds speech endpoint settings.
type OpenAIConfig struct {
	// BaseURL points at an OpenAI-compatible server; local piper or
	// kokoro bridges work as long as they expose /audio/speech.
	BaseURL      string        `json:"base_url"`
	APIKey       string        `json:"api_key"`
	Model        string        `json:"model"`
	DefaultVoice string        `json:"default_voice"`
	Speed        float64       `json:"speed"` // 0.25 to 4.0
	Format       string        `json:"format"`
	Timeout      time.Duration `json:"timeout"`
}

// DefaultOpenAIConfig returns sensible defaults.
func DefaultOpenAIConfig() *OpenAIConfig {
	return &OpenAIConfig{
		BaseURL:      "https://api.openai.com/v1",
		Model:        "tts-1",
		DefaultVoice: VoiceNova,
		Speed:        1.0,
		Format:       "mp3",
		Timeout:      30 * time.Second,
	}
}

// OpenAIProvider synthesizes speech over HTTP.
type OpenAIProvider struct {
	apiKey string
	client *http.Client
	logger zerolog.Logger
	config *OpenAIConfig
}

// NewOpenAIProvider creates a speech synthesis client. The API key falls
// back to OPENAI_API_KEY; local servers typically need none.
func NewOpenAIProvider(logger zerolog.Logger, config *OpenAIConfig) *OpenAIProvider {
	if config == nil {
		config = DefaultOpenAIConfig()
	}

	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	return &OpenAIProvider{
		apiKey: apiKey,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.With().Str("provider", "openai-tts").Logger(),
		config: config,
	}
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string {
	return "openai-tts"
}

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format,omitempty"`
	Speed          float64 `json:"speed,omitempty"`
}

// Synthesize converts text to one audio clip.
func (p *OpenAIProvider) Synthesize(ctx context.Context, req *Request) (*Response, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}

	startTime := time.Now()

	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = p.config.DefaultVoice
	}
	speed := req.Speed
	if speed == 0 {
		speed = p.config.Speed
	}
	format := p.config.Format
	if format == "" {
		format = "mp3"
	}

	body, err := json.Marshal(speechRequest{
		Model:          p.config.Model,
		Input:          req.Text,
		Voice:          voiceID,
		ResponseFormat: format,
		Speed:          speed,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesis, err)
	}

	url := strings.TrimRight(p.config.BaseURL, "/") + "/audio/speech"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		p.logger.Error().
			Int("status", resp.StatusCode).
			Str("body", string(errBody)).
			Msg("Speech synthesis request failed")
		return nil, fmt.Errorf("%w: server returned %d", ErrSynthesis, resp.StatusCode)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesis, err)
	}

	processingTime := time.Since(startTime)
	p.logger.Info().
		Str("voice", voiceID).
		Int("audio_bytes", len(audioData)).
		Dur("time", processingTime).
		Msg("Synthesis complete")

	return &Response{
		Audio:          audioData,
		Format:         format,
		VoiceID:        voiceID,
		ProcessingTime: processingTime,
	}, nil
}
