package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/cortexassist/internal/audio"
)

// ServerConfig holds transcription server settings.
type ServerConfig struct {
	// BaseURL points at a whisper-compatible server, e.g. a local
	// whisper.cpp server or https://api.openai.com/v1.
	BaseURL  string        `json:"base_url"`
	APIKey   string        `json:"api_key"`
	Model    string        `json:"model"`
	Language string        `json:"language"`
	Timeout  time.Duration `json:"timeout"`
}

// DefaultServerConfig returns sensible defaults for a local server.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		BaseURL: "http://localhost:8080/v1",
		Model:   "whisper-1",
		Timeout: 30 * time.Second,
	}
}

// ServerProvider posts WAV utterances to a whisper-compatible HTTP
// endpoint and returns the transcribed text.
type ServerProvider struct {
	apiKey string
	client *http.Client
	logger zerolog.Logger
	config *ServerConfig
	filter *TranscriptFilter
}

// NewServerProvider creates a transcription client. The API key falls
// back to OPENAI_API_KEY; local servers typically need none.
func NewServerProvider(logger zerolog.Logger, config *ServerConfig) *ServerProvider {
	if config == nil {
		config = DefaultServerConfig()
	}

	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	return &ServerProvider{
		apiKey: apiKey,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.With().Str("provider", "whisper-server").Logger(),
		config: config,
		filter: NewTranscriptFilter(nil),
	}
}

// Name returns the provider identifier.
func (p *ServerProvider) Name() string {
	return "whisper-server"
}

// Transcribe sends one utterance and returns the cleaned transcript.
// Transcripts that clean down to nothing return an empty Text; callers
// treat that as silence.
func (p *ServerProvider) Transcribe(ctx context.Context, req *Request) (*Response, error) {
	startTime := time.Now()

	if len(req.Samples) == 0 {
		return nil, ErrAudioTooShort
	}

	wavData, err := audio.EncodeWAV(req.Samples, req.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscription, err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "utterance.wav")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	if _, err := part.Write(wavData); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	if err := writer.WriteField("model", p.config.Model); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	language := req.Language
	if language == "" {
		language = p.config.Language
	}
	if language != "" {
		if err := writer.WriteField("language", language); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTranscription, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscription, err)
	}

	url := strings.TrimRight(p.config.BaseURL, "/") + "/audio/transcriptions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	if resp.StatusCode != http.StatusOK {
		p.logger.Error().Int("status", resp.StatusCode).Str("body", string(body)).Msg("Transcription server error")
		return nil, fmt.Errorf("%w: server returned %d", ErrTranscription, resp.StatusCode)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscription, err)
	}

	cleaned, _ := p.filter.Clean(result.Text)
	processingTime := time.Since(startTime)
	p.logger.Info().Str("text", cleaned).Dur("time", processingTime).Msg("Transcription complete")

	return &Response{
		Text:           cleaned,
		Language:       language,
		ProcessingTime: processingTime,
	}, nil
}
