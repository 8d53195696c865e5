// Package tts synthesizes assistant responses into speech audio through
// an OpenAI-compatible speech endpoint.
package tts

import (
	"context"
	"errors"
	"time"
)

// Common errors
var (
	ErrSynthesis = errors.New("speech synthesis failed")
	ErrEmptyText = errors.New("nothing to synthesize")
	ErrNoAPIKey  = errors.New("synthesis API key not configured")
)

// Request is one piece of text to speak.
type Request struct {
	Text string
	// VoiceID overrides the configured voice for this request.
	VoiceID string
	Speed   float64
}

// Response carries the synthesized clip.
type Response struct {
	Audio          []byte
	Format         string // wav or mp3
	VoiceID        string
	ProcessingTime time.Duration
}

// Provider converts text to speech audio.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, req *Request) (*Response, error)
}
