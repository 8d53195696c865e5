// Package stt turns captured speech audio into text through an external
// whisper-compatible transcription server.
package stt

import (
	"context"
	"errors"
	"time"
)

// Common errors
var (
	ErrTranscription = errors.New("transcription failed")
	ErrAudioTooShort = errors.New("audio too short for transcription")
	ErrNoAPIKey      = errors.New("transcription API key not configured")
)

// Request carries one utterance of mono PCM audio.
type Request struct {
	// Samples is mono float32 PCM in [-1, 1].
	Samples    []float32
	SampleRate int
	// Language is an optional hint, e.g. "en".
	Language string
}

// Response is one finished transcription.
type Response struct {
	Text           string
	Language       string
	ProcessingTime time.Duration
}

// Provider converts a finished utterance to text.
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, req *Request) (*Response, error)
}
