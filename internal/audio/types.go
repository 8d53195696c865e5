// Package audio handles microphone capture, utterance segmentation and
// speech playback.
package audio

import (
	"context"
	"errors"
	"time"
)

// Common errors
var (
	ErrCaptureClosed  = errors.New("audio capture closed")
	ErrPlaybackFailed = errors.New("audio playback failed")
	ErrUnknownFormat  = errors.New("unknown audio format")
)

// Utterance is one segmented stretch of speech from the microphone.
type Utterance struct {
	// Samples is mono float32 PCM in [-1, 1].
	Samples    []float32
	SampleRate int
	Captured   time.Time
}

// Duration returns the utterance length in wall time.
func (u Utterance) Duration() time.Duration {
	if u.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(u.Samples)) / float64(u.SampleRate) * float64(time.Second))
}

// Source produces segmented utterances. Implemented by the portaudio
// capture loop and by test fakes.
type Source interface {
	// Start begins capturing until ctx is cancelled.
	Start(ctx context.Context) error
	// Utterances returns the channel finished utterances arrive on.
	Utterances() <-chan Utterance
	// Pause suspends segmentation, e.g. while the assistant speaks.
	Pause()
	// Resume re-enables segmentation.
	Resume()
	Close() error
}
