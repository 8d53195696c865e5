package audio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"
)

// Capture reads the default input device through portaudio and emits
// segmented utterances.
type Capture struct {
	config   SegmenterConfig
	logger   zerolog.Logger
	out      chan Utterance
	paused   atomic.Bool
	closed   atomic.Bool
	initOnce sync.Once
	initErr  error
}

// NewCapture creates a microphone capture source.
func NewCapture(logger zerolog.Logger, cfg SegmenterConfig) *Capture {
	return &Capture{
		config: cfg,
		logger: logger.With().Str("component", "capture").Logger(),
		out:    make(chan Utterance, 1),
	}
}

// Utterances implements Source.
func (c *Capture) Utterances() <-chan Utterance {
	return c.out
}

// Pause implements Source. Frames read while paused are discarded, so
// the assistant does not transcribe its own speech.
func (c *Capture) Pause() {
	c.paused.Store(true)
}

// Resume implements Source.
func (c *Capture) Resume() {
	c.paused.Store(false)
}

// Close implements Source.
func (c *Capture) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		return portaudio.Terminate()
	}
	return nil
}

// Start runs the capture loop until ctx is cancelled. It blocks; run it
// in its own goroutine.
func (c *Capture) Start(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = portaudio.Initialize()
	})
	if c.initErr != nil {
		return fmt.Errorf("portaudio init: %w", c.initErr)
	}

	segmenter := NewSegmenter(c.config)
	cfg := segmenter.config

	buf := make([]float32, cfg.FrameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(cfg.SampleRate), len(buf), buf)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start input stream: %w", err)
	}
	defer stream.Stop()

	c.logger.Info().
		Int("sample_rate", cfg.SampleRate).
		Int("frame_size", cfg.FrameSize).
		Msg("Microphone capture started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := stream.Read(); err != nil {
			if c.closed.Load() {
				return ErrCaptureClosed
			}
			c.logger.Warn().Err(err).Msg("Input stream read failed")
			continue
		}

		if c.paused.Load() {
			segmenter.Reset()
			continue
		}

		frame := make([]float32, len(buf))
		copy(frame, buf)

		samples, done := segmenter.Feed(frame)
		if !done {
			continue
		}

		utterance := Utterance{
			Samples:    samples,
			SampleRate: cfg.SampleRate,
			Captured:   time.Now(),
		}
		c.logger.Debug().Dur("length", utterance.Duration()).Msg("Utterance captured")

		select {
		case c.out <- utterance:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
