package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	beepwav "github.com/faiface/beep/wav"
	"github.com/rs/zerolog"
)

// Player renders synthesized speech through the default output device.
type Player struct {
	mu     sync.Mutex
	volume int
	logger zerolog.Logger
}

// NewPlayer creates a Player with volume as a 0-100 percentage.
func NewPlayer(logger zerolog.Logger, volume int) *Player {
	if volume < 0 {
		volume = 0
	} else if volume > 100 {
		volume = 100
	}
	return &Player{
		volume: volume,
		logger: logger.With().Str("component", "playback").Logger(),
	}
}

// SetVolume updates the output volume percentage.
func (p *Player) SetVolume(volume int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if volume < 0 {
		volume = 0
	} else if volume > 100 {
		volume = 100
	}
	p.volume = volume
}

// Play decodes and plays one clip, blocking until it finishes or ctx is
// cancelled. Cancelling stops playback immediately.
func (p *Player) Play(ctx context.Context, data []byte, format string) error {
	var (
		streamer   beep.StreamSeekCloser
		beepFormat beep.Format
		err        error
	)

	switch format {
	case "wav":
		streamer, beepFormat, err = beepwav.Decode(bytes.NewReader(data))
	case "mp3":
		streamer, beepFormat, err = mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	if err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrPlaybackFailed, format, err)
	}
	defer streamer.Close()

	p.mu.Lock()
	volume := p.volume
	p.mu.Unlock()

	if volume == 0 {
		p.logger.Debug().Msg("Playback skipped, volume muted")
		return nil
	}

	if err := speaker.Init(beepFormat.SampleRate, beepFormat.SampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("%w: speaker init: %v", ErrPlaybackFailed, err)
	}

	shaped := &effects.Volume{
		Streamer: streamer,
		Base:     2,
		Volume:   math.Log2(float64(volume) / 100),
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(shaped, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

// Stop cuts any in-progress playback.
func (p *Player) Stop() {
	speaker.Clear()
}
