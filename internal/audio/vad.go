package audio

import (
	"math"
	"time"
)

// SegmenterConfig tunes speech segmentation.
type SegmenterConfig struct {
	SampleRate int
	FrameSize  int
	// Threshold is the smoothed RMS level above which a frame counts
	// as speech.
	Threshold float64
	// SmoothingFrames is the RMS averaging window.
	SmoothingFrames int
	// SilenceDuration of trailing quiet ends the utterance.
	SilenceDuration time.Duration
	// MinSpeech shorter than this is dropped as a noise blip.
	MinSpeech time.Duration
	// MaxUtterance force-closes a segment regardless of silence.
	MaxUtterance time.Duration
}

// DefaultSegmenterConfig returns sensible defaults for 16 kHz mono.
func DefaultSegmenterConfig() SegmenterConfig {
	return SegmenterConfig{
		SampleRate:      16000,
		FrameSize:       320, // 20ms
		Threshold:       0.015,
		SmoothingFrames: 5,
		SilenceDuration: 600 * time.Millisecond,
		MinSpeech:       250 * time.Millisecond,
		MaxUtterance:    15 * time.Second,
	}
}

// Segmenter accumulates microphone frames into utterances using smoothed
// RMS energy. Feed is called from a single goroutine; it is not
// concurrency safe.
type Segmenter struct {
	config SegmenterConfig

	energyHistory []float64
	historyIndex  int

	speaking      bool
	buffer        []float32
	silenceFrames int
	speechFrames  int
}

// NewSegmenter creates a Segmenter, filling zero config fields with
// defaults.
func NewSegmenter(cfg SegmenterConfig) *Segmenter {
	def := DefaultSegmenterConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = def.FrameSize
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.SmoothingFrames <= 0 {
		cfg.SmoothingFrames = def.SmoothingFrames
	}
	if cfg.SilenceDuration <= 0 {
		cfg.SilenceDuration = def.SilenceDuration
	}
	if cfg.MinSpeech <= 0 {
		cfg.MinSpeech = def.MinSpeech
	}
	if cfg.MaxUtterance <= 0 {
		cfg.MaxUtterance = def.MaxUtterance
	}

	return &Segmenter{
		config:        cfg,
		energyHistory: make([]float64, cfg.SmoothingFrames),
	}
}

// Feed processes one frame. When a complete utterance is detected it is
// returned with done=true; otherwise done is false.
func (s *Segmenter) Feed(frame []float32) (utterance []float32, done bool) {
	rms := frameRMS(frame)
	s.energyHistory[s.historyIndex] = rms
	s.historyIndex = (s.historyIndex + 1) % len(s.energyHistory)

	smoothed := 0.0
	for _, e := range s.energyHistory {
		smoothed += e
	}
	smoothed /= float64(len(s.energyHistory))

	frameDur := s.frameDuration()
	isSpeech := smoothed >= s.config.Threshold

	if isSpeech {
		s.speaking = true
		s.silenceFrames = 0
		s.speechFrames++
		s.buffer = append(s.buffer, frame...)
	} else if s.speaking {
		s.silenceFrames++
		s.buffer = append(s.buffer, frame...)

		if time.Duration(s.silenceFrames)*frameDur >= s.config.SilenceDuration {
			return s.finish()
		}
	}

	if s.speaking && time.Duration(len(s.buffer))*time.Second/time.Duration(s.config.SampleRate) >= s.config.MaxUtterance {
		return s.finish()
	}

	return nil, false
}

// Flush closes any in-progress segment, returning it if long enough.
func (s *Segmenter) Flush() (utterance []float32, done bool) {
	if !s.speaking {
		return nil, false
	}
	return s.finish()
}

// Reset drops all segmentation state.
func (s *Segmenter) Reset() {
	s.speaking = false
	s.buffer = nil
	s.silenceFrames = 0
	s.speechFrames = 0
	s.historyIndex = 0
	for i := range s.energyHistory {
		s.energyHistory[i] = 0
	}
}

// Speaking reports whether a segment is currently open.
func (s *Segmenter) Speaking() bool {
	return s.speaking
}

func (s *Segmenter) finish() ([]float32, bool) {
	speechDur := time.Duration(s.speechFrames) * s.frameDuration()
	buffer := s.buffer

	s.speaking = false
	s.buffer = nil
	s.silenceFrames = 0
	s.speechFrames = 0

	if speechDur < s.config.MinSpeech {
		return nil, false
	}
	return buffer, true
}

func (s *Segmenter) frameDuration() time.Duration {
	return time.Duration(s.config.FrameSize) * time.Second / time.Duration(s.config.SampleRate)
}

func frameRMS(frame []float32) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, x := range frame {
		sum += float64(x * x)
	}
	return math.Sqrt(sum / float64(len(frame)))
}
