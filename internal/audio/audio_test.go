package audio

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loudFrame(size int) []float32 {
	frame := make([]float32, size)
	for i := range frame {
		if i%2 == 0 {
			frame[i] = 0.5
		} else {
			frame[i] = -0.5
		}
	}
	return frame
}

func quietFrame(size int) []float32 {
	return make([]float32, size)
}

func testSegmenter() *Segmenter {
	return NewSegmenter(SegmenterConfig{
		SampleRate:      16000,
		FrameSize:       320,
		Threshold:       0.01,
		SmoothingFrames: 1,
		SilenceDuration: 100 * time.Millisecond, // 5 frames
		MinSpeech:       60 * time.Millisecond,  // 3 frames
		MaxUtterance:    2 * time.Second,
	})
}

func TestSegmenterDetectsUtterance(t *testing.T) {
	s := testSegmenter()

	// 10 frames of speech
	for i := 0; i < 10; i++ {
		_, done := s.Feed(loudFrame(320))
		require.False(t, done)
	}
	assert.True(t, s.Speaking())

	// silence until the segment closes
	var utterance []float32
	for i := 0; i < 10; i++ {
		if u, done := s.Feed(quietFrame(320)); done {
			utterance = u
			break
		}
	}
	require.NotNil(t, utterance)
	assert.False(t, s.Speaking())
	// speech frames plus trailing silence padding
	assert.GreaterOrEqual(t, len(utterance), 10*320)
}

func TestSegmenterDropsNoiseBlips(t *testing.T) {
	s := testSegmenter()

	// one loud frame is below the minimum speech duration
	_, done := s.Feed(loudFrame(320))
	require.False(t, done)

	for i := 0; i < 10; i++ {
		u, done := s.Feed(quietFrame(320))
		assert.False(t, done)
		assert.Nil(t, u)
	}
}

func TestSegmenterIgnoresSilence(t *testing.T) {
	s := testSegmenter()

	for i := 0; i < 100; i++ {
		u, done := s.Feed(quietFrame(320))
		assert.False(t, done)
		assert.Nil(t, u)
	}
	assert.False(t, s.Speaking())
}

func TestSegmenterMaxUtterance(t *testing.T) {
	s := testSegmenter()

	// 2s at 320 samples per frame is 100 frames; keep shouting
	var closed bool
	for i := 0; i < 150; i++ {
		if _, done := s.Feed(loudFrame(320)); done {
			closed = true
			break
		}
	}
	assert.True(t, closed, "segment must close at max utterance length")
}

func TestSegmenterFlush(t *testing.T) {
	s := testSegmenter()

	for i := 0; i < 10; i++ {
		s.Feed(loudFrame(320))
	}
	u, done := s.Flush()
	require.True(t, done)
	assert.Len(t, u, 10*320)

	_, done = s.Flush()
	assert.False(t, done)
}

func TestMailboxLatestWins(t *testing.T) {
	m := NewMailbox()

	first := Utterance{Samples: []float32{1}, SampleRate: 16000}
	second := Utterance{Samples: []float32{2}, SampleRate: 16000}

	assert.False(t, m.Put(first))
	assert.True(t, m.Put(second), "second put must displace the first")

	got, err := m.Take(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float32(2), got.Samples[0])

	_, ok := m.TryTake()
	assert.False(t, ok)
}

func TestMailboxTakeBlocks(t *testing.T) {
	m := NewMailbox()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := m.Take(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMailboxTakeWakesOnPut(t *testing.T) {
	m := NewMailbox()

	go func() {
		time.Sleep(20 * time.Millisecond)
		m.Put(Utterance{Samples: []float32{3}})
	}()

	got, err := m.Take(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float32(3), got.Samples[0])
}

func TestMailboxClear(t *testing.T) {
	m := NewMailbox()
	m.Put(Utterance{Samples: []float32{1}})
	m.Clear()

	_, ok := m.TryTake()
	assert.False(t, ok)
}

func TestEncodeWAVRoundtrip(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1, -1}
	data, err := EncodeWAV(samples, 16000)
	require.NoError(t, err)

	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))

	dec := wav.NewDecoder(bytes.NewReader(data))
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	require.Len(t, buf.Data, len(samples))
	assert.Equal(t, 16000, buf.Format.SampleRate)
	assert.Equal(t, 1, buf.Format.NumChannels)
	assert.Equal(t, 0, buf.Data[0])
	assert.InDelta(t, 16384, buf.Data[1], 1)
	assert.InDelta(t, -16384, buf.Data[2], 1)
}

func TestUtteranceDuration(t *testing.T) {
	u := Utterance{Samples: make([]float32, 16000), SampleRate: 16000}
	assert.Equal(t, time.Second, u.Duration())
	assert.Equal(t, time.Duration(0), Utterance{}.Duration())
}
