package stt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSamples(n int) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = 0.1
	}
	return samples
}

func TestServerProviderTranscribe(t *testing.T) {
	var gotModel, gotLanguage string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		gotModel = r.FormValue("model")
		gotLanguage = r.FormValue("language")

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "utterance.wav", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "what time is it"}`))
	}))
	defer server.Close()

	provider := NewServerProvider(zerolog.Nop(), &ServerConfig{
		BaseURL:  server.URL + "/v1",
		Model:    "whisper-1",
		Language: "en",
	})

	resp, err := provider.Transcribe(context.Background(), &Request{
		Samples:    testSamples(16000),
		SampleRate: 16000,
	})
	require.NoError(t, err)
	assert.Equal(t, "what time is it", resp.Text)
	assert.Equal(t, "whisper-1", gotModel)
	assert.Equal(t, "en", gotLanguage)
}

func TestServerProviderEmptyAudio(t *testing.T) {
	provider := NewServerProvider(zerolog.Nop(), DefaultServerConfig())

	_, err := provider.Transcribe(context.Background(), &Request{SampleRate: 16000})
	assert.ErrorIs(t, err, ErrAudioTooShort)
}

func TestServerProviderHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := NewServerProvider(zerolog.Nop(), &ServerConfig{
		BaseURL: server.URL + "/v1",
		Model:   "whisper-1",
	})

	_, err := provider.Transcribe(context.Background(), &Request{
		Samples:    testSamples(1600),
		SampleRate: 16000,
	})
	assert.ErrorIs(t, err, ErrTranscription)
}

func TestServerProviderFiltersHallucination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"text": "Thank you."}`))
	}))
	defer server.Close()

	provider := NewServerProvider(zerolog.Nop(), &ServerConfig{
		BaseURL: server.URL,
		Model:   "whisper-1",
	})

	resp, err := provider.Transcribe(context.Background(), &Request{
		Samples:    testSamples(1600),
		SampleRate: 16000,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Text)
}
