package elevenlabs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/langid/internal/cost"
	"github.com/sells-group/langid/internal/resilience"
)

func clip(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "clip.mp3")
	require.NoError(t, os.WriteFile(p, []byte("ID3"), 0o600))
	return p
}

func newProvider(url, key string) *Provider {
	return New(Config{URL: url, APIKey: key},
		cost.NewCalculator(cost.DefaultRates()),
		resilience.Policy{Retry: resilience.RetryConfig{MaxAttempts: 1}})
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()
	p := New(Config{}, cost.NewCalculator(cost.DefaultRates()), resilience.Policy{})
	assert.Equal(t, DefaultName, p.name)
	assert.Equal(t, DefaultEndpoint, p.url)
	assert.Equal(t, defaultModel, p.model)

	d := p.Descriptor()
	assert.Equal(t, DefaultName, d.Name)
	assert.False(t, d.AudioBased)
	assert.False(t, d.Transcriber)
}

const frenchResponse = `{
	"language_code": "fra",
	"language_probability": 0.97,
	"text": "bonjour tout le monde",
	"words": [
		{"text": "bonjour", "type": "word", "end": 0.6},
		{"text": " ", "type": "spacing", "end": 0.7},
		{"text": "monde", "type": "word", "end": 1800}
	]
}`

func TestDetect_Success(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("xi-api-key"))
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, defaultModel, r.FormValue("model_id"))
		w.Write([]byte(frenchResponse)) //nolint:errcheck
	}))
	defer ts.Close()

	out := newProvider(ts.URL, "key").Detect(context.Background(), clip(t))

	require.True(t, out.Succeeded(), out.ErrorText())
	assert.Equal(t, "fr", out.LanguageCode())
	require.NotNil(t, out.Confidence)
	assert.InDelta(t, 0.97, *out.Confidence, 1e-9)
	assert.Equal(t, "bonjour tout le monde", out.TranscriptText())
	assert.Equal(t, int64(4), out.Cost.Tokens)
	// 1800s of audio at 0.40/hour.
	assert.InDelta(t, 0.20, out.Cost.USD, 1e-9)
}

func TestDetect_UnrecognizedLanguageKeepsTranscript(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"language_code":"","language_probability":0.4,"text":"hmm yes","words":[{"text":"yes","end":360}]}`)) //nolint:errcheck
	}))
	defer ts.Close()

	out := newProvider(ts.URL, "key").Detect(context.Background(), clip(t))

	require.True(t, out.Succeeded(), out.ErrorText())
	assert.Nil(t, out.Language)
	assert.Nil(t, out.Confidence)
	assert.Equal(t, "hmm yes", out.TranscriptText())
	assert.Equal(t, int64(2), out.Cost.Tokens)
	// 360s of audio at 0.40/hour.
	assert.InDelta(t, 0.04, out.Cost.USD, 1e-9)
}

func TestDetect_MissingKey(t *testing.T) {
	t.Parallel()
	out := newProvider("http://127.0.0.1:1", "").Detect(context.Background(), clip(t))
	assert.False(t, out.Succeeded())
	assert.Contains(t, out.ErrorText(), "api key not configured")
}

func TestDetect_RateLimited(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	out := newProvider(ts.URL, "key").Detect(context.Background(), clip(t))
	assert.False(t, out.Succeeded())
	assert.Contains(t, out.ErrorText(), "status 429")
	assert.True(t, out.Cost.IsZero())
}

func TestAudioLength_FallsBackToWords(t *testing.T) {
	t.Parallel()
	d := audioLength("/missing.wav", &response{Words: []word{{End: 1.5}, {End: 3.25}}})
	assert.Equal(t, 3250*time.Millisecond, d)
	assert.Zero(t, audioLength("/missing.wav", &response{}))
}
