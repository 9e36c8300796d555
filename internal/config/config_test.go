package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/langid/internal/ensemble"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"whisper_local", "sarvam_mock", "eleven_mock"}, cfg.Detect.Providers)
	assert.Equal(t, "lingua", cfg.Detect.TextDetector)
	assert.True(t, cfg.Detect.Preprocess)
	assert.InDelta(t, 2.0, cfg.Ensemble.AudioBoost, 1e-9)
	assert.InDelta(t, 1.0, cfg.Ensemble.DefaultWeight, 1e-9)
	assert.Equal(t, ensemble.TieBreakLexical, cfg.Ensemble.TieBreak)
	assert.Equal(t, "ffmpeg", cfg.Audio.FFmpegPath)
	assert.Equal(t, 16000, cfg.Audio.SampleRate)
	assert.Equal(t, 1, cfg.Audio.Channels)
	assert.Equal(t, "whisper_local", cfg.Whisper.Name)
	assert.Equal(t, 300, cfg.Whisper.TimeoutSecs)
	assert.Equal(t, "elevenlabs", cfg.ElevenLabs.Name)
	assert.InDelta(t, 2.0, cfg.ElevenLabs.RatePerSec, 1e-9)
	assert.Equal(t, "lingua_local", cfg.Lingua.Name)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.InDelta(t, 0.50, cfg.Pricing.Whisper.GPUHour, 1e-9)
	assert.InDelta(t, 0.00002, cfg.Pricing.Sarvam.PerToken, 1e-12)
	assert.InDelta(t, 0.00003, cfg.Pricing.ElevenMock.PerToken, 1e-12)
	assert.InDelta(t, 0.000001, cfg.Pricing.TextLocal.PerToken, 1e-12)
	assert.Contains(t, cfg.Pricing.Anthropic, "claude-haiku-4-5-20251001")
	assert.Equal(t, 2, cfg.Resilience.MaxAttempts)
	assert.Equal(t, 5, cfg.Resilience.FailureThreshold)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
detect:
  providers: [sarvam_mock, whisper_local]
  text_detector: none
  max_concurrency: 2
ensemble:
  audio_boost: 3
  tie_break: first
mock:
  sarvam:
    latency_ms: 5
    fail_with: offline
whisper:
  url: http://gpu-box:9000/v1/audio/transcriptions
  rate_per_sec: 4
pricing:
  whisper:
    gpu_hour: 1.25
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, []string{"sarvam_mock", "whisper_local"}, cfg.Detect.Providers)
	assert.Equal(t, "none", cfg.Detect.TextDetector)
	assert.Equal(t, 2, cfg.Detect.MaxConcurrency)
	assert.InDelta(t, 3.0, cfg.Ensemble.AudioBoost, 1e-9)
	assert.Equal(t, ensemble.TieBreakFirst, cfg.Ensemble.TieBreak)
	assert.Equal(t, 5, cfg.Mock.Sarvam.LatencyMs)
	assert.Equal(t, "offline", cfg.Mock.Sarvam.FailWith)
	assert.Equal(t, "http://gpu-box:9000/v1/audio/transcriptions", cfg.Whisper.URL)
	assert.InDelta(t, 4.0, cfg.Whisper.RatePerSec, 1e-9)
	assert.Equal(t, 300, cfg.Whisper.TimeoutSecs)
	assert.InDelta(t, 1.25, cfg.Pricing.Whisper.GPUHour, 1e-9)

	// Defaults still apply for unset values
	assert.InDelta(t, 1.0, cfg.Ensemble.DefaultWeight, 1e-9)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
detect:
  text_detector: lingua
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("LANGID_LOG_LEVEL", "warn")
	t.Setenv("LANGID_DETECT_TEXT_DETECTOR", "claude")
	t.Setenv("LANGID_ANTHROPIC_API_KEY", "sk-ant-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "claude", cfg.Detect.TextDetector)
	assert.Equal(t, "sk-ant-test", cfg.Anthropic.APIKey)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("LANGID_SERVER_PORT", "3000")
	t.Setenv("LANGID_ENSEMBLE_AUDIO_BOOST", "1.5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.InDelta(t, 1.5, cfg.Ensemble.AudioBoost, 1e-9)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unterminated"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Detect.Providers = []string{"whisper_local", "sarvam_mock", "eleven_mock"}
	cfg.Detect.TextDetector = TextDetectorLingua
	cfg.Ensemble = ensemble.DefaultWeights()
	cfg.ElevenLabs.Name = "elevenlabs"
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("detect"))
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidate_UnknownMode(t *testing.T) {
	err := validDefaults().Validate("batch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidate_ServePort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 70000
	assert.NoError(t, cfg.Validate("detect"))

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestValidate_TextDetector(t *testing.T) {
	cfg := validDefaults()
	cfg.Detect.TextDetector = "fasttext"
	assert.ErrorContains(t, cfg.Validate("detect"), "detect.text_detector")

	cfg.Detect.TextDetector = TextDetectorClaude
	assert.ErrorContains(t, cfg.Validate("detect"), "anthropic.api_key")

	cfg.Anthropic.APIKey = "sk-ant"
	assert.NoError(t, cfg.Validate("detect"))

	cfg.Detect.TextDetector = TextDetectorNone
	assert.NoError(t, cfg.Validate("detect"))
}

func TestValidate_ElevenLabsKey(t *testing.T) {
	cfg := validDefaults()
	cfg.Detect.Providers = append(cfg.Detect.Providers, "elevenlabs")
	assert.ErrorContains(t, cfg.Validate("detect"), "elevenlabs.api_key")

	cfg.ElevenLabs.APIKey = "xi"
	assert.NoError(t, cfg.Validate("detect"))
}

func TestValidate_Ensemble(t *testing.T) {
	cfg := validDefaults()
	cfg.Ensemble.AudioBoost = 0
	cfg.Ensemble.DefaultWeight = -1
	cfg.Ensemble.TieBreak = "random"
	cfg.Detect.MaxConcurrency = -3

	err := cfg.Validate("detect")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ensemble.audio_boost")
	assert.Contains(t, err.Error(), "ensemble.default_weight")
	assert.Contains(t, err.Error(), "ensemble.tie_break")
	assert.Contains(t, err.Error(), "detect.max_concurrency")
}
