package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/langid/internal/audio"
	"github.com/sells-group/langid/internal/cost"
	"github.com/sells-group/langid/internal/ensemble"
	"github.com/sells-group/langid/internal/providers/claude"
	"github.com/sells-group/langid/internal/providers/elevenlabs"
	"github.com/sells-group/langid/internal/providers/lingua"
	"github.com/sells-group/langid/internal/providers/mock"
	"github.com/sells-group/langid/internal/providers/whisper"
	"github.com/sells-group/langid/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Log        LogConfig         `yaml:"log" mapstructure:"log"`
	Server     ServerConfig      `yaml:"server" mapstructure:"server"`
	Detect     DetectConfig      `yaml:"detect" mapstructure:"detect"`
	Ensemble   ensemble.Weights  `yaml:"ensemble" mapstructure:"ensemble"`
	Audio      audio.Config      `yaml:"audio" mapstructure:"audio"`
	Whisper    whisper.Config    `yaml:"whisper" mapstructure:"whisper"`
	ElevenLabs elevenlabs.Config `yaml:"elevenlabs" mapstructure:"elevenlabs"`
	Mock       MockConfig        `yaml:"mock" mapstructure:"mock"`
	Lingua     lingua.Config     `yaml:"lingua" mapstructure:"lingua"`
	Anthropic  claude.Config     `yaml:"anthropic" mapstructure:"anthropic"`
	Pricing    cost.Rates        `yaml:"pricing" mapstructure:"pricing"`
	Resilience resilience.Config `yaml:"resilience" mapstructure:"resilience"`
}

// DetectConfig configures the detection round.
type DetectConfig struct {
	// Providers lists the primary providers to run, in slot order.
	Providers []string `yaml:"providers" mapstructure:"providers"`
	// TextDetector names the secondary detector: lingua, claude or none.
	TextDetector   string `yaml:"text_detector" mapstructure:"text_detector"`
	MaxConcurrency int    `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	// PanelFile is an optional YAML file of extra simulated providers.
	PanelFile  string `yaml:"panel_file" mapstructure:"panel_file"`
	Preprocess bool   `yaml:"preprocess" mapstructure:"preprocess"`
}

// MockConfig overrides fields of the built-in simulated providers.
type MockConfig struct {
	Sarvam mock.Config `yaml:"sarvam" mapstructure:"sarvam"`
	Eleven mock.Config `yaml:"eleven" mapstructure:"eleven"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port                int `yaml:"port" mapstructure:"port"`
	ShutdownTimeoutSecs int `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LANGID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout_secs", 10)

	v.SetDefault("detect.providers", []string{"whisper_local", "sarvam_mock", "eleven_mock"})
	v.SetDefault("detect.text_detector", "lingua")
	v.SetDefault("detect.max_concurrency", 0)
	v.SetDefault("detect.preprocess", true)
	v.SetDefault("detect.panel_file", "")

	w := ensemble.DefaultWeights()
	v.SetDefault("ensemble.audio_boost", w.AudioBoost)
	v.SetDefault("ensemble.default_weight", w.DefaultWeight)
	v.SetDefault("ensemble.tie_break", string(w.TieBreak))

	v.SetDefault("audio.ffmpeg_path", "ffmpeg")
	v.SetDefault("audio.sample_rate", 16000)
	v.SetDefault("audio.channels", 1)
	v.SetDefault("audio.keep_processed", false)

	v.SetDefault("whisper.name", whisper.DefaultName)
	v.SetDefault("whisper.url", "http://localhost:8000/v1/audio/transcriptions")
	v.SetDefault("whisper.model", "base")
	v.SetDefault("whisper.api_key", "")
	v.SetDefault("whisper.timeout_secs", 300)

	v.SetDefault("elevenlabs.name", elevenlabs.DefaultName)
	v.SetDefault("elevenlabs.url", elevenlabs.DefaultEndpoint)
	v.SetDefault("elevenlabs.model", "scribe_v1")
	v.SetDefault("elevenlabs.api_key", "")
	v.SetDefault("elevenlabs.timeout_secs", 120)
	v.SetDefault("elevenlabs.rate_per_sec", 2)
	v.SetDefault("elevenlabs.burst", 2)

	v.SetDefault("mock.sarvam.fail_with", "")
	v.SetDefault("mock.eleven.fail_with", "")

	v.SetDefault("lingua.name", lingua.DefaultName)

	v.SetDefault("anthropic.name", claude.DefaultName)
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 64)

	rates := cost.DefaultRates()
	for model, r := range rates.Anthropic {
		v.SetDefault("pricing.anthropic."+model+".input", r.Input)
		v.SetDefault("pricing.anthropic."+model+".output", r.Output)
	}
	v.SetDefault("pricing.whisper.gpu_hour", rates.Whisper.GPUHour)
	v.SetDefault("pricing.elevenlabs.per_hour", rates.ElevenLabs.PerHour)
	v.SetDefault("pricing.sarvam.per_token", rates.Sarvam.PerToken)
	v.SetDefault("pricing.eleven_mock.per_token", rates.ElevenMock.PerToken)
	v.SetDefault("pricing.text_local.per_token", rates.TextLocal.PerToken)

	v.SetDefault("resilience.max_attempts", 2)
	v.SetDefault("resilience.initial_backoff_ms", 250)
	v.SetDefault("resilience.max_backoff_ms", 5000)
	v.SetDefault("resilience.jitter_fraction", 0.2)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 30)
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
