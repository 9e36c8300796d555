package cost

import (
	"strings"
	"time"

	"github.com/sells-group/langid/internal/model"
)

// Rates holds per-provider pricing configuration.
type Rates struct {
	Anthropic  map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Whisper    ComputeRate          `yaml:"whisper" mapstructure:"whisper"`
	ElevenLabs AudioRate            `yaml:"elevenlabs" mapstructure:"elevenlabs"`
	Sarvam     TokenRate            `yaml:"sarvam" mapstructure:"sarvam"`
	ElevenMock TokenRate            `yaml:"eleven_mock" mapstructure:"eleven_mock"`
	TextLocal  TokenRate            `yaml:"text_local" mapstructure:"text_local"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// ComputeRate prices local inference by wall-clock GPU time.
type ComputeRate struct {
	GPUHour float64 `yaml:"gpu_hour" mapstructure:"gpu_hour"`
}

// AudioRate prices hosted speech-to-text by audio duration.
type AudioRate struct {
	PerHour float64 `yaml:"per_hour" mapstructure:"per_hour"`
}

// TokenRate prices a provider by token.
type TokenRate struct {
	PerToken float64 `yaml:"per_token" mapstructure:"per_token"`
}

// Calculator computes costs for provider usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Rates returns the configured rates.
func (c *Calculator) Rates() Rates {
	return c.rates
}

// Claude computes the cost for a Claude API call.
func (c *Calculator) Claude(modelID string, input, output int64) model.Cost {
	rate, ok := c.rates.Anthropic[modelID]
	if !ok {
		return model.Cost{Tokens: input + output}
	}
	usd := (float64(input)/1e6)*rate.Input + (float64(output)/1e6)*rate.Output
	return model.Cost{Tokens: input + output, USD: usd}
}

// Whisper prices a local transcription by elapsed compute time. Tokens are
// approximated by the transcript's word count.
func (c *Calculator) Whisper(elapsed time.Duration, transcript string) model.Cost {
	return model.Cost{
		Tokens: WordCount(transcript),
		USD:    elapsed.Hours() * c.rates.Whisper.GPUHour,
	}
}

// ElevenLabs prices a hosted transcription by audio length.
func (c *Calculator) ElevenLabs(audio time.Duration, transcript string) model.Cost {
	return model.Cost{
		Tokens: WordCount(transcript),
		USD:    audio.Hours() * c.rates.ElevenLabs.PerHour,
	}
}

// Tokens prices a token count at a flat per-token rate.
func (c *Calculator) Tokens(rate TokenRate, tokens int64) model.Cost {
	if tokens < 0 {
		tokens = 0
	}
	return model.Cost{Tokens: tokens, USD: float64(tokens) * rate.PerToken}
}

// TextLocal prices a local text-detector call by word count.
func (c *Calculator) TextLocal(text string) model.Cost {
	return c.Tokens(c.rates.TextLocal, WordCount(text))
}

// WordCount is the rough token estimate used for local models.
func WordCount(text string) int64 {
	return int64(len(strings.Fields(text)))
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
		},
		Whisper:    ComputeRate{GPUHour: 0.50},
		ElevenLabs: AudioRate{PerHour: 0.40},
		Sarvam:     TokenRate{PerToken: 0.00002},
		ElevenMock: TokenRate{PerToken: 0.00003},
		TextLocal:  TokenRate{PerToken: 0.000001},
	}
}
