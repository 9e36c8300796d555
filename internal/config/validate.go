package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/langid/internal/ensemble"
)

// Text detector choices for detect.text_detector.
const (
	TextDetectorLingua = "lingua"
	TextDetectorClaude = "claude"
	TextDetectorNone   = "none"
)

// Validate checks the settings required by mode ("detect" or "serve") and
// reports every problem at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "detect":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Detect.MaxConcurrency < 0 {
		problems = append(problems, "detect.max_concurrency must be >= 0")
	}
	switch c.Detect.TextDetector {
	case "", TextDetectorLingua, TextDetectorNone:
	case TextDetectorClaude:
		if c.Anthropic.APIKey == "" {
			problems = append(problems, "anthropic.api_key is required when detect.text_detector is claude")
		}
	default:
		problems = append(problems, fmt.Sprintf("detect.text_detector must be lingua, claude or none, got %q", c.Detect.TextDetector))
	}
	if slices.Contains(c.Detect.Providers, c.ElevenLabs.Name) && c.ElevenLabs.APIKey == "" {
		problems = append(problems, "elevenlabs.api_key is required when elevenlabs is enabled")
	}

	if c.Ensemble.AudioBoost <= 0 {
		problems = append(problems, "ensemble.audio_boost must be > 0")
	}
	if c.Ensemble.DefaultWeight <= 0 {
		problems = append(problems, "ensemble.default_weight must be > 0")
	}
	switch c.Ensemble.TieBreak {
	case "", ensemble.TieBreakLexical, ensemble.TieBreakFirst:
	default:
		problems = append(problems, fmt.Sprintf("ensemble.tie_break must be lexical or first, got %q", c.Ensemble.TieBreak))
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(problems, "; "))
	}
	return nil
}
