// Package panel assembles the configured provider panel: the ordered
// primary providers and the optional text detector.
package panel

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/langid/internal/config"
	"github.com/sells-group/langid/internal/cost"
	"github.com/sells-group/langid/internal/metrics"
	"github.com/sells-group/langid/internal/provider"
	"github.com/sells-group/langid/internal/providers/claude"
	"github.com/sells-group/langid/internal/providers/elevenlabs"
	"github.com/sells-group/langid/internal/providers/lingua"
	"github.com/sells-group/langid/internal/providers/mock"
	"github.com/sells-group/langid/internal/providers/whisper"
	"github.com/sells-group/langid/internal/resilience"
	"github.com/sells-group/langid/pkg/anthropic"
)

// Panel is a ready-to-run provider set.
type Panel struct {
	Registry *provider.Registry
	// Text is nil when secondary detection is disabled.
	Text     provider.TextProvider
	Breakers *resilience.Breakers
}

type factory func() provider.Provider

// Build constructs the panel described by cfg.
func Build(cfg *config.Config) (*Panel, error) {
	calc := cost.NewCalculator(cfg.Pricing)

	bcfg := cfg.Resilience.Breaker()
	bcfg.ShouldTrip = resilience.IsTransient
	bcfg.OnStateChange = func(name string, _, to resilience.CircuitState) {
		metrics.SetCircuitState(name, int(to))
	}
	breakers := resilience.NewBreakers(bcfg)
	policy := func(name string) resilience.Policy {
		return resilience.Policy{Retry: cfg.Resilience.Retry(), Breaker: breakers.For(name)}
	}

	sarvam := Merge(mock.Sarvam(cfg.Pricing), cfg.Mock.Sarvam)
	eleven := Merge(mock.Eleven(cfg.Pricing), cfg.Mock.Eleven)
	whisperName := nameOr(cfg.Whisper.Name, whisper.DefaultName)
	elevenName := nameOr(cfg.ElevenLabs.Name, elevenlabs.DefaultName)

	known := map[string]factory{
		whisperName: func() provider.Provider { return whisper.New(cfg.Whisper, calc, policy(whisperName)) },
		elevenName:  func() provider.Provider { return elevenlabs.New(cfg.ElevenLabs, calc, policy(elevenName)) },
		sarvam.Name: func() provider.Provider { return mock.New(sarvam, calc) },
		eleven.Name: func() provider.Provider { return mock.New(eleven, calc) },
	}

	reg := provider.NewRegistry()
	for _, name := range cfg.Detect.Providers {
		f, ok := known[name]
		if !ok {
			return nil, eris.Errorf("panel: unknown provider %q", name)
		}
		reg.Register(f())
	}

	if cfg.Detect.PanelFile != "" {
		extra, err := LoadMockFile(cfg.Detect.PanelFile)
		if err != nil {
			return nil, err
		}
		for _, m := range extra {
			reg.Register(mock.New(m, calc))
		}
	}

	text, err := buildText(cfg, calc)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("panel: built",
		zap.Strings("providers", reg.Names()),
		zap.Bool("text_detector", text != nil),
	)
	return &Panel{Registry: reg, Text: text, Breakers: breakers}, nil
}

func buildText(cfg *config.Config, calc *cost.Calculator) (provider.TextProvider, error) {
	switch cfg.Detect.TextDetector {
	case config.TextDetectorLingua:
		return lingua.New(cfg.Lingua, calc), nil
	case config.TextDetectorClaude:
		if cfg.Anthropic.APIKey == "" {
			return nil, eris.New("panel: anthropic.api_key is required for the claude text detector")
		}
		return claude.New(cfg.Anthropic, anthropic.NewClient(cfg.Anthropic.APIKey), calc), nil
	case "", config.TextDetectorNone:
		return nil, nil
	default:
		return nil, eris.Errorf("panel: unknown text detector %q", cfg.Detect.TextDetector)
	}
}

// Merge overlays the non-zero fields of override onto base.
func Merge(base, override mock.Config) mock.Config {
	if override.Name != "" {
		base.Name = override.Name
	}
	if override.Language != "" {
		base.Language = override.Language
	}
	if override.Confidence != 0 {
		base.Confidence = override.Confidence
	}
	if override.Tokens != 0 {
		base.Tokens = override.Tokens
	}
	if override.PerToken != 0 {
		base.PerToken = override.PerToken
	}
	if override.LatencyMs != 0 {
		base.LatencyMs = override.LatencyMs
	}
	if override.AudioBased {
		base.AudioBased = true
	}
	if override.FailWith != "" {
		base.FailWith = override.FailWith
	}
	return base
}

func nameOr(name, def string) string {
	if name == "" {
		return def
	}
	return name
}
