// Package mock provides simulated network providers with fixed answers,
// latency and per-token pricing. They stand in for hosted services that
// have no public API in this deployment.
package mock

import (
	"context"
	"errors"
	"time"

	"github.com/sells-group/langid/internal/cost"
	"github.com/sells-group/langid/internal/model"
	"github.com/sells-group/langid/internal/provider"
)

// Config describes one simulated provider.
type Config struct {
	Name       string  `yaml:"name" mapstructure:"name"`
	Language   string  `yaml:"language" mapstructure:"language"`
	Confidence float64 `yaml:"confidence" mapstructure:"confidence"`
	Tokens     int64   `yaml:"tokens" mapstructure:"tokens"`
	PerToken   float64 `yaml:"per_token" mapstructure:"per_token"`
	LatencyMs  int     `yaml:"latency_ms" mapstructure:"latency_ms"`
	AudioBased bool    `yaml:"audio_based" mapstructure:"audio_based"`
	// FailWith makes every call fail with this message.
	FailWith string `yaml:"fail_with" mapstructure:"fail_with"`
}

// Sarvam returns the simulated Sarvam provider.
func Sarvam(rates cost.Rates) Config {
	return Config{
		Name:       "sarvam_mock",
		Language:   "hi",
		Confidence: 0.7,
		Tokens:     100,
		PerToken:   rates.Sarvam.PerToken,
		LatencyMs:  80,
		AudioBased: true,
	}
}

// Eleven returns the simulated ElevenLabs provider.
func Eleven(rates cost.Rates) Config {
	return Config{
		Name:       "eleven_mock",
		Language:   "en",
		Confidence: 0.9,
		Tokens:     150,
		PerToken:   rates.ElevenMock.PerToken,
		LatencyMs:  100,
	}
}

// Provider is a simulated provider.
type Provider struct {
	cfg  Config
	calc *cost.Calculator
}

// New creates a simulated provider.
func New(cfg Config, calc *cost.Calculator) *Provider {
	return &Provider{cfg: cfg, calc: calc}
}

// Descriptor implements provider.Provider.
func (p *Provider) Descriptor() provider.Descriptor {
	return provider.Descriptor{
		Name:       p.cfg.Name,
		AudioBased: p.cfg.AudioBased,
		Kind:       "mock",
	}
}

// Detect implements provider.Provider. The audio itself is never read.
func (p *Provider) Detect(ctx context.Context, _ string) model.Outcome {
	start := time.Now()

	if err := wait(ctx, time.Duration(p.cfg.LatencyMs)*time.Millisecond); err != nil {
		return model.Failure(p.cfg.Name, time.Since(start), err)
	}
	if p.cfg.FailWith != "" {
		return model.Failure(p.cfg.Name, time.Since(start), errors.New(p.cfg.FailWith))
	}

	return model.Success(p.cfg.Name, time.Since(start),
		p.calc.Tokens(cost.TokenRate{PerToken: p.cfg.PerToken}, p.cfg.Tokens),
		model.WithLanguage(p.cfg.Language),
		model.WithConfidence(p.cfg.Confidence),
	)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
