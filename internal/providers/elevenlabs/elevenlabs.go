// Package elevenlabs detects spoken language with the ElevenLabs
// speech-to-text API.
package elevenlabs

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/langid/internal/audio"
	"github.com/sells-group/langid/internal/cost"
	"github.com/sells-group/langid/internal/langcode"
	"github.com/sells-group/langid/internal/model"
	"github.com/sells-group/langid/internal/provider"
	"github.com/sells-group/langid/internal/providers"
	"github.com/sells-group/langid/internal/resilience"
)

const (
	// DefaultName is the provider name reported in outcomes.
	DefaultName = "elevenlabs"
	// DefaultEndpoint is the hosted speech-to-text endpoint.
	DefaultEndpoint = "https://api.elevenlabs.io/v1/speech-to-text"
	defaultModel    = "scribe_v1"
)

// Config configures the ElevenLabs provider.
type Config struct {
	Name                 string `yaml:"name" mapstructure:"name"`
	APIKey               string `yaml:"api_key" mapstructure:"api_key"`
	URL                  string `yaml:"url" mapstructure:"url"`
	Model                string `yaml:"model" mapstructure:"model"`
	AudioBased           bool   `yaml:"audio_based" mapstructure:"audio_based"`
	providers.HTTPConfig `yaml:",inline" mapstructure:",squash"`
}

type response struct {
	LanguageCode        string  `json:"language_code"`
	LanguageProbability float64 `json:"language_probability"`
	Text                string  `json:"text"`
	Words               []word  `json:"words"`
}

type word struct {
	Text string  `json:"text"`
	Type string  `json:"type"`
	End  float64 `json:"end"`
}

// Provider is the ElevenLabs speech-to-text provider.
type Provider struct {
	name       string
	url        string
	model      string
	apiKey     string
	audioBased bool
	transport  *providers.Transport
	calc       *cost.Calculator
}

// New creates an ElevenLabs provider.
func New(cfg Config, calc *cost.Calculator, policy resilience.Policy) *Provider {
	p := &Provider{
		name:       cfg.Name,
		url:        cfg.URL,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		audioBased: cfg.AudioBased,
		calc:       calc,
	}
	if p.name == "" {
		p.name = DefaultName
	}
	if p.url == "" {
		p.url = DefaultEndpoint
	}
	if p.model == "" {
		p.model = defaultModel
	}
	client := &http.Client{Timeout: cfg.Timeout()}
	p.transport = providers.NewTransport(p.name, client, cfg.Limiter(), policy)
	return p
}

// Descriptor implements provider.Provider.
func (p *Provider) Descriptor() provider.Descriptor {
	return provider.Descriptor{
		Name:       p.name,
		AudioBased: p.audioBased,
		Kind:       "elevenlabs",
	}
}

// Detect implements provider.Provider. Confidence is the API's
// language_probability; cost is priced by audio length.
func (p *Provider) Detect(ctx context.Context, audioPath string) model.Outcome {
	start := time.Now()

	resp, err := p.transcribe(ctx, audioPath)
	elapsed := time.Since(start)
	if err != nil {
		return model.Failure(p.name, elapsed, err)
	}

	text := strings.TrimSpace(resp.Text)
	spent := p.calc.ElevenLabs(audioLength(audioPath, resp), text)

	code, ok := langcode.Normalize(resp.LanguageCode)
	if !ok {
		zap.L().Debug("elevenlabs: language not recognized", zap.String("label", resp.LanguageCode))
		return model.Success(p.name, elapsed, spent, model.WithTranscript(text))
	}

	return model.Success(p.name, elapsed, spent,
		model.WithLanguage(code),
		model.WithConfidence(resp.LanguageProbability),
		model.WithTranscript(text),
	)
}

func (p *Provider) transcribe(ctx context.Context, audioPath string) (*response, error) {
	if p.apiKey == "" {
		return nil, eris.New("elevenlabs: api key not configured")
	}
	up := providers.Upload{
		URL:      p.url,
		FilePath: audioPath,
		Fields:   map[string]string{"model_id": p.model},
		Header:   http.Header{"Xi-Api-Key": []string{p.apiKey}},
	}
	var resp response
	if err := p.transport.PostAudio(ctx, up, &resp); err != nil {
		return nil, eris.Wrap(err, "elevenlabs: transcribe")
	}
	return &resp, nil
}

// audioLength prefers the WAV header and falls back to the last word's end
// time when the file is not a readable WAV.
func audioLength(path string, resp *response) time.Duration {
	d, err := audio.Duration(path)
	if err == nil {
		return d
	}
	zap.L().Debug("elevenlabs: wav duration unavailable", zap.String("path", path), zap.Error(err))

	var end float64
	for _, w := range resp.Words {
		end = max(end, w.End)
	}
	return time.Duration(end * float64(time.Second))
}
