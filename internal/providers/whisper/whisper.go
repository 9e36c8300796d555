// Package whisper detects spoken language with an OpenAI-compatible
// /v1/audio/transcriptions endpoint and supplies the canonical transcript.
package whisper

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/langid/internal/cost"
	"github.com/sells-group/langid/internal/langcode"
	"github.com/sells-group/langid/internal/model"
	"github.com/sells-group/langid/internal/provider"
	"github.com/sells-group/langid/internal/providers"
	"github.com/sells-group/langid/internal/resilience"
)

// DefaultName is the provider name reported in outcomes.
const DefaultName = "whisper_local"

// Config configures the Whisper provider.
type Config struct {
	Name                 string `yaml:"name" mapstructure:"name"`
	URL                  string `yaml:"url" mapstructure:"url"`
	Model                string `yaml:"model" mapstructure:"model"`
	APIKey               string `yaml:"api_key" mapstructure:"api_key"`
	providers.HTTPConfig `yaml:",inline" mapstructure:",squash"`
}

// response is the subset of the verbose_json response in use.
type response struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

// Provider is the Whisper speech-to-text provider.
type Provider struct {
	name      string
	url       string
	model     string
	apiKey    string
	transport *providers.Transport
	calc      *cost.Calculator
}

// New creates a Whisper provider.
func New(cfg Config, calc *cost.Calculator, policy resilience.Policy) *Provider {
	name := cfg.Name
	if name == "" {
		name = DefaultName
	}
	client := &http.Client{Timeout: cfg.Timeout()}
	return &Provider{
		name:      name,
		url:       cfg.URL,
		model:     cfg.Model,
		apiKey:    cfg.APIKey,
		transport: providers.NewTransport(name, client, cfg.Limiter(), policy),
		calc:      calc,
	}
}

// Descriptor implements provider.Provider.
func (p *Provider) Descriptor() provider.Descriptor {
	return provider.Descriptor{
		Name:        p.name,
		AudioBased:  true,
		Transcriber: true,
		Kind:        "whisper",
	}
}

// Detect implements provider.Provider. Whisper reports no confidence; cost
// is the compute time at the configured GPU-hour rate. A label that cannot
// be mapped to a code still yields a success record with the transcript.
func (p *Provider) Detect(ctx context.Context, audioPath string) model.Outcome {
	start := time.Now()

	resp, err := p.transcribe(ctx, audioPath)
	elapsed := time.Since(start)
	if err != nil {
		return model.Failure(p.name, elapsed, err)
	}

	text := strings.TrimSpace(resp.Text)
	spent := p.calc.Whisper(elapsed, text)

	code, ok := langcode.Normalize(resp.Language)
	if !ok {
		// The transcript and compute time stand even without a language.
		zap.L().Debug("whisper: language not recognized",
			zap.String("label", resp.Language),
			zap.Int("transcript_chars", len(text)),
		)
		return model.Success(p.name, elapsed, spent, model.WithTranscript(text))
	}

	return model.Success(p.name, elapsed, spent,
		model.WithLanguage(code),
		model.WithTranscript(text),
		model.WithScript(langcode.Script(code)),
	)
}

func (p *Provider) transcribe(ctx context.Context, audioPath string) (*response, error) {
	if p.url == "" {
		return nil, eris.New("whisper: url not configured")
	}

	up := providers.Upload{
		URL:      p.url,
		FilePath: audioPath,
		Fields:   map[string]string{"response_format": "verbose_json"},
	}
	if p.model != "" {
		up.Fields["model"] = p.model
	}
	if p.apiKey != "" {
		up.Header = http.Header{"Authorization": []string{"Bearer " + p.apiKey}}
	}

	var resp response
	if err := p.transport.PostAudio(ctx, up, &resp); err != nil {
		return nil, eris.Wrap(err, "whisper: transcribe")
	}
	return &resp, nil
}
