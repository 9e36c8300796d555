// Package claude is a text-language detector that asks a Claude model to
// identify the language of a transcript.
package claude

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/langid/internal/cost"
	"github.com/sells-group/langid/internal/langcode"
	"github.com/sells-group/langid/internal/model"
	"github.com/sells-group/langid/internal/provider"
	"github.com/sells-group/langid/pkg/anthropic"
)

const (
	// DefaultName is the provider name reported in outcomes.
	DefaultName  = "claude_text"
	defaultModel = "claude-haiku-4-5-20251001"
)

const systemPrompt = `You identify the language of a transcript produced by a speech recognizer.
Reply with a single JSON object and nothing else:
{"language": "<ISO 639-1 code>", "confidence": <number between 0 and 1>}
If the text is empty or not language, reply {"language": "", "confidence": 0}.`

// Config configures the detector.
type Config struct {
	Name      string `yaml:"name" mapstructure:"name"`
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	// MaxChars truncates long transcripts before sending.
	MaxChars int `yaml:"max_chars" mapstructure:"max_chars"`
}

type verdict struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// Detector implements provider.TextProvider with Claude.
type Detector struct {
	name      string
	model     string
	maxTokens int64
	maxChars  int
	client    anthropic.Client
	calc      *cost.Calculator
}

// New creates a Detector using client.
func New(cfg Config, client anthropic.Client, calc *cost.Calculator) *Detector {
	d := &Detector{
		name:      cfg.Name,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		maxChars:  cfg.MaxChars,
		client:    client,
		calc:      calc,
	}
	if d.name == "" {
		d.name = DefaultName
	}
	if d.model == "" {
		d.model = defaultModel
	}
	if d.maxTokens <= 0 {
		d.maxTokens = 64
	}
	if d.maxChars <= 0 {
		d.maxChars = 4000
	}
	return d
}

// Descriptor implements provider.TextProvider.
func (d *Detector) Descriptor() provider.Descriptor {
	return provider.Descriptor{Name: d.name, Kind: "claude"}
}

// DetectText implements provider.TextProvider.
func (d *Detector) DetectText(ctx context.Context, text string) model.Outcome {
	start := time.Now()

	if d.client == nil {
		return model.Failure(d.name, time.Since(start), eris.New("claude: client not configured"))
	}

	temp := 0.0
	resp, err := d.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       d.model,
		MaxTokens:   d.maxTokens,
		System:      systemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: truncate(text, d.maxChars)}},
		Temperature: &temp,
	})
	if err != nil {
		return model.Failure(d.name, time.Since(start), eris.Wrap(err, "claude: detect language"))
	}

	spent := d.calc.Claude(d.model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	v, err := parseVerdict(resp.Text())
	if err != nil {
		return model.Failure(d.name, time.Since(start), err).WithCost(spent)
	}
	code, ok := langcode.Normalize(v.Language)
	if !ok {
		return model.Failure(d.name, time.Since(start),
			eris.Errorf("claude: unrecognized language %q", v.Language)).WithCost(spent)
	}

	return model.Success(d.name, time.Since(start), spent,
		model.WithLanguage(code),
		model.WithConfidence(clamp01(v.Confidence)),
	)
}

func parseVerdict(raw string) (verdict, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	if i, j := strings.Index(s, "{"), strings.LastIndex(s, "}"); i >= 0 && j > i {
		s = s[i : j+1]
	}

	var v verdict
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return verdict{}, eris.Wrapf(err, "claude: parse reply %q", raw)
	}
	return v, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func clamp01(f float64) float64 {
	return min(max(f, 0), 1)
}
