// Package lingua is a local text-language detector backed by lingua-go.
// It runs on the canonical transcript as the secondary detector.
package lingua

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pemistahl/lingua-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/langid/internal/cost"
	"github.com/sells-group/langid/internal/model"
	"github.com/sells-group/langid/internal/provider"
)

// DefaultName is the provider name reported in outcomes.
const DefaultName = "lingua_local"

// Config configures the detector.
type Config struct {
	Name string `yaml:"name" mapstructure:"name"`
	// Languages restricts detection to these ISO 639-1 codes. Empty means
	// every supported language.
	Languages           []string `yaml:"languages" mapstructure:"languages"`
	MinRelativeDistance float64  `yaml:"min_relative_distance" mapstructure:"min_relative_distance"`
	LowAccuracy         bool     `yaml:"low_accuracy" mapstructure:"low_accuracy"`
	Preload             bool     `yaml:"preload" mapstructure:"preload"`
}

type detector interface {
	DetectLanguageOf(text string) (lingua.Language, bool)
	ComputeLanguageConfidence(text string, language lingua.Language) float64
}

// Detector is a lazily built lingua detector. The model is built once on
// first use; a build failure is kept and reported on every later call.
type Detector struct {
	name  string
	calc  *cost.Calculator
	build func() (detector, error)

	once    sync.Once
	det     detector
	initErr error
}

// New creates a Detector. Nothing is loaded until the first call unless
// cfg.Preload is set.
func New(cfg Config, calc *cost.Calculator) *Detector {
	d := &Detector{
		name:  cfg.Name,
		calc:  calc,
		build: func() (detector, error) { return buildDetector(cfg) },
	}
	if d.name == "" {
		d.name = DefaultName
	}
	if cfg.Preload {
		d.load()
	}
	return d
}

// Descriptor implements provider.TextProvider.
func (d *Detector) Descriptor() provider.Descriptor {
	return provider.Descriptor{Name: d.name, Kind: "lingua"}
}

// DetectText implements provider.TextProvider. The input text is echoed as
// the transcript and priced per word.
func (d *Detector) DetectText(_ context.Context, text string) model.Outcome {
	start := time.Now()

	det, err := d.load()
	if err != nil {
		return model.Failure(d.name, time.Since(start), err)
	}

	lang, ok := det.DetectLanguageOf(text)
	if !ok || lang == lingua.Unknown {
		return model.Failure(d.name, time.Since(start),
			eris.New("lingua: language could not be determined reliably"))
	}
	conf := det.ComputeLanguageConfidence(text, lang)

	return model.Success(d.name, time.Since(start), d.calc.TextLocal(text),
		model.WithLanguage(strings.ToLower(lang.IsoCode639_1().String())),
		model.WithConfidence(conf),
		model.WithTranscript(text),
	)
}

func (d *Detector) load() (detector, error) {
	d.once.Do(func() {
		start := time.Now()
		d.det, d.initErr = d.build()
		if d.initErr != nil {
			zap.L().Error("lingua: detector init failed", zap.Error(d.initErr))
			return
		}
		zap.L().Info("lingua: detector ready",
			zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	})
	return d.det, d.initErr
}

func buildDetector(cfg Config) (det detector, err error) {
	// The builder panics on invalid settings.
	defer func() {
		if r := recover(); r != nil {
			det, err = nil, eris.Errorf("lingua: build detector: %v", r)
		}
	}()

	ub := lingua.NewLanguageDetectorBuilder()
	var b lingua.LanguageDetectorBuilder
	if len(cfg.Languages) == 0 {
		b = ub.FromAllLanguages()
	} else {
		langs, err := resolve(cfg.Languages)
		if err != nil {
			return nil, err
		}
		b = ub.FromLanguages(langs...)
	}
	if cfg.MinRelativeDistance > 0 {
		b = b.WithMinimumRelativeDistance(cfg.MinRelativeDistance)
	}
	if cfg.LowAccuracy {
		b = b.WithLowAccuracyMode()
	}
	return b.Build(), nil
}

func resolve(codes []string) ([]lingua.Language, error) {
	byCode := make(map[string]lingua.Language)
	for _, l := range lingua.AllLanguages() {
		byCode[strings.ToLower(l.IsoCode639_1().String())] = l
	}
	out := make([]lingua.Language, 0, len(codes))
	for _, c := range codes {
		l, ok := byCode[strings.ToLower(strings.TrimSpace(c))]
		if !ok {
			return nil, eris.Errorf("lingua: unsupported language %q", c)
		}
		out = append(out, l)
	}
	return out, nil
}
