// Package orchestrator runs one detection round: every primary provider
// concurrently against the same audio file, an optional text-based
// re-detection on the canonical transcript, then the ensemble vote.
package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/langid/internal/ensemble"
	"github.com/sells-group/langid/internal/metrics"
	"github.com/sells-group/langid/internal/model"
	"github.com/sells-group/langid/internal/provider"
)

// ErrRoundNotStarted is returned when the primary batch could not be
// launched. No outcome records exist in that case.
var ErrRoundNotStarted = eris.New("orchestrator: detection round not started")

// Orchestrator drives detection rounds over a fixed provider panel.
type Orchestrator struct {
	registry       *provider.Registry
	text           provider.TextProvider
	weights        ensemble.Weights
	maxConcurrency int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxConcurrency caps how many primaries run at once. Zero or less
// means one goroutine per provider.
func WithMaxConcurrency(n int) Option {
	return func(o *Orchestrator) {
		o.maxConcurrency = n
	}
}

// New creates an Orchestrator. text may be nil, which disables secondary
// detection. Audio-tier boosts follow each provider's AudioBased
// descriptor flag, slot by slot.
func New(reg *provider.Registry, text provider.TextProvider, w ensemble.Weights, opts ...Option) *Orchestrator {
	if reg == nil {
		reg = provider.NewRegistry()
	}
	o := &Orchestrator{
		registry: reg,
		text:     text,
		weights:  w,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one detection round against audioPath.
//
// Individual provider failures never fail the round; they surface as
// error-status records. Run only returns an error when the round could not
// be started.
func (o *Orchestrator) Run(ctx context.Context, audioPath string) (*model.RoundResult, error) {
	start := time.Now()
	roundID := uuid.NewString()
	log := zap.L().With(zap.String("round_id", roundID), zap.String("audio", audioPath))

	if err := ctx.Err(); err != nil {
		metrics.ObserveRound(nil, time.Since(start))
		return nil, eris.Wrap(ErrRoundNotStarted, err.Error())
	}

	providers := o.registry.List()
	log.Debug("orchestrator: starting round", zap.Int("providers", len(providers)))

	records := o.runPrimaries(ctx, providers, audioPath)
	audio := make([]bool, len(providers), len(providers)+1)
	for i, p := range providers {
		audio[i] = provider.SafeDescriptor(p).AudioBased
	}

	if src, transcript, ok := canonicalTranscript(providers, records); ok && o.text != nil {
		metrics.SecondaryInvocationsTotal.Inc()
		log.Debug("orchestrator: running text detector on transcript",
			zap.String("source", src),
			zap.String("detector", provider.SafeTextDescriptor(o.text).Name),
		)
		records = append(records, provider.InvokeText(ctx, o.text, transcript))
		audio = append(audio, provider.SafeTextDescriptor(o.text).AudioBased)
	}

	for _, r := range records {
		metrics.ObserveOutcome(r)
		if !r.Succeeded() {
			log.Warn("orchestrator: provider failed",
				zap.String("provider", r.Provider),
				zap.String("error", r.ErrorText()),
				zap.Int64("duration_ms", r.Elapsed().Milliseconds()),
			)
		}
	}

	result := &model.RoundResult{
		Results:  records,
		Ensemble: ensemble.AggregateTiered(records, audio, o.weights),
	}

	elapsed := time.Since(start)
	metrics.ObserveRound(result, elapsed)
	log.Info("orchestrator: round complete",
		zap.String("language", result.Ensemble.Final()),
		zap.Int("results", len(records)),
		zap.Int("failed", len(result.Failed())),
		zap.Int64("tokens", result.Ensemble.TotalCost.Tokens),
		zap.Float64("cost_usd", result.Ensemble.TotalCost.USD),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	)

	return result, nil
}

// runPrimaries invokes every provider concurrently. Each goroutine owns one
// slot of the returned slice, so no locking is needed.
func (o *Orchestrator) runPrimaries(ctx context.Context, providers []provider.Provider, audioPath string) []model.Outcome {
	records := make([]model.Outcome, len(providers))

	var g errgroup.Group
	if o.maxConcurrency > 0 {
		g.SetLimit(o.maxConcurrency)
	}
	for i, p := range providers {
		g.Go(func() error {
			records[i] = provider.Invoke(ctx, p, audioPath)
			return nil
		})
	}
	_ = g.Wait()

	return records
}

// canonicalTranscript returns the transcript of the first successful
// transcriber in slot order.
func canonicalTranscript(providers []provider.Provider, records []model.Outcome) (string, string, bool) {
	for i, p := range providers {
		if !provider.SafeDescriptor(p).Transcriber {
			continue
		}
		r := records[i]
		if !r.Succeeded() {
			continue
		}
		if text := strings.TrimSpace(r.TranscriptText()); text != "" {
			return r.Provider, text, true
		}
	}
	return "", "", false
}
