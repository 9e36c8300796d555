package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/langid/internal/audio"
	"github.com/sells-group/langid/internal/langcode"
	"github.com/sells-group/langid/internal/model"
	"github.com/sells-group/langid/internal/orchestrator"
	"github.com/sells-group/langid/internal/panel"
)

// roundRunner runs one detection round.
type roundRunner interface {
	Run(ctx context.Context, audioPath string) (*model.RoundResult, error)
}

// preparer converts an input file before the round runs.
type preparer interface {
	Prepare(ctx context.Context, path string) (string, func(), error)
}

// detectEnv holds everything the detect and serve commands share.
type detectEnv struct {
	Panel        *panel.Panel
	Orchestrator *orchestrator.Orchestrator
	Detector     *detector
}

// initDetect validates cfg and assembles the provider panel.
func initDetect(mode string, preprocess bool) (*detectEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	p, err := panel.Build(cfg)
	if err != nil {
		return nil, eris.Wrap(err, "build provider panel")
	}

	orch := orchestrator.New(p.Registry, p.Text, cfg.Ensemble,
		orchestrator.WithMaxConcurrency(cfg.Detect.MaxConcurrency),
	)

	d := &detector{rounds: orch}
	if preprocess && cfg.Detect.Preprocess {
		prep := audio.NewPreprocessor(cfg.Audio)
		if prep.Available() {
			d.prep = prep
		} else {
			zap.L().Warn("ffmpeg not found, running on raw input files",
				zap.String("ffmpeg_path", cfg.Audio.FFmpegPath),
			)
		}
	}

	zap.L().Info("provider panel ready",
		zap.Strings("providers", p.Registry.Names()),
		zap.Bool("text_detector", p.Text != nil),
		zap.Bool("preprocess", d.prep != nil),
	)

	return &detectEnv{Panel: p, Orchestrator: orch, Detector: d}, nil
}

// detectResponse is the body returned by both the CLI and the HTTP API.
type detectResponse struct {
	Results             []model.Outcome      `json:"results"`
	Ensemble            model.EnsembleResult `json:"ensemble"`
	GroundTruthLanguage *string              `json:"ground_truth_language,omitempty"`
	GroundTruthMatch    *bool                `json:"ground_truth_match,omitempty"`
}

// detector wraps a round with input checks, preprocessing and cleanup.
type detector struct {
	rounds roundRunner
	// prep is nil when input files are used as-is.
	prep preparer
}

// detect runs one round against path. It returns audio.ErrFileNotFound,
// *audio.PreprocessError or orchestrator.ErrRoundNotStarted (wrapped) when no
// round result could be produced.
func (d *detector) detect(ctx context.Context, path, groundTruth string) (*detectResponse, error) {
	if err := audio.CheckFile(path); err != nil {
		return nil, err
	}

	input := path
	if d.prep != nil {
		out, cleanup, err := d.prep.Prepare(ctx, path)
		defer cleanup()
		if err != nil {
			return nil, err
		}
		input = out
	}

	if dur, err := audio.Duration(input); err == nil {
		zap.L().Debug("audio duration", zap.String("path", input), zap.Duration("duration", dur))
	}

	res, err := d.rounds.Run(ctx, input)
	if err != nil {
		return nil, err
	}

	resp := &detectResponse{
		Results:  res.Results,
		Ensemble: res.Ensemble,
	}
	if resp.Results == nil {
		resp.Results = []model.Outcome{}
	}
	if groundTruth != "" {
		gt := groundTruth
		match := langcode.Equal(groundTruth, res.Ensemble.Final())
		resp.GroundTruthLanguage = &gt
		resp.GroundTruthMatch = &match
	}
	return resp, nil
}

