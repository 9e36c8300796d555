// Package ensemble reconciles provider outcomes into one language decision
// by confidence-weighted vote.
package ensemble

import (
	"github.com/sells-group/langid/internal/model"
	"github.com/sells-group/langid/internal/provider"
)

// TieBreak selects the winner among languages with equal top score.
type TieBreak string

const (
	// TieBreakLexical picks the lexicographically smallest language code.
	TieBreakLexical TieBreak = "lexical"
	// TieBreakFirst picks the language that entered the score table first,
	// in record order.
	TieBreakFirst TieBreak = "first"
)

// scoreEpsilon absorbs float rounding when comparing accumulated scores.
const scoreEpsilon = 1e-9

// Weights configures the vote.
type Weights struct {
	// AudioBoost multiplies the weight of votes cast by audio-tier providers.
	AudioBoost float64 `yaml:"audio_boost" mapstructure:"audio_boost"`
	// DefaultWeight is the weight of a vote without a confidence.
	DefaultWeight float64 `yaml:"default_weight" mapstructure:"default_weight"`
	// TieBreak decides between equal top scores.
	TieBreak TieBreak `yaml:"tie_break" mapstructure:"tie_break"`
	// AudioTier holds the names of audio-tier providers.
	AudioTier map[string]bool `yaml:"-" mapstructure:"-"`
}

// DefaultWeights returns the reference weighting: confidence as weight,
// 1.0 without one, doubled for audio-tier providers.
func DefaultWeights() Weights {
	return Weights{
		AudioBoost:    2.0,
		DefaultWeight: 1.0,
		TieBreak:      TieBreakLexical,
	}
}

// WithTier returns a copy of w whose audio tier is derived from the
// AudioBased flag of the given descriptors.
func (w Weights) WithTier(descs ...provider.Descriptor) Weights {
	tier := make(map[string]bool, len(w.AudioTier)+len(descs))
	for name, ok := range w.AudioTier {
		tier[name] = ok
	}
	for _, d := range descs {
		if d.AudioBased {
			tier[d.Name] = true
		}
	}
	w.AudioTier = tier
	return w
}

func (w Weights) normalized() Weights {
	if w.AudioBoost <= 0 {
		w.AudioBoost = 1.0
	}
	if w.DefaultWeight <= 0 {
		w.DefaultWeight = 1.0
	}
	if w.TieBreak != TieBreakFirst {
		w.TieBreak = TieBreakLexical
	}
	return w
}

// Weight returns the vote weight of a single outcome, or 0 when the outcome
// casts no vote. The audio tier is looked up by the record's provider name.
func (w Weights) Weight(o model.Outcome) float64 {
	return w.normalized().weigh(o, w.AudioTier[o.Provider])
}

func (w Weights) weigh(o model.Outcome, audio bool) float64 {
	if !o.Succeeded() || o.LanguageCode() == "" {
		return 0
	}
	weight := w.DefaultWeight
	if o.Confidence != nil {
		weight = *o.Confidence
	}
	if audio {
		weight *= w.AudioBoost
	}
	return weight
}

// Aggregate computes the ensemble decision over records, taking each
// record's audio tier from w.AudioTier by provider name.
func Aggregate(records []model.Outcome, w Weights) model.EnsembleResult {
	audio := make([]bool, len(records))
	for i, r := range records {
		audio[i] = w.AudioTier[r.Provider]
	}
	return AggregateTiered(records, audio, w)
}

// AggregateTiered computes the ensemble decision over records where
// audio[i] marks record i as audio tier. Records beyond len(audio) get no
// boost. It is pure: the input is never modified and the result depends
// only on the input content.
//
// Cost is summed over every record, failed ones included.
func AggregateTiered(records []model.Outcome, audio []bool, w Weights) model.EnsembleResult {
	w = w.normalized()

	scores := make(map[string]float64)
	var order []string
	var total model.Cost

	for i, r := range records {
		total = total.Add(r.Cost.Normalize())

		if !r.Succeeded() {
			continue
		}
		lang := r.LanguageCode()
		if lang == "" {
			continue
		}
		if _, seen := scores[lang]; !seen {
			order = append(order, lang)
		}
		scores[lang] += w.weigh(r, i < len(audio) && audio[i])
	}

	return model.EnsembleResult{
		FinalLanguage: pickWinner(scores, order, w.TieBreak),
		Scores:        scores,
		TotalCost:     total,
	}
}

// pickWinner finds the top score, then applies tb among every language
// within scoreEpsilon of it.
func pickWinner(scores map[string]float64, order []string, tb TieBreak) *string {
	if len(order) == 0 {
		return nil
	}

	top := scores[order[0]]
	for _, lang := range order[1:] {
		top = max(top, scores[lang])
	}

	var best string
	for _, lang := range order {
		if scores[lang] < top-scoreEpsilon {
			continue
		}
		if best == "" {
			best = lang
			if tb == TieBreakFirst {
				break
			}
			continue
		}
		if lang < best {
			best = lang
		}
	}
	return &best
}
