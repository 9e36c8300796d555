package model

import "encoding/json"

// EnsembleResult is the weighted-vote decision over one round of outcomes.
type EnsembleResult struct {
	FinalLanguage *string            `json:"final_language"`
	Scores        map[string]float64 `json:"scores"`
	TotalCost     Cost               `json:"total_cost"`
}

// MarshalJSON keeps scores an object even when no votes were cast.
func (e EnsembleResult) MarshalJSON() ([]byte, error) {
	type alias EnsembleResult
	out := alias(e)
	if out.Scores == nil {
		out.Scores = map[string]float64{}
	}
	return json.Marshal(out)
}

// Final returns the winning language or "" when there is none.
func (e EnsembleResult) Final() string {
	if e.FinalLanguage == nil {
		return ""
	}
	return *e.FinalLanguage
}

// RoundResult is everything a detection round returns to its caller.
type RoundResult struct {
	Results  []Outcome      `json:"results"`
	Ensemble EnsembleResult `json:"ensemble"`
}

// MarshalJSON keeps results an array even when no provider ran.
func (r RoundResult) MarshalJSON() ([]byte, error) {
	type alias RoundResult
	out := alias(r)
	if out.Results == nil {
		out.Results = []Outcome{}
	}
	return json.Marshal(out)
}

// Failed returns the records whose invocation ended in error.
func (r RoundResult) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Results {
		if !o.Succeeded() {
			out = append(out, o)
		}
	}
	return out
}
