package model

import (
	"math"
	"strings"
	"time"
)

// UnknownProvider is the identity used when a record cannot be attributed
// to any configured provider.
const UnknownProvider = "unknown"

// Status is the terminal classification of a single provider invocation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Cost is the resource usage attributed to one invocation.
type Cost struct {
	Tokens int64   `json:"tokens"`
	USD    float64 `json:"usd"`
}

// Add returns the elementwise sum of two costs.
func (c Cost) Add(o Cost) Cost {
	return Cost{Tokens: c.Tokens + o.Tokens, USD: c.USD + o.USD}
}

// Normalize clamps negative or non-finite components to zero.
func (c Cost) Normalize() Cost {
	if c.Tokens < 0 {
		c.Tokens = 0
	}
	if c.USD < 0 || math.IsNaN(c.USD) || math.IsInf(c.USD, 0) {
		c.USD = 0
	}
	return c
}

// IsZero reports whether no cost was incurred.
func (c Cost) IsZero() bool {
	return c.Tokens == 0 && c.USD == 0
}

// Outcome is the standardized record produced by every provider invocation,
// successful or not.
type Outcome struct {
	Provider   string   `json:"provider"`
	Language   *string  `json:"language"`
	Confidence *float64 `json:"confidence"`
	TimeTaken  float64  `json:"time_taken"` // seconds
	Transcript *string  `json:"transcript"`
	Status     Status   `json:"status"`
	Error      *string  `json:"error"`
	Cost       Cost     `json:"cost"`
	Script     string   `json:"script,omitempty"`
}

// OutcomeOption sets an optional field on a successful Outcome.
type OutcomeOption func(*Outcome)

// WithLanguage sets the detected language. Empty codes are ignored.
func WithLanguage(lang string) OutcomeOption {
	return func(o *Outcome) {
		if lang = strings.TrimSpace(lang); lang != "" {
			o.Language = &lang
		}
	}
}

// WithConfidence sets the provider-defined confidence score.
func WithConfidence(c float64) OutcomeOption {
	return func(o *Outcome) {
		o.Confidence = &c
	}
}

// WithTranscript attaches the text the provider produced.
func WithTranscript(text string) OutcomeOption {
	return func(o *Outcome) {
		o.Transcript = &text
	}
}

// WithScript records the writing system of the detected language.
func WithScript(script string) OutcomeOption {
	return func(o *Outcome) {
		o.Script = script
	}
}

// Success builds a success record.
func Success(provider string, elapsed time.Duration, cost Cost, opts ...OutcomeOption) Outcome {
	o := Outcome{
		Provider:  provider,
		TimeTaken: elapsed.Seconds(),
		Status:    StatusSuccess,
		Cost:      cost,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o.Normalize()
}

// Failure builds an error record with zero cost and no language.
func Failure(provider string, elapsed time.Duration, err error) Outcome {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return Outcome{
		Provider:  provider,
		TimeTaken: elapsed.Seconds(),
		Status:    StatusError,
		Error:     &msg,
	}.Normalize()
}

// Normalize enforces the record invariants: an error record has a message
// and no language, a success record has no error, cost is well-formed and
// time_taken is non-negative.
func (o Outcome) Normalize() Outcome {
	o.Cost = o.Cost.Normalize()
	if o.TimeTaken < 0 || math.IsNaN(o.TimeTaken) || math.IsInf(o.TimeTaken, 0) {
		o.TimeTaken = 0
	}
	if o.Provider == "" {
		o.Provider = UnknownProvider
	}

	switch o.Status {
	case StatusSuccess:
		o.Error = nil
		if o.Language != nil && strings.TrimSpace(*o.Language) == "" {
			o.Language = nil
		}
	default:
		o.Status = StatusError
		o.Language = nil
		if o.Error == nil || *o.Error == "" {
			msg := "unknown error"
			o.Error = &msg
		}
	}
	return o
}

// Succeeded reports whether the invocation completed successfully.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSuccess
}

// LanguageCode returns the detected language or "" when there is none.
func (o Outcome) LanguageCode() string {
	if o.Language == nil {
		return ""
	}
	return *o.Language
}

// TranscriptText returns the transcript or "" when there is none.
func (o Outcome) TranscriptText() string {
	if o.Transcript == nil {
		return ""
	}
	return *o.Transcript
}

// ErrorText returns the failure description or "".
func (o Outcome) ErrorText() string {
	if o.Error == nil {
		return ""
	}
	return *o.Error
}

// Elapsed returns time_taken as a duration.
func (o Outcome) Elapsed() time.Duration {
	return time.Duration(o.TimeTaken * float64(time.Second))
}

// WithCost returns a copy of o carrying c. Failures use it to report
// resources spent before the error.
func (o Outcome) WithCost(c Cost) Outcome {
	o.Cost = c.Normalize()
	return o
}
