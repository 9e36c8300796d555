// Package provider defines the contract every language-detection provider
// satisfies and the registry the orchestrator draws its panel from.
package provider

import (
	"context"
	"sync"

	"github.com/sells-group/langid/internal/model"
)

// Descriptor is the static capability description of a provider.
type Descriptor struct {
	// Name identifies the provider in outcome records and logs.
	Name string `json:"name"`
	// AudioBased marks providers that work directly on audio. Their votes
	// are boosted by the ensemble.
	AudioBased bool `json:"audio_based"`
	// Transcriber marks the canonical transcript provider whose text
	// triggers secondary text-based detection.
	Transcriber bool `json:"transcriber"`
	// Kind is a free-form label for listings ("whisper", "mock", ...).
	Kind string `json:"kind,omitempty"`
}

// Provider detects the spoken language of an audio file.
//
// Detect must never panic and never report failure other than through an
// error-status Outcome.
type Provider interface {
	Descriptor() Descriptor
	Detect(ctx context.Context, audioPath string) model.Outcome
}

// TextProvider detects the language of a piece of text. It is invoked on
// transcripts, never on audio.
type TextProvider interface {
	Descriptor() Descriptor
	DetectText(ctx context.Context, text string) model.Outcome
}

// Registry is an ordered, name-unique set of primary providers.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
	index     map[string]int
}

// NewRegistry creates an empty provider registry.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{index: make(map[string]int)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds a provider. Registering a name twice replaces the earlier
// provider in its original slot.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Descriptor().Name
	if i, ok := r.index[name]; ok {
		r.providers[i] = p
		return
	}
	r.index[name] = len(r.providers)
	r.providers = append(r.providers, p)
}

// Get returns a provider by name, or nil if not found.
func (r *Registry) Get(name string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i, ok := r.index[name]; ok {
		return r.providers[i]
	}
	return nil
}

// List returns a snapshot of all providers in registration order.
func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// Names returns provider names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Descriptor().Name
	}
	return names
}

// Descriptors returns every provider's descriptor in registration order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, len(r.providers))
	for i, p := range r.providers {
		out[i] = p.Descriptor()
	}
	return out
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
