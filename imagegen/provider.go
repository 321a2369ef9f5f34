// Package imagegen abstracts image-generation backends behind a two-phase
// Provider interface: an Initialize phase that prepares whatever identity
// or session the backend needs, and a Generate phase that produces image
// bytes for a prompt at a target resolution.
package imagegen

import "context"

// Checkpoint is called by providers between internal steps. Returning a
// non-nil error aborts the provider immediately with that error; the
// generation engine uses this to observe cancellation at every suspension
// point without the provider knowing about engine state.
type Checkpoint func() error

// Provider is one image-generation backend.
type Provider interface {
	// Name identifies the backend in logs and history records.
	Name() string

	// Initialize prepares the backend for one generation. For the web
	// provider this is the whole signup and login dance; for API-backed
	// providers it is a no-op.
	Initialize(ctx context.Context) error

	// Generate produces image bytes for the prompt, sized for the given
	// screen resolution. Must be called after Initialize.
	Generate(ctx context.Context, prompt string, screenWidth, screenHeight int) ([]byte, error)
}

// Factory builds a fresh Provider for one generation attempt. Providers
// are single-use: a retried pipeline gets a brand-new identity, never a
// partially advanced session.
type Factory func(checkpoint Checkpoint) (Provider, error)

func noCheckpoint() error { return nil }

// normalizeCheckpoint returns a usable checkpoint even when nil was given.
func normalizeCheckpoint(checkpoint Checkpoint) Checkpoint {
	if checkpoint == nil {
		return noCheckpoint
	}
	return checkpoint
}
