// Package engine sequences one wallpaper generation end to end: prompt
// resolution, provider identity bootstrap, the generation job, upscaling,
// and artifact persistence, under a single-flight cancelable state
// machine with bounded whole-pipeline retry.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"wallgen/core"
	"wallgen/imagegen"
	"wallgen/logging"
	"wallgen/store"
	"wallgen/wallpaper"
)

// PromptStore is the slice of persistence the engine needs. *store.Store
// satisfies it.
type PromptStore interface {
	Prompt(ctx context.Context, id string) (*store.Prompt, error)
	SetGeneratedAt(ctx context.Context, id string, generatedAt time.Time) error
	SelectedPromptID(ctx context.Context) (string, error)
	RecordGeneration(ctx context.Context, record store.GenerationRecord) error
}

// Resolver produces the final prompt text from a template.
type Resolver interface {
	Resolve(ctx context.Context, template string) (string, error)
}

// Upscaler runs the post-generation upscale pipeline. The checkpoint is
// called between its internal steps, mirroring imagegen.Checkpoint.
type Upscaler interface {
	Upscale(ctx context.Context, image []byte, checkpoint func() error) ([]byte, error)
}

// Config wires an Engine's collaborators.
type Config struct {
	Store     PromptStore
	Resolver  Resolver
	Provider  imagegen.Factory
	Upscaler  Upscaler
	Artifacts *wallpaper.ArtifactStore
	Setter    wallpaper.Setter

	// Resolution supplies the target screen size at pipeline start. Nil
	// means 1920x1080.
	Resolution func(ctx context.Context) core.Resolution

	// MaxAttempts bounds whole-pipeline retries. Zero means 3.
	MaxAttempts int

	Logger *logging.Logger
}

// Engine owns the process-wide generation state machine.
type Engine struct {
	config Config
	logger *logging.Logger

	mu              sync.Mutex
	status          Status
	statusObservers []func(Status)
	promptObservers []func(store.Prompt)
}

// New creates an idle Engine.
func New(config Config) *Engine {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.Resolution == nil {
		config.Resolution = func(ctx context.Context) core.Resolution {
			return core.Resolution{Width: 1920, Height: 1080}
		}
	}
	if config.Setter == nil {
		config.Setter = wallpaper.NopSetter{}
	}
	return &Engine{
		config: config,
		logger: config.Logger,
		status: StatusIdle,
	}
}

// Status returns the current pipeline status.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// OnStatusChange registers an observer for status transitions. Observers
// run synchronously under the transition, so a notification is never
// dropped or reordered with respect to the mutation that caused it.
func (e *Engine) OnStatusChange(observer func(Status)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.statusObservers = append(e.statusObservers, observer)
}

// OnPromptStarted registers an observer fired once per attempt, before the
// pipeline's first suspension point.
func (e *Engine) OnPromptStarted(observer func(store.Prompt)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.promptObservers = append(e.promptObservers, observer)
}

// setStatus transitions the state machine, notifying observers. A
// transition to the current status emits nothing.
func (e *Engine) setStatus(status Status) {
	e.mu.Lock()
	if e.status == status {
		e.mu.Unlock()
		return
	}
	e.status = status
	observers := make([]func(Status), len(e.statusObservers))
	copy(observers, e.statusObservers)
	e.mu.Unlock()

	for _, observer := range observers {
		observer(status)
	}
}

// checkpoint observes a pending cancellation. Called before and after
// every remote step.
func (e *Engine) checkpoint() error {
	e.mu.Lock()
	canceling := e.status == StatusCanceling
	e.mu.Unlock()
	if canceling {
		return ErrCanceled
	}
	return nil
}

// Cancel requests cancellation of the in-flight generation. It returns
// false when the engine is idle. The pipeline observes the request at its
// next suspension point; in-flight network calls are allowed to finish.
func (e *Engine) Cancel() bool {
	e.mu.Lock()
	if e.status == StatusIdle || e.status == StatusCanceling {
		idle := e.status == StatusIdle
		e.mu.Unlock()
		return !idle
	}
	e.status = StatusCanceling
	observers := make([]func(Status), len(e.statusObservers))
	copy(observers, e.statusObservers)
	e.mu.Unlock()

	for _, observer := range observers {
		observer(StatusCanceling)
	}
	return true
}

// Generate runs the full pipeline for a prompt. It fails immediately with
// AlreadyGeneratingError when a generation is in flight. Transient
// failures restart the whole pipeline, fresh identity included, up to
// MaxAttempts; cancellation stops the retry loop and is not an error.
func (e *Engine) Generate(ctx context.Context, promptID string) error {
	// Single-flight gate: check and transition atomically.
	e.mu.Lock()
	if e.status != StatusIdle {
		status := e.status
		e.mu.Unlock()
		return &AlreadyGeneratingError{Status: status}
	}
	e.status = StatusInitializing
	observers := make([]func(Status), len(e.statusObservers))
	copy(observers, e.statusObservers)
	e.mu.Unlock()
	for _, observer := range observers {
		observer(StatusInitializing)
	}

	log := e.logger
	if log != nil {
		log = log.With(zap.String("prompt_id", promptID))
	}

	started := time.Now()
	var lastErr error
	canceled := false
	attempts := 0

	for attempt := 1; attempt <= e.config.MaxAttempts; attempt++ {
		attempts = attempt
		err := e.runPipeline(ctx, promptID, attempt)
		if err == nil {
			lastErr = nil
			break
		}
		if errors.Is(err, ErrCanceled) {
			canceled = true
			if log != nil {
				log.Info("generation canceled", zap.Int("attempt", attempt))
			}
			break
		}

		lastErr = err
		if log != nil {
			log.Warn("generation attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", e.config.MaxAttempts),
				zap.Error(err))
		}

		// Retrying against a dead context would fail the same way on
		// every remaining attempt.
		if ctx.Err() != nil {
			break
		}

		// Each retry restarts from scratch; reset the visible state
		// first so observers see the pipeline rewind. A cancellation
		// that landed during the failed attempt wins over the retry.
		if attempt < e.config.MaxAttempts {
			if !e.resetForRetry() {
				canceled = true
				if log != nil {
					log.Info("generation canceled", zap.Int("attempt", attempt))
				}
				break
			}
		}
	}

	e.recordOutcome(ctx, promptID, started, attempts, lastErr, canceled)
	e.setStatus(StatusIdle)

	if canceled {
		return nil
	}
	return lastErr
}

// resetForRetry rewinds the state machine to INITIALIZING for the next
// attempt. It refuses when a cancellation arrived during the failed
// attempt; the retry must not overwrite CANCELING.
func (e *Engine) resetForRetry() bool {
	e.mu.Lock()
	if e.status == StatusCanceling {
		e.mu.Unlock()
		return false
	}
	if e.status == StatusInitializing {
		e.mu.Unlock()
		return true
	}
	e.status = StatusInitializing
	observers := make([]func(Status), len(e.statusObservers))
	copy(observers, e.statusObservers)
	e.mu.Unlock()

	for _, observer := range observers {
		observer(StatusInitializing)
	}
	return true
}

func (e *Engine) recordOutcome(ctx context.Context, promptID string, started time.Time, attempts int, lastErr error, canceled bool) {
	record := store.GenerationRecord{
		PromptID: promptID,
		Attempts: attempts,
		Duration: time.Since(started),
	}
	switch {
	case canceled:
		record.Status = store.GenerationCanceled
	case lastErr != nil:
		record.Status = store.GenerationFailed
		record.ErrorMessage = lastErr.Error()
	default:
		record.Status = store.GenerationSucceeded
	}

	if err := e.config.Store.RecordGeneration(ctx, record); err != nil && e.logger != nil {
		e.logger.Warn("failed to record generation history", zap.Error(err))
	}
}

// runPipeline executes one attempt end to end.
func (e *Engine) runPipeline(ctx context.Context, promptID string, attempt int) error {
	prompt, err := e.config.Store.Prompt(ctx, promptID)
	if err != nil {
		return err
	}

	// promptStarted fires before the first suspension point.
	e.mu.Lock()
	promptObservers := make([]func(store.Prompt), len(e.promptObservers))
	copy(promptObservers, e.promptObservers)
	e.mu.Unlock()
	for _, observer := range promptObservers {
		observer(*prompt)
	}

	if err := e.checkpoint(); err != nil {
		return err
	}
	resolved, err := e.config.Resolver.Resolve(ctx, prompt.Text)
	if err != nil {
		return err
	}

	resolution := e.config.Resolution(ctx)

	if err := e.checkpoint(); err != nil {
		return err
	}
	provider, err := e.config.Provider(e.checkpoint)
	if err != nil {
		return err
	}
	if err := provider.Initialize(ctx); err != nil {
		return err
	}

	e.setStatus(StatusGeneratingImage)
	if err := e.checkpoint(); err != nil {
		return err
	}
	original, err := provider.Generate(ctx, resolved, resolution.Width, resolution.Height)
	if err != nil {
		return err
	}

	var upscaled []byte
	if e.config.Upscaler != nil {
		e.setStatus(StatusUpscaling)
		if err := e.checkpoint(); err != nil {
			return err
		}
		upscaled, err = e.config.Upscaler.Upscale(ctx, original, e.checkpoint)
		if err != nil {
			return err
		}
		if upscaled, err = wallpaper.FitToScreen(upscaled, resolution.Width, resolution.Height); err != nil {
			return err
		}
	}

	e.setStatus(StatusFinalizing)
	if err := e.checkpoint(); err != nil {
		return err
	}
	if err := e.config.Artifacts.Save(prompt.ID, original, upscaled); err != nil {
		return err
	}
	if err := e.config.Store.SetGeneratedAt(ctx, prompt.ID, time.Now().UTC()); err != nil {
		return err
	}

	selected, err := e.config.Store.SelectedPromptID(ctx)
	if err != nil {
		return err
	}
	if selected == prompt.ID {
		if path := e.config.Artifacts.PathOf(prompt.ID); path != "" {
			if err := e.config.Setter.Apply(ctx, path); err != nil {
				return err
			}
		}
	}

	if e.logger != nil {
		e.logger.Info("generation finished",
			zap.String("prompt_id", prompt.ID),
			zap.Int("attempt", attempt),
			zap.String("provider", provider.Name()))
	}
	return nil
}
