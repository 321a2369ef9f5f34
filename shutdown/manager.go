package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"wallgen/core"
	"wallgen/logging"
)

// DefaultTimeout bounds how long Shutdown waits for in-flight generations
// plus cleanup hooks. A generation observes cancellation at its next
// pipeline checkpoint, so this only needs to cover one network call.
const DefaultTimeout = 60 * time.Second

// Manager ties the teardown pieces together: a context cancelled on the
// first SIGINT/SIGTERM, an OperationTracker for in-flight generations, a
// hook Registry, and a SignalCounter that force-exits on the second
// signal.
type Manager struct {
	logger  *logging.Logger
	timeout time.Duration

	mu       sync.Mutex
	started  bool
	shutdown bool

	ctx    context.Context
	cancel context.CancelFunc

	tracker  *OperationTracker
	registry *Registry
	signals  *SignalCounter
	sigChan  chan os.Signal
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.timeout = timeout
	}
}

// NewManager creates a Manager. The logger is required.
func NewManager(logger *logging.Logger, opts ...ManagerOption) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		logger:   logger.Named("shutdown"),
		timeout:  DefaultTimeout,
		ctx:      ctx,
		cancel:   cancel,
		tracker:  NewOperationTracker(),
		registry: NewRegistry(),
		sigChan:  make(chan os.Signal, 1),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.signals = NewSignalCounter(2, func() {
		m.logger.Warn("second signal received, forcing exit")
		os.Exit(1)
	})
	return m
}

// Context returns the context cancelled when shutdown begins. Long-lived
// components watch it to stop their work.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a cleanup hook run during Shutdown. Lower priorities run
// first; hooks that read a resource must be ordered before the hook that
// closes it.
func (m *Manager) Register(name string, priority int, fn core.ShutdownFunc) {
	m.registry.Register(name, priority, fn)
	m.logger.Debug("registered shutdown hook",
		zap.String("name", name),
		zap.Int("priority", priority))
}

// Start installs the SIGINT/SIGTERM handler. The first signal cancels the
// managed context; the second one force-exits. Safe to call twice.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range m.sigChan {
			if m.signals.Increment() == 1 {
				m.logger.Info("shutdown signal received",
					zap.String("signal", sig.String()))
				m.cancel()
			}
		}
	}()

	m.logger.Info("signal handler installed")
}

// Trigger starts a shutdown programmatically, as if a signal arrived.
func (m *Manager) Trigger() {
	m.cancel()
}

// Shutdown closes the tracker, waits for in-flight generations, then runs
// the cleanup hooks with whatever remains of the timeout. It is
// idempotent.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	m.mu.Unlock()

	started := time.Now()
	m.logger.Info("shutting down",
		zap.Duration("timeout", m.timeout),
		zap.Int("hooks", m.registry.Count()))

	m.tracker.Close()
	if active := m.tracker.ActiveCount(); active > 0 {
		m.logger.Info("waiting for in-flight generations",
			zap.Int64("active", active))
	}
	if err := m.tracker.Wait(m.timeout); err != nil {
		m.logger.Warn("gave up waiting for in-flight generations",
			zap.Duration("waited", time.Since(started)),
			zap.Int64("remaining", m.tracker.ActiveCount()))
	}

	remaining := m.timeout - time.Since(started)
	if remaining < time.Second {
		remaining = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), remaining)
	defer cancel()

	errs := m.registry.Run(ctx)
	for _, err := range errs {
		m.logger.Error("shutdown hook failed", zap.Error(err))
	}

	signal.Stop(m.sigChan)

	duration := time.Since(started)
	if len(errs) > 0 {
		m.logger.Error("shutdown finished with errors",
			zap.Duration("duration", duration),
			zap.Int("errors", len(errs)))
		return fmt.Errorf("shutdown: %d hooks failed", len(errs))
	}
	m.logger.Info("shutdown complete", zap.Duration("duration", duration))
	return nil
}

// Wait blocks until shutdown has been initiated.
func (m *Manager) Wait() {
	<-m.ctx.Done()
}

// WrapOperation runs fn as a tracked operation. It returns
// ErrTrackerClosed without running fn once shutdown has begun.
func (m *Manager) WrapOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	if !m.tracker.Start() {
		m.logger.Debug("operation rejected, shutting down",
			zap.String("operation", name))
		return ErrTrackerClosed
	}
	defer m.tracker.Done()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.ctx.Done():
		return context.Canceled
	default:
	}
	return fn(ctx)
}

// ActiveOperations returns the number of tracked operations in flight.
func (m *Manager) ActiveOperations() int64 {
	return m.tracker.ActiveCount()
}

// IsShuttingDown reports whether shutdown has begun.
func (m *Manager) IsShuttingDown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown || m.tracker.IsClosed()
}
