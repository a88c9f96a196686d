// Package recovery wraps calls into the bot's subsystems with retry,
// exponential backoff and a per-subsystem circuit breaker. Failure counters
// are global per subsystem, shared across every game using the same
// Breakers value - a run of failures in one game stops all games hammering
// the broken subsystem.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

const (
	// DefaultMaxAttempts is the retry budget while the breaker is closed
	DefaultMaxAttempts = 3

	// DefaultBackoffBase is the first retry delay; later retries double it
	DefaultBackoffBase = time.Second

	// DefaultFailureThreshold opens the breaker
	DefaultFailureThreshold = 5

	// DefaultRecoveryTimeout is how long an open breaker waits before
	// allowing a half-open trial call
	DefaultRecoveryTimeout = 30 * time.Second
)

// ErrCircuitOpen is returned without invoking the operation while a
// subsystem's breaker is open.
var ErrCircuitOpen = errors.New("circuit open")

// SubsystemError wraps a failure with the subsystem it came from
type SubsystemError struct {
	Name string
	Err  error
}

func (e *SubsystemError) Error() string {
	return fmt.Sprintf("subsystem %s: %v", e.Name, e.Err)
}

func (e *SubsystemError) Unwrap() error {
	return e.Err
}

// Config holds the retry and breaker tuning
type Config struct {
	MaxAttempts      int
	BackoffBase      time.Duration
	FailureThreshold int
	RecoveryTimeout  time.Duration
}

// DefaultConfig returns the standard tuning
func DefaultConfig() Config {
	return Config{
		MaxAttempts:      DefaultMaxAttempts,
		BackoffBase:      DefaultBackoffBase,
		FailureThreshold: DefaultFailureThreshold,
		RecoveryTimeout:  DefaultRecoveryTimeout,
	}
}

// breaker is the per-subsystem state
type breaker struct {
	failureCount  int
	lastFailure   time.Time
	open          bool
	trialInFlight bool
}

// Breakers manages one circuit breaker per named subsystem. Safe for
// concurrent use.
type Breakers struct {
	mu       sync.Mutex
	clock    quartz.Clock
	logger   *log.Logger
	cfg      Config
	breakers map[string]*breaker
}

// New creates a breaker set on the given clock
func New(clock quartz.Clock, logger *log.Logger, cfg Config) *Breakers {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = DefaultRecoveryTimeout
	}
	return &Breakers{
		clock:    clock,
		logger:   logger.WithPrefix("recovery"),
		cfg:      cfg,
		breakers: make(map[string]*breaker),
	}
}

// State reports the failure count and open flag for a subsystem
func (r *Breakers) State(name string) (failures int, open bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.breakers[name]
	if b == nil {
		return 0, false
	}
	return b.failureCount, b.open
}

// admit decides whether a call may proceed and whether it is a half-open
// trial. Returns ErrCircuitOpen when the breaker is open and cooling down.
func (r *Breakers) admit(name string) (trial bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.breakers[name]
	if b == nil {
		b = &breaker{}
		r.breakers[name] = b
	}

	if !b.open {
		return false, nil
	}

	if b.trialInFlight || r.clock.Since(b.lastFailure) < r.cfg.RecoveryTimeout {
		return false, &SubsystemError{Name: name, Err: ErrCircuitOpen}
	}

	// Half-open: exactly one trial call goes through.
	b.trialInFlight = true
	return true, nil
}

func (r *Breakers) recordSuccess(name string, trial bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.breakers[name]
	if trial {
		b.open = false
		b.trialInFlight = false
		r.logger.Info("breaker closed after trial success", "subsystem", name)
	}
	b.failureCount = 0
}

func (r *Breakers) recordFailure(name string, trial bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.breakers[name]
	b.failureCount++
	b.lastFailure = r.clock.Now()
	if trial {
		b.open = true
		b.trialInFlight = false
		r.logger.Warn("breaker re-opened after trial failure", "subsystem", name)
		return
	}
	if !b.open && b.failureCount >= r.cfg.FailureThreshold {
		b.open = true
		r.logger.Warn("breaker opened", "subsystem", name, "failures", b.failureCount)
	}
}

// Do runs op with retries and breaker protection for the named subsystem.
// While the breaker is closed the op is attempted up to MaxAttempts times
// with doubling backoff; a half-open breaker admits a single attempt.
func (r *Breakers) Do(ctx context.Context, name string, op func(context.Context) error) error {
	trial, err := r.admit(name)
	if err != nil {
		return err
	}

	attempts := r.cfg.MaxAttempts
	if trial {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			backoff := r.cfg.BackoffBase << (attempt - 2)
			if err := r.wait(ctx, backoff); err != nil {
				r.recordFailure(name, trial)
				return &SubsystemError{Name: name, Err: err}
			}
		}

		if lastErr = op(ctx); lastErr == nil {
			r.recordSuccess(name, trial)
			return nil
		}

		r.logger.Debug("operation failed", "subsystem", name, "attempt", attempt, "error", lastErr)
		r.recordFailure(name, trial)

		if trial {
			break
		}
		// Stop retrying once the threshold trips mid-loop
		if _, open := r.State(name); open {
			break
		}
	}

	return &SubsystemError{Name: name, Err: lastErr}
}

// DoWithFallback runs primary under Do and swallows its failure by running
// fallback instead. The fallback runs outside the breaker: it is the
// degraded path and must stay available even when the subsystem is down.
func (r *Breakers) DoWithFallback(ctx context.Context, name string, primary, fallback func(context.Context) error) error {
	if err := r.Do(ctx, name, primary); err != nil {
		r.logger.Warn("falling back", "subsystem", name, "error", err)
		return fallback(ctx)
	}
	return nil
}

// wait blocks for d on the injected clock, honouring ctx cancellation
func (r *Breakers) wait(ctx context.Context, d time.Duration) error {
	timer := r.clock.NewTimer(d, "recovery", "backoff")
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
