package tools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// pendingAction is a high-risk invocation waiting on user confirmation.
// It is single-shot: confirming, denying, or any unrelated utterance
// consumes it.
type pendingAction struct {
	turnID  string
	desc    Descriptor
	handler Handler
	params  map[string]string
	created time.Time
}

// RegistryConfig holds registry settings.
type RegistryConfig struct {
	// ExecTimeout bounds a single handler execution.
	ExecTimeout time.Duration
	// ConfirmationTimeout bounds the wait for a confirming utterance.
	ConfirmationTimeout time.Duration
}

// DefaultRegistryConfig returns sensible registry defaults.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		ExecTimeout:         10 * time.Second,
		ConfirmationTimeout: 30 * time.Second,
	}
}

// Registry holds the registered tools and enforces the security gate.
// At most one confirmation may be pending at a time.
type Registry struct {
	mu       sync.Mutex
	tools    map[string]Descriptor
	handlers map[string]Handler
	pending  *pendingAction
	config   RegistryConfig
	logger   zerolog.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry(cfg RegistryConfig, logger zerolog.Logger) *Registry {
	if cfg.ExecTimeout <= 0 {
		cfg.ExecTimeout = DefaultRegistryConfig().ExecTimeout
	}
	if cfg.ConfirmationTimeout <= 0 {
		cfg.ConfirmationTimeout = DefaultRegistryConfig().ConfirmationTimeout
	}
	return &Registry{
		tools:    make(map[string]Descriptor),
		handlers: make(map[string]Handler),
		config:   cfg,
		logger:   logger,
	}
}

// Register adds a tool to the registry. Registering an existing name
// fails; tools are wired once at startup.
func (r *Registry) Register(desc Descriptor, h Handler) error {
	if desc.Name == "" {
		return fmt.Errorf("%w: empty tool name", ErrInvalidParameters)
	}
	if h == nil && desc.Tier != TierForbidden {
		return fmt.Errorf("%w: nil handler for %q", ErrInvalidParameters, desc.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[desc.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRegistration, desc.Name)
	}

	r.tools[desc.Name] = desc
	r.handlers[desc.Name] = h

	r.logger.Debug().
		Str("tool", desc.Name).
		Str("tier", string(desc.Tier)).
		Msg("Tool registered")
	return nil
}

// Get returns the descriptor for a tool name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	desc, ok := r.tools[name]
	return desc, ok
}

// List returns all registered descriptors.
func (r *Registry) List() []Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Descriptor, 0, len(r.tools))
	for _, d := range r.tools {
		out = append(out, d)
	}
	return out
}

// Invoke runs a tool through the security gate. Unknown names and invalid
// parameters fail before any handler runs. Forbidden tools always fail.
// High-risk tools do not execute; instead the invocation is parked and
// ErrConfirmationRequired returned, to be resolved by Confirm or Deny.
func (r *Registry) Invoke(ctx context.Context, turnID, name string, params map[string]string) (Result, error) {
	r.mu.Lock()
	desc, ok := r.tools[name]
	if !ok {
		r.mu.Unlock()
		return Failure(ErrUnknownTool), fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	handler := r.handlers[name]
	r.mu.Unlock()

	if desc.Tier == TierForbidden {
		r.logger.Warn().
			Str("tool", name).
			Str("turn_id", turnID).
			Msg("Forbidden tool invocation blocked")
		return Failure(ErrForbiddenAction), fmt.Errorf("%w: %s", ErrForbiddenAction, name)
	}

	validated, err := validateParams(desc, params)
	if err != nil {
		return Failure(err), err
	}

	if desc.Tier == TierHighRisk {
		r.mu.Lock()
		r.pending = &pendingAction{
			turnID:  turnID,
			desc:    desc,
			handler: handler,
			params:  validated,
			created: time.Now(),
		}
		r.mu.Unlock()

		r.logger.Info().
			Str("tool", name).
			Str("turn_id", turnID).
			Msg("High-risk tool awaiting confirmation")
		return Result{}, ErrConfirmationRequired
	}

	if desc.Tier == TierModerate {
		r.logger.Info().
			Str("tool", name).
			Str("turn_id", turnID).
			Msg("Executing moderate-risk tool")
	}

	return r.execute(ctx, desc, handler, validated), nil
}

// Confirm resolves the pending high-risk action and executes it exactly
// once. Returns ErrConfirmationTimeout if nothing is pending or the
// window has elapsed.
func (r *Registry) Confirm(ctx context.Context) (Result, error) {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()

	if pending == nil {
		return Failure(ErrConfirmationTimeout), ErrConfirmationTimeout
	}
	if time.Since(pending.created) > r.config.ConfirmationTimeout {
		r.logger.Info().
			Str("tool", pending.desc.Name).
			Msg("Confirmation arrived after window elapsed")
		return Failure(ErrConfirmationTimeout), ErrConfirmationTimeout
	}

	r.logger.Info().
		Str("tool", pending.desc.Name).
		Str("turn_id", pending.turnID).
		Msg("High-risk tool confirmed")
	return r.execute(ctx, pending.desc, pending.handler, pending.params), nil
}

// Deny cancels the pending high-risk action without executing it.
func (r *Registry) Deny() error {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()

	if pending == nil {
		return ErrConfirmationTimeout
	}
	r.logger.Info().
		Str("tool", pending.desc.Name).
		Str("turn_id", pending.turnID).
		Msg("High-risk tool denied")
	return nil
}

// ClearPending discards any pending action. Called when an unrelated
// utterance arrives, ending the confirmation window.
func (r *Registry) ClearPending() {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()

	if pending != nil {
		r.logger.Info().
			Str("tool", pending.desc.Name).
			Msg("Pending confirmation discarded")
	}
}

// Pending reports whether a confirmation is outstanding and, if so, a
// prompt describing the parked action. Expired actions are discarded.
func (r *Registry) Pending() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending == nil {
		return "", false
	}
	if time.Since(r.pending.created) > r.config.ConfirmationTimeout {
		r.pending = nil
		return "", false
	}
	return fmt.Sprintf("Confirm running %s?", r.pending.desc.Name), true
}

// execute runs a handler with the configured timeout. Handler panics are
// contained and surface as failed results.
func (r *Registry) execute(ctx context.Context, desc Descriptor, handler Handler, params map[string]string) (result Result) {
	ctx, cancel := context.WithTimeout(ctx, r.config.ExecTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().
				Str("tool", desc.Name).
				Interface("panic", rec).
				Msg("Tool handler panicked")
			result = Result{Success: false, Err: fmt.Sprintf("tool %s crashed: %v", desc.Name, rec)}
		}
	}()

	start := time.Now()
	result = handler.Execute(ctx, params)

	r.logger.Debug().
		Str("tool", desc.Name).
		Bool("success", result.Success).
		Dur("elapsed", time.Since(start)).
		Msg("Tool executed")
	return result
}
