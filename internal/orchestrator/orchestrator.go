// Package orchestrator drives the voice pipeline: it takes segmented
// utterances from capture, transcribes them, routes them to tools or the
// generator, and speaks the result. At most one turn is active at a time;
// utterances arriving mid-turn wait in a single latest-wins slot.
package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/normanking/cortexassist/internal/audio"
	"github.com/normanking/cortexassist/internal/bus"
	"github.com/normanking/cortexassist/internal/conversation"
	"github.com/normanking/cortexassist/internal/intent"
	"github.com/normanking/cortexassist/internal/llm"
	"github.com/normanking/cortexassist/internal/memory"
	"github.com/normanking/cortexassist/internal/stt"
	"github.com/normanking/cortexassist/internal/tools"
	"github.com/normanking/cortexassist/internal/tts"
)

// State is the pipeline's current stage.
type State string

const (
	StateIdle                State = "idle"
	StateTranscribing        State = "transcribing"
	StateRouting             State = "routing"
	StateExecuting           State = "executing"
	StateGenerating          State = "generating"
	StateSynthesizing        State = "synthesizing"
	StatePendingConfirmation State = "pending_confirmation"
)

var errShutdown = errors.New("shutdown requested")

// Speaker plays synthesized audio. Implemented by audio.Player.
type Speaker interface {
	Play(ctx context.Context, data []byte, format string) error
	Stop()
}

// Config holds orchestrator settings.
type Config struct {
	// WakeWord gates utterances when set; empty means always armed.
	WakeWord string
	// PushToTalk disables wake word gating entirely.
	PushToTalk     bool
	WelcomeLine    string
	GoodbyeLine    string
	ShutdownPhrase string
	// StoreExchanges persists each exchange to semantic memory.
	StoreExchanges bool
	// RephraseResults feeds successful tool output through the
	// generator instead of speaking it verbatim.
	RephraseResults bool
}

// Deps are the orchestrator's collaborators.
type Deps struct {
	Events       *bus.EventBus
	Source       audio.Source
	Player       Speaker
	Transcriber  stt.Provider
	Synthesizer  tts.Provider
	Generator    llm.Generator
	Memory       *memory.Manager
	Conversation *conversation.Manager
	Tools        *tools.Registry
	Classifier   *intent.Classifier
}

// Orchestrator runs the turn state machine.
type Orchestrator struct {
	config Config
	logger zerolog.Logger
	deps   Deps

	mailbox *audio.Mailbox

	mu         sync.Mutex
	state      State
	cancelTurn context.CancelFunc

	quit     chan struct{}
	quitOnce sync.Once
}

// New creates an orchestrator.
func New(logger zerolog.Logger, config Config, deps Deps) *Orchestrator {
	return &Orchestrator{
		config:  config,
		logger:  logger.With().Str("component", "orchestrator").Logger(),
		deps:    deps,
		mailbox: audio.NewMailbox(),
		state:   StateIdle,
		quit:    make(chan struct{}),
	}
}

// State returns the current pipeline stage.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Run drives the pipeline until ctx is cancelled or Shutdown is called.
func (o *Orchestrator) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := o.deps.Source.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			o.logger.Error().Err(err).Msg("Audio capture stopped")
		}
	}()
	go o.pump(ctx)

	if o.config.WelcomeLine != "" {
		o.speak(ctx, o.config.WelcomeLine)
	}
	o.setState(StateIdle)
	o.logger.Info().Str("wake_word", o.config.WakeWord).Msg("Pipeline running")

	for {
		utterance, err := o.takeUtterance(ctx)
		if err != nil {
			if errors.Is(err, errShutdown) {
				o.farewell(ctx)
				return nil
			}
			return err
		}
		o.processTurn(ctx, utterance)

		select {
		case <-o.quit:
			o.farewell(ctx)
			return nil
		default:
		}
	}
}

// Shutdown asks Run to finish after the current turn.
func (o *Orchestrator) Shutdown() {
	o.quitOnce.Do(func() { close(o.quit) })
}

// Stop aborts the in-flight turn, cuts playback and drops anything
// queued, returning the pipeline to idle.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	cancel := o.cancelTurn
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	o.deps.Tools.ClearPending()
	o.deps.Player.Stop()
	o.mailbox.Clear()

	o.publish(bus.EventTypeTurnAborted, map[string]any{"reason": "stop"})
	o.logger.Info().Msg("Turn aborted by stop request")
}

// ResolveConfirmation resolves a pending high-risk tool action from the
// control channel and returns the spoken-equivalent reply.
func (o *Orchestrator) ResolveConfirmation(ctx context.Context, confirm bool) string {
	if !confirm {
		if err := o.deps.Tools.Deny(); err != nil {
			return "There was nothing waiting for confirmation."
		}
		o.publish(bus.EventTypeConfirmationResolved, map[string]any{"confirmed": false})
		return "Okay, I won't."
	}

	result, err := o.deps.Tools.Confirm(ctx)
	if err != nil {
		return "There was nothing waiting for confirmation."
	}
	o.publish(bus.EventTypeConfirmationResolved, map[string]any{"confirmed": true})
	if result.Text != "" {
		return result.Text
	}
	if result.Success {
		return "Done."
	}
	return "That didn't work."
}

// pump moves captured utterances into the mailbox. A newer utterance
// displaces an unserved one, so the pipeline always resumes with the
// latest thing said.
func (o *Orchestrator) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case utterance, ok := <-o.deps.Source.Utterances():
			if !ok {
				return
			}
			if o.mailbox.Put(utterance) {
				o.logger.Debug().Msg("Stale utterance displaced")
			}
		}
	}
}

func (o *Orchestrator) takeUtterance(ctx context.Context) (audio.Utterance, error) {
	takeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-o.quit:
			cancel()
		case <-takeCtx.Done():
		}
	}()

	utterance, err := o.mailbox.Take(takeCtx)
	if err != nil {
		select {
		case <-o.quit:
			return audio.Utterance{}, errShutdown
		default:
			return audio.Utterance{}, err
		}
	}
	return utterance, nil
}

func (o *Orchestrator) farewell(ctx context.Context) {
	if o.config.GoodbyeLine != "" {
		o.speak(ctx, o.config.GoodbyeLine)
	}
	o.logger.Info().Msg("Pipeline stopped")
}

func (o *Orchestrator) setState(state State) {
	o.mu.Lock()
	changed := o.state != state
	o.state = state
	o.mu.Unlock()

	if changed {
		o.publish(bus.EventTypeStatusChanged, map[string]any{"state": string(state)})
	}
}

func (o *Orchestrator) publish(eventType bus.EventType, data map[string]any) {
	if o.deps.Events == nil {
		return
	}
	o.deps.Events.Publish(bus.Event{Type: eventType, Data: data})
}
