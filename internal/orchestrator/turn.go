package orchestrator

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/normanking/cortexassist/internal/audio"
	"github.com/normanking/cortexassist/internal/bus"
	"github.com/normanking/cortexassist/internal/intent"
	"github.com/normanking/cortexassist/internal/llm"
	"github.com/normanking/cortexassist/internal/stt"
	"github.com/normanking/cortexassist/internal/tools"
	"github.com/normanking/cortexassist/internal/tts"
)

const (
	fallbackGeneration = "Sorry, I'm having trouble thinking right now."
	fallbackToolError  = "Something went wrong running that."
)

// processTurn runs one utterance through the whole pipeline.
func (o *Orchestrator) processTurn(parent context.Context, utterance audio.Utterance) {
	turnCtx, cancel := context.WithCancel(parent)
	o.mu.Lock()
	o.cancelTurn = cancel
	o.mu.Unlock()
	defer func() {
		cancel()
		o.mu.Lock()
		o.cancelTurn = nil
		o.mu.Unlock()
		o.setState(StateIdle)
	}()

	o.setState(StateTranscribing)
	resp, err := o.deps.Transcriber.Transcribe(turnCtx, &stt.Request{
		Samples:    utterance.Samples,
		SampleRate: utterance.SampleRate,
	})
	if err != nil {
		// failed hearing leaves conversation state untouched
		o.logger.Warn().Err(err).Msg("Transcription failed, discarding utterance")
		return
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return
	}

	turnID := uuid.NewString()

	if intent.IsShutdownPhrase(text, o.config.ShutdownPhrase) {
		o.logger.Info().Str("text", text).Msg("Shutdown phrase heard")
		o.Shutdown()
		return
	}
	if intent.IsStop(text) {
		o.deps.Tools.ClearPending()
		o.deps.Player.Stop()
		o.publish(bus.EventTypeTurnAborted, map[string]any{"turn_id": turnID, "reason": "stop"})
		return
	}

	if _, pending := o.deps.Tools.Pending(); pending {
		if o.resolvePendingByVoice(turnCtx, turnID, text) {
			return
		}
		// anything else ends the confirmation window
		o.deps.Tools.ClearPending()
		o.publish(bus.EventTypeConfirmationResolved, map[string]any{"turn_id": turnID, "expired": true})
	}

	if !o.config.PushToTalk && o.config.WakeWord != "" {
		rest, ok := intent.StripWakeWord(text, o.config.WakeWord)
		if !ok {
			o.logger.Debug().Str("text", text).Msg("No wake word, ignoring")
			return
		}
		if strings.TrimSpace(rest) == "" {
			o.finishTurn(turnCtx, turnID, text, "Yes?")
			return
		}
		text = rest
	}

	o.publish(bus.EventTypeTurnStarted, map[string]any{"turn_id": turnID})
	o.publish(bus.EventTypeTranscript, map[string]any{"turn_id": turnID, "text": text})

	o.setState(StateRouting)
	classified := o.deps.Classifier.Classify(text)

	var reply string
	switch classified.Kind {
	case intent.KindToolCall:
		reply = o.runTool(turnCtx, turnID, classified)
	case intent.KindMemoryQuery:
		classified.Tool = "memory.recall"
		classified.Params = map[string]string{"query": classified.Query}
		reply = o.runTool(turnCtx, turnID, classified)
	default:
		reply = o.generateReply(turnCtx, classified.Text)
	}

	o.finishTurn(turnCtx, turnID, text, reply)
}

// resolvePendingByVoice consumes a confirmation or denial utterance.
// Returns true when the utterance was handled.
func (o *Orchestrator) resolvePendingByVoice(ctx context.Context, turnID, text string) bool {
	switch {
	case intent.IsConfirmation(text):
		result, err := o.deps.Tools.Confirm(ctx)
		o.publish(bus.EventTypeConfirmationResolved, map[string]any{
			"turn_id":   turnID,
			"confirmed": err == nil,
			"expired":   err != nil,
		})

		reply := result.Text
		if err != nil {
			reply = "Too late, that request expired."
		} else if reply == "" {
			if result.Success {
				reply = "Done."
			} else {
				reply = "That didn't work."
			}
		}
		o.finishTurn(ctx, turnID, text, reply)
		return true

	case intent.IsDenial(text):
		o.deps.Tools.Deny()
		o.publish(bus.EventTypeConfirmationResolved, map[string]any{"turn_id": turnID, "confirmed": false})
		o.finishTurn(ctx, turnID, text, "Okay, I won't.")
		return true
	}
	return false
}

// runTool dispatches a tool call through the security gate and maps the
// outcome to a spoken reply.
func (o *Orchestrator) runTool(ctx context.Context, turnID string, classified intent.Intent) string {
	o.setState(StateExecuting)
	o.publish(bus.EventTypeToolInvoked, map[string]any{"turn_id": turnID, "tool": classified.Tool})

	result, err := o.deps.Tools.Invoke(ctx, turnID, classified.Tool, classified.Params)
	switch {
	case errors.Is(err, tools.ErrConfirmationRequired):
		o.setState(StatePendingConfirmation)
		prompt, _ := o.deps.Tools.Pending()
		o.publish(bus.EventTypeConfirmationRequired, map[string]any{
			"turn_id": turnID,
			"tool":    classified.Tool,
			"prompt":  prompt,
		})
		return prompt
	case errors.Is(err, tools.ErrUnknownTool):
		return "I don't know how to do that yet."
	case errors.Is(err, tools.ErrForbiddenAction):
		return "I can't do that."
	case errors.Is(err, tools.ErrInvalidParameters):
		return "I didn't catch the details for that."
	case err != nil:
		o.logger.Error().Err(err).Str("tool", classified.Tool).Msg("Tool invocation failed")
		return fallbackToolError
	}

	o.publish(bus.EventTypeToolCompleted, map[string]any{
		"turn_id": turnID,
		"tool":    classified.Tool,
		"success": result.Success,
	})

	reply := result.Text
	if reply == "" {
		if result.Success {
			reply = "Done."
		} else {
			reply = "That didn't work."
		}
	}

	if o.config.RephraseResults && result.Success {
		rephrased, err := o.deps.Generator.Generate(ctx, llm.Prompt{
			UserText:   classified.Text,
			ToolResult: result.Text,
		})
		if err == nil {
			reply = rephrased
		}
	}
	return reply
}

// generateReply answers free-form chat with memory and conversation
// context. Generation failures degrade to an apology rather than
// silence.
func (o *Orchestrator) generateReply(ctx context.Context, text string) string {
	o.setState(StateGenerating)

	reply, err := o.deps.Generator.Generate(ctx, llm.Prompt{
		UserText:            text,
		MemoryContext:       o.deps.Memory.Context(ctx, text, 0),
		ConversationContext: o.deps.Conversation.PromptContext(6),
	})
	if err != nil {
		o.logger.Error().Err(err).Msg("Generation failed")
		return fallbackGeneration
	}
	return reply
}

// finishTurn records the exchange, announces the response and speaks it.
func (o *Orchestrator) finishTurn(ctx context.Context, turnID, userText, reply string) {
	if reply == "" {
		return
	}

	o.deps.Conversation.AppendExchange(userText, reply)
	if o.config.StoreExchanges {
		if err := o.deps.Memory.RememberExchange(ctx, userText, reply); err != nil {
			o.logger.Warn().Err(err).Msg("Failed to persist exchange")
		}
	}

	o.publish(bus.EventTypeResponse, map[string]any{"turn_id": turnID, "text": reply})
	o.speak(ctx, reply)
	o.publish(bus.EventTypeTurnCompleted, map[string]any{"turn_id": turnID})
}

// speak synthesizes and plays one line. Capture pauses so the assistant
// does not hear itself. Synthesis failure degrades to text-only: the
// response event has already been published.
func (o *Orchestrator) speak(ctx context.Context, text string) {
	o.setState(StateSynthesizing)
	o.deps.Source.Pause()
	defer o.deps.Source.Resume()

	resp, err := o.deps.Synthesizer.Synthesize(ctx, &tts.Request{Text: text})
	if err != nil {
		o.logger.Warn().Err(err).Msg("Synthesis failed, responding text-only")
		return
	}

	o.publish(bus.EventTypePlaybackStarted, map[string]any{"bytes": len(resp.Audio)})
	if err := o.deps.Player.Play(ctx, resp.Audio, resp.Format); err != nil && !errors.Is(err, context.Canceled) {
		o.logger.Warn().Err(err).Msg("Playback failed")
	}
	o.publish(bus.EventTypePlaybackStopped, nil)
}
