// CortexAssist - a local voice assistant pipeline.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"

	"github.com/normanking/cortexassist/internal/audio"
	"github.com/normanking/cortexassist/internal/bus"
	"github.com/normanking/cortexassist/internal/config"
	"github.com/normanking/cortexassist/internal/control"
	"github.com/normanking/cortexassist/internal/conversation"
	"github.com/normanking/cortexassist/internal/embed"
	"github.com/normanking/cortexassist/internal/intent"
	"github.com/normanking/cortexassist/internal/llm"
	"github.com/normanking/cortexassist/internal/logging"
	"github.com/normanking/cortexassist/internal/memory"
	"github.com/normanking/cortexassist/internal/orchestrator"
	"github.com/normanking/cortexassist/internal/stt"
	"github.com/normanking/cortexassist/internal/tools"
	"github.com/normanking/cortexassist/internal/tts"
)

func main() {
	var (
		configPath = pflag.String("config", "", "path to config file (default ~/.cortexassist/config.yaml)")
		logLevel   = pflag.String("log-level", "", "override log level (debug, info, warn, error)")
		pushToTalk = pflag.Bool("push-to-talk", false, "disable wake word gating")
	)
	pflag.Parse()

	if err := run(*configPath, *logLevel, *pushToTalk); err != nil {
		fmt.Fprintln(os.Stderr, "cortexassist:", err)
		os.Exit(1)
	}
}

func run(configPath, logLevel string, pushToTalk bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if pushToTalk {
		cfg.Orchestrator.PushToTalk = true
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger, err := logging.New(&logging.Config{
		LogDir:     cfg.Logging.Dir,
		Level:      logging.LogLevel(cfg.Logging.Level),
		MaxHistory: cfg.Logging.MaxHistory,
		Console:    cfg.Logging.Console,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logger.Close()
	root := logger.Zerolog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := bus.NewEventBus()

	// memory
	embedder := embed.NewClient(root, &embed.Config{
		BaseURL:   cfg.Embedding.BaseURL,
		APIKey:    cfg.Embedding.APIKey,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
		Timeout:   cfg.Embedding.Timeout,
	})
	store, err := memory.NewStore(root, memory.StoreConfig{
		Dimension:    cfg.Embedding.Dimension,
		Capacity:     cfg.Memory.Capacity,
		SnapshotPath: cfg.Memory.SnapshotPath,
	})
	if err != nil {
		return fmt.Errorf("init memory store: %w", err)
	}
	mem := memory.NewManager(root, embedder, store, memory.ManagerConfig{
		RetrievalTopK: cfg.Memory.RetrievalTopK,
		MinSimilarity: cfg.Memory.MinSimilarity,
	})
	if cfg.Memory.EvictionPolicy != "" && cfg.Memory.EvictionPolicy != "fifo" {
		root.Warn().Str("policy", cfg.Memory.EvictionPolicy).Msg("Unknown eviction policy, using fifo")
	}

	// periodic snapshots guard against crashes between writes
	scheduler := cron.New()
	if cfg.Memory.SnapshotSchedule != "" {
		_, err := scheduler.AddFunc(cfg.Memory.SnapshotSchedule, func() {
			if err := mem.Save(); err != nil {
				root.Error().Err(err).Msg("Scheduled memory snapshot failed")
				events.Publish(bus.Event{Type: bus.EventTypeSnapshotFailed, Data: map[string]any{"error": err.Error()}})
				return
			}
			events.Publish(bus.Event{Type: bus.EventTypeSnapshotSaved, Data: nil})
		})
		if err != nil {
			return fmt.Errorf("snapshot schedule %q: %w", cfg.Memory.SnapshotSchedule, err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	// tools
	registry := tools.NewRegistry(tools.RegistryConfig{
		ExecTimeout:         cfg.Tools.ExecTimeout,
		ConfirmationTimeout: cfg.Tools.ConfirmationTimeout,
	}, logger.Component("tools"))
	if err := tools.RegisterBuiltins(registry, mem, tools.BuiltinOptions{
		ExecWhitelist:  cfg.Tools.ExecWhitelist,
		TelegramToken:  cfg.Tools.TelegramToken,
		TelegramChatID: cfg.Tools.TelegramChatID,
		SearchBaseURL:  cfg.Tools.SearchEndpoint,
	}, logger.Component("tools")); err != nil {
		return fmt.Errorf("register tools: %w", err)
	}

	// speech providers
	transcriber := stt.NewServerProvider(root, &stt.ServerConfig{
		BaseURL:  cfg.STT.Endpoint,
		Model:    cfg.STT.Model,
		Language: cfg.STT.Language,
		Timeout:  cfg.STT.Timeout,
	})
	synthesizer := tts.NewOpenAIProvider(root, &tts.OpenAIConfig{
		BaseURL:      cfg.TTS.Endpoint,
		Model:        cfg.TTS.Model,
		DefaultVoice: cfg.TTS.VoiceID,
		Speed:        cfg.TTS.Speed,
		Format:       cfg.TTS.Format,
		Timeout:      cfg.TTS.Timeout,
	})
	generator := llm.NewClient(root, &llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	})

	// audio
	capture := audio.NewCapture(root, audio.SegmenterConfig{
		SampleRate:      cfg.Audio.SampleRate,
		FrameSize:       cfg.Audio.FrameSize,
		Threshold:       cfg.Audio.VADThreshold,
		SilenceDuration: cfg.Audio.VADSilenceDur,
		MaxUtterance:    cfg.Audio.MaxUtterance,
	})
	defer capture.Close()
	player := audio.NewPlayer(root, cfg.Audio.OutputVolume)

	orch := orchestrator.New(root, orchestrator.Config{
		WakeWord:        cfg.Orchestrator.WakeWord,
		PushToTalk:      cfg.Orchestrator.PushToTalk,
		WelcomeLine:     cfg.Orchestrator.WelcomeLine,
		GoodbyeLine:     cfg.Orchestrator.GoodbyeLine,
		ShutdownPhrase:  cfg.Orchestrator.ShutdownPhrase,
		StoreExchanges:  cfg.Memory.StoreExchanges,
		RephraseResults: cfg.Tools.RephraseResults,
	}, orchestrator.Deps{
		Events:       events,
		Source:       capture,
		Player:       player,
		Transcriber:  transcriber,
		Synthesizer:  synthesizer,
		Generator:    generator,
		Memory:       mem,
		Conversation: conversation.NewManager(conversation.Config{
			MaxTurns:          cfg.Conversation.MaxTurns,
			InactivityTimeout: cfg.Conversation.InactivityTimeout,
		}),
		Tools:      registry,
		Classifier: intent.NewClassifier(root, intent.DefaultRules()),
	})

	if cfg.Control.Enabled {
		server := control.NewServer(logger.Component("control"), control.Config{Addr: cfg.Control.Addr}, events, orch)
		go func() {
			if err := server.Start(ctx); err != nil {
				root.Error().Err(err).Msg("Control channel failed")
			}
		}()
	}

	// live config edits adjust what can change without a restart
	watchPath := configPath
	if watchPath == "" {
		if dir, err := config.GetConfigDir(); err == nil {
			watchPath = filepath.Join(dir, "config.yaml")
		}
	}
	watcher, err := config.NewWatcher(watchPath, root, func(updated *config.Config) {
		logger.SetLevel(logging.LogLevel(updated.Logging.Level))
		player.SetVolume(updated.Audio.OutputVolume)
	})
	if err != nil {
		root.Warn().Err(err).Msg("Config watcher unavailable")
	} else {
		defer watcher.Close()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sig
		root.Info().Str("signal", s.String()).Msg("Shutting down")
		orch.Shutdown()
	}()

	if err := orch.Run(ctx); err != nil && err != context.Canceled {
		return err
	}

	if err := mem.Save(); err != nil {
		root.Warn().Err(err).Msg("Final memory snapshot failed")
	}
	return nil
}
