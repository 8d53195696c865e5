package tools

import (
	"github.com/rs/zerolog"

	"github.com/normanking/cortexassist/internal/memory"
)

// BuiltinOptions configures the stock tool set.
type BuiltinOptions struct {
	// ExecWhitelist lists the commands system.exec may run.
	ExecWhitelist []string
	// TelegramToken enables the telegram.alert tool when non-empty.
	TelegramToken  string
	TelegramChatID int64
	// VolumeStep is the percent change per volume invocation.
	VolumeStep int
	// SearchBaseURL overrides the web search endpoint, empty uses the
	// public DuckDuckGo API.
	SearchBaseURL string
}

type registration struct {
	desc Descriptor
	h    Handler
}

// RegisterBuiltins wires the stock tools into the registry. The telegram
// tool is skipped when no token is configured; its absence surfaces as
// an unknown tool, not a broken one.
func RegisterBuiltins(reg *Registry, mem *memory.Manager, opts BuiltinOptions, logger zerolog.Logger) error {
	timeTool := &TimeTool{}
	sysTool := &SystemInfoTool{}
	calcTool := &CalculatorTool{}
	volUp := &VolumeTool{Direction: "up", Step: opts.VolumeStep}
	volDown := &VolumeTool{Direction: "down", Step: opts.VolumeStep}
	openTool := &OpenAppTool{}
	execTool := &ExecTool{Whitelist: opts.ExecWhitelist}
	searchTool := &WebSearchTool{BaseURL: opts.SearchBaseURL}

	regs := []registration{
		{timeTool.Descriptor(), timeTool},
		{sysTool.Descriptor(), sysTool},
		{calcTool.Descriptor(), calcTool},
		{volUp.Descriptor(), volUp},
		{volDown.Descriptor(), volDown},
		{openTool.Descriptor(), openTool},
		{execTool.Descriptor(), execTool},
		{searchTool.Descriptor(), searchTool},
		{ShutdownDescriptor(), nil},
	}

	if mem != nil {
		remember := &RememberTool{Memory: mem}
		recall := &RecallTool{Memory: mem}
		stats := &MemoryStatsTool{Memory: mem}
		regs = append(regs,
			registration{remember.Descriptor(), remember},
			registration{recall.Descriptor(), recall},
			registration{stats.Descriptor(), stats},
		)
	}

	if opts.TelegramToken != "" {
		tg, err := NewTelegramTool(opts.TelegramToken, opts.TelegramChatID)
		if err != nil {
			logger.Warn().Err(err).Msg("Telegram tool unavailable")
		} else {
			regs = append(regs, registration{tg.Descriptor(), tg})
		}
	}

	for _, r := range regs {
		if err := reg.Register(r.desc, r.h); err != nil {
			return err
		}
	}

	logger.Info().Int("tools", len(reg.List())).Msg("Builtin tools registered")
	return nil
}
