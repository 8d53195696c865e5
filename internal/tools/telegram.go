package tools

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramSender is the slice of the bot API the tool needs; satisfied by
// *tgbotapi.BotAPI and by test fakes.
type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramTool pushes a notification to a fixed chat.
type TelegramTool struct {
	bot    telegramSender
	chatID int64
}

// NewTelegramTool connects a bot with the given token. The chat id is
// fixed at wiring time; the user only supplies the message.
func NewTelegramTool(token string, chatID int64) (*TelegramTool, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	return &TelegramTool{bot: bot, chatID: chatID}, nil
}

// Descriptor returns the tool registration record.
func (t *TelegramTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "telegram.alert",
		Description: "Send a notification message over Telegram",
		Tier:        TierModerate,
		Params: []Param{
			{Name: "message", Type: "string", Description: "notification text", Required: true},
		},
	}
}

// Execute implements Handler.
func (t *TelegramTool) Execute(_ context.Context, params map[string]string) Result {
	msg := tgbotapi.NewMessage(t.chatID, params["message"])
	if _, err := t.bot.Send(msg); err != nil {
		return Result{Success: false, Err: err.Error(), Text: "I couldn't send the notification."}
	}
	return Result{Success: true, Text: "Notification sent."}
}
