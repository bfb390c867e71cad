package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"seatwatch.app/internal/logging"
)

// TelegramSender posts messages to a single Telegram chat.
type TelegramSender struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramBot authenticates against the Bot API with token.
func NewTelegramBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect bot: %w", err)
	}
	return bot, nil
}

func NewTelegramSender(bot *tgbotapi.BotAPI, chatID int64) *TelegramSender {
	return &TelegramSender{bot: bot, chatID: chatID}
}

func (s *TelegramSender) SendMessage(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.bot.Send(tgbotapi.NewMessage(s.chatID, text)); err != nil {
		return fmt.Errorf("telegram: send to chat %d: %w", s.chatID, err)
	}
	return nil
}

// CommandListener long-polls the bot for chat commands and applies them.
type CommandListener struct {
	bot      *tgbotapi.BotAPI
	chatID   int64
	commands *Commands
	sender   Sender
	logger   *slog.Logger
}

func NewCommandListener(bot *tgbotapi.BotAPI, chatID int64, commands *Commands, sender Sender, logger *slog.Logger) *CommandListener {
	return &CommandListener{
		bot:      bot,
		chatID:   chatID,
		commands: commands,
		sender:   sender,
		logger:   logging.Component(logger, "telegram_commands"),
	}
}

// Run blocks until ctx is cancelled.
func (l *CommandListener) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := l.bot.GetUpdatesChan(u)
	defer l.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			logging.LogOperation(l.logger, "stopping_command_listener")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			l.handle(ctx, update.Message.Chat.ID, update.Message.Text)
		}
	}
}

func (l *CommandListener) handle(ctx context.Context, chatID int64, text string) {
	if chatID != l.chatID {
		l.logger.Warn("ignoring command from unknown chat", slog.Int64("chat_id", chatID))
		return
	}

	reply, ok := l.commands.Handle(text)
	if !ok {
		return
	}
	logging.LogOperation(l.logger, "command_received", slog.String("text", text))

	if err := l.sender.SendMessage(ctx, reply); err != nil {
		logging.LogError(l.logger, "failed to reply to command", err, slog.String("text", text))
	}
}
