package notify

import (
	"context"
	"log/slog"
)

// LogSender writes messages to the log instead of a chat. Used when no bot
// token is configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) SendMessage(_ context.Context, text string) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification", slog.String("text", text))
	return nil
}
