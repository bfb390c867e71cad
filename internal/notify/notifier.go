// Package notify delivers seat alerts for priority trains and handles the
// chat commands that switch them on and off.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"seatwatch.app/internal/logging"
	"seatwatch.app/internal/models"
)

// Sender delivers one text message to the preconfigured channel.
type Sender interface {
	SendMessage(ctx context.Context, text string) error
}

// Notifier sends one alert per qualifying train.
type Notifier struct {
	gate   *Gate
	sender Sender
	logger *slog.Logger
}

func NewNotifier(gate *Gate, sender Sender, logger *slog.Logger) *Notifier {
	return &Notifier{
		gate:   gate,
		sender: sender,
		logger: logging.Component(logger, "notifier"),
	}
}

// Notify sends an alert for train unless the gate is closed at call time.
// Delivery failures are logged and dropped.
func (n *Notifier) Notify(ctx context.Context, train models.Train, seats int) {
	if !n.gate.Enabled() {
		n.logger.Debug("notification suppressed", slog.String("train", train.Number))
		return
	}

	text := FormatMessage(train, seats)
	if err := n.sender.SendMessage(ctx, text); err != nil {
		logging.LogError(n.logger, "failed to send notification", err,
			slog.String("train", train.Number),
			slog.Int("seats", seats))
		return
	}

	logging.LogOperation(n.logger, "notification_sent",
		slog.String("train", train.Number),
		slog.Int("seats", seats))
}

// FormatMessage renders the alert text for a train.
func FormatMessage(train models.Train, seats int) string {
	return fmt.Sprintf("%d seats at %s train %s - %s %s %s - %s",
		seats,
		train.Number,
		train.From.StationTrain,
		train.To.StationTrain,
		train.From.SourceDate,
		train.From.Time,
		train.To.Time)
}
