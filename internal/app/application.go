package app

import (
	"log/slog"
	"time"

	"seatwatch.app/internal/notify"
	"seatwatch.app/internal/schedule"
	"seatwatch.app/internal/workbook"
)

// Application holds the dependencies for our HTTP handlers, helpers,
// and middleware.
type Application struct {
	Config    Config
	Logger    *slog.Logger
	Workbook  *workbook.Store
	Gate      *notify.Gate
	Scheduler *schedule.Manager
	StartedAt time.Time
}

// Config holds the settings of the status API.
type Config struct {
	Port int
	// ApiKeys guard the endpoints that change state. With no keys configured
	// those endpoints reject every request.
	ApiKeys   []string
	RateLimit float64
	RateBurst int
}
