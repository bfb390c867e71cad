package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"seatwatch.app/internal/aggregate"
	"seatwatch.app/internal/app"
	"seatwatch.app/internal/config"
	"seatwatch.app/internal/logging"
	"seatwatch.app/internal/notify"
	"seatwatch.app/internal/restapi"
	"seatwatch.app/internal/schedule"
	"seatwatch.app/internal/uz"
	"seatwatch.app/internal/workbook"
)

const shutdownTimeout = 10 * time.Second

type flags struct {
	configPath string
	envFile    string
	port       int
	logLevel   string
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "config.yml", "Path to the YAML configuration")
	flag.StringVar(&f.envFile, "env-file", ".env", "Optional .env file loaded before the configuration")
	flag.IntVar(&f.port, "port", 0, "Status API port (overrides the configuration)")
	flag.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides the configuration)")
	flag.Parse()

	if err := run(f); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(f flags) (err error) {
	if err := config.LoadEnvFile(f.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if f.port != 0 {
		cfg.HTTP.Port = f.port
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.NewStructuredLogger(os.Stdout, level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := workbook.Open(workbook.NewXLSXPersister(cfg.WorkbookPath), logger)
	defer logging.HandleDeferredError(&err, func() error {
		return store.Flush(context.Background())
	}, logger, "final_workbook_flush")

	gate := notify.NewGate(true)
	var background sync.WaitGroup
	defer background.Wait()
	backgroundCtx, cancelBackground := context.WithCancel(ctx)
	defer cancelBackground()

	var sender notify.Sender = notify.LogSender{Logger: logging.Component(logger, "notifier")}
	if cfg.Telegram.Enabled() {
		bot, err := notify.NewTelegramBot(cfg.Telegram.Token)
		if err != nil {
			return err
		}
		sender = notify.NewTelegramSender(bot, cfg.Telegram.ChatID)
		listener := notify.NewCommandListener(bot, cfg.Telegram.ChatID, notify.NewCommands(gate), sender, logger)

		background.Add(1)
		go func() {
			defer background.Done()
			listener.Run(backgroundCtx)
		}()
	} else {
		logger.Warn("no telegram token configured, notifications go to the log")
	}

	notifier := notify.NewNotifier(gate, sender, logger)
	aggregator := aggregate.New(cfg.Aggregate(), notifier, gate, time.Now, logger)
	client := uz.NewClient(cfg.UZ(), logger)
	poller := schedule.NewPoller(client, aggregator, store, logger)
	manager := schedule.NewManager(schedule.RealClock(), poller, store, logger)

	jobs, err := cfg.PollJobs()
	if err != nil {
		return err
	}
	if err := manager.Start(ctx, jobs, cfg.RollingJobs()); err != nil {
		return err
	}
	defer manager.Shutdown()

	api := restapi.NewRestAPI(&app.Application{
		Config: app.Config{
			Port:      cfg.HTTP.Port,
			ApiKeys:   cfg.HTTP.APIKeys,
			RateLimit: cfg.HTTP.RequestsPerSecond,
			RateBurst: cfg.HTTP.Burst,
		},
		Logger:    logger,
		Workbook:  store,
		Gate:      gate,
		Scheduler: manager,
		StartedAt: time.Now(),
	})
	defer api.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      api.Handler(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "workbook", cfg.WorkbookPath)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			stop()
			return fmt.Errorf("status api: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.LogError(logger, "status api did not shut down cleanly", err)
	}
	return nil
}
