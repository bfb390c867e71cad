// Package config loads the seatwatch configuration from a YAML file, .env
// files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"seatwatch.app/internal/aggregate"
	"seatwatch.app/internal/models"
	"seatwatch.app/internal/schedule"
	"seatwatch.app/internal/uz"
)

// ErrNoJobs is returned when the configuration defines nothing to poll.
var ErrNoJobs = errors.New("no poll jobs configured")

const (
	DefaultArrivalStation = "2218000"
	DefaultCutoff         = "06:00"
	DefaultWorkbookPath   = "seatwatch.xlsx"
	DefaultPort           = 4000
	DefaultLogLevel       = "info"
)

// Environment variables that override file settings.
const (
	EnvTelegramToken  = "SEATWATCH_TELEGRAM_TOKEN"
	EnvTelegramChatID = "SEATWATCH_TELEGRAM_CHAT_ID"
	EnvWorkbookPath   = "SEATWATCH_WORKBOOK_PATH"
	EnvAPIKeys        = "SEATWATCH_API_KEYS"
)

type Config struct {
	LogLevel       string          `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	SearchURL      string          `yaml:"search_url" validate:"omitempty,url"`
	ArrivalStation string          `yaml:"arrival_station" validate:"omitempty,numeric"`
	Cutoff         string          `yaml:"cutoff"`
	WorkbookPath   string          `yaml:"workbook_path" validate:"required"`
	Fetch          FetchConfig     `yaml:"fetch"`
	Telegram       TelegramConfig  `yaml:"telegram"`
	HTTP           HTTPConfig      `yaml:"http"`
	Jobs           []JobConfig     `yaml:"jobs" validate:"dive"`
	Rolling        []RollingConfig `yaml:"rolling" validate:"dive"`
}

type FetchConfig struct {
	Timeout           time.Duration `yaml:"timeout" validate:"gte=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
	UserAgent         string        `yaml:"user_agent"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id" validate:"required_with=Token"`
}

// Enabled reports whether a bot is configured.
func (t TelegramConfig) Enabled() bool {
	return t.Token != ""
}

type HTTPConfig struct {
	Port              int      `yaml:"port" validate:"gte=0,lte=65535"`
	APIKeys           []string `yaml:"api_keys"`
	RequestsPerSecond float64  `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int      `yaml:"burst" validate:"gte=0"`
}

type JobConfig struct {
	Name      string        `yaml:"name" validate:"required"`
	From      string        `yaml:"from" validate:"required,numeric"`
	To        string        `yaml:"to" validate:"required,numeric,nefield=From"`
	StartDate string        `yaml:"start_date" validate:"required,datetime=2006-01-02"`
	DaySpan   int           `yaml:"day_span" validate:"gte=0,lte=60"`
	BothWays  bool          `yaml:"both_ways"`
	Interval  time.Duration `yaml:"interval" validate:"gte=0"`
	Cron      string        `yaml:"cron"`
	Priority  bool          `yaml:"priority"`
}

type RollingConfig struct {
	Name        string        `yaml:"name" validate:"required"`
	From        string        `yaml:"from" validate:"required,numeric"`
	To          string        `yaml:"to" validate:"required,numeric,nefield=From"`
	Interval    time.Duration `yaml:"interval" validate:"required_without=Cron,gte=0"`
	Cron        string        `yaml:"cron"`
	RerollEvery time.Duration `yaml:"reroll_every" validate:"gte=0"`
	DaySpan     int           `yaml:"day_span" validate:"gte=0,lte=60"`
	Priority    bool          `yaml:"priority"`
}

// LoadEnvFile loads a .env file into the process environment. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load reads, completes and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies environment overrides and defaults, then
// validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if token := os.Getenv(EnvTelegramToken); token != "" {
		c.Telegram.Token = token
	}
	if raw := os.Getenv(EnvTelegramChatID); raw != "" {
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvTelegramChatID, err)
		}
		c.Telegram.ChatID = chatID
	}
	if path := os.Getenv(EnvWorkbookPath); path != "" {
		c.WorkbookPath = path
	}
	if raw := os.Getenv(EnvAPIKeys); raw != "" {
		c.HTTP.APIKeys = nil
		for _, key := range strings.Split(raw, ",") {
			if key = strings.TrimSpace(key); key != "" {
				c.HTTP.APIKeys = append(c.HTTP.APIKeys, key)
			}
		}
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.SearchURL == "" {
		c.SearchURL = uz.DefaultSearchURL
	}
	if c.ArrivalStation == "" {
		c.ArrivalStation = DefaultArrivalStation
	}
	if c.Cutoff == "" {
		c.Cutoff = DefaultCutoff
	}
	if c.WorkbookPath == "" {
		c.WorkbookPath = DefaultWorkbookPath
	}
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = uz.DefaultTimeout
	}
	if c.Fetch.RequestsPerSecond == 0 {
		c.Fetch.RequestsPerSecond = uz.DefaultRequestsPerSecond
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultPort
	}
	for i := range c.Rolling {
		if c.Rolling[i].RerollEvery == 0 {
			c.Rolling[i].RerollEvery = schedule.DefaultRerollEvery
		}
		if c.Rolling[i].DaySpan == 0 {
			c.Rolling[i].DaySpan = schedule.DefaultRollingDaySpan
		}
	}
}

// Validate checks field constraints, then the schedules, then that at least
// one job exists.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := aggregate.ParseClock(c.Cutoff); err != nil {
		return fmt.Errorf("invalid config: cutoff: %w", err)
	}

	jobs, err := c.PollJobs()
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if _, err := schedule.Cadence(job); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	for _, r := range c.RollingJobs() {
		if _, err := schedule.Cadence(r.PollJob(time.Now())); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}

	if len(c.Jobs) == 0 && len(c.Rolling) == 0 {
		return ErrNoJobs
	}
	return nil
}

// CutoffDuration is the cutoff as an offset from midnight.
func (c *Config) CutoffDuration() time.Duration {
	offset, err := aggregate.ParseClock(c.Cutoff)
	if err != nil {
		return aggregate.DefaultCutoff
	}
	return offset
}

// PollJobs converts the fixed jobs. Start dates are local midnights.
func (c *Config) PollJobs() ([]models.PollJob, error) {
	jobs := make([]models.PollJob, 0, len(c.Jobs))
	for _, j := range c.Jobs {
		start, err := time.ParseInLocation(models.DateLayout, j.StartDate, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid config: start date of job %s: %w", j.Name, err)
		}
		jobs = append(jobs, models.PollJob{
			Name:      j.Name,
			From:      j.From,
			To:        j.To,
			StartDate: start,
			DaySpan:   j.DaySpan,
			BothWays:  j.BothWays,
			Interval:  j.Interval,
			Cron:      j.Cron,
			Priority:  j.Priority,
		})
	}
	return jobs, nil
}

func (c *Config) RollingJobs() []schedule.RollingJob {
	jobs := make([]schedule.RollingJob, 0, len(c.Rolling))
	for _, r := range c.Rolling {
		jobs = append(jobs, schedule.RollingJob{
			Name:        r.Name,
			From:        r.From,
			To:          r.To,
			Interval:    r.Interval,
			Cron:        r.Cron,
			RerollEvery: r.RerollEvery,
			DaySpan:     r.DaySpan,
			Priority:    r.Priority,
		})
	}
	return jobs
}

// UZ is the booking client configuration.
func (c *Config) UZ() uz.Config {
	return uz.Config{
		SearchURL:         c.SearchURL,
		Timeout:           c.Fetch.Timeout,
		RequestsPerSecond: c.Fetch.RequestsPerSecond,
		UserAgent:         c.Fetch.UserAgent,
	}
}

func (c *Config) Aggregate() aggregate.Config {
	return aggregate.Config{
		ArrivalStation: c.ArrivalStation,
		Cutoff:         c.CutoffDuration(),
	}
}
