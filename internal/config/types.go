package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Secrets are the three required startup values. They come from the
// environment (or a .env file loaded by the entrypoint), never from the
// tuning file, so the config file stays safe to commit.
type Secrets struct {
	PracticumToken string `env:"PRACTICUM_TOKEN"`
	TelegramToken  string `env:"TELEGRAM_TOKEN"`
	TelegramChatID int64  `env:"TELEGRAM_CHAT_ID"`
}

func ReadSecrets() (Secrets, error) {
	return env.ParseAs[Secrets]()
}

// Missing lists the names of unset required values. A non-empty result is a
// startup-blocking condition: the loop must not start without all three.
func (s Secrets) Missing() []string {
	var out []string
	if strings.TrimSpace(s.PracticumToken) == "" {
		out = append(out, "PRACTICUM_TOKEN")
	}
	if strings.TrimSpace(s.TelegramToken) == "" {
		out = append(out, "TELEGRAM_TOKEN")
	}
	if s.TelegramChatID == 0 {
		out = append(out, "TELEGRAM_CHAT_ID")
	}
	return out
}

// Config is the optional tuning file (YAML or JSON). Everything has a
// default; the bot runs with no file at all.
type Config struct {
	Practicum PracticumConfig `json:"practicum"`
	Telegram  TelegramConfig  `json:"telegram"`
	Poll      PollConfig      `json:"poll"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   *StorageConfig  `json:"storage,omitempty"`
}

type PracticumConfig struct {
	Endpoint string `json:"endpoint,omitempty"`
	// RequestTimeout is a Go duration string (e.g. "10s").
	RequestTimeout string `json:"request_timeout,omitempty"`
}

type TelegramConfig struct {
	// PollTimeout is a Go duration string for the long-poll listener.
	PollTimeout string `json:"poll_timeout,omitempty"`
	// Commands enables the interactive command channel (dual-activity
	// shape). With false the bot runs only the scheduler loop.
	Commands bool `json:"commands"`
}

type PollConfig struct {
	// Schedule is a poll schedule spec: a Go duration ("600s"), HH:MM, or a
	// cron expression ("*/10 * * * *", "@hourly").
	Schedule string `json:"schedule,omitempty"`
	// ReportWindow is how far back an interactive /status check looks.
	ReportWindow string `json:"report_window,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level,omitempty"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// StorageConfig controls the optional delivered-notification history.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./homework_history.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

// Default returns the config used when no tuning file is given.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{Commands: true},
		Poll:     PollConfig{Schedule: "600s"},
		Logging:  LoggingConfig{Level: "info", Console: true},
	}
}

// Duration parses a duration field, returning def for the empty string.
// The path is only for error messages.
func Duration(path, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}
