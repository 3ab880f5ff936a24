// Package storage keeps a history of delivered notifications for operator
// inspection. It is strictly observational: dedup state is in-memory only
// and is never read back from here.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Alex-Volkov-ru/yandex-rab/internal/notify"
	"github.com/Alex-Volkov-ru/yandex-rab/pkg/logx"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures the history store.
//
// Driver values:
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", history is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Store persists notification history. It satisfies notify.History.
type Store interface {
	AppendHistory(ctx context.Context, e notify.HistoryEntry) error
	RecentHistory(ctx context.Context, limit int) ([]notify.HistoryEntry, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if history is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
