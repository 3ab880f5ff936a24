package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Alex-Volkov-ru/yandex-rab/internal/notify"
	"github.com/Alex-Volkov-ru/yandex-rab/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()

	for _, driver := range []string{"", "none"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("Open(%q) = (%v, %v), want (nil, nil)", driver, st, err)
		}
	}
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("unknown driver must error")
	}
}

func TestSQLiteAppendAndRecent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.db")
	st, err := Open(Config{Driver: "sqlite", Path: path, BusyTimeout: time.Second}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	entries := []notify.HistoryEntry{
		{Stream: "status", Subject: "hw1", Text: "reviewing"},
		{Stream: "error", Text: "api down"},
		{Stream: "error", Text: "api still down", Edited: true},
	}
	for _, e := range entries {
		if err := st.AppendHistory(ctx, e); err != nil {
			t.Fatalf("AppendHistory: %v", err)
		}
	}

	got, err := st.RecentHistory(ctx, 2)
	if err != nil {
		t.Fatalf("RecentHistory: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// Newest first.
	if got[0].Text != "api still down" || !got[0].Edited {
		t.Fatalf("unexpected newest entry: %+v", got[0])
	}
	if got[1].Stream != "error" || got[1].Text != "api down" {
		t.Fatalf("unexpected entry: %+v", got[1])
	}
	if got[0].At.IsZero() {
		t.Fatal("timestamps must be set on append")
	}
}
