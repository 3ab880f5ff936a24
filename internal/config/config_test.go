package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Alex-Volkov-ru/yandex-rab/pkg/logx"
)

func testLogger() logx.Logger { return logx.Nop() }

func TestSecretsMissing(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		s    Secrets
		want []string
	}{
		{
			name: "all present",
			s:    Secrets{PracticumToken: "a", TelegramToken: "b", TelegramChatID: 1},
			want: nil,
		},
		{
			name: "all missing",
			s:    Secrets{},
			want: []string{"PRACTICUM_TOKEN", "TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID"},
		},
		{
			name: "whitespace token counts as missing",
			s:    Secrets{PracticumToken: "  ", TelegramToken: "b", TelegramChatID: 1},
			want: []string{"PRACTICUM_TOKEN"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tt.want, tt.s.Missing()); diff != "" {
				t.Fatalf("Missing mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadSecretsFromEnv(t *testing.T) {
	t.Setenv("PRACTICUM_TOKEN", "p-token")
	t.Setenv("TELEGRAM_TOKEN", "t-token")
	t.Setenv("TELEGRAM_CHAT_ID", "12345")

	s, err := ReadSecrets()
	if err != nil {
		t.Fatalf("ReadSecrets: %v", err)
	}
	if s.PracticumToken != "p-token" || s.TelegramToken != "t-token" || s.TelegramChatID != 12345 {
		t.Fatalf("unexpected secrets: %+v", s)
	}
	if missing := s.Missing(); missing != nil {
		t.Fatalf("Missing = %v, want nil", missing)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestManagerParseYAML(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "config.yaml", `
poll:
  schedule: "*/10 * * * *"
telegram:
  commands: true
  poll_timeout: 15s
logging:
  level: debug
  console: true
storage:
  driver: sqlite
  path: ./history.db
`)
	m := NewManager(path, testLogger())
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Poll.Schedule != "*/10 * * * *" {
		t.Fatalf("Schedule = %q", cfg.Poll.Schedule)
	}
	if cfg.Storage == nil || cfg.Storage.Driver != "sqlite" {
		t.Fatalf("Storage = %+v", cfg.Storage)
	}
	// Defaults survive for omitted sections.
	if cfg.Practicum.Endpoint != "" {
		t.Fatalf("Endpoint = %q, want default empty", cfg.Practicum.Endpoint)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get must return the committed config")
	}
}

func TestManagerRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "config.json", `{"poll":{"schedule":"600s","retry_max":3}}`)
	m := NewManager(path, testLogger())
	if _, err := m.Load(); err == nil {
		t.Fatal("unknown field must be rejected")
	}
}

func TestManagerEmptyPathServesDefaults(t *testing.T) {
	t.Parallel()

	m := NewManager("", testLogger())
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestDuration(t *testing.T) {
	t.Parallel()

	if d, err := Duration("x", "", 5*time.Second); err != nil || d != 5*time.Second {
		t.Fatalf("empty = (%v, %v)", d, err)
	}
	if d, err := Duration("x", "90s", 0); err != nil || d != 90*time.Second {
		t.Fatalf("parse = (%v, %v)", d, err)
	}
	if _, err := Duration("x", "soon", 0); err == nil {
		t.Fatal("invalid duration must error")
	}
	if _, err := Duration("x", "-1s", 0); err == nil {
		t.Fatal("negative duration must error")
	}
}
