package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "skein.log")

	logger, closer, err := New("info", file)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	logger.Info().Str("cmp", "test").Msg("hello")
	logger.Debug().Msg("filtered out")
	closer()

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line (debug filtered at info level), got %d", len(lines))
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("failed to parse log: %v", err)
	}
	if entry["message"] != "hello" {
		t.Errorf("message = %q, want %q", entry["message"], "hello")
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected timestamp field")
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, _, err := New("shouting", ""); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNew_EmptyFileDiscards(t *testing.T) {
	logger, closer, err := New("debug", "")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer closer()

	// Must not panic or write anywhere visible.
	logger.Info().Msg("into the void")
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)

	logger := Component("graph")
	logger.Info().Msg("test message")

	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log: %v", err)
	}

	if logEntry["cmp"] != "graph" {
		t.Errorf("Component() cmp = %q, want %q", logEntry["cmp"], "graph")
	}
	if logEntry["message"] != "test message" {
		t.Errorf("message = %q, want %q", logEntry["message"], "test message")
	}
}
