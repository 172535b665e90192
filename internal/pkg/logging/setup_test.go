package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Vodeneev/smartbet/internal/pkg/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{" warning ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v, want %v (err %v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestSetup_StdoutAndFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "scraper.log")
	var stdout bytes.Buffer
	logger, closer, err := setup(&config.LoggingConfig{Level: "warn", Format: "text", File: path}, "scraper", &stdout)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	logger.Info("dropped below level")
	slog.Warn("Challenge did not clear", "source", "FootyStats")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out := stdout.String()
	if strings.Contains(out, "dropped below level") {
		t.Errorf("info record written at warn level: %s", out)
	}
	if !strings.Contains(out, "service=scraper") || !strings.Contains(out, "source=FootyStats") {
		t.Errorf("stdout = %s", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &rec); err != nil {
		t.Fatalf("file line is not JSON: %v (%s)", err, data)
	}
	if rec["msg"] != "Challenge did not clear" || rec["service"] != "scraper" {
		t.Errorf("file record = %v", rec)
	}
}

func TestSetup_Errors(t *testing.T) {
	if _, _, err := setup(&config.LoggingConfig{Format: "xml"}, "scraper", &bytes.Buffer{}); err == nil {
		t.Error("unknown format should fail")
	}
	if _, _, err := setup(&config.LoggingConfig{Level: "loud"}, "scraper", &bytes.Buffer{}); err == nil {
		t.Error("unknown level should fail")
	}
}
