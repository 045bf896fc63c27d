package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_WritesToRotatingFile(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{Level: "info", Format: "json", Dir: dir})

	logger.Info("bridge connected", "url", "ws://localhost")
	logger.Debug("this is below the configured level")

	data, err := os.ReadFile(filepath.Join(dir, "alpha.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "bridge connected") {
		t.Fatalf("log output = %q, want info record", out)
	}
	if strings.Contains(out, "below the configured level") {
		t.Fatalf("log output contains filtered debug record: %q", out)
	}
}
