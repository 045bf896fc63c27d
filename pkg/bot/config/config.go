// Package config loads the bot's configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is the full configuration surface. Everything is env-driven with
// an ALPHA_ prefix; see LoadFromEnv for defaults.
type Config struct {
	// Routing policy.
	OperatorID        string
	WakeWord          string
	ApprovalThreshold int

	// Transport bridge.
	BridgeURL string

	// Upstream AI services (one OpenAI-compatible base for both).
	APIBaseURL string
	APIKey     string
	ChatModel  string
	STTModel   string

	// State backends. When StateDBPath is set, engagement, permissions and
	// escalations all use the SQLite backend; otherwise permissions live in
	// PermissionsFile and the rest stays in memory.
	PermissionsFile string
	StateDBPath     string

	// Audio normalization.
	TempDir    string
	FFmpegPath string

	// Logging.
	LogLevel  string
	LogFormat string
	LogDir    string
}

// LoadFromEnv reads and validates the configuration.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		OperatorID:        strings.TrimSpace(os.Getenv("ALPHA_OPERATOR_ID")),
		WakeWord:          envOr("ALPHA_WAKE_WORD", "alpha"),
		ApprovalThreshold: envIntOr("ALPHA_APPROVAL_THRESHOLD", 3),
		BridgeURL:         strings.TrimSpace(os.Getenv("ALPHA_BRIDGE_URL")),
		APIBaseURL:        envOr("ALPHA_API_BASE_URL", "https://free.churchless.tech/v1"),
		APIKey:            strings.TrimSpace(os.Getenv("ALPHA_API_KEY")),
		ChatModel:         envOr("ALPHA_CHAT_MODEL", "mistral-7b"),
		STTModel:          envOr("ALPHA_STT_MODEL", "whisper-1"),
		PermissionsFile:   envOr("ALPHA_PERMISSIONS_FILE", "permissions.json"),
		StateDBPath:       strings.TrimSpace(os.Getenv("ALPHA_STATE_DB")),
		TempDir:           envOr("ALPHA_TEMP_DIR", "temp"),
		FFmpegPath:        envOr("ALPHA_FFMPEG_PATH", "ffmpeg"),
		LogLevel:          envOr("ALPHA_LOG_LEVEL", "info"),
		LogFormat:         envOr("ALPHA_LOG_FORMAT", "json"),
		LogDir:            strings.TrimSpace(os.Getenv("ALPHA_LOG_DIR")),
	}

	if cfg.OperatorID == "" {
		return Config{}, fmt.Errorf("ALPHA_OPERATOR_ID must be set")
	}
	if cfg.BridgeURL == "" {
		return Config{}, fmt.Errorf("ALPHA_BRIDGE_URL must be set")
	}
	if cfg.WakeWord == "" {
		return Config{}, fmt.Errorf("ALPHA_WAKE_WORD must not be empty")
	}
	if cfg.ApprovalThreshold <= 0 {
		return Config{}, fmt.Errorf("ALPHA_APPROVAL_THRESHOLD must be > 0")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("ALPHA_LOG_LEVEL must be one of debug|info|warn|error")
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return Config{}, fmt.Errorf("ALPHA_LOG_FORMAT must be one of json|text")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
