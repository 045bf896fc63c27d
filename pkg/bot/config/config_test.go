package config

import "testing"

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ALPHA_OPERATOR_ID", "operator@test")
	t.Setenv("ALPHA_BRIDGE_URL", "ws://localhost:9000/ws")
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.WakeWord != "alpha" {
		t.Fatalf("WakeWord = %q, want alpha", cfg.WakeWord)
	}
	if cfg.ApprovalThreshold != 3 {
		t.Fatalf("ApprovalThreshold = %d, want 3", cfg.ApprovalThreshold)
	}
	if cfg.ChatModel != "mistral-7b" || cfg.STTModel != "whisper-1" {
		t.Fatalf("models = %q/%q", cfg.ChatModel, cfg.STTModel)
	}
	if cfg.PermissionsFile != "permissions.json" {
		t.Fatalf("PermissionsFile = %q", cfg.PermissionsFile)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Fatalf("log config = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ALPHA_WAKE_WORD", "Jarvis")
	t.Setenv("ALPHA_APPROVAL_THRESHOLD", "5")
	t.Setenv("ALPHA_STATE_DB", "/var/lib/alpha/state.db")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.WakeWord != "Jarvis" {
		t.Fatalf("WakeWord = %q, want Jarvis", cfg.WakeWord)
	}
	if cfg.ApprovalThreshold != 5 {
		t.Fatalf("ApprovalThreshold = %d, want 5", cfg.ApprovalThreshold)
	}
	if cfg.StateDBPath != "/var/lib/alpha/state.db" {
		t.Fatalf("StateDBPath = %q", cfg.StateDBPath)
	}
}

func TestLoadFromEnv_RequiredKeys(t *testing.T) {
	t.Setenv("ALPHA_OPERATOR_ID", "")
	t.Setenv("ALPHA_BRIDGE_URL", "ws://localhost:9000/ws")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("LoadFromEnv() error = nil, want missing operator error")
	}

	t.Setenv("ALPHA_OPERATOR_ID", "operator@test")
	t.Setenv("ALPHA_BRIDGE_URL", "")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("LoadFromEnv() error = nil, want missing bridge error")
	}
}

func TestLoadFromEnv_Validation(t *testing.T) {
	setRequired(t)

	t.Setenv("ALPHA_APPROVAL_THRESHOLD", "0")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("LoadFromEnv() error = nil, want threshold error")
	}
	t.Setenv("ALPHA_APPROVAL_THRESHOLD", "3")

	t.Setenv("ALPHA_LOG_LEVEL", "verbose")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("LoadFromEnv() error = nil, want log level error")
	}
	t.Setenv("ALPHA_LOG_LEVEL", "info")

	t.Setenv("ALPHA_LOG_FORMAT", "xml")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("LoadFromEnv() error = nil, want log format error")
	}
}

func TestLoadFromEnv_BadIntFallsBackToDefault(t *testing.T) {
	setRequired(t)
	t.Setenv("ALPHA_APPROVAL_THRESHOLD", "lots")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.ApprovalThreshold != 3 {
		t.Fatalf("ApprovalThreshold = %d, want default 3", cfg.ApprovalThreshold)
	}
}
