package bootstrap

import (
	"testing"
	"time"

	"github.com/eleven-am/streamsight/internal/inference"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"SERVER_ADDR", "MAX_RETRIES", "BACKOFF_UNIT", "TARGET_FPS", "SESSION_MEDIA_CACHE", "ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	if cfg.ServerAddr != ":9000" {
		t.Errorf("expected :9000, got %s", cfg.ServerAddr)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("expected 3 retries, got %d", cfg.MaxRetries)
	}
	if cfg.BackoffUnit != time.Second {
		t.Errorf("expected 1s backoff unit, got %v", cfg.BackoffUnit)
	}
	if cfg.TargetFPS != 1 {
		t.Errorf("expected target fps 1, got %v", cfg.TargetFPS)
	}
	if !cfg.SessionMediaCache {
		t.Error("expected session media cache enabled by default")
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("expected 2 default origins, got %v", cfg.AllowedOrigins)
	}
	if cfg.MaxUploadBytes() != 100<<20 {
		t.Errorf("expected 100MB upload cap, got %d", cfg.MaxUploadBytes())
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("BACKOFF_UNIT", "250ms")
	t.Setenv("TEMPERATURE", "0.2")
	t.Setenv("SESSION_MEDIA_CACHE", "false")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("CACHE_SIZE_LIMIT", "not-a-number")

	cfg := LoadConfig()

	if cfg.MaxRetries != 5 {
		t.Errorf("expected 5 retries, got %d", cfg.MaxRetries)
	}
	if cfg.BackoffUnit != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", cfg.BackoffUnit)
	}
	if cfg.Temperature != 0.2 {
		t.Errorf("expected temperature 0.2, got %v", cfg.Temperature)
	}
	if cfg.SessionMediaCache {
		t.Error("expected session media cache disabled")
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if cfg.CacheSizeLimit != 100 {
		t.Errorf("expected invalid value to fall back to 100, got %d", cfg.CacheSizeLimit)
	}
}

func TestLoadConfig_SystemPrompt(t *testing.T) {
	t.Setenv("SYSTEM_PROMPT", "")
	if got := LoadConfig().SystemPrompt; got != "" {
		t.Errorf("expected explicit empty prompt to disable the instruction, got %q", got)
	}
}

func TestGetEnvAllowEmpty_Unset(t *testing.T) {
	if got := getEnvAllowEmpty("STREAMSIGHT_UNSET_FOR_TEST", inference.DefaultSystemPrompt); got != inference.DefaultSystemPrompt {
		t.Errorf("expected default prompt, got %q", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]string{"debug": "DEBUG", "warn": "WARN", "error": "ERROR", "": "INFO", "bogus": "INFO"}
	for in, want := range tests {
		if got := parseLogLevel(in).String(); got != want {
			t.Errorf("parseLogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
