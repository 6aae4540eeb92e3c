package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Provider.APIBase != "https://openrouter.ai/api/v1" {
		t.Errorf("unexpected api base: %s", cfg.Provider.APIBase)
	}
	if cfg.Provider.Models.Standard != "glm-4.7" {
		t.Errorf("unexpected standard model: %s", cfg.Provider.Models.Standard)
	}
	if cfg.Agent.DefaultPlan != "free" {
		t.Errorf("unexpected default plan: %s", cfg.Agent.DefaultPlan)
	}
	if cfg.Agent.MaxTokens != 2048 || cfg.Agent.Temperature != 0.7 {
		t.Errorf("unexpected agent generation defaults: %d / %v", cfg.Agent.MaxTokens, cfg.Agent.Temperature)
	}
	if cfg.Gateway.Port != 8808 {
		t.Errorf("unexpected gateway port: %d", cfg.Gateway.Port)
	}
	if !cfg.Gateway.Maintenance {
		t.Error("maintenance should default on")
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Store.Path != "~/.amicooked/store.db" {
		t.Errorf("unexpected store path: %s", cfg.Store.Path)
	}
}

func TestLoadConfigFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
  "provider": {"api_key": "sk-file", "models": {"basic": "tiny-model"}},
  "channels": {"telegram": {"enabled": true, "token": "tg-token", "allow_from": ["42|alice"]}}
}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Provider.APIKey != "sk-file" {
		t.Errorf("api key not loaded: %s", cfg.Provider.APIKey)
	}
	if cfg.Provider.Models.Basic != "tiny-model" {
		t.Errorf("basic model not loaded: %s", cfg.Provider.Models.Basic)
	}
	// Untouched fields keep defaults.
	if cfg.Provider.Models.Standard != "glm-4.7" {
		t.Errorf("standard model should keep default: %s", cfg.Provider.Models.Standard)
	}
	if !cfg.Channels.Telegram.Enabled || cfg.Channels.Telegram.Token != "tg-token" {
		t.Errorf("telegram config not loaded: %+v", cfg.Channels.Telegram)
	}
	if len(cfg.Channels.Telegram.AllowFrom) != 1 || cfg.Channels.Telegram.AllowFrom[0] != "42|alice" {
		t.Errorf("allow list not loaded: %v", cfg.Channels.Telegram.AllowFrom)
	}
}

func TestLoadConfigEnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"provider": {"api_key": "sk-file"}}`), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("AMICOOKED_PROVIDER_API_KEY", "sk-env")
	t.Setenv("AMICOOKED_GATEWAY_PORT", "9911")
	t.Setenv("AMICOOKED_CHANNELS_DISCORD_ENABLED", "true")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Provider.APIKey != "sk-env" {
		t.Errorf("env should override file: %s", cfg.Provider.APIKey)
	}
	if cfg.Gateway.Port != 9911 {
		t.Errorf("env port not applied: %d", cfg.Gateway.Port)
	}
	if !cfg.Channels.Discord.Enabled {
		t.Error("env discord enable not applied")
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := DefaultConfig()
	cfg.Provider.APIKey = "sk-saved"
	cfg.Gateway.Port = 7777

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Provider.APIKey != "sk-saved" || loaded.Gateway.Port != 7777 {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestExtractModelNameFallback(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.ExtractModelName(); got != "glm-4.5-air" {
		t.Errorf("expected basic fallback, got %s", got)
	}

	cfg.Memory.ExtractModel = "tiny-extract"
	if got := cfg.ExtractModelName(); got != "tiny-extract" {
		t.Errorf("expected explicit model, got %s", got)
	}
}

func TestGatewayConfigHelpers(t *testing.T) {
	g := GatewayConfig{Host: "0.0.0.0", Port: 8080, IdleTimeoutMinutes: 15, SweepIntervalSeconds: 30}

	if g.Addr() != "0.0.0.0:8080" {
		t.Errorf("unexpected addr: %s", g.Addr())
	}
	if g.IdleTimeout().Minutes() != 15 {
		t.Errorf("unexpected idle timeout: %v", g.IdleTimeout())
	}
	if g.SweepInterval().Seconds() != 30 {
		t.Errorf("unexpected sweep interval: %v", g.SweepInterval())
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/abs/path.db", "/abs/path.db"},
		{"~/store.db", home + "/store.db"},
		{"relative.db", "relative.db"},
	}

	for _, tt := range tests {
		if got := expandPath(tt.in); got != tt.want {
			t.Errorf("expandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	// "./" resolves against the executable dir, just assert it is absolute.
	if got := expandPath("./data.db"); !strings.HasSuffix(got, "data.db") || !filepath.IsAbs(got) {
		t.Errorf("expandPath(./data.db) = %q", got)
	}
}
