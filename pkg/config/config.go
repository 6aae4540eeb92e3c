package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Provider ProviderConfig `json:"provider"`
	Store    StoreConfig    `json:"store"`
	Agent    AgentConfig    `json:"agent"`
	Memory   MemoryConfig   `json:"memory"`
	Channels ChannelsConfig `json:"channels"`
	Gateway  GatewayConfig  `json:"gateway"`
	LogLevel string         `json:"log_level" env:"AMICOOKED_LOG_LEVEL"`
}

type ProviderConfig struct {
	APIKey  string       `json:"api_key" env:"AMICOOKED_PROVIDER_API_KEY"`
	APIBase string       `json:"api_base" env:"AMICOOKED_PROVIDER_API_BASE"`
	Models  ModelsConfig `json:"models"`
}

// ModelsConfig maps plan tiers to model names. Empty tiers inherit the
// tier below at resolver construction.
type ModelsConfig struct {
	Basic    string `json:"basic" env:"AMICOOKED_PROVIDER_MODELS_BASIC"`
	Standard string `json:"standard" env:"AMICOOKED_PROVIDER_MODELS_STANDARD"`
	Premium  string `json:"premium" env:"AMICOOKED_PROVIDER_MODELS_PREMIUM"`
}

type StoreConfig struct {
	Path string `json:"path" env:"AMICOOKED_STORE_PATH"`
}

type AgentConfig struct {
	DefaultPlan   string  `json:"default_plan" env:"AMICOOKED_AGENT_DEFAULT_PLAN"`
	ToneDirective string  `json:"tone_directive" env:"AMICOOKED_AGENT_TONE_DIRECTIVE"`
	MaxTokens     int     `json:"max_tokens" env:"AMICOOKED_AGENT_MAX_TOKENS"`
	Temperature   float64 `json:"temperature" env:"AMICOOKED_AGENT_TEMPERATURE"`
}

// MemoryConfig controls conversation extraction. ExtractModel falls back
// to the basic tier model when empty.
type MemoryConfig struct {
	ExtractModel string `json:"extract_model" env:"AMICOOKED_MEMORY_EXTRACT_MODEL"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
}

type TelegramConfig struct {
	Enabled   bool     `json:"enabled" env:"AMICOOKED_CHANNELS_TELEGRAM_ENABLED"`
	Token     string   `json:"token" env:"AMICOOKED_CHANNELS_TELEGRAM_TOKEN"`
	AllowFrom []string `json:"allow_from" env:"AMICOOKED_CHANNELS_TELEGRAM_ALLOW_FROM"`
}

type DiscordConfig struct {
	Enabled   bool     `json:"enabled" env:"AMICOOKED_CHANNELS_DISCORD_ENABLED"`
	Token     string   `json:"token" env:"AMICOOKED_CHANNELS_DISCORD_TOKEN"`
	AllowFrom []string `json:"allow_from" env:"AMICOOKED_CHANNELS_DISCORD_ALLOW_FROM"`
}

type GatewayConfig struct {
	Host                 string `json:"host" env:"AMICOOKED_GATEWAY_HOST"`
	Port                 int    `json:"port" env:"AMICOOKED_GATEWAY_PORT"`
	IdleTimeoutMinutes   int    `json:"idle_timeout_minutes" env:"AMICOOKED_GATEWAY_IDLE_TIMEOUT_MINUTES"`
	SweepIntervalSeconds int    `json:"sweep_interval_seconds" env:"AMICOOKED_GATEWAY_SWEEP_INTERVAL_SECONDS"`
	Maintenance          bool   `json:"maintenance" env:"AMICOOKED_GATEWAY_MAINTENANCE"`
}

func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			APIKey:  "",
			APIBase: "https://openrouter.ai/api/v1",
			Models: ModelsConfig{
				Basic:    "glm-4.5-air",
				Standard: "glm-4.7",
				Premium:  "glm-4.7",
			},
		},
		Store: StoreConfig{
			Path: "~/.amicooked/store.db",
		},
		Agent: AgentConfig{
			DefaultPlan: "free",
			MaxTokens:   2048,
			Temperature: 0.7,
		},
		Memory: MemoryConfig{
			ExtractModel: "", // basic tier model
		},
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{
				Enabled:   false,
				Token:     "",
				AllowFrom: []string{},
			},
			Discord: DiscordConfig{
				Enabled:   false,
				Token:     "",
				AllowFrom: []string{},
			},
		},
		Gateway: GatewayConfig{
			Host:                 "127.0.0.1",
			Port:                 8808,
			IdleTimeoutMinutes:   30,
			SweepIntervalSeconds: 60,
			Maintenance:          true,
		},
		LogLevel: "info",
	}
}

// LoadConfig layers defaults, then the JSON file (missing file is fine),
// then AMICOOKED_* environment variables.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(expandPath(path))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	resolved := expandPath(path)
	if err := os.MkdirAll(filepath.Dir(resolved), 0755); err != nil {
		return err
	}

	return os.WriteFile(resolved, data, 0644)
}

// StorePath resolves the document store location.
func (c *Config) StorePath() string {
	return expandPath(c.Store.Path)
}

// ExtractModelName picks the extraction model, falling back to the basic
// tier.
func (c *Config) ExtractModelName() string {
	if c.Memory.ExtractModel != "" {
		return c.Memory.ExtractModel
	}
	return c.Provider.Models.Basic
}

func (g GatewayConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

func (g GatewayConfig) IdleTimeout() time.Duration {
	return time.Duration(g.IdleTimeoutMinutes) * time.Minute
}

func (g GatewayConfig) SweepInterval() time.Duration {
	return time.Duration(g.SweepIntervalSeconds) * time.Second
}

// expandPath resolves special path prefixes:
// - "~/" expands to user home directory
// - "./" expands to the executable's directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	if len(path) >= 2 && path[0] == '.' && path[1] == '/' {
		return filepath.Join(getExeDir(), path[2:])
	}
	return path
}

// getExeDir returns the directory containing the executable.
func getExeDir() string {
	exePath, err := os.Executable()
	if err != nil {
		cwd, _ := os.Getwd()
		return cwd
	}
	realPath, err := filepath.EvalSymlinks(exePath)
	if err != nil {
		return filepath.Dir(exePath)
	}
	return filepath.Dir(realPath)
}
