package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/Champion2005/amicooked/pkg/config"
)

// RunSetup walks through first-run configuration and writes the config
// file. Existing values become the defaults, so rerunning is safe.
func RunSetup() {
	fmt.Printf("%s amicooked setup\n\n", Logo)

	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		fmt.Printf("Starting from defaults (%v)\n", err)
		cfg = config.DefaultConfig()
	}

	rl, err := readline.New("> ")
	if err != nil {
		fmt.Printf("Failed to start prompt: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	if key, err := rl.ReadPassword("OpenRouter API key (input hidden): "); err == nil && len(key) > 0 {
		cfg.Provider.APIKey = strings.TrimSpace(string(key))
	}
	cfg.Provider.APIBase = ask(rl, "API base URL", cfg.Provider.APIBase)
	cfg.Provider.Models.Basic = ask(rl, "Model for the free tier", cfg.Provider.Models.Basic)
	cfg.Provider.Models.Standard = ask(rl, "Model for the pro tier", cfg.Provider.Models.Standard)
	cfg.Provider.Models.Premium = ask(rl, "Model for the max tier", cfg.Provider.Models.Premium)
	cfg.Store.Path = ask(rl, "Store path", cfg.Store.Path)

	if askYesNo(rl, "Enable the Telegram channel?", cfg.Channels.Telegram.Enabled) {
		cfg.Channels.Telegram.Enabled = true
		cfg.Channels.Telegram.Token = ask(rl, "Telegram bot token", cfg.Channels.Telegram.Token)
		allow := ask(rl, "Telegram allowlist (comma-separated ids, empty allows everyone)", strings.Join(cfg.Channels.Telegram.AllowFrom, ","))
		cfg.Channels.Telegram.AllowFrom = splitList(allow)
	} else {
		cfg.Channels.Telegram.Enabled = false
	}

	if askYesNo(rl, "Enable the Discord channel?", cfg.Channels.Discord.Enabled) {
		cfg.Channels.Discord.Enabled = true
		cfg.Channels.Discord.Token = ask(rl, "Discord bot token", cfg.Channels.Discord.Token)
		allow := ask(rl, "Discord allowlist (comma-separated ids, empty allows everyone)", strings.Join(cfg.Channels.Discord.AllowFrom, ","))
		cfg.Channels.Discord.AllowFrom = splitList(allow)
	} else {
		cfg.Channels.Discord.Enabled = false
	}

	if err := config.SaveConfig(configPath(), cfg); err != nil {
		fmt.Printf("Failed to save config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nConfig written to %s\n", configPath())
	fmt.Println("Run `amicooked start` to bring the gateway up, or `amicooked chat` to talk locally.")
}

func ask(rl *readline.Instance, label, fallback string) string {
	if fallback != "" {
		rl.SetPrompt(fmt.Sprintf("%s [%s]: ", label, fallback))
	} else {
		rl.SetPrompt(label + ": ")
	}
	line, err := rl.Readline()
	if err != nil {
		return fallback
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return fallback
	}
	return line
}

func askYesNo(rl *readline.Instance, label string, fallback bool) bool {
	hint := "y/N"
	if fallback {
		hint = "Y/n"
	}
	rl.SetPrompt(fmt.Sprintf("%s [%s]: ", label, hint))
	line, err := rl.Readline()
	if err != nil {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return fallback
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
