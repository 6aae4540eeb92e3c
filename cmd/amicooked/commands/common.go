package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Champion2005/amicooked/pkg/agent"
	"github.com/Champion2005/amicooked/pkg/config"
	"github.com/Champion2005/amicooked/pkg/docstore"
	"github.com/Champion2005/amicooked/pkg/logger"
	"github.com/Champion2005/amicooked/pkg/memory"
	"github.com/Champion2005/amicooked/pkg/plans"
	"github.com/Champion2005/amicooked/pkg/providers"
	"github.com/Champion2005/amicooked/pkg/scoring"
	"github.com/Champion2005/amicooked/pkg/skills"
)

const Version = "0.3.1"
const Logo = "🔥"

const defaultConfigPath = "~/.amicooked/config.json"

func configPath() string {
	if p := os.Getenv("AMICOOKED_CONFIG"); p != "" {
		return p
	}
	return defaultConfigPath
}

func mustLoadConfig() *config.Config {
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.LogLevel)
	return cfg
}

// runtime is the wired service stack every command runs on.
type runtime struct {
	cfg  *config.Config
	docs docstore.Store
	deps agent.Deps
}

func buildRuntime(cfg *config.Config) *runtime {
	docs, err := docstore.Open(cfg.StorePath())
	if err != nil {
		fmt.Printf("Failed to open store at %s: %v\n", cfg.StorePath(), err)
		os.Exit(1)
	}

	client := providers.NewHTTPClient(cfg.Provider.APIKey, cfg.Provider.APIBase)
	resolver := scoring.NewModelResolver(cfg.Provider.Models.Basic, cfg.Provider.Models.Standard, cfg.Provider.Models.Premium)
	orch := scoring.NewOrchestrator(client, scoring.NewEngine(), resolver)
	memStore := memory.NewStore(docs)

	return &runtime{
		cfg:  cfg,
		docs: docs,
		deps: agent.Deps{
			Client:    client,
			Orch:      orch,
			Resolver:  resolver,
			Skills:    skills.NewRegistry(client, orch, resolver),
			Memory:    memStore,
			Extractor: memory.NewExtractor(client, memStore, cfg.ExtractModelName()),
			Docs:      docs,
		},
	}
}

func (rt *runtime) Close() {
	if err := rt.docs.Close(); err != nil {
		logger.WarnC("cli", fmt.Sprintf("Closing store: %v", err))
	}
}

// storedUser mirrors the gateway's persisted user profile document.
type storedUser struct {
	Plan        string `json:"plan"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Tone        string `json:"tone"`
}

// openAgent builds and initializes a session for uid, honoring the stored
// user profile when one exists.
func (rt *runtime) openAgent(ctx context.Context, uid string) (*agent.Agent, error) {
	var user storedUser
	if raw, err := rt.docs.Get(ctx, docstore.UserPath(uid)); err == nil && raw != nil {
		json.Unmarshal(raw, &user)
	}

	plan := plans.ID(rt.cfg.Agent.DefaultPlan)
	if user.Plan != "" {
		plan = plans.ID(user.Plan)
	}
	tone := rt.cfg.Agent.ToneDirective
	if user.Tone != "" {
		tone = user.Tone
	}

	a := agent.New(rt.deps, agent.Config{
		UID:           uid,
		Plan:          plan,
		Profile:       scoring.Profile{Username: user.Username, DisplayName: user.DisplayName},
		ToneDirective: tone,
		MaxTokens:     rt.cfg.Agent.MaxTokens,
		Temperature:   rt.cfg.Agent.Temperature,
	})
	if err := a.Initialize(ctx); err != nil {
		return nil, err
	}
	return a, nil
}
