package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/Champion2005/amicooked/pkg/bus"
	"github.com/Champion2005/amicooked/pkg/channels"
	"github.com/Champion2005/amicooked/pkg/gateway"
	"github.com/Champion2005/amicooked/pkg/logger"
	"github.com/Champion2005/amicooked/pkg/plans"
)

const shutdownGrace = 15 * time.Second

// RunStart brings up the full gateway: message bus, chat channels, REST
// and websocket API, and the maintenance sweeper. Blocks until SIGINT or
// SIGTERM, then drains sessions.
func RunStart() {
	cfg := mustLoadConfig()
	rt := buildRuntime(cfg)
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b := bus.NewMessageBus()
	gw := gateway.New(rt.deps, b, gateway.Options{
		DefaultPlan: plans.ID(cfg.Agent.DefaultPlan),
		IdleTimeout: cfg.Gateway.IdleTimeout(),
		MaxTokens:   cfg.Agent.MaxTokens,
		Temperature: cfg.Agent.Temperature,
	})

	manager := channels.NewManager(b)
	if cfg.Channels.Telegram.Enabled {
		tg, err := channels.NewTelegramChannel(cfg.Channels.Telegram, b)
		if err != nil {
			logger.ErrorC("cli", fmt.Sprintf("Telegram channel: %v", err))
		} else {
			manager.Register(tg)
		}
	}
	if cfg.Channels.Discord.Enabled {
		dc, err := channels.NewDiscordChannel(cfg.Channels.Discord, b)
		if err != nil {
			logger.ErrorC("cli", fmt.Sprintf("Discord channel: %v", err))
		} else {
			manager.Register(dc)
		}
	}

	manager.StartAll(ctx)
	go manager.RunOutbound(ctx)
	go gw.Run(ctx)

	var sweeper *gateway.Sweeper
	if cfg.Gateway.Maintenance {
		sweeper = gateway.NewSweeper(gw, cfg.Gateway.SweepInterval())
		if err := sweeper.Start(); err != nil {
			logger.WarnC("cli", fmt.Sprintf("Sweeper: %v", err))
		}
	}

	srv := gateway.NewServer(gw, cfg.Gateway.Addr())
	go func() {
		if err := srv.Start(); err != nil {
			logger.ErrorC("cli", fmt.Sprintf("HTTP server: %v", err))
			stop()
		}
	}()

	fmt.Printf("%s amicooked gateway up on %s\n", Logo, cfg.Gateway.Addr())
	<-ctx.Done()

	fmt.Println("\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if sweeper != nil {
		sweeper.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WarnC("cli", fmt.Sprintf("HTTP shutdown: %v", err))
	}
	manager.StopAll(shutdownCtx)
	gw.Shutdown(shutdownCtx)
	fmt.Println("Goodbye.")
}
