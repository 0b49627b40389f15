package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"papertrade/internal/api"
	"papertrade/internal/app"
	"papertrade/pkg/quant"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults to config.yaml)")
	flag.Parse()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Seed quotes before the loop starts so orders on configured symbols
	// never see an empty store.
	bootstrap.SeedQuotes(ctx)

	// The hotpath loop: every tick, fill and revaluation runs here.
	go bootstrap.Engine.Run(ctx)
	slog.Info("✅ Engine (hotpath) started")

	for _, sym := range bootstrap.Config.Feed.Symbols {
		bootstrap.Connector.Subscribe(sym)
	}
	bootstrap.Connector.Connect(ctx)
	defer bootstrap.Connector.Disconnect()
	slog.Info("✅ Feed connector started",
		"mode", bootstrap.Config.Feed.Mode,
		"symbols", len(bootstrap.Config.Feed.Symbols))

	var server *api.Server
	if bootstrap.Config.API.Enabled {
		server = api.NewServer(bootstrap.Config.API.Addr, bootstrap.Engine, bootstrap.Connector)
		go func() {
			if err := server.Start(); err != nil {
				slog.Error("API server failed", slog.Any("error", err))
				stop()
			}
		}()
	}

	slog.InfoContext(ctx, "✨ papertrade fully operational. Press Ctrl+C to exit.")

	<-ctx.Done()
	slog.Info("👋 Shutting down gracefully...")

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("API shutdown error", slog.Any("error", err))
		}
	}

	if bootstrap.Journal != nil {
		saveCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := bootstrap.Journal.SaveSnapshot(saveCtx, "portfolio", bootstrap.Engine.Portfolio(), int64(quant.Now())); err != nil {
			slog.Warn("Portfolio snapshot save failed", slog.Any("error", err))
		}
	}
}
