// Package app wires the trading core together: config, logging, journal,
// quote store, ledger, simulator, engine and feed connector, in dependency
// order.
package app

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"papertrade/internal/engine"
	"papertrade/internal/event"
	"papertrade/internal/execution"
	"papertrade/internal/feed"
	"papertrade/internal/infra"
	"papertrade/internal/journal"
	"papertrade/internal/ledger"
	"papertrade/internal/market"
	"papertrade/pkg/quant"
)

// Bootstrap builds and owns the application components.
type Bootstrap struct {
	Config    *infra.Config
	Store     *market.QuoteStore
	Ledger    *ledger.Ledger
	Engine    *engine.Engine
	Connector *feed.Connector
	Journal   *journal.Journal
	Snapshot  *feed.SnapshotClient
}

// NewBootstrap creates an empty bootstrap; call Initialize next.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization in dependency order.
// configPath may be empty; defaults are used when the file is absent.
func (b *Bootstrap) Initialize(configPath string) error {
	slog.Info("🚀 Bootstrapping papertrade...")

	event.Warmup()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	b.Config = cfg

	slog.SetDefault(infra.NewLogger(cfg))

	noise := infra.NewNoise(cfg.Trading.Seed)

	b.Store = market.NewQuoteStore()
	b.Ledger = ledger.New(quant.ToPriceMicros(cfg.Trading.InitialBalance))
	sim := execution.NewSimulator(cfg.Trading.FeeBps, cfg.Trading.SlippageBps, noise)

	var sink engine.FillSink
	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return err
		}
		b.Journal = j
		sink = j
		slog.Info("✅ Fill journal ready (WAL-mode)", "path", cfg.Journal.Path)
	}

	b.Engine = engine.New(b.Store, b.Ledger, sim, sink, 1024,
		time.Duration(cfg.Trading.RevalueIntervalMS)*time.Millisecond)

	b.Connector = feed.NewConnector(feed.Config{
		Mode:              cfg.Feed.Mode,
		WSURL:             cfg.Feed.WSURL,
		RestURL:           cfg.Feed.RestURL,
		MaxReconnects:     cfg.Feed.MaxReconnects,
		SyntheticInterval: time.Duration(cfg.Feed.SyntheticIntervalMS) * time.Millisecond,
	}, b.Engine.Inbox(), b.Store, noise, b.Engine.SeqPtr())

	b.Snapshot = feed.NewSnapshotClient(cfg.Feed.RestURL, noise)

	return nil
}

// SeedQuotes fetches the initial market snapshot so configured symbols have
// a baseline before trading starts. Runs before the engine loop, so writing
// the store directly is safe here.
func (b *Bootstrap) SeedQuotes(ctx context.Context) {
	quotes := b.Snapshot.Fetch(ctx, b.Config.Feed.Symbols)
	for _, q := range quotes {
		b.Store.Seed(q)
	}
	slog.Info("✅ Quote store seeded", "symbols", len(quotes))
}

// Close releases owned resources.
func (b *Bootstrap) Close() {
	if b.Journal != nil {
		b.Journal.Close()
	}
}

func loadConfig(path string) (*infra.Config, error) {
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := infra.LoadConfig(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Info("No config file, using defaults", "path", path)
			return infra.DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}
