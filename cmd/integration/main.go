// Command integration runs an end-to-end smoke scenario against a fully
// wired core on the synthetic feed: market buy, pending limit sell, cancel,
// deposit, portfolio dump. No network, no API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/engine"
	"papertrade/internal/execution"
	"papertrade/internal/infra"
	"papertrade/internal/ledger"
	"papertrade/internal/market"
	"papertrade/pkg/quant"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	slog.Info("🚀 Starting paper-trading smoke scenario...")

	noise := infra.NewNoise(42)
	store := market.NewQuoteStore()
	led := ledger.New(quant.ToPriceMicros(100_000))
	sim := execution.NewSimulator(10, 10, noise)
	eng := engine.New(store, led, sim, nil, 256, 250*time.Millisecond)

	store.Seed(domain.Quote{
		Symbol:      "BTCUSDT",
		PriceMicros: quant.ToPriceMicros(50_000),
		Ts:          quant.Now(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go eng.Run(ctx)

	slog.Info("STEP 1: Market buy 0.5 BTC...")
	buy, err := eng.SubmitOrder(ctx, domain.Order{
		Symbol:  "BTCUSDT",
		Side:    domain.SideBuy,
		Type:    domain.OrderMarket,
		QtySats: quant.ToQtySats(0.5),
	})
	fail(err)
	slog.Info("✅ Filled", "oid", buy.ID, "price", buy.FillPriceMicros, "status", buy.Status)

	slog.Info("STEP 2: Limit sell 0.25 BTC at $60,000 (stays pending)...")
	sell, err := eng.SubmitOrder(ctx, domain.Order{
		Symbol:      "BTCUSDT",
		Side:        domain.SideSell,
		Type:        domain.OrderLimit,
		QtySats:     quant.ToQtySats(0.25),
		PriceMicros: quant.ToPriceMicros(60_000),
	})
	fail(err)
	slog.Info("✅ Pending", "oid", sell.ID, "status", sell.Status)

	slog.Info("STEP 3: Cancel the pending sell...")
	fail(eng.CancelOrder(ctx, sell.ID))
	slog.Info("✅ Cancelled", "oid", sell.ID)

	slog.Info("STEP 4: Deposit $5,000...")
	fail(eng.Deposit(ctx, quant.ToPriceMicros(5_000)))

	p := eng.Portfolio()
	fmt.Println()
	fmt.Printf("Balance:     $%s\n", p.BalanceMicros)
	fmt.Printf("Total value: $%s\n", p.TotalValueMicros)
	fmt.Printf("Positions:   %d\n", len(p.Positions))
	fmt.Printf("Orders:      %d\n", len(p.Orders))
	fmt.Printf("Fills:       %d\n", len(p.History))

	slog.Info("🎉 Smoke scenario passed!")
}

func fail(err error) {
	if err != nil {
		slog.Error("❌ Scenario step failed", "error", err)
		os.Exit(1)
	}
}
