// Command replay rebuilds a portfolio from the fill journal. It folds every
// journaled transaction into a fresh ledger in chronological order, so the
// printed result reflects exactly what the fills imply, independent of any
// in-memory state the app had when it wrote them.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"papertrade/internal/domain"
	"papertrade/internal/journal"
	"papertrade/internal/ledger"
	"papertrade/pkg/quant"
)

func main() {
	dbPath := flag.String("db", "papertrade.db", "journal database path")
	initial := flag.Float64("initial", 100_000, "initial cash balance the journal started from")
	flag.Parse()

	j, err := journal.Open(*dbPath)
	if err != nil {
		slog.Error("Failed to open journal", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer j.Close()

	txs, err := j.LoadFills(context.Background())
	if err != nil {
		slog.Error("Failed to load fills", "error", err)
		os.Exit(1)
	}

	led := ledger.New(quant.ToPriceMicros(*initial))
	for _, tx := range txs {
		o := domain.Order{
			ID:     tx.ID,
			Symbol: tx.Symbol,
			Side:   tx.Side,
			Type:   domain.OrderMarket,
			Status: domain.StatusFilled,
		}
		if _, err := led.ApplyFill(o, tx.PriceMicros, tx.QtySats, tx.FeeMicros, tx.Ts); err != nil {
			slog.Error("Journal inconsistent with initial balance",
				"tx", tx.ID, "error", err)
			os.Exit(1)
		}
	}
	led.Revalue(nil)

	p := led.Snapshot()
	fmt.Printf("Replayed %d fills from %s\n\n", len(txs), *dbPath)
	fmt.Printf("Cash balance: $%s\n", p.BalanceMicros)
	for _, pos := range p.Positions {
		fmt.Printf("  %-10s qty %s @ avg $%s\n", pos.Symbol, pos.QtySats, pos.AvgPriceMicros)
	}
}
