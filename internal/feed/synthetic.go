package feed

import (
	"context"
	"log/slog"
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/infra"
	"papertrade/pkg/quant"
	"papertrade/pkg/safe"
)

// startGeneratorLocked launches the periodic price-perturbation generator
// for one symbol. No-op while a generator for the symbol is already running,
// so repeated subscribes never accumulate tasks. Caller holds c.mu.
func (c *Connector) startGeneratorLocked(symbol string) {
	if _, ok := c.gens[symbol]; ok {
		return
	}

	ctx, stop := context.WithCancel(c.runCtx)
	c.gens[symbol] = stop

	go c.runGenerator(ctx, symbol)
	slog.Debug("Synthetic generator started", "symbol", symbol)
}

// runGenerator applies a bounded random walk on a fixed interval:
// new price = old price + ε, |ε| <= walkBps of price.
func (c *Connector) runGenerator(ctx context.Context, symbol string) {
	ticker := time.NewTicker(c.cfg.SyntheticInterval)
	defer ticker.Stop()

	var open quant.PriceMicros

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prev, ok := c.store.Get(symbol)
			if !ok {
				prev = syntheticQuote(symbol, c.noise)
			}
			if open == 0 {
				open = prev.PriceMicros
			}

			c.emit(nextWalkQuote(prev, open, c.noise))
		}
	}
}

// nextWalkQuote derives the next synthetic quote from the previous one,
// extending the 24h range and tracking change against the walk's open price.
func nextWalkQuote(prev domain.Quote, open quant.PriceMicros, noise *infra.Noise) domain.Quote {
	price := noise.Perturb(prev.PriceMicros, walkBps)

	q := prev
	q.PriceMicros = price
	q.BidMicros = 0
	q.AskMicros = 0
	q.Change24hMicros = safe.Sub(int64(price), int64(open))
	q.ChangePct24hMicros = quant.FractionMicros(q.Change24hMicros, int64(open))
	if price > q.High24hMicros {
		q.High24hMicros = price
	}
	if q.Low24hMicros == 0 || price < q.Low24hMicros {
		q.Low24hMicros = price
	}
	q.Ts = quant.Now()
	return q
}

// syntheticQuote fabricates a plausible placeholder quote for a symbol with
// no stored price yet.
func syntheticQuote(symbol string, noise *infra.Noise) domain.Quote {
	price := quant.PriceMicros(noise.IntBetween(1_000, 51_000) * quant.PriceScale)
	spread := quant.PriceMicros(safe.Div(int64(price), 20)) // 5% band

	return domain.Quote{
		Symbol:        symbol,
		PriceMicros:   price,
		VolumeSats:    quant.QtySats(noise.IntBetween(1, 1_000_000) * quant.QtyScale),
		High24hMicros: price + spread,
		Low24hMicros:  price - spread,
		Ts:            quant.Now(),
	}
}
