package feed

import (
	"testing"

	"papertrade/internal/infra"
	"papertrade/pkg/quant"
)

func TestNextWalkQuote(t *testing.T) {
	noise := infra.NewNoise(1)
	open := quant.ToPriceMicros(50_000)
	prev := storedQuote("BTCUSDT", 50_000)
	prev.High24hMicros = prev.PriceMicros
	prev.Low24hMicros = prev.PriceMicros

	for i := 0; i < 500; i++ {
		next := nextWalkQuote(prev, open, noise)

		// Step bounded at walkBps of the previous price.
		maxStep := int64(prev.PriceMicros) / 1000
		step := int64(next.PriceMicros) - int64(prev.PriceMicros)
		if step > maxStep || step < -maxStep {
			t.Fatalf("step %d exceeds ±0.1%% of %d", step, prev.PriceMicros)
		}

		if next.PriceMicros <= 0 {
			t.Fatal("walk price must stay positive")
		}
		if next.High24hMicros < next.PriceMicros || next.Low24hMicros > next.PriceMicros {
			t.Fatalf("range [%d, %d] does not contain %d",
				next.Low24hMicros, next.High24hMicros, next.PriceMicros)
		}

		wantChange := int64(next.PriceMicros) - int64(open)
		if next.Change24hMicros != wantChange {
			t.Fatalf("change = %d, want %d (vs walk open)", next.Change24hMicros, wantChange)
		}
		if next.Ts < prev.Ts {
			t.Fatal("walk timestamps must not regress")
		}

		prev = next
	}
}

func TestSyntheticQuote(t *testing.T) {
	noise := infra.NewNoise(1)
	for i := 0; i < 100; i++ {
		q := syntheticQuote("BTCUSDT", noise)
		if q.Symbol != "BTCUSDT" {
			t.Fatalf("symbol = %s", q.Symbol)
		}
		if q.PriceMicros <= 0 {
			t.Fatal("placeholder price must be positive")
		}
		if q.High24hMicros <= q.PriceMicros || q.Low24hMicros >= q.PriceMicros {
			t.Fatalf("placeholder range [%d, %d] must straddle price %d",
				q.Low24hMicros, q.High24hMicros, q.PriceMicros)
		}
	}
}
