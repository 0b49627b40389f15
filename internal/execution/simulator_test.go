package execution

import (
	"errors"
	"testing"

	"papertrade/internal/domain"
	"papertrade/internal/infra"
	"papertrade/pkg/quant"
)

func testQuote(price float64) domain.Quote {
	return domain.Quote{Symbol: "BTCUSDT", PriceMicros: quant.ToPriceMicros(price), Ts: quant.Now()}
}

func marketBuy(qty float64) *domain.Order {
	return &domain.Order{
		ID: "o1", Symbol: "BTCUSDT", Type: domain.OrderMarket,
		Side: domain.SideBuy, QtySats: quant.ToQtySats(qty), Status: domain.StatusPending,
	}
}

// zero slippage keeps fill prices exact for assertions.
func newTestSim(feeBps int64) *Simulator {
	return NewSimulator(feeBps, 0, infra.NewNoise(1))
}

func TestSimulator_MarketFill(t *testing.T) {
	sim := newTestSim(10)

	fill, err := sim.Submit(marketBuy(0.5), testQuote(40_000), quant.ToPriceMicros(100_000))
	if err != nil {
		t.Fatalf("Submit() = %v", err)
	}
	if fill == nil {
		t.Fatal("market order must fill immediately")
	}

	if fill.PriceMicros != quant.ToPriceMicros(40_000) {
		t.Errorf("fill price = %d", fill.PriceMicros)
	}
	// 10 bps of $20,000 notional = $20
	if fill.FeeMicros != quant.ToPriceMicros(20) {
		t.Errorf("fee = %d, want 20_000_000", fill.FeeMicros)
	}
	if fill.Order.Status != domain.StatusFilled {
		t.Errorf("order status = %s", fill.Order.Status)
	}
}

func TestSimulator_MarketSlippageBounded(t *testing.T) {
	sim := NewSimulator(0, 10, infra.NewNoise(1))
	price := quant.ToPriceMicros(50_000)

	for i := 0; i < 200; i++ {
		o := marketBuy(0.1)
		fill, err := sim.Submit(o, testQuote(50_000), quant.ToPriceMicros(1_000_000))
		if err != nil {
			t.Fatal(err)
		}
		lo, hi := price-price/1000, price+price/1000
		if fill.PriceMicros < lo || fill.PriceMicros > hi {
			t.Fatalf("slipped fill %d out of ±0.1%% band", fill.PriceMicros)
		}
	}
}

func TestSimulator_BuyAffordability(t *testing.T) {
	sim := newTestSim(10)

	// $40,000 notional + $40 fee > $30,000 available.
	_, err := sim.Submit(marketBuy(1), testQuote(40_000), quant.ToPriceMicros(30_000))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("Submit() = %v, want ErrInsufficientBalance", err)
	}
	if sim.PendingCount("BTCUSDT") != 0 {
		t.Error("rejected order must not be parked")
	}
}

func TestSimulator_BuyEstimateCoversSlippage(t *testing.T) {
	// 1% slippage, 10 bps fee: worst-case cost of 1 BTC at $50,000 is
	// $50,500 notional plus $50.50 fee.
	sim := NewSimulator(10, 100, infra.NewNoise(1))

	t.Run("Covers Quote But Not Worst Case", func(t *testing.T) {
		// Enough for the unslipped cost ($50,050) is not enough; a fill at
		// the top of the slippage band could overdraw the balance.
		_, err := sim.Submit(marketBuy(1), testQuote(50_000), quant.ToPriceMicros(50_100))
		if !errors.Is(err, ErrInsufficientBalance) {
			t.Fatalf("Submit() = %v, want ErrInsufficientBalance", err)
		}
		if sim.PendingCount("BTCUSDT") != 0 {
			t.Error("rejected order must not be parked")
		}
	})

	t.Run("Accepted Fill Always Affordable", func(t *testing.T) {
		available := quant.ToPriceMicros(50_551)
		for i := 0; i < 100; i++ {
			fill, err := sim.Submit(marketBuy(1), testQuote(50_000), available)
			if err != nil {
				t.Fatal(err)
			}
			cost := quant.Notional(fill.PriceMicros, fill.QtySats) + fill.FeeMicros
			if cost > available {
				t.Fatalf("fill cost %s exceeds available %s", cost, available)
			}
		}
	})
}

func TestSimulator_LimitOrder(t *testing.T) {
	sim := newTestSim(0)

	o := &domain.Order{
		ID: "l1", Symbol: "BTCUSDT", Type: domain.OrderLimit, Side: domain.SideBuy,
		QtySats: quant.ToQtySats(1), PriceMicros: quant.ToPriceMicros(45_000),
		Status: domain.StatusPending,
	}
	fill, err := sim.Submit(o, testQuote(50_000), quant.ToPriceMicros(100_000))
	if err != nil {
		t.Fatalf("Submit() = %v", err)
	}
	if fill != nil {
		t.Fatal("unmarketable limit must stay pending")
	}

	t.Run("Not Triggered Above Limit", func(t *testing.T) {
		fills, _ := sim.OnQuote(testQuote(46_000), quant.ToPriceMicros(100_000))
		if len(fills) != 0 {
			t.Error("buy limit must not fill above its price")
		}
	})

	t.Run("Fills At Or Below Limit", func(t *testing.T) {
		fills, _ := sim.OnQuote(testQuote(44_000), quant.ToPriceMicros(100_000))
		if len(fills) != 1 {
			t.Fatal("buy limit should fill below its price")
		}
		// Executes at the quote, never worse than the limit.
		if fills[0].PriceMicros != quant.ToPriceMicros(44_000) {
			t.Errorf("fill price = %d, want quote price", fills[0].PriceMicros)
		}
	})

	if sim.PendingCount("BTCUSDT") != 0 {
		t.Error("filled order should leave the book")
	}
}

func TestSimulator_StopOrder(t *testing.T) {
	sim := newTestSim(0)

	// Stop-loss: sell 1 BTC if price drops to $45,000.
	o := &domain.Order{
		ID: "s1", Symbol: "BTCUSDT", Type: domain.OrderStop, Side: domain.SideSell,
		QtySats: quant.ToQtySats(1), StopPriceMicros: quant.ToPriceMicros(45_000),
		Status: domain.StatusPending,
	}
	if _, err := sim.Submit(o, testQuote(50_000), 0); err != nil {
		t.Fatalf("Submit() = %v", err)
	}

	if fills, _ := sim.OnQuote(testQuote(46_000), 0); len(fills) != 0 {
		t.Error("stop must not trigger above the stop price")
	}

	fills, _ := sim.OnQuote(testQuote(44_000), 0)
	if len(fills) != 1 {
		t.Fatal("stop should trigger once crossed")
	}
	if fills[0].PriceMicros != quant.ToPriceMicros(44_000) {
		t.Errorf("stop fills at the quote, got %d", fills[0].PriceMicros)
	}
}

func TestSimulator_StopLimitArmsThenFills(t *testing.T) {
	sim := newTestSim(0)

	// Buy stop-limit: arm at $52,000, fill only at or below $52,500.
	o := &domain.Order{
		ID: "sl1", Symbol: "BTCUSDT", Type: domain.OrderStopLimit, Side: domain.SideBuy,
		QtySats:         quant.ToQtySats(0.1),
		StopPriceMicros: quant.ToPriceMicros(52_000),
		PriceMicros:     quant.ToPriceMicros(52_500),
		Status:          domain.StatusPending,
	}
	if _, err := sim.Submit(o, testQuote(50_000), quant.ToPriceMicros(100_000)); err != nil {
		t.Fatalf("Submit() = %v", err)
	}

	// Gaps straight past both legs: armed, but limit not marketable.
	if fills, _ := sim.OnQuote(testQuote(53_000), quant.ToPriceMicros(100_000)); len(fills) != 0 {
		t.Error("stop-limit must respect its limit leg after arming")
	}

	// Once armed it works as a limit even back below the stop.
	fills, _ := sim.OnQuote(testQuote(51_000), quant.ToPriceMicros(100_000))
	if len(fills) != 1 {
		t.Fatal("armed stop-limit should fill at a marketable quote")
	}
}

func TestSimulator_Cancel(t *testing.T) {
	sim := newTestSim(0)

	o := &domain.Order{
		ID: "c1", Symbol: "BTCUSDT", Type: domain.OrderLimit, Side: domain.SideBuy,
		QtySats: 1, PriceMicros: 1, Status: domain.StatusPending,
	}
	sim.Submit(o, testQuote(50_000), quant.ToPriceMicros(100_000))

	got, err := sim.Cancel("c1")
	if err != nil {
		t.Fatalf("Cancel() = %v", err)
	}
	if got.Status != domain.StatusCancelled {
		t.Errorf("status = %s", got.Status)
	}
	if sim.PendingCount("BTCUSDT") != 0 {
		t.Error("cancelled order should leave the book")
	}

	if _, err := sim.Cancel("c1"); !errors.Is(err, ErrUnknownOrder) {
		t.Errorf("second cancel = %v, want ErrUnknownOrder", err)
	}
	if _, err := sim.Cancel("ghost"); !errors.Is(err, ErrUnknownOrder) {
		t.Errorf("unknown cancel = %v, want ErrUnknownOrder", err)
	}
}

func TestSimulator_TriggeredBuyWithoutFunds(t *testing.T) {
	sim := newTestSim(0)

	o := &domain.Order{
		ID: "b1", Symbol: "BTCUSDT", Type: domain.OrderLimit, Side: domain.SideBuy,
		QtySats: quant.ToQtySats(1), PriceMicros: quant.ToPriceMicros(45_000),
		Status: domain.StatusPending,
	}
	if _, err := sim.Submit(o, testQuote(50_000), quant.ToPriceMicros(50_000)); err != nil {
		t.Fatalf("Submit() = %v", err)
	}

	// Funds were spent between submit and trigger.
	fills, rejected := sim.OnQuote(testQuote(44_000), quant.ToPriceMicros(10))
	if len(fills) != 0 {
		t.Error("underfunded buy must not fill")
	}
	if len(rejected) != 1 || rejected[0].Status != domain.StatusCancelled {
		t.Fatalf("underfunded buy should be cancelled, got %v", rejected)
	}
	if sim.PendingCount("BTCUSDT") != 0 {
		t.Error("cancelled order should leave the book")
	}
}

func TestSimulator_SweepBudget(t *testing.T) {
	sim := newTestSim(0)

	// Two buy limits, both marketable at the next quote, but cash covers
	// only the first.
	for _, oid := range []string{"a", "b"} {
		o := &domain.Order{
			ID: oid, Symbol: "BTCUSDT", Type: domain.OrderLimit, Side: domain.SideBuy,
			QtySats: quant.ToQtySats(1), PriceMicros: quant.ToPriceMicros(45_000),
			Status: domain.StatusPending,
		}
		if _, err := sim.Submit(o, testQuote(50_000), quant.ToPriceMicros(50_000)); err != nil {
			t.Fatalf("Submit(%s) = %v", oid, err)
		}
	}

	fills, rejected := sim.OnQuote(testQuote(44_000), quant.ToPriceMicros(50_000))
	if len(fills) != 1 {
		t.Fatalf("fills = %d, want 1", len(fills))
	}
	if len(rejected) != 1 {
		t.Fatalf("rejected = %d, want 1; the sweep budget must account for earlier fills", len(rejected))
	}
}
