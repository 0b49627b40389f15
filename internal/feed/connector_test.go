package feed

import (
	"context"
	"testing"
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/event"
	"papertrade/internal/infra"
	"papertrade/internal/market"
	"papertrade/pkg/quant"
)

func TestConnector_SubscribeSeedsPlaceholder(t *testing.T) {
	inbox := make(chan event.Event, 16)
	c := newTestConnector(inbox)

	c.Subscribe("BTCUSDT")

	q, ok := c.store.Get("BTCUSDT")
	if !ok {
		t.Fatal("subscribe must leave a placeholder quote in the store")
	}
	if q.PriceMicros <= 0 {
		t.Error("placeholder price must be positive")
	}
	if !c.Subscribed("BTCUSDT") {
		t.Error("symbol should be subscribed")
	}

	t.Run("Existing Quote Kept", func(t *testing.T) {
		want := storedQuote("ETHUSDT", 3_000)
		c.store.Seed(want)
		c.Subscribe("ETHUSDT")

		got, _ := c.store.Get("ETHUSDT")
		if got.PriceMicros != want.PriceMicros {
			t.Errorf("price = %d, subscribe must not replace a stored quote", got.PriceMicros)
		}
	})
}

func TestConnector_SyntheticGenerators(t *testing.T) {
	inbox := make(chan event.Event, 64)
	var seq uint64
	c := NewConnector(Config{
		Mode:              infra.FeedModeSynthetic,
		SyntheticInterval: 5 * time.Millisecond,
	}, inbox, market.NewQuoteStore(), infra.NewNoise(1), &seq)

	c.Subscribe("BTCUSDT")
	c.Connect(context.Background())
	defer c.Disconnect()

	if !c.IsConnected() {
		t.Fatal("synthetic mode should report connected immediately")
	}

	// Double subscribe must not double the tick rate.
	c.Subscribe("BTCUSDT")

	time.Sleep(60 * time.Millisecond)
	ticks := len(drain(inbox))
	if ticks == 0 {
		t.Fatal("no synthetic ticks emitted")
	}
	// ~12 expected at 5ms over 60ms; far more would mean duplicate generators.
	if ticks > 20 {
		t.Errorf("ticks = %d, duplicate generator suspected", ticks)
	}
}

func TestConnector_UnsubscribeStopsGenerator(t *testing.T) {
	inbox := make(chan event.Event, 64)
	var seq uint64
	c := NewConnector(Config{
		Mode:              infra.FeedModeSynthetic,
		SyntheticInterval: 5 * time.Millisecond,
	}, inbox, market.NewQuoteStore(), infra.NewNoise(1), &seq)

	c.Subscribe("BTCUSDT")
	c.Connect(context.Background())
	defer c.Disconnect()

	time.Sleep(20 * time.Millisecond)
	c.Unsubscribe("BTCUSDT")
	drain(inbox)

	time.Sleep(30 * time.Millisecond)
	// One tick may already be in flight at cancellation; more means the
	// generator survived.
	if evs := drain(inbox); len(evs) > 1 {
		t.Errorf("%d ticks after unsubscribe", len(evs))
	}
	if c.Subscribed("BTCUSDT") {
		t.Error("symbol should be unsubscribed")
	}
}

func TestConnector_DisconnectIdempotent(t *testing.T) {
	inbox := make(chan event.Event, 16)
	c := newTestConnector(inbox)

	c.Subscribe("BTCUSDT")
	c.Connect(context.Background())
	c.Disconnect()
	c.Disconnect() // second call is a no-op

	if c.State() != infra.StateDisconnected {
		t.Errorf("state = %s", c.State())
	}

	// Reconnect starts a fresh cycle.
	c.Connect(context.Background())
	defer c.Disconnect()
	if !c.IsConnected() {
		t.Error("reconnect should come back up")
	}
}

func TestConnector_LiveDisconnectCancelsReconnect(t *testing.T) {
	inbox := make(chan event.Event, 16)
	var seq uint64
	c := NewConnector(Config{
		Mode:          infra.FeedModeLive,
		WSURL:         "ws://127.0.0.1:1", // nothing listens here
		MaxReconnects: 5,
	}, inbox, market.NewQuoteStore(), infra.NewNoise(1), &seq)

	waitForState := func(want ...infra.ConnState) bool {
		deadline := time.After(2 * time.Second)
		for {
			for _, s := range want {
				if c.State() == s {
					return true
				}
			}
			select {
			case <-deadline:
				return false
			case <-time.After(2 * time.Millisecond):
			}
		}
	}

	c.Connect(context.Background())
	if !waitForState(infra.StateReconnecting) {
		t.Fatalf("state = %s, want a pending reconnect", c.State())
	}

	// Disconnect during the backoff wait cancels the pending attempt.
	c.Disconnect()
	if c.State() != infra.StateDisconnected {
		t.Fatalf("state after disconnect = %s", c.State())
	}

	// Late worker transitions must not revive the connection.
	time.Sleep(20 * time.Millisecond)
	if c.State() != infra.StateDisconnected {
		t.Errorf("state = %s after teardown", c.State())
	}

	// A fresh connect starts a new dial cycle.
	c.Connect(context.Background())
	defer c.Disconnect()
	if !waitForState(infra.StateConnecting, infra.StateReconnecting) {
		t.Errorf("state = %s, want a fresh connect cycle", c.State())
	}
}

func TestConnector_FullInboxDropsTick(t *testing.T) {
	inbox := make(chan event.Event, 1)
	c := newTestConnector(inbox)

	c.emit(storedQuote("A", 10)) // fills the only slot
	c.emit(storedQuote("B", 20)) // dropped, must not block
	if len(inbox) != 1 {
		t.Errorf("inbox = %d", len(inbox))
	}
}

func storedQuote(symbol string, price float64) domain.Quote {
	return domain.Quote{Symbol: symbol, PriceMicros: quant.ToPriceMicros(price), Ts: quant.Now()}
}
