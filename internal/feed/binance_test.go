package feed

import (
	"context"
	"testing"

	"papertrade/internal/event"
	"papertrade/internal/infra"
	"papertrade/internal/market"
	"papertrade/pkg/quant"
)

func newTestConnector(inbox chan event.Event) *Connector {
	var seq uint64
	return NewConnector(Config{Mode: infra.FeedModeSynthetic},
		inbox, market.NewQuoteStore(), infra.NewNoise(1), &seq)
}

func TestBinanceHandler_OnMessage(t *testing.T) {
	inbox := make(chan event.Event, 16)
	c := newTestConnector(inbox)
	c.Subscribe("BTCUSDT")

	h := &binanceHandler{c: c}

	payload := []byte(`[
		{"s":"BTCUSDT","E":1700000000000,"c":"50123.45","p":"1200.50","P":"2.45",
		 "v":"1234.5","h":"51000","l":"49000","b":"50123.40","a":"50123.50"},
		{"s":"DOGEUSDT","E":1700000000000,"c":"0.08"}
	]`)
	h.OnMessage(context.Background(), payload)

	evs := drain(inbox)
	if len(evs) != 1 {
		t.Fatalf("events = %d, want 1 (unsubscribed symbols filtered)", len(evs))
	}

	qe, ok := evs[0].(*event.QuoteEvent)
	if !ok {
		t.Fatalf("event type = %T", evs[0])
	}
	q := qe.Quote

	if q.Symbol != "BTCUSDT" {
		t.Errorf("symbol = %s", q.Symbol)
	}
	if q.PriceMicros != quant.ParsePriceStr("50123.45") {
		t.Errorf("price = %d", q.PriceMicros)
	}
	// "2.45" percent = 0.0245 fraction = 24,500 at 1e6 scale.
	if q.ChangePct24hMicros != 24_500 {
		t.Errorf("pct = %d, want 24500", q.ChangePct24hMicros)
	}
	// Event time arrives in ms, stored in micros.
	if q.Ts != quant.TimeStamp(1700000000000*1000) {
		t.Errorf("ts = %d", q.Ts)
	}
}

func TestBinanceHandler_MalformedDropped(t *testing.T) {
	inbox := make(chan event.Event, 16)
	c := newTestConnector(inbox)
	c.Subscribe("BTCUSDT")

	h := &binanceHandler{c: c}
	h.OnMessage(context.Background(), []byte(`{"not":"an array"}`))
	h.OnMessage(context.Background(), []byte(`garbage`))

	if evs := drain(inbox); len(evs) != 0 {
		t.Errorf("malformed payloads produced %d events", len(evs))
	}
}

func drain(ch chan event.Event) []event.Event {
	var out []event.Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}
