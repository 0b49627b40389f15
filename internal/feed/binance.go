package feed

import (
	"context"
	"log/slog"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"papertrade/internal/domain"
	"papertrade/pkg/quant"
	"papertrade/pkg/safe"
)

// binanceTicker is one entry of the Binance combined 24h ticker stream
// (!ticker@arr). Numeric fields arrive as strings, which keeps them out of
// float64 until fixed-point parsing.
type binanceTicker struct {
	Symbol    string `json:"s"`
	EventTime int64  `json:"E"` // Unix ms

	LastPrice      string `json:"c"`
	PriceChange    string `json:"p"` // absolute 24h change
	PriceChangePct string `json:"P"` // percent, e.g. "2.54"
	Volume         string `json:"v"`
	High           string `json:"h"`
	Low            string `json:"l"`
	Bid            string `json:"b"`
	Ask            string `json:"a"`
}

// binanceHandler adapts the combined ticker stream to the connector.
type binanceHandler struct {
	c *Connector
}

func (h *binanceHandler) ID() string  { return "BINANCE" }
func (h *binanceHandler) URL() string { return h.c.cfg.WSURL }

// OnConnect has nothing to send: the !ticker@arr endpoint streams every
// symbol and the connector filters against its subscription set.
func (h *binanceHandler) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	slog.Debug("Binance ticker stream open")
	return nil
}

// OnMessage parses a ticker batch. Malformed payloads are dropped silently
// without aborting the connection.
func (h *binanceHandler) OnMessage(ctx context.Context, msg []byte) {
	var batch []binanceTicker
	if err := json.Unmarshal(msg, &batch); err != nil {
		slog.Debug("Dropping malformed feed message", "err", err)
		return
	}

	for i := range batch {
		t := &batch[i]
		if !h.c.Subscribed(t.Symbol) {
			continue
		}
		h.c.emit(t.toQuote())
	}
}

func (t *binanceTicker) toQuote() domain.Quote {
	// "P" is a percentage value ("2.54" = 2.54%); store fractions scaled by
	// 1e6, so divide the parsed micros by 100.
	pct := safe.Div(int64(quant.ParsePriceStr(t.PriceChangePct)), 100)

	return domain.Quote{
		Symbol:             t.Symbol,
		PriceMicros:        quant.ParsePriceStr(t.LastPrice),
		BidMicros:          quant.ParsePriceStr(t.Bid),
		AskMicros:          quant.ParsePriceStr(t.Ask),
		Change24hMicros:    int64(quant.ParsePriceStr(t.PriceChange)),
		ChangePct24hMicros: pct,
		VolumeSats:         quant.ParseQtyStr(t.Volume),
		High24hMicros:      quant.ParsePriceStr(t.High),
		Low24hMicros:       quant.ParsePriceStr(t.Low),
		Ts:                 quant.TimeStamp(t.EventTime * 1000),
	}
}
