package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"papertrade/internal/domain"
	"papertrade/internal/infra"
	"papertrade/pkg/quant"
	"papertrade/pkg/safe"
)

// binance24h is one entry of the REST 24h ticker batch.
type binance24h struct {
	Symbol         string `json:"symbol"`
	LastPrice      string `json:"lastPrice"`
	PriceChange    string `json:"priceChange"`
	PriceChangePct string `json:"priceChangePercent"`
	Volume         string `json:"volume"`
	HighPrice      string `json:"highPrice"`
	LowPrice       string `json:"lowPrice"`
	BidPrice       string `json:"bidPrice"`
	AskPrice       string `json:"askPrice"`
	CloseTime      int64  `json:"closeTime"` // Unix ms
}

// SnapshotClient fetches a point-in-time batch of quotes for the initial
// store seed. It never hard-fails: any error degrades to a synthetic
// snapshot so callers always get a usable baseline.
type SnapshotClient struct {
	restURL    string
	httpClient *http.Client
	noise      *infra.Noise
}

// NewSnapshotClient creates a snapshot client against the 24h ticker REST
// endpoint.
func NewSnapshotClient(restURL string, noise *infra.Noise) *SnapshotClient {
	return &SnapshotClient{
		restURL:    restURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		noise:      noise,
	}
}

// Fetch returns initial quotes for the symbols, live if possible, synthetic
// otherwise. The error path ends here by design.
func (c *SnapshotClient) Fetch(ctx context.Context, symbols []string) []domain.Quote {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				slog.Warn("Using synthetic market snapshot", "err", ctx.Err())
				return c.Synthetic(symbols)
			case <-time.After(delay):
			}
		}

		quotes, err := c.fetchOnce(ctx, symbols)
		if err == nil {
			return quotes
		}
		lastErr = err
		slog.Warn("Market snapshot fetch failed", "attempt", attempt+1, "err", err)
	}

	slog.Warn("Using synthetic market snapshot", "err", lastErr)
	return c.Synthetic(symbols)
}

func (c *SnapshotClient) fetchOnce(ctx context.Context, symbols []string) ([]domain.Quote, error) {
	quoted := make([]string, 0, len(symbols))
	for _, s := range symbols {
		quoted = append(quoted, `"`+s+`"`)
	}
	reqURL := c.restURL + "?symbols=" + url.QueryEscape("["+strings.Join(quoted, ",")+"]")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot endpoint returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var batch []binance24h
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}

	quotes := make([]domain.Quote, 0, len(batch))
	for i := range batch {
		quotes = append(quotes, batch[i].toQuote())
	}
	return quotes, nil
}

// Synthetic fabricates a baseline quote per symbol.
func (c *SnapshotClient) Synthetic(symbols []string) []domain.Quote {
	quotes := make([]domain.Quote, 0, len(symbols))
	for _, sym := range symbols {
		quotes = append(quotes, syntheticQuote(sym, c.noise))
	}
	return quotes
}

func (t *binance24h) toQuote() domain.Quote {
	pct := safe.Div(decMicros(t.PriceChangePct), 100)

	return domain.Quote{
		Symbol:             t.Symbol,
		PriceMicros:        quant.PriceMicros(decMicros(t.LastPrice)),
		BidMicros:          quant.PriceMicros(decMicros(t.BidPrice)),
		AskMicros:          quant.PriceMicros(decMicros(t.AskPrice)),
		Change24hMicros:    decMicros(t.PriceChange),
		ChangePct24hMicros: pct,
		VolumeSats:         quant.QtySats(decSats(t.Volume)),
		High24hMicros:      quant.PriceMicros(decMicros(t.HighPrice)),
		Low24hMicros:       quant.PriceMicros(decMicros(t.LowPrice)),
		Ts:                 quant.TimeStamp(t.CloseTime * 1000),
	}
}

// decMicros parses a decimal string into micros. The REST snapshot is a
// cold path, so decimal is fine here.
func decMicros(s string) int64 {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.Shift(6).IntPart()
}

func decSats(s string) int64 {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.Shift(8).IntPart()
}
