// Package feed owns the market-data connection: a live exchange WebSocket
// stream or a local synthetic generator, the subscription set, and the
// reconnection policy. It is the only writer into the quote path.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/event"
	"papertrade/internal/infra"
	"papertrade/internal/market"
	"papertrade/pkg/quant"
)

// walkBps bounds the synthetic random-walk step at 0.1% of price per tick.
const walkBps = 10

// Config carries the feed settings relevant to the connector.
type Config struct {
	Mode              string
	WSURL             string
	RestURL           string
	MaxReconnects     int
	SyntheticInterval time.Duration
}

// Connector maintains a best-effort live connection and keeps the quote path
// fed for every subscribed symbol. When the live transport is unavailable or
// disabled it degrades to synthetic ticks instead of surfacing a failure:
// availability is prioritized over fidelity.
type Connector struct {
	cfg   Config
	inbox chan<- event.Event
	store *market.QuoteStore
	noise *infra.Noise
	seq   *uint64

	mu        sync.Mutex
	state     infra.ConnState
	subs      map[string]struct{}
	gens      map[string]context.CancelFunc
	worker    *infra.WSWorker
	runCtx    context.Context
	cancel    context.CancelFunc
	synthetic bool // currently driving synthetic ticks (incl. live fallback)
}

// NewConnector wires a connector to the engine inbox. Live and synthetic
// ticks flow through events; only placeholder seeds write the store directly,
// and Seed never replaces an existing entry.
func NewConnector(cfg Config, inbox chan<- event.Event, store *market.QuoteStore, noise *infra.Noise, seq *uint64) *Connector {
	if cfg.SyntheticInterval <= 0 {
		cfg.SyntheticInterval = time.Second
	}
	if cfg.MaxReconnects <= 0 {
		cfg.MaxReconnects = infra.DefaultMaxRetries
	}
	return &Connector{
		cfg:   cfg,
		inbox: inbox,
		store: store,
		noise: noise,
		seq:   seq,
		state: infra.StateDisconnected,
		subs:  make(map[string]struct{}),
		gens:  make(map[string]context.CancelFunc),
	}
}

// Connect starts the feed. Idempotent: a second call while up is a no-op.
// In synthetic mode the connector reports itself connected immediately and
// never schedules reconnects.
func (c *Connector) Connect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return
	}
	c.runCtx, c.cancel = context.WithCancel(ctx)

	if c.cfg.Mode == infra.FeedModeSynthetic {
		c.state = infra.StateConnected
		c.synthetic = true
		for sym := range c.subs {
			c.startGeneratorLocked(sym)
		}
		slog.Info("Feed up in synthetic mode", "symbols", len(c.subs))
		return
	}

	c.state = infra.StateConnecting
	c.worker = infra.NewWSWorker(&binanceHandler{c: c})
	c.worker.MaxRetries = c.cfg.MaxReconnects
	c.worker.OnState = c.onWorkerState
	c.worker.Start(c.runCtx)
}

// Disconnect tears the feed down: cancels any pending reconnection, stops
// every synthetic generator, and closes the transport. Safe to call when
// already disconnected; Connect afterwards starts a fresh cycle.
func (c *Connector) Disconnect() {
	c.mu.Lock()
	if c.cancel == nil {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.cancel = nil
	worker := c.worker
	c.worker = nil
	for sym, stop := range c.gens {
		stop()
		delete(c.gens, sym)
	}
	c.synthetic = false
	c.state = infra.StateDisconnected
	c.mu.Unlock()

	// Stop waits for the read loop; do not hold the mutex across it.
	if worker != nil {
		worker.Stop()
	}
	slog.Info("Feed disconnected")
}

// Subscribe adds a symbol to the subscription set and seeds a placeholder
// quote so consumers never see a missing entry. Subscriptions persist across
// reconnects. Subscribing twice never creates a second generator.
func (c *Connector) Subscribe(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.subs[symbol] = struct{}{}

	// Seed the store directly: the placeholder must exist when Subscribe
	// returns, and Seed is insert-only so a real quote is never replaced.
	c.store.Seed(syntheticQuote(symbol, c.noise))
	if c.synthetic && c.cancel != nil {
		c.startGeneratorLocked(symbol)
	}
}

// Unsubscribe removes a symbol and cancels its generator, if any. The stored
// quote stays; quotes are replaced, never deleted.
func (c *Connector) Unsubscribe(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.subs, symbol)
	if stop, ok := c.gens[symbol]; ok {
		stop()
		delete(c.gens, symbol)
	}
}

// Subscribed reports whether the symbol is in the subscription set.
func (c *Connector) Subscribed(symbol string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subs[symbol]
	return ok
}

// Symbols returns the current subscription set.
func (c *Connector) Symbols() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.subs))
	for sym := range c.subs {
		out = append(out, sym)
	}
	return out
}

// State returns the connection lifecycle state.
func (c *Connector) State() infra.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether quotes are flowing (live or synthetic).
func (c *Connector) IsConnected() bool {
	return c.State() == infra.StateConnected
}

func (c *Connector) onWorkerState(s infra.ConnState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel == nil {
		// Already torn down; late worker transitions are irrelevant.
		return
	}
	c.state = s

	if s == infra.StateFailed {
		// Retry ceiling reached. Keep the UI alive on synthetic data rather
		// than surfacing a hard failure.
		slog.Warn("Live feed unavailable, degrading to synthetic data")
		c.synthetic = true
		c.state = infra.StateConnected
		for sym := range c.subs {
			c.startGeneratorLocked(sym)
		}
	}
}

// emit sends a quote event into the engine inbox without blocking: a full
// inbox drops the tick and recycles the event. A newer tick follows shortly.
func (c *Connector) emit(q domain.Quote) {
	ev := event.AcquireQuoteEvent()
	ev.Seq = quant.NextSeq(c.seq)
	ev.Ts = q.Ts
	ev.Quote = q

	select {
	case c.inbox <- ev:
	default:
		event.ReleaseQuoteEvent(ev)
	}
}
