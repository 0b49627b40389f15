// Package engine runs the single-threaded hotpath: every quote tick, order
// submission, cancellation and revaluation for one portfolio is processed
// as a discrete, non-overlapping task in one goroutine. External
// collaborators read through snapshot accessors and write only through the
// operations exposed here.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/event"
	"papertrade/internal/execution"
	"papertrade/internal/ledger"
	"papertrade/internal/market"
	"papertrade/pkg/id"
	"papertrade/pkg/quant"
)

// ErrNoQuote rejects an order for a symbol with no stored quote. Subscribe
// first; subscribing seeds a placeholder.
var ErrNoQuote = errors.New("no quote available for symbol")

// FillSink receives applied transactions, e.g. the SQLite journal. Sink
// errors are logged and never fail the fill path.
type FillSink interface {
	AppendFill(ctx context.Context, tx domain.Transaction) error
}

// AlertFunc is notified when a price alert fires.
type AlertFunc func(a domain.Alert, q domain.Quote)

// Engine owns the event loop and the serialization guarantee: no two fills
// or revaluations for the portfolio ever run concurrently.
type Engine struct {
	inbox  chan event.Event
	store  *market.QuoteStore
	ledger *ledger.Ledger
	sim    *execution.Simulator
	sink   FillSink

	revalueEvery time.Duration
	seq          uint64

	alertMu sync.Mutex
	alerts  []*domain.Alert
	onAlert AlertFunc
}

// New creates an engine. sink may be nil.
func New(store *market.QuoteStore, led *ledger.Ledger, sim *execution.Simulator, sink FillSink, inboxSize int, revalueEvery time.Duration) *Engine {
	if inboxSize <= 0 {
		inboxSize = 1024
	}
	if revalueEvery <= 0 {
		revalueEvery = time.Second
	}
	return &Engine{
		inbox:        make(chan event.Event, inboxSize),
		store:        store,
		ledger:       led,
		sim:          sim,
		sink:         sink,
		revalueEvery: revalueEvery,
	}
}

// Inbox returns the event channel. The feed connector sends quote events
// here.
func (e *Engine) Inbox() chan<- event.Event { return e.inbox }

// SeqPtr exposes the shared sequence counter for event producers.
func (e *Engine) SeqPtr() *uint64 { return &e.seq }

// Store returns the quote store for read-only collaborators.
func (e *Engine) Store() *market.QuoteStore { return e.store }

// Run starts the event loop. Must run in exactly one goroutine; it returns
// when ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	slog.Info("Engine started (single-thread hotpath)")

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Engine panic, dumping state", "panic", r)
			e.DumpState("panic_dump.json")
			panic(fmt.Sprintf("halted: %v", r))
		}
	}()

	ticker := time.NewTicker(e.revalueEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Engine stopping")
			return
		case <-ticker.C:
			e.ledger.Revalue(e.store.Snapshot())
		case ev := <-e.inbox:
			e.process(ev)
		}
	}
}

func (e *Engine) process(ev event.Event) {
	switch v := ev.(type) {
	case *event.QuoteEvent:
		e.handleQuote(v)
	case *event.OrderSubmitEvent:
		v.Reply <- e.handleSubmit(v.Order)
	case *event.OrderCancelEvent:
		v.Reply <- e.handleCancel(v.OrderID)
	case *event.DepositEvent:
		v.Reply <- e.ledger.AdjustBalance(v.AmountMicros)
	default:
		slog.Warn("Unknown event type", "type", ev.GetType())
	}
}

// handleQuote applies one tick: store upsert (stale quotes are rejected and
// the tick ends there), pending-order sweep, alert sweep.
func (e *Engine) handleQuote(ev *event.QuoteEvent) {
	q := ev.Quote
	event.ReleaseQuoteEvent(ev)

	if !e.store.Upsert(q) {
		return
	}

	fills, rejected := e.sim.OnQuote(q, e.ledger.AvailableMicros())
	for _, o := range rejected {
		e.ledger.UpdateOrder(*o)
		slog.Warn("Pending buy cancelled at trigger: insufficient funds",
			"order", o.ID, "symbol", o.Symbol)
	}
	for _, f := range fills {
		e.applyFill(f)
	}
	if len(fills) > 0 {
		e.ledger.Revalue(e.store.Snapshot())
	}

	e.checkAlerts(q)
}

// applyFill records the fill in the ledger and, on success, forwards it to
// the journal sink. Runs in the same task that produced the fill: balance
// and position updates are atomic with it.
func (e *Engine) applyFill(f *execution.Fill) {
	tx, err := e.ledger.ApplyFill(*f.Order, f.PriceMicros, f.QtySats, f.FeeMicros, f.Ts)
	if err != nil {
		// Consistency violation (e.g. a pending sell outliving its
		// position). Reject the order, never correct silently.
		f.Order.Status = domain.StatusCancelled
		e.ledger.UpdateOrder(*f.Order)
		slog.Error("Fill rejected", "order", f.OrderID, "err", err)
		return
	}

	if e.sink != nil {
		if err := e.sink.AppendFill(context.Background(), tx); err != nil {
			slog.Warn("Journal write failed", "tx", tx.ID, "err", err)
		}
	}

	slog.Info("Order filled",
		"order", f.OrderID, "symbol", f.Symbol, "side", f.Side,
		"price", f.PriceMicros, "qty", f.QtySats, "fee", f.FeeMicros)
}

func (e *Engine) handleSubmit(o domain.Order) event.OrderResult {
	if o.ID == "" {
		o.ID = id.New()
	}
	o.Status = domain.StatusPending
	if o.CreatedUnixM == 0 {
		o.CreatedUnixM = quant.Now()
	}

	if err := o.Validate(); err != nil {
		return event.OrderResult{Err: err}
	}

	quote, ok := e.store.Get(o.Symbol)
	if !ok {
		return event.OrderResult{Err: fmt.Errorf("%w: %s", ErrNoQuote, o.Symbol)}
	}

	// No implicit shorts: reject sells beyond the held quantity up front.
	if o.Side == domain.SideSell && o.QtySats > e.ledger.PositionQty(o.Symbol) {
		return event.OrderResult{Err: fmt.Errorf("%w: %s", domain.ErrOversell, o.Symbol)}
	}

	fill, err := e.sim.Submit(&o, quote, e.ledger.AvailableMicros())
	if err != nil {
		// Rejected before execution: no order is created.
		return event.OrderResult{Err: err}
	}

	e.ledger.RecordOrder(o)
	if fill != nil {
		e.applyFill(fill)
		e.ledger.Revalue(e.store.Snapshot())
		if stored, ok := e.ledger.Order(o.ID); ok {
			o = stored
		}
	}
	return event.OrderResult{Order: o}
}

func (e *Engine) handleCancel(orderID string) error {
	o, err := e.sim.Cancel(orderID)
	if err != nil {
		return err
	}
	e.ledger.UpdateOrder(*o)
	slog.Info("Order cancelled", "order", orderID)
	return nil
}

// SubmitOrder submits an order intent and waits for its synchronous result:
// either the accepted order (possibly already filled, for market orders) or
// a specific rejection reason.
func (e *Engine) SubmitOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	reply := make(chan event.OrderResult, 1)
	ev := &event.OrderSubmitEvent{
		BaseEvent: event.BaseEvent{Seq: quant.NextSeq(&e.seq), Ts: quant.Now()},
		Order:     o,
		Reply:     reply,
	}

	select {
	case e.inbox <- ev:
	case <-ctx.Done():
		return domain.Order{}, ctx.Err()
	}

	select {
	case res := <-reply:
		return res.Order, res.Err
	case <-ctx.Done():
		return domain.Order{}, ctx.Err()
	}
}

// CancelOrder cancels an open order by ID.
func (e *Engine) CancelOrder(ctx context.Context, orderID string) error {
	reply := make(chan error, 1)
	ev := &event.OrderCancelEvent{
		BaseEvent: event.BaseEvent{Seq: quant.NextSeq(&e.seq), Ts: quant.Now()},
		OrderID:   orderID,
		Reply:     reply,
	}

	select {
	case e.inbox <- ev:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deposit adjusts the cash balance outside the fill path.
func (e *Engine) Deposit(ctx context.Context, amount quant.PriceMicros) error {
	reply := make(chan error, 1)
	ev := &event.DepositEvent{
		BaseEvent:    event.BaseEvent{Seq: quant.NextSeq(&e.seq), Ts: quant.Now()},
		AmountMicros: amount,
		Reply:        reply,
	}

	select {
	case e.inbox <- ev:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Portfolio returns a read-only portfolio snapshot.
func (e *Engine) Portfolio() domain.Portfolio {
	return e.ledger.Snapshot()
}

// Quotes returns a copy of every stored quote.
func (e *Engine) Quotes() map[string]domain.Quote {
	return e.store.Snapshot()
}

// AddAlert arms a target-price alert; direction is inferred from the
// current quote.
func (e *Engine) AddAlert(symbol string, target quant.PriceMicros, persistent bool) (domain.Alert, error) {
	q, ok := e.store.Get(symbol)
	if !ok {
		return domain.Alert{}, fmt.Errorf("%w: %s", ErrNoQuote, symbol)
	}

	a := domain.NewAlert(id.New(), symbol, target, q.PriceMicros, persistent)

	e.alertMu.Lock()
	e.alerts = append(e.alerts, a)
	e.alertMu.Unlock()
	return *a, nil
}

// Alerts returns a copy of the configured alerts.
func (e *Engine) Alerts() []domain.Alert {
	e.alertMu.Lock()
	defer e.alertMu.Unlock()

	out := make([]domain.Alert, 0, len(e.alerts))
	for _, a := range e.alerts {
		out = append(out, *a)
	}
	return out
}

// SetOnAlert registers the alert notification callback. Called from the
// engine goroutine; keep it fast.
func (e *Engine) SetOnAlert(fn AlertFunc) {
	e.alertMu.Lock()
	e.onAlert = fn
	e.alertMu.Unlock()
}

func (e *Engine) checkAlerts(q domain.Quote) {
	e.alertMu.Lock()
	defer e.alertMu.Unlock()

	for _, a := range e.alerts {
		if a.Symbol != q.Symbol {
			continue
		}
		if a.Check(q.PriceMicros) {
			slog.Info("Price alert fired",
				"alert", a.ID, "symbol", a.Symbol, "target", a.TargetPriceMicros, "price", q.PriceMicros)
			if e.onAlert != nil {
				e.onAlert(*a, q)
			}
		}
	}
}

// DumpState writes portfolio and quotes to a file for post-mortems.
func (e *Engine) DumpState(path string) {
	data := struct {
		Portfolio domain.Portfolio        `json:"portfolio"`
		Quotes    map[string]domain.Quote `json:"quotes"`
	}{
		Portfolio: e.ledger.Snapshot(),
		Quotes:    e.store.Snapshot(),
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state dump", "err", err)
		return
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		slog.Error("Failed to write state dump", "path", path, "err", err)
	}
}
