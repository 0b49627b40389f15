// Package execution turns order intents into simulated fills against the
// current quote. Market orders fill immediately with bounded slippage;
// limit/stop orders wait in a pending book that is swept on every quote
// update for their symbol.
package execution

import (
	"errors"
	"fmt"

	"papertrade/internal/domain"
	"papertrade/internal/infra"
	"papertrade/pkg/quant"
	"papertrade/pkg/safe"
)

var (
	// ErrInsufficientBalance rejects a buy whose estimated cost (notional +
	// fee) exceeds available cash. Checked before the order exists, so the
	// balance can never go negative through order flow.
	ErrInsufficientBalance = errors.New("insufficient balance for order")
	// ErrUnknownOrder means the order is not in the pending book.
	ErrUnknownOrder = errors.New("order not found or not open")
)

// Fill is the realized outcome of an order: price, quantity and fee
// actually applied. Order points at the order that produced it, already in
// its terminal state.
type Fill struct {
	Order *domain.Order

	OrderID string
	Symbol  string
	Side    string

	PriceMicros quant.PriceMicros
	QtySats     quant.QtySats
	FeeMicros   quant.PriceMicros

	Ts quant.TimeStamp
}

// pendingOrder wraps an open order with simulator-side working state.
type pendingOrder struct {
	order *domain.Order
	// triggered marks a stop-limit whose stop leg fired; it then works as a
	// plain limit order.
	triggered bool
}

// Simulator resolves order intents deterministically enough: the only
// randomness is the injected noise source, so tests can seed it.
type Simulator struct {
	feeBps      int64
	slippageBps int64
	noise       *infra.Noise

	pending map[string][]*pendingOrder // keyed by symbol
	byID    map[string]*pendingOrder
}

// NewSimulator creates a simulator with proportional fee and slippage in
// basis points (10 bps = 0.1%).
func NewSimulator(feeBps, slippageBps int64, noise *infra.Noise) *Simulator {
	return &Simulator{
		feeBps:      feeBps,
		slippageBps: slippageBps,
		noise:       noise,
		pending:     make(map[string][]*pendingOrder),
		byID:        make(map[string]*pendingOrder),
	}
}

// Submit resolves an order intent against the current quote. A market order
// returns its fill immediately; limit/stop/stop-limit orders return a nil
// fill and stay pending until a later quote triggers them. The caller (the
// engine loop) applies the fill to the ledger in the same task, so fill and
// balance/position updates are atomic.
func (s *Simulator) Submit(o *domain.Order, quote domain.Quote, available quant.PriceMicros) (*Fill, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	if o.Side == domain.SideBuy {
		est := s.estimateCost(o, quote)
		if est > available {
			return nil, fmt.Errorf("%w: need %s, have %s",
				ErrInsufficientBalance, est, available)
		}
	}

	if o.Type == domain.OrderMarket {
		return s.fill(o, s.slip(quote.PriceMicros)), nil
	}

	p := &pendingOrder{order: o}
	s.pending[o.Symbol] = append(s.pending[o.Symbol], p)
	s.byID[o.ID] = p
	return nil, nil
}

// Cancel removes an open order from the pending book and marks it
// CANCELLED. Terminal orders cannot be cancelled.
func (s *Simulator) Cancel(orderID string) (*domain.Order, error) {
	p, ok := s.byID[orderID]
	if !ok {
		return nil, ErrUnknownOrder
	}
	if err := p.order.MarkCancelled(); err != nil {
		return nil, err
	}
	s.remove(p)
	return p.order, nil
}

// OnQuote sweeps the pending book for the quote's symbol and returns the
// fills it produced plus any buy orders cancelled for lack of funds at
// trigger time. Must run on every quote update; the engine guarantees that.
// available is the cash available at sweep start; a running budget accounts
// for earlier fills in the same sweep.
func (s *Simulator) OnQuote(q domain.Quote, available quant.PriceMicros) (fills []*Fill, rejected []*domain.Order) {
	if len(s.pending[q.Symbol]) == 0 {
		return nil, nil
	}

	// Sweep a snapshot: remove() compacts the live book in place and would
	// otherwise shift entries under the iteration.
	book := make([]*pendingOrder, len(s.pending[q.Symbol]))
	copy(book, s.pending[q.Symbol])

	budget := available
	for _, p := range book {
		price, ok := s.tryTrigger(p, q)
		if !ok {
			continue
		}

		if p.order.Side == domain.SideBuy {
			cost := quant.PriceMicros(safe.Add(
				int64(quant.Notional(price, p.order.QtySats)),
				int64(quant.FeeBps(quant.Notional(price, p.order.QtySats), s.feeBps))))
			if cost > budget {
				// Funds were spent since submission. Reject rather than let
				// the balance go negative.
				p.order.MarkCancelled()
				s.remove(p)
				rejected = append(rejected, p.order)
				continue
			}
			budget -= cost
		}

		f := s.fill(p.order, price)
		s.remove(p)
		fills = append(fills, f)
	}
	return fills, rejected
}

// tryTrigger decides whether a pending order fills at this quote, returning
// the fill price.
//
// Trigger policy: a stop converts to market once the quote crosses the stop
// price in the adverse direction for the holder (buy: quote >= stop, sell:
// quote <= stop). A limit fills only at a quote at or better than its price
// and executes at the quote, never worse. A stop-limit arms its limit leg
// when the stop crosses and is evaluated as a limit from then on.
func (s *Simulator) tryTrigger(p *pendingOrder, q domain.Quote) (quant.PriceMicros, bool) {
	o := p.order
	switch o.Type {
	case domain.OrderStop:
		if stopCrossed(o, q.PriceMicros) {
			return s.slip(q.PriceMicros), true
		}
	case domain.OrderLimit:
		if limitMarketable(o, q.PriceMicros) {
			return q.PriceMicros, true
		}
	case domain.OrderStopLimit:
		if !p.triggered {
			if !stopCrossed(o, q.PriceMicros) {
				return 0, false
			}
			p.triggered = true
		}
		if limitMarketable(o, q.PriceMicros) {
			return q.PriceMicros, true
		}
	}
	return 0, false
}

func stopCrossed(o *domain.Order, price quant.PriceMicros) bool {
	if o.Side == domain.SideBuy {
		return price >= o.StopPriceMicros
	}
	return price <= o.StopPriceMicros
}

func limitMarketable(o *domain.Order, price quant.PriceMicros) bool {
	if o.Side == domain.SideBuy {
		return price <= o.PriceMicros
	}
	return price >= o.PriceMicros
}

// PendingCount returns the number of open orders for a symbol.
func (s *Simulator) PendingCount(symbol string) int {
	return len(s.pending[symbol])
}

// estimateCost is the up-front affordability check for buys: notional at the
// most pessimistic known price plus fee. Market orders estimate at the fully
// slipped price, so acceptance implies the realized fill is affordable.
func (s *Simulator) estimateCost(o *domain.Order, quote domain.Quote) quant.PriceMicros {
	var ref quant.PriceMicros
	switch o.Type {
	case domain.OrderMarket:
		worst := safe.MulDiv(int64(quote.PriceMicros), s.slippageBps, quant.BpsScale)
		ref = quant.PriceMicros(safe.Add(int64(quote.PriceMicros), worst))
	case domain.OrderLimit, domain.OrderStopLimit:
		ref = o.PriceMicros
	case domain.OrderStop:
		ref = o.StopPriceMicros
	}
	notional := quant.Notional(ref, o.QtySats)
	return quant.PriceMicros(safe.Add(int64(notional), int64(quant.FeeBps(notional, s.feeBps))))
}

// slip applies the bounded random slippage term to a market-style fill.
func (s *Simulator) slip(price quant.PriceMicros) quant.PriceMicros {
	return s.noise.Perturb(price, s.slippageBps)
}

// fill finalizes an order at the given price with the proportional fee.
func (s *Simulator) fill(o *domain.Order, price quant.PriceMicros) *Fill {
	notional := quant.Notional(price, o.QtySats)
	fee := quant.FeeBps(notional, s.feeBps)

	o.MarkFilled(price, o.QtySats)

	return &Fill{
		Order:       o,
		OrderID:     o.ID,
		Symbol:      o.Symbol,
		Side:        o.Side,
		PriceMicros: price,
		QtySats:     o.QtySats,
		FeeMicros:   fee,
		Ts:          quant.Now(),
	}
}

func (s *Simulator) remove(p *pendingOrder) {
	delete(s.byID, p.order.ID)
	book := s.pending[p.order.Symbol]
	for i, cur := range book {
		if cur == p {
			s.pending[p.order.Symbol] = append(book[:i], book[i+1:]...)
			break
		}
	}
	if len(s.pending[p.order.Symbol]) == 0 {
		delete(s.pending, p.order.Symbol)
	}
}
