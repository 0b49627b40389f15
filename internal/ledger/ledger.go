// Package ledger keeps cash balance, open positions and the transaction
// history consistent under a stream of fills and price updates. All writes
// arrive from the engine loop (single writer); the RWMutex protects
// external snapshot readers.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"papertrade/internal/domain"
	"papertrade/pkg/id"
	"papertrade/pkg/quant"
	"papertrade/pkg/safe"
)

var (
	// ErrInsufficientFunds guards the balance invariant inside the fill
	// path. The simulator pre-checks affordability, so hitting this means a
	// caller bug, not a user error.
	ErrInsufficientFunds = errors.New("fill exceeds available balance")
	// ErrNegativeBalance rejects withdrawal adjustments beyond cash.
	ErrNegativeBalance = errors.New("adjustment would drive balance negative")
)

// Ledger owns one portfolio. Derived aggregates (total value, P&L) are
// always recomputed from balance + positions + quotes; they are never
// independently mutated state that can drift.
type Ledger struct {
	mu sync.RWMutex

	balanceMicros quant.PriceMicros
	initialMicros quant.PriceMicros

	positions map[string]*domain.Position // keyed by symbol, unique
	orders    map[string]domain.Order
	orderSeq  []string // submission order, for stable listings
	history   []domain.Transaction

	totalValueMicros quant.PriceMicros
	pnlMicros        int64
	pnlPctMicros     int64
}

// New creates a ledger with the given starting cash.
func New(initial quant.PriceMicros) *Ledger {
	return &Ledger{
		balanceMicros:    initial,
		initialMicros:    initial,
		positions:        make(map[string]*domain.Position),
		orders:           make(map[string]domain.Order),
		totalValueMicros: initial,
	}
}

// AvailableMicros returns the cash available for new buys.
func (l *Ledger) AvailableMicros() quant.PriceMicros {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balanceMicros
}

// PositionQty returns the held quantity for a symbol, zero when flat.
func (l *Ledger) PositionQty(symbol string) quant.QtySats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if pos, ok := l.positions[symbol]; ok {
		return pos.QtySats
	}
	return 0
}

// RecordOrder stores a copy of a newly accepted order.
func (l *Ledger) RecordOrder(o domain.Order) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.orders[o.ID]; !ok {
		l.orderSeq = append(l.orderSeq, o.ID)
	}
	l.orders[o.ID] = o
}

// UpdateOrder overwrites the stored copy after a status change.
func (l *Ledger) UpdateOrder(o domain.Order) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.orders[o.ID]; ok {
		l.orders[o.ID] = o
	}
}

// Order returns a copy of a stored order.
func (l *Ledger) Order(orderID string) (domain.Order, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	o, ok := l.orders[orderID]
	return o, ok
}

// ApplyFill applies a fill's balance and position side effects and appends
// the transaction record. The engine calls this in the same task that
// produced the fill, so a fill is never recorded without its balance and
// position update.
//
// Buys re-weight the cost basis:
//
//	newAvg = (oldQty*oldAvg + fillQty*fillPrice) / (oldQty + fillQty)
//
// Sells beyond the held quantity are a consistency violation and are
// rejected, never silently corrected; positions reaching zero quantity are
// removed.
func (l *Ledger) ApplyFill(o domain.Order, price quant.PriceMicros, qty quant.QtySats, fee quant.PriceMicros, ts quant.TimeStamp) (domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	notional := quant.Notional(price, qty)

	switch o.Side {
	case domain.SideBuy:
		cost := quant.PriceMicros(safe.Add(int64(notional), int64(fee)))
		if cost > l.balanceMicros {
			return domain.Transaction{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, cost, l.balanceMicros)
		}
		l.balanceMicros -= cost

		pos, ok := l.positions[o.Symbol]
		if !ok {
			l.positions[o.Symbol] = &domain.Position{
				ID:                 id.New(),
				Symbol:             o.Symbol,
				Side:               domain.SideLong,
				QtySats:            qty,
				AvgPriceMicros:     price,
				CurrentPriceMicros: price,
				OpenedUnixM:        ts,
			}
		} else {
			pos.Increase(qty, price)
		}

	case domain.SideSell:
		pos, ok := l.positions[o.Symbol]
		if !ok {
			return domain.Transaction{}, fmt.Errorf("%w: no open position in %s", domain.ErrOversell, o.Symbol)
		}
		if err := pos.Reduce(qty); err != nil {
			return domain.Transaction{}, err
		}
		if pos.QtySats == 0 {
			delete(l.positions, o.Symbol)
		}
		l.balanceMicros = quant.PriceMicros(safe.Add(int64(l.balanceMicros), safe.Sub(int64(notional), int64(fee))))

	default:
		return domain.Transaction{}, fmt.Errorf("unknown order side %q", o.Side)
	}

	if stored, ok := l.orders[o.ID]; ok {
		stored.Status = o.Status
		stored.FillPriceMicros = o.FillPriceMicros
		stored.FillQtySats = o.FillQtySats
		l.orders[o.ID] = stored
	}

	tx := domain.Transaction{
		ID:          id.New(),
		Symbol:      o.Symbol,
		Side:        o.Side,
		QtySats:     qty,
		PriceMicros: price,
		FeeMicros:   fee,
		Ts:          ts,
	}
	l.history = append(l.history, tx)
	return tx, nil
}

// AdjustBalance applies a direct cash adjustment outside the fill path
// (deposits, external fees). Withdrawals beyond cash are rejected.
func (l *Ledger) AdjustBalance(delta quant.PriceMicros) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := quant.PriceMicros(safe.Add(int64(l.balanceMicros), int64(delta)))
	if next < 0 {
		return fmt.Errorf("%w: balance %s, adjustment %s", ErrNegativeBalance, l.balanceMicros, delta)
	}
	l.balanceMicros = next
	return nil
}

// Revalue refreshes each position's current price from the quotes (keeping
// the last known price when a quote is missing, never blocking) and
// recomputes the derived aggregates. Idempotent: the same quotes always
// produce the same result.
func (l *Ledger) Revalue(quotes map[string]domain.Quote) {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := int64(l.balanceMicros)
	for sym, pos := range l.positions {
		if q, ok := quotes[sym]; ok {
			pos.CurrentPriceMicros = q.PriceMicros
		}
		total = safe.Add(total, int64(pos.MarketValueMicros()))
	}

	l.totalValueMicros = quant.PriceMicros(total)
	l.pnlMicros = safe.Sub(total, int64(l.initialMicros))
	l.pnlPctMicros = quant.FractionMicros(l.pnlMicros, int64(l.initialMicros))
}

// Snapshot returns a read-only copy of the whole portfolio for external
// collaborators.
func (l *Ledger) Snapshot() domain.Portfolio {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p := domain.Portfolio{
		BalanceMicros:        l.balanceMicros,
		InitialBalanceMicros: l.initialMicros,
		TotalValueMicros:     l.totalValueMicros,
		PnLMicros:            l.pnlMicros,
		PnLPctMicros:         l.pnlPctMicros,
		Positions:            make([]domain.Position, 0, len(l.positions)),
		Orders:               make([]domain.Order, 0, len(l.orderSeq)),
		History:              make([]domain.Transaction, len(l.history)),
	}

	for _, pos := range l.positions {
		p.Positions = append(p.Positions, *pos)
	}
	sort.Slice(p.Positions, func(i, j int) bool { return p.Positions[i].Symbol < p.Positions[j].Symbol })

	for _, oid := range l.orderSeq {
		p.Orders = append(p.Orders, l.orders[oid])
	}
	copy(p.History, l.history)
	return p
}
