package domain

import (
	"errors"
	"fmt"

	"papertrade/pkg/quant"
)

// Order types.
const (
	OrderMarket    = "MARKET"
	OrderLimit     = "LIMIT"
	OrderStop      = "STOP"
	OrderStopLimit = "STOP_LIMIT"
)

// Order sides.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Order statuses. FILLED and CANCELLED are terminal.
const (
	StatusPending   = "PENDING"
	StatusPartial   = "PARTIAL"
	StatusFilled    = "FILLED"
	StatusCancelled = "CANCELLED"
)

var (
	ErrInvalidQty    = errors.New("order quantity must be positive")
	ErrMissingPrice  = errors.New("limit price required and must be positive")
	ErrMissingStop   = errors.New("stop price required and must be positive")
	ErrTerminalOrder = errors.New("order is already filled or cancelled")
)

// Order represents a trading order intent and its lifecycle.
// All monetary values are strictly int64 fixed-point.
type Order struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Type   string `json:"type"`
	Side   string `json:"side"`

	QtySats         quant.QtySats     `json:"qty,string"`
	PriceMicros     quant.PriceMicros `json:"price,string,omitempty"`      // LIMIT / STOP_LIMIT
	StopPriceMicros quant.PriceMicros `json:"stop_price,string,omitempty"` // STOP / STOP_LIMIT

	Status          string            `json:"status"`
	FillPriceMicros quant.PriceMicros `json:"fill_price,string,omitempty"`
	FillQtySats     quant.QtySats     `json:"fill_qty,string,omitempty"`

	CreatedUnixM quant.TimeStamp `json:"created,string"`
}

// Validate checks the field constraints for the order's type.
func (o *Order) Validate() error {
	switch o.Type {
	case OrderMarket, OrderLimit, OrderStop, OrderStopLimit:
	default:
		return fmt.Errorf("unknown order type %q", o.Type)
	}
	switch o.Side {
	case SideBuy, SideSell:
	default:
		return fmt.Errorf("unknown order side %q", o.Side)
	}
	if o.QtySats <= 0 {
		return ErrInvalidQty
	}
	if (o.Type == OrderLimit || o.Type == OrderStopLimit) && o.PriceMicros <= 0 {
		return ErrMissingPrice
	}
	if (o.Type == OrderStop || o.Type == OrderStopLimit) && o.StopPriceMicros <= 0 {
		return ErrMissingStop
	}
	return nil
}

// IsOpen reports whether the order can still fill.
func (o *Order) IsOpen() bool {
	return o.Status == StatusPending || o.Status == StatusPartial
}

// IsTerminal reports whether the order reached a final state.
func (o *Order) IsTerminal() bool {
	return o.Status == StatusFilled || o.Status == StatusCancelled
}

// MarkFilled transitions the order to FILLED with its realized outcome.
// Terminal orders are immutable.
func (o *Order) MarkFilled(price quant.PriceMicros, qty quant.QtySats) error {
	if o.IsTerminal() {
		return ErrTerminalOrder
	}
	o.Status = StatusFilled
	o.FillPriceMicros = price
	o.FillQtySats = qty
	return nil
}

// MarkCancelled transitions the order to CANCELLED.
func (o *Order) MarkCancelled() error {
	if o.IsTerminal() {
		return ErrTerminalOrder
	}
	o.Status = StatusCancelled
	return nil
}
