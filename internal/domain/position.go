package domain

import (
	"errors"

	"papertrade/pkg/quant"
	"papertrade/pkg/safe"
)

// Position sides. Short positions are not opened implicitly; the field
// exists for read-surface fidelity.
const (
	SideLong  = "LONG"
	SideShort = "SHORT"
)

// ErrOversell is returned when a sell exceeds the held quantity.
var ErrOversell = errors.New("sell quantity exceeds held position")

// Position is an open holding in a single instrument.
// All monetary values are strictly int64 fixed-point.
type Position struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Side   string `json:"side"`

	QtySats            quant.QtySats     `json:"qty,string"`
	AvgPriceMicros     quant.PriceMicros `json:"avg_price,string"`
	CurrentPriceMicros quant.PriceMicros `json:"current_price,string"`

	OpenedUnixM quant.TimeStamp `json:"opened,string"`
}

// Increase adds quantity at the given fill price, re-weighting the
// volume-weighted cost basis:
//
//	newAvg = (oldQty*oldAvg + fillQty*fillPrice) / (oldQty + fillQty)
func (p *Position) Increase(qty quant.QtySats, price quant.PriceMicros) {
	oldCost := quant.Notional(p.AvgPriceMicros, p.QtySats)
	addCost := quant.Notional(price, qty)
	newQty := safe.Add(int64(p.QtySats), int64(qty))

	totalCost := safe.Add(int64(oldCost), int64(addCost))
	p.AvgPriceMicros = quant.PriceMicros(safe.MulDiv(totalCost, quant.QtyScale, newQty))
	p.QtySats = quant.QtySats(newQty)
}

// Reduce removes quantity from the position. The caller removes the position
// entirely once QtySats reaches zero; a zero-quantity position is never kept.
func (p *Position) Reduce(qty quant.QtySats) error {
	if qty > p.QtySats {
		return ErrOversell
	}
	p.QtySats -= qty
	return nil
}

// MarketValueMicros is the position value at the last revaluation price.
func (p *Position) MarketValueMicros() quant.PriceMicros {
	return quant.Notional(p.CurrentPriceMicros, p.QtySats)
}

// UnrealizedPnLMicros is the gain over cost basis at the current price.
func (p *Position) UnrealizedPnLMicros() int64 {
	cur := quant.Notional(p.CurrentPriceMicros, p.QtySats)
	cost := quant.Notional(p.AvgPriceMicros, p.QtySats)
	return safe.Sub(int64(cur), int64(cost))
}
