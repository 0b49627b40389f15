package domain

import "papertrade/pkg/quant"

// Transaction is the immutable record of one applied fill. The ledger
// history is append-only; transactions are never mutated or deleted.
type Transaction struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Side   string `json:"side"` // BUY or SELL

	QtySats     quant.QtySats     `json:"qty,string"`
	PriceMicros quant.PriceMicros `json:"price,string"`
	FeeMicros   quant.PriceMicros `json:"fee,string"`

	Ts quant.TimeStamp `json:"ts,string"`
}
