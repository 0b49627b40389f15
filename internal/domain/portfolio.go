package domain

import "papertrade/pkg/quant"

// Portfolio is a read-only snapshot of the ledger state, handed to external
// collaborators. Derived fields (TotalValueMicros, PnLMicros, PnLPctMicros)
// are always recomputed from balance + positions + quotes, never mutated
// independently.
type Portfolio struct {
	BalanceMicros        quant.PriceMicros `json:"balance,string"`
	InitialBalanceMicros quant.PriceMicros `json:"initial_balance,string"`

	TotalValueMicros quant.PriceMicros `json:"total_value,string"`
	PnLMicros        int64             `json:"pnl,string"`
	// PnLPctMicros is a fraction scaled by 1e6 (0.01 = 1% = 10,000).
	PnLPctMicros int64 `json:"pnl_pct,string"`

	Positions []Position    `json:"positions"`
	Orders    []Order       `json:"orders"`
	History   []Transaction `json:"history"`
}
