package domain

import "papertrade/pkg/quant"

// Quote is the latest known price snapshot for a single instrument.
// All monetary values are strictly int64 fixed-point.
type Quote struct {
	Symbol string `json:"symbol"`

	PriceMicros quant.PriceMicros `json:"price,string"`
	BidMicros   quant.PriceMicros `json:"bid,string,omitempty"` // 0 = unknown
	AskMicros   quant.PriceMicros `json:"ask,string,omitempty"` // 0 = unknown

	// Change24hMicros is the absolute 24h price change.
	// ChangePct24hMicros is the 24h change as a fraction scaled by 1e6
	// (0.01 = 1% = 10,000).
	Change24hMicros    int64 `json:"change_24h,string"`
	ChangePct24hMicros int64 `json:"change_pct_24h,string"`

	VolumeSats    quant.QtySats     `json:"volume,string"`
	High24hMicros quant.PriceMicros `json:"high_24h,string"`
	Low24hMicros  quant.PriceMicros `json:"low_24h,string"`

	Ts quant.TimeStamp `json:"ts,string"`
}

// StalerThan reports whether q is older than the other quote. Equal
// timestamps are not stale: the feed may legitimately batch two updates into
// the same microsecond.
func (q *Quote) StalerThan(other *Quote) bool {
	return q.Ts < other.Ts
}
