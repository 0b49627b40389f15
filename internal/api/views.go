package api

import (
	"papertrade/internal/domain"
	"papertrade/pkg/quant"
)

// View types convert fixed-point internals to decimal floats at the HTTP
// boundary. Only this package does the conversion; everything behind it
// stays int64.

type quoteView struct {
	Symbol      string  `json:"symbol"`
	Price       float64 `json:"price"`
	Bid         float64 `json:"bid,omitempty"`
	Ask         float64 `json:"ask,omitempty"`
	Change24h   float64 `json:"change_24h"`
	ChangePct   float64 `json:"change_pct_24h"`
	Volume      float64 `json:"volume_24h"`
	High24h     float64 `json:"high_24h"`
	Low24h      float64 `json:"low_24h"`
	UpdatedUnix int64   `json:"updated_unix_micro"`
}

func toQuoteView(q domain.Quote) quoteView {
	return quoteView{
		Symbol:      q.Symbol,
		Price:       q.PriceMicros.Float64(),
		Bid:         q.BidMicros.Float64(),
		Ask:         q.AskMicros.Float64(),
		Change24h:   float64(q.Change24hMicros) / quant.PriceScale,
		ChangePct:   float64(q.ChangePct24hMicros) / quant.PriceScale,
		Volume:      q.VolumeSats.Float64(),
		High24h:     q.High24hMicros.Float64(),
		Low24h:      q.Low24hMicros.Float64(),
		UpdatedUnix: int64(q.Ts),
	}
}

type orderView struct {
	ID        string  `json:"id"`
	Symbol    string  `json:"symbol"`
	Type      string  `json:"type"`
	Side      string  `json:"side"`
	Qty       float64 `json:"qty"`
	Price     float64 `json:"price,omitempty"`
	StopPrice float64 `json:"stop_price,omitempty"`
	Status    string  `json:"status"`
	FillPrice float64 `json:"fill_price,omitempty"`
	FillQty   float64 `json:"fill_qty,omitempty"`
	Created   int64   `json:"created_unix_micro"`
}

func toOrderView(o domain.Order) orderView {
	return orderView{
		ID:        o.ID,
		Symbol:    o.Symbol,
		Type:      o.Type,
		Side:      o.Side,
		Qty:       o.QtySats.Float64(),
		Price:     o.PriceMicros.Float64(),
		StopPrice: o.StopPriceMicros.Float64(),
		Status:    o.Status,
		FillPrice: o.FillPriceMicros.Float64(),
		FillQty:   o.FillQtySats.Float64(),
		Created:   int64(o.CreatedUnixM),
	}
}

type positionView struct {
	ID            string  `json:"id"`
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`
	Qty           float64 `json:"qty"`
	AvgPrice      float64 `json:"avg_price"`
	CurrentPrice  float64 `json:"current_price"`
	MarketValue   float64 `json:"market_value"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	Opened        int64   `json:"opened_unix_micro"`
}

func toPositionView(p domain.Position) positionView {
	return positionView{
		ID:            p.ID,
		Symbol:        p.Symbol,
		Side:          p.Side,
		Qty:           p.QtySats.Float64(),
		AvgPrice:      p.AvgPriceMicros.Float64(),
		CurrentPrice:  p.CurrentPriceMicros.Float64(),
		MarketValue:   p.MarketValueMicros().Float64(),
		UnrealizedPnL: float64(p.UnrealizedPnLMicros()) / quant.PriceScale,
		Opened:        int64(p.OpenedUnixM),
	}
}

type transactionView struct {
	ID     string  `json:"id"`
	Symbol string  `json:"symbol"`
	Side   string  `json:"side"`
	Qty    float64 `json:"qty"`
	Price  float64 `json:"price"`
	Fee    float64 `json:"fee"`
	Ts     int64   `json:"ts_unix_micro"`
}

func toTransactionView(tx domain.Transaction) transactionView {
	return transactionView{
		ID:     tx.ID,
		Symbol: tx.Symbol,
		Side:   tx.Side,
		Qty:    tx.QtySats.Float64(),
		Price:  tx.PriceMicros.Float64(),
		Fee:    tx.FeeMicros.Float64(),
		Ts:     int64(tx.Ts),
	}
}

type portfolioView struct {
	Balance        float64           `json:"balance"`
	InitialBalance float64           `json:"initial_balance"`
	TotalValue     float64           `json:"total_value"`
	PnL            float64           `json:"pnl"`
	PnLPct         float64           `json:"pnl_pct"`
	Positions      []positionView    `json:"positions"`
	Orders         []orderView       `json:"orders"`
	History        []transactionView `json:"history"`
}

func toPortfolioView(p domain.Portfolio) portfolioView {
	v := portfolioView{
		Balance:        p.BalanceMicros.Float64(),
		InitialBalance: p.InitialBalanceMicros.Float64(),
		TotalValue:     p.TotalValueMicros.Float64(),
		PnL:            float64(p.PnLMicros) / quant.PriceScale,
		PnLPct:         float64(p.PnLPctMicros) / quant.PriceScale,
		Positions:      make([]positionView, 0, len(p.Positions)),
		Orders:         make([]orderView, 0, len(p.Orders)),
		History:        make([]transactionView, 0, len(p.History)),
	}
	for _, pos := range p.Positions {
		v.Positions = append(v.Positions, toPositionView(pos))
	}
	for _, o := range p.Orders {
		v.Orders = append(v.Orders, toOrderView(o))
	}
	for _, tx := range p.History {
		v.History = append(v.History, toTransactionView(tx))
	}
	return v
}

type alertView struct {
	ID          string  `json:"id"`
	Symbol      string  `json:"symbol"`
	TargetPrice float64 `json:"target_price"`
	Direction   string  `json:"direction"`
	Active      bool    `json:"active"`
	Persistent  bool    `json:"persistent"`
}

func toAlertView(a domain.Alert) alertView {
	return alertView{
		ID:          a.ID,
		Symbol:      a.Symbol,
		TargetPrice: a.TargetPriceMicros.Float64(),
		Direction:   a.Direction,
		Active:      a.Active,
		Persistent:  a.Persistent,
	}
}
