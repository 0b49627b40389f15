package domain

import "papertrade/pkg/quant"

// Alert directions.
const (
	AlertUp   = "UP"
	AlertDown = "DOWN"
)

// Alert is a target-price watch on a symbol. Direction is inferred from the
// price at creation time: a target above the current price fires on the way
// up, a target below on the way down.
type Alert struct {
	ID                string            `json:"id"`
	Symbol            string            `json:"symbol"`
	TargetPriceMicros quant.PriceMicros `json:"target,string"`
	Direction         string            `json:"direction"`
	Persistent        bool              `json:"persistent"`
	Active            bool              `json:"active"`
	CreatedUnixM      quant.TimeStamp   `json:"created,string"`
}

// NewAlert creates an active alert with its direction inferred.
func NewAlert(alertID, symbol string, target, current quant.PriceMicros, persistent bool) *Alert {
	direction := AlertUp
	if target < current {
		direction = AlertDown
	}
	return &Alert{
		ID:                alertID,
		Symbol:            symbol,
		TargetPriceMicros: target,
		Direction:         direction,
		Persistent:        persistent,
		Active:            true,
		CreatedUnixM:      quant.Now(),
	}
}

// Check reports whether the alert fires at the given price. One-shot alerts
// deactivate on their first trigger; persistent alerts stay armed.
func (a *Alert) Check(price quant.PriceMicros) bool {
	if !a.Active {
		return false
	}
	var hit bool
	switch a.Direction {
	case AlertUp:
		hit = price >= a.TargetPriceMicros
	case AlertDown:
		hit = price <= a.TargetPriceMicros
	}
	if hit && !a.Persistent {
		a.Active = false
	}
	return hit
}
