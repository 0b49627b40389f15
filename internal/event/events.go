package event

import (
	"papertrade/internal/domain"
	"papertrade/pkg/quant"
)

// Type defines the type of event.
type Type uint16

const (
	EvQuote Type = iota + 1
	EvOrderSubmit
	EvOrderCancel
	EvDeposit
)

// Event is the interface for everything that enters the engine inbox.
type Event interface {
	GetSeq() uint64
	GetTs() quant.TimeStamp
	GetType() Type
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	Seq uint64          `json:"seq"`
	Ts  quant.TimeStamp `json:"ts"`
}

func (e BaseEvent) GetSeq() uint64         { return e.Seq }
func (e BaseEvent) GetTs() quant.TimeStamp { return e.Ts }

// QuoteEvent carries one inbound price tick.
type QuoteEvent struct {
	BaseEvent
	Quote domain.Quote `json:"quote"`
}

func (e QuoteEvent) GetType() Type { return EvQuote }

// OrderResult is the synchronous reply for an order submission.
type OrderResult struct {
	Order domain.Order
	Err   error
}

// OrderSubmitEvent carries an order intent from a collaborator. The engine
// replies exactly once on Reply.
type OrderSubmitEvent struct {
	BaseEvent
	Order domain.Order
	Reply chan OrderResult
}

func (e OrderSubmitEvent) GetType() Type { return EvOrderSubmit }

// OrderCancelEvent requests cancellation of an open order.
type OrderCancelEvent struct {
	BaseEvent
	OrderID string
	Reply   chan error
}

func (e OrderCancelEvent) GetType() Type { return EvOrderCancel }

// DepositEvent adjusts the cash balance outside the fill path.
type DepositEvent struct {
	BaseEvent
	AmountMicros quant.PriceMicros
	Reply        chan error
}

func (e DepositEvent) GetType() Type { return EvDeposit }
