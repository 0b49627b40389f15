package event

import "sync"

// quotePool recycles QuoteEvent allocations on the tick hot path. Every
// subscribed symbol produces an event per second (synthetic mode) or per
// exchange batch (live mode), so this is the only allocation-sensitive spot.
var quotePool = sync.Pool{
	New: func() any { return new(QuoteEvent) },
}

// AcquireQuoteEvent returns a zeroed QuoteEvent from the pool.
func AcquireQuoteEvent() *QuoteEvent {
	return quotePool.Get().(*QuoteEvent)
}

// ReleaseQuoteEvent resets the event and returns it to the pool. The caller
// must not touch the event afterwards.
func ReleaseQuoteEvent(ev *QuoteEvent) {
	*ev = QuoteEvent{}
	quotePool.Put(ev)
}

// Warmup pre-populates the pool so the first ticks do not allocate.
func Warmup() {
	events := make([]*QuoteEvent, 0, 64)
	for i := 0; i < 64; i++ {
		events = append(events, AcquireQuoteEvent())
	}
	for _, ev := range events {
		ReleaseQuoteEvent(ev)
	}
}
