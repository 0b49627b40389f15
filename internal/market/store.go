// Package market holds the quote store: the latest known price snapshot per
// instrument. Writes arrive only from the engine loop (single writer); the
// RWMutex exists for external readers such as the HTTP surface.
package market

import (
	"sync"

	"papertrade/internal/domain"
)

// QuoteStore keeps the most recent Quote per symbol. Entries are only ever
// replaced, never deleted.
type QuoteStore struct {
	mu     sync.RWMutex
	quotes map[string]*domain.Quote
}

// NewQuoteStore creates an empty store.
func NewQuoteStore() *QuoteStore {
	return &QuoteStore{quotes: make(map[string]*domain.Quote)}
}

// Upsert stores the quote unless a newer one is already present. A quote
// with a timestamp older than the stored one is rejected and the store is
// left unchanged; the return value reports whether the quote was applied.
func (s *QuoteStore) Upsert(q domain.Quote) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.quotes[q.Symbol]; ok && q.StalerThan(cur) {
		return false
	}
	stored := q
	s.quotes[q.Symbol] = &stored
	return true
}

// Seed inserts a placeholder quote only when the symbol has no entry yet, so
// a subscribe never leaves consumers without a price. Reports whether the
// placeholder was inserted.
func (s *QuoteStore) Seed(q domain.Quote) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.quotes[q.Symbol]; ok {
		return false
	}
	stored := q
	s.quotes[q.Symbol] = &stored
	return true
}

// Get returns a copy of the quote for a symbol.
func (s *QuoteStore) Get(symbol string) (domain.Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quotes[symbol]
	if !ok {
		return domain.Quote{}, false
	}
	return *q, true
}

// Snapshot returns a copy of every stored quote.
func (s *QuoteStore) Snapshot() map[string]domain.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.Quote, len(s.quotes))
	for sym, q := range s.quotes {
		out[sym] = *q
	}
	return out
}

// Len returns the number of symbols with a stored quote.
func (s *QuoteStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.quotes)
}
