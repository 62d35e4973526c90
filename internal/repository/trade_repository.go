package repository

import (
	"context"
	"fmt"

	"journal-backend/internal/domain"
)

// ListTrades returns a copy of the trade list in insertion order.
func (r *InMemoryJournalRepository) ListTrades(_ context.Context) ([]domain.Trade, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Trade, len(r.trades))
	copy(result, r.trades)
	return result, nil
}

// GetTrade retrieves a trade by ID
func (r *InMemoryJournalRepository) GetTrade(_ context.Context, id int64) (*domain.Trade, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pos, exists := r.index[id]
	if !exists {
		return nil, fmt.Errorf("trade %d: %w", id, domain.ErrTradeNotFound)
	}
	t := r.trades[pos]
	return &t, nil
}

// CreateTrades appends a batch. Any duplicate id rejects the whole batch.
func (r *InMemoryJournalRepository) CreateTrades(_ context.Context, trades []domain.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[int64]bool, len(trades))
	for _, t := range trades {
		if _, exists := r.index[t.ID]; exists || seen[t.ID] {
			return fmt.Errorf("trade %d: %w", t.ID, domain.ErrDuplicateTradeID)
		}
		seen[t.ID] = true
	}

	for _, t := range trades {
		r.index[t.ID] = len(r.trades)
		r.trades = append(r.trades, t)
	}
	return nil
}

// UpdateTrade replaces the trade with the same id.
func (r *InMemoryJournalRepository) UpdateTrade(_ context.Context, trade *domain.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos, exists := r.index[trade.ID]
	if !exists {
		return fmt.Errorf("trade %d: %w", trade.ID, domain.ErrTradeNotFound)
	}
	r.trades[pos] = *trade
	return nil
}

// DeleteTrade removes a trade
func (r *InMemoryJournalRepository) DeleteTrade(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos, exists := r.index[id]
	if !exists {
		return fmt.Errorf("trade %d: %w", id, domain.ErrTradeNotFound)
	}

	r.trades = append(r.trades[:pos], r.trades[pos+1:]...)
	r.reindex()
	return nil
}

func (r *InMemoryJournalRepository) ClearTrades(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.trades = []domain.Trade{}
	r.index = make(map[int64]int)
	return nil
}

func (r *InMemoryJournalRepository) RenameTradeAccount(_ context.Context, from, to string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for i := range r.trades {
		if r.trades[i].AccountName() == from {
			r.trades[i].Account = to
			n++
		}
	}
	return n, nil
}

// replaceAll swaps in a full trade list, used when loading from disk.
func (r *InMemoryJournalRepository) replaceAll(trades []domain.Trade) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.trades = make([]domain.Trade, 0, len(trades))
	r.index = make(map[int64]int, len(trades))
	for _, t := range trades {
		if _, dup := r.index[t.ID]; dup {
			continue
		}
		r.index[t.ID] = len(r.trades)
		r.trades = append(r.trades, t)
	}
}

func (r *InMemoryJournalRepository) reindex() {
	r.index = make(map[int64]int, len(r.trades))
	for i, t := range r.trades {
		r.index[t.ID] = i
	}
}
