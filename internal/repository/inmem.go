package repository

import (
	"context"
	"sync"

	"journal-backend/internal/domain"
)

// InMemoryJournalRepository keeps the whole journal in process memory.
// Trade methods live in trade_repository.go.
type InMemoryJournalRepository struct {
	mu       sync.RWMutex
	trades   []domain.Trade
	index    map[int64]int // id -> position in trades
	accounts []string
	overhead domain.OverheadConfig
}

func NewInMemoryJournalRepository() *InMemoryJournalRepository {
	return &InMemoryJournalRepository{
		trades:   []domain.Trade{},
		index:    make(map[int64]int),
		accounts: []string{domain.DefaultAccount},
		overhead: domain.DefaultOverhead(),
	}
}

func (r *InMemoryJournalRepository) ListAccounts(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]string, len(r.accounts))
	copy(result, r.accounts)
	return result, nil
}

func (r *InMemoryJournalRepository) SaveAccounts(_ context.Context, accounts []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.accounts = domain.NormalizeAccounts(accounts)
	return nil
}

func (r *InMemoryJournalRepository) GetOverhead(_ context.Context) (domain.OverheadConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.overhead, nil
}

func (r *InMemoryJournalRepository) SaveOverhead(_ context.Context, cfg domain.OverheadConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.overhead = cfg.Sanitize()
	return nil
}

// compile-time check
var _ domain.JournalStore = (*InMemoryJournalRepository)(nil)
