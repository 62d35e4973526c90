package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"journal-backend/internal/domain"
)

const (
	tradesKey   = "journal_trades"
	accountsKey = "journal_accounts"
	overheadKey = "journal_overhead"
)

// FileJournalRepository keeps one JSON document per key in a directory and
// serves reads from memory. Missing or corrupt keys load as defaults.
type FileJournalRepository struct {
	*InMemoryJournalRepository

	dir    string
	logger *zap.Logger
	wmu    sync.Mutex // serializes mutate-and-flush
}

func NewFileJournalRepository(dir string, logger *zap.Logger) (*FileJournalRepository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &FileJournalRepository{
		InMemoryJournalRepository: NewInMemoryJournalRepository(),
		dir:                       dir,
		logger:                    logger,
	}

	var trades []domain.Trade
	if r.load(tradesKey, &trades) {
		r.replaceAll(trades)
	}
	var accounts []string
	if r.load(accountsKey, &accounts) {
		_ = r.InMemoryJournalRepository.SaveAccounts(context.Background(), accounts)
	}
	overhead := domain.DefaultOverhead()
	if r.load(overheadKey, &overhead) {
		_ = r.InMemoryJournalRepository.SaveOverhead(context.Background(), overhead)
	}
	return r, nil
}

func (r *FileJournalRepository) CreateTrades(ctx context.Context, trades []domain.Trade) error {
	return r.mutateTrades(ctx, func() error {
		return r.InMemoryJournalRepository.CreateTrades(ctx, trades)
	})
}

func (r *FileJournalRepository) UpdateTrade(ctx context.Context, trade *domain.Trade) error {
	return r.mutateTrades(ctx, func() error {
		return r.InMemoryJournalRepository.UpdateTrade(ctx, trade)
	})
}

func (r *FileJournalRepository) DeleteTrade(ctx context.Context, id int64) error {
	return r.mutateTrades(ctx, func() error {
		return r.InMemoryJournalRepository.DeleteTrade(ctx, id)
	})
}

func (r *FileJournalRepository) ClearTrades(ctx context.Context) error {
	return r.mutateTrades(ctx, func() error {
		return r.InMemoryJournalRepository.ClearTrades(ctx)
	})
}

func (r *FileJournalRepository) RenameTradeAccount(ctx context.Context, from, to string) (int, error) {
	var n int
	err := r.mutateTrades(ctx, func() error {
		var err error
		n, err = r.InMemoryJournalRepository.RenameTradeAccount(ctx, from, to)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *FileJournalRepository) SaveAccounts(ctx context.Context, accounts []string) error {
	r.wmu.Lock()
	defer r.wmu.Unlock()

	before, _ := r.InMemoryJournalRepository.ListAccounts(ctx)
	if err := r.InMemoryJournalRepository.SaveAccounts(ctx, accounts); err != nil {
		return err
	}
	stored, _ := r.InMemoryJournalRepository.ListAccounts(ctx)
	if err := r.write(accountsKey, stored); err != nil {
		_ = r.InMemoryJournalRepository.SaveAccounts(ctx, before)
		return err
	}
	return nil
}

func (r *FileJournalRepository) SaveOverhead(ctx context.Context, cfg domain.OverheadConfig) error {
	r.wmu.Lock()
	defer r.wmu.Unlock()

	before, _ := r.InMemoryJournalRepository.GetOverhead(ctx)
	if err := r.InMemoryJournalRepository.SaveOverhead(ctx, cfg); err != nil {
		return err
	}
	stored, _ := r.InMemoryJournalRepository.GetOverhead(ctx)
	if err := r.write(overheadKey, stored); err != nil {
		_ = r.InMemoryJournalRepository.SaveOverhead(ctx, before)
		return err
	}
	return nil
}

// mutateTrades applies fn in memory and flushes the trade list. A failed
// flush restores the list as it was before fn.
func (r *FileJournalRepository) mutateTrades(ctx context.Context, fn func() error) error {
	r.wmu.Lock()
	defer r.wmu.Unlock()

	before, _ := r.InMemoryJournalRepository.ListTrades(ctx)
	if err := fn(); err != nil {
		return err
	}
	after, _ := r.InMemoryJournalRepository.ListTrades(ctx)
	if err := r.write(tradesKey, after); err != nil {
		r.replaceAll(before)
		return err
	}
	return nil
}

func (r *FileJournalRepository) path(key string) string {
	return filepath.Join(r.dir, key+".json")
}

// load reports whether key held a usable document.
func (r *FileJournalRepository) load(key string, dst any) bool {
	data, err := os.ReadFile(r.path(key))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("reading journal key failed, using defaults", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		r.logger.Warn("corrupt journal key, using defaults", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// write replaces the key atomically via a temp file and rename. Callers
// hold wmu.
func (r *FileJournalRepository) write(key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(r.dir, key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), r.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// compile-time check
var _ domain.JournalStore = (*FileJournalRepository)(nil)
