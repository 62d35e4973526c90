package usecase

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"journal-backend/internal/domain"
)

// ErrNoReport is returned when the filters leave nothing to report on.
var ErrNoReport = errors.New("no trades match the current filters")

const DefaultCalendarDays = 28

var exportHeader = []string{"Date", "Time", "Ticker", "Direction", "Entry", "Exit", "PnL", "Account"}

// TradeView is a trade as listed to clients.
type TradeView struct {
	domain.Trade
	RMultiple float64 `json:"rMultiple"`
}

// JournalService owns the trade list, account set and overhead config and
// recomputes reports from scratch on every read.
type JournalService struct {
	store   domain.JournalStore
	balance float64
	alerts  *CoachAlerter
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex // serializes mutations
	lastID  int64
	version atomic.Int64
}

func NewJournalService(store domain.JournalStore, startingBalance float64, alerts *CoachAlerter, logger *zap.Logger) *JournalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JournalService{
		store:   store,
		balance: startingBalance,
		alerts:  alerts,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock replaces the time source used for ids and default dates.
func (s *JournalService) SetClock(now func() time.Time) {
	s.now = now
}

// Version increases on every successful mutation.
func (s *JournalService) Version() int64 {
	return s.version.Load()
}

func (s *JournalService) StartingBalance() float64 {
	return s.balance
}

// Trades

func (s *JournalService) AddTrade(ctx context.Context, in domain.TradeInput) (*domain.Trade, error) {
	s.mu.Lock()
	trades, err := s.store.ListTrades(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	cfg := s.overhead(ctx)
	now := s.now()

	t := in.Build(s.nextID(now, trades), cfg, now)
	if err := s.store.CreateTrades(ctx, []domain.Trade{t}); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.version.Add(1)
	s.mu.Unlock()

	s.logger.Info("trade added",
		zap.Int64("id", t.ID),
		zap.String("ticker", t.Ticker),
		zap.String("account", t.Account),
		zap.Float64("pnl", t.PnL))
	s.coach(ctx)
	return &t, nil
}

// EditTrade replaces the trade with id, keeping the id.
func (s *JournalService) EditTrade(ctx context.Context, id int64, in domain.TradeInput) (*domain.Trade, error) {
	s.mu.Lock()
	if _, err := s.store.GetTrade(ctx, id); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	t := in.Build(id, s.overhead(ctx), s.now())
	if err := s.store.UpdateTrade(ctx, &t); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.version.Add(1)
	s.mu.Unlock()

	s.logger.Info("trade updated", zap.Int64("id", id))
	s.coach(ctx)
	return &t, nil
}

func (s *JournalService) DeleteTrade(ctx context.Context, id int64) error {
	s.mu.Lock()
	err := s.store.DeleteTrade(ctx, id)
	if err == nil {
		s.version.Add(1)
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.logger.Info("trade deleted", zap.Int64("id", id))
	s.coach(ctx)
	return nil
}

func (s *JournalService) ClearTrades(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.ClearTrades(ctx); err != nil {
		return err
	}
	s.version.Add(1)
	s.logger.Info("all trades cleared")
	return nil
}

func (s *JournalService) GetTrade(ctx context.Context, id int64) (*TradeView, error) {
	t, err := s.store.GetTrade(ctx, id)
	if err != nil {
		return nil, err
	}
	cfg := s.overhead(ctx)
	return &TradeView{Trade: *t, RMultiple: t.RMultiple(cfg.RiskUnit)}, nil
}

// ListTrades returns matching trades, newest first.
func (s *JournalService) ListTrades(ctx context.Context, filters domain.Filters) ([]TradeView, error) {
	trades, err := s.store.ListTrades(ctx)
	if err != nil {
		return nil, err
	}
	cfg := s.overhead(ctx)

	matched := filters.Apply(trades)
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i].SortKey(), matched[j].SortKey()
		if a != b {
			return a > b
		}
		return matched[i].ID > matched[j].ID
	})

	views := make([]TradeView, len(matched))
	for i, t := range matched {
		views[i] = TradeView{Trade: t, RMultiple: t.RMultiple(cfg.RiskUnit)}
	}
	return views, nil
}

// Import parses a broker CSV export and appends its rows in one batch.
// Nothing is written when the format is unrecognized or no rows parse.
func (s *JournalService) Import(ctx context.Context, text, selectedAccount string) (*ImportResult, error) {
	s.mu.Lock()
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	trades, err := s.store.ListTrades(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	now := s.now()
	baseID := now.UnixMilli()
	if baseID < s.lastID {
		baseID = s.lastID
	}
	for _, t := range trades {
		if t.ID > baseID {
			baseID = t.ID
		}
	}

	res, err := ImportCSV(text, ImportOptions{
		Account: domain.ImportAccount(selectedAccount, accounts),
		BaseID:  baseID,
		Now:     now,
	})
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if len(res.Trades) == 0 {
		s.mu.Unlock()
		return res, nil
	}

	if err := s.store.CreateTrades(ctx, res.Trades); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.lastID = res.Trades[len(res.Trades)-1].ID
	s.version.Add(1)
	s.mu.Unlock()

	s.logger.Info("csv imported",
		zap.String("batch", res.BatchID.String()),
		zap.Stringer("dialect", res.Dialect),
		zap.Int("trades", len(res.Trades)),
		zap.Int("skipped", res.Skipped),
		zap.Int("warnings", len(res.Warnings)))
	s.coach(ctx)
	return res, nil
}

// Accounts

func (s *JournalService) Accounts(ctx context.Context) ([]string, error) {
	return s.store.ListAccounts(ctx)
}

func (s *JournalService) AddAccount(ctx context.Context, name string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	set, err = domain.AddAccount(set, name)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveAccounts(ctx, set); err != nil {
		return nil, err
	}
	s.version.Add(1)
	return set, nil
}

// RenameAccount renames an account and rewrites it on every trade. It
// returns how many trades moved.
func (s *JournalService) RenameAccount(ctx context.Context, from, to string) (int, error) {
	to = strings.TrimSpace(to)

	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.store.ListAccounts(ctx)
	if err != nil {
		return 0, err
	}
	renamed, err := domain.RenameAccount(set, from, to)
	if err != nil {
		return 0, err
	}
	if err := s.store.SaveAccounts(ctx, renamed); err != nil {
		return 0, err
	}
	n, err := s.store.RenameTradeAccount(ctx, from, to)
	if err != nil {
		if rbErr := s.store.SaveAccounts(ctx, set); rbErr != nil {
			s.logger.Error("restoring account set after failed rename", zap.String("from", from), zap.Error(rbErr))
		}
		return 0, fmt.Errorf("renaming trades from %q: %w", from, err)
	}
	s.version.Add(1)

	s.logger.Info("account renamed", zap.String("from", from), zap.String("to", to), zap.Int("trades", n))
	return n, nil
}

// DeleteAccount removes the name from the set only; trades keep it.
func (s *JournalService) DeleteAccount(ctx context.Context, name string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	set, err = domain.RemoveAccount(set, name)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveAccounts(ctx, set); err != nil {
		return nil, err
	}
	s.version.Add(1)
	return set, nil
}

// Overhead

func (s *JournalService) Overhead(ctx context.Context) domain.OverheadConfig {
	return s.overhead(ctx)
}

func (s *JournalService) UpdateOverhead(ctx context.Context, cfg domain.OverheadConfig) (domain.OverheadConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg = cfg.Sanitize()
	if err := s.store.SaveOverhead(ctx, cfg); err != nil {
		return domain.OverheadConfig{}, err
	}
	s.version.Add(1)
	return cfg, nil
}

// Reports

// Report returns nil without error when no trades match.
func (s *JournalService) Report(ctx context.Context, filters domain.Filters) (*domain.Report, error) {
	trades, err := s.store.ListTrades(ctx)
	if err != nil {
		return nil, err
	}

	r := ComputeReport(trades, s.balance, s.overhead(ctx), filters)
	if r == nil && len(filters.Apply(trades)) > 0 {
		s.logger.Warn("insufficient data for report", zap.Any("filters", filters))
	}
	return r, nil
}

// ExportReport writes the plain-text summary.
func (s *JournalService) ExportReport(ctx context.Context, filters domain.Filters, w io.Writer) error {
	r, err := s.Report(ctx, filters)
	if err != nil {
		return err
	}
	if r == nil {
		return ErrNoReport
	}
	_, err = io.WriteString(w, r.SummaryText)
	return err
}

// ExportCSV writes every trade in stored order.
func (s *JournalService) ExportCSV(ctx context.Context, w io.Writer) error {
	trades, err := s.store.ListTrades(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, t := range trades {
		row := []string{
			t.Date,
			t.Time,
			t.Ticker,
			string(t.Direction),
			formatNumber(t.Entry),
			formatNumber(t.Exit),
			domain.FormatCents(t.PnL),
			t.AccountName(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *JournalService) FilterOptions(ctx context.Context) (FilterOptions, error) {
	trades, err := s.store.ListTrades(ctx)
	if err != nil {
		return FilterOptions{}, err
	}
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return FilterOptions{}, err
	}
	return BuildFilterOptions(trades, accounts), nil
}

// Calendar returns daily pnl of matching trades for the last days days.
func (s *JournalService) Calendar(ctx context.Context, filters domain.Filters, days int) ([]domain.DayPnL, error) {
	trades, err := s.store.ListTrades(ctx)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = DefaultCalendarDays
	}
	return DailyPnL(filters.Apply(trades), days, s.now()), nil
}

// overhead falls back to defaults when the store cannot be read.
func (s *JournalService) overhead(ctx context.Context) domain.OverheadConfig {
	cfg, err := s.store.GetOverhead(ctx)
	if err != nil {
		s.logger.Warn("reading overhead config failed, using defaults", zap.Error(err))
		return domain.DefaultOverhead()
	}
	return cfg
}

// nextID returns a millisecond timestamp id, bumped until unique. Callers
// hold s.mu.
func (s *JournalService) nextID(now time.Time, existing []domain.Trade) int64 {
	taken := make(map[int64]bool, len(existing))
	for _, t := range existing {
		taken[t.ID] = true
	}

	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	for taken[id] {
		id++
	}
	s.lastID = id
	return id
}

// coach pushes pain points of the unfiltered report.
func (s *JournalService) coach(ctx context.Context) {
	if !s.alerts.enabled() {
		return
	}
	r, err := s.Report(ctx, domain.Filters{})
	if err != nil || r == nil {
		return
	}
	s.alerts.Notify(ctx, r)
}

func formatNumber(n domain.Number) string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}
