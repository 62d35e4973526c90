package domain

import "context"

// TradeRepository persists the trade list.
type TradeRepository interface {
	ListTrades(ctx context.Context) ([]Trade, error)
	GetTrade(ctx context.Context, id int64) (*Trade, error)
	// CreateTrades appends all trades or none.
	CreateTrades(ctx context.Context, trades []Trade) error
	UpdateTrade(ctx context.Context, trade *Trade) error
	DeleteTrade(ctx context.Context, id int64) error
	ClearTrades(ctx context.Context) error
	// RenameTradeAccount rewrites the account field and reports how many
	// trades changed.
	RenameTradeAccount(ctx context.Context, from, to string) (int, error)
}

// AccountRepository persists the ordered account set.
type AccountRepository interface {
	ListAccounts(ctx context.Context) ([]string, error)
	SaveAccounts(ctx context.Context, accounts []string) error
}

// OverheadRepository persists the overhead config.
type OverheadRepository interface {
	GetOverhead(ctx context.Context) (OverheadConfig, error)
	SaveOverhead(ctx context.Context, cfg OverheadConfig) error
}

// JournalStore is everything the journal service needs from storage.
// Implementations: in-memory, JSON files and Postgres.
type JournalStore interface {
	TradeRepository
	AccountRepository
	OverheadRepository
}
