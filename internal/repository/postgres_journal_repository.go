package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"journal-backend/internal/domain"
)

const tradeColumns = `id, trade_date, trade_time, ticker, direction,
	entry_price, exit_price, stop_price, size, point_value, fees, pnl,
	duration_minutes, setup, mistake, account, notes, chart_image`

// PostgresJournalRepository stores the journal in Postgres.
// Trades keep insertion order through the seq column.
type PostgresJournalRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresJournalRepository(pool *pgxpool.Pool) *PostgresJournalRepository {
	return &PostgresJournalRepository{pool: pool}
}

func (r *PostgresJournalRepository) ListTrades(ctx context.Context) ([]domain.Trade, error) {
	rows, err := r.pool.Query(ctx, `select `+tradeColumns+` from journal_trades order by seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trades := make([]domain.Trade, 0)
	for rows.Next() {
		t, scanErr := scanTrade(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		trades = append(trades, *t)
	}
	return trades, rows.Err()
}

func (r *PostgresJournalRepository) GetTrade(ctx context.Context, id int64) (*domain.Trade, error) {
	row := r.pool.QueryRow(ctx, `select `+tradeColumns+` from journal_trades where id = $1`, id)

	t, err := scanTrade(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("trade %d: %w", id, domain.ErrTradeNotFound)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *PostgresJournalRepository) CreateTrades(ctx context.Context, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := range trades {
		t := &trades[i]
		_, err := tx.Exec(ctx, `
			insert into journal_trades(`+tradeColumns+`)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		`, tradeArgs(t)...)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return fmt.Errorf("trade %d: %w", t.ID, domain.ErrDuplicateTradeID)
			}
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PostgresJournalRepository) UpdateTrade(ctx context.Context, trade *domain.Trade) error {
	if trade == nil {
		return errors.New("nil trade")
	}

	tag, err := r.pool.Exec(ctx, `
		update journal_trades set
			trade_date=$2,
			trade_time=$3,
			ticker=$4,
			direction=$5,
			entry_price=$6,
			exit_price=$7,
			stop_price=$8,
			size=$9,
			point_value=$10,
			fees=$11,
			pnl=$12,
			duration_minutes=$13,
			setup=$14,
			mistake=$15,
			account=$16,
			notes=$17,
			chart_image=$18
		where id=$1
	`, tradeArgs(trade)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trade %d: %w", trade.ID, domain.ErrTradeNotFound)
	}
	return nil
}

func (r *PostgresJournalRepository) DeleteTrade(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `delete from journal_trades where id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trade %d: %w", id, domain.ErrTradeNotFound)
	}
	return nil
}

func (r *PostgresJournalRepository) ClearTrades(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `delete from journal_trades`)
	return err
}

func (r *PostgresJournalRepository) RenameTradeAccount(ctx context.Context, from, to string) (int, error) {
	tag, err := r.pool.Exec(ctx, `update journal_trades set account=$2 where coalesce(nullif(account,''),'Main')=$1`, from, to)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *PostgresJournalRepository) ListAccounts(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `select name from journal_accounts order by position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return domain.NormalizeAccounts(names), nil
}

func (r *PostgresJournalRepository) SaveAccounts(ctx context.Context, accounts []string) error {
	accounts = domain.NormalizeAccounts(accounts)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `delete from journal_accounts`); err != nil {
		return err
	}
	for i, name := range accounts {
		if _, err := tx.Exec(ctx, `insert into journal_accounts(name, position) values ($1,$2)`, name, i); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PostgresJournalRepository) GetOverhead(ctx context.Context) (domain.OverheadConfig, error) {
	row := r.pool.QueryRow(ctx, `
		select eval_cost, evals_per_month, pa_fees, comm_rate, risk_unit
		from journal_overhead
		where id = 1
	`)

	var cfg domain.OverheadConfig
	err := row.Scan(&cfg.EvalCost, &cfg.EvalsPerMonth, &cfg.PAFees, &cfg.CommRate, &cfg.RiskUnit)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DefaultOverhead(), nil
	}
	if err != nil {
		return domain.DefaultOverhead(), err
	}
	return cfg.Sanitize(), nil
}

func (r *PostgresJournalRepository) SaveOverhead(ctx context.Context, cfg domain.OverheadConfig) error {
	cfg = cfg.Sanitize()
	_, err := r.pool.Exec(ctx, `
		insert into journal_overhead(id, eval_cost, evals_per_month, pa_fees, comm_rate, risk_unit, updated_at)
		values (1,$1,$2,$3,$4,$5, now())
		on conflict (id) do update set
			eval_cost = excluded.eval_cost,
			evals_per_month = excluded.evals_per_month,
			pa_fees = excluded.pa_fees,
			comm_rate = excluded.comm_rate,
			risk_unit = excluded.risk_unit,
			updated_at = now()
	`, cfg.EvalCost, cfg.EvalsPerMonth, cfg.PAFees, cfg.CommRate, cfg.RiskUnit)
	return err
}

// Helpers

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (*domain.Trade, error) {
	var t domain.Trade
	var direction, mistake string
	var entry, exit, stop, duration pgtype.Float8

	if err := s.Scan(
		&t.ID,
		&t.Date,
		&t.Time,
		&t.Ticker,
		&direction,
		&entry,
		&exit,
		&stop,
		&t.Size,
		&t.PointValue,
		&t.Fees,
		&t.PnL,
		&duration,
		&t.Setup,
		&mistake,
		&t.Account,
		&t.Notes,
		&t.ChartImage,
	); err != nil {
		return nil, err
	}

	t.Direction = domain.Direction(direction)
	t.Mistake = domain.ParseMistake(mistake)
	t.Entry = numberFrom(entry)
	t.Exit = numberFrom(exit)
	t.Stop = numberFrom(stop)
	t.Duration = numberFrom(duration)
	return &t, nil
}

func tradeArgs(t *domain.Trade) []any {
	return []any{
		t.ID,
		t.Date,
		t.Time,
		t.Ticker,
		string(t.Direction),
		nullableNumber(t.Entry),
		nullableNumber(t.Exit),
		nullableNumber(t.Stop),
		t.Size,
		t.PointValue,
		t.Fees,
		t.PnL,
		nullableNumber(t.Duration),
		t.Setup,
		string(t.Mistake),
		t.Account,
		t.Notes,
		t.ChartImage,
	}
}

func nullableNumber(n domain.Number) any {
	if !n.Valid {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Valid: true, Float64: n.Value}
}

func numberFrom(f pgtype.Float8) domain.Number {
	if !f.Valid {
		return domain.Number{}
	}
	return domain.NewNumber(f.Float64)
}

// compile-time check
var _ domain.JournalStore = (*PostgresJournalRepository)(nil)
