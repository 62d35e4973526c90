package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the journal tables.
// This keeps setup simple (no external migration tool), but still gives persistence.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`create table if not exists journal_trades (
			seq bigserial,
			id bigint primary key,
			trade_date text not null,
			trade_time text not null default '12:00',
			ticker text not null default '',
			direction text not null default 'Long',
			entry_price double precision null,
			exit_price double precision null,
			stop_price double precision null,
			size double precision not null default 1,
			point_value double precision not null default 1,
			fees double precision not null default 0,
			pnl double precision not null default 0,
			duration_minutes double precision null,
			setup text not null default 'Unknown',
			mistake text not null default 'None',
			account text not null default 'Main',
			notes text not null default '',
			chart_image text not null default '',
			created_at timestamptz not null default now()
		);`,
		`create index if not exists journal_trades_seq_idx on journal_trades(seq);`,
		`create index if not exists journal_trades_account_idx on journal_trades(account);`,
		`create index if not exists journal_trades_date_idx on journal_trades(trade_date, trade_time);`,
		`create table if not exists journal_accounts (
			name text primary key,
			position int not null default 0
		);`,
		`insert into journal_accounts(name, position) values ('Main', 0) on conflict do nothing;`,
		`create table if not exists journal_overhead (
			id int primary key check (id = 1),
			eval_cost double precision not null default 39,
			evals_per_month double precision not null default 1,
			pa_fees double precision not null default 0,
			comm_rate double precision not null default 2.53,
			risk_unit double precision not null default 150,
			updated_at timestamptz not null default now()
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
