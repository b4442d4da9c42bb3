package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lukechampine.com/uint128"

	"github.com/bullmarketlab/keymarket/internal/domain"
)

// SQLiteLedger is a Ledger persisted in SQLite. Amounts are stored as
// decimal text because SQLite integers are limited to 64 bits.
type SQLiteLedger struct {
	db *sql.DB
	q  querier
}

// NewSQLiteLedger creates a ledger over a database opened with OpenSQLite.
func NewSQLiteLedger(db *sql.DB) *SQLiteLedger {
	return &SQLiteLedger{db: db, q: db}
}

func (l *SQLiteLedger) LoadConfig(ctx context.Context) (domain.MarketConfig, error) {
	var cfg domain.MarketConfig
	var collector string
	err := l.q.QueryRowContext(ctx,
		"SELECT username, fee_denom, issuer_fee_collector FROM market_config WHERE id = 1",
	).Scan(&cfg.Username, &cfg.FeeDenom, &collector)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MarketConfig{}, domain.ErrNotInstantiated
	}
	if err != nil {
		return domain.MarketConfig{}, fmt.Errorf("load config: %w", err)
	}
	cfg.IssuerFeeCollector = domain.Address(collector)
	return cfg, nil
}

func (l *SQLiteLedger) SaveConfig(ctx context.Context, cfg domain.MarketConfig) error {
	res, err := l.q.ExecContext(ctx,
		`INSERT INTO market_config (id, username, fee_denom, issuer_fee_collector)
		 VALUES (1, ?, ?, ?) ON CONFLICT (id) DO NOTHING`,
		cfg.Username, cfg.FeeDenom, cfg.IssuerFeeCollector.String(),
	)
	if err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if n == 0 {
		return domain.ErrAlreadyInstantiated
	}
	return nil
}

func (l *SQLiteLedger) LoadSupply(ctx context.Context) (uint128.Uint128, error) {
	var raw string
	err := l.q.QueryRowContext(ctx, "SELECT supply FROM market_supply WHERE id = 1").Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return uint128.Zero, domain.ErrNotInstantiated
	}
	if err != nil {
		return uint128.Zero, fmt.Errorf("load supply: %w", err)
	}
	return parseAmount(raw)
}

func (l *SQLiteLedger) SaveSupply(ctx context.Context, supply uint128.Uint128) error {
	_, err := l.q.ExecContext(ctx,
		`INSERT INTO market_supply (id, supply) VALUES (1, ?)
		 ON CONFLICT (id) DO UPDATE SET supply = excluded.supply`,
		supply.String(),
	)
	if err != nil {
		return fmt.Errorf("save supply: %w", err)
	}
	return nil
}

func (l *SQLiteLedger) LoadHolder(ctx context.Context, holder domain.Address) (uint128.Uint128, bool, error) {
	var raw string
	err := l.q.QueryRowContext(ctx, "SELECT amount FROM holders WHERE address = ?", holder.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return uint128.Zero, false, nil
	}
	if err != nil {
		return uint128.Zero, false, fmt.Errorf("load holder: %w", err)
	}
	amount, err := parseAmount(raw)
	if err != nil {
		return uint128.Zero, false, err
	}
	return amount, true, nil
}

func (l *SQLiteLedger) SaveHolder(ctx context.Context, holder domain.Address, amount uint128.Uint128) error {
	if amount.IsZero() {
		return errZeroBalance
	}
	_, err := l.q.ExecContext(ctx,
		`INSERT INTO holders (address, amount) VALUES (?, ?)
		 ON CONFLICT (address) DO UPDATE SET amount = excluded.amount`,
		holder.String(), amount.String(),
	)
	if err != nil {
		return fmt.Errorf("save holder: %w", err)
	}
	return nil
}

func (l *SQLiteLedger) RemoveHolder(ctx context.Context, holder domain.Address) error {
	if _, err := l.q.ExecContext(ctx, "DELETE FROM holders WHERE address = ?", holder.String()); err != nil {
		return fmt.Errorf("remove holder: %w", err)
	}
	return nil
}

func (l *SQLiteLedger) Holders(ctx context.Context, startAfter domain.Address, limit int) ([]domain.Holding, error) {
	result := make([]domain.Holding, 0, max(limit, 0))
	if limit <= 0 {
		return result, nil
	}

	rows, err := l.q.QueryContext(ctx,
		"SELECT address, amount FROM holders WHERE address > ? ORDER BY address ASC LIMIT ?",
		startAfter.String(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list holders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var addr, raw string
		if err := rows.Scan(&addr, &raw); err != nil {
			return nil, fmt.Errorf("scan holder: %w", err)
		}
		amount, err := parseAmount(raw)
		if err != nil {
			return nil, err
		}
		result = append(result, domain.Holding{Holder: domain.Address(addr), Amount: amount})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list holders: %w", err)
	}
	return result, nil
}

// Update runs fn inside a SQL transaction, committing only on success.
func (l *SQLiteLedger) Update(ctx context.Context, fn func(tx Ledger) error) error {
	if _, nested := l.q.(*sql.Tx); nested {
		return fn(l)
	}

	sqlTx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&SQLiteLedger{db: l.db, q: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func parseAmount(raw string) (uint128.Uint128, error) {
	v, err := uint128.FromString(raw)
	if err != nil {
		return uint128.Zero, fmt.Errorf("parse stored amount %q: %w", raw, err)
	}
	return v, nil
}
