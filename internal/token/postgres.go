package token

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists balances and allowances in PostgreSQL. Amounts are
// stored as NUMERIC so the full 128-bit range round-trips exactly.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the ledger tables when they do not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	const schema = `
        CREATE TABLE IF NOT EXISTS token_supply (
            singleton BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
            supply    NUMERIC NOT NULL CHECK (supply >= 0)
        );
        CREATE TABLE IF NOT EXISTS token_balances (
            account UUID PRIMARY KEY,
            amount  NUMERIC NOT NULL CHECK (amount > 0)
        );
        CREATE TABLE IF NOT EXISTS token_allowances (
            owner   UUID NOT NULL,
            spender UUID NOT NULL,
            amount  NUMERIC NOT NULL CHECK (amount > 0),
            PRIMARY KEY (owner, spender)
        );`
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate token schema: %w", err)
	}
	return nil
}

// Supply returns the persisted total supply, if one has been recorded.
func (s *PostgresStore) Supply(ctx context.Context) (Amount, bool, error) {
	var n pgtype.Numeric
	err := s.db.QueryRow(ctx, `SELECT supply FROM token_supply WHERE singleton`).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return Amount{}, false, nil
	}
	if err != nil {
		return Amount{}, false, err
	}
	supply, err := amountFromNumeric(n)
	if err != nil {
		return Amount{}, false, err
	}
	return supply, true, nil
}

// Balance returns the stored balance for the account, zero when absent.
func (s *PostgresStore) Balance(ctx context.Context, account AccountID) (Amount, error) {
	var n pgtype.Numeric
	err := s.db.QueryRow(ctx, `SELECT amount FROM token_balances WHERE account = $1`,
		uuid.UUID(account)).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return Amount{}, nil
	}
	if err != nil {
		return Amount{}, err
	}
	return amountFromNumeric(n)
}

// Allowance returns the stored allowance for the pair, zero when absent.
func (s *PostgresStore) Allowance(ctx context.Context, owner, spender AccountID) (Amount, error) {
	var n pgtype.Numeric
	err := s.db.QueryRow(ctx, `SELECT amount FROM token_allowances WHERE owner = $1 AND spender = $2`,
		uuid.UUID(owner), uuid.UUID(spender)).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return Amount{}, nil
	}
	if err != nil {
		return Amount{}, err
	}
	return amountFromNumeric(n)
}

// SumBalances totals every stored balance.
func (s *PostgresStore) SumBalances(ctx context.Context) (Amount, error) {
	var n pgtype.Numeric
	if err := s.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM token_balances`).Scan(&n); err != nil {
		return Amount{}, err
	}
	return amountFromNumeric(n)
}

// Apply commits every write in the changeset inside one transaction.
func (s *PostgresStore) Apply(ctx context.Context, change Changeset) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if change.Supply != nil {
		if _, err := tx.Exec(ctx, `INSERT INTO token_supply (singleton, supply) VALUES (TRUE, $1)
            ON CONFLICT (singleton) DO UPDATE SET supply = EXCLUDED.supply`,
			numericFromAmount(*change.Supply)); err != nil {
			return err
		}
	}

	for _, w := range change.Balances {
		if w.Amount.IsZero() {
			if _, err := tx.Exec(ctx, `DELETE FROM token_balances WHERE account = $1`,
				uuid.UUID(w.Account)); err != nil {
				return err
			}
			continue
		}
		if _, err := tx.Exec(ctx, `INSERT INTO token_balances (account, amount) VALUES ($1, $2)
            ON CONFLICT (account) DO UPDATE SET amount = EXCLUDED.amount`,
			uuid.UUID(w.Account), numericFromAmount(w.Amount)); err != nil {
			return err
		}
	}

	for _, w := range change.Allowances {
		if w.Amount.IsZero() {
			if _, err := tx.Exec(ctx, `DELETE FROM token_allowances WHERE owner = $1 AND spender = $2`,
				uuid.UUID(w.Owner), uuid.UUID(w.Spender)); err != nil {
				return err
			}
			continue
		}
		if _, err := tx.Exec(ctx, `INSERT INTO token_allowances (owner, spender, amount) VALUES ($1, $2, $3)
            ON CONFLICT (owner, spender) DO UPDATE SET amount = EXCLUDED.amount`,
			uuid.UUID(w.Owner), uuid.UUID(w.Spender), numericFromAmount(w.Amount)); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func numericFromAmount(a Amount) pgtype.Numeric {
	return pgtype.Numeric{Int: a.BigInt(), Exp: 0, Valid: true}
}

func amountFromNumeric(n pgtype.Numeric) (Amount, error) {
	if !n.Valid {
		return Amount{}, nil
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		return Amount{}, fmt.Errorf("non-finite amount in store")
	}
	v := new(big.Int).Set(n.Int)
	switch {
	case n.Exp > 0:
		v.Mul(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n.Exp)), nil))
	case n.Exp < 0:
		return Amount{}, fmt.Errorf("fractional amount in store")
	}
	return amountFromBig(v)
}
