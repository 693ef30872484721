package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"autopay-billing/internal/domain"
	"autopay-billing/internal/domain/model"
	"autopay-billing/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.VaultRepository = (*PostgresVaultRepo)(nil)

type PostgresVaultRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresVaultRepo(pool *pgxpool.Pool) *PostgresVaultRepo {
	return &PostgresVaultRepo{pool: pool}
}

func (r *PostgresVaultRepo) Save(ctx context.Context, tx repository.Tx, vault *model.EscrowVault) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	const sql = `
INSERT INTO escrow_vaults (id, subscription_id, account, currency, closed, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE
  SET closed = EXCLUDED.closed;
`
	_, err = ex.Exec(ctx, sql,
		vault.ID, vault.SubscriptionID, vault.Account, vault.Currency, vault.Closed, vault.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Save vault: %w", err)
	}
	return nil
}

func (r *PostgresVaultRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.EscrowVault, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	const sql = `
SELECT id, subscription_id, account, currency, closed, created_at
  FROM escrow_vaults
 WHERE id = $1;
`
	row := ex.QueryRow(ctx, sql, id)
	var v model.EscrowVault
	if err := row.Scan(&v.ID, &v.SubscriptionID, &v.Account, &v.Currency, &v.Closed, &v.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("FindByID vault: %w", err)
	}
	return &v, nil
}
