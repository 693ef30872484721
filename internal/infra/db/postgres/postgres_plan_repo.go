package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"autopay-billing/internal/domain"
	"autopay-billing/internal/domain/model"
	"autopay-billing/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.PlanRepository = (*PostgresPlanRepo)(nil)

type PostgresPlanRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPlanRepo(pool *pgxpool.Pool) *PostgresPlanRepo {
	return &PostgresPlanRepo{pool: pool}
}

func (r *PostgresPlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.Plan) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	const sql = `
INSERT INTO plans (id, merchant_id, merchant_account, name, currency, amount, interval_seconds, max_failures, active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE
  SET active = EXCLUDED.active;
`
	_, err = ex.Exec(ctx, sql,
		plan.ID, plan.MerchantID, plan.MerchantAccount, plan.Name, plan.Currency,
		plan.Amount, int64(plan.Interval/time.Second), plan.MaxFailures, plan.Active, plan.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Save plan: %w", err)
	}
	return nil
}

func (r *PostgresPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	const sql = `
SELECT id, merchant_id, merchant_account, name, currency, amount, interval_seconds, max_failures, active, created_at
  FROM plans
 WHERE id = $1;
`
	row := ex.QueryRow(ctx, sql, id)
	p, err := scanPlan(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("FindByID plan: %w", err)
	}
	return p, nil
}

func (r *PostgresPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	const sql = `
SELECT id, merchant_id, merchant_account, name, currency, amount, interval_seconds, max_failures, active, created_at
  FROM plans
 ORDER BY created_at;
`
	rows, err := ex.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("ListAll plans: %w", err)
	}
	defer rows.Close()
	var out []*model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresPlanRepo) SetActive(ctx context.Context, tx repository.Tx, id string, active bool) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	ct, err := ex.Exec(ctx, `UPDATE plans SET active = $2 WHERE id = $1;`, id, active)
	if err != nil {
		return fmt.Errorf("SetActive plan: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanPlan(row pgx.Row) (*model.Plan, error) {
	var (
		p        model.Plan
		interval int64
	)
	if err := row.Scan(&p.ID, &p.MerchantID, &p.MerchantAccount, &p.Name, &p.Currency,
		&p.Amount, &interval, &p.MaxFailures, &p.Active, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Interval = time.Duration(interval) * time.Second
	return &p, nil
}
