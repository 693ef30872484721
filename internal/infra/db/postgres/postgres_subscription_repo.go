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
var _ repository.SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)

type PostgresSubscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresSubscriptionRepo(pool *pgxpool.Pool) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{pool: pool}
}

func (r *PostgresSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	const sql = `
INSERT INTO subscriptions (id, subscriber_id, subscriber_account, plan_id, vault_id, status, failure_count, last_exec_at, next_task_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE
  SET status        = EXCLUDED.status,
      failure_count = EXCLUDED.failure_count,
      last_exec_at  = EXCLUDED.last_exec_at,
      next_task_id  = EXCLUDED.next_task_id;
`
	_, err = ex.Exec(ctx, sql,
		sub.ID, sub.SubscriberID, sub.SubscriberAccount, sub.PlanID, sub.VaultID,
		string(sub.Status), sub.FailureCount, sub.LastExecAt, sub.NextTaskID, sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Save subscription: %w", err)
	}
	return nil
}

func (r *PostgresSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	const sql = `
SELECT id, subscriber_id, subscriber_account, plan_id, vault_id, status, failure_count, last_exec_at, next_task_id, created_at
  FROM subscriptions
 WHERE id = $1;
`
	row := ex.QueryRow(ctx, sql, id)
	var (
		s      model.Subscription
		status string
	)
	if err := row.Scan(&s.ID, &s.SubscriberID, &s.SubscriberAccount, &s.PlanID, &s.VaultID,
		&status, &s.FailureCount, &s.LastExecAt, &s.NextTaskID, &s.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("FindByID subscription: %w", err)
	}
	s.Status = model.SubscriptionStatus(status)
	return &s, nil
}

func (r *PostgresSubscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	const sql = `SELECT status, COUNT(1) FROM subscriptions GROUP BY status;`
	rows, err := ex.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("CountByStatus: %w", err)
	}
	defer rows.Close()
	out := make(map[model.SubscriptionStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[model.SubscriptionStatus(status)] = n
	}
	return out, rows.Err()
}
