package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS plans (
    id               UUID PRIMARY KEY,
    merchant_id      TEXT        NOT NULL,
    merchant_account TEXT        NOT NULL,
    name             TEXT        NOT NULL,
    currency         TEXT        NOT NULL,
    amount           BIGINT      NOT NULL CHECK (amount > 0),
    interval_seconds BIGINT      NOT NULL CHECK (interval_seconds > 0),
    max_failures     INT         NOT NULL CHECK (max_failures >= 0),
    active           BOOLEAN     NOT NULL DEFAULT TRUE,
    created_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS subscriptions (
    id                 UUID PRIMARY KEY,
    subscriber_id      TEXT        NOT NULL,
    subscriber_account TEXT        NOT NULL,
    plan_id            UUID        NOT NULL REFERENCES plans (id),
    vault_id           UUID        NOT NULL,
    status             TEXT        NOT NULL,
    failure_count      INT         NOT NULL DEFAULT 0,
    last_exec_at       TIMESTAMPTZ NOT NULL,
    next_task_id       TEXT        NOT NULL DEFAULT '',
    created_at         TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS escrow_vaults (
    id              UUID PRIMARY KEY,
    subscription_id UUID        NOT NULL,
    account         TEXT        NOT NULL,
    currency        TEXT        NOT NULL,
    closed          BOOLEAN     NOT NULL DEFAULT FALSE,
    created_at      TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema creates the billing tables when they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
