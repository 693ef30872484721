package adapter

import (
	"context"
	"time"

	"autopay-billing/internal/domain/model"
)

// Scheduler is the hex port for the external task scheduler. The engine
// never runs its own clock: it asks the scheduler to deliver a charge task
// at or after a trigger time, and the scheduler invokes the billing handler
// with the task it stored.
type Scheduler interface {
	// Enqueue stores a charge task for delivery at or after runAt and
	// returns the assigned task id.
	Enqueue(ctx context.Context, subscriptionID string, runAt time.Time) (taskID string, err error)

	// Dequeue removes a pending task. Returns domain.ErrNotFound when the
	// task does not exist or has already been consumed; callers on the
	// cancellation path must treat that as success.
	Dequeue(ctx context.Context, taskID string) error

	// Requeue puts a previously popped task back for a later delivery,
	// keeping its id. The id is what the billing handler validates, so a
	// task that cannot be run right now must come back as itself.
	Requeue(ctx context.Context, task model.ChargeTask) error

	// Due pops up to limit tasks whose trigger time has passed. A popped
	// task is owned by the caller and is never redelivered.
	Due(ctx context.Context, now time.Time, limit int) ([]model.ChargeTask, error)
}
