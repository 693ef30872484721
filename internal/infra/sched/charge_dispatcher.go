// File: internal/infra/sched/charge_dispatcher.go
package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"autopay-billing/internal/domain"
	"autopay-billing/internal/domain/model"
	"autopay-billing/internal/domain/ports/adapter"
	"autopay-billing/internal/infra/metrics"
	"autopay-billing/internal/infra/worker"
)

// Charger is the slice of the billing use case the dispatcher invokes.
type Charger interface {
	Charge(ctx context.Context, subscriptionID, taskID string) error
	CountByStatus(ctx context.Context) (map[model.SubscriptionStatus]int, error)
}

// ChargeDispatcher drives the scheduler contract: it polls the task queue
// for due charge tasks and hands each to the worker pool. The engine stays
// a pure request handler; this loop is the only place time advances.
type ChargeDispatcher struct {
	queue     adapter.Scheduler
	billing   Charger
	pool      *worker.Pool
	interval  time.Duration
	batchSize int
	log       *zerolog.Logger
}

func NewChargeDispatcher(queue adapter.Scheduler, billing Charger, pool *worker.Pool, interval time.Duration, batchSize int, logger *zerolog.Logger) *ChargeDispatcher {
	l := logger.With().Str("component", "ChargeDispatcher").Logger()
	if interval <= 0 {
		interval = time.Second
	}
	return &ChargeDispatcher{
		queue:     queue,
		billing:   billing,
		pool:      pool,
		interval:  interval,
		batchSize: batchSize,
		log:       &l,
	}
}

const gaugeRefreshEvery = 30 * time.Second

func (d *ChargeDispatcher) Run(ctx context.Context) error {
	d.log.Info().Dur("interval", d.interval).Msg("starting charge dispatcher")
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	gauges := time.NewTicker(gaugeRefreshEvery)
	defer gauges.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("stopping charge dispatcher")
			return ctx.Err()
		case <-gauges.C:
			d.refreshGauges(ctx)
		case <-ticker.C:
			d.dispatchDue(ctx)
		}
	}
}

func (d *ChargeDispatcher) dispatchDue(ctx context.Context) {
	tasks, err := d.queue.Due(ctx, time.Now(), d.batchSize)
	if err != nil {
		d.log.Error().Err(err).Msg("poll due tasks")
		return
	}
	if len(tasks) == 0 {
		return
	}
	metrics.IncTasksDispatched(len(tasks))
	for _, t := range tasks {
		task := t
		err := d.pool.Submit(func(ctx context.Context) error {
			d.runCharge(ctx, task)
			return nil
		})
		if err != nil {
			// Pool saturated: push the task back for the next tick. The id
			// must survive, it is what Charge validates against the
			// subscription's expected task.
			d.log.Warn().Err(err).Str("task_id", task.ID).Msg("requeueing task")
			if rqErr := d.queue.Requeue(ctx, task); rqErr != nil {
				d.log.Error().Err(rqErr).Str("task_id", task.ID).Msg("requeue failed")
			}
		}
	}
}

func (d *ChargeDispatcher) runCharge(ctx context.Context, task model.ChargeTask) {
	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	start := time.Now()
	err := d.billing.Charge(runCtx, task.SubscriptionID, task.ID)
	metrics.ObserveChargeLatency(float64(time.Since(start).Milliseconds()))

	switch {
	case err == nil:
		metrics.IncChargeAttempt("ok")
	case errors.Is(err, domain.ErrMaxRetriesExceeded):
		metrics.IncChargeAttempt("max_retries")
		d.log.Warn().Str("subscription_id", task.SubscriptionID).Msg("subscription failed: retry budget exhausted")
	case errors.Is(err, domain.ErrNotActive):
		// Expected after a cancel raced an in-flight delivery.
		metrics.IncChargeAttempt("not_active")
		d.log.Debug().Str("subscription_id", task.SubscriptionID).Msg("dropping task for terminal subscription")
	case errors.Is(err, domain.ErrSchedulerMismatch):
		metrics.IncChargeAttempt("mismatch")
		d.log.Warn().Str("subscription_id", task.SubscriptionID).Str("task_id", task.ID).Msg("stale or replayed task rejected")
	default:
		metrics.IncChargeAttempt("error")
		d.log.Error().Err(err).Str("subscription_id", task.SubscriptionID).Msg("charge attempt failed")
	}
}

func (d *ChargeDispatcher) refreshGauges(ctx context.Context) {
	counts, err := d.billing.CountByStatus(ctx)
	if err != nil {
		d.log.Error().Err(err).Msg("refresh subscription gauges")
		return
	}
	metrics.SetSubscriptionsTotal(counts)
}
