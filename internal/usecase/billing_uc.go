// File: internal/usecase/billing_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"autopay-billing/internal/config"
	"autopay-billing/internal/domain"
	"autopay-billing/internal/domain/model"
	"autopay-billing/internal/domain/ports/adapter"
	"autopay-billing/internal/domain/ports/repository"
)

// BillingUseCase is the billing state machine. Subscribe, Charge, Cancel and
// CloseVault each run as one transaction over a single subscription and its
// vault, serialized by a per-subscription advisory lock. A new charge task
// is enqueued only as the terminal action of an invocation, so at most one
// task is ever outstanding per subscription.
type BillingUseCase struct {
	planRepo  repository.PlanRepository
	subRepo   repository.SubscriptionRepository
	vaultRepo repository.VaultRepository
	txm       repository.TransactionManager
	scheduler adapter.Scheduler
	ledger    adapter.Ledger
	events    adapter.EventPublisher
	cfg       config.BillingConfig
	log       *zerolog.Logger
}

func NewBillingUseCase(
	planRepo repository.PlanRepository,
	subRepo repository.SubscriptionRepository,
	vaultRepo repository.VaultRepository,
	txm repository.TransactionManager,
	scheduler adapter.Scheduler,
	ledger adapter.Ledger,
	events adapter.EventPublisher,
	cfg config.BillingConfig,
	logger *zerolog.Logger,
) *BillingUseCase {
	l := logger.With().Str("component", "BillingUC").Logger()
	return &BillingUseCase{
		planRepo:  planRepo,
		subRepo:   subRepo,
		vaultRepo: vaultRepo,
		txm:       txm,
		scheduler: scheduler,
		ledger:    ledger,
		events:    events,
		cfg:       cfg,
		log:       &l,
	}
}

// transferLog tracks the ledger transfers completed within one invocation.
// The ledger is an external system: when a later step aborts the DB
// transaction, the rows roll back but the money has already moved, so the
// completed transfers must be reversed, newest first.
type transferLog struct {
	ledger adapter.Ledger
	done   []transferStep
}

type transferStep struct {
	from, to string
	amount   int64
	currency string
}

func (l *transferLog) transfer(ctx context.Context, from, to string, amount int64, currency string) error {
	if err := l.ledger.Transfer(ctx, from, to, amount, currency); err != nil {
		return err
	}
	l.done = append(l.done, transferStep{from: from, to: to, amount: amount, currency: currency})
	return nil
}

func (l *transferLog) revert(ctx context.Context, log *zerolog.Logger) {
	for i := len(l.done) - 1; i >= 0; i-- {
		s := l.done[i]
		if err := l.ledger.Transfer(ctx, s.to, s.from, s.amount, s.currency); err != nil {
			log.Error().Err(err).
				Str("from", s.to).Str("to", s.from).
				Int64("amount", s.amount).Str("currency", s.currency).
				Msg("compensating refund failed, funds stranded")
		}
	}
}

// Subscribe enrolls a subscriber in an active plan. It creates the escrow
// vault, pre-funds it with one cycle from the subscriber's account, charges
// the first cycle immediately, and enqueues the second cycle at
// now+interval. The subscription id is derived from (subscriber, plan); a
// previous enrollment in the same plan, terminal or not, blocks a new one.
func (uc *BillingUseCase) Subscribe(ctx context.Context, subscriberID, subscriberAccount, planID string) (*model.Subscription, error) {
	var (
		sub *model.Subscription
		evs []model.Event
	)
	subID := model.SubscriptionID(subscriberID, planID)
	ledger := &transferLog{ledger: uc.ledger}

	err := uc.txm.WithLock(ctx, subID, func(ctx context.Context, tx repository.Tx) error {
		plan, err := uc.planRepo.FindByID(ctx, tx, planID)
		if err != nil {
			return err
		}
		if !plan.Active {
			return domain.ErrInactivePlan
		}
		currency, err := uc.ledger.Currency(ctx, subscriberAccount)
		if err != nil {
			return err
		}
		if currency != plan.Currency {
			return domain.ErrCurrencyMismatch
		}
		if existing, err := uc.subRepo.FindByID(ctx, tx, subID); err == nil && existing != nil {
			return domain.ErrAlreadyExists
		} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		vault, err := model.NewEscrowVault(subID, plan.Currency)
		if err != nil {
			return err
		}
		if err := uc.vaultRepo.Save(ctx, tx, vault); err != nil {
			return err
		}
		// Pre-fund one cycle, then charge it straight back out. Going
		// through the vault keeps the first cycle on the same money path
		// as every later one.
		if err := ledger.transfer(ctx, subscriberAccount, vault.Account, plan.Amount, plan.Currency); err != nil {
			return err
		}

		sub, err = model.NewSubscription(subscriberID, subscriberAccount, plan)
		if err != nil {
			return err
		}
		if err := ledger.transfer(ctx, vault.Account, plan.MerchantAccount, plan.Amount, plan.Currency); err != nil {
			return err
		}
		if err := sub.MarkCharged(plan.Interval); err != nil {
			return err
		}
		taskID, err := uc.scheduler.Enqueue(ctx, sub.ID, sub.LastExecAt)
		if err != nil {
			return err
		}
		sub.NextTaskID = taskID
		if err := uc.subRepo.Save(ctx, tx, sub); err != nil {
			return err
		}

		evs = append(evs,
			model.SubscribedEvent{SubscriberID: subscriberID, PlanID: planID, SubscriptionID: sub.ID},
			model.ChargedEvent{SubscriberID: subscriberID, PlanID: planID, SubscriptionID: sub.ID, Amount: plan.Amount, Currency: plan.Currency},
		)
		return nil
	})
	if err != nil {
		ledger.revert(ctx, uc.log)
		return nil, err
	}

	uc.publish(ctx, evs)
	uc.log.Info().Str("subscription_id", sub.ID).Str("plan_id", planID).Msg("subscribed")
	return sub, nil
}

// Charge executes one scheduled charge attempt. It is invoked only on
// behalf of the scheduler; taskID must match the subscription's expected
// next task, which makes replayed or out-of-order deliveries harmless.
//
// Outcomes:
//   - sufficient funds: amount moves escrow->merchant, failure count
//     resets, the due time advances by one interval and the next task is
//     enqueued for it.
//   - insufficient funds within budget: the failure is counted and a retry
//     is enqueued after the fixed back-off; the due time does not move.
//   - insufficient funds over budget: the subscription turns Failed, no
//     task is enqueued, and ErrMaxRetriesExceeded is returned after the
//     state change has been committed.
func (uc *BillingUseCase) Charge(ctx context.Context, subscriptionID, taskID string) error {
	var (
		evs      []model.Event
		exceeded bool
	)
	ledger := &transferLog{ledger: uc.ledger}

	err := uc.txm.WithLock(ctx, subscriptionID, func(ctx context.Context, tx repository.Tx) error {
		sub, err := uc.subRepo.FindByID(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		if sub.Status != model.SubscriptionStatusActive {
			// A cancel may have raced an in-flight delivery; refuse to act
			// so a terminal subscription is never resurrected.
			return domain.ErrNotActive
		}
		if taskID == "" || taskID != sub.NextTaskID {
			return domain.ErrSchedulerMismatch
		}

		plan, err := uc.planRepo.FindByID(ctx, tx, sub.PlanID)
		if err != nil {
			return err
		}
		vault, err := uc.vaultRepo.FindByID(ctx, tx, sub.VaultID)
		if err != nil {
			return err
		}
		balance, err := uc.ledger.Balance(ctx, vault.Account)
		if err != nil {
			return err
		}

		if balance < plan.Amount {
			if sub.RecordFailure(plan.MaxFailures) {
				exceeded = true
				evs = append(evs, model.SubscriptionFailedEvent{
					SubscriberID:   sub.SubscriberID,
					PlanID:         sub.PlanID,
					SubscriptionID: sub.ID,
				})
				return uc.subRepo.Save(ctx, tx, sub)
			}
			retryID, err := uc.scheduler.Enqueue(ctx, sub.ID, time.Now().Add(uc.cfg.RetryBackoff))
			if err != nil {
				return err
			}
			sub.NextTaskID = retryID
			return uc.subRepo.Save(ctx, tx, sub)
		}

		if err := ledger.transfer(ctx, vault.Account, plan.MerchantAccount, plan.Amount, plan.Currency); err != nil {
			return err
		}
		if err := sub.MarkCharged(plan.Interval); err != nil {
			return err
		}
		nextID, err := uc.scheduler.Enqueue(ctx, sub.ID, sub.LastExecAt)
		if err != nil {
			return err
		}
		sub.NextTaskID = nextID
		if err := uc.subRepo.Save(ctx, tx, sub); err != nil {
			return err
		}
		evs = append(evs, model.ChargedEvent{
			SubscriberID:   sub.SubscriberID,
			PlanID:         sub.PlanID,
			SubscriptionID: sub.ID,
			Amount:         plan.Amount,
			Currency:       plan.Currency,
		})
		return nil
	})
	if err != nil {
		ledger.revert(ctx, uc.log)
		return err
	}

	uc.publish(ctx, evs)
	if exceeded {
		// The terminal transition committed above; the error tells the
		// scheduler this delivery chain is over.
		return domain.ErrMaxRetriesExceeded
	}
	return nil
}

// Cancel stops future scheduling and finalizes the subscription. The
// outstanding task may already have been consumed by an in-flight charge;
// that is treated as success. Cancel on an already-terminal subscription is
// a no-op.
func (uc *BillingUseCase) Cancel(ctx context.Context, subscriberID, subscriptionID string) error {
	var evs []model.Event

	err := uc.txm.WithLock(ctx, subscriptionID, func(ctx context.Context, tx repository.Tx) error {
		sub, err := uc.subRepo.FindByID(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		if sub.SubscriberID != subscriberID {
			return domain.ErrWrongCaller
		}
		if sub.Terminal() {
			return nil
		}
		if sub.NextTaskID != "" {
			if err := uc.scheduler.Dequeue(ctx, sub.NextTaskID); err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}
		sub.Cancel()
		if err := uc.subRepo.Save(ctx, tx, sub); err != nil {
			return err
		}
		evs = append(evs, model.CanceledEvent{
			SubscriberID:   sub.SubscriberID,
			PlanID:         sub.PlanID,
			SubscriptionID: sub.ID,
		})
		return nil
	})
	if err != nil {
		return err
	}

	uc.publish(ctx, evs)
	return nil
}

// CloseVault sweeps the entire remaining escrow balance back to the
// subscriber. Safe on an empty vault; closing is recorded once the
// subscription is terminal, after which further calls are no-ops.
func (uc *BillingUseCase) CloseVault(ctx context.Context, subscriberID, subscriptionID string) error {
	return uc.txm.WithLock(ctx, subscriptionID, func(ctx context.Context, tx repository.Tx) error {
		sub, err := uc.subRepo.FindByID(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		if sub.SubscriberID != subscriberID {
			return domain.ErrWrongCaller
		}
		vault, err := uc.vaultRepo.FindByID(ctx, tx, sub.VaultID)
		if err != nil {
			return err
		}
		if vault.Closed {
			return nil
		}
		balance, err := uc.ledger.Balance(ctx, vault.Account)
		if err != nil {
			return err
		}
		if balance > 0 {
			if err := uc.ledger.Transfer(ctx, vault.Account, sub.SubscriberAccount, balance, vault.Currency); err != nil {
				return err
			}
		}
		if sub.Terminal() {
			vault.Closed = true
			return uc.vaultRepo.Save(ctx, tx, vault)
		}
		return nil
	})
}

// Get returns one subscription by id.
func (uc *BillingUseCase) Get(ctx context.Context, subscriptionID string) (*model.Subscription, error) {
	return uc.subRepo.FindByID(ctx, repository.NoTx, subscriptionID)
}

// CountByStatus delegates to the repository; used by stats and gauges.
func (uc *BillingUseCase) CountByStatus(ctx context.Context) (map[model.SubscriptionStatus]int, error) {
	return uc.subRepo.CountByStatus(ctx, repository.NoTx)
}

// publish emits events after commit. At-least-once: a failed publish is
// logged and dropped here, the state transition it describes has already
// been applied.
func (uc *BillingUseCase) publish(ctx context.Context, evs []model.Event) {
	for _, ev := range evs {
		if err := uc.events.Publish(ctx, ev); err != nil {
			uc.log.Error().Err(err).Str("event", ev.Name()).Msg("event publish failed")
		}
	}
}
