// File: internal/usecase/plan_uc.go
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

// PlanUseCase implements the plan registry: merchants publish recurring
// charge templates and later deactivate them to stop new enrollments.
type PlanUseCase struct {
	planRepo repository.PlanRepository
	txm      repository.TransactionManager
	ledger   adapter.Ledger
	cfg      config.BillingConfig
	log      *zerolog.Logger
}

func NewPlanUseCase(planRepo repository.PlanRepository, txm repository.TransactionManager, ledger adapter.Ledger, cfg config.BillingConfig, logger *zerolog.Logger) *PlanUseCase {
	l := logger.With().Str("component", "PlanUC").Logger()
	return &PlanUseCase{planRepo: planRepo, txm: txm, ledger: ledger, cfg: cfg, log: &l}
}

// Create validates and persists a new plan. The plan id is derived from
// (merchant, name), so a duplicate name for the same merchant is rejected
// as ErrAlreadyExists. When a listing fee is configured it is moved from
// the merchant's account to the protocol fee account as part of creation.
func (uc *PlanUseCase) Create(ctx context.Context, merchantID, merchantAccount, name, currency string, amount int64, interval time.Duration, maxFailures int) (*model.Plan, error) {
	plan, err := model.NewPlan(merchantID, merchantAccount, name, currency, amount, interval, maxFailures)
	if err != nil {
		return nil, err
	}

	fee := &transferLog{ledger: uc.ledger}
	err = uc.txm.WithLock(ctx, plan.ID, func(ctx context.Context, tx repository.Tx) error {
		existing, err := uc.planRepo.FindByID(ctx, tx, plan.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if !existing.IsZero() {
			return domain.ErrAlreadyExists
		}
		if uc.cfg.ListingFee > 0 {
			if err := fee.transfer(ctx, merchantAccount, uc.cfg.FeeAccount, uc.cfg.ListingFee, currency); err != nil {
				return err
			}
		}
		return uc.planRepo.Save(ctx, tx, plan)
	})
	if err != nil {
		fee.revert(ctx, uc.log)
		return nil, err
	}

	uc.log.Info().Str("plan_id", plan.ID).Str("merchant_id", merchantID).Int64("amount", amount).Msg("plan created")
	return plan, nil
}

// Deactivate stops new enrollments for a plan. Only the owning merchant may
// deactivate; calling it on an already-inactive plan is a no-op.
func (uc *PlanUseCase) Deactivate(ctx context.Context, merchantID, planID string) error {
	return uc.txm.WithLock(ctx, planID, func(ctx context.Context, tx repository.Tx) error {
		plan, err := uc.planRepo.FindByID(ctx, tx, planID)
		if err != nil {
			return err
		}
		if plan.MerchantID != merchantID {
			return domain.ErrWrongCaller
		}
		if !plan.Active {
			return nil
		}
		return uc.planRepo.SetActive(ctx, tx, planID, false)
	})
}

// Get returns one plan by id.
func (uc *PlanUseCase) Get(ctx context.Context, planID string) (*model.Plan, error) {
	return uc.planRepo.FindByID(ctx, repository.NoTx, planID)
}

// List returns all plans, active and inactive.
func (uc *PlanUseCase) List(ctx context.Context) ([]*model.Plan, error) {
	return uc.planRepo.ListAll(ctx, repository.NoTx)
}
