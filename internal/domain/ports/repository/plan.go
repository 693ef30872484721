package repository

import (
	"context"

	"autopay-billing/internal/domain/model"
)

// PlanRepository is the port for plan persistence.
type PlanRepository interface {
	Save(ctx context.Context, tx Tx, plan *model.Plan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Plan, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.Plan, error)
	// SetActive flips enrollment availability; plans are never hard-deleted.
	SetActive(ctx context.Context, tx Tx, id string, active bool) error
}
