package repository

import (
	"context"

	"autopay-billing/internal/domain/model"
)

// VaultRepository is the port for escrow vault persistence.
type VaultRepository interface {
	Save(ctx context.Context, tx Tx, vault *model.EscrowVault) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.EscrowVault, error)
}
