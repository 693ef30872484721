package model

import (
	"time"

	"autopay-billing/internal/domain"
)

// EscrowVault holds funds earmarked for one subscription's recurring
// payments. The engine is the only authority allowed to debit it; the
// subscriber deposits into it and sweeps the remainder out via CloseVault.
// The authoritative balance lives with the ledger service; this record is
// the addressing and authorization fact.
type EscrowVault struct {
	ID             string
	SubscriptionID string
	Account        string // ledger account ref backing the vault
	Currency       string
	Closed         bool
	CreatedAt      time.Time
}

// NewEscrowVault constructs a vault for a subscription. The ledger account
// ref is derived from the vault ID so it is stable and index-free.
func NewEscrowVault(subscriptionID, currency string) (*EscrowVault, error) {
	if subscriptionID == "" || currency == "" {
		return nil, domain.ErrInvalidArgument
	}
	id := VaultID(subscriptionID)
	return &EscrowVault{
		ID:             id,
		SubscriptionID: subscriptionID,
		Account:        "escrow:" + id,
		Currency:       currency,
		CreatedAt:      time.Now(),
	}, nil
}
