package model

import (
	"time"

	"autopay-billing/internal/domain"
)

// MaxPlanNameLen bounds plan names; the name participates in the derived
// plan identifier so it must be present and reasonably short.
const MaxPlanNameLen = 50

// Plan is a merchant-authored recurring charge template. Immutable after
// creation except Active; plans are deactivated, never hard-deleted.
type Plan struct {
	ID              string
	MerchantID      string
	MerchantAccount string // ledger account credited by successful charges
	Name            string
	Currency        string
	Amount          int64
	Interval        time.Duration
	MaxFailures     int
	Active          bool
	CreatedAt       time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// NewPlan validates and constructs an active plan with a derived ID.
func NewPlan(merchantID, merchantAccount, name, currency string, amount int64, interval time.Duration, maxFailures int) (*Plan, error) {
	if merchantID == "" || merchantAccount == "" || currency == "" {
		return nil, domain.ErrInvalidArgument
	}
	if name == "" || len(name) > MaxPlanNameLen {
		return nil, domain.ErrInvalidArgument
	}
	if amount <= 0 || interval <= 0 || maxFailures < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Plan{
		ID:              PlanID(merchantID, name),
		MerchantID:      merchantID,
		MerchantAccount: merchantAccount,
		Name:            name,
		Currency:        currency,
		Amount:          amount,
		Interval:        interval,
		MaxFailures:     maxFailures,
		Active:          true,
		CreatedAt:       time.Now(),
	}, nil
}
