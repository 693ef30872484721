package model

import (
	"time"

	"autopay-billing/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusFailed   SubscriptionStatus = "failed"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// Subscription binds one subscriber to a plan and tracks billing lifecycle
// and retry state. Mutated only by the billing state machine and the
// cancellation path; status transitions are monotone, Failed and Canceled
// are terminal.
type Subscription struct {
	ID                string
	SubscriberID      string
	SubscriberAccount string // ledger account refunded by CloseVault
	PlanID            string
	VaultID           string
	Status            SubscriptionStatus
	FailureCount      int
	LastExecAt        time.Time
	NextTaskID        string // empty when no task is outstanding
	CreatedAt         time.Time
}

// NewSubscription constructs an active subscription with a derived ID.
// LastExecAt starts at now; the first cycle is charged at subscribe time.
func NewSubscription(subscriberID, subscriberAccount string, plan *Plan) (*Subscription, error) {
	if subscriberID == "" || subscriberAccount == "" || plan.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	id := SubscriptionID(subscriberID, plan.ID)
	now := time.Now()
	return &Subscription{
		ID:                id,
		SubscriberID:      subscriberID,
		SubscriberAccount: subscriberAccount,
		PlanID:            plan.ID,
		VaultID:           VaultID(id),
		Status:            SubscriptionStatusActive,
		FailureCount:      0,
		LastExecAt:        now,
		CreatedAt:         now,
	}, nil
}

// Terminal reports whether no further charges or scheduling may occur.
func (s *Subscription) Terminal() bool {
	return s.Status == SubscriptionStatusFailed || s.Status == SubscriptionStatusCanceled
}

// MarkCharged applies a successful charge: retry state resets and the due
// time advances by exactly one interval. The addition is overflow-checked;
// on overflow the subscription is left untouched.
func (s *Subscription) MarkCharged(interval time.Duration) error {
	next := s.LastExecAt.Add(interval)
	if !next.After(s.LastExecAt) {
		return domain.ErrArithmeticOverflow
	}
	s.FailureCount = 0
	s.LastExecAt = next
	return nil
}

// RecordFailure counts one insufficient-funds attempt. When the retry
// budget is exhausted the subscription transitions to Failed and the
// method reports terminal=true; LastExecAt is never advanced on failure.
func (s *Subscription) RecordFailure(maxFailures int) (terminal bool) {
	s.FailureCount++
	if s.FailureCount > maxFailures {
		s.Status = SubscriptionStatusFailed
		s.NextTaskID = ""
		return true
	}
	return false
}

// Cancel moves the subscription to its terminal Canceled state.
func (s *Subscription) Cancel() {
	s.Status = SubscriptionStatusCanceled
	s.NextTaskID = ""
}
