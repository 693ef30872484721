package model

import (
	"errors"
	"strings"
	"testing"
	"time"

	"autopay-billing/internal/domain"
)

func validPlan(t *testing.T) *Plan {
	t.Helper()
	p, err := NewPlan("m1", "acct:m1", "gold", "USD", 100, 24*time.Hour, 2)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	return p
}

func TestNewPlan_Validation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		planName    string
		amount      int64
		interval    time.Duration
		maxFailures int
	}{
		{"zero amount", "gold", 0, time.Hour, 0},
		{"negative amount", "gold", -5, time.Hour, 0},
		{"empty name", "", 100, time.Hour, 0},
		{"name too long", strings.Repeat("x", MaxPlanNameLen+1), 100, time.Hour, 0},
		{"zero interval", "gold", 100, 0, 0},
		{"negative max failures", "gold", 100, time.Hour, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPlan("m1", "acct:m1", tc.planName, "USD", tc.amount, tc.interval, tc.maxFailures)
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestNewPlan_DerivedID(t *testing.T) {
	t.Parallel()

	a := validPlan(t)
	b := validPlan(t)
	if a.ID != b.ID {
		t.Fatalf("same merchant+name must derive the same id: %s vs %s", a.ID, b.ID)
	}
	c, err := NewPlan("m2", "acct:m2", "gold", "USD", 100, 24*time.Hour, 2)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	if a.ID == c.ID {
		t.Fatalf("different merchants must derive different ids")
	}
	if !a.Active {
		t.Fatalf("new plan must be active")
	}
}

func TestNewSubscription_Defaults(t *testing.T) {
	t.Parallel()

	plan := validPlan(t)
	sub, err := NewSubscription("alice", "acct:alice", plan)
	if err != nil {
		t.Fatalf("NewSubscription: %v", err)
	}
	if sub.Status != SubscriptionStatusActive {
		t.Fatalf("expected active, got %s", sub.Status)
	}
	if sub.FailureCount != 0 {
		t.Fatalf("expected zero failure count")
	}
	if sub.ID != SubscriptionID("alice", plan.ID) {
		t.Fatalf("id must derive from (subscriber, plan)")
	}
	if sub.VaultID != VaultID(sub.ID) {
		t.Fatalf("vault id must derive from subscription id")
	}
}

func TestSubscription_MarkCharged(t *testing.T) {
	t.Parallel()

	plan := validPlan(t)
	sub, _ := NewSubscription("alice", "acct:alice", plan)
	sub.FailureCount = 2
	before := sub.LastExecAt

	if err := sub.MarkCharged(plan.Interval); err != nil {
		t.Fatalf("MarkCharged: %v", err)
	}
	if sub.FailureCount != 0 {
		t.Fatalf("failure count must reset")
	}
	if got := sub.LastExecAt.Sub(before); got != plan.Interval {
		t.Fatalf("due time must advance by exactly one interval, moved by %s", got)
	}
}

func TestSubscription_MarkChargedOverflow(t *testing.T) {
	t.Parallel()

	plan := validPlan(t)
	sub, _ := NewSubscription("alice", "acct:alice", plan)
	before := sub.LastExecAt

	err := sub.MarkCharged(time.Duration(-1))
	if !errors.Is(err, domain.ErrArithmeticOverflow) {
		t.Fatalf("expected ErrArithmeticOverflow, got %v", err)
	}
	if !sub.LastExecAt.Equal(before) {
		t.Fatalf("state must not change on overflow")
	}
}

func TestSubscription_RecordFailure(t *testing.T) {
	t.Parallel()

	plan := validPlan(t)
	sub, _ := NewSubscription("alice", "acct:alice", plan)
	sub.NextTaskID = "task-1"

	if sub.RecordFailure(plan.MaxFailures) {
		t.Fatalf("first failure must not be terminal with budget 2")
	}
	if sub.RecordFailure(plan.MaxFailures) {
		t.Fatalf("second failure must not be terminal with budget 2")
	}
	if !sub.RecordFailure(plan.MaxFailures) {
		t.Fatalf("third failure must exhaust budget 2")
	}
	if sub.Status != SubscriptionStatusFailed {
		t.Fatalf("expected failed, got %s", sub.Status)
	}
	if sub.NextTaskID != "" {
		t.Fatalf("failed subscription must have no outstanding task")
	}
	if !sub.Terminal() {
		t.Fatalf("failed is terminal")
	}
}

func TestSubscription_Cancel(t *testing.T) {
	t.Parallel()

	plan := validPlan(t)
	sub, _ := NewSubscription("alice", "acct:alice", plan)
	sub.NextTaskID = "task-1"
	sub.Cancel()
	if sub.Status != SubscriptionStatusCanceled || !sub.Terminal() {
		t.Fatalf("expected terminal canceled, got %s", sub.Status)
	}
	if sub.NextTaskID != "" {
		t.Fatalf("canceled subscription must have no outstanding task")
	}
}

func TestNewEscrowVault(t *testing.T) {
	t.Parallel()

	v, err := NewEscrowVault("sub-1", "USD")
	if err != nil {
		t.Fatalf("NewEscrowVault: %v", err)
	}
	if v.ID != VaultID("sub-1") {
		t.Fatalf("vault id must derive from subscription id")
	}
	if v.Account == "" || v.Closed {
		t.Fatalf("vault must start open with an account ref")
	}
	if _, err := NewEscrowVault("", "USD"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
