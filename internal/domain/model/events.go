package model

// Billing events, emitted at-least-once per externally observable state
// transition. They exist to trigger merchant-side automation; they carry
// identities and amounts, never balances.

type Event interface {
	// Name returns the stable event name used as the routing key.
	Name() string
}

type SubscribedEvent struct {
	SubscriberID   string `json:"subscriber_id"`
	PlanID         string `json:"plan_id"`
	SubscriptionID string `json:"subscription_id"`
}

func (SubscribedEvent) Name() string { return "billing.subscribed" }

type ChargedEvent struct {
	SubscriberID   string `json:"subscriber_id"`
	PlanID         string `json:"plan_id"`
	SubscriptionID string `json:"subscription_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
}

func (ChargedEvent) Name() string { return "billing.charged" }

type SubscriptionFailedEvent struct {
	SubscriberID   string `json:"subscriber_id"`
	PlanID         string `json:"plan_id"`
	SubscriptionID string `json:"subscription_id"`
}

func (SubscriptionFailedEvent) Name() string { return "billing.subscription_failed" }

type CanceledEvent struct {
	SubscriberID   string `json:"subscriber_id"`
	PlanID         string `json:"plan_id"`
	SubscriptionID string `json:"subscription_id"`
}

func (CanceledEvent) Name() string { return "billing.canceled" }
