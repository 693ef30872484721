package model

import "time"

// ChargeTask is the descriptor handed to the external scheduler: run one
// charge attempt for SubscriptionID at or after RunAt. The ID is assigned
// by the scheduler at enqueue time and echoed back on delivery; the engine
// validates it against the subscription's expected NextTaskID.
type ChargeTask struct {
	ID             string    `json:"id"`
	SubscriptionID string    `json:"subscription_id"`
	RunAt          time.Time `json:"run_at"`
}
