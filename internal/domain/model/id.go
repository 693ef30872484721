package model

import "github.com/google/uuid"

// Every persisted record is addressable by an identifier derived from its
// owning entity and purpose, so lookups never need a secondary index.
var (
	planNamespace         = uuid.MustParse("6f1c24a2-9a6b-4dbe-8f70-2c41c36f1d01")
	subscriptionNamespace = uuid.MustParse("6f1c24a2-9a6b-4dbe-8f70-2c41c36f1d02")
	vaultNamespace        = uuid.MustParse("6f1c24a2-9a6b-4dbe-8f70-2c41c36f1d03")
)

// PlanID derives the plan identifier from the owning merchant and the plan
// name. Name uniqueness per merchant follows from the derivation.
func PlanID(merchantID, name string) string {
	return uuid.NewSHA1(planNamespace, []byte(merchantID+"/"+name)).String()
}

// SubscriptionID derives the subscription identifier from the subscriber and
// the plan they enroll in.
func SubscriptionID(subscriberID, planID string) string {
	return uuid.NewSHA1(subscriptionNamespace, []byte(subscriberID+"/"+planID)).String()
}

// VaultID derives the escrow vault identifier from its owning subscription.
func VaultID(subscriptionID string) string {
	return uuid.NewSHA1(vaultNamespace, []byte(subscriptionID)).String()
}
