package adapter

import (
	"context"

	"autopay-billing/internal/domain/model"
)

// EventPublisher is the hex port for the at-least-once event stream.
// Publishing happens after billing state is committed; a publish failure is
// logged by the implementation and never rolls billing state back.
type EventPublisher interface {
	Publish(ctx context.Context, event model.Event) error
}
