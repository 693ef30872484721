// File: internal/infra/redis/event_publisher.go
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/oklog/ulid/v2"

	"autopay-billing/internal/domain/model"
	"autopay-billing/internal/domain/ports/adapter"
)

// Ensure interface compliance
var _ adapter.EventPublisher = (*EventPublisher)(nil)

const eventChannel = "billing:events"

// EventPublisher publishes billing events on a redis channel. Envelope
// carries an event id and emission time so consumers can dedupe
// at-least-once deliveries.
type EventPublisher struct {
	cli *redis.Client
}

func NewEventPublisher(c *Client) *EventPublisher {
	return &EventPublisher{cli: c.cli}
}

type eventEnvelope struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	EmittedAt time.Time   `json:"emitted_at"`
	Payload   model.Event `json:"payload"`
}

func (p *EventPublisher) Publish(ctx context.Context, event model.Event) error {
	env := eventEnvelope{
		ID:        ulid.Make().String(),
		Name:      event.Name(),
		EmittedAt: time.Now(),
		Payload:   event,
	}
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if err := p.cli.Publish(ctx, eventChannel, b).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event.Name(), err)
	}
	return nil
}

// Events subscribes to the billing event channel and returns raw envelope
// payloads. The channel closes when ctx is done.
func (p *EventPublisher) Events(ctx context.Context) (<-chan []byte, error) {
	sub := p.cli.Subscribe(ctx, eventChannel)
	if _, err := sub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", eventChannel, err)
	}
	out := make(chan []byte)
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				out <- []byte(msg.Payload)
			}
		}
	}()
	return out, nil
}
