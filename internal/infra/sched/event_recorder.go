// File: internal/infra/sched/event_recorder.go
package sched

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"autopay-billing/internal/infra/metrics"
)

// EventStream is the consuming side of the billing event channel.
type EventStream interface {
	Events(ctx context.Context) (<-chan []byte, error)
}

// EventRecorder consumes the published billing events and turns them into
// metrics. Keeping it on the event stream instead of inside the use case
// means the recorder sees exactly what external consumers see.
type EventRecorder struct {
	stream EventStream
	log    *zerolog.Logger
}

func NewEventRecorder(stream EventStream, logger *zerolog.Logger) *EventRecorder {
	l := logger.With().Str("component", "EventRecorder").Logger()
	return &EventRecorder{stream: stream, log: &l}
}

type chargedPayload struct {
	Name    string `json:"name"`
	Payload struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	} `json:"payload"`
}

func (r *EventRecorder) Run(ctx context.Context) error {
	ch, err := r.stream.Events(ctx)
	if err != nil {
		return err
	}
	r.log.Info().Msg("starting event recorder")
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("stopping event recorder")
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env chargedPayload
			if err := json.Unmarshal(msg, &env); err != nil {
				r.log.Warn().Err(err).Msg("undecodable event")
				continue
			}
			if env.Name == "billing.charged" {
				metrics.AddChargeVolume(env.Payload.Currency, env.Payload.Amount)
			}
		}
	}
}
