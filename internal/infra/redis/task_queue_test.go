package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"autopay-billing/internal/config"
	"autopay-billing/internal/domain"
	"autopay-billing/internal/domain/model"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewClient(context.Background(), &config.RedisConfig{URL: mr.Addr()})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestTaskQueue_EnqueueDue(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)
	q := NewTaskQueue(c)

	now := time.Now().Truncate(time.Second)
	late, err := q.Enqueue(ctx, "sub-late", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("enqueue late: %v", err)
	}
	early, err := q.Enqueue(ctx, "sub-early", now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("enqueue early: %v", err)
	}

	due, err := q.Due(ctx, now, 10)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("due tasks = %d, want 1", len(due))
	}
	if due[0].ID != early || due[0].SubscriptionID != "sub-early" {
		t.Fatalf("unexpected due task %+v", due[0])
	}

	// Claiming is destructive; a second poll returns nothing.
	again, err := q.Due(ctx, now, 10)
	if err != nil {
		t.Fatalf("due again: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("reclaimed %d tasks, want 0", len(again))
	}

	// The future task surfaces once its trigger time passes.
	due, err = q.Due(ctx, now.Add(2*time.Hour), 10)
	if err != nil {
		t.Fatalf("due future: %v", err)
	}
	if len(due) != 1 || due[0].ID != late {
		t.Fatalf("future task not delivered: %+v", due)
	}
}

func TestTaskQueue_DueOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)
	q := NewTaskQueue(c)

	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	var ids []string
	for i := 0; i < 3; i++ {
		id, err := q.Enqueue(ctx, "sub", base.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	due, err := q.Due(ctx, time.Now(), 2)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("due tasks = %d, want 2", len(due))
	}
	// Earliest trigger times win.
	if due[0].ID != ids[0] || due[1].ID != ids[1] {
		t.Fatalf("wrong claim order: got %s,%s want %s,%s", due[0].ID, due[1].ID, ids[0], ids[1])
	}

	rest, err := q.Due(ctx, time.Now(), 2)
	if err != nil {
		t.Fatalf("due rest: %v", err)
	}
	if len(rest) != 1 || rest[0].ID != ids[2] {
		t.Fatalf("remaining task not delivered: %+v", rest)
	}
}

// A claimed task that could not be run goes back under its original id;
// the next claim must return the exact same task.
func TestTaskQueue_RequeuePreservesIdentity(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)
	q := NewTaskQueue(c)

	runAt := time.Now().Add(-time.Minute).Truncate(time.Second)
	id, err := q.Enqueue(ctx, "sub-1", runAt)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	claimed, err := q.Due(ctx, time.Now(), 10)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(claimed) != 1 {
		t.Fatalf("claimed = %d, want 1", len(claimed))
	}
	if err := q.Requeue(ctx, claimed[0]); err != nil {
		t.Fatalf("requeue: %v", err)
	}

	again, err := q.Due(ctx, time.Now(), 10)
	if err != nil {
		t.Fatalf("due after requeue: %v", err)
	}
	if len(again) != 1 {
		t.Fatalf("reclaimed = %d, want 1", len(again))
	}
	if again[0].ID != id || again[0].SubscriptionID != "sub-1" || !again[0].RunAt.Equal(runAt) {
		t.Fatalf("reclaimed task %+v, want original %q preserved", again[0], id)
	}
}

func TestTaskQueue_Dequeue(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)
	q := NewTaskQueue(c)

	id, err := q.Enqueue(ctx, "sub-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Dequeue(ctx, id); err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if mr.Exists(taskPrefix + id) {
		t.Fatalf("payload key survived dequeue")
	}

	// Already consumed or never existed both report not found.
	if err := q.Dequeue(ctx, id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second dequeue: got %v, want ErrNotFound", err)
	}
	if err := q.Dequeue(ctx, "no-such-task"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown task: got %v, want ErrNotFound", err)
	}

	due, err := q.Due(ctx, time.Now().Add(2*time.Hour), 10)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("dequeued task still claimable: %+v", due)
	}
}

func TestTaskQueue_PayloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)
	q := NewTaskQueue(c)

	runAt := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	id, err := q.Enqueue(ctx, "sub-42", runAt)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	raw, err := mr.Get(taskPrefix + id)
	if err != nil {
		t.Fatalf("stored payload: %v", err)
	}
	var task model.ChargeTask
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if task.ID != id || task.SubscriptionID != "sub-42" || !task.RunAt.Equal(runAt) {
		t.Fatalf("unexpected payload %+v", task)
	}
}

func TestEventPublisher_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _ := newTestClient(t)
	p := NewEventPublisher(c)

	events, err := p.Events(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	ev := model.ChargedEvent{
		SubscriberID:   "s1",
		PlanID:         "p1",
		SubscriptionID: "sub1",
		Amount:         100,
		Currency:       "USD",
	}
	if err := p.Publish(ctx, ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case raw := <-events:
		var env struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Payload struct {
				Amount   int64  `json:"amount"`
				Currency string `json:"currency"`
			} `json:"payload"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		if env.ID == "" || env.Name != "billing.charged" {
			t.Fatalf("unexpected envelope %+v", env)
		}
		if env.Payload.Amount != 100 || env.Payload.Currency != "USD" {
			t.Fatalf("unexpected payload %+v", env.Payload)
		}
	case <-ctx.Done():
		t.Fatalf("no event received before timeout")
	}
}
