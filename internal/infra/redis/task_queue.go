// File: internal/infra/redis/task_queue.go
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/oklog/ulid/v2"

	"autopay-billing/internal/domain"
	"autopay-billing/internal/domain/model"
	"autopay-billing/internal/domain/ports/adapter"
)

// Ensure interface compliance
var _ adapter.Scheduler = (*TaskQueue)(nil)

const (
	tasksKey       = "billing:tasks"
	taskPrefix     = "billing:task:"
	defaultDueSize = 64
)

// TaskQueue is a redis-backed delayed task queue implementing the Scheduler
// port. Pending tasks live in a sorted set scored by trigger time with the
// descriptor stored alongside; claiming due tasks is atomic, so a task is
// delivered at most once even with concurrent dispatchers.
type TaskQueue struct {
	cli *redis.Client
}

func NewTaskQueue(c *Client) *TaskQueue {
	return &TaskQueue{cli: c.cli}
}

func (q *TaskQueue) Enqueue(ctx context.Context, subscriptionID string, runAt time.Time) (string, error) {
	task := model.ChargeTask{
		ID:             ulid.Make().String(),
		SubscriptionID: subscriptionID,
		RunAt:          runAt,
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return "", err
	}
	pipe := q.cli.TxPipeline()
	pipe.Set(ctx, taskPrefix+task.ID, payload, 0)
	pipe.ZAdd(ctx, tasksKey, &redis.Z{Score: float64(runAt.Unix()), Member: task.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("enqueue task: %w", err)
	}
	return task.ID, nil
}

// Requeue re-adds a popped task under its original id. Subscriptions
// reference that id, so a dispatcher that cannot run a claimed task must
// restore it verbatim, not mint a replacement.
func (q *TaskQueue) Requeue(ctx context.Context, task model.ChargeTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	pipe := q.cli.TxPipeline()
	pipe.Set(ctx, taskPrefix+task.ID, payload, 0)
	pipe.ZAdd(ctx, tasksKey, &redis.Z{Score: float64(task.RunAt.Unix()), Member: task.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("requeue task: %w", err)
	}
	return nil
}

var luaDequeue = redis.NewScript(`
if redis.call("ZREM", KEYS[1], ARGV[1]) == 1 then
	redis.call("DEL", KEYS[2])
	return 1
end
return 0`)

func (q *TaskQueue) Dequeue(ctx context.Context, taskID string) error {
	n, err := luaDequeue.Run(ctx, q.cli, []string{tasksKey, taskPrefix + taskID}, taskID).Int()
	if err != nil {
		return fmt.Errorf("dequeue task: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var luaDue = redis.NewScript(`
local due = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1], "LIMIT", 0, tonumber(ARGV[2]))
local out = {}
for _, id in ipairs(due) do
	redis.call("ZREM", KEYS[1], id)
	local payload = redis.call("GET", ARGV[3] .. id)
	redis.call("DEL", ARGV[3] .. id)
	if payload then
		out[#out + 1] = payload
	end
end
return out`)

func (q *TaskQueue) Due(ctx context.Context, now time.Time, limit int) ([]model.ChargeTask, error) {
	if limit <= 0 {
		limit = defaultDueSize
	}
	res, err := luaDue.Run(ctx, q.cli, []string{tasksKey}, now.Unix(), limit, taskPrefix).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("pop due tasks: %w", err)
	}
	tasks := make([]model.ChargeTask, 0, len(res))
	for _, payload := range res {
		var t model.ChargeTask
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			return nil, fmt.Errorf("decode task payload: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
