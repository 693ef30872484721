// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"autopay-billing/internal/domain"
	"autopay-billing/internal/domain/model"
	"autopay-billing/internal/domain/ports/repository"
)

// memPlanRepo is a small in-memory implementation used by unit tests.
type memPlanRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Plan

	saveErr error // simulate storage failure
}

func newMemPlanRepo() *memPlanRepo {
	return &memPlanRepo{store: make(map[string]*model.Plan)}
}

func (m *memPlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.Plan) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *plan
	m.store[plan.ID] = &cp
	return nil
}

func (m *memPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Plan, 0, len(m.store))
	for _, p := range m.store {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memPlanRepo) SetActive(ctx context.Context, tx repository.Tx, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Active = active
	return nil
}

// memSubRepo provides in-memory subscriptions for tests.
type memSubRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Subscription
}

func newMemSubRepo() *memSubRepo {
	return &memSubRepo{store: make(map[string]*model.Subscription)}
}

func (m *memSubRepo) Save(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sub
	m.store[sub.ID] = &cp
	return nil
}

func (m *memSubRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[model.SubscriptionStatus]int)
	for _, s := range m.store {
		out[s.Status]++
	}
	return out, nil
}

// memVaultRepo provides in-memory vaults for tests.
type memVaultRepo struct {
	mu    sync.RWMutex
	store map[string]*model.EscrowVault
}

func newMemVaultRepo() *memVaultRepo {
	return &memVaultRepo{store: make(map[string]*model.EscrowVault)}
}

func (m *memVaultRepo) Save(ctx context.Context, tx repository.Tx, vault *model.EscrowVault) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *vault
	m.store[vault.ID] = &cp
	return nil
}

func (m *memVaultRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.EscrowVault, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

// memTxManager serializes callbacks with a mutex; there is no rollback, the
// in-memory repos apply writes immediately.
type memTxManager struct {
	mu sync.Mutex
}

func (m *memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

func (m *memTxManager) WithLock(ctx context.Context, _ string, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, nil)
}

// memScheduler is an in-memory task queue used by tests.
type memScheduler struct {
	mu    sync.Mutex
	seq   int
	tasks map[string]model.ChargeTask

	enqueueErr error // simulate scheduler outage
}

func newMemScheduler() *memScheduler {
	return &memScheduler{tasks: make(map[string]model.ChargeTask)}
}

func (m *memScheduler) Enqueue(ctx context.Context, subscriptionID string, runAt time.Time) (string, error) {
	if m.enqueueErr != nil {
		return "", m.enqueueErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := fmt.Sprintf("task-%d", m.seq)
	m.tasks[id] = model.ChargeTask{ID: id, SubscriptionID: subscriptionID, RunAt: runAt}
	return id, nil
}

func (m *memScheduler) Requeue(ctx context.Context, task model.ChargeTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = task
	return nil
}

func (m *memScheduler) Dequeue(ctx context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[taskID]; !ok {
		return domain.ErrNotFound
	}
	delete(m.tasks, taskID)
	return nil
}

func (m *memScheduler) Due(ctx context.Context, now time.Time, limit int) ([]model.ChargeTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []model.ChargeTask
	for _, t := range m.tasks {
		if !t.RunAt.After(now) {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].RunAt.Before(due[j].RunAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	for _, t := range due {
		delete(m.tasks, t.ID)
	}
	return due, nil
}

func (m *memScheduler) pending() []model.ChargeTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ChargeTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t)
	}
	return out
}

func (m *memScheduler) task(id string) (model.ChargeTask, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	return t, ok
}

// memLedger is an in-memory asset-transfer service for tests.
type memLedger struct {
	mu       sync.Mutex
	balances map[string]int64
	currency map[string]string

	transferErr error // simulate ledger outage
}

func newMemLedger() *memLedger {
	return &memLedger{balances: make(map[string]int64), currency: make(map[string]string)}
}

func (m *memLedger) seed(account, currency string, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[account] += amount
	m.currency[account] = currency
}

func (m *memLedger) Name() string { return "mem" }

func (m *memLedger) Transfer(ctx context.Context, from, to string, amount int64, currency string) error {
	if m.transferErr != nil {
		return m.transferErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[from] < amount {
		return domain.ErrInsufficientFunds
	}
	m.balances[from] -= amount
	m.balances[to] += amount
	if _, ok := m.currency[to]; !ok {
		m.currency[to] = currency
	}
	return nil
}

func (m *memLedger) Balance(ctx context.Context, account string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[account], nil
}

func (m *memLedger) Currency(ctx context.Context, account string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.currency[account]
	if !ok {
		return "", domain.ErrNotFound
	}
	return c, nil
}

func (m *memLedger) balance(account string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[account]
}

// memPublisher records published events in order.
type memPublisher struct {
	mu     sync.Mutex
	events []model.Event
}

func (m *memPublisher) Publish(ctx context.Context, event model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *memPublisher) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Name())
	}
	return out
}
