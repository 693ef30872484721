package ledger

import (
	"context"
	"sync"

	"autopay-billing/internal/domain"
	"autopay-billing/internal/domain/ports/adapter"
)

var _ adapter.Ledger = (*NoopLedger)(nil)

type account struct {
	balance  int64
	currency string
}

// NoopLedger is a simple in-memory ledger for tests and dev mode. Accounts
// spring into existence on first credit; unknown accounts read as zero in
// the currency asked about.
type NoopLedger struct {
	mu       sync.Mutex
	accounts map[string]*account
}

func NewNoopLedger() *NoopLedger {
	return &NoopLedger{accounts: make(map[string]*account)}
}

func (l *NoopLedger) Name() string { return "noop" }

// Seed credits an account, creating it with the given currency if needed.
func (l *NoopLedger) Seed(accountRef, currency string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.ensure(accountRef, currency)
	a.balance += amount
}

func (l *NoopLedger) ensure(ref, currency string) *account {
	a, ok := l.accounts[ref]
	if !ok {
		a = &account{currency: currency}
		l.accounts[ref] = a
	}
	return a
}

func (l *NoopLedger) Transfer(ctx context.Context, from, to string, amount int64, currency string) error {
	if amount <= 0 {
		return domain.ErrInvalidArgument
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	src := l.ensure(from, currency)
	if src.currency != currency {
		return domain.ErrCurrencyMismatch
	}
	if src.balance < amount {
		return domain.ErrInsufficientFunds
	}
	dst := l.ensure(to, currency)
	if dst.currency != currency {
		return domain.ErrCurrencyMismatch
	}
	src.balance -= amount
	dst.balance += amount
	return nil
}

func (l *NoopLedger) Balance(ctx context.Context, accountRef string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[accountRef]
	if !ok {
		return 0, nil
	}
	return a.balance, nil
}

func (l *NoopLedger) Currency(ctx context.Context, accountRef string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[accountRef]
	if !ok {
		return "", domain.ErrNotFound
	}
	return a.currency, nil
}
