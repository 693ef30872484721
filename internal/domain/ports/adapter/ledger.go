package adapter

import "context"

// Ledger is the hex port for the external asset-transfer service. Accounts
// are opaque references; the wire format of the underlying primitive is out
// of scope here.
type Ledger interface {
	Name() string

	// Transfer moves amount (minor units) between two accounts of the given
	// currency. All-or-nothing on the ledger side.
	Transfer(ctx context.Context, from, to string, amount int64, currency string) error

	// Balance returns the current balance of an account.
	Balance(ctx context.Context, account string) (int64, error)

	// Currency returns the currency an account is denominated in.
	Currency(ctx context.Context, account string) (string, error)
}
