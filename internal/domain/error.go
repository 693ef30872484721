package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid executor context")

	// Authorization failures. Rejected, never retried.
	ErrInactivePlan     = errors.New("plan is not active")
	ErrCurrencyMismatch = errors.New("account currency does not match plan currency")
	ErrWrongCaller      = errors.New("caller is not authorized for this entity")
	ErrNotActive        = errors.New("subscription is not active")

	// ErrInsufficientFunds is the one recoverable billing error; the engine
	// handles it locally by scheduling a retry after a fixed back-off.
	ErrInsufficientFunds = errors.New("escrow balance below plan amount")

	// ErrMaxRetriesExceeded is terminal for the subscription.
	ErrMaxRetriesExceeded = errors.New("max charge retries exceeded")

	// ErrArithmeticOverflow aborts the current invocation with no state change.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	// ErrSchedulerMismatch rejects a charge delivery whose task id does not
	// match the subscription's expected next task (stale or replayed trigger).
	ErrSchedulerMismatch = errors.New("charge task does not match expected task id")
)
