package vault

import "errors"

var (
	// ErrNilState signals the engine was used before wiring its state.
	ErrNilState = errors.New("vault engine: state not configured")
	// ErrNotInitialised signals the vault record is missing from state.
	ErrNotInitialised = errors.New("vault engine: vault not initialised")
	// ErrInvalidAmount rejects zero or negative deposit/withdraw requests.
	ErrInvalidAmount = errors.New("vault engine: amount must be positive")
	// ErrInsufficientShares rejects withdrawals above the holder's balance.
	ErrInsufficientShares = errors.New("vault engine: insufficient shares")
	// ErrInsufficientBalance rejects deposits above the holder's want balance.
	ErrInsufficientBalance = errors.New("vault engine: insufficient balance")
	// ErrDepositCapExceeded rejects deposits that would push managed want past
	// the configured cap.
	ErrDepositCapExceeded = errors.New("vault engine: deposit cap exceeded")
	// ErrInsufficientLiquidity signals the strategy could not return enough
	// want to satisfy a withdrawal.
	ErrInsufficientLiquidity = errors.New("vault engine: insufficient liquidity")
)
