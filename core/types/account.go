package types

import (
	"errors"
	"math/big"
)

// Token names every balance in the ledger. The vault accepts and accounts in
// the want token; the farm pays the reward token; harvests route value through
// the wrapped (intermediate) token before converting back to want.
type Token string

const (
	TokenWant    Token = "want"
	TokenReward  Token = "reward"
	TokenWrapped Token = "wrapped"
)

// ErrUnknownToken is returned when a balance operation names a token the
// ledger does not track.
var ErrUnknownToken = errors.New("types: unknown token")

// Account holds the per-address token balances tracked by the ledger.
type Account struct {
	Nonce          uint64   `json:"nonce"`
	BalanceWant    *big.Int `json:"balanceWant"`
	BalanceReward  *big.Int `json:"balanceReward"`
	BalanceWrapped *big.Int `json:"balanceWrapped"`
}

// NewAccount returns an account with zeroed balances.
func NewAccount() *Account {
	return &Account{
		BalanceWant:    big.NewInt(0),
		BalanceReward:  big.NewInt(0),
		BalanceWrapped: big.NewInt(0),
	}
}

// Normalize replaces nil balances with zero so callers can operate on decoded
// accounts without nil checks.
func (a *Account) Normalize() {
	if a.BalanceWant == nil {
		a.BalanceWant = big.NewInt(0)
	}
	if a.BalanceReward == nil {
		a.BalanceReward = big.NewInt(0)
	}
	if a.BalanceWrapped == nil {
		a.BalanceWrapped = big.NewInt(0)
	}
}

// Balance returns a copy of the balance held in the named token.
func (a *Account) Balance(token Token) (*big.Int, error) {
	a.Normalize()
	switch token {
	case TokenWant:
		return new(big.Int).Set(a.BalanceWant), nil
	case TokenReward:
		return new(big.Int).Set(a.BalanceReward), nil
	case TokenWrapped:
		return new(big.Int).Set(a.BalanceWrapped), nil
	}
	return nil, ErrUnknownToken
}

// Credit adds amount to the named token balance.
func (a *Account) Credit(token Token, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	a.Normalize()
	switch token {
	case TokenWant:
		a.BalanceWant = new(big.Int).Add(a.BalanceWant, amount)
	case TokenReward:
		a.BalanceReward = new(big.Int).Add(a.BalanceReward, amount)
	case TokenWrapped:
		a.BalanceWrapped = new(big.Int).Add(a.BalanceWrapped, amount)
	default:
		return ErrUnknownToken
	}
	return nil
}

// ErrInsufficientFunds is returned when a debit exceeds the held balance.
var ErrInsufficientFunds = errors.New("types: insufficient funds")

// Debit removes amount from the named token balance, failing when the balance
// cannot cover it.
func (a *Account) Debit(token Token, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	a.Normalize()
	current, err := a.Balance(token)
	if err != nil {
		return err
	}
	if current.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	switch token {
	case TokenWant:
		a.BalanceWant = new(big.Int).Sub(a.BalanceWant, amount)
	case TokenReward:
		a.BalanceReward = new(big.Int).Sub(a.BalanceReward, amount)
	case TokenWrapped:
		a.BalanceWrapped = new(big.Int).Sub(a.BalanceWrapped, amount)
	}
	return nil
}
