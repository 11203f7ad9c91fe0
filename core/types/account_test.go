package types

import (
	"math/big"
	"testing"
)

func TestCreditDebitRoundTrip(t *testing.T) {
	account := NewAccount()
	if err := account.Credit(TokenWant, big.NewInt(500)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := account.Debit(TokenWant, big.NewInt(200)); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if account.BalanceWant.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("unexpected balance: %s", account.BalanceWant)
	}
	if err := account.Debit(TokenWant, big.NewInt(301)); err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestDebitWithAliasedAmount(t *testing.T) {
	account := NewAccount()
	if err := account.Credit(TokenWant, big.NewInt(1_000)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	// Debiting the account's own balance pointer must drain it exactly once.
	if err := account.Debit(TokenWant, account.BalanceWant); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if account.BalanceWant.Sign() != 0 {
		t.Fatalf("balance should be zero: %s", account.BalanceWant)
	}
}

func TestUnknownTokenRejected(t *testing.T) {
	account := NewAccount()
	if err := account.Credit(Token("gold"), big.NewInt(1)); err != ErrUnknownToken {
		t.Fatalf("expected ErrUnknownToken, got %v", err)
	}
	if _, err := account.Balance(Token("gold")); err != ErrUnknownToken {
		t.Fatalf("expected ErrUnknownToken, got %v", err)
	}
}
