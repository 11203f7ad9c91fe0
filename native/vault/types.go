package vault

import (
	"math/big"

	"vaultchain/crypto"
)

// Vault captures the global share-ledger state. Amounts are denominated in the
// smallest unit of the want token and expressed as big integers.
type Vault struct {
	// PoolID names the farm pool the paired strategy stakes into.
	PoolID uint64
	// TotalShares is the sum of all issued ownership shares.
	TotalShares *big.Int
	// DepositFeeBps is charged at mint time and retained in the vault's idle
	// balance, diluting the depositor in favour of existing holders.
	DepositFeeBps uint64
	// DepositCap bounds the total want under management. Zero disables the cap.
	DepositCap *big.Int
	// IdleBufferBps is the fraction of managed want kept idle in the vault
	// instead of being forwarded to the strategy.
	IdleBufferBps uint64
	// FeeReserve accumulates deposit fees; the reserve is part of the pooled
	// balance but is never forwarded to the strategy.
	FeeReserve *big.Int
}

// Normalize replaces nil big integers with zero values.
func (v *Vault) Normalize() {
	if v.TotalShares == nil {
		v.TotalShares = big.NewInt(0)
	}
	if v.FeeReserve == nil {
		v.FeeReserve = big.NewInt(0)
	}
	if v.DepositCap == nil {
		v.DepositCap = big.NewInt(0)
	}
}

// HolderPosition is a single holder's share balance.
type HolderPosition struct {
	Address crypto.Address
	Shares  *big.Int
}

// Normalize replaces a nil share balance with zero.
func (h *HolderPosition) Normalize() {
	if h.Shares == nil {
		h.Shares = big.NewInt(0)
	}
}
