package vault

import (
	"math/big"

	"vaultchain/core/types"
	"vaultchain/crypto"
)

const (
	// EventTypeDeposited is emitted when a holder mints shares.
	EventTypeDeposited = "vault.deposited"
	// EventTypeWithdrawn is emitted when a holder burns shares.
	EventTypeWithdrawn = "vault.withdrawn"
)

// NewDepositedEvent returns the canonical payload for a completed deposit.
func NewDepositedEvent(holder crypto.Address, amount, fee, minted *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeDeposited,
		Attributes: map[string]string{
			"holder": holder.String(),
			"amount": safeAmount(amount),
			"fee":    safeAmount(fee),
			"shares": safeAmount(minted),
		},
	}
}

// NewWithdrawnEvent returns the canonical payload for a completed withdrawal.
func NewWithdrawnEvent(holder crypto.Address, shares, payout *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeWithdrawn,
		Attributes: map[string]string{
			"holder": holder.String(),
			"shares": safeAmount(shares),
			"payout": safeAmount(payout),
		},
	}
}

func safeAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
