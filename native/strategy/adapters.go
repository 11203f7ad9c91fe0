package strategy

import (
	"math/big"

	"vaultchain/core/types"
	"vaultchain/crypto"
)

// FarmingPool is the staking adapter the strategy farms through. All calls
// operate on the strategy's custody account: Deposit moves want out of the
// account into the pool, Withdraw moves it back, and both settle any pending
// reward into the account's reward balance. Withdraw with a zero amount is a
// pure reward claim.
type FarmingPool interface {
	Deposit(poolID uint64, amount *big.Int) error
	Withdraw(poolID uint64, amount *big.Int) error
	PendingReward(poolID uint64) (*big.Int, error)
	UserInfo(poolID uint64) (staked, rewardDebt *big.Int, err error)
}

// SwapRouter swaps along a token route on behalf of the strategy. SwapExactIn
// debits amountIn of the first route token from the recipient account,
// credits the output in the last route token and fails when the output falls
// below minOut. QuoteExactIn projects the output without moving funds.
type SwapRouter interface {
	SwapExactIn(amountIn, minOut *big.Int, route []types.Token, recipient crypto.Address) (*big.Int, error)
	QuoteExactIn(amountIn *big.Int, route []types.Token) (*big.Int, error)
}

// LendingMarket is the borrowing adapter used by the leveraged variant. The
// strategy posts want as collateral and borrows want against it; Position
// reports the current collateral and outstanding debt.
type LendingMarket interface {
	SupplyCollateral(amount *big.Int) error
	WithdrawCollateral(amount *big.Int) error
	Borrow(amount *big.Int) error
	Repay(amount *big.Int) error
	Position() (collateral, debt *big.Int, err error)
}
