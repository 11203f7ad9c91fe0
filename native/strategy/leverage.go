package strategy

import (
	"math/big"

	"vaultchain/native/fees"
)

// CalculateLTV reports the leveraged position's loan-to-value in basis
// points: debt * 10000 / collateral. A position with no collateral has zero
// LTV.
func (e *Engine) CalculateLTV() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, ErrNilState
	}
	if e.lending == nil {
		return 0, ErrLendingNotConfigured
	}
	collateral, debt, err := e.lending.Position()
	if err != nil {
		return 0, err
	}
	if collateral == nil || collateral.Sign() == 0 || debt == nil || debt.Sign() == 0 {
		return 0, nil
	}
	ltv := new(big.Int).Mul(debt, big.NewInt(fees.PercentDivisor))
	ltv.Quo(ltv, collateral)
	return ltv.Uint64(), nil
}

// rebalance pushes the actual LTV back toward the target when it drifts
// outside the tolerance band, borrowing to lever up or repaying to delever in
// the same unit of work as the triggering withdrawal.
func (e *Engine) rebalance(record *Strategy) error {
	if e.lending == nil {
		return ErrLendingNotConfigured
	}
	collateral, debt, err := e.lending.Position()
	if err != nil {
		return err
	}
	if collateral == nil || collateral.Sign() == 0 {
		return nil
	}
	if debt == nil {
		debt = big.NewInt(0)
	}

	divisor := big.NewInt(fees.PercentDivisor)
	desiredDebt := new(big.Int).Mul(collateral, new(big.Int).SetUint64(record.TargetLTVBps))
	desiredDebt.Quo(desiredDebt, divisor)

	band := new(big.Int).Mul(collateral, new(big.Int).SetUint64(record.LTVToleranceBps))
	band.Quo(band, divisor)

	diff := new(big.Int).Sub(debt, desiredDebt)
	switch {
	case diff.CmpAbs(band) <= 0:
		return nil
	case diff.Sign() > 0:
		return e.delever(record, diff)
	default:
		return e.lever(diff.Neg(diff))
	}
}

// delever repays the excess debt, unstaking from the farm when the idle
// balance cannot cover the repayment.
func (e *Engine) delever(record *Strategy, repay *big.Int) error {
	account, err := e.loadAccount(e.moduleAddress)
	if err != nil {
		return err
	}
	if account.BalanceWant.Cmp(repay) < 0 {
		if e.farm == nil {
			return ErrInsufficientLiquidity
		}
		shortfall := new(big.Int).Sub(repay, account.BalanceWant)
		staked, _, err := e.farm.UserInfo(record.PoolID)
		if err != nil {
			return err
		}
		if staked == nil || staked.Cmp(shortfall) < 0 {
			return ErrInsufficientLiquidity
		}
		if err := e.farm.Withdraw(record.PoolID, shortfall); err != nil {
			return err
		}
	}
	return e.lending.Repay(repay)
}

// lever borrows additional want against the posted collateral; the borrowed
// funds join the idle balance and are staked on the next deposit.
func (e *Engine) lever(borrow *big.Int) error {
	return e.lending.Borrow(borrow)
}

// unwindLeverage repays all outstanding debt and withdraws the posted
// collateral, used on retirement.
func (e *Engine) unwindLeverage() error {
	collateral, debt, err := e.lending.Position()
	if err != nil {
		return err
	}
	if debt != nil && debt.Sign() > 0 {
		account, err := e.loadAccount(e.moduleAddress)
		if err != nil {
			return err
		}
		if account.BalanceWant.Cmp(debt) < 0 {
			return ErrInsufficientLiquidity
		}
		if err := e.lending.Repay(debt); err != nil {
			return err
		}
	}
	if collateral != nil && collateral.Sign() > 0 {
		if err := e.lending.WithdrawCollateral(collateral); err != nil {
			return err
		}
	}
	return nil
}
