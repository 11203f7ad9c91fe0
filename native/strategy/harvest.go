package strategy

import (
	"math/big"

	"vaultchain/core/types"
	"vaultchain/crypto"
	"vaultchain/native/fees"
)

// HarvestResult reports what a completed harvest produced.
type HarvestResult struct {
	// WantCompounded is the want put back to work by the final restake.
	WantCompounded *big.Int
	// Split is the exact fee decomposition charged on the wrapped balance.
	Split fees.Split
}

// Harvest runs the compounding pipeline as one unit of work: claim pending
// rewards, swap them to the wrapped token, charge the fee split, swap the
// remainder to want and restake. The caller receives the call-fee incentive.
// Only an active strategy harvests.
func (e *Engine) Harvest(caller crypto.Address) (*HarvestResult, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	record, err := e.ensureStrategy()
	if err != nil {
		return nil, err
	}
	switch record.Status {
	case StatusPaused:
		return nil, ErrPaused
	case StatusRetired:
		return nil, ErrRetired
	}

	wantOut, split, err := e.harvestCore(record, caller)
	if err != nil {
		return nil, err
	}

	if err := e.Deposit(); err != nil {
		return nil, err
	}

	record.LastHarvest = e.timestamp
	record.LifetimeHarvested = new(big.Int).Add(record.LifetimeHarvested, wantOut)
	if err := e.state.PutStrategy(record); err != nil {
		return nil, err
	}

	e.emitEvent(NewHarvestedEvent(caller, wantOut, split))
	return &HarvestResult{WantCompounded: wantOut, Split: split}, nil
}

// harvestCore executes steps 1-4 of the pipeline (claim, swap to wrapped,
// charge fees, swap to want) without restaking. Every step tolerates a zero
// balance; any adapter failure aborts the whole harvest.
func (e *Engine) harvestCore(record *Strategy, caller crypto.Address) (*big.Int, fees.Split, error) {
	zeroSplit := fees.Split{
		TotalFee:   big.NewInt(0),
		CallFee:    big.NewInt(0),
		Strategist: big.NewInt(0),
		Treasury:   big.NewInt(0),
	}
	if e.farm == nil {
		return nil, zeroSplit, ErrFarmNotConfigured
	}
	if e.router == nil {
		return nil, zeroSplit, ErrRouterNotConfigured
	}

	// Step 1: claim pending rewards into the strategy account.
	if err := e.farm.Withdraw(record.PoolID, big.NewInt(0)); err != nil {
		return nil, zeroSplit, err
	}

	// Step 2: swap the full reward balance to the wrapped token.
	account, err := e.loadAccount(e.moduleAddress)
	if err != nil {
		return nil, zeroSplit, err
	}
	if account.BalanceReward.Sign() > 0 && len(e.rewardRoute) >= 2 {
		minOut, err := e.slippageBound(account.BalanceReward, e.rewardRoute, record.HarvestMinOutBps)
		if err != nil {
			return nil, zeroSplit, err
		}
		if _, err := e.router.SwapExactIn(account.BalanceReward, minOut, e.rewardRoute, e.moduleAddress); err != nil {
			return nil, zeroSplit, err
		}
	}

	// Step 3: charge the fee split on the wrapped balance.
	account, err = e.loadAccount(e.moduleAddress)
	if err != nil {
		return nil, zeroSplit, err
	}
	split, err := fees.HarvestSplit(account.BalanceWrapped, record.HarvestFees)
	if err != nil {
		return nil, zeroSplit, err
	}
	if split.TotalFee.Sign() > 0 {
		if err := account.Debit(types.TokenWrapped, split.TotalFee); err != nil {
			return nil, zeroSplit, err
		}
		if err := e.persistAccount(e.moduleAddress, account); err != nil {
			return nil, zeroSplit, err
		}
		if err := e.payWrapped(caller, split.CallFee); err != nil {
			return nil, zeroSplit, err
		}
		if err := e.payWrapped(e.strategistRemitter, split.Strategist); err != nil {
			return nil, zeroSplit, err
		}
		if err := e.payWrapped(e.treasuryAddress, split.Treasury); err != nil {
			return nil, zeroSplit, err
		}
	}

	// Step 4: swap the remaining wrapped balance to want. A short want route
	// means want is the wrapped token and the swap is a no-op.
	account, err = e.loadAccount(e.moduleAddress)
	if err != nil {
		return nil, zeroSplit, err
	}
	wantOut := big.NewInt(0)
	if account.BalanceWrapped.Sign() > 0 && len(e.wantRoute) >= 2 {
		minOut, err := e.slippageBound(account.BalanceWrapped, e.wantRoute, record.HarvestMinOutBps)
		if err != nil {
			return nil, zeroSplit, err
		}
		out, err := e.router.SwapExactIn(account.BalanceWrapped, minOut, e.wantRoute, e.moduleAddress)
		if err != nil {
			return nil, zeroSplit, err
		}
		wantOut = out
	}
	return wantOut, split, nil
}

// slippageBound converts the configured min-out fraction into an absolute
// bound on the quoted output. A zero fraction accepts any output, matching
// the historical trusted-harvester behaviour.
func (e *Engine) slippageBound(amountIn *big.Int, route []types.Token, minOutBps uint64) (*big.Int, error) {
	if minOutBps == 0 {
		return big.NewInt(0), nil
	}
	quoted, err := e.router.QuoteExactIn(amountIn, route)
	if err != nil {
		return nil, err
	}
	bound := new(big.Int).Mul(quoted, new(big.Int).SetUint64(minOutBps))
	bound.Quo(bound, big.NewInt(fees.PercentDivisor))
	return bound, nil
}

func (e *Engine) payWrapped(to crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	recipient, err := e.loadAccount(to)
	if err != nil {
		return err
	}
	if err := recipient.Credit(types.TokenWrapped, amount); err != nil {
		return err
	}
	return e.persistAccount(to, recipient)
}

// EstimateHarvest projects the wrapped-token profit and caller incentive of a
// harvest without executing any swap. The projection mirrors the fee
// arithmetic of the live pipeline exactly so off-chain callers can decide
// whether a harvest is worth submitting.
func (e *Engine) EstimateHarvest() (profit, callFee *big.Int, err error) {
	if e == nil || e.state == nil {
		return nil, nil, ErrNilState
	}
	record, err := e.ensureStrategy()
	if err != nil {
		return nil, nil, err
	}
	if e.farm == nil {
		return nil, nil, ErrFarmNotConfigured
	}
	if e.router == nil {
		return nil, nil, ErrRouterNotConfigured
	}

	pending, err := e.farm.PendingReward(record.PoolID)
	if err != nil {
		return nil, nil, err
	}
	account, err := e.loadAccount(e.moduleAddress)
	if err != nil {
		return nil, nil, err
	}
	rewards := new(big.Int).Set(account.BalanceReward)
	if pending != nil {
		rewards.Add(rewards, pending)
	}

	wrapped := new(big.Int).Set(account.BalanceWrapped)
	if rewards.Sign() > 0 && len(e.rewardRoute) >= 2 {
		quoted, err := e.router.QuoteExactIn(rewards, e.rewardRoute)
		if err != nil {
			return nil, nil, err
		}
		wrapped.Add(wrapped, quoted)
	}

	split, err := fees.HarvestSplit(wrapped, record.HarvestFees)
	if err != nil {
		return nil, nil, err
	}
	return wrapped, split.CallFee, nil
}
