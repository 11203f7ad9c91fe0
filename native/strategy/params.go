package strategy

import (
	"vaultchain/native/fees"
)

// withdrawFeeCapBps bounds the security fee at 5%.
const withdrawFeeCapBps = 500

// maxTargetLTVBps keeps the leveraged variant below 90% loan-to-value.
const maxTargetLTVBps = 9_000

// SetWithdrawFee updates the security fee charged on strategy withdrawals.
func (e *Engine) SetWithdrawFee(bps uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if bps > withdrawFeeCapBps {
		return ErrFeeOutOfRange
	}
	record, err := e.ensureStrategy()
	if err != nil {
		return err
	}
	if record.Status == StatusRetired {
		return ErrRetired
	}
	record.WithdrawFeeBps = bps
	return e.state.PutStrategy(record)
}

// SetHarvestFees replaces the harvest fee split after validating its ranges.
func (e *Engine) SetHarvestFees(cfg fees.HarvestConfig) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	record, err := e.ensureStrategy()
	if err != nil {
		return err
	}
	if record.Status == StatusRetired {
		return ErrRetired
	}
	record.HarvestFees = cfg
	return e.state.PutStrategy(record)
}

// SetHarvestMinOut updates the slippage bound applied to harvest swaps,
// expressed as a basis-point fraction of the quoted output. Zero disables the
// bound.
func (e *Engine) SetHarvestMinOut(bps uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if bps > fees.PercentDivisor {
		return ErrFeeOutOfRange
	}
	record, err := e.ensureStrategy()
	if err != nil {
		return err
	}
	record.HarvestMinOutBps = bps
	return e.state.PutStrategy(record)
}

// SetTargetLTV configures the leveraged variant's target loan-to-value and
// tolerance band. A zero target disables leverage management.
func (e *Engine) SetTargetLTV(targetBps, toleranceBps uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if targetBps > maxTargetLTVBps || toleranceBps > targetBps {
		return ErrLTVOutOfRange
	}
	if targetBps > 0 && e.lending == nil {
		return ErrLendingNotConfigured
	}
	record, err := e.ensureStrategy()
	if err != nil {
		return err
	}
	if record.Status == StatusRetired {
		return ErrRetired
	}
	record.TargetLTVBps = targetBps
	record.LTVToleranceBps = toleranceBps
	return e.state.PutStrategy(record)
}
