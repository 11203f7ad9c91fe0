package fees

import (
	"errors"
	"math/big"
)

var (
	errTotalFeeRange    = errors.New("fees: total fee exceeds percent divisor")
	errCallTreasurySum  = errors.New("fees: call fee plus treasury fee exceeds percent divisor")
	errStrategistRange  = errors.New("fees: strategist fee exceeds percent divisor")
	errSplitNilBalance  = errors.New("fees: nil harvest balance")
	errSplitNotValidate = errors.New("fees: harvest config failed validation")
)

// HarvestConfig carries the basis-point fractions applied to every harvest.
// TotalFeeBps is charged on the swapped intermediate-token balance; CallFeeBps
// and TreasuryFeeBps split that charge, and StrategistFeeBps carves the
// strategist's cut out of the treasury portion.
type HarvestConfig struct {
	TotalFeeBps      uint64
	CallFeeBps       uint64
	TreasuryFeeBps   uint64
	StrategistFeeBps uint64
}

// Validate enforces the range invariants on the configured fractions.
func (c HarvestConfig) Validate() error {
	if c.TotalFeeBps > PercentDivisor {
		return errTotalFeeRange
	}
	if c.CallFeeBps+c.TreasuryFeeBps > PercentDivisor {
		return errCallTreasurySum
	}
	if c.StrategistFeeBps > PercentDivisor {
		return errStrategistRange
	}
	return nil
}

// Split is the exact decomposition of one harvest charge. The parts always sum
// to TotalFee; integer-division remainders accrue to the treasury.
type Split struct {
	TotalFee   *big.Int
	CallFee    *big.Int
	Strategist *big.Int
	Treasury   *big.Int
}

// HarvestSplit computes the fee decomposition for the supplied
// intermediate-token balance. The caller incentive and strategist carve-out
// are floored; whatever remains of the total charge is routed to the treasury
// so the three parts reconcile exactly.
func HarvestSplit(balance *big.Int, cfg HarvestConfig) (Split, error) {
	if err := cfg.Validate(); err != nil {
		return Split{}, errors.Join(errSplitNotValidate, err)
	}
	if balance == nil {
		return Split{}, errSplitNilBalance
	}
	split := Split{
		TotalFee:   big.NewInt(0),
		CallFee:    big.NewInt(0),
		Strategist: big.NewInt(0),
		Treasury:   big.NewInt(0),
	}
	if balance.Sign() <= 0 || cfg.TotalFeeBps == 0 {
		return split, nil
	}
	divisor := big.NewInt(PercentDivisor)

	total := new(big.Int).Mul(balance, new(big.Int).SetUint64(cfg.TotalFeeBps))
	total.Quo(total, divisor)
	if total.Sign() <= 0 {
		return split, nil
	}
	split.TotalFee = total

	callFee := new(big.Int).Mul(total, new(big.Int).SetUint64(cfg.CallFeeBps))
	callFee.Quo(callFee, divisor)
	split.CallFee = callFee

	treasuryCut := new(big.Int).Mul(total, new(big.Int).SetUint64(cfg.TreasuryFeeBps))
	treasuryCut.Quo(treasuryCut, divisor)

	strategist := new(big.Int).Mul(treasuryCut, new(big.Int).SetUint64(cfg.StrategistFeeBps))
	strategist.Quo(strategist, divisor)
	split.Strategist = strategist

	treasury := new(big.Int).Sub(total, callFee)
	treasury.Sub(treasury, strategist)
	split.Treasury = treasury
	return split, nil
}
