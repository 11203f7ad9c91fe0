package fees

import "math/big"

// PercentDivisor is the basis-point denominator shared by every fee fraction
// in the protocol.
const PercentDivisor = 10_000

// Result summarises a proportional fee deduction.
type Result struct {
	Fee *big.Int
	Net *big.Int
}

// Apply deducts a basis-point fee from the gross amount. The fee is floored by
// integer division and never exceeds the gross; a nil or non-positive gross
// yields a zero fee and zero net.
func Apply(gross *big.Int, bps uint64) Result {
	result := Result{Fee: big.NewInt(0), Net: big.NewInt(0)}
	if gross == nil || gross.Sign() <= 0 {
		return result
	}
	result.Net = new(big.Int).Set(gross)
	if bps == 0 {
		return result
	}
	fee := new(big.Int).Mul(gross, new(big.Int).SetUint64(bps))
	fee.Quo(fee, big.NewInt(PercentDivisor))
	if fee.Sign() <= 0 {
		return result
	}
	if fee.Cmp(gross) >= 0 {
		result.Fee = new(big.Int).Set(gross)
		result.Net = big.NewInt(0)
		return result
	}
	result.Fee = fee
	result.Net = new(big.Int).Sub(gross, fee)
	return result
}
