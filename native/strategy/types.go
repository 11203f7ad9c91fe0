package strategy

import (
	"math/big"

	"vaultchain/native/fees"
)

// Status enumerates the strategy lifecycle. Retired is terminal.
type Status string

const (
	StatusActive  Status = "active"
	StatusPaused  Status = "paused"
	StatusRetired Status = "retired"
)

// Strategy is the persisted strategy record. Fee fractions are basis points
// of fees.PercentDivisor.
type Strategy struct {
	// PoolID identifies the farm pool the strategy stakes into; fixed at
	// initialisation.
	PoolID uint64 `json:"poolId"`
	// Status is the lifecycle state gating deposits and harvests.
	Status Status `json:"status"`
	// WithdrawFeeBps is the security fee charged on amounts withdrawn through
	// the strategy.
	WithdrawFeeBps uint64 `json:"withdrawFeeBps"`
	// HarvestFees configures the harvest fee split.
	HarvestFees fees.HarvestConfig `json:"harvestFees"`
	// HarvestMinOutBps bounds harvest swap slippage as a fraction of the
	// quoted output. Zero accepts any output.
	HarvestMinOutBps uint64 `json:"harvestMinOutBps"`
	// TargetLTVBps is the target loan-to-value for the leveraged variant.
	// Zero disables leverage management.
	TargetLTVBps uint64 `json:"targetLtvBps"`
	// LTVToleranceBps is the band around the target inside which no
	// correction is applied.
	LTVToleranceBps uint64 `json:"ltvToleranceBps"`
	// ApprovalsGranted mirrors the external spending approvals; revoked on
	// pause, re-granted on unpause.
	ApprovalsGranted bool `json:"approvalsGranted"`
	// LastHarvest is the unix timestamp of the most recent harvest.
	LastHarvest uint64 `json:"lastHarvest"`
	// LifetimeHarvested accumulates want compounded by harvests.
	LifetimeHarvested *big.Int `json:"lifetimeHarvested"`
}

// Normalize replaces nil big integers with zero values and defaults the
// status to active.
func (s *Strategy) Normalize() {
	if s.LifetimeHarvested == nil {
		s.LifetimeHarvested = big.NewInt(0)
	}
	if s.Status == "" {
		s.Status = StatusActive
	}
}
