package core

import (
	"crypto/sha256"
	"math/big"

	"vaultchain/crypto"
	"vaultchain/native/fees"
)

// Params are the genesis parameters of the ledger. They seed the vault,
// strategy, farm, swap pools and lending market the first time a node starts
// on an empty database; afterwards the persisted records win.
type Params struct {
	// PoolID is the farm pool the strategy stakes into.
	PoolID uint64
	// CooldownSeconds is the upgrade timelock duration.
	CooldownSeconds uint64

	DepositFeeBps uint64
	// DepositCap bounds total want under management. Zero disables the cap.
	DepositCap    *big.Int
	IdleBufferBps uint64

	WithdrawFeeBps   uint64
	HarvestFees      fees.HarvestConfig
	HarvestMinOutBps uint64

	// TargetLTVBps enables the leveraged strategy variant when non-zero.
	TargetLTVBps    uint64
	LTVToleranceBps uint64
	// CollateralFactorBps bounds borrowing in the lending market.
	CollateralFactorBps uint64

	// RewardPerSecond is the farm pool's emission rate.
	RewardPerSecond *big.Int
	// SwapReserve seeds each side of the reward/wrapped and wrapped/want
	// pools.
	SwapReserve *big.Int
	// SwapFeeBps is the swap fee charged by both pools.
	SwapFeeBps uint64
	// LendingLiquidity seeds the lending market's lendable want.
	LendingLiquidity *big.Int

	Owner      crypto.Address
	Strategist crypto.Address
	Treasury   crypto.Address
}

// Normalize replaces nil big integers with zero values.
func (p *Params) Normalize() {
	if p.DepositCap == nil {
		p.DepositCap = big.NewInt(0)
	}
	if p.RewardPerSecond == nil {
		p.RewardPerSecond = big.NewInt(0)
	}
	if p.SwapReserve == nil {
		p.SwapReserve = big.NewInt(0)
	}
	if p.LendingLiquidity == nil {
		p.LendingLiquidity = big.NewInt(0)
	}
}

// ModuleAddress derives the deterministic custody address of a native module.
func ModuleAddress(name string) crypto.Address {
	sum := sha256.Sum256([]byte("vaultchain/module/" + name))
	return crypto.NewAddress(crypto.ModulePrefix, sum[:20])
}

// Module custody accounts.
var (
	VaultAddress    = ModuleAddress("vault")
	StrategyAddress = ModuleAddress("strategy")
	FarmAddress     = ModuleAddress("farm")
	AMMAddress      = ModuleAddress("amm")
	LendingAddress  = ModuleAddress("lending")
)
