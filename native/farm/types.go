package farm

import (
	"errors"
	"math/big"
)

var (
	// ErrNilState signals the engine was used before wiring its state.
	ErrNilState = errors.New("farm engine: state not configured")
	// ErrPoolNotFound rejects operations against an unregistered pool.
	ErrPoolNotFound = errors.New("farm engine: pool not found")
	// ErrInvalidAmount rejects nil or negative amounts.
	ErrInvalidAmount = errors.New("farm engine: invalid amount")
	// ErrInsufficientStake rejects withdrawing more than the staked amount.
	ErrInsufficientStake = errors.New("farm engine: insufficient staked amount")
)

// accPrecision scales the accumulated reward-per-share fixed point.
var accPrecision = big.NewInt(1_000_000_000_000)

// Pool is one staking pool's persisted state. Rewards accrue linearly over
// time and are distributed pro rata over the staked balance through the
// accumulated reward-per-share fixed point.
type Pool struct {
	ID                uint64   `json:"id"`
	RewardPerSecond   *big.Int `json:"rewardPerSecond"`
	AccRewardPerShare *big.Int `json:"accRewardPerShare"`
	LastRewardTime    uint64   `json:"lastRewardTime"`
	TotalStaked       *big.Int `json:"totalStaked"`
}

// Normalize replaces nil big integers with zero values.
func (p *Pool) Normalize() {
	if p.RewardPerSecond == nil {
		p.RewardPerSecond = big.NewInt(0)
	}
	if p.AccRewardPerShare == nil {
		p.AccRewardPerShare = big.NewInt(0)
	}
	if p.TotalStaked == nil {
		p.TotalStaked = big.NewInt(0)
	}
}

// User is one staker's position in a pool. RewardDebt is the masterchef
// bookkeeping trick: pending = amount * accRewardPerShare - rewardDebt.
type User struct {
	Amount     *big.Int `json:"amount"`
	RewardDebt *big.Int `json:"rewardDebt"`
}

// Normalize replaces nil big integers with zero values.
func (u *User) Normalize() {
	if u.Amount == nil {
		u.Amount = big.NewInt(0)
	}
	if u.RewardDebt == nil {
		u.RewardDebt = big.NewInt(0)
	}
}
