package farm

import (
	"math/big"

	"vaultchain/core/types"
	"vaultchain/crypto"
)

type engineState interface {
	GetFarmPool(id uint64) (*Pool, error)
	PutFarmPool(*Pool) error
	GetFarmUser(poolID uint64, addr crypto.Address) (*User, error)
	PutFarmUser(poolID uint64, addr crypto.Address, user *User) error
	GetAccount(addr crypto.Address) (*types.Account, error)
	PutAccount(addr crypto.Address, account *types.Account) error
}

// Engine is a masterchef-style staking pool: stakers deposit want into the
// farm's custody account and earn the reward token at a fixed per-second
// emission, shared pro rata. Every deposit or withdrawal settles the caller's
// pending reward first, so a zero-amount withdrawal is a pure claim.
type Engine struct {
	state         engineState
	moduleAddress crypto.Address
	timestamp     uint64
}

// NewEngine constructs a farm engine with the given custody account.
func NewEngine(moduleAddr crypto.Address) *Engine {
	return &Engine{moduleAddress: moduleAddr}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetTimestamp records the wall-clock second used for reward accrual.
func (e *Engine) SetTimestamp(ts uint64) {
	if e == nil {
		return
	}
	e.timestamp = ts
}

// CreatePool registers a staking pool emitting rewardPerSecond of the reward
// token. Re-registering an existing pool updates its emission rate after
// settling the accrual at the old rate.
func (e *Engine) CreatePool(id uint64, rewardPerSecond *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if rewardPerSecond == nil || rewardPerSecond.Sign() < 0 {
		return ErrInvalidAmount
	}
	pool, err := e.state.GetFarmPool(id)
	if err != nil {
		return err
	}
	if pool == nil {
		pool = &Pool{ID: id, LastRewardTime: e.timestamp}
		pool.Normalize()
	} else {
		pool.Normalize()
		e.accrue(pool)
	}
	pool.RewardPerSecond = new(big.Int).Set(rewardPerSecond)
	return e.state.PutFarmPool(pool)
}

// Deposit stakes amount of the staker's want into the pool.
func (e *Engine) Deposit(staker crypto.Address, poolID uint64, amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	pool, user, err := e.loadPosition(staker, poolID)
	if err != nil {
		return err
	}
	e.accrue(pool)
	if err := e.settle(staker, pool, user); err != nil {
		return err
	}

	if amount.Sign() > 0 {
		stakerAcc, err := e.loadAccount(staker)
		if err != nil {
			return err
		}
		moduleAcc, err := e.loadAccount(e.moduleAddress)
		if err != nil {
			return err
		}
		if err := stakerAcc.Debit(types.TokenWant, amount); err != nil {
			return err
		}
		if err := moduleAcc.Credit(types.TokenWant, amount); err != nil {
			return err
		}
		if err := e.state.PutAccount(staker, stakerAcc); err != nil {
			return err
		}
		if err := e.state.PutAccount(e.moduleAddress, moduleAcc); err != nil {
			return err
		}
		user.Amount = new(big.Int).Add(user.Amount, amount)
		pool.TotalStaked = new(big.Int).Add(pool.TotalStaked, amount)
	}

	user.RewardDebt = e.debtFor(pool, user.Amount)
	if err := e.state.PutFarmUser(poolID, staker, user); err != nil {
		return err
	}
	return e.state.PutFarmPool(pool)
}

// Withdraw unstakes amount back to the staker. A zero amount claims pending
// rewards without touching the stake.
func (e *Engine) Withdraw(staker crypto.Address, poolID uint64, amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	pool, user, err := e.loadPosition(staker, poolID)
	if err != nil {
		return err
	}
	if amount.Cmp(user.Amount) > 0 {
		return ErrInsufficientStake
	}
	e.accrue(pool)
	if err := e.settle(staker, pool, user); err != nil {
		return err
	}

	if amount.Sign() > 0 {
		stakerAcc, err := e.loadAccount(staker)
		if err != nil {
			return err
		}
		moduleAcc, err := e.loadAccount(e.moduleAddress)
		if err != nil {
			return err
		}
		if err := moduleAcc.Debit(types.TokenWant, amount); err != nil {
			return err
		}
		if err := stakerAcc.Credit(types.TokenWant, amount); err != nil {
			return err
		}
		if err := e.state.PutAccount(staker, stakerAcc); err != nil {
			return err
		}
		if err := e.state.PutAccount(e.moduleAddress, moduleAcc); err != nil {
			return err
		}
		user.Amount = new(big.Int).Sub(user.Amount, amount)
		pool.TotalStaked = new(big.Int).Sub(pool.TotalStaked, amount)
	}

	user.RewardDebt = e.debtFor(pool, user.Amount)
	if err := e.state.PutFarmUser(poolID, staker, user); err != nil {
		return err
	}
	return e.state.PutFarmPool(pool)
}

// PendingReward projects the staker's claimable reward, including accrual up
// to the engine's current timestamp.
func (e *Engine) PendingReward(staker crypto.Address, poolID uint64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	pool, user, err := e.loadPosition(staker, poolID)
	if err != nil {
		return nil, err
	}
	e.accrue(pool)
	return e.pending(pool, user), nil
}

// UserInfo reports the staker's staked amount and reward debt.
func (e *Engine) UserInfo(staker crypto.Address, poolID uint64) (*big.Int, *big.Int, error) {
	if e == nil || e.state == nil {
		return nil, nil, ErrNilState
	}
	_, user, err := e.loadPosition(staker, poolID)
	if err != nil {
		return nil, nil, err
	}
	return new(big.Int).Set(user.Amount), new(big.Int).Set(user.RewardDebt), nil
}

// PoolInfo returns a copy of the pool record.
func (e *Engine) PoolInfo(poolID uint64) (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	pool, err := e.state.GetFarmPool(poolID)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, ErrPoolNotFound
	}
	pool.Normalize()
	clone := *pool
	clone.RewardPerSecond = new(big.Int).Set(pool.RewardPerSecond)
	clone.AccRewardPerShare = new(big.Int).Set(pool.AccRewardPerShare)
	clone.TotalStaked = new(big.Int).Set(pool.TotalStaked)
	return &clone, nil
}

// accrue advances the pool's reward-per-share accumulator to the engine's
// timestamp. Rewards for an empty pool are simply not emitted.
func (e *Engine) accrue(pool *Pool) {
	if e.timestamp <= pool.LastRewardTime {
		return
	}
	elapsed := e.timestamp - pool.LastRewardTime
	pool.LastRewardTime = e.timestamp
	if pool.TotalStaked.Sign() == 0 || pool.RewardPerSecond.Sign() == 0 {
		return
	}
	emitted := new(big.Int).Mul(pool.RewardPerSecond, new(big.Int).SetUint64(elapsed))
	emitted.Mul(emitted, accPrecision)
	emitted.Quo(emitted, pool.TotalStaked)
	pool.AccRewardPerShare = new(big.Int).Add(pool.AccRewardPerShare, emitted)
}

// settle pays the staker's pending reward. The farm mints the reward token;
// it is the ledger's emission source.
func (e *Engine) settle(staker crypto.Address, pool *Pool, user *User) error {
	owed := e.pending(pool, user)
	if owed.Sign() <= 0 {
		return nil
	}
	account, err := e.loadAccount(staker)
	if err != nil {
		return err
	}
	if err := account.Credit(types.TokenReward, owed); err != nil {
		return err
	}
	return e.state.PutAccount(staker, account)
}

func (e *Engine) pending(pool *Pool, user *User) *big.Int {
	if user.Amount.Sign() == 0 {
		return big.NewInt(0)
	}
	earned := e.debtFor(pool, user.Amount)
	if earned.Cmp(user.RewardDebt) <= 0 {
		return big.NewInt(0)
	}
	return earned.Sub(earned, user.RewardDebt)
}

func (e *Engine) debtFor(pool *Pool, amount *big.Int) *big.Int {
	debt := new(big.Int).Mul(amount, pool.AccRewardPerShare)
	return debt.Quo(debt, accPrecision)
}

func (e *Engine) loadPosition(staker crypto.Address, poolID uint64) (*Pool, *User, error) {
	pool, err := e.state.GetFarmPool(poolID)
	if err != nil {
		return nil, nil, err
	}
	if pool == nil {
		return nil, nil, ErrPoolNotFound
	}
	pool.Normalize()
	user, err := e.state.GetFarmUser(poolID, staker)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		user = &User{}
	}
	user.Normalize()
	return pool, user, nil
}

func (e *Engine) loadAccount(addr crypto.Address) (*types.Account, error) {
	account, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if account == nil {
		account = types.NewAccount()
	}
	account.Normalize()
	return account, nil
}

// Binding scopes the engine to one staker account so it satisfies the
// strategy's farming-pool contract.
type Binding struct {
	engine *Engine
	staker crypto.Address
}

// Bind returns a view of the farm acting on behalf of staker.
func (e *Engine) Bind(staker crypto.Address) *Binding {
	return &Binding{engine: e, staker: staker}
}

func (b *Binding) Deposit(poolID uint64, amount *big.Int) error {
	return b.engine.Deposit(b.staker, poolID, amount)
}

func (b *Binding) Withdraw(poolID uint64, amount *big.Int) error {
	return b.engine.Withdraw(b.staker, poolID, amount)
}

func (b *Binding) PendingReward(poolID uint64) (*big.Int, error) {
	return b.engine.PendingReward(b.staker, poolID)
}

func (b *Binding) UserInfo(poolID uint64) (*big.Int, *big.Int, error) {
	return b.engine.UserInfo(b.staker, poolID)
}
