package strategy

import (
	"math/big"

	"vaultchain/core/types"
	"vaultchain/crypto"
	"vaultchain/native/fees"
)

type engineState interface {
	GetStrategy() (*Strategy, error)
	PutStrategy(*Strategy) error
	GetAccount(addr crypto.Address) (*types.Account, error)
	PutAccount(addr crypto.Address, account *types.Account) error
}

// Engine orchestrates the strategy lifecycle: staking idle want into the
// farm, unwinding it for withdrawals, and compounding harvested rewards. The
// vault is the only caller trusted to move funds in and out; privileged
// lifecycle transitions are authorised upstream.
type Engine struct {
	state              engineState
	moduleAddress      crypto.Address
	vaultAddress       crypto.Address
	treasuryAddress    crypto.Address
	strategistRemitter crypto.Address
	farm               FarmingPool
	router             SwapRouter
	lending            LendingMarket
	rewardRoute        []types.Token
	wantRoute          []types.Token
	timestamp          uint64
	emit               func(*types.Event)
}

// NewEngine constructs a strategy engine bound to its custody account, the
// vault's custody account and the fee recipients.
func NewEngine(moduleAddr, vaultAddr, treasury, strategistRemitter crypto.Address) *Engine {
	return &Engine{
		moduleAddress:      moduleAddr,
		vaultAddress:       vaultAddr,
		treasuryAddress:    treasury,
		strategistRemitter: strategistRemitter,
		rewardRoute:        []types.Token{types.TokenReward, types.TokenWrapped},
		wantRoute:          []types.Token{types.TokenWrapped, types.TokenWant},
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetFarm wires the farming adapter.
func (e *Engine) SetFarm(farm FarmingPool) {
	if e == nil {
		return
	}
	e.farm = farm
}

// SetRouter wires the swap adapter.
func (e *Engine) SetRouter(router SwapRouter) {
	if e == nil {
		return
	}
	e.router = router
}

// SetLending wires the lending adapter used by the leveraged variant.
func (e *Engine) SetLending(market LendingMarket) {
	if e == nil {
		return
	}
	e.lending = market
}

// SetRoutes overrides the default swap routes. An empty or single-token want
// route marks the wrapped token as the want token, turning the second harvest
// swap into a no-op.
func (e *Engine) SetRoutes(rewardRoute, wantRoute []types.Token) {
	if e == nil {
		return
	}
	e.rewardRoute = rewardRoute
	e.wantRoute = wantRoute
}

// SetTimestamp records the wall-clock second used for harvest telemetry.
func (e *Engine) SetTimestamp(ts uint64) {
	if e == nil {
		return
	}
	e.timestamp = ts
}

// SetEmitter wires the event sink.
func (e *Engine) SetEmitter(emit func(*types.Event)) {
	if e == nil {
		return
	}
	e.emit = emit
}

// Deposit stakes the strategy's entire idle want balance into the farm pool.
// A zero idle balance is a no-op; paused and retired strategies refuse.
func (e *Engine) Deposit() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	record, err := e.ensureStrategy()
	if err != nil {
		return err
	}
	switch record.Status {
	case StatusPaused:
		return ErrPaused
	case StatusRetired:
		return ErrRetired
	}
	if e.farm == nil {
		return ErrFarmNotConfigured
	}
	account, err := e.loadAccount(e.moduleAddress)
	if err != nil {
		return err
	}
	if account.BalanceWant.Sign() <= 0 {
		return nil
	}
	return e.farm.Deposit(record.PoolID, account.BalanceWant)
}

// Withdraw releases the requested want amount to the vault, unstaking exactly
// the shortfall from the farm when the idle balance cannot cover it. The
// security fee is deducted from the requested amount and retained in the
// strategy's idle balance for recompounding; the net remittance is returned.
// Withdrawals are honoured in every lifecycle state.
func (e *Engine) Withdraw(requested *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if requested == nil || requested.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	record, err := e.ensureStrategy()
	if err != nil {
		return nil, err
	}

	account, err := e.loadAccount(e.moduleAddress)
	if err != nil {
		return nil, err
	}
	if account.BalanceWant.Cmp(requested) < 0 {
		if e.farm == nil {
			return nil, ErrInsufficientLiquidity
		}
		shortfall := new(big.Int).Sub(requested, account.BalanceWant)
		staked, _, err := e.farm.UserInfo(record.PoolID)
		if err != nil {
			return nil, err
		}
		if staked == nil || staked.Cmp(shortfall) < 0 {
			return nil, ErrInsufficientLiquidity
		}
		// Unstake exactly the shortfall, never more.
		if err := e.farm.Withdraw(record.PoolID, shortfall); err != nil {
			return nil, err
		}
		account, err = e.loadAccount(e.moduleAddress)
		if err != nil {
			return nil, err
		}
		if account.BalanceWant.Cmp(requested) < 0 {
			return nil, ErrInsufficientLiquidity
		}
	}

	charged := fees.Apply(requested, record.WithdrawFeeBps)
	net := charged.Net

	vaultAcc, err := e.loadAccount(e.vaultAddress)
	if err != nil {
		return nil, err
	}
	if err := account.Debit(types.TokenWant, net); err != nil {
		return nil, err
	}
	if err := vaultAcc.Credit(types.TokenWant, net); err != nil {
		return nil, err
	}
	if err := e.persistAccount(e.moduleAddress, account); err != nil {
		return nil, err
	}
	if err := e.persistAccount(e.vaultAddress, vaultAcc); err != nil {
		return nil, err
	}

	if record.Status == StatusActive && record.TargetLTVBps > 0 && e.lending != nil {
		if err := e.rebalance(record); err != nil {
			return nil, err
		}
	}
	return net, nil
}

// BalanceOf reports the total want under the strategy's management: idle
// balance, staked farm position and, for the leveraged variant, net
// collateral.
func (e *Engine) BalanceOf() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	record, err := e.ensureStrategy()
	if err != nil {
		return nil, err
	}
	account, err := e.loadAccount(e.moduleAddress)
	if err != nil {
		return nil, err
	}
	total := new(big.Int).Set(account.BalanceWant)
	if e.farm != nil {
		staked, _, err := e.farm.UserInfo(record.PoolID)
		if err != nil {
			return nil, err
		}
		if staked != nil {
			total.Add(total, staked)
		}
	}
	if e.lending != nil {
		collateral, debt, err := e.lending.Position()
		if err != nil {
			return nil, err
		}
		if collateral != nil {
			total.Add(total, collateral)
		}
		if debt != nil {
			total.Sub(total, debt)
		}
	}
	return total, nil
}

// Pause blocks deposits and revokes external spending approvals. Withdrawals
// remain available.
func (e *Engine) Pause() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	record, err := e.ensureStrategy()
	if err != nil {
		return err
	}
	switch record.Status {
	case StatusPaused:
		return ErrPaused
	case StatusRetired:
		return ErrRetired
	}
	record.Status = StatusPaused
	record.ApprovalsGranted = false
	if err := e.state.PutStrategy(record); err != nil {
		return err
	}
	e.emitEvent(NewPausedEvent())
	return nil
}

// Unpause re-grants approvals and puts idle funds back to work.
func (e *Engine) Unpause() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	record, err := e.ensureStrategy()
	if err != nil {
		return err
	}
	switch record.Status {
	case StatusActive:
		return ErrNotPaused
	case StatusRetired:
		return ErrRetired
	}
	record.Status = StatusActive
	record.ApprovalsGranted = true
	if err := e.state.PutStrategy(record); err != nil {
		return err
	}
	e.emitEvent(NewUnpausedEvent())
	return e.Deposit()
}

// Panic is the emergency stop: it unstakes the entire farm position back into
// the strategy's idle balance and pauses, without restaking, rebalancing or
// charging harvest fees.
func (e *Engine) Panic() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	record, err := e.ensureStrategy()
	if err != nil {
		return err
	}
	if record.Status == StatusRetired {
		return ErrRetired
	}
	if e.farm != nil {
		staked, _, err := e.farm.UserInfo(record.PoolID)
		if err != nil {
			return err
		}
		if staked != nil && staked.Sign() > 0 {
			if err := e.farm.Withdraw(record.PoolID, staked); err != nil {
				return err
			}
		}
	}
	record.Status = StatusPaused
	record.ApprovalsGranted = false
	if err := e.state.PutStrategy(record); err != nil {
		return err
	}
	e.emitEvent(NewPanickedEvent())
	return nil
}

// Retire runs a final fee-charging harvest, unwinds the entire farm position
// and forwards every remaining want token to the vault. The transition is
// irreversible.
func (e *Engine) Retire(caller crypto.Address) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	record, err := e.ensureStrategy()
	if err != nil {
		return err
	}
	if record.Status == StatusRetired {
		return ErrRetired
	}
	if e.farm == nil {
		return ErrFarmNotConfigured
	}

	if _, _, err := e.harvestCore(record, caller); err != nil {
		return err
	}

	staked, _, err := e.farm.UserInfo(record.PoolID)
	if err != nil {
		return err
	}
	if staked != nil && staked.Sign() > 0 {
		if err := e.farm.Withdraw(record.PoolID, staked); err != nil {
			return err
		}
	}

	if e.lending != nil {
		if err := e.unwindLeverage(); err != nil {
			return err
		}
	}

	account, err := e.loadAccount(e.moduleAddress)
	if err != nil {
		return err
	}
	forwarded := new(big.Int).Set(account.BalanceWant)
	if forwarded.Sign() > 0 {
		vaultAcc, err := e.loadAccount(e.vaultAddress)
		if err != nil {
			return err
		}
		if err := account.Debit(types.TokenWant, forwarded); err != nil {
			return err
		}
		if err := vaultAcc.Credit(types.TokenWant, forwarded); err != nil {
			return err
		}
		if err := e.persistAccount(e.moduleAddress, account); err != nil {
			return err
		}
		if err := e.persistAccount(e.vaultAddress, vaultAcc); err != nil {
			return err
		}
	}

	record.Status = StatusRetired
	record.ApprovalsGranted = false
	if err := e.state.PutStrategy(record); err != nil {
		return err
	}
	e.emitEvent(NewRetiredEvent(forwarded))
	return nil
}

// SweepStuckToken transfers the strategy's full balance of a non-want token
// to the recipient. Want can never be swept; it belongs to the vault's
// holders.
func (e *Engine) SweepStuckToken(token types.Token, to crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if token == types.TokenWant {
		return nil, ErrWantNotSweepable
	}
	account, err := e.loadAccount(e.moduleAddress)
	if err != nil {
		return nil, err
	}
	balance, err := account.Balance(token)
	if err != nil {
		return nil, err
	}
	if balance.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	recipient, err := e.loadAccount(to)
	if err != nil {
		return nil, err
	}
	if err := account.Debit(token, balance); err != nil {
		return nil, err
	}
	if err := recipient.Credit(token, balance); err != nil {
		return nil, err
	}
	if err := e.persistAccount(e.moduleAddress, account); err != nil {
		return nil, err
	}
	if err := e.persistAccount(to, recipient); err != nil {
		return nil, err
	}
	return balance, nil
}

// Info returns a copy of the persisted strategy record.
func (e *Engine) Info() (*Strategy, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	record, err := e.ensureStrategy()
	if err != nil {
		return nil, err
	}
	clone := *record
	clone.LifetimeHarvested = new(big.Int).Set(record.LifetimeHarvested)
	return &clone, nil
}

func (e *Engine) ensureStrategy() (*Strategy, error) {
	record, err := e.state.GetStrategy()
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotInitialised
	}
	record.Normalize()
	return record, nil
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

func (e *Engine) persistAccount(addr crypto.Address, account *types.Account) error {
	return e.state.PutAccount(addr, account)
}

func (e *Engine) emitEvent(event *types.Event) {
	if e.emit != nil && event != nil {
		e.emit(event)
	}
}
