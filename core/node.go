package core

import (
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"vaultchain/core/state"
	"vaultchain/core/types"
	"vaultchain/crypto"
	"vaultchain/native/amm"
	"vaultchain/native/common"
	"vaultchain/native/farm"
	"vaultchain/native/lending"
	"vaultchain/native/strategy"
	"vaultchain/native/upgrade"
	"vaultchain/native/vault"
	"vaultchain/observability"
	"vaultchain/storage"
)

var (
	// ErrUnauthorized rejects a privileged call from the wrong address.
	ErrUnauthorized = errors.New("node: caller not authorized")
	// ErrInvalidAddress rejects a zero-value address in a role assignment.
	ErrInvalidAddress = errors.New("node: invalid address")
)

// defaultCooldownSeconds is the upgrade timelock applied when the
// configuration leaves it unset: six hours.
const defaultCooldownSeconds = 21_600

// vaultPauseModule is the pause toggle guarding vault deposits.
const vaultPauseModule = "vault"

// eventHistoryLimit bounds the in-memory event ring.
const eventHistoryLimit = 256

var rolesKey = []byte("node/roles")

// Roles are the persisted privileged addresses. The owner governs parameters,
// roles and the upgrade timelock; the strategist shares the operational
// switches and receives the strategist fee; the treasury receives the
// treasury fee.
type Roles struct {
	Owner      crypto.Address `json:"owner"`
	Strategist crypto.Address `json:"strategist"`
	Treasury   crypto.Address `json:"treasury"`
}

// Node is the central controller: it owns the database, serialises ledger
// operations and wires the native engines to a fresh state overlay per
// operation, so every operation commits atomically or not at all.
type Node struct {
	mu      sync.Mutex
	db      storage.Database
	manager *state.Manager
	params  Params
	pauses  *common.PauseSet
	logger  *slog.Logger
	metrics *observability.VaultMetrics

	events []*types.Event

	now func() time.Time
}

// engines is the per-operation wiring: every engine shares one store, so one
// commit covers all of them.
type engines struct {
	store    *state.Store
	roles    *Roles
	vault    *vault.Engine
	strategy *strategy.Engine
	upgrade  *upgrade.Engine
	farm     *farm.Engine
	amm      *amm.Engine
	lending  *lending.Engine
	now      uint64
	events   []*types.Event
}

// NewNode opens a node over the database, initialising the ledger from params
// when the database is empty.
func NewNode(db storage.Database, params Params, logger *slog.Logger) (*Node, error) {
	params.Normalize()
	if params.CooldownSeconds == 0 {
		params.CooldownSeconds = defaultCooldownSeconds
	}
	if logger == nil {
		logger = slog.Default()
	}
	n := &Node{
		db:      db,
		manager: state.NewManager(db),
		params:  params,
		pauses:  common.NewPauseSet(),
		logger:  logger,
		now:     time.Now,
	}
	if err := n.initialise(); err != nil {
		return nil, err
	}
	return n, nil
}

// SetMetrics wires the telemetry registry. Without it the node runs silent.
func (n *Node) SetMetrics(m *observability.VaultMetrics) {
	n.metrics = m
}

// SetClock overrides the node's time source.
func (n *Node) SetClock(now func() time.Time) {
	if now != nil {
		n.now = now
	}
}

// initialise seeds the ledger on first start and restores the pause toggle on
// restart.
func (n *Node) initialise() error {
	store := n.manager.Begin()
	record, err := store.GetVault()
	if err != nil {
		return err
	}
	if record == nil {
		if err := n.seedGenesis(store); err != nil {
			store.Discard()
			return err
		}
		if err := store.Commit(); err != nil {
			return err
		}
		n.logger.Info("ledger initialised",
			"poolId", n.params.PoolID,
			"owner", n.params.Owner.String(),
		)
		return nil
	}
	store.Discard()

	view := n.manager.Begin()
	defer view.Discard()
	stratRecord, err := view.GetStrategy()
	if err != nil {
		return err
	}
	if stratRecord != nil {
		switch stratRecord.Status {
		case strategy.StatusPaused, strategy.StatusRetired:
			n.pauses.SetPaused(vaultPauseModule, true)
		}
	}
	return nil
}

func (n *Node) seedGenesis(store *state.Store) error {
	p := n.params
	if err := store.PutVault(&vault.Vault{
		PoolID:        p.PoolID,
		TotalShares:   big.NewInt(0),
		DepositFeeBps: p.DepositFeeBps,
		DepositCap:    new(big.Int).Set(p.DepositCap),
		IdleBufferBps: p.IdleBufferBps,
		FeeReserve:    big.NewInt(0),
	}); err != nil {
		return err
	}
	if err := store.PutStrategy(&strategy.Strategy{
		PoolID:            p.PoolID,
		Status:            strategy.StatusActive,
		WithdrawFeeBps:    p.WithdrawFeeBps,
		HarvestFees:       p.HarvestFees,
		HarvestMinOutBps:  p.HarvestMinOutBps,
		TargetLTVBps:      p.TargetLTVBps,
		LTVToleranceBps:   p.LTVToleranceBps,
		ApprovalsGranted:  true,
		LifetimeHarvested: big.NewInt(0),
	}); err != nil {
		return err
	}
	if err := store.PutJSON(rolesKey, &Roles{
		Owner:      p.Owner,
		Strategist: p.Strategist,
		Treasury:   p.Treasury,
	}); err != nil {
		return err
	}

	farmEng := farm.NewEngine(FarmAddress)
	farmEng.SetState(store)
	farmEng.SetTimestamp(uint64(n.now().Unix()))
	if err := farmEng.CreatePool(p.PoolID, p.RewardPerSecond); err != nil {
		return err
	}

	if p.SwapReserve.Sign() > 0 {
		ammEng := amm.NewEngine(AMMAddress)
		ammEng.SetState(store)
		if err := ammEng.SeedPair(types.TokenReward, types.TokenWrapped, p.SwapReserve, p.SwapReserve, p.SwapFeeBps); err != nil {
			return err
		}
		if err := ammEng.SeedPair(types.TokenWrapped, types.TokenWant, p.SwapReserve, p.SwapReserve, p.SwapFeeBps); err != nil {
			return err
		}
	}

	if p.CollateralFactorBps > 0 && p.LendingLiquidity.Sign() > 0 {
		lendEng, err := lending.NewEngine(LendingAddress, p.CollateralFactorBps)
		if err != nil {
			return err
		}
		lendEng.SetState(store)
		if err := lendEng.SeedLiquidity(p.LendingLiquidity); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) buildEngines(store *state.Store) (*engines, error) {
	roles := new(Roles)
	if _, err := store.GetJSON(rolesKey, roles); err != nil {
		return nil, err
	}
	env := &engines{store: store, roles: roles, now: uint64(n.now().Unix())}
	collect := func(event *types.Event) {
		env.events = append(env.events, event)
	}

	env.farm = farm.NewEngine(FarmAddress)
	env.farm.SetState(store)
	env.farm.SetTimestamp(env.now)

	env.amm = amm.NewEngine(AMMAddress)
	env.amm.SetState(store)

	env.strategy = strategy.NewEngine(StrategyAddress, VaultAddress, roles.Treasury, roles.Strategist)
	env.strategy.SetState(store)
	env.strategy.SetFarm(env.farm.Bind(StrategyAddress))
	env.strategy.SetRouter(env.amm)
	env.strategy.SetTimestamp(env.now)
	env.strategy.SetEmitter(collect)
	if n.params.CollateralFactorBps > 0 {
		lendEng, err := lending.NewEngine(LendingAddress, n.params.CollateralFactorBps)
		if err != nil {
			return nil, err
		}
		lendEng.SetState(store)
		env.lending = lendEng
		env.strategy.SetLending(lendEng.Bind(StrategyAddress))
	}

	env.vault = vault.NewEngine(VaultAddress, StrategyAddress)
	env.vault.SetState(store)
	env.vault.SetStrategy(env.strategy)
	env.vault.SetPauses(n.pauses)
	env.vault.SetEmitter(collect)

	upEng, err := upgrade.NewEngine(n.params.CooldownSeconds)
	if err != nil {
		return nil, err
	}
	upEng.SetState(store)
	upEng.SetEmitter(collect)
	env.upgrade = upEng

	return env, nil
}

// execute runs one ledger operation against a fresh overlay and commits it on
// success. Failures discard the overlay, so no operation ever half-applies.
func (n *Node) execute(fn func(env *engines) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	store := n.manager.Begin()
	env, err := n.buildEngines(store)
	if err != nil {
		store.Discard()
		return err
	}
	if err := fn(env); err != nil {
		store.Discard()
		return err
	}
	if err := store.Commit(); err != nil {
		store.Discard()
		return err
	}
	n.appendEvents(env.events)
	return nil
}

// view runs a read-only function and always discards the overlay.
func (n *Node) view(fn func(env *engines) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	store := n.manager.Begin()
	defer store.Discard()
	env, err := n.buildEngines(store)
	if err != nil {
		return err
	}
	return fn(env)
}

func (n *Node) appendEvents(events []*types.Event) {
	n.events = append(n.events, events...)
	if len(n.events) > eventHistoryLimit {
		n.events = n.events[len(n.events)-eventHistoryLimit:]
	}
}

func (env *engines) requireOwner(caller crypto.Address) error {
	if caller.String() != env.roles.Owner.String() {
		return ErrUnauthorized
	}
	return nil
}

// requireAccountAddress keeps module custody accounts out of externally
// supplied actor positions. Acting as a custody address would load two
// aliased copies of the same record, so a debit and credit against it
// double-count the balance and break conservation.
func requireAccountAddress(addr crypto.Address) error {
	if addr.Prefix() != crypto.AccountPrefix {
		return ErrInvalidAddress
	}
	return nil
}

func (env *engines) requireOperator(caller crypto.Address) error {
	if caller.String() == env.roles.Owner.String() || caller.String() == env.roles.Strategist.String() {
		return nil
	}
	return ErrUnauthorized
}

// Deposit moves amount of the holder's want into the vault and mints shares.
func (n *Node) Deposit(holder crypto.Address, amount *big.Int) (*big.Int, error) {
	if err := requireAccountAddress(holder); err != nil {
		return nil, err
	}
	var minted *big.Int
	err := n.execute(func(env *engines) error {
		var err error
		minted, err = env.vault.Deposit(holder, amount)
		if err != nil {
			return err
		}
		return n.publishGauges(env)
	})
	if err != nil {
		return nil, err
	}
	n.metrics.ObserveDeposit()
	n.logger.Info("deposit", "holder", holder.String(), "amount", amount.String(), "minted", minted.String())
	return minted, nil
}

// Withdraw burns shares and pays out the holder's proportional want.
func (n *Node) Withdraw(holder crypto.Address, shares *big.Int) (*big.Int, error) {
	if err := requireAccountAddress(holder); err != nil {
		return nil, err
	}
	var payout *big.Int
	err := n.execute(func(env *engines) error {
		var err error
		payout, err = env.vault.Withdraw(holder, shares)
		if err != nil {
			return err
		}
		return n.publishGauges(env)
	})
	if err != nil {
		return nil, err
	}
	n.metrics.ObserveWithdrawal()
	n.logger.Info("withdraw", "holder", holder.String(), "shares", shares.String(), "payout", payout.String())
	return payout, nil
}

// WithdrawAll burns the holder's entire position.
func (n *Node) WithdrawAll(holder crypto.Address) (*big.Int, error) {
	if err := requireAccountAddress(holder); err != nil {
		return nil, err
	}
	var payout *big.Int
	err := n.execute(func(env *engines) error {
		var err error
		payout, err = env.vault.WithdrawAll(holder)
		if err != nil {
			return err
		}
		return n.publishGauges(env)
	})
	if err != nil {
		return nil, err
	}
	n.metrics.ObserveWithdrawal()
	n.logger.Info("withdraw all", "holder", holder.String(), "payout", payout.String())
	return payout, nil
}

// Harvest compounds pending farm rewards. Callable by anyone; the caller
// earns the call fee.
func (n *Node) Harvest(caller crypto.Address) (*strategy.HarvestResult, error) {
	if err := requireAccountAddress(caller); err != nil {
		return nil, err
	}
	var result *strategy.HarvestResult
	err := n.execute(func(env *engines) error {
		var err error
		result, err = env.strategy.Harvest(caller)
		if err != nil {
			return err
		}
		return n.publishGauges(env)
	})
	if err != nil {
		return nil, err
	}
	n.metrics.ObserveHarvest(result.WantCompounded)
	n.metrics.ObserveFee("caller", result.Split.CallFee)
	n.metrics.ObserveFee("strategist", result.Split.Strategist)
	n.metrics.ObserveFee("treasury", result.Split.Treasury)
	n.logger.Info("harvest",
		"caller", caller.String(),
		"compounded", result.WantCompounded.String(),
		"totalFee", result.Split.TotalFee.String(),
	)
	return result, nil
}

// EstimateHarvest projects the profit and call fee of a harvest.
func (n *Node) EstimateHarvest() (profit, callFee *big.Int, err error) {
	err = n.view(func(env *engines) error {
		profit, callFee, err = env.strategy.EstimateHarvest()
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return profit, callFee, nil
}

// Pause blocks deposits and pauses the strategy. Withdrawals stay open.
func (n *Node) Pause(caller crypto.Address) error {
	err := n.execute(func(env *engines) error {
		if err := env.requireOperator(caller); err != nil {
			return err
		}
		return env.strategy.Pause()
	})
	if err != nil {
		return err
	}
	n.pauses.SetPaused(vaultPauseModule, true)
	n.logger.Warn("paused", "caller", caller.String())
	return nil
}

// Unpause re-enables deposits and puts idle strategy funds back to work.
func (n *Node) Unpause(caller crypto.Address) error {
	err := n.execute(func(env *engines) error {
		if err := env.requireOperator(caller); err != nil {
			return err
		}
		return env.strategy.Unpause()
	})
	if err != nil {
		return err
	}
	n.pauses.SetPaused(vaultPauseModule, false)
	n.logger.Info("unpaused", "caller", caller.String())
	return nil
}

// Panic is the emergency stop: unstake everything and pause.
func (n *Node) Panic(caller crypto.Address) error {
	err := n.execute(func(env *engines) error {
		if err := env.requireOperator(caller); err != nil {
			return err
		}
		return env.strategy.Panic()
	})
	if err != nil {
		return err
	}
	n.pauses.SetPaused(vaultPauseModule, true)
	n.logger.Warn("panicked", "caller", caller.String())
	return nil
}

// Retire permanently winds the strategy down and forwards its funds to the
// vault.
func (n *Node) Retire(caller crypto.Address) error {
	err := n.execute(func(env *engines) error {
		if err := env.requireOwner(caller); err != nil {
			return err
		}
		return env.strategy.Retire(caller)
	})
	if err != nil {
		return err
	}
	n.pauses.SetPaused(vaultPauseModule, true)
	n.logger.Warn("strategy retired", "caller", caller.String())
	return nil
}

// SweepStuckToken moves a non-want token balance out of the strategy.
func (n *Node) SweepStuckToken(caller crypto.Address, token types.Token, to crypto.Address) (*big.Int, error) {
	if err := requireAccountAddress(to); err != nil {
		return nil, err
	}
	var swept *big.Int
	err := n.execute(func(env *engines) error {
		if err := env.requireOwner(caller); err != nil {
			return err
		}
		var err error
		swept, err = env.strategy.SweepStuckToken(token, to)
		return err
	})
	if err != nil {
		return nil, err
	}
	return swept, nil
}

// publishGauges refreshes the price and balance gauges from the current
// overlay before it commits.
func (n *Node) publishGauges(env *engines) error {
	price, err := env.vault.PricePerFullShare()
	if err != nil {
		return err
	}
	balance, err := env.vault.Balance()
	if err != nil {
		return err
	}
	n.metrics.SetPricePerShare(price)
	n.metrics.SetTotalBalance(balance)
	return nil
}
