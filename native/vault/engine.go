package vault

import (
	"math/big"

	"vaultchain/core/types"
	"vaultchain/crypto"
	"vaultchain/native/common"
	"vaultchain/native/fees"
)

const moduleName = "vault"

// sharePrecision is the fixed-point scale used by PricePerFullShare.
var sharePrecision = big.NewInt(1_000_000_000_000_000_000)

type engineState interface {
	GetVault() (*Vault, error)
	PutVault(*Vault) error
	GetHolder(addr crypto.Address) (*HolderPosition, error)
	PutHolder(*HolderPosition) error
	GetAccount(addr crypto.Address) (*types.Account, error)
	PutAccount(addr crypto.Address, account *types.Account) error
}

// Strategy is the narrow capability set the vault demands from its paired
// strategy. The strategy reports and moves value in want-token units; the
// vault never inspects the farm position directly.
type Strategy interface {
	// Deposit stakes the strategy's idle want balance.
	Deposit() error
	// Withdraw unstakes enough to satisfy the requested amount and remits it,
	// net of the withdrawal fee, to the vault account. The remitted amount is
	// returned.
	Withdraw(amount *big.Int) (*big.Int, error)
	// BalanceOf reports the total want under the strategy's management.
	BalanceOf() (*big.Int, error)
}

// Engine is the share ledger: it mints and burns proportional ownership
// shares against the pooled want balance held by the vault and its strategy.
type Engine struct {
	state           engineState
	moduleAddress   crypto.Address
	strategyAddress crypto.Address
	strategy        Strategy
	pauses          common.PauseView
	emit            func(*types.Event)
}

// NewEngine constructs a vault engine bound to the module custody account and
// the paired strategy's custody account.
func NewEngine(moduleAddr, strategyAddr crypto.Address) *Engine {
	return &Engine{moduleAddress: moduleAddr, strategyAddress: strategyAddr}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetStrategy wires the paired strategy.
func (e *Engine) SetStrategy(s Strategy) {
	if e == nil {
		return
	}
	e.strategy = s
}

// SetPauses wires the module pause view.
func (e *Engine) SetPauses(p common.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetEmitter wires the event sink.
func (e *Engine) SetEmitter(emit func(*types.Event)) {
	if e == nil {
		return
	}
	e.emit = emit
}

// Deposit pulls want from the holder, charges the deposit fee, mints shares
// pro-rata at the pre-deposit price and forwards surplus idle want to the
// strategy. The minted share amount is returned.
func (e *Engine) Deposit(holder crypto.Address, amount *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	v, err := e.ensureVault()
	if err != nil {
		return nil, err
	}

	balanceBefore, err := e.pooledBalance()
	if err != nil {
		return nil, err
	}
	if v.DepositCap.Sign() > 0 {
		projected := new(big.Int).Add(balanceBefore, amount)
		if projected.Cmp(v.DepositCap) > 0 {
			return nil, ErrDepositCapExceeded
		}
	}

	holderAcc, err := e.loadAccount(holder)
	if err != nil {
		return nil, err
	}
	if holderAcc.BalanceWant.Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}
	vaultAcc, err := e.loadAccount(e.moduleAddress)
	if err != nil {
		return nil, err
	}

	if err := holderAcc.Debit(types.TokenWant, amount); err != nil {
		return nil, err
	}
	if err := vaultAcc.Credit(types.TokenWant, amount); err != nil {
		return nil, err
	}

	charged := fees.Apply(amount, v.DepositFeeBps)
	net := charged.Net

	// First depositor sets the 1:1 price; later mints are pro-rata against
	// the pre-deposit pooled balance.
	minted := new(big.Int)
	if v.TotalShares.Sign() == 0 || balanceBefore.Sign() == 0 {
		minted.Set(net)
	} else {
		minted.Mul(net, v.TotalShares)
		minted.Quo(minted, balanceBefore)
	}

	position, err := e.ensureHolder(holder)
	if err != nil {
		return nil, err
	}
	position.Shares = new(big.Int).Add(position.Shares, minted)
	v.TotalShares = new(big.Int).Add(v.TotalShares, minted)
	v.FeeReserve = new(big.Int).Add(v.FeeReserve, charged.Fee)

	if err := e.persistAccount(holder, holderAcc); err != nil {
		return nil, err
	}
	if err := e.persistAccount(e.moduleAddress, vaultAcc); err != nil {
		return nil, err
	}
	if err := e.state.PutHolder(position); err != nil {
		return nil, err
	}
	if err := e.state.PutVault(v); err != nil {
		return nil, err
	}

	if err := e.forwardToStrategy(v); err != nil {
		return nil, err
	}

	e.emitEvent(NewDepositedEvent(holder, amount, charged.Fee, minted))
	return minted, nil
}

// Withdraw burns the requested shares and releases the proportional want to
// the holder, unwinding the strategy position when the idle balance cannot
// cover the payout. The released want amount is returned.
func (e *Engine) Withdraw(holder crypto.Address, shares *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if shares == nil || shares.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	v, err := e.ensureVault()
	if err != nil {
		return nil, err
	}
	if v.TotalShares.Sign() == 0 {
		return nil, ErrInsufficientShares
	}

	position, err := e.ensureHolder(holder)
	if err != nil {
		return nil, err
	}
	if position.Shares.Cmp(shares) < 0 {
		return nil, ErrInsufficientShares
	}

	pooled, err := e.pooledBalance()
	if err != nil {
		return nil, err
	}
	amount := new(big.Int).Mul(shares, pooled)
	amount.Quo(amount, v.TotalShares)

	// Burn before any fund movement so a reentrant call cannot trade on a
	// stale share price.
	position.Shares = new(big.Int).Sub(position.Shares, shares)
	v.TotalShares = new(big.Int).Sub(v.TotalShares, shares)
	if err := e.state.PutHolder(position); err != nil {
		return nil, err
	}
	if err := e.state.PutVault(v); err != nil {
		return nil, err
	}

	vaultAcc, err := e.loadAccount(e.moduleAddress)
	if err != nil {
		return nil, err
	}
	payout := new(big.Int).Set(amount)
	if vaultAcc.BalanceWant.Cmp(amount) < 0 {
		if e.strategy == nil {
			return nil, ErrInsufficientLiquidity
		}
		idleBefore := new(big.Int).Set(vaultAcc.BalanceWant)
		shortfall := new(big.Int).Sub(amount, idleBefore)
		// The strategy fails the whole operation when the farm cannot release
		// the shortfall; a successful return remits shortfall net of the
		// withdrawal fee, which reduces only this holder's proceeds.
		remitted, err := e.strategy.Withdraw(shortfall)
		if err != nil {
			return nil, err
		}
		payout = new(big.Int).Add(idleBefore, remitted)
		if payout.Cmp(amount) > 0 {
			payout.Set(amount)
		}
		vaultAcc, err = e.loadAccount(e.moduleAddress)
		if err != nil {
			return nil, err
		}
		if vaultAcc.BalanceWant.Cmp(payout) < 0 {
			return nil, ErrInsufficientLiquidity
		}
	}

	holderAcc, err := e.loadAccount(holder)
	if err != nil {
		return nil, err
	}
	if err := vaultAcc.Debit(types.TokenWant, payout); err != nil {
		return nil, ErrInsufficientLiquidity
	}
	if err := holderAcc.Credit(types.TokenWant, payout); err != nil {
		return nil, err
	}
	if err := e.persistAccount(e.moduleAddress, vaultAcc); err != nil {
		return nil, err
	}
	if err := e.persistAccount(holder, holderAcc); err != nil {
		return nil, err
	}

	e.emitEvent(NewWithdrawnEvent(holder, shares, payout))
	return payout, nil
}

// WithdrawAll burns the holder's entire share balance.
func (e *Engine) WithdrawAll(holder crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	position, err := e.ensureHolder(holder)
	if err != nil {
		return nil, err
	}
	if position.Shares.Sign() == 0 {
		return nil, ErrInvalidAmount
	}
	return e.Withdraw(holder, position.Shares)
}

// Balance reports the total want under management: the vault's idle balance
// plus the strategy's reported balance. The figure is always recomputed so a
// harvest-driven increase in the strategy balance is reflected immediately.
func (e *Engine) Balance() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	return e.pooledBalance()
}

// PricePerFullShare reports the want value of one full share at 1e18
// fixed-point precision. An empty ledger prices at exactly 1.0.
func (e *Engine) PricePerFullShare() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	v, err := e.ensureVault()
	if err != nil {
		return nil, err
	}
	if v.TotalShares.Sign() == 0 {
		return new(big.Int).Set(sharePrecision), nil
	}
	pooled, err := e.pooledBalance()
	if err != nil {
		return nil, err
	}
	price := new(big.Int).Mul(pooled, sharePrecision)
	price.Quo(price, v.TotalShares)
	return price, nil
}

// HolderShares reports the holder's current share balance.
func (e *Engine) HolderShares(holder crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	position, err := e.ensureHolder(holder)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(position.Shares), nil
}

// forwardToStrategy pushes idle want above the buffer threshold to the
// strategy custody account and asks the strategy to stake it. The fee reserve
// never leaves the vault.
func (e *Engine) forwardToStrategy(v *Vault) error {
	if e.strategy == nil {
		return nil
	}
	vaultAcc, err := e.loadAccount(e.moduleAddress)
	if err != nil {
		return err
	}
	pooled, err := e.pooledBalance()
	if err != nil {
		return err
	}
	buffer := new(big.Int).Mul(pooled, new(big.Int).SetUint64(v.IdleBufferBps))
	buffer.Quo(buffer, big.NewInt(fees.PercentDivisor))

	reserve := new(big.Int).Set(v.FeeReserve)
	if reserve.Cmp(vaultAcc.BalanceWant) > 0 {
		reserve = new(big.Int).Set(vaultAcc.BalanceWant)
	}

	forwardable := new(big.Int).Sub(vaultAcc.BalanceWant, reserve)
	forwardable.Sub(forwardable, buffer)
	if forwardable.Sign() <= 0 {
		return nil
	}

	strategyAcc, err := e.loadAccount(e.strategyAddress)
	if err != nil {
		return err
	}
	if err := vaultAcc.Debit(types.TokenWant, forwardable); err != nil {
		return err
	}
	if err := strategyAcc.Credit(types.TokenWant, forwardable); err != nil {
		return err
	}
	if err := e.persistAccount(e.moduleAddress, vaultAcc); err != nil {
		return err
	}
	if err := e.persistAccount(e.strategyAddress, strategyAcc); err != nil {
		return err
	}
	return e.strategy.Deposit()
}

func (e *Engine) pooledBalance() (*big.Int, error) {
	vaultAcc, err := e.loadAccount(e.moduleAddress)
	if err != nil {
		return nil, err
	}
	total := new(big.Int).Set(vaultAcc.BalanceWant)
	if e.strategy != nil {
		managed, err := e.strategy.BalanceOf()
		if err != nil {
			return nil, err
		}
		if managed != nil {
			total.Add(total, managed)
		}
	}
	return total, nil
}

func (e *Engine) ensureVault() (*Vault, error) {
	v, err := e.state.GetVault()
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrNotInitialised
	}
	v.Normalize()
	return v, nil
}

func (e *Engine) ensureHolder(addr crypto.Address) (*HolderPosition, error) {
	position, err := e.state.GetHolder(addr)
	if err != nil {
		return nil, err
	}
	if position == nil {
		position = &HolderPosition{Address: addr}
	}
	position.Normalize()
	return position, nil
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
