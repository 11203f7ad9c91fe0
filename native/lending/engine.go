package lending

import (
	"errors"
	"math/big"

	"vaultchain/core/types"
	"vaultchain/crypto"
	"vaultchain/native/fees"
)

var (
	// ErrNilState signals the engine was used before wiring its state.
	ErrNilState = errors.New("lending engine: state not configured")
	// ErrInvalidAmount rejects nil or non-positive amounts.
	ErrInvalidAmount = errors.New("lending engine: invalid amount")
	// ErrUndercollateralised rejects borrows or collateral withdrawals that
	// would push the position past the collateral factor.
	ErrUndercollateralised = errors.New("lending engine: position would be undercollateralised")
	// ErrInsufficientLiquidity rejects borrows the market cannot fund.
	ErrInsufficientLiquidity = errors.New("lending engine: insufficient market liquidity")
	// ErrExcessRepayment rejects repaying more than the outstanding debt.
	ErrExcessRepayment = errors.New("lending engine: repayment exceeds debt")
	// ErrInvalidFactor rejects a collateral factor at or above 100%.
	ErrInvalidFactor = errors.New("lending engine: collateral factor out of range")
)

// Position is one borrower's persisted collateral and debt, both in want.
type Position struct {
	Collateral *big.Int `json:"collateral"`
	Debt       *big.Int `json:"debt"`
}

// Normalize replaces nil big integers with zero values.
func (p *Position) Normalize() {
	if p.Collateral == nil {
		p.Collateral = big.NewInt(0)
	}
	if p.Debt == nil {
		p.Debt = big.NewInt(0)
	}
}

type engineState interface {
	GetLendingPosition(addr crypto.Address) (*Position, error)
	PutLendingPosition(addr crypto.Address, position *Position) error
	GetAccount(addr crypto.Address) (*types.Account, error)
	PutAccount(addr crypto.Address, account *types.Account) error
}

// Engine is a single-asset collateral market: borrowers post want as
// collateral and borrow want against it, bounded by the collateral factor.
// The custody account holds both posted collateral and lendable liquidity.
type Engine struct {
	state         engineState
	moduleAddress crypto.Address
	factorBps     uint64
}

// NewEngine constructs a lending engine whose positions may borrow up to
// factorBps of their collateral value.
func NewEngine(moduleAddr crypto.Address, factorBps uint64) (*Engine, error) {
	if factorBps == 0 || factorBps >= fees.PercentDivisor {
		return nil, ErrInvalidFactor
	}
	return &Engine{moduleAddress: moduleAddr, factorBps: factorBps}, nil
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SeedLiquidity mints lendable want into the market's custody account.
func (e *Engine) SeedLiquidity(amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	module, err := e.loadAccount(e.moduleAddress)
	if err != nil {
		return err
	}
	if err := module.Credit(types.TokenWant, amount); err != nil {
		return err
	}
	return e.state.PutAccount(e.moduleAddress, module)
}

// SupplyCollateral moves amount of the borrower's want into the market as
// collateral.
func (e *Engine) SupplyCollateral(borrower crypto.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	position, err := e.loadPosition(borrower)
	if err != nil {
		return err
	}
	if err := e.transfer(borrower, e.moduleAddress, amount); err != nil {
		return err
	}
	position.Collateral = new(big.Int).Add(position.Collateral, amount)
	return e.state.PutLendingPosition(borrower, position)
}

// WithdrawCollateral returns amount of collateral to the borrower, provided
// the remaining collateral still covers the debt under the collateral factor.
func (e *Engine) WithdrawCollateral(borrower crypto.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	position, err := e.loadPosition(borrower)
	if err != nil {
		return err
	}
	if amount.Cmp(position.Collateral) > 0 {
		return ErrUndercollateralised
	}
	remaining := new(big.Int).Sub(position.Collateral, amount)
	if !e.covered(remaining, position.Debt) {
		return ErrUndercollateralised
	}
	if err := e.transfer(e.moduleAddress, borrower, amount); err != nil {
		return err
	}
	position.Collateral = remaining
	return e.state.PutLendingPosition(borrower, position)
}

// Borrow lends amount to the borrower against their posted collateral.
func (e *Engine) Borrow(borrower crypto.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	position, err := e.loadPosition(borrower)
	if err != nil {
		return err
	}
	newDebt := new(big.Int).Add(position.Debt, amount)
	if !e.covered(position.Collateral, newDebt) {
		return ErrUndercollateralised
	}
	module, err := e.loadAccount(e.moduleAddress)
	if err != nil {
		return err
	}
	// Posted collateral is not lendable; only liquidity beyond it funds
	// borrows.
	available := new(big.Int).Sub(module.BalanceWant, position.Collateral)
	if available.Cmp(amount) < 0 {
		return ErrInsufficientLiquidity
	}
	if err := e.transfer(e.moduleAddress, borrower, amount); err != nil {
		return err
	}
	position.Debt = newDebt
	return e.state.PutLendingPosition(borrower, position)
}

// Repay pays down the borrower's debt.
func (e *Engine) Repay(borrower crypto.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	position, err := e.loadPosition(borrower)
	if err != nil {
		return err
	}
	if amount.Cmp(position.Debt) > 0 {
		return ErrExcessRepayment
	}
	if err := e.transfer(borrower, e.moduleAddress, amount); err != nil {
		return err
	}
	position.Debt = new(big.Int).Sub(position.Debt, amount)
	return e.state.PutLendingPosition(borrower, position)
}

// Position reports copies of the borrower's collateral and debt.
func (e *Engine) Position(borrower crypto.Address) (*big.Int, *big.Int, error) {
	if e == nil || e.state == nil {
		return nil, nil, ErrNilState
	}
	position, err := e.loadPosition(borrower)
	if err != nil {
		return nil, nil, err
	}
	return new(big.Int).Set(position.Collateral), new(big.Int).Set(position.Debt), nil
}

// covered reports whether debt stays within the collateral factor.
func (e *Engine) covered(collateral, debt *big.Int) bool {
	if debt.Sign() == 0 {
		return true
	}
	limit := new(big.Int).Mul(collateral, new(big.Int).SetUint64(e.factorBps))
	limit.Quo(limit, big.NewInt(fees.PercentDivisor))
	return debt.Cmp(limit) <= 0
}

func (e *Engine) transfer(from, to crypto.Address, amount *big.Int) error {
	fromAcc, err := e.loadAccount(from)
	if err != nil {
		return err
	}
	toAcc, err := e.loadAccount(to)
	if err != nil {
		return err
	}
	if err := fromAcc.Debit(types.TokenWant, amount); err != nil {
		return err
	}
	if err := toAcc.Credit(types.TokenWant, amount); err != nil {
		return err
	}
	if err := e.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to, toAcc)
}

func (e *Engine) loadPosition(borrower crypto.Address) (*Position, error) {
	position, err := e.state.GetLendingPosition(borrower)
	if err != nil {
		return nil, err
	}
	if position == nil {
		position = &Position{}
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

// Binding scopes the engine to one borrower so it satisfies the strategy's
// lending-market contract.
type Binding struct {
	engine   *Engine
	borrower crypto.Address
}

// Bind returns a view of the market acting on behalf of borrower.
func (e *Engine) Bind(borrower crypto.Address) *Binding {
	return &Binding{engine: e, borrower: borrower}
}

func (b *Binding) SupplyCollateral(amount *big.Int) error {
	return b.engine.SupplyCollateral(b.borrower, amount)
}

func (b *Binding) WithdrawCollateral(amount *big.Int) error {
	return b.engine.WithdrawCollateral(b.borrower, amount)
}

func (b *Binding) Borrow(amount *big.Int) error {
	return b.engine.Borrow(b.borrower, amount)
}

func (b *Binding) Repay(amount *big.Int) error {
	return b.engine.Repay(b.borrower, amount)
}

func (b *Binding) Position() (*big.Int, *big.Int, error) {
	return b.engine.Position(b.borrower)
}
