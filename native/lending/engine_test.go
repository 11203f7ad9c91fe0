package lending

import (
	"errors"
	"math/big"
	"testing"

	"vaultchain/core/types"
	"vaultchain/crypto"
)

type mockState struct {
	positions map[string]*Position
	accounts  map[string]*types.Account
}

func newMockState() *mockState {
	return &mockState{positions: make(map[string]*Position), accounts: make(map[string]*types.Account)}
}

func (m *mockState) GetLendingPosition(addr crypto.Address) (*Position, error) {
	return m.positions[string(addr.Bytes())], nil
}

func (m *mockState) PutLendingPosition(addr crypto.Address, position *Position) error {
	m.positions[string(addr.Bytes())] = position
	return nil
}

func (m *mockState) GetAccount(addr crypto.Address) (*types.Account, error) {
	return m.accounts[string(addr.Bytes())], nil
}

func (m *mockState) PutAccount(addr crypto.Address, account *types.Account) error {
	m.accounts[string(addr.Bytes())] = account
	return nil
}

func (m *mockState) account(addr crypto.Address) *types.Account {
	acc := m.accounts[string(addr.Bytes())]
	if acc == nil {
		acc = types.NewAccount()
		m.accounts[string(addr.Bytes())] = acc
	}
	acc.Normalize()
	return acc
}

func makeAddress(prefix crypto.AddressPrefix, suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.NewAddress(prefix, raw)
}

func newTestEngine(t *testing.T) (*Engine, *mockState, crypto.Address) {
	t.Helper()
	state := newMockState()
	engine, err := NewEngine(makeAddress(crypto.ModulePrefix, 0x05), 7_500)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	engine.SetState(state)
	if err := engine.SeedLiquidity(big.NewInt(100_000)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	borrower := makeAddress(crypto.AccountPrefix, 0x01)
	state.account(borrower).BalanceWant = big.NewInt(10_000)
	return engine, state, borrower
}

func TestNewEngineRejectsBadFactor(t *testing.T) {
	module := makeAddress(crypto.ModulePrefix, 0x05)
	if _, err := NewEngine(module, 0); !errors.Is(err, ErrInvalidFactor) {
		t.Fatalf("expected ErrInvalidFactor for zero, got %v", err)
	}
	if _, err := NewEngine(module, 10_000); !errors.Is(err, ErrInvalidFactor) {
		t.Fatalf("expected ErrInvalidFactor for 100%%, got %v", err)
	}
}

func TestSupplyAndBorrowWithinFactor(t *testing.T) {
	engine, state, borrower := newTestEngine(t)

	if err := engine.SupplyCollateral(borrower, big.NewInt(10_000)); err != nil {
		t.Fatalf("supply: %v", err)
	}
	// 75% of 10000.
	if err := engine.Borrow(borrower, big.NewInt(7_500)); err != nil {
		t.Fatalf("borrow at the factor limit: %v", err)
	}
	if err := engine.Borrow(borrower, big.NewInt(1)); !errors.Is(err, ErrUndercollateralised) {
		t.Fatalf("expected ErrUndercollateralised past the limit, got %v", err)
	}

	acc := state.account(borrower)
	if acc.BalanceWant.Cmp(big.NewInt(7_500)) != 0 {
		t.Fatalf("unexpected borrower balance: %s", acc.BalanceWant)
	}
	collateral, debt, err := engine.Position(borrower)
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if collateral.Cmp(big.NewInt(10_000)) != 0 || debt.Cmp(big.NewInt(7_500)) != 0 {
		t.Fatalf("unexpected position: collateral=%s debt=%s", collateral, debt)
	}
}

func TestBorrowRequiresMarketLiquidity(t *testing.T) {
	state := newMockState()
	engine, err := NewEngine(makeAddress(crypto.ModulePrefix, 0x05), 7_500)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	engine.SetState(state)
	if err := engine.SeedLiquidity(big.NewInt(100)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	borrower := makeAddress(crypto.AccountPrefix, 0x01)
	state.account(borrower).BalanceWant = big.NewInt(10_000)

	if err := engine.SupplyCollateral(borrower, big.NewInt(10_000)); err != nil {
		t.Fatalf("supply: %v", err)
	}
	// Collateral itself must not fund the borrow.
	if err := engine.Borrow(borrower, big.NewInt(5_000)); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
	if err := engine.Borrow(borrower, big.NewInt(100)); err != nil {
		t.Fatalf("borrow within liquidity: %v", err)
	}
}

func TestRepayReducesDebt(t *testing.T) {
	engine, _, borrower := newTestEngine(t)

	if err := engine.SupplyCollateral(borrower, big.NewInt(10_000)); err != nil {
		t.Fatalf("supply: %v", err)
	}
	if err := engine.Borrow(borrower, big.NewInt(4_000)); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if err := engine.Repay(borrower, big.NewInt(4_001)); !errors.Is(err, ErrExcessRepayment) {
		t.Fatalf("expected ErrExcessRepayment, got %v", err)
	}
	if err := engine.Repay(borrower, big.NewInt(4_000)); err != nil {
		t.Fatalf("repay: %v", err)
	}
	_, debt, err := engine.Position(borrower)
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if debt.Sign() != 0 {
		t.Fatalf("debt should be cleared: %s", debt)
	}
}

func TestWithdrawCollateralKeepsPositionCovered(t *testing.T) {
	engine, state, borrower := newTestEngine(t)

	if err := engine.SupplyCollateral(borrower, big.NewInt(10_000)); err != nil {
		t.Fatalf("supply: %v", err)
	}
	if err := engine.Borrow(borrower, big.NewInt(6_000)); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	// 6000 debt needs 8000 collateral at 75%; withdrawing 2001 breaks it.
	if err := engine.WithdrawCollateral(borrower, big.NewInt(2_001)); !errors.Is(err, ErrUndercollateralised) {
		t.Fatalf("expected ErrUndercollateralised, got %v", err)
	}
	if err := engine.WithdrawCollateral(borrower, big.NewInt(2_000)); err != nil {
		t.Fatalf("withdraw within the factor: %v", err)
	}
	collateral, _, err := engine.Position(borrower)
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if collateral.Cmp(big.NewInt(8_000)) != 0 {
		t.Fatalf("unexpected collateral: %s", collateral)
	}
	// 10000 funded - 10000 supplied + 6000 borrowed + 2000 withdrawn.
	if state.account(borrower).BalanceWant.Cmp(big.NewInt(8_000)) != 0 {
		t.Fatalf("unexpected borrower balance: %s", state.account(borrower).BalanceWant)
	}
}

func TestBindingActsForItsBorrower(t *testing.T) {
	engine, _, borrower := newTestEngine(t)
	bound := engine.Bind(borrower)

	if err := bound.SupplyCollateral(big.NewInt(1_000)); err != nil {
		t.Fatalf("bound supply: %v", err)
	}
	if err := bound.Borrow(big.NewInt(500)); err != nil {
		t.Fatalf("bound borrow: %v", err)
	}
	collateral, debt, err := bound.Position()
	if err != nil {
		t.Fatalf("bound position: %v", err)
	}
	if collateral.Cmp(big.NewInt(1_000)) != 0 || debt.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("unexpected bound position: collateral=%s debt=%s", collateral, debt)
	}
}
