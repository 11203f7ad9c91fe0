package strategy

import (
	"errors"
	"math/big"
	"testing"

	"vaultchain/core/types"
	"vaultchain/crypto"
)

type mockLending struct {
	state      *mockState
	stratAddr  crypto.Address
	collateral *big.Int
	debt       *big.Int
}

func newMockLending(f *fixture) *mockLending {
	return &mockLending{state: f.state, stratAddr: f.strat, collateral: big.NewInt(0), debt: big.NewInt(0)}
}

func (l *mockLending) account() *types.Account {
	return l.state.account(l.stratAddr)
}

func (l *mockLending) SupplyCollateral(amount *big.Int) error {
	if err := l.account().Debit(types.TokenWant, amount); err != nil {
		return err
	}
	l.collateral.Add(l.collateral, amount)
	return nil
}

func (l *mockLending) WithdrawCollateral(amount *big.Int) error {
	if amount.Cmp(l.collateral) > 0 {
		return errors.New("collateral exceeded")
	}
	l.collateral.Sub(l.collateral, amount)
	return l.account().Credit(types.TokenWant, amount)
}

func (l *mockLending) Borrow(amount *big.Int) error {
	l.debt.Add(l.debt, amount)
	return l.account().Credit(types.TokenWant, amount)
}

func (l *mockLending) Repay(amount *big.Int) error {
	if amount.Cmp(l.debt) > 0 {
		return errors.New("repay exceeds debt")
	}
	if err := l.account().Debit(types.TokenWant, amount); err != nil {
		return err
	}
	l.debt.Sub(l.debt, amount)
	return nil
}

func (l *mockLending) Position() (*big.Int, *big.Int, error) {
	return new(big.Int).Set(l.collateral), new(big.Int).Set(l.debt), nil
}

func newLeveragedFixture(t *testing.T) (*fixture, *mockLending) {
	t.Helper()
	f := newFixture(t)
	lending := newMockLending(f)
	f.engine.SetLending(lending)
	if err := f.engine.SetTargetLTV(5_000, 500); err != nil {
		t.Fatalf("set target ltv: %v", err)
	}
	return f, lending
}

func TestCalculateLTV(t *testing.T) {
	f, lending := newLeveragedFixture(t)

	ltv, err := f.engine.CalculateLTV()
	if err != nil {
		t.Fatalf("ltv with empty position: %v", err)
	}
	if ltv != 0 {
		t.Fatalf("empty position should have zero LTV: %d", ltv)
	}

	lending.collateral = big.NewInt(10_000)
	lending.debt = big.NewInt(7_000)
	ltv, err = f.engine.CalculateLTV()
	if err != nil {
		t.Fatalf("ltv: %v", err)
	}
	if ltv != 7_000 {
		t.Fatalf("unexpected LTV: %d", ltv)
	}
}

func TestCalculateLTVRequiresLending(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.CalculateLTV(); !errors.Is(err, ErrLendingNotConfigured) {
		t.Fatalf("expected ErrLendingNotConfigured, got %v", err)
	}
}

func TestWithdrawDeleveragesFromIdleBalance(t *testing.T) {
	f, lending := newLeveragedFixture(t)
	f.fundStrategy(10_000)
	lending.collateral = big.NewInt(10_000)
	lending.debt = big.NewInt(7_000)

	if _, err := f.engine.Withdraw(big.NewInt(1_000)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	// Target debt is 5000 at 50% LTV; the 2000 excess is repaid from the
	// remaining idle balance.
	if lending.debt.Cmp(big.NewInt(5_000)) != 0 {
		t.Fatalf("unexpected debt after delever: %s", lending.debt)
	}
	ltv, err := f.engine.CalculateLTV()
	if err != nil {
		t.Fatalf("ltv: %v", err)
	}
	if ltv != 5_000 {
		t.Fatalf("LTV should sit on target after delever: %d", ltv)
	}
}

func TestWithdrawDeleveragesByUnstaking(t *testing.T) {
	f, lending := newLeveragedFixture(t)
	f.fundStrategy(10_000)
	if err := f.engine.Deposit(); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	lending.collateral = big.NewInt(10_000)
	lending.debt = big.NewInt(7_000)

	if _, err := f.engine.Withdraw(big.NewInt(1_000)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if lending.debt.Cmp(big.NewInt(5_000)) != 0 {
		t.Fatalf("unexpected debt after delever: %s", lending.debt)
	}
	// The withdrawal unstaked its 1000 shortfall and the delever unstaked the
	// repayment shortfall on top: 10000 - 1000 - 1990 = 7010.
	if f.farm.staked.Cmp(big.NewInt(7_010)) != 0 {
		t.Fatalf("unexpected staked amount after delever: %s", f.farm.staked)
	}
}

func TestWithdrawLeversUpWhenUnderTarget(t *testing.T) {
	f, lending := newLeveragedFixture(t)
	f.fundStrategy(10_000)
	lending.collateral = big.NewInt(10_000)
	lending.debt = big.NewInt(3_000)

	if _, err := f.engine.Withdraw(big.NewInt(1_000)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if lending.debt.Cmp(big.NewInt(5_000)) != 0 {
		t.Fatalf("unexpected debt after lever: %s", lending.debt)
	}
}

func TestRebalanceRespectsToleranceBand(t *testing.T) {
	f, lending := newLeveragedFixture(t)
	f.fundStrategy(10_000)
	lending.collateral = big.NewInt(10_000)
	// 200 over the 5000 target is inside the 500-wide band.
	lending.debt = big.NewInt(5_200)

	if _, err := f.engine.Withdraw(big.NewInt(1_000)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if lending.debt.Cmp(big.NewInt(5_200)) != 0 {
		t.Fatalf("debt inside the band must not be touched: %s", lending.debt)
	}
}

func TestBalanceOfNetsCollateralAgainstDebt(t *testing.T) {
	f, lending := newLeveragedFixture(t)
	f.fundStrategy(100)
	if err := f.engine.Deposit(); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	f.fundStrategy(50)
	lending.collateral = big.NewInt(1_000)
	lending.debt = big.NewInt(400)

	total, err := f.engine.BalanceOf()
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	// 50 idle + 100 staked + 1000 collateral - 400 debt.
	if total.Cmp(big.NewInt(750)) != 0 {
		t.Fatalf("unexpected managed balance: %s", total)
	}
}

func TestRetireUnwindsLeverage(t *testing.T) {
	f, lending := newLeveragedFixture(t)
	f.fundStrategy(3_000)
	if err := f.engine.Deposit(); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	lending.collateral = big.NewInt(5_000)
	lending.debt = big.NewInt(2_000)
	caller := makeAddress(crypto.AccountPrefix, 0x50)

	if err := f.engine.Retire(caller); err != nil {
		t.Fatalf("retire: %v", err)
	}
	if lending.debt.Sign() != 0 || lending.collateral.Sign() != 0 {
		t.Fatalf("position must be fully unwound: collateral=%s debt=%s", lending.collateral, lending.debt)
	}
	// 3000 unstaked - 2000 repaid + 5000 collateral withdrawn.
	vaultAcc := f.state.account(f.vault)
	if vaultAcc.BalanceWant.Cmp(big.NewInt(6_000)) != 0 {
		t.Fatalf("unexpected forwarded amount: %s", vaultAcc.BalanceWant)
	}
}

func TestSetTargetLTVValidation(t *testing.T) {
	f, _ := newLeveragedFixture(t)
	if err := f.engine.SetTargetLTV(maxTargetLTVBps+1, 0); !errors.Is(err, ErrLTVOutOfRange) {
		t.Fatalf("expected ErrLTVOutOfRange for excessive target, got %v", err)
	}
	if err := f.engine.SetTargetLTV(4_000, 4_001); !errors.Is(err, ErrLTVOutOfRange) {
		t.Fatalf("expected ErrLTVOutOfRange for tolerance above target, got %v", err)
	}

	bare := newFixture(t)
	if err := bare.engine.SetTargetLTV(5_000, 500); !errors.Is(err, ErrLendingNotConfigured) {
		t.Fatalf("expected ErrLendingNotConfigured, got %v", err)
	}
	if err := bare.engine.SetTargetLTV(0, 0); err != nil {
		t.Fatalf("zero target disables leverage and needs no market: %v", err)
	}
}
