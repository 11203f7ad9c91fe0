package strategy

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"vaultchain/core/types"
	"vaultchain/crypto"
	"vaultchain/native/fees"
)

type mockState struct {
	record   *Strategy
	accounts map[string]*types.Account
}

func newMockState(record *Strategy) *mockState {
	return &mockState{record: record, accounts: make(map[string]*types.Account)}
}

func (m *mockState) key(addr crypto.Address) string { return string(addr.Bytes()) }

func (m *mockState) GetStrategy() (*Strategy, error) { return m.record, nil }

func (m *mockState) PutStrategy(record *Strategy) error {
	m.record = record
	return nil
}

func (m *mockState) GetAccount(addr crypto.Address) (*types.Account, error) {
	return m.accounts[m.key(addr)], nil
}

func (m *mockState) PutAccount(addr crypto.Address, account *types.Account) error {
	m.accounts[m.key(addr)] = account
	return nil
}

func (m *mockState) account(addr crypto.Address) *types.Account {
	acc := m.accounts[m.key(addr)]
	if acc == nil {
		acc = types.NewAccount()
		m.accounts[m.key(addr)] = acc
	}
	acc.Normalize()
	return acc
}

// mockFarm is a masterchef-style pool: deposits and withdrawals move want
// between the strategy account and the pool, and every interaction settles
// the pending reward into the strategy's reward balance.
type mockFarm struct {
	state      *mockState
	stratAddr  crypto.Address
	staked     *big.Int
	pending    *big.Int
	failTouch  bool
	depositLog []string
}

func newMockFarm(state *mockState, stratAddr crypto.Address) *mockFarm {
	return &mockFarm{state: state, stratAddr: stratAddr, staked: big.NewInt(0), pending: big.NewInt(0)}
}

func (f *mockFarm) settle() {
	if f.pending.Sign() > 0 {
		acc := f.state.account(f.stratAddr)
		acc.BalanceReward = new(big.Int).Add(acc.BalanceReward, f.pending)
		f.pending = big.NewInt(0)
	}
}

func (f *mockFarm) Deposit(_ uint64, amount *big.Int) error {
	if f.failTouch {
		return errors.New("farm unavailable")
	}
	acc := f.state.account(f.stratAddr)
	if err := acc.Debit(types.TokenWant, amount); err != nil {
		return err
	}
	f.settle()
	f.staked.Add(f.staked, amount)
	f.depositLog = append(f.depositLog, fmt.Sprintf("deposit %s", amount))
	return nil
}

func (f *mockFarm) Withdraw(_ uint64, amount *big.Int) error {
	if f.failTouch {
		return errors.New("farm unavailable")
	}
	if amount.Cmp(f.staked) > 0 {
		return errors.New("withdraw exceeds staked amount")
	}
	f.settle()
	if amount.Sign() > 0 {
		f.staked.Sub(f.staked, amount)
		acc := f.state.account(f.stratAddr)
		acc.BalanceWant = new(big.Int).Add(acc.BalanceWant, amount)
	}
	return nil
}

func (f *mockFarm) PendingReward(uint64) (*big.Int, error) {
	return new(big.Int).Set(f.pending), nil
}

func (f *mockFarm) UserInfo(uint64) (*big.Int, *big.Int, error) {
	return new(big.Int).Set(f.staked), big.NewInt(0), nil
}

// mockRouter swaps at fixed per-hop rates with no price impact. A non-zero
// penalty makes executed swaps deliver less than the quote.
type mockRouter struct {
	state *mockState
	// rate[from->to] = numerator/denominator
	rates    map[string][2]int64
	penalty  int64
	failSwap bool
}

func newMockRouter(state *mockState) *mockRouter {
	return &mockRouter{state: state, rates: map[string][2]int64{
		"reward->wrapped": {2, 1},
		"wrapped->want":   {1, 1},
	}}
}

func (r *mockRouter) quote(amountIn *big.Int, route []types.Token) (*big.Int, error) {
	out := new(big.Int).Set(amountIn)
	for i := 0; i+1 < len(route); i++ {
		rate, ok := r.rates[fmt.Sprintf("%s->%s", route[i], route[i+1])]
		if !ok {
			return nil, fmt.Errorf("no pair for %s->%s", route[i], route[i+1])
		}
		out.Mul(out, big.NewInt(rate[0]))
		out.Quo(out, big.NewInt(rate[1]))
	}
	return out, nil
}

func (r *mockRouter) SwapExactIn(amountIn, minOut *big.Int, route []types.Token, recipient crypto.Address) (*big.Int, error) {
	if r.failSwap {
		return nil, errors.New("router unavailable")
	}
	out, err := r.quote(amountIn, route)
	if err != nil {
		return nil, err
	}
	if r.penalty > 0 && out.Sign() > 0 {
		out.Sub(out, big.NewInt(r.penalty))
		if out.Sign() < 0 {
			out.SetInt64(0)
		}
	}
	if minOut != nil && out.Cmp(minOut) < 0 {
		return nil, errors.New("insufficient output amount")
	}
	acc := r.state.account(recipient)
	if err := acc.Debit(route[0], amountIn); err != nil {
		return nil, err
	}
	if err := acc.Credit(route[len(route)-1], out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mockRouter) QuoteExactIn(amountIn *big.Int, route []types.Token) (*big.Int, error) {
	return r.quote(amountIn, route)
}

type fixture struct {
	engine     *Engine
	state      *mockState
	farm       *mockFarm
	router     *mockRouter
	strat      crypto.Address
	vault      crypto.Address
	treasury   crypto.Address
	strategist crypto.Address
}

func makeAddress(prefix crypto.AddressPrefix, suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.NewAddress(prefix, raw)
}

func defaultHarvestConfig() fees.HarvestConfig {
	return fees.HarvestConfig{
		TotalFeeBps:      450,
		CallFeeBps:       1000,
		TreasuryFeeBps:   9000,
		StrategistFeeBps: 2500,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	stratAddr := makeAddress(crypto.ModulePrefix, 0x02)
	vaultAddr := makeAddress(crypto.ModulePrefix, 0x01)
	treasury := makeAddress(crypto.AccountPrefix, 0x20)
	strategist := makeAddress(crypto.AccountPrefix, 0x21)

	record := &Strategy{
		Status:         StatusActive,
		WithdrawFeeBps: 100,
		HarvestFees:    defaultHarvestConfig(),
	}
	record.Normalize()
	state := newMockState(record)
	farm := newMockFarm(state, stratAddr)
	router := newMockRouter(state)

	engine := NewEngine(stratAddr, vaultAddr, treasury, strategist)
	engine.SetState(state)
	engine.SetFarm(farm)
	engine.SetRouter(router)
	return &fixture{
		engine: engine, state: state, farm: farm, router: router,
		strat: stratAddr, vault: vaultAddr, treasury: treasury, strategist: strategist,
	}
}

func (f *fixture) fundStrategy(amount int64) {
	acc := f.state.account(f.strat)
	acc.BalanceWant = new(big.Int).Add(acc.BalanceWant, big.NewInt(amount))
}

func TestDepositStakesIdleBalance(t *testing.T) {
	f := newFixture(t)
	f.fundStrategy(5_000)

	if err := f.engine.Deposit(); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if f.farm.staked.Cmp(big.NewInt(5_000)) != 0 {
		t.Fatalf("unexpected staked amount: %s", f.farm.staked)
	}
	acc := f.state.account(f.strat)
	if acc.BalanceWant.Sign() != 0 {
		t.Fatalf("idle balance should be fully staked: %s", acc.BalanceWant)
	}
}

func TestDepositNoopWhenNothingIdle(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.Deposit(); err != nil {
		t.Fatalf("deposit with zero idle balance should be a no-op: %v", err)
	}
	if f.farm.staked.Sign() != 0 {
		t.Fatalf("nothing should be staked: %s", f.farm.staked)
	}
}

func TestDepositBlockedWhilePaused(t *testing.T) {
	f := newFixture(t)
	f.fundStrategy(100)
	if err := f.engine.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := f.engine.Deposit(); !errors.Is(err, ErrPaused) {
		t.Fatalf("expected ErrPaused, got %v", err)
	}
}

func TestWithdrawFromIdleBalance(t *testing.T) {
	f := newFixture(t)
	f.fundStrategy(1_000)

	net, err := f.engine.Withdraw(big.NewInt(500))
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	// 1% security fee on the requested amount.
	if net.Cmp(big.NewInt(495)) != 0 {
		t.Fatalf("unexpected net: %s", net)
	}
	vaultAcc := f.state.account(f.vault)
	if vaultAcc.BalanceWant.Cmp(big.NewInt(495)) != 0 {
		t.Fatalf("vault should receive the net amount: %s", vaultAcc.BalanceWant)
	}
	// The fee stays in the strategy's idle balance for recompounding.
	stratAcc := f.state.account(f.strat)
	if stratAcc.BalanceWant.Cmp(big.NewInt(505)) != 0 {
		t.Fatalf("unexpected residual idle balance: %s", stratAcc.BalanceWant)
	}
}

func TestWithdrawUnstakesExactlyTheShortfall(t *testing.T) {
	f := newFixture(t)
	f.fundStrategy(1_000)
	if err := f.engine.Deposit(); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	// Leave 200 idle.
	f.fundStrategy(200)

	if _, err := f.engine.Withdraw(big.NewInt(700)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	// Only the 500 shortfall was unstaked.
	if f.farm.staked.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("unexpected staked amount after withdraw: %s", f.farm.staked)
	}
}

func TestWithdrawFailsWhenFarmCannotCoverShortfall(t *testing.T) {
	f := newFixture(t)
	f.fundStrategy(100)
	if err := f.engine.Deposit(); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if _, err := f.engine.Withdraw(big.NewInt(500)); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
}

func TestWithdrawAllowedWhilePaused(t *testing.T) {
	f := newFixture(t)
	f.fundStrategy(1_000)
	if err := f.engine.Deposit(); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := f.engine.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}

	net, err := f.engine.Withdraw(big.NewInt(400))
	if err != nil {
		t.Fatalf("withdraw while paused: %v", err)
	}
	if net.Cmp(big.NewInt(396)) != 0 {
		t.Fatalf("unexpected net: %s", net)
	}
}

func TestPanicUnstakesWithoutRestaking(t *testing.T) {
	f := newFixture(t)
	f.fundStrategy(2_000)
	if err := f.engine.Deposit(); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	f.farm.pending = big.NewInt(300)

	if err := f.engine.Panic(); err != nil {
		t.Fatalf("panic: %v", err)
	}
	if f.farm.staked.Sign() != 0 {
		t.Fatalf("panic must unstake everything: %s", f.farm.staked)
	}
	acc := f.state.account(f.strat)
	if acc.BalanceWant.Cmp(big.NewInt(2_000)) != 0 {
		t.Fatalf("unstaked funds should sit idle: %s", acc.BalanceWant)
	}
	// Claimed rewards stay unconverted: no swaps, no fees, no restake.
	if acc.BalanceReward.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("rewards should remain unconverted after panic: %s", acc.BalanceReward)
	}
	if f.state.record.Status != StatusPaused {
		t.Fatalf("panic should pause: %s", f.state.record.Status)
	}
	if f.state.record.ApprovalsGranted {
		t.Fatal("panic should revoke approvals")
	}
}

func TestUnpauseRestakesIdleBalance(t *testing.T) {
	f := newFixture(t)
	f.fundStrategy(2_000)
	if err := f.engine.Deposit(); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := f.engine.Panic(); err != nil {
		t.Fatalf("panic: %v", err)
	}
	if err := f.engine.Unpause(); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if f.farm.staked.Cmp(big.NewInt(2_000)) != 0 {
		t.Fatalf("unpause should restake idle funds: %s", f.farm.staked)
	}
	if !f.state.record.ApprovalsGranted {
		t.Fatal("unpause should re-grant approvals")
	}
}

func TestUnpauseRequiresPausedState(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.Unpause(); !errors.Is(err, ErrNotPaused) {
		t.Fatalf("expected ErrNotPaused, got %v", err)
	}
}

func TestRetireForwardsEverythingToVault(t *testing.T) {
	f := newFixture(t)
	f.fundStrategy(10_000)
	if err := f.engine.Deposit(); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	f.farm.pending = big.NewInt(1_000)
	caller := makeAddress(crypto.AccountPrefix, 0x30)

	if err := f.engine.Retire(caller); err != nil {
		t.Fatalf("retire: %v", err)
	}
	if f.state.record.Status != StatusRetired {
		t.Fatalf("unexpected status: %s", f.state.record.Status)
	}
	if f.farm.staked.Sign() != 0 {
		t.Fatalf("retire must unstake everything: %s", f.farm.staked)
	}
	stratAcc := f.state.account(f.strat)
	if stratAcc.BalanceWant.Sign() != 0 {
		t.Fatalf("no want should remain in the strategy: %s", stratAcc.BalanceWant)
	}
	// 1000 reward -> 2000 wrapped; 4.5% fee = 90; 1910 swapped to want; plus
	// the 10000 unstaked principal.
	vaultAcc := f.state.account(f.vault)
	if vaultAcc.BalanceWant.Cmp(big.NewInt(11_910)) != 0 {
		t.Fatalf("unexpected forwarded amount: %s", vaultAcc.BalanceWant)
	}
	// Retirement charges the harvest fee split, unlike panic.
	callerAcc := f.state.account(caller)
	if callerAcc.BalanceWrapped.Sign() == 0 {
		t.Fatal("retirement harvest should pay the call fee")
	}

	if err := f.engine.Retire(caller); !errors.Is(err, ErrRetired) {
		t.Fatalf("retire must be irreversible, got %v", err)
	}
	if err := f.engine.Unpause(); !errors.Is(err, ErrRetired) {
		t.Fatalf("retired strategy cannot unpause, got %v", err)
	}
}

func TestSweepRefusesWantToken(t *testing.T) {
	f := newFixture(t)
	recipient := makeAddress(crypto.AccountPrefix, 0x31)
	if _, err := f.engine.SweepStuckToken(types.TokenWant, recipient); !errors.Is(err, ErrWantNotSweepable) {
		t.Fatalf("expected ErrWantNotSweepable, got %v", err)
	}
}

func TestSweepMovesStuckRewards(t *testing.T) {
	f := newFixture(t)
	acc := f.state.account(f.strat)
	acc.BalanceReward = big.NewInt(777)
	recipient := makeAddress(crypto.AccountPrefix, 0x31)

	swept, err := f.engine.SweepStuckToken(types.TokenReward, recipient)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept.Cmp(big.NewInt(777)) != 0 {
		t.Fatalf("unexpected swept amount: %s", swept)
	}
	if f.state.account(recipient).BalanceReward.Cmp(big.NewInt(777)) != 0 {
		t.Fatalf("recipient should hold the swept balance")
	}
	if f.state.account(f.strat).BalanceReward.Sign() != 0 {
		t.Fatalf("strategy should hold no rewards after sweep")
	}
}

func TestSetWithdrawFeeEnforcesCap(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.SetWithdrawFee(withdrawFeeCapBps + 1); !errors.Is(err, ErrFeeOutOfRange) {
		t.Fatalf("expected ErrFeeOutOfRange, got %v", err)
	}
	if err := f.engine.SetWithdrawFee(50); err != nil {
		t.Fatalf("set withdraw fee: %v", err)
	}
	if f.state.record.WithdrawFeeBps != 50 {
		t.Fatalf("fee not persisted: %d", f.state.record.WithdrawFeeBps)
	}
}

func TestSetHarvestFeesValidates(t *testing.T) {
	f := newFixture(t)
	bad := fees.HarvestConfig{TotalFeeBps: 20_000}
	if err := f.engine.SetHarvestFees(bad); err == nil {
		t.Fatal("expected invalid harvest config to be rejected")
	}
	good := defaultHarvestConfig()
	good.TotalFeeBps = 300
	if err := f.engine.SetHarvestFees(good); err != nil {
		t.Fatalf("set harvest fees: %v", err)
	}
	if f.state.record.HarvestFees.TotalFeeBps != 300 {
		t.Fatalf("harvest fees not persisted: %+v", f.state.record.HarvestFees)
	}
}
