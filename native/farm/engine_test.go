package farm

import (
	"errors"
	"math/big"
	"testing"

	"vaultchain/core/types"
	"vaultchain/crypto"
)

type mockState struct {
	pools    map[uint64]*Pool
	users    map[string]*User
	accounts map[string]*types.Account
}

func newMockState() *mockState {
	return &mockState{
		pools:    make(map[uint64]*Pool),
		users:    make(map[string]*User),
		accounts: make(map[string]*types.Account),
	}
}

func (m *mockState) userKey(poolID uint64, addr crypto.Address) string {
	return string(append([]byte{byte(poolID)}, addr.Bytes()...))
}

func (m *mockState) GetFarmPool(id uint64) (*Pool, error) { return m.pools[id], nil }

func (m *mockState) PutFarmPool(pool *Pool) error {
	m.pools[pool.ID] = pool
	return nil
}

func (m *mockState) GetFarmUser(poolID uint64, addr crypto.Address) (*User, error) {
	return m.users[m.userKey(poolID, addr)], nil
}

func (m *mockState) PutFarmUser(poolID uint64, addr crypto.Address, user *User) error {
	m.users[m.userKey(poolID, addr)] = user
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

func newTestEngine(t *testing.T) (*Engine, *mockState) {
	t.Helper()
	state := newMockState()
	engine := NewEngine(makeAddress(crypto.ModulePrefix, 0x03))
	engine.SetState(state)
	if err := engine.CreatePool(0, big.NewInt(10)); err != nil {
		t.Fatalf("create pool: %v", err)
	}
	return engine, state
}

func fund(state *mockState, addr crypto.Address, amount int64) {
	acc := state.account(addr)
	acc.BalanceWant = new(big.Int).Add(acc.BalanceWant, big.NewInt(amount))
}

func TestDepositMovesStakeIntoCustody(t *testing.T) {
	engine, state := newTestEngine(t)
	staker := makeAddress(crypto.AccountPrefix, 0x01)
	fund(state, staker, 1_000)

	if err := engine.Deposit(staker, 0, big.NewInt(600)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if state.account(staker).BalanceWant.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("unexpected staker balance: %s", state.account(staker).BalanceWant)
	}
	staked, _, err := engine.UserInfo(staker, 0)
	if err != nil {
		t.Fatalf("user info: %v", err)
	}
	if staked.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("unexpected staked amount: %s", staked)
	}
}

func TestRewardAccruesLinearly(t *testing.T) {
	engine, state := newTestEngine(t)
	staker := makeAddress(crypto.AccountPrefix, 0x01)
	fund(state, staker, 100)

	engine.SetTimestamp(0)
	if err := engine.Deposit(staker, 0, big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	engine.SetTimestamp(100)
	pending, err := engine.PendingReward(staker, 0)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	// 100 seconds at 10 reward/second, sole staker.
	if pending.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("unexpected pending reward: %s", pending)
	}
}

func TestRewardSharedProRata(t *testing.T) {
	engine, state := newTestEngine(t)
	alice := makeAddress(crypto.AccountPrefix, 0x01)
	bob := makeAddress(crypto.AccountPrefix, 0x02)
	fund(state, alice, 100)
	fund(state, bob, 300)

	engine.SetTimestamp(0)
	if err := engine.Deposit(alice, 0, big.NewInt(100)); err != nil {
		t.Fatalf("alice deposit: %v", err)
	}
	engine.SetTimestamp(100)
	if err := engine.Deposit(bob, 0, big.NewInt(300)); err != nil {
		t.Fatalf("bob deposit: %v", err)
	}
	engine.SetTimestamp(200)

	// Alice earned the first 1000 alone, then a quarter of the second 1000.
	alicePending, err := engine.PendingReward(alice, 0)
	if err != nil {
		t.Fatalf("alice pending: %v", err)
	}
	if alicePending.Cmp(big.NewInt(1_250)) != 0 {
		t.Fatalf("unexpected alice reward: %s", alicePending)
	}
	bobPending, err := engine.PendingReward(bob, 0)
	if err != nil {
		t.Fatalf("bob pending: %v", err)
	}
	if bobPending.Cmp(big.NewInt(750)) != 0 {
		t.Fatalf("unexpected bob reward: %s", bobPending)
	}
}

func TestZeroWithdrawIsAPureClaim(t *testing.T) {
	engine, state := newTestEngine(t)
	staker := makeAddress(crypto.AccountPrefix, 0x01)
	fund(state, staker, 100)

	engine.SetTimestamp(0)
	if err := engine.Deposit(staker, 0, big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	engine.SetTimestamp(50)
	if err := engine.Withdraw(staker, 0, big.NewInt(0)); err != nil {
		t.Fatalf("claim: %v", err)
	}

	acc := state.account(staker)
	if acc.BalanceReward.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("unexpected claimed reward: %s", acc.BalanceReward)
	}
	staked, _, err := engine.UserInfo(staker, 0)
	if err != nil {
		t.Fatalf("user info: %v", err)
	}
	if staked.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("claim must not touch the stake: %s", staked)
	}

	// Nothing further accrued, a second claim pays nothing.
	if err := engine.Withdraw(staker, 0, big.NewInt(0)); err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if acc.BalanceReward.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("double claim detected: %s", acc.BalanceReward)
	}
}

func TestWithdrawSettlesAndReturnsStake(t *testing.T) {
	engine, state := newTestEngine(t)
	staker := makeAddress(crypto.AccountPrefix, 0x01)
	fund(state, staker, 100)

	engine.SetTimestamp(0)
	if err := engine.Deposit(staker, 0, big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	engine.SetTimestamp(10)
	if err := engine.Withdraw(staker, 0, big.NewInt(100)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	acc := state.account(staker)
	if acc.BalanceWant.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("stake not returned: %s", acc.BalanceWant)
	}
	if acc.BalanceReward.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("withdraw must settle rewards: %s", acc.BalanceReward)
	}
}

func TestWithdrawBeyondStakeFails(t *testing.T) {
	engine, state := newTestEngine(t)
	staker := makeAddress(crypto.AccountPrefix, 0x01)
	fund(state, staker, 100)

	if err := engine.Deposit(staker, 0, big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := engine.Withdraw(staker, 0, big.NewInt(101)); !errors.Is(err, ErrInsufficientStake) {
		t.Fatalf("expected ErrInsufficientStake, got %v", err)
	}
}

func TestEmptyPoolEmitsNothing(t *testing.T) {
	engine, state := newTestEngine(t)
	staker := makeAddress(crypto.AccountPrefix, 0x01)
	fund(state, staker, 100)

	// The pool sat empty for 1000 seconds before the first stake; those
	// rewards are never emitted.
	engine.SetTimestamp(1_000)
	if err := engine.Deposit(staker, 0, big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	pending, err := engine.PendingReward(staker, 0)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if pending.Sign() != 0 {
		t.Fatalf("retroactive rewards must not exist: %s", pending)
	}
}

func TestUnknownPoolIsRejected(t *testing.T) {
	engine, state := newTestEngine(t)
	staker := makeAddress(crypto.AccountPrefix, 0x01)
	fund(state, staker, 100)

	if err := engine.Deposit(staker, 9, big.NewInt(100)); !errors.Is(err, ErrPoolNotFound) {
		t.Fatalf("expected ErrPoolNotFound, got %v", err)
	}
}

func TestBindingActsForItsStaker(t *testing.T) {
	engine, state := newTestEngine(t)
	staker := makeAddress(crypto.AccountPrefix, 0x01)
	fund(state, staker, 250)

	bound := engine.Bind(staker)
	if err := bound.Deposit(0, big.NewInt(250)); err != nil {
		t.Fatalf("bound deposit: %v", err)
	}
	staked, _, err := bound.UserInfo(0)
	if err != nil {
		t.Fatalf("bound user info: %v", err)
	}
	if staked.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("unexpected bound stake: %s", staked)
	}
}
