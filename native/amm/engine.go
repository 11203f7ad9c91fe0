package amm

import (
	"errors"
	"math/big"

	"vaultchain/core/types"
	"vaultchain/crypto"
	"vaultchain/native/fees"
)

var (
	// ErrNilState signals the engine was used before wiring its state.
	ErrNilState = errors.New("amm engine: state not configured")
	// ErrPairNotFound rejects a swap over an unregistered pair.
	ErrPairNotFound = errors.New("amm engine: pair not found")
	// ErrInvalidRoute rejects routes with fewer than two tokens or repeated
	// hops.
	ErrInvalidRoute = errors.New("amm engine: invalid route")
	// ErrInvalidAmount rejects nil or non-positive swap amounts.
	ErrInvalidAmount = errors.New("amm engine: invalid amount")
	// ErrInsufficientOutput rejects a swap whose output falls below the
	// caller's bound.
	ErrInsufficientOutput = errors.New("amm engine: insufficient output amount")
	// ErrInsufficientReserves rejects swaps against an empty pool side.
	ErrInsufficientReserves = errors.New("amm engine: insufficient reserves")
)

// Pair is one constant-product pool. Tokens are stored in canonical order so
// a pair is addressed the same way from either direction.
type Pair struct {
	TokenA   types.Token `json:"tokenA"`
	TokenB   types.Token `json:"tokenB"`
	ReserveA *big.Int    `json:"reserveA"`
	ReserveB *big.Int    `json:"reserveB"`
	FeeBps   uint64      `json:"feeBps"`
}

// Normalize replaces nil reserves with zero values.
func (p *Pair) Normalize() {
	if p.ReserveA == nil {
		p.ReserveA = big.NewInt(0)
	}
	if p.ReserveB == nil {
		p.ReserveB = big.NewInt(0)
	}
}

// PairKey returns the canonical token ordering used to address a pair.
func PairKey(a, b types.Token) (types.Token, types.Token) {
	if string(a) > string(b) {
		return b, a
	}
	return a, b
}

type engineState interface {
	GetAMMPair(a, b types.Token) (*Pair, error)
	PutAMMPair(*Pair) error
	GetAccount(addr crypto.Address) (*types.Account, error)
	PutAccount(addr crypto.Address, account *types.Account) error
}

// Engine routes swaps across constant-product pairs. The engine custody
// account backs every pool's reserves; swapping debits the trader's input
// token and credits the output after walking the route hop by hop.
type Engine struct {
	state         engineState
	moduleAddress crypto.Address
}

// NewEngine constructs an AMM engine with the given custody account.
func NewEngine(moduleAddr crypto.Address) *Engine {
	return &Engine{moduleAddress: moduleAddr}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SeedPair registers a pair with initial reserves, minting the custody
// balance that backs them. Seeding an existing pair tops up its reserves.
func (e *Engine) SeedPair(a, b types.Token, reserveA, reserveB *big.Int, feeBps uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if a == b {
		return ErrInvalidRoute
	}
	if reserveA == nil || reserveA.Sign() <= 0 || reserveB == nil || reserveB.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if feeBps >= fees.PercentDivisor {
		return ErrInvalidAmount
	}

	first, second := PairKey(a, b)
	addA, addB := reserveA, reserveB
	if first != a {
		addA, addB = reserveB, reserveA
	}
	pair, err := e.state.GetAMMPair(first, second)
	if err != nil {
		return err
	}
	if pair == nil {
		pair = &Pair{TokenA: first, TokenB: second, FeeBps: feeBps}
	}
	pair.Normalize()
	pair.ReserveA = new(big.Int).Add(pair.ReserveA, addA)
	pair.ReserveB = new(big.Int).Add(pair.ReserveB, addB)

	module, err := e.loadAccount(e.moduleAddress)
	if err != nil {
		return err
	}
	if err := module.Credit(first, addA); err != nil {
		return err
	}
	if err := module.Credit(second, addB); err != nil {
		return err
	}
	if err := e.state.PutAccount(e.moduleAddress, module); err != nil {
		return err
	}
	return e.state.PutAMMPair(pair)
}

// QuoteExactIn projects the route's output for amountIn without moving funds.
func (e *Engine) QuoteExactIn(amountIn *big.Int, route []types.Token) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := validateRoute(route); err != nil {
		return nil, err
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	out := new(big.Int).Set(amountIn)
	for i := 0; i+1 < len(route); i++ {
		pair, reserveIn, reserveOut, err := e.loadPair(route[i], route[i+1])
		if err != nil {
			return nil, err
		}
		out, err = amountOut(out, reserveIn, reserveOut, pair.FeeBps)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SwapExactIn executes the route against the pools, debiting amountIn of the
// first token from the recipient and crediting the final output. The swap
// fails when the output falls below minOut; a nil or zero minOut accepts any
// output.
func (e *Engine) SwapExactIn(amountIn, minOut *big.Int, route []types.Token, recipient crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := validateRoute(route); err != nil {
		return nil, err
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	// Quote the whole route before touching any reserve so a rejected swap
	// leaves the pools unmoved.
	quoted, err := e.QuoteExactIn(amountIn, route)
	if err != nil {
		return nil, err
	}
	if minOut != nil && minOut.Sign() > 0 && quoted.Cmp(minOut) < 0 {
		return nil, ErrInsufficientOutput
	}

	out := new(big.Int).Set(amountIn)
	for i := 0; i+1 < len(route); i++ {
		pair, reserveIn, reserveOut, err := e.loadPair(route[i], route[i+1])
		if err != nil {
			return nil, err
		}
		hopOut, err := amountOut(out, reserveIn, reserveOut, pair.FeeBps)
		if err != nil {
			return nil, err
		}
		reserveIn.Add(reserveIn, out)
		reserveOut.Sub(reserveOut, hopOut)
		if err := e.state.PutAMMPair(pair); err != nil {
			return nil, err
		}
		out = hopOut
	}

	trader, err := e.loadAccount(recipient)
	if err != nil {
		return nil, err
	}
	module, err := e.loadAccount(e.moduleAddress)
	if err != nil {
		return nil, err
	}
	if err := trader.Debit(route[0], amountIn); err != nil {
		return nil, err
	}
	if err := module.Credit(route[0], amountIn); err != nil {
		return nil, err
	}
	if err := module.Debit(route[len(route)-1], out); err != nil {
		return nil, err
	}
	if err := trader.Credit(route[len(route)-1], out); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(recipient, trader); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(e.moduleAddress, module); err != nil {
		return nil, err
	}
	return out, nil
}

// PairInfo returns a copy of the pair's current state.
func (e *Engine) PairInfo(a, b types.Token) (*Pair, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	first, second := PairKey(a, b)
	pair, err := e.state.GetAMMPair(first, second)
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, ErrPairNotFound
	}
	pair.Normalize()
	clone := *pair
	clone.ReserveA = new(big.Int).Set(pair.ReserveA)
	clone.ReserveB = new(big.Int).Set(pair.ReserveB)
	return &clone, nil
}

// loadPair resolves the pair for one hop and orients its reserves so the
// first return is the input side. The returned reserves alias the pair, so
// mutating them updates the record passed back to PutAMMPair.
func (e *Engine) loadPair(in, out types.Token) (*Pair, *big.Int, *big.Int, error) {
	first, second := PairKey(in, out)
	pair, err := e.state.GetAMMPair(first, second)
	if err != nil {
		return nil, nil, nil, err
	}
	if pair == nil {
		return nil, nil, nil, ErrPairNotFound
	}
	pair.Normalize()
	if in == pair.TokenA {
		return pair, pair.ReserveA, pair.ReserveB, nil
	}
	return pair, pair.ReserveB, pair.ReserveA, nil
}

// amountOut is the constant-product formula with the fee charged on the
// input side: out = in' * Rout / (Rin + in') where in' = in * (1 - fee).
func amountOut(amountIn, reserveIn, reserveOut *big.Int, feeBps uint64) (*big.Int, error) {
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrInsufficientReserves
	}
	divisor := big.NewInt(fees.PercentDivisor)
	effective := new(big.Int).Mul(amountIn, new(big.Int).SetUint64(fees.PercentDivisor-feeBps))
	numerator := new(big.Int).Mul(effective, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, divisor)
	denominator.Add(denominator, effective)
	out := numerator.Quo(numerator, denominator)
	if out.Cmp(reserveOut) >= 0 {
		return nil, ErrInsufficientReserves
	}
	return out, nil
}

func validateRoute(route []types.Token) error {
	if len(route) < 2 {
		return ErrInvalidRoute
	}
	for i := 0; i+1 < len(route); i++ {
		if route[i] == route[i+1] {
			return ErrInvalidRoute
		}
	}
	return nil
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
