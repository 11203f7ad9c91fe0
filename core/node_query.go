package core

import (
	"math/big"

	"vaultchain/core/types"
	"vaultchain/crypto"
	"vaultchain/native/amm"
	"vaultchain/native/farm"
	"vaultchain/native/strategy"
	"vaultchain/native/vault"
)

// Balance reports the vault's total want under management: idle balance plus
// everything the strategy manages.
func (n *Node) Balance() (*big.Int, error) {
	var balance *big.Int
	err := n.view(func(env *engines) error {
		var err error
		balance, err = env.vault.Balance()
		return err
	})
	if err != nil {
		return nil, err
	}
	return balance, nil
}

// PricePerFullShare reports the want value of one full share, 1e18 fixed
// point.
func (n *Node) PricePerFullShare() (*big.Int, error) {
	var price *big.Int
	err := n.view(func(env *engines) error {
		var err error
		price, err = env.vault.PricePerFullShare()
		return err
	})
	if err != nil {
		return nil, err
	}
	return price, nil
}

// HolderShares reports a holder's share balance.
func (n *Node) HolderShares(holder crypto.Address) (*big.Int, error) {
	var shares *big.Int
	err := n.view(func(env *engines) error {
		var err error
		shares, err = env.vault.HolderShares(holder)
		return err
	})
	if err != nil {
		return nil, err
	}
	return shares, nil
}

// VaultInfo reports the persisted vault record.
func (n *Node) VaultInfo() (*vault.Vault, error) {
	var record *vault.Vault
	err := n.view(func(env *engines) error {
		var err error
		record, err = env.store.GetVault()
		if err != nil {
			return err
		}
		if record == nil {
			return vault.ErrNotInitialised
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// StrategyInfo reports the persisted strategy record.
func (n *Node) StrategyInfo() (*strategy.Strategy, error) {
	var record *strategy.Strategy
	err := n.view(func(env *engines) error {
		var err error
		record, err = env.strategy.Info()
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// CalculateLTV reports the leveraged position's loan-to-value in basis
// points.
func (n *Node) CalculateLTV() (uint64, error) {
	var ltv uint64
	err := n.view(func(env *engines) error {
		var err error
		ltv, err = env.strategy.CalculateLTV()
		return err
	})
	if err != nil {
		return 0, err
	}
	return ltv, nil
}

// Account reports the token balances held by an address.
func (n *Node) Account(addr crypto.Address) (*types.Account, error) {
	var account *types.Account
	err := n.view(func(env *engines) error {
		var err error
		account, err = env.store.GetAccount(addr)
		return err
	})
	if err != nil {
		return nil, err
	}
	if account == nil {
		account = types.NewAccount()
	}
	return account, nil
}

// FarmPoolInfo reports the farm pool's emission state.
func (n *Node) FarmPoolInfo() (*farm.Pool, error) {
	var pool *farm.Pool
	err := n.view(func(env *engines) error {
		var err error
		pool, err = env.farm.PoolInfo(n.params.PoolID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// PairInfo reports a swap pair's reserves.
func (n *Node) PairInfo(a, b types.Token) (*amm.Pair, error) {
	var pair *amm.Pair
	err := n.view(func(env *engines) error {
		var err error
		pair, err = env.amm.PairInfo(a, b)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Paused lists the currently paused modules.
func (n *Node) Paused() []string {
	return n.pauses.Paused()
}

// Events returns up to limit of the most recent events, newest last. A
// non-positive limit returns the full retained history.
func (n *Node) Events(limit int) []*types.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	events := n.events
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	out := make([]*types.Event, len(events))
	copy(out, events)
	return out
}
