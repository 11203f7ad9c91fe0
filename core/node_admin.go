package core

import (
	"math/big"

	"vaultchain/core/types"
	"vaultchain/crypto"
	"vaultchain/native/fees"
	"vaultchain/native/upgrade"
	"vaultchain/native/vault"
)

// depositFeeCapBps bounds the vault deposit fee at 5%.
const depositFeeCapBps = 500

// SetDepositFee updates the fee charged on vault deposits.
func (n *Node) SetDepositFee(caller crypto.Address, bps uint64) error {
	if bps > depositFeeCapBps {
		return vault.ErrInvalidAmount
	}
	return n.execute(func(env *engines) error {
		if err := env.requireOwner(caller); err != nil {
			return err
		}
		return mutateVault(env, func(record *vault.Vault) {
			record.DepositFeeBps = bps
		})
	})
}

// SetDepositCap updates the bound on total want under management. Zero
// disables the cap.
func (n *Node) SetDepositCap(caller crypto.Address, cap *big.Int) error {
	if cap == nil || cap.Sign() < 0 {
		return vault.ErrInvalidAmount
	}
	return n.execute(func(env *engines) error {
		if err := env.requireOwner(caller); err != nil {
			return err
		}
		return mutateVault(env, func(record *vault.Vault) {
			record.DepositCap = new(big.Int).Set(cap)
		})
	})
}

// SetIdleBuffer updates the fraction of managed want the vault keeps idle.
func (n *Node) SetIdleBuffer(caller crypto.Address, bps uint64) error {
	if bps > fees.PercentDivisor {
		return vault.ErrInvalidAmount
	}
	return n.execute(func(env *engines) error {
		if err := env.requireOwner(caller); err != nil {
			return err
		}
		return mutateVault(env, func(record *vault.Vault) {
			record.IdleBufferBps = bps
		})
	})
}

func mutateVault(env *engines, mutate func(*vault.Vault)) error {
	record, err := env.store.GetVault()
	if err != nil {
		return err
	}
	if record == nil {
		return vault.ErrNotInitialised
	}
	mutate(record)
	return env.store.PutVault(record)
}

// SetWithdrawFee updates the strategy's security fee.
func (n *Node) SetWithdrawFee(caller crypto.Address, bps uint64) error {
	return n.execute(func(env *engines) error {
		if err := env.requireOwner(caller); err != nil {
			return err
		}
		return env.strategy.SetWithdrawFee(bps)
	})
}

// SetHarvestFees replaces the harvest fee split.
func (n *Node) SetHarvestFees(caller crypto.Address, cfg fees.HarvestConfig) error {
	return n.execute(func(env *engines) error {
		if err := env.requireOwner(caller); err != nil {
			return err
		}
		return env.strategy.SetHarvestFees(cfg)
	})
}

// SetHarvestMinOut updates the harvest slippage bound.
func (n *Node) SetHarvestMinOut(caller crypto.Address, bps uint64) error {
	return n.execute(func(env *engines) error {
		if err := env.requireOwner(caller); err != nil {
			return err
		}
		return env.strategy.SetHarvestMinOut(bps)
	})
}

// SetTargetLTV configures the leveraged variant's loan-to-value control.
func (n *Node) SetTargetLTV(caller crypto.Address, targetBps, toleranceBps uint64) error {
	return n.execute(func(env *engines) error {
		if err := env.requireOwner(caller); err != nil {
			return err
		}
		return env.strategy.SetTargetLTV(targetBps, toleranceBps)
	})
}

// SetStrategist reassigns the strategist role and fee recipient.
func (n *Node) SetStrategist(caller, strategist crypto.Address) error {
	return n.setRole(caller, func(roles *Roles) {
		roles.Strategist = strategist
	}, strategist)
}

// SetTreasury reassigns the treasury fee recipient.
func (n *Node) SetTreasury(caller, treasury crypto.Address) error {
	return n.setRole(caller, func(roles *Roles) {
		roles.Treasury = treasury
	}, treasury)
}

// TransferOwnership hands the owner role to a new address.
func (n *Node) TransferOwnership(caller, owner crypto.Address) error {
	return n.setRole(caller, func(roles *Roles) {
		roles.Owner = owner
	}, owner)
}

func (n *Node) setRole(caller crypto.Address, mutate func(*Roles), assigned crypto.Address) error {
	if err := requireAccountAddress(assigned); err != nil {
		return err
	}
	return n.execute(func(env *engines) error {
		if err := env.requireOwner(caller); err != nil {
			return err
		}
		mutate(env.roles)
		return env.store.PutJSON(rolesKey, env.roles)
	})
}

// RolesInfo reports the current role assignments.
func (n *Node) RolesInfo() (*Roles, error) {
	roles := new(Roles)
	err := n.view(func(env *engines) error {
		*roles = *env.roles
		return nil
	})
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// InitiateUpgradeCooldown arms or re-arms the upgrade timelock.
func (n *Node) InitiateUpgradeCooldown(caller crypto.Address) (*upgrade.Record, error) {
	var record *upgrade.Record
	err := n.execute(func(env *engines) error {
		if err := env.requireOwner(caller); err != nil {
			return err
		}
		var err error
		record, err = env.upgrade.Initiate(env.now)
		return err
	})
	if err != nil {
		return nil, err
	}
	n.logger.Info("upgrade cooldown initiated", "caller", caller.String())
	return record, nil
}

// ExecuteUpgrade completes an upgrade after its cooldown has elapsed.
func (n *Node) ExecuteUpgrade(caller crypto.Address) (uint64, error) {
	var version uint64
	err := n.execute(func(env *engines) error {
		if err := env.requireOwner(caller); err != nil {
			return err
		}
		var err error
		version, err = env.upgrade.Execute(env.now)
		return err
	})
	if err != nil {
		return 0, err
	}
	n.metrics.ObserveUpgrade()
	n.logger.Info("upgrade executed", "caller", caller.String(), "logicVersion", version)
	return version, nil
}

// UpgradeStatus reports the timelock record and, when armed, the earliest
// execution time.
func (n *Node) UpgradeStatus() (*upgrade.Record, uint64, error) {
	var (
		record  *upgrade.Record
		readyAt uint64
	)
	err := n.view(func(env *engines) error {
		var err error
		record, readyAt, err = env.upgrade.Status()
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return record, readyAt, nil
}

// MintWant credits want to an address. It is the development faucet backing
// local networks and tests; the owner gates it.
func (n *Node) MintWant(caller, to crypto.Address, amount *big.Int) error {
	if err := requireAccountAddress(to); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return vault.ErrInvalidAmount
	}
	return n.execute(func(env *engines) error {
		if err := env.requireOwner(caller); err != nil {
			return err
		}
		account, err := env.store.GetAccount(to)
		if err != nil {
			return err
		}
		if account == nil {
			account = types.NewAccount()
		}
		account.Normalize()
		if err := account.Credit(types.TokenWant, amount); err != nil {
			return err
		}
		return env.store.PutAccount(to, account)
	})
}
