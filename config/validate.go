package config

import (
	"fmt"

	"vaultchain/crypto"
	"vaultchain/native/fees"
)

const bpsDivisor = 10_000

// Validate rejects configurations the node would refuse at startup, so the
// operator learns about a bad file before the database is touched.
func (c *Config) Validate() error {
	if c.Vault.DepositFeeBps > bpsDivisor {
		return fmt.Errorf("config: Vault.DepositFeeBps %d exceeds %d", c.Vault.DepositFeeBps, bpsDivisor)
	}
	if c.Vault.WithdrawFeeBps > bpsDivisor {
		return fmt.Errorf("config: Vault.WithdrawFeeBps %d exceeds %d", c.Vault.WithdrawFeeBps, bpsDivisor)
	}
	if c.Vault.IdleBufferBps > bpsDivisor {
		return fmt.Errorf("config: Vault.IdleBufferBps %d exceeds %d", c.Vault.IdleBufferBps, bpsDivisor)
	}
	if c.Markets.SwapFeeBps >= bpsDivisor {
		return fmt.Errorf("config: Markets.SwapFeeBps %d must be below %d", c.Markets.SwapFeeBps, bpsDivisor)
	}
	if c.Markets.CollateralFactorBps >= bpsDivisor {
		return fmt.Errorf("config: Markets.CollateralFactorBps %d must be below %d", c.Markets.CollateralFactorBps, bpsDivisor)
	}

	harvest := fees.HarvestConfig{
		TotalFeeBps:      c.Harvest.TotalFeeBps,
		CallFeeBps:       c.Harvest.CallFeeBps,
		TreasuryFeeBps:   c.Harvest.TreasuryFeeBps,
		StrategistFeeBps: c.Harvest.StrategistFeeBps,
	}
	if err := harvest.Validate(); err != nil {
		return fmt.Errorf("config: harvest fees: %w", err)
	}

	if _, err := crypto.DecodeAddress(c.Roles.Owner); err != nil {
		return fmt.Errorf("config: Roles.Owner: %w", err)
	}
	if _, err := crypto.DecodeAddress(c.Roles.Strategist); err != nil {
		return fmt.Errorf("config: Roles.Strategist: %w", err)
	}
	if _, err := crypto.DecodeAddress(c.Roles.Treasury); err != nil {
		return fmt.Errorf("config: Roles.Treasury: %w", err)
	}
	return nil
}
