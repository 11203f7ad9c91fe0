package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"vaultchain/core"
	"vaultchain/crypto"
	"vaultchain/native/fees"

	"github.com/BurntSushi/toml"
)

type Config struct {
	RPCAddress           string `toml:"RPCAddress"`
	MetricsAddress       string `toml:"MetricsAddress"`
	DataDir              string `toml:"DataDir"`
	Environment          string `toml:"Environment"`
	OperatorKeystorePath string `toml:"OperatorKeystorePath"`

	Vault   VaultConfig   `toml:"Vault"`
	Harvest HarvestConfig `toml:"Harvest"`
	Markets MarketsConfig `toml:"Markets"`
	Roles   RolesConfig   `toml:"Roles"`
}

// VaultConfig carries the share-ledger parameters. Amount fields are decimal
// strings so values above 2^63 survive the TOML round trip.
type VaultConfig struct {
	PoolID          uint64 `toml:"PoolID"`
	CooldownSeconds uint64 `toml:"CooldownSeconds"`
	DepositFeeBps   uint64 `toml:"DepositFeeBps"`
	DepositCap      string `toml:"DepositCap"`
	IdleBufferBps   uint64 `toml:"IdleBufferBps"`
	WithdrawFeeBps  uint64 `toml:"WithdrawFeeBps"`
}

type HarvestConfig struct {
	TotalFeeBps      uint64 `toml:"TotalFeeBps"`
	CallFeeBps       uint64 `toml:"CallFeeBps"`
	TreasuryFeeBps   uint64 `toml:"TreasuryFeeBps"`
	StrategistFeeBps uint64 `toml:"StrategistFeeBps"`
	MinOutBps        uint64 `toml:"MinOutBps"`
}

// MarketsConfig seeds the farm, swap and lending modules at genesis.
type MarketsConfig struct {
	RewardPerSecond     string `toml:"RewardPerSecond"`
	SwapReserve         string `toml:"SwapReserve"`
	SwapFeeBps          uint64 `toml:"SwapFeeBps"`
	LendingLiquidity    string `toml:"LendingLiquidity"`
	CollateralFactorBps uint64 `toml:"CollateralFactorBps"`
	TargetLTVBps        uint64 `toml:"TargetLTVBps"`
	LTVToleranceBps     uint64 `toml:"LTVToleranceBps"`
}

// RolesConfig holds the bech32 addresses of the privileged accounts. An empty
// Strategist or Treasury falls back to the owner.
type RolesConfig struct {
	Owner      string `toml:"Owner"`
	Strategist string `toml:"Strategist"`
	Treasury   string `toml:"Treasury"`
}

// Load loads the configuration from the given path, creating a default file
// and an operator keystore when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = ":8080"
	}
	if strings.TrimSpace(c.MetricsAddress) == "" {
		c.MetricsAddress = ":2112"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./vault-data"
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "development"
	}
	if strings.TrimSpace(c.Roles.Strategist) == "" {
		c.Roles.Strategist = c.Roles.Owner
	}
	if strings.TrimSpace(c.Roles.Treasury) == "" {
		c.Roles.Treasury = c.Roles.Owner
	}
}

// NodeParams converts the file representation into node parameters.
func (c *Config) NodeParams() (core.Params, error) {
	owner, err := crypto.DecodeAddress(c.Roles.Owner)
	if err != nil {
		return core.Params{}, fmt.Errorf("config: owner address: %w", err)
	}
	strategist, err := crypto.DecodeAddress(c.Roles.Strategist)
	if err != nil {
		return core.Params{}, fmt.Errorf("config: strategist address: %w", err)
	}
	treasury, err := crypto.DecodeAddress(c.Roles.Treasury)
	if err != nil {
		return core.Params{}, fmt.Errorf("config: treasury address: %w", err)
	}

	depositCap, err := parseAmount("Vault.DepositCap", c.Vault.DepositCap)
	if err != nil {
		return core.Params{}, err
	}
	rewardPerSecond, err := parseAmount("Markets.RewardPerSecond", c.Markets.RewardPerSecond)
	if err != nil {
		return core.Params{}, err
	}
	swapReserve, err := parseAmount("Markets.SwapReserve", c.Markets.SwapReserve)
	if err != nil {
		return core.Params{}, err
	}
	lendingLiquidity, err := parseAmount("Markets.LendingLiquidity", c.Markets.LendingLiquidity)
	if err != nil {
		return core.Params{}, err
	}

	return core.Params{
		PoolID:          c.Vault.PoolID,
		CooldownSeconds: c.Vault.CooldownSeconds,
		DepositFeeBps:   c.Vault.DepositFeeBps,
		DepositCap:      depositCap,
		IdleBufferBps:   c.Vault.IdleBufferBps,
		WithdrawFeeBps:  c.Vault.WithdrawFeeBps,
		HarvestFees: fees.HarvestConfig{
			TotalFeeBps:      c.Harvest.TotalFeeBps,
			CallFeeBps:       c.Harvest.CallFeeBps,
			TreasuryFeeBps:   c.Harvest.TreasuryFeeBps,
			StrategistFeeBps: c.Harvest.StrategistFeeBps,
		},
		HarvestMinOutBps:    c.Harvest.MinOutBps,
		TargetLTVBps:        c.Markets.TargetLTVBps,
		LTVToleranceBps:     c.Markets.LTVToleranceBps,
		CollateralFactorBps: c.Markets.CollateralFactorBps,
		RewardPerSecond:     rewardPerSecond,
		SwapReserve:         swapReserve,
		SwapFeeBps:          c.Markets.SwapFeeBps,
		LendingLiquidity:    lendingLiquidity,
		Owner:               owner,
		Strategist:          strategist,
		Treasury:            treasury,
	}, nil
}

func parseAmount(field, value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("config: %s: invalid amount %q", field, value)
	}
	return amount, nil
}

// ensureKeystore guarantees an operator keystore exists next to the config so
// the owner key survives restarts. A freshly generated keystore path is
// persisted back into the file.
func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := cfg.OperatorKeystorePath
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}

	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
			return err
		}
		if strings.TrimSpace(cfg.Roles.Owner) == "" {
			cfg.Roles.Owner = key.PubKey().Address().String()
		}
	} else if err != nil {
		return err
	}

	if cfg.OperatorKeystorePath != keystorePath {
		cfg.OperatorKeystorePath = keystorePath
		return persist(configPath, cfg)
	}
	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
		return nil, err
	}
	owner := key.PubKey().Address().String()

	cfg := &Config{
		RPCAddress:           ":8080",
		MetricsAddress:       ":2112",
		DataDir:              "./vault-data",
		Environment:          "development",
		OperatorKeystorePath: keystorePath,
		Vault: VaultConfig{
			PoolID:          0,
			CooldownSeconds: 21_600,
			DepositFeeBps:   0,
			DepositCap:      "0",
			IdleBufferBps:   0,
			WithdrawFeeBps:  10,
		},
		Harvest: HarvestConfig{
			TotalFeeBps:      450,
			CallFeeBps:       1_000,
			TreasuryFeeBps:   9_000,
			StrategistFeeBps: 2_500,
		},
		Markets: MarketsConfig{
			RewardPerSecond:  "1000000000000000000",
			SwapReserve:      "1000000000000000000000000",
			SwapFeeBps:       30,
			LendingLiquidity: "0",
		},
		Roles: RolesConfig{Owner: owner, Strategist: owner, Treasury: owner},
	}

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "operator.keystore")
}
