package config

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadCreatesDefaultConfigAndKeystore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if _, err := os.Stat(cfg.OperatorKeystorePath); err != nil {
		t.Fatalf("operator keystore not written: %v", err)
	}
	if !strings.HasPrefix(cfg.Roles.Owner, "vlt1") {
		t.Fatalf("owner should be the generated key's address, got %q", cfg.Roles.Owner)
	}
	if cfg.Roles.Strategist != cfg.Roles.Owner || cfg.Roles.Treasury != cfg.Roles.Owner {
		t.Fatalf("default roles should all be the owner")
	}
	if cfg.Vault.CooldownSeconds != 21_600 {
		t.Fatalf("unexpected default cooldown: %d", cfg.Vault.CooldownSeconds)
	}
}

func TestLoadRoundTripsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	created, err := Load(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	created.Vault.DepositFeeBps = 25
	created.Markets.SwapReserve = "500000"
	if err := persist(path, created); err != nil {
		t.Fatalf("persist: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Vault.DepositFeeBps != 25 {
		t.Fatalf("deposit fee lost: %d", loaded.Vault.DepositFeeBps)
	}
	if loaded.Markets.SwapReserve != "500000" {
		t.Fatalf("swap reserve lost: %q", loaded.Markets.SwapReserve)
	}
	if loaded.OperatorKeystorePath != created.OperatorKeystorePath {
		t.Fatalf("keystore path drifted: %q vs %q", loaded.OperatorKeystorePath, created.OperatorKeystorePath)
	}
}

func TestNodeParamsConversion(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "config.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Vault.DepositCap = "12345678901234567890"

	params, err := cfg.NodeParams()
	if err != nil {
		t.Fatalf("node params: %v", err)
	}
	cap, ok := new(big.Int).SetString("12345678901234567890", 10)
	if !ok {
		t.Fatal("bad literal")
	}
	if params.DepositCap.Cmp(cap) != 0 {
		t.Fatalf("deposit cap did not survive conversion: %s", params.DepositCap)
	}
	if params.Owner.String() != cfg.Roles.Owner {
		t.Fatalf("owner mismatch: %s vs %s", params.Owner, cfg.Roles.Owner)
	}
	if params.HarvestFees.TotalFeeBps != cfg.Harvest.TotalFeeBps {
		t.Fatalf("harvest fees not carried over")
	}
}

func TestNodeParamsRejectsBadAmount(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "config.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Vault.DepositCap = "not-a-number"
	if _, err := cfg.NodeParams(); err == nil {
		t.Fatal("expected an error for a malformed amount")
	}
	cfg.Vault.DepositCap = "-5"
	if _, err := cfg.NodeParams(); err == nil {
		t.Fatal("expected an error for a negative amount")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "config.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	bad := *cfg
	bad.Vault.WithdrawFeeBps = 10_001
	if err := bad.Validate(); err == nil {
		t.Fatal("expected withdraw fee rejection")
	}

	bad = *cfg
	bad.Harvest.CallFeeBps = 6_000
	bad.Harvest.TreasuryFeeBps = 6_000
	if err := bad.Validate(); err == nil {
		t.Fatal("expected harvest split rejection")
	}

	bad = *cfg
	bad.Roles.Treasury = "vlt1garbage"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected address rejection")
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}
