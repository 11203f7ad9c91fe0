package state

import (
	"encoding/json"
	"errors"

	"vaultchain/core/types"
	"vaultchain/crypto"
	"vaultchain/native/strategy"
	"vaultchain/native/upgrade"
	"vaultchain/native/vault"
	"vaultchain/storage"
)

var (
	accountPrefix     = []byte("account/")
	vaultRecordKey    = []byte("vault/record")
	vaultHolderPrefix = []byte("vault/holder/")
	strategyRecordKey = []byte("strategy/record")
	upgradeRecordKey  = []byte("upgrade/record")
)

func accountKey(addr crypto.Address) []byte {
	return append(append([]byte(nil), accountPrefix...), addr.Bytes()...)
}

func holderKey(addr crypto.Address) []byte {
	return append(append([]byte(nil), vaultHolderPrefix...), addr.Bytes()...)
}

// Store is a typed view over one overlay. It satisfies the persistence
// interfaces of the vault, strategy and upgrade engines, so a single store
// wired into all three gives one ledger operation one atomic unit of state.
type Store struct {
	kv *Overlay
}

func newStore(kv *Overlay) *Store {
	return &Store{kv: kv}
}

// Commit flushes the store's staged changes to the backing database.
func (s *Store) Commit() error { return s.kv.Commit() }

// Discard drops the store's staged changes.
func (s *Store) Discard() { s.kv.Discard() }

// GetJSON decodes the value stored at key into out, reporting false when the
// key is absent.
func (s *Store) GetJSON(key []byte, out interface{}) (bool, error) {
	data, err := s.kv.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// PutJSON encodes value and stores it at key.
func (s *Store) PutJSON(key []byte, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.kv.Put(key, data)
}

// GetAccount loads the account stored for addr, or nil when the address has
// never been touched.
func (s *Store) GetAccount(addr crypto.Address) (*types.Account, error) {
	account := new(types.Account)
	ok, err := s.GetJSON(accountKey(addr), account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	account.Normalize()
	return account, nil
}

// PutAccount persists the account for addr.
func (s *Store) PutAccount(addr crypto.Address, account *types.Account) error {
	return s.PutJSON(accountKey(addr), account)
}

// GetVault loads the vault record, or nil before initialisation.
func (s *Store) GetVault() (*vault.Vault, error) {
	record := new(vault.Vault)
	ok, err := s.GetJSON(vaultRecordKey, record)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	record.Normalize()
	return record, nil
}

// PutVault persists the vault record.
func (s *Store) PutVault(record *vault.Vault) error {
	return s.PutJSON(vaultRecordKey, record)
}

// GetHolder loads a holder's share position, or nil when the holder has no
// recorded position.
func (s *Store) GetHolder(addr crypto.Address) (*vault.HolderPosition, error) {
	position := new(vault.HolderPosition)
	ok, err := s.GetJSON(holderKey(addr), position)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	position.Normalize()
	return position, nil
}

// PutHolder persists a holder's share position.
func (s *Store) PutHolder(position *vault.HolderPosition) error {
	return s.PutJSON(holderKey(position.Address), position)
}

// GetStrategy loads the strategy record, or nil before initialisation.
func (s *Store) GetStrategy() (*strategy.Strategy, error) {
	record := new(strategy.Strategy)
	ok, err := s.GetJSON(strategyRecordKey, record)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	record.Normalize()
	return record, nil
}

// PutStrategy persists the strategy record.
func (s *Store) PutStrategy(record *strategy.Strategy) error {
	return s.PutJSON(strategyRecordKey, record)
}

// GetUpgrade loads the upgrade timelock record, or nil when no cooldown has
// ever run.
func (s *Store) GetUpgrade() (*upgrade.Record, error) {
	record := new(upgrade.Record)
	ok, err := s.GetJSON(upgradeRecordKey, record)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return record, nil
}

// PutUpgrade persists the upgrade timelock record.
func (s *Store) PutUpgrade(record *upgrade.Record) error {
	return s.PutJSON(upgradeRecordKey, record)
}
