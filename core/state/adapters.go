package state

import (
	"encoding/binary"

	"vaultchain/core/types"
	"vaultchain/crypto"
	"vaultchain/native/amm"
	"vaultchain/native/farm"
	"vaultchain/native/lending"
)

var (
	farmPoolPrefix        = []byte("farm/pool/")
	farmUserPrefix        = []byte("farm/user/")
	ammPairPrefix         = []byte("amm/pair/")
	lendingPositionPrefix = []byte("lending/position/")
)

func farmPoolKey(id uint64) []byte {
	key := append([]byte(nil), farmPoolPrefix...)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return append(key, buf[:]...)
}

func farmUserKey(poolID uint64, addr crypto.Address) []byte {
	key := append([]byte(nil), farmUserPrefix...)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], poolID)
	key = append(key, buf[:]...)
	key = append(key, '/')
	return append(key, addr.Bytes()...)
}

func ammPairKey(a, b types.Token) []byte {
	first, second := amm.PairKey(a, b)
	key := append([]byte(nil), ammPairPrefix...)
	key = append(key, first...)
	key = append(key, '/')
	return append(key, second...)
}

func lendingPositionKey(addr crypto.Address) []byte {
	return append(append([]byte(nil), lendingPositionPrefix...), addr.Bytes()...)
}

// GetFarmPool loads a farm pool, or nil when the pool is unregistered.
func (s *Store) GetFarmPool(id uint64) (*farm.Pool, error) {
	pool := new(farm.Pool)
	ok, err := s.GetJSON(farmPoolKey(id), pool)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	pool.Normalize()
	return pool, nil
}

// PutFarmPool persists a farm pool.
func (s *Store) PutFarmPool(pool *farm.Pool) error {
	return s.PutJSON(farmPoolKey(pool.ID), pool)
}

// GetFarmUser loads a staker's pool position, or nil before the first stake.
func (s *Store) GetFarmUser(poolID uint64, addr crypto.Address) (*farm.User, error) {
	user := new(farm.User)
	ok, err := s.GetJSON(farmUserKey(poolID, addr), user)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	user.Normalize()
	return user, nil
}

// PutFarmUser persists a staker's pool position.
func (s *Store) PutFarmUser(poolID uint64, addr crypto.Address, user *farm.User) error {
	return s.PutJSON(farmUserKey(poolID, addr), user)
}

// GetAMMPair loads a swap pair, or nil when the pair is unregistered.
func (s *Store) GetAMMPair(a, b types.Token) (*amm.Pair, error) {
	pair := new(amm.Pair)
	ok, err := s.GetJSON(ammPairKey(a, b), pair)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	pair.Normalize()
	return pair, nil
}

// PutAMMPair persists a swap pair.
func (s *Store) PutAMMPair(pair *amm.Pair) error {
	return s.PutJSON(ammPairKey(pair.TokenA, pair.TokenB), pair)
}

// GetLendingPosition loads a borrower's position, or nil when the borrower
// has never interacted with the market.
func (s *Store) GetLendingPosition(addr crypto.Address) (*lending.Position, error) {
	position := new(lending.Position)
	ok, err := s.GetJSON(lendingPositionKey(addr), position)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	position.Normalize()
	return position, nil
}

// PutLendingPosition persists a borrower's position.
func (s *Store) PutLendingPosition(addr crypto.Address, position *lending.Position) error {
	return s.PutJSON(lendingPositionKey(addr), position)
}
