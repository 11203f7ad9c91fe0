package state

import (
	"vaultchain/storage"
)

// Manager hands out stores over the backing database. Each store wraps its
// own overlay, so concurrent readers never observe another operation's
// partial writes; the node serialises committing stores.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager over the given database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Begin opens a fresh store. The caller commits it on success or discards it
// on failure.
func (m *Manager) Begin() *Store {
	return newStore(NewOverlay(m.db))
}
