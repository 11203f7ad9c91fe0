package state

import (
	"sort"

	"vaultchain/storage"
)

// Overlay is a copy-on-write view over the backing database. Reads fall
// through to the database until a key is written; writes and deletes stay in
// the overlay until Commit flushes them. Discarding the overlay leaves the
// database untouched, which is what makes every ledger operation atomic: the
// node runs each operation against a fresh overlay and only commits on
// success.
type Overlay struct {
	db      storage.Database
	writes  map[string][]byte
	deletes map[string]struct{}
}

// NewOverlay wraps the database in an empty overlay.
func NewOverlay(db storage.Database) *Overlay {
	return &Overlay{
		db:      db,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

// Get returns the overlaid value for key, falling through to the database
// when the overlay has not touched it. Deleted keys report
// storage.ErrKeyNotFound.
func (o *Overlay) Get(key []byte) ([]byte, error) {
	k := string(key)
	if _, gone := o.deletes[k]; gone {
		return nil, storage.ErrKeyNotFound
	}
	if value, ok := o.writes[k]; ok {
		return append([]byte(nil), value...), nil
	}
	return o.db.Get(key)
}

// Has reports whether key resolves to a value through the overlay.
func (o *Overlay) Has(key []byte) (bool, error) {
	k := string(key)
	if _, gone := o.deletes[k]; gone {
		return false, nil
	}
	if _, ok := o.writes[k]; ok {
		return true, nil
	}
	return o.db.Has(key)
}

// Put stages a write in the overlay.
func (o *Overlay) Put(key, value []byte) error {
	k := string(key)
	delete(o.deletes, k)
	o.writes[k] = append([]byte(nil), value...)
	return nil
}

// Delete stages a deletion in the overlay.
func (o *Overlay) Delete(key []byte) error {
	k := string(key)
	delete(o.writes, k)
	o.deletes[k] = struct{}{}
	return nil
}

// Commit flushes the staged writes and deletions to the database in key
// order. A failed flush leaves the overlay intact so the caller can retry or
// discard.
func (o *Overlay) Commit() error {
	keys := make([]string, 0, len(o.deletes))
	for k := range o.deletes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := o.db.Delete([]byte(k)); err != nil {
			return err
		}
	}

	keys = keys[:0]
	for k := range o.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := o.db.Put([]byte(k), o.writes[k]); err != nil {
			return err
		}
	}
	o.reset()
	return nil
}

// Discard drops every staged change.
func (o *Overlay) Discard() {
	o.reset()
}

func (o *Overlay) reset() {
	o.writes = make(map[string][]byte)
	o.deletes = make(map[string]struct{})
}
