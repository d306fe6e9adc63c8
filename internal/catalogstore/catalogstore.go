// Package catalogstore persists the last successfully validated catalog
// document to a local BadgerDB so a cold start (or a Refresher poll that
// finds the remote catalog source unreachable) can fall back to the last
// known-good schema instead of failing to boot, grounded on the teacher's
// pkg/storage.BadgerEngine (SPEC_FULL.md §3 domain stack).
package catalogstore

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/cyphergraph/cyphergraph/internal/catalog"
)

var keySnapshot = []byte("catalog:snapshot")

// Store wraps a BadgerDB holding exactly one entry: the raw bytes of the
// last catalog document that passed catalog.LoadFromBytes, so Load can
// re-validate and re-derive a *catalog.GraphSchema the same way a normal
// boot would rather than deserializing the GraphSchema's own (interface-
// valued, not directly JSON-round-trippable) struct graph.
type Store struct {
	db *badger.DB
}

// Options configures the BadgerDB instance backing a Store, mirroring the
// shape of the teacher's storage.BadgerOptions.
type Options struct {
	// DataDir is the directory BadgerDB stores its files under. Required
	// unless InMemory is set.
	DataDir string
	// InMemory runs BadgerDB in memory-only mode, useful for tests.
	InMemory bool
}

// Open opens (creating if absent) the BadgerDB backing a Store.
func Open(opts Options) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir)
	badgerOpts = badgerOpts.WithInMemory(opts.InMemory)
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("catalogstore: opening badger at %q: %w", opts.DataDir, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying BadgerDB handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists raw as the last known-good catalog document. Called only
// after catalog.LoadFromBytes(raw, ...) has already succeeded.
func (s *Store) Save(raw []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keySnapshot, raw)
	})
}

// Load returns the last snapshot saved with Save, or (nil, false, nil) if
// none has been saved yet.
func (s *Store) Load() (raw []byte, ok bool, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, getErr := txn.Get(keySnapshot)
		if getErr == badger.ErrKeyNotFound {
			return nil
		}
		if getErr != nil {
			return getErr
		}
		raw, getErr = item.ValueCopy(nil)
		return getErr
	})
	if err != nil {
		return nil, false, fmt.Errorf("catalogstore: reading snapshot: %w", err)
	}
	return raw, raw != nil, nil
}

// LoadSchema reads the last snapshot and re-validates it into a
// *catalog.GraphSchema, the fallback path a cold start or a failed refresh
// takes instead of failing outright.
func (s *Store) LoadSchema(ctx context.Context, lister catalog.ColumnLister, probe catalog.EngineProbe) (*catalog.GraphSchema, error) {
	raw, ok, err := s.Load()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("catalogstore: no prior catalog snapshot available")
	}
	result, err := catalog.LoadFromBytes(ctx, raw, lister, probe)
	if err != nil {
		return nil, fmt.Errorf("catalogstore: re-validating last-good snapshot: %w", err)
	}
	return result.Schema, nil
}
