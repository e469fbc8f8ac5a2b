// Package wallet persists the user's tokens in a local key-value store.
// Transfer packages in flight remain plain files; the store only holds
// tokens the user owns or tracks.
package wallet

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"AmberVault/internal/protocol"
	"AmberVault/internal/token"
)

// tokenPrefix namespaces token records in the store.
var tokenPrefix = []byte("token/")

// Store is a pebble-backed token store. A short-lived CLI process opens
// it, reads or writes a handful of records and closes it again, so every
// write is synced immediately.
type Store struct {
	db *pebble.DB // db is the underlying Pebble database
}

// Open opens (or creates) the store at the given path.
func Open(path string) (*Store, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(8 << 20), // 8 MB cache
		MemTableSize: 4 << 20,                  // 4 MB memtable
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open wallet store:\n%w", err)
	}

	return &Store{db: db}, nil
}

// Put stores a token, replacing any previous record with the same ID.
func (s *Store) Put(t *token.Token) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal token:\n%w", err)
	}

	if err := s.db.Set(tokenKey(t.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("store token %s:\n%w", t.ID.Short(), err)
	}

	return nil
}

// Get retrieves a token by ID. Returns nil if the token is not stored.
func (s *Store) Get(id protocol.Hash) (*token.Token, error) {
	value, closer, err := s.db.Get(tokenKey(id))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token %s:\n%w", id.Short(), err)
	}
	defer closer.Close()

	var t token.Token
	if err := json.Unmarshal(value, &t); err != nil {
		return nil, fmt.Errorf("parse stored token %s:\n%w", id.Short(), err)
	}

	return &t, nil
}

// Delete removes a token record.
func (s *Store) Delete(id protocol.Hash) error {
	if err := s.db.Delete(tokenKey(id), pebble.Sync); err != nil {
		return fmt.Errorf("delete token %s:\n%w", id.Short(), err)
	}

	return nil
}

// List returns all stored tokens in key order.
func (s *Store) List() ([]*token.Token, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: tokenPrefix,
		UpperBound: prefixUpperBound(tokenPrefix),
	})
	if err != nil {
		return nil, fmt.Errorf("iterate tokens:\n%w", err)
	}
	defer iter.Close()

	var tokens []*token.Token

	for iter.First(); iter.Valid(); iter.Next() {
		value, err := iter.ValueAndErr()
		if err != nil {
			return nil, fmt.Errorf("read token record:\n%w", err)
		}

		var t token.Token
		if err := json.Unmarshal(value, &t); err != nil {
			return nil, fmt.Errorf("parse token record %q:\n%w", iter.Key(), err)
		}

		tokens = append(tokens, &t)
	}

	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate tokens:\n%w", err)
	}

	return tokens, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// tokenKey builds the store key for a token ID.
func tokenKey(id protocol.Hash) []byte {
	key := make([]byte, 0, len(tokenPrefix)+len(id))
	key = append(key, tokenPrefix...)
	key = append(key, id[:]...)

	return key
}

// prefixUpperBound computes the exclusive upper bound for a prefix scan.
// Increments the last byte; returns nil if prefix is all 0xFF (full range).
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)

	for i := len(upper) - 1; i >= 0; i-- {
		upper[i]++
		if upper[i] != 0 {
			return upper
		}
	}

	return nil
}
