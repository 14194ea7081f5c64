// Package store persists the reconciled ledger and learning state in a
// local BoltDB file. Everything is JSON-encoded so the file can be
// inspected with standard tooling. Persistence is a snapshot of state the
// pipeline can always rebuild its derived data from.
package store

import (
	"encoding/json"
	"fmt"

	"github.com/boltdb/bolt"

	"github.com/finsight-dev/finsight/internal/ledger"
	"github.com/finsight-dev/finsight/internal/model"
	"github.com/finsight-dev/finsight/internal/rules"
)

var (
	bucketLedger   = []byte("ledger")
	bucketAccounts = []byte("accounts")
	bucketRules    = []byte("rules")

	// Rules are stored as one ordered snapshot; rule append order is part of
	// the store's semantics and per-key iteration would lose it.
	keyRulesState = []byte("state")
)

// Store wraps an open BoltDB handle.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the database file and ensures all buckets exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketLedger, bucketAccounts, bucketRules} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveLedger writes every transaction and account. Records are keyed by ID,
// so re-saving an unchanged ledger is a no-op at the data level.
func (s *Store) SaveLedger(led *ledger.Ledger) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		lb := tx.Bucket(bucketLedger)
		for _, txn := range led.Transactions() {
			data, err := json.Marshal(txn)
			if err != nil {
				return fmt.Errorf("encoding transaction %s: %w", txn.ID, err)
			}
			if err := lb.Put([]byte(txn.ID), data); err != nil {
				return fmt.Errorf("writing transaction %s: %w", txn.ID, err)
			}
		}
		ab := tx.Bucket(bucketAccounts)
		for _, acct := range led.Accounts() {
			data, err := json.Marshal(acct)
			if err != nil {
				return fmt.Errorf("encoding account %s: %w", acct.ID, err)
			}
			if err := ab.Put([]byte(acct.ID), data); err != nil {
				return fmt.Errorf("writing account %s: %w", acct.ID, err)
			}
		}
		return nil
	})
}

// LoadLedger rebuilds the ledger from disk. A fresh database yields an
// empty ledger, not an error.
func (s *Store) LoadLedger() (*ledger.Ledger, error) {
	var (
		txns     []model.Transaction
		accounts []model.Account
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		if err := forEachJSON(tx.Bucket(bucketLedger), func() any { return &model.Transaction{} }, func(v any) {
			txns = append(txns, *v.(*model.Transaction))
		}); err != nil {
			return fmt.Errorf("reading ledger: %w", err)
		}
		if err := forEachJSON(tx.Bucket(bucketAccounts), func() any { return &model.Account{} }, func(v any) {
			accounts = append(accounts, *v.(*model.Account))
		}); err != nil {
			return fmt.Errorf("reading accounts: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ledger.FromSnapshot(txns, accounts), nil
}

// SaveRules writes the full learning state, rule order included.
func (s *Store) SaveRules(snapshot rules.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encoding rules: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRules).Put(keyRulesState, data)
	})
}

// LoadRules rebuilds the rule store from disk. A fresh database yields an
// empty store.
func (s *Store) LoadRules() (*rules.Store, error) {
	var snapshot rules.Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketRules).Get(keyRulesState)
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &snapshot); err != nil {
			return fmt.Errorf("decoding rules: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rules.FromSnapshot(snapshot), nil
}

func forEachJSON(b *bolt.Bucket, alloc func() any, collect func(any)) error {
	return b.ForEach(func(k, v []byte) error {
		out := alloc()
		if err := json.Unmarshal(v, out); err != nil {
			return fmt.Errorf("decoding %s: %w", k, err)
		}
		collect(out)
		return nil
	})
}
