// Package store persists the system's learned models and composite
// states as id->record entries (spec.md §6) across process restarts,
// using the embedded ordered key-value store the rest of the retrieval
// pack reaches for when it needs exactly this shape of problem.
//
// Grounded on duynguyendang-gca's pkg/meb (badger.Txn/WriteBatch usage)
// and wbrown-janus-datalog's badger-backed EDB persistence; encoding
// follows the pack's near-universal goccy/go-json in place of
// encoding/json.
package store

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/gitrdm/causalkernel/internal/logging"
	"github.com/gitrdm/causalkernel/pkg/kernel"
)

const (
	prefixModel byte = 'm'
	prefixCst   byte = 'c'
)

// Store wraps a badger database holding the model and composite-state
// tables. The zero value is not usable; construct with Open.
type Store struct {
	db *badger.DB
}

// Open opens (creating if absent) a badger database at path. An empty
// path opens an in-memory database, used by tests and by cmd/kernel
// when run without --persist.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(badgerLogger{})
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func modelKey(id string) []byte { return append([]byte{prefixModel, ':'}, id...) }
func cstKey(id string) []byte   { return append([]byte{prefixCst, ':'}, id...) }

// SaveModels writes every model in models, replacing any record with
// the same id.
func (s *Store) SaveModels(models map[string]*kernel.Mdl) error {
	batch := s.db.NewWriteBatch()
	defer batch.Cancel()
	for id, m := range models {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		if err := batch.Set(modelKey(id), data); err != nil {
			return err
		}
	}
	return batch.Flush()
}

// LoadModels reads every persisted model record.
func (s *Store) LoadModels() (map[string]*kernel.Mdl, error) {
	out := make(map[string]*kernel.Mdl)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := []byte{prefixModel, ':'}
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var m kernel.Mdl
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &m) }); err != nil {
				return err
			}
			out[m.ID] = &m
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SaveCsts writes every composite state in csts, replacing any record
// with the same id.
func (s *Store) SaveCsts(csts map[string]*kernel.Cst) error {
	batch := s.db.NewWriteBatch()
	defer batch.Cancel()
	for id, c := range csts {
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		if err := batch.Set(cstKey(id), data); err != nil {
			return err
		}
	}
	return batch.Flush()
}

// LoadCsts reads every persisted composite-state record.
func (s *Store) LoadCsts() (map[string]*kernel.Cst, error) {
	out := make(map[string]*kernel.Cst)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := []byte{prefixCst, ':'}
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var c kernel.Cst
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &c) }); err != nil {
				return err
			}
			out[c.ID] = &c
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// badgerLogger routes badger's internal logging through this module's
// process-wide logger instead of badger's own stderr default.
type badgerLogger struct{}

func (badgerLogger) Errorf(f string, args ...any)   { logging.L().Error("badger: " + fmt.Sprintf(f, args...)) }
func (badgerLogger) Warningf(f string, args ...any) { logging.L().Warn("badger: " + fmt.Sprintf(f, args...)) }
func (badgerLogger) Infof(f string, args ...any)    { logging.L().Info("badger: " + fmt.Sprintf(f, args...)) }
func (badgerLogger) Debugf(f string, args ...any)   { logging.L().Debug("badger: " + fmt.Sprintf(f, args...)) }
