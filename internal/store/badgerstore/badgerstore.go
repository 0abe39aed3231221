// Package badgerstore provides a BadgerDB-backed record store.
//
// Key layout:
//
//	rec/<hash>   canonical JSON of the record body (kind, parent, predecessors, payload)
//	head/<name>  head hash of a named replica
//
// Records are written once; a Save whose key already exists is a no-op.
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/roach88/chronotree/internal/ir"
)

const (
	recordPrefix = "rec/"
	headPrefix   = "head/"
)

// Config holds configuration for a BadgerDB-backed store.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal log output. Nil disables it.
	Logger *slog.Logger
}

// DefaultConfig returns production defaults for a store at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		SyncWrites: true,
	}
}

// InMemoryConfig returns configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Store is a record store backed by BadgerDB. Safe for concurrent use.
type Store struct {
	db *badger.DB
}

// Open opens a store with the given configuration, creating the directory
// if needed.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// recordBody is the value stored under rec/<hash>.
type recordBody struct {
	Kind         ir.Kind         `json:"kind"`
	Parent       ir.Hash         `json:"parent"`
	Predecessors []ir.Hash       `json:"predecessors"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

// Save stores rec under its content hash.
func (s *Store) Save(ctx context.Context, rec ir.Record) (ir.Hash, error) {
	if err := ctx.Err(); err != nil {
		return ir.NoHash, err
	}
	h, err := ir.RecordHash(rec)
	if err != nil {
		return ir.NoHash, fmt.Errorf("save record: %w", err)
	}

	body := map[string]any{
		"kind":         string(rec.Kind),
		"parent":       string(rec.Parent),
		"predecessors": rec.Predecessors,
	}
	if rec.Payload != nil {
		body["payload"] = rec.Payload
	}
	data, err := ir.MarshalCanonical(body)
	if err != nil {
		return ir.NoHash, fmt.Errorf("save record: %w", err)
	}

	key := []byte(recordPrefix + string(h))
	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return ir.NoHash, fmt.Errorf("save record: %w", err)
	}
	return h, nil
}

// Load returns the record stored under h.
func (s *Store) Load(ctx context.Context, h ir.Hash) (ir.Record, error) {
	if err := ctx.Err(); err != nil {
		return ir.Record{}, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(recordPrefix + string(h)))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ir.Record{}, fmt.Errorf("load %s: %w", h.Short(), ir.ErrRecordNotFound)
	}
	if err != nil {
		return ir.Record{}, fmt.Errorf("load %s: %w", h.Short(), err)
	}

	var body recordBody
	if err := json.Unmarshal(data, &body); err != nil {
		return ir.Record{}, fmt.Errorf("load %s: decode: %w", h.Short(), err)
	}
	rec := ir.Record{
		Hash:         h,
		Kind:         body.Kind,
		Parent:       body.Parent,
		Predecessors: body.Predecessors,
	}
	if rec.Predecessors == nil {
		rec.Predecessors = []ir.Hash{}
	}
	if len(body.Payload) > 0 {
		v, err := ir.ParseValue(body.Payload)
		if err != nil {
			return ir.Record{}, fmt.Errorf("load %s: payload: %w", h.Short(), err)
		}
		rec.Payload = v
	}
	return rec, nil
}

// Head returns the head recorded for a named replica, or ir.NoHash.
func (s *Store) Head(_ context.Context, name string) (ir.Hash, error) {
	var head ir.Hash
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(headPrefix + name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			head = ir.Hash(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ir.NoHash, nil
	}
	if err != nil {
		return ir.NoHash, fmt.Errorf("get head %q: %w", name, err)
	}
	return head, nil
}

// SetHead records the head of a named replica.
func (s *Store) SetHead(_ context.Context, name string, head ir.Hash) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(headPrefix+name), []byte(head))
	})
	if err != nil {
		return fmt.Errorf("set head %q: %w", name, err)
	}
	return nil
}

// Heads returns every named head.
func (s *Store) Heads(_ context.Context) (map[string]ir.Hash, error) {
	heads := make(map[string]ir.Hash)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(headPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			name := strings.TrimPrefix(string(item.Key()), headPrefix)
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			heads[name] = ir.Hash(val)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list heads: %w", err)
	}
	return heads, nil
}

// Count returns the number of stored records.
func (s *Store) Count(_ context.Context) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(recordPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}
