package badger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/felixgeelhaar/agent-runtime/domain/checkpoint"
)

// CheckpointStore is a BadgerDB-backed implementation of checkpoint.Store.
type CheckpointStore struct {
	db        *badger.DB
	keyPrefix string
	gcStop    chan struct{}
	gcWg      sync.WaitGroup
	closeOnce sync.Once
}

// NewCheckpointStore opens a database with the given configuration.
func NewCheckpointStore(cfg Config, opts ...Option) (*CheckpointStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &CheckpointStore{
		db:        db,
		keyPrefix: cfg.KeyPrefix,
		gcStop:    make(chan struct{}),
	}

	// In-memory databases have no value log to collect.
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.startGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}

	return s, nil
}

// startGC starts the value log garbage collection goroutine.
func (s *CheckpointStore) startGC(interval time.Duration, discardRatio float64) {
	s.gcWg.Add(1)
	go func() {
		defer s.gcWg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.gcStop:
				return
			case <-ticker.C:
				for s.db.RunValueLogGC(discardRatio) == nil {
				}
			}
		}
	}()
}

// prefixKey adds the key prefix and checkpoint namespace.
func (s *CheckpointStore) prefixKey(key string) []byte {
	return []byte(s.keyPrefix + "checkpoint:" + key)
}

// Put stores value under key.
func (s *CheckpointStore) Put(ctx context.Context, key string, value []byte, opts checkpoint.PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return checkpoint.ErrInvalidKey
	}

	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(s.prefixKey(key), value)
		if opts.TTL > 0 {
			e = e.WithTTL(opts.TTL)
		}
		return txn.SetEntry(e)
	})
}

// Fetch returns the value stored under key.
func (s *CheckpointStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.prefixKey(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, checkpoint.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Delete removes key.
func (s *CheckpointStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.prefixKey(key))
	})
}

// Close stops garbage collection and closes the database.
func (s *CheckpointStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.gcStop)
		s.gcWg.Wait()
		err = s.db.Close()
	})
	return err
}

var (
	_ checkpoint.Store  = (*CheckpointStore)(nil)
	_ checkpoint.Closer = (*CheckpointStore)(nil)
)
