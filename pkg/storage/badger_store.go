package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/freellmstxt/llmstxt/pkg/log"
	"github.com/freellmstxt/llmstxt/pkg/models"
	"github.com/freellmstxt/llmstxt/pkg/utils"
)

const resultKeyPrefix = "result:" // Prefix for crawl result keys in DB

// BadgerStore implements ResultStore using BadgerDB. Values are JSON-encoded CrawlResults
// written as TTL entries, so expiry is handled by Badger itself.
type BadgerStore struct {
	db       *badger.DB
	log      *logrus.Entry
	keyCount atomic.Int64
}

// NewBadgerStore opens (or creates) the result cache in dir
func NewBadgerStore(dir string, logger *logrus.Entry) (*BadgerStore, error) {
	store := &BadgerStore{log: logger.WithField("component", "cache")}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: cannot create cache directory %s: %w", utils.ErrFilesystem, dir, err)
	}

	badgerLogger := log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))
	opts := badger.DefaultOptions(dir).
		WithLogger(badgerLogger).
		WithNumVersionsToKeep(1)

	var err error
	store.db, err = badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open badger database at %s: %w", utils.ErrDatabase, dir, err)
	}

	count, err := store.countKeys()
	if err != nil {
		store.log.Warnf("Failed to count existing cache entries: %v", err)
	} else {
		store.keyCount.Store(int64(count))
	}

	store.log.Infof("Result cache opened at %s (%d entries)", dir, count)
	return store, nil
}

// countKeys performs a one-time key scan on open
func (s *BadgerStore) countKeys() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(resultKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts.
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// GetResult implements ResultStore
func (s *BadgerStore) GetResult(key string) (*models.CrawlResult, error) {
	dbKey := []byte(resultKeyPrefix + key)
	var result *models.CrawlResult

	err := s.db.View(func(txn *badger.Txn) error {
		item, errGet := txn.Get(dbKey)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", utils.ErrCacheMiss, key)
		}
		if errGet != nil {
			return fmt.Errorf("%w: failed getting key '%s': %w", utils.ErrDatabase, key, errGet)
		}
		return item.Value(func(val []byte) error {
			var decoded models.CrawlResult
			if errJSON := json.Unmarshal(val, &decoded); errJSON != nil {
				s.log.Warnf("Failed to unmarshal cached result '%s': %v. Treating as a miss.", key, errJSON)
				return fmt.Errorf("%w: undecodable entry %s", utils.ErrCacheMiss, key)
			}
			result = &decoded
			return nil
		})
	})
	if err != nil {
		if !errors.Is(err, utils.ErrCacheMiss) {
			s.log.Errorf("DB View error in GetResult for key '%s': %v", key, err)
		}
		return nil, err
	}
	s.log.Debugf("Cache hit for '%s' (%s)", result.RootURL, key)
	return result, nil
}

// PutResult implements ResultStore
func (s *BadgerStore) PutResult(key string, result *models.CrawlResult, ttl time.Duration) error {
	if s.db == nil {
		return fmt.Errorf("%w: cache not initialized", utils.ErrDatabase)
	}
	dbKey := []byte(resultKeyPrefix + key)

	data, errJSON := json.Marshal(result)
	if errJSON != nil {
		return fmt.Errorf("%w: failed to marshal crawl result for key '%s': %w", utils.ErrParsing, key, errJSON)
	}

	isNew := false
	err := s.dbUpdate(func(txn *badger.Txn) error {
		_, errGet := txn.Get(dbKey)
		isNew = errors.Is(errGet, badger.ErrKeyNotFound)
		e := badger.NewEntry(dbKey, data)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		s.log.WithField("key", key).Errorf("DB Update error in PutResult: %v", err)
		return fmt.Errorf("%w: failed storing result for key '%s': %w", utils.ErrDatabase, key, err)
	}
	if isNew {
		s.keyCount.Add(1)
	}
	s.log.Debugf("Cached result for '%s' (ttl %v)", result.RootURL, ttl)
	return nil
}

// DeleteResult implements ResultStore
func (s *BadgerStore) DeleteResult(key string) error {
	dbKey := []byte(resultKeyPrefix + key)
	existed := false
	err := s.dbUpdate(func(txn *badger.Txn) error {
		_, errGet := txn.Get(dbKey)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return nil
		}
		existed = true
		return txn.Delete(dbKey)
	})
	if err != nil {
		return fmt.Errorf("%w: failed deleting key '%s': %w", utils.ErrDatabase, key, err)
	}
	if existed {
		s.keyCount.Add(-1)
	}
	return nil
}

// Count implements ResultStore. Expired entries stay counted until the store is reopened.
func (s *BadgerStore) Count() int64 {
	return s.keyCount.Load()
}

// RunGC runs BadgerDB's value log garbage collection periodically
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("BadgerDB GC goroutine started.")

	for {
		select {
		case <-ticker.C:
			if s.db == nil || s.db.IsClosed() {
				s.log.Info("DB GC: Database is nil or closed, skipping GC cycle.")
				continue
			}

			var err error
			for {
				// Rewrite only when at least half the file is reclaimable
				err = s.db.RunValueLogGC(0.5)
				if err != nil {
					break
				}
			}

			if errors.Is(err, badger.ErrNoRewrite) {
				s.log.Debug("BadgerDB GC finished (no rewrite needed).")
			} else {
				s.log.Errorf("BadgerDB GC error: %v", err)
			}

		case <-ctx.Done():
			s.log.Infof("Stopping BadgerDB garbage collection goroutine: %v", ctx.Err())
			return
		}
	}
}

// Close implements ResultStore
func (s *BadgerStore) Close() error {
	if s.db != nil && !s.db.IsClosed() {
		if err := s.db.Close(); err != nil {
			s.log.Errorf("Error closing result cache: %v", err)
			return err
		}
		s.log.Info("Result cache closed.")
	}
	return nil
}
