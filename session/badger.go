package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

type badgerRecord struct {
	Login     string `json:"login"`
	CreatedAt int64  `json:"created_at"`
}

// BadgerStore persists credential tokens in BadgerDB so they survive restarts.
//
// Badger transactions are serializable, so Login/Logout commits are visible to every
// later LoginFor.
type BadgerStore struct {
	db     *badger.DB
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// OpenBadger opens a BadgerDB for [BadgerStore]. An empty path opens an in-memory
// database, useful for tests and single-process demos.
func OpenBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for credentials: %w", err)
	}
	return db, nil
}

// NewBadgerStore creates a [BadgerStore] on an open database. The default key prefix is
// "token:". The caller owns db and closes it.
func NewBadgerStore(db *badger.DB, opts ...Option) *BadgerStore {
	o := buildOptions("token:", opts)
	return &BadgerStore{
		db:     db,
		prefix: o.prefix,
		ttl:    o.ttl,
		now:    o.now,
	}
}

func (s *BadgerStore) key(token string) []byte {
	return []byte(s.prefix + token)
}

func (s *BadgerStore) Login(_ context.Context, login string) (string, error) {
	data, err := json.Marshal(badgerRecord{Login: login, CreatedAt: s.now().Unix()})
	if err != nil {
		return "", fmt.Errorf("marshal credential: %w", err)
	}

	for i := 0; i < maxMintAttempts; i++ {
		token := newToken()
		key := s.key(token)

		err := s.db.Update(func(txn *badger.Txn) error {
			if _, err := txn.Get(key); err == nil {
				return ErrTokenCollision
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			entry := badger.NewEntry(key, data)
			if s.ttl > 0 {
				entry = entry.WithTTL(s.ttl)
			}
			return txn.SetEntry(entry)
		})
		if errors.Is(err, ErrTokenCollision) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return token, nil
	}
	return "", ErrTokenCollision
}

func (s *BadgerStore) Logout(_ context.Context, token string) error {
	if token == "" {
		return nil
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.key(token))
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *BadgerStore) LoginFor(_ context.Context, token string) (string, bool, error) {
	if token == "" {
		return "", false, nil
	}

	var rec badgerRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(token))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return rec.Login, true, nil
}
