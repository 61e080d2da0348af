// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// sessionKeyPrefix namespaces session rows within a BadgerDB instance that
// may also be used for other purposes by the caller.
const sessionKeyPrefix = "auth_session:"

// BadgerSessionStore is a SessionStore backed by an embedded BadgerDB,
// for deployments configured to keep sessions alive across a restart.
type BadgerSessionStore struct {
	db *badger.DB
}

// NewBadgerSessionStore wraps an already-open BadgerDB handle.
func NewBadgerSessionStore(db *badger.DB) *BadgerSessionStore {
	return &BadgerSessionStore{db: db}
}

func sessionKey(token string) []byte {
	return []byte(sessionKeyPrefix + token)
}

func (b *BadgerSessionStore) Create(ctx context.Context, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(s.Token), data)
	})
}

func (b *BadgerSessionStore) Get(ctx context.Context, token string) (Session, error) {
	var s Session
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(token))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &s)
		})
	})
	if err != nil {
		return Session{}, err
	}
	if s.isExpired(time.Now().UnixMilli()) {
		return s, ErrSessionExpired
	}
	return s, nil
}

func (b *BadgerSessionStore) Touch(ctx context.Context, token string, nowMs, newExpiryMs int64) error {
	s, err := b.Get(ctx, token)
	if err != nil && !errors.Is(err, ErrSessionExpired) {
		return err
	}
	s.Token = token
	s.LastUsedEpochMs = nowMs
	s.ExpiresAtEpochMs = newExpiryMs
	return b.Create(ctx, s)
}

func (b *BadgerSessionStore) Delete(ctx context.Context, token string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(sessionKey(token))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

func (b *BadgerSessionStore) DeleteAll(ctx context.Context) error {
	return b.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(sessionKeyPrefix)
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BadgerSessionStore) CleanupExpired(ctx context.Context, nowMs int64) (int, error) {
	var expired []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(sessionKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var s Session
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &s)
			}); err != nil {
				return err
			}
			if s.isExpired(nowMs) {
				expired = append(expired, s.Token)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, token := range expired {
		if err := b.Delete(ctx, token); err != nil {
			return 0, err
		}
	}
	return len(expired), nil
}
