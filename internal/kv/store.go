// Package kv is the embedded key-value store: the forbidden-word set used by
// signup validation and the refresh tokens issued to each user.
package kv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/vedran77/agora/internal/config"
)

const (
	forbiddenPrefix = "forbidden:"
	refreshPrefix   = "refresh:"
)

var ErrEmptyWord = errors.New("forbidden word must not be empty")

type Store struct {
	db *badger.DB
}

func Open(cfg config.KVConfig) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path).WithLogger(nil)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening kv store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ForbiddenWords returns the stored words in lexical order.
func (s *Store) ForbiddenWords(ctx context.Context) ([]string, error) {
	var words []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(forbiddenPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			words = append(words, strings.TrimPrefix(string(it.Item().Key()), forbiddenPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading forbidden words: %w", err)
	}
	sort.Strings(words)
	return words, nil
}

// AddForbiddenWord stores word lower-cased; adding an existing word is a no-op.
func (s *Store) AddForbiddenWord(_ context.Context, word string) error {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return ErrEmptyWord
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(forbiddenPrefix+word), nil)
	})
}

func (s *Store) RemoveForbiddenWord(_ context.Context, word string) error {
	word = strings.ToLower(strings.TrimSpace(word))
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(forbiddenPrefix + word))
	})
}

// SaveRefreshToken replaces the user's refresh token; it expires after ttl.
func (s *Store) SaveRefreshToken(_ context.Context, userID int64, token string, ttl time.Duration) error {
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(refreshKey(userID), []byte(token)).WithTTL(ttl)
		return txn.SetEntry(e)
	})
}

// RefreshToken returns "" when the user has no live refresh token.
func (s *Store) RefreshToken(_ context.Context, userID int64) (string, error) {
	var token string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(refreshKey(userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			token = string(val)
			return nil
		})
	})
	if err != nil {
		return "", fmt.Errorf("reading refresh token: %w", err)
	}
	return token, nil
}

func (s *Store) DeleteRefreshToken(_ context.Context, userID int64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(refreshKey(userID))
	})
}

func refreshKey(userID int64) []byte {
	return []byte(refreshPrefix + strconv.FormatInt(userID, 10))
}
