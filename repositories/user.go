package repositories

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"chat-relay/auth"
	"chat-relay/codec"
	"chat-relay/errors"
)

const userPrefix = "user:"

type userRecord struct {
	ID           string `cbor:"id"`
	Username     string `cbor:"username"`
	PasswordHash string `cbor:"password_hash"`
	CreatedAt    int64  `cbor:"created_at"`
}

func userKey(username string) []byte {
	return []byte(userPrefix + username)
}

// Register hashes the password and persists the account. The username is
// the key, so uniqueness is a single-transaction existence check.
func (g *BadgerGateway) Register(username, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing failed: %w", err)
	}

	rec := userRecord{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().Unix(),
	}
	data, err := codec.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	return g.db.Update(func(txn *badger.Txn) error {
		key := userKey(username)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrUserAlreadyExists
		}
		return txn.Set(key, data)
	})
}

// Authenticate returns the durable user ID on success. Unknown user and
// wrong password both map to ErrInvalidCredentials to prevent enumeration.
func (g *BadgerGateway) Authenticate(username, password string) (string, error) {
	rec, err := g.getUser(username)
	if err != nil {
		return "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, rec.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}
	return rec.ID, nil
}

// UserIDByUsername resolves a username against durable storage regardless
// of presence.
func (g *BadgerGateway) UserIDByUsername(username string) (string, error) {
	rec, err := g.getUser(username)
	if err != nil {
		return "", errors.ErrUserNotFound
	}
	return rec.ID, nil
}

// AllUsernames returns the durable roster. Usernames are recovered from
// the keys alone, no value prefetch needed.
func (g *BadgerGateway) AllUsernames() ([]string, error) {
	var names []string
	err := g.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(userPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			names = append(names, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (g *BadgerGateway) getUser(username string) (userRecord, error) {
	var rec userRecord
	err := g.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return codec.Unmarshal(val, &rec)
		})
	})
	return rec, err
}
