package repositories

import (
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"chat-relay/codec"
	"chat-relay/errors"
)

const (
	groupPrefix  = "group:"
	memberPrefix = "member:"
)

type groupRecord struct {
	ID        string `cbor:"id"`
	Name      string `cbor:"name"`
	OwnerID   string `cbor:"owner_id"`
	CreatedAt int64  `cbor:"created_at"`
}

// CreateGroup persists a new group and returns its ID. Adding the owner
// as a member is the caller's separate call; no atomicity between the two.
func (g *BadgerGateway) CreateGroup(name, ownerID string) (string, error) {
	rec := groupRecord{
		ID:        uuid.New().String(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: time.Now().Unix(),
	}
	data, err := codec.Marshal(rec)
	if err != nil {
		return "", err
	}

	err = g.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(groupPrefix+rec.ID), data)
	})
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// AddMember adds a user to a group's member set. Re-adding is a no-op.
func (g *BadgerGateway) AddMember(userID, groupID string) error {
	return g.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(groupPrefix + groupID)); err != nil {
			return errors.ErrGroupNotFound
		}
		return txn.Set([]byte(memberPrefix+groupID+":"+userID), nil)
	})
}

// GroupMemberIDs returns the durable member set of a group.
func (g *BadgerGateway) GroupMemberIDs(groupID string) (map[string]struct{}, error) {
	members := make(map[string]struct{})
	err := g.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(groupPrefix + groupID)); err != nil {
			return errors.ErrGroupNotFound
		}

		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(memberPrefix + groupID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			members[string(it.Item().Key()[len(prefix):])] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}
