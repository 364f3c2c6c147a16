package repositories

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"chat-relay/codec"
	"chat-relay/domain"
)

type messageRecord struct {
	ID          string  `cbor:"id"`
	SenderID    string  `cbor:"sender_id"`
	SenderName  string  `cbor:"sender_name"`
	RecipientID *string `cbor:"recipient_id,omitempty"`
	GroupID     *string `cbor:"group_id,omitempty"`
	Content     string  `cbor:"content"`
	At          int64   `cbor:"at"` // UnixNano
}

// pairKey orders two user IDs canonically so both directions of a
// conversation land under the same prefix. A nil recipient collapses to
// the empty ID: the message is still logged, just not addressable by any
// history query, which matches a send to a nonexistent account.
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("pm:%s:%s:", a, b)
}

func groupKey(groupID string) string {
	return fmt.Sprintf("gm:%s:", groupID)
}

// SaveMessage durably logs one message and feeds the search index.
// Indexing is best-effort: an index failure is logged and the durable
// write stands.
func (g *BadgerGateway) SaveMessage(msg domain.Message) error {
	rec := messageRecord{
		ID:          msg.ID.String(),
		SenderID:    msg.SenderID,
		SenderName:  msg.SenderName,
		RecipientID: msg.RecipientID,
		GroupID:     msg.GroupID,
		Content:     msg.Content,
		At:          msg.At.UnixNano(),
	}

	var prefix string
	if msg.GroupID != nil {
		prefix = groupKey(*msg.GroupID)
	} else {
		recipient := ""
		if msg.RecipientID != nil {
			recipient = *msg.RecipientID
		}
		prefix = pairKey(msg.SenderID, recipient)
	}
	key := fmt.Sprintf("%s%019d:%s", prefix, msg.At.UnixNano(), msg.ID)

	data, err := codec.Marshal(rec)
	if err != nil {
		return err
	}
	err = g.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return err
	}

	if indexErr := g.indexMessage(msg); indexErr != nil {
		g.log.Warn("message indexing failed", "id", msg.ID, "err", indexErr)
	}
	return nil
}

// PrivateHistory returns the conversation between two user IDs, oldest
// first. The padded timestamp in the key makes the natural iteration
// order chronological.
func (g *BadgerGateway) PrivateHistory(userA, userB string, limit int) ([]string, error) {
	return g.historyScan(pairKey(userA, userB), limit)
}

// GroupHistory returns a group's log, oldest first.
func (g *BadgerGateway) GroupHistory(groupID string, limit int) ([]string, error) {
	return g.historyScan(groupKey(groupID), limit)
}

func (g *BadgerGateway) historyScan(prefixStr string, limit int) ([]string, error) {
	var lines []string
	err := g.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixStr)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(lines) == limit {
				g.log.Debug(fmt.Sprintf("history capped at %d lines", limit))
				break
			}
			err := it.Item().Value(func(val []byte) error {
				var rec messageRecord
				if err := codec.Unmarshal(val, &rec); err != nil {
					return err
				}
				lines = append(lines, formatLine(rec))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func formatLine(rec messageRecord) string {
	at := time.Unix(0, rec.At).UTC()
	return fmt.Sprintf("[%s] %s: %s", at.Format("2006-01-02 15:04:05"), rec.SenderName, rec.Content)
}
