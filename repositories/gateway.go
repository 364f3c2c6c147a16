// Package repositories implements the persistence gateway on BadgerDB,
// with a Bluge index for full-text message search.
//
// Keyspace:
//
//	user:<username>                    CBOR user record
//	pm:<loID>:<hiID>:<ns>:<uuid>       CBOR message record, canonical pair order
//	gm:<groupID>:<ns>:<uuid>           CBOR message record
//	group:<groupID>                    CBOR group record
//	member:<groupID>:<userID>          empty value, set semantics
//
// Timestamps are zero-padded UnixNano so keys sort chronologically; the
// trailing UUID disambiguates two messages landing on the same nanosecond.
package repositories

import (
	"log/slog"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
)

type BadgerGateway struct {
	db    *badger.DB
	index *bluge.Writer
	log   *slog.Logger
}

func NewBadgerGateway(db *badger.DB, index *bluge.Writer, log *slog.Logger) *BadgerGateway {
	return &BadgerGateway{db: db, index: index, log: log}
}
