// badger_inspect dumps message records from a chat-relay Badger store in
// a readable table, for debugging a live or post-mortem database. Open is
// read-only with the lock guard bypassed so a running server is not
// disturbed.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/olekukonko/tablewriter"
)

type messageRecord struct {
	ID          string  `cbor:"id"`
	SenderID    string  `cbor:"sender_id"`
	SenderName  string  `cbor:"sender_name"`
	RecipientID *string `cbor:"recipient_id,omitempty"`
	GroupID     *string `cbor:"group_id,omitempty"`
	Content     string  `cbor:"content"`
	At          int64   `cbor:"at"`
}

func main() {
	dbPath := flag.String("db", "/tmp/chat-relay/badger", "Path to badger DB")
	// Private messages by default; pass -prefix gm: for group logs.
	prefix := flag.String("prefix", "pm:", "Prefix to scan")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Timestamp", "Sender", "Target", "Content"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()

			err := item.Value(func(v []byte) error {
				var rec messageRecord
				if err := cbor.Unmarshal(v, &rec); err != nil {
					// Log and keep scanning instead of aborting the dump.
					fmt.Printf("Error unmarshaling key %s: %v\n", string(item.Key()), err)
					return nil
				}

				kind := "PRIVATE"
				target := ""
				switch {
				case rec.GroupID != nil:
					kind = "GROUP"
					target = shortID(*rec.GroupID)
				case rec.RecipientID != nil:
					target = shortID(*rec.RecipientID)
				}

				table.Append([]string{
					string(item.Key()),
					kind,
					time.Unix(0, rec.At).UTC().Format("15:04:05"),
					rec.SenderName,
					target,
					rec.Content,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

// shortID keeps the first 8 characters of a UUID for readability.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	db, err := badger.Open(opts)
	if err != nil {
		// A crashed server can leave the value log needing a truncate;
		// open once in write mode to repair, then reopen read-only.
		if strings.Contains(err.Error(), "Log truncate required") {
			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)

			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}

			db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
