package repositories

import (
	"context"

	"github.com/blugelabs/bluge"

	"chat-relay/domain"
)

// indexMessage feeds one message into the Bluge index. The content field
// is analyzed for matching; the pre-formatted line is stored so search
// results render without a second Badger read.
func (g *BadgerGateway) indexMessage(msg domain.Message) error {
	line := formatLine(messageRecord{
		SenderName: msg.SenderName,
		Content:    msg.Content,
		At:         msg.At.UnixNano(),
	})

	doc := bluge.NewDocument(msg.ID.String()).
		AddField(bluge.NewTextField("content", msg.Content)).
		AddField(bluge.NewStoredOnlyField("line", []byte(line)))

	return g.index.Update(doc.ID(), doc)
}

// SearchMessages runs a match query over message content and returns the
// stored lines, best matches first.
func (g *BadgerGateway) SearchMessages(terms string, limit int) ([]string, error) {
	reader, err := g.index.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	query := bluge.NewMatchQuery(terms).SetField("content")
	request := bluge.NewTopNSearch(limit, query)

	iter, err := reader.Search(context.Background(), request)
	if err != nil {
		return nil, err
	}

	var lines []string
	for {
		match, err := iter.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "line" {
				lines = append(lines, string(value))
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	return lines, nil
}
