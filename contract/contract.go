//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
)

// Gateway is the persistence boundary of the routing core. Every call is a
// self-contained operation safe for concurrent use; the core never
// coordinates transactions across calls.
type Gateway interface {
	// Authenticate verifies credentials and returns the durable user ID.
	// Returns errors.ErrInvalidCredentials on any mismatch, without
	// distinguishing unknown user from wrong password.
	Authenticate(username, password string) (string, error)

	// Register creates a new account. Returns errors.ErrUserAlreadyExists
	// when the username is taken.
	Register(username, password string) error

	// UserIDByUsername resolves a username against durable storage,
	// independent of presence. Returns errors.ErrUserNotFound when no
	// account exists.
	UserIDByUsername(username string) (string, error)

	// SaveMessage durably logs one message. Exactly one of RecipientID and
	// GroupID may be set; both nil is valid for a private message whose
	// target account does not exist.
	SaveMessage(msg domain.Message) error

	// PrivateHistory returns formatted lines of the conversation between
	// two user IDs, oldest first, capped at limit.
	PrivateHistory(userA, userB string, limit int) ([]string, error)

	// GroupHistory returns formatted lines of a group's log, oldest first.
	GroupHistory(groupID string, limit int) ([]string, error)

	// AllUsernames returns every registered username, the durable roster.
	AllUsernames() ([]string, error)

	// CreateGroup creates a group and returns its ID. The owner is not a
	// member until AddMember is called.
	CreateGroup(name, ownerID string) (string, error)

	// AddMember adds a user to a group's member set. Idempotent.
	AddMember(userID, groupID string) error

	// GroupMemberIDs returns the durable member set of a group.
	// Returns errors.ErrGroupNotFound for an unknown group.
	GroupMemberIDs(groupID string) (map[string]struct{}, error)

	// SearchMessages runs a full-text query over logged messages and
	// returns formatted lines, best matches first.
	SearchMessages(terms string, limit int) ([]string, error)
}
