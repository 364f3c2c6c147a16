// Package protocol implements the line-oriented wire protocol.
//
// One command per line, fields separated by '|', credentials joined with
// "::". Parse turns a raw line into a closed set of command values so the
// server can dispatch exhaustively; unknown command names are a distinct
// variant, never a fallthrough.
package protocol

import (
	"fmt"
	"strings"

	"chat-relay/errors"
)

// Command is implemented by every parsed client command.
type Command interface {
	isCommand()
}

type Register struct{ Username, Password string }
type Login struct{ Username, Password string }
type SendPrivate struct{ ToUsername, Content string }
type SendGroup struct{ GroupID, Content string }
type CreateGroup struct{ Name string }
type JoinGroup struct{ GroupID string }
type PrivateHistory struct{ OtherUsername string }
type GroupHistory struct{ GroupID string }
type ListUsers struct{}
type Search struct{ Terms string }
type Logout struct{}

// Unknown carries the unrecognized command name for error reporting.
type Unknown struct{ Name string }

func (Register) isCommand()       {}
func (Login) isCommand()          {}
func (SendPrivate) isCommand()    {}
func (SendGroup) isCommand()      {}
func (CreateGroup) isCommand()    {}
func (JoinGroup) isCommand()      {}
func (PrivateHistory) isCommand() {}
func (GroupHistory) isCommand()   {}
func (ListUsers) isCommand()      {}
func (Search) isCommand()         {}
func (Logout) isCommand()         {}
func (Unknown) isCommand()        {}

const (
	toPrefix    = "TO::"
	groupPrefix = "GROUP::"
)

// Parse converts one input line into a Command.
// It returns ErrMalformedCommand when a known command misses required
// fields; an unknown command name parses successfully into Unknown.
func Parse(line string) (Command, error) {
	parts := strings.SplitN(line, "|", 3)
	name := parts[0]

	arg := ""
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch name {
	case "REGISTER", "LOGIN":
		creds := strings.SplitN(arg, "::", 2)
		if len(creds) != 2 || creds[0] == "" || creds[1] == "" {
			return nil, fmt.Errorf("%w: %s needs username::password", errors.ErrMalformedCommand, name)
		}
		if name == "REGISTER" {
			return Register{Username: creds[0], Password: creds[1]}, nil
		}
		return Login{Username: creds[0], Password: creds[1]}, nil

	case "MSG":
		content := ""
		if len(parts) > 2 {
			content = parts[2]
		}
		switch {
		case strings.HasPrefix(arg, toPrefix):
			to := strings.TrimPrefix(arg, toPrefix)
			if to == "" {
				return nil, fmt.Errorf("%w: MSG needs a target username", errors.ErrMalformedCommand)
			}
			return SendPrivate{ToUsername: to, Content: content}, nil
		case strings.HasPrefix(arg, groupPrefix):
			gid := strings.TrimPrefix(arg, groupPrefix)
			if gid == "" {
				return nil, fmt.Errorf("%w: MSG needs a target group", errors.ErrMalformedCommand)
			}
			return SendGroup{GroupID: gid, Content: content}, nil
		default:
			return nil, fmt.Errorf("%w: MSG target must be TO:: or GROUP::", errors.ErrMalformedCommand)
		}

	case "CREATE_GROUP":
		if arg == "" {
			return nil, fmt.Errorf("%w: CREATE_GROUP needs a name", errors.ErrMalformedCommand)
		}
		return CreateGroup{Name: arg}, nil

	case "JOIN_GROUP":
		if arg == "" {
			return nil, fmt.Errorf("%w: JOIN_GROUP needs a group id", errors.ErrMalformedCommand)
		}
		return JoinGroup{GroupID: arg}, nil

	case "HISTORY_PRIVATE":
		if arg == "" {
			return nil, fmt.Errorf("%w: HISTORY_PRIVATE needs a username", errors.ErrMalformedCommand)
		}
		return PrivateHistory{OtherUsername: arg}, nil

	case "HISTORY_GROUP":
		if arg == "" {
			return nil, fmt.Errorf("%w: HISTORY_GROUP needs a group id", errors.ErrMalformedCommand)
		}
		return GroupHistory{GroupID: arg}, nil

	case "GET_USERS":
		return ListUsers{}, nil

	case "SEARCH":
		if strings.TrimSpace(arg) == "" {
			return nil, fmt.Errorf("%w: SEARCH needs terms", errors.ErrMalformedCommand)
		}
		return Search{Terms: arg}, nil

	case "LOGOUT":
		return Logout{}, nil

	default:
		return Unknown{Name: name}, nil
	}
}
