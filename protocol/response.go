package protocol

import "fmt"

// Server response lines. Constants cover the fixed responses, helpers the
// parameterized ones. Everything here is a complete line without the
// trailing newline; sessions append it on write.
const (
	RegisterOK         = "REGISTER_OK"
	RegisterFail       = "REGISTER_FAIL"
	LoginFail          = "LOGIN_FAIL"
	CreateGroupFail    = "CREATE_GROUP_FAIL"
	JoinGroupFail      = "JOIN_GROUP_FAIL"
	PrivateHistoryEnd  = "HISTORY_PRIVATE_END"
	PrivateHistoryFail = "HISTORY_PRIVATE_FAIL"
	GroupHistoryEnd    = "HISTORY_GROUP_END"
	GroupHistoryFail   = "HISTORY_GROUP_FAIL"
	UserEnd            = "USER_END"
	UserFail           = "USER_FAIL"
	SearchEnd          = "SEARCH_END"
	SearchFail         = "SEARCH_FAIL"

	ErrNotAuthenticated = "ERR|Not authenticated"
	ErrUnknownCommand   = "ERR|Unknown command"
	ErrMalformed        = "ERR|Malformed command"
	ErrServerFull       = "ERR|Server full"
)

func LoginOK(userID, username string) string {
	return fmt.Sprintf("LOGIN_OK|%s|%s", userID, username)
}

func CreateGroupOK(groupID string) string {
	return fmt.Sprintf("CREATE_GROUP_OK|%s", groupID)
}

func JoinGroupOK(groupID string) string {
	return fmt.Sprintf("JOIN_GROUP_OK|%s", groupID)
}

func IncomingPrivate(sender, content string) string {
	return fmt.Sprintf("INCOMING_PRIVATE|%s|%s", sender, content)
}

func IncomingGroup(groupID, sender, content string) string {
	return fmt.Sprintf("INCOMING_GROUP|%s|%s|%s", groupID, sender, content)
}

func UserLine(username string) string {
	return fmt.Sprintf("USER|%s", username)
}

func PrivateHistoryLine(text string) string {
	return fmt.Sprintf("HISTORY_PRIVATE_LINE|%s", text)
}

func GroupHistoryLine(text string) string {
	return fmt.Sprintf("HISTORY_GROUP_LINE|%s", text)
}

func SearchLine(text string) string {
	return fmt.Sprintf("SEARCH_LINE|%s", text)
}
