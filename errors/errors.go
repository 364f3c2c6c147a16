package errors

import "fmt"

var (
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet requirements")
	ErrInvalidUsername    = fmt.Errorf("username does not meet requirements")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrGroupNotFound      = fmt.Errorf("group not found")
	ErrNotAuthenticated   = fmt.Errorf("not authenticated")
	ErrServerFull         = fmt.Errorf("server full")
	ErrSessionClosed      = fmt.Errorf("session closed")
	ErrMalformedCommand   = fmt.Errorf("malformed command")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
)
