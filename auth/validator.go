package auth

import (
	"github.com/go-playground/validator/v10"

	"chat-relay/errors"
)

var validate = validator.New()

// RegisterRequest carries the credentials of a REGISTER command.
// Usernames are what other clients type to reach a user, so they stay
// short and unambiguous: alphanumeric, 3 to 32 runes.
type RegisterRequest struct {
	Username string `validate:"required,alphanum,min=3,max=32"`
	Password string `validate:"required,min=6,max=72"`
}

func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			if fieldErr.Field() == "Username" {
				return errors.ErrInvalidUsername
			}
		}
		return errors.ErrInvalidPassword
	}
	return nil
}
