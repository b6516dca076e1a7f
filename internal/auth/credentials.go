// internal/auth/credentials.go
//
// Credential input and its schema.
//
// Context
// -------
// The form subsystem validates raw POST data against the YAML definition
// before a handler ever sees it.  Credentials repeats the same rules as
// struct tags so any caller that builds Credentials by hand (tests, a
// future JSON endpoint) goes through one schema.  The controller refuses
// to submit Credentials that fail Validate.

package auth

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Credentials is the email/password pair submitted for authentication.
type Credentials struct {
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,max=72"`
}

// maxPasswordBytes is bcrypt's input limit.  The max tag counts runes, so a
// multibyte password can pass it and still be too long.
const maxPasswordBytes = 72

var schema = validator.New()

// Validate reports the first schema violation as a FieldError.
func (c Credentials) Validate() error {
	err := schema.Struct(c)
	if err == nil {
		if len(c.Password) > maxPasswordBytes {
			return FieldError{Field: "password", Rule: "max"}
		}
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return FieldError{Field: strings.ToLower(verrs[0].Field()), Rule: verrs[0].Tag()}
	}
	return err
}

// FieldError names the offending field and the failed rule.
type FieldError struct {
	Field string
	Rule  string
}

func (e FieldError) Error() string { return "invalid " + e.Field + ": " + e.Rule }
