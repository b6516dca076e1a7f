// internal/auth/authenticator.go
//
// Password authentication action.
//
// Context
// -------
// The login controller hands validated Credentials to an Authenticator and
// expects one of three outcomes:
//
//   • success           – Result{User: rec}, nil
//   • signaled failure  – Result{Failed: true, Message: "..."}, nil
//   • thrown failure    – zero Result, non-nil error (store down, etc.)
//
// PasswordAuthenticator looks the user up by email and compares the bcrypt
// hash.  An unknown email, an account without a password, and a wrong
// password all produce the same signaled failure so the form never tells
// an attacker which emails exist.  Misses still pay for one bcrypt compare
// to keep response timing flat.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.

package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/yanizio/adept-signin/internal/user"
)

// MsgInvalidCredentials is the user-facing text for every signaled failure.
const MsgInvalidCredentials = "Incorrect email or password."

// Result is the non-throwing outcome of an authentication attempt.
type Result struct {
	Failed  bool         // true when the action signals failure
	Message string       // human-readable reason, set when Failed
	User    *user.Record // set on success
}

// Authenticator verifies credentials.  Implementations must be safe for
// concurrent use.
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (Result, error)
}

// dummyHash is compared against on misses so unknown emails cost the same
// as wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("adept-signin-timing-pad"), bcrypt.DefaultCost)

// PasswordAuthenticator checks Credentials against bcrypt hashes stored in
// the user table.
type PasswordAuthenticator struct {
	users   user.Finder
	compare func(hash, password []byte) error
}

// Compile-time assertion: *PasswordAuthenticator satisfies Authenticator.
var _ Authenticator = (*PasswordAuthenticator)(nil)

// NewPasswordAuthenticator builds an authenticator over users.
func NewPasswordAuthenticator(users user.Finder) *PasswordAuthenticator {
	return &PasswordAuthenticator{users: users, compare: bcrypt.CompareHashAndPassword}
}

// Authenticate implements Authenticator.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, creds Credentials) (Result, error) {
	if err := creds.Validate(); err != nil {
		return Result{}, fmt.Errorf("authenticate: %w", err)
	}

	rec, ok, err := a.users.FindByEmail(ctx, creds.Email)
	if err != nil {
		return Result{}, fmt.Errorf("authenticate: %w", err)
	}

	if !ok || !rec.HasPassword() {
		_ = a.compare(dummyHash, []byte(creds.Password))
		return failed(), nil
	}

	if err := a.compare(rec.PasswordHash, []byte(creds.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return failed(), nil
		}
		return Result{}, fmt.Errorf("authenticate: compare hash: %w", err)
	}
	return Result{User: rec}, nil
}

func failed() Result {
	return Result{Failed: true, Message: MsgInvalidCredentials}
}
