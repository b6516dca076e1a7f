package user

import "time"

// Record mirrors one row in the `user` table.  PasswordHash is nil for
// accounts created through an external identity provider; those accounts
// cannot sign in with a password.
type Record struct {
	ID              uint64     `db:"id"`
	Email           string     `db:"email"`
	Name            string     `db:"name"`
	PasswordHash    []byte     `db:"password_hash"`
	EmailVerifiedAt *time.Time `db:"email_verified_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// HasPassword reports whether the account can use the credential form.
func (r *Record) HasPassword() bool { return len(r.PasswordHash) > 0 }
