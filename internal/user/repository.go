// internal/user/repository.go
//
// User lookup by email.
//
// Context
// -------
// The credential form only needs one question answered: which account, if
// any, owns this email address?  `FindByEmail` runs exactly one
// parameterised SELECT against the `user` table and reports a miss as
// absence (ok == false), never as an error.  Driver and connectivity
// failures are wrapped and returned so the caller can log them.
//
// Notes
// -----
// • Column list matches the fields in `Record`; update both together.
// • Latency is observed per call under `user_lookup_duration_seconds`.
// • Oxford commas, two spaces after periods.
package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yanizio/adept-signin/internal/metrics"
)

// Finder is the read contract consumed by the authenticator.
type Finder interface {
	FindByEmail(ctx context.Context, email string) (*Record, bool, error)
}

// Repository reads users from a sqlx pool.
type Repository struct {
	db *sqlx.DB
}

// Compile-time assertion: *Repository satisfies Finder.
var _ Finder = (*Repository)(nil)

// NewRepository wraps db.
func NewRepository(db *sqlx.DB) *Repository { return &Repository{db: db} }

// FindByEmail returns the single row whose email equals the input.  The
// boolean is false when no row matches.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*Record, bool, error) {
	const q = `
        SELECT id, email, name, password_hash, email_verified_at,
               created_at, updated_at
        FROM   user
        WHERE  email = ?
        LIMIT  1`

	status := "hit"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		metrics.UserLookupDuration.WithLabelValues(status).Observe(v)
	}))
	defer timer.ObserveDuration()

	var rec Record
	err := r.db.GetContext(ctx, &rec, q, email)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		status = "miss"
		return nil, false, nil
	case err != nil:
		status = "error"
		metrics.UserLookupErrorsTotal.Inc()
		return nil, false, fmt.Errorf("find user by email: %w", err)
	}
	return &rec, true, nil
}
