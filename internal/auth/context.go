// internal/auth/context.go
//
// Signed-in user helpers.
//
// Usage
// -----
//     // Attach user 123 to the request context (session middleware).
//     ctx = auth.WithUser(ctx, 123)
//
//     // Downstream code retrieves the ID.
//     id, ok := auth.UserID(ctx)   // 123, true
//
// Notes
// -----
// • Stores a uint64 matching user.Record.ID.
// • Oxford commas, two spaces after periods.

package auth

import "context"

// userKey is unexported to avoid context-key collisions.
type userKey struct{}

// WithUser returns a new context carrying the given userID.
func WithUser(ctx context.Context, userID uint64) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserID extracts the userID from ctx.  It returns (0, false) if no user is
// set.
func UserID(ctx context.Context) (uint64, bool) {
	id, ok := ctx.Value(userKey{}).(uint64)
	return id, ok
}
