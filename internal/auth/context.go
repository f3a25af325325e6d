// internal/auth/context.go
//
// Authenticated-user helper shared by session and rules.
//
// Usage
// -----
//     // session.Manager.Middleware, after loading a valid row:
//     ctx = auth.WithUser(ctx, 123)
//
//     // rules middleware and handlers:
//     id, ok := auth.UserID(ctx)   // 123, true
//
// Notes
// -----
// • Login itself (credential checks) is outside this service; the session
//   row is the only source of an authenticated user.

package auth

import "context"

// userKey is unexported to avoid context-key collisions.
type userKey struct{}

// WithUser returns a new context carrying userID.
func WithUser(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserID extracts the user id from ctx.  ok is false for anonymous requests.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userKey{}).(int64)
	return id, ok
}
