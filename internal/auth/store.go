package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Users() UserStore
	Sessions() SessionStore
}

// UserStore manages credential records.
type UserStore interface {
	// Create inserts a user. Fails with ErrDuplicateEmail when the email
	// is already present under case-insensitive comparison.
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	// FindByEmail performs a case-insensitive lookup.
	FindByEmail(ctx context.Context, email string) (*User, error)
	// List returns all users ordered by creation time descending. The
	// password hash is excluded from the projection.
	List(ctx context.Context) ([]*User, error)
	// RecordLogin updates the last-login timestamp. A missing id is a no-op.
	RecordLogin(ctx context.Context, id string, at time.Time) error
}

// SessionStore manages the session ledger.
type SessionStore interface {
	// DeactivateAll clears the active flag on every active session
	// belonging to the user. Idempotent.
	DeactivateAll(ctx context.Context, userID string) error
	// Create inserts one active session row.
	Create(ctx context.Context, s *Session) error
	// Replace deactivates all of the user's active sessions and inserts
	// the new one inside a single transaction, so two concurrent
	// sign-ins can never leave two active rows.
	Replace(ctx context.Context, s *Session) error
}
