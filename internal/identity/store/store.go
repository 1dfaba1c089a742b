package store

import (
	"context"
	"errors"
	"time"

	"github.com/harborview/identity/internal/identity/domain"
)

var (
	ErrNotFound = errors.New("store: not found")

	// ErrConflict reports a compare-and-swap that matched zero rows, i.e.
	// someone else rotated or deleted the record first.
	ErrConflict = errors.New("store: conflict")
)

// Store is the root data access interface. Concrete drivers (sqlite for
// now) implement this. Sub-repositories keep concerns tidy and testable.
type Store interface {
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Tx starts a read/write transaction. The caller MUST Commit or
	// Rollback the returned Tx. Prefer WithTx.
	Tx(ctx context.Context) (Tx, error)

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. Same repositories plus Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type RefreshTokens interface {
	// Create inserts a new refresh token record.
	Create(ctx context.Context, t domain.RefreshToken) error

	// GetValidByFingerprint returns the record matching fp that has not
	// yet expired. Expired rows are invisible here even before
	// housekeeping removes them.
	GetValidByFingerprint(ctx context.Context, fp string, now time.Time) (domain.RefreshToken, error)

	// Rotate atomically swaps the record's fingerprint and pushes out its
	// expiry, but only if it still carries oldFP. Zero matched rows means
	// a concurrent rotation or replay won the race: ErrConflict.
	Rotate(ctx context.Context, id, oldFP, newFP string, expiresAt, now time.Time) error

	// Delete removes a record by id.
	Delete(ctx context.Context, id string) error

	// DeleteAllForUser removes every record for a subject, returning how
	// many were removed.
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)

	// DeleteExpired removes rows past their expiry, returning the count.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// CountActiveForUser counts unexpired records for a subject.
	CountActiveForUser(ctx context.Context, userID string, now time.Time) (int, error)

	// OldestActiveForUser returns up to limit unexpired records for a
	// subject, oldest first. The session limiter evicts from this list.
	OldestActiveForUser(ctx context.Context, userID string, limit int, now time.Time) ([]domain.RefreshToken, error)
}
