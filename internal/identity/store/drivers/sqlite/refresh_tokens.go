package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harborview/identity/internal/identity/domain"
	"github.com/harborview/identity/internal/identity/store"
)

// querier is satisfied by both *sql.DB and *sql.Tx so the repo works
// inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type refreshTokensRepo struct {
	db querier
}

const refreshTokenColumns = `id, user_id, token_fingerprint, claims, expires_at, created_at, updated_at`

func (r *refreshTokensRepo) Create(ctx context.Context, t domain.RefreshToken) error {
	claims, err := marshalClaims(t.Claims)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (`+refreshTokenColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TokenFingerprint, claims,
		t.ExpiresAt.UTC(), t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
	)
	return err
}

func (r *refreshTokensRepo) GetValidByFingerprint(
	ctx context.Context,
	fp string,
	now time.Time,
) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+refreshTokenColumns+`
		FROM refresh_tokens
		WHERE token_fingerprint = ? AND expires_at > ?`,
		fp, now.UTC(),
	)
	return scanRefreshToken(row)
}

func (r *refreshTokensRepo) Rotate(
	ctx context.Context,
	id, oldFP, newFP string,
	expiresAt, now time.Time,
) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET token_fingerprint = ?, expires_at = ?, updated_at = ?
		WHERE id = ? AND token_fingerprint = ?`,
		newFP, expiresAt.UTC(), now.UTC(), id, oldFP,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrConflict
	}
	return nil
}

func (r *refreshTokensRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE id = ?`, id)
	return err
}

func (r *refreshTokensRepo) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *refreshTokensRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *refreshTokensRepo) CountActiveForUser(
	ctx context.Context,
	userID string,
	now time.Time,
) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM refresh_tokens
		WHERE user_id = ? AND expires_at > ?`,
		userID, now.UTC(),
	).Scan(&n)
	return n, err
}

func (r *refreshTokensRepo) OldestActiveForUser(
	ctx context.Context,
	userID string,
	limit int,
	now time.Time,
) ([]domain.RefreshToken, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+refreshTokenColumns+`
		FROM refresh_tokens
		WHERE user_id = ? AND expires_at > ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?`,
		userID, now.UTC(), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RefreshToken
	for rows.Next() {
		t, err := scanRefreshToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRefreshToken(row rowScanner) (domain.RefreshToken, error) {
	var (
		t      domain.RefreshToken
		claims string
	)
	err := row.Scan(&t.ID, &t.UserID, &t.TokenFingerprint, &claims,
		&t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}

	if claims != "" && claims != "{}" {
		if err := json.Unmarshal([]byte(claims), &t.Claims); err != nil {
			return domain.RefreshToken{}, fmt.Errorf("sqlite: decode claims for %s: %w", t.ID, err)
		}
	}
	return t, nil
}

func marshalClaims(claims map[string]any) (string, error) {
	if len(claims) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("sqlite: encode claims: %w", err)
	}
	return string(b), nil
}
