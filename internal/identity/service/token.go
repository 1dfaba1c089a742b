package service

import (
	"context"
	"errors"
	"time"

	"github.com/harborview/identity/internal/identity/domain"
	"github.com/harborview/identity/internal/identity/store"
	"github.com/harborview/identity/pkg/cryptox"
	"github.com/harborview/identity/pkg/idx"
	"github.com/harborview/identity/pkg/jwtx"
	"github.com/harborview/identity/pkg/revocation"
	"github.com/harborview/identity/pkg/slogx"
	"github.com/harborview/identity/pkg/tokencache"
)

var (
	// ErrInvalidRefresh covers every refresh failure the caller may see:
	// unknown, expired, and already-consumed tokens all produce this same
	// error so responses cannot be used to probe which case occurred.
	ErrInvalidRefresh = errors.New("invalid_refresh_token")

	// ErrTokenRevoked reports an access token whose jti is blacklisted.
	ErrTokenRevoked = errors.New("token_revoked")
)

// TokenService owns the issuance side of the token lifecycle: minting
// pairs, single-use refresh rotation, session ceilings, and revocation.
type TokenService struct {
	Signer      *jwtx.Signer
	Keys        *jwtx.KeySet
	Store       store.Store
	Revocations revocation.Registry
	Metadata    tokencache.Cache

	Issuer      string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	MaxSessions int
}

// Issue mints a fresh (access, refresh) pair for a subject. The custom
// claim set is baked into the access token and persisted on the refresh
// record so later refreshes reproduce the original grant.
func (s *TokenService) Issue(
	ctx context.Context,
	subject string,
	custom map[string]any,
) (*domain.TokenPair, error) {
	now := time.Now()

	claims := jwtx.NewClaims(s.Issuer, subject, s.AccessTTL, custom, now)
	access, err := s.Signer.Sign(claims)
	if err != nil {
		return nil, err
	}

	refreshOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	rec := domain.RefreshToken{
		ID:               idx.New().String(),
		UserID:           subject,
		TokenFingerprint: cryptox.FingerprintToken(refreshOpaque),
		Claims:           custom,
		ExpiresAt:        now.Add(s.RefreshTTL),
	}

	// Eviction and insert happen in one transaction so a crash between
	// them cannot leave the subject over the ceiling.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := s.enforceSessionLimit(ctx, tx, subject, now); err != nil {
			return err
		}
		return tx.RefreshTokens().Create(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	s.rememberMetadata(ctx, claims)

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refreshOpaque,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
	}, nil
}

// Refresh exchanges a valid refresh token for a new pair, consuming the
// presented secret. The new access token is minted before the rotation
// commits, so any failure up to the swap leaves the presented token
// usable for a retry.
func (s *TokenService) Refresh(ctx context.Context, refreshOpaque string) (*domain.TokenPair, error) {
	now := time.Now()

	fp := cryptox.FingerprintToken(refreshOpaque)
	rt, err := s.Store.RefreshTokens().GetValidByFingerprint(ctx, fp, now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	claims := jwtx.NewClaims(s.Issuer, rt.UserID, s.AccessTTL, rt.Claims, now)
	access, err := s.Signer.Sign(claims)
	if err != nil {
		return nil, err
	}

	newOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}
	newFP := cryptox.FingerprintToken(newOpaque)

	// The CAS on (id, fingerprint) is what makes the secret single-use.
	// Losing it means a concurrent refresh or a replay got there first;
	// both collapse into the same error as an unknown token.
	err = s.Store.RefreshTokens().Rotate(ctx, rt.ID, fp, newFP, now.Add(s.RefreshTTL), now)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			slogx.FromContext(ctx).Warn("refresh rotation lost race", "record_id", rt.ID)
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	s.rememberMetadata(ctx, claims)

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: newOpaque,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
	}, nil
}

// Validate verifies an access token against the issuer's own keys and the
// revocation registry. Used by the introspection endpoint and by the
// revoke flows to authenticate the presented token.
func (s *TokenService) Validate(ctx context.Context, accessToken string) (jwtx.Claims, error) {
	claims, err := s.verifier().Verify(accessToken)
	if err != nil {
		return jwtx.Claims{}, err
	}

	revoked, err := s.Revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return jwtx.Claims{}, err
	}
	if revoked {
		return jwtx.Claims{}, ErrTokenRevoked
	}

	return claims, nil
}

// RevokeAccessToken blacklists an access token's jti for the remainder of
// its lifetime and drops its cached metadata. The token must still verify;
// expired or forged tokens have nothing to revoke.
func (s *TokenService) RevokeAccessToken(ctx context.Context, accessToken string) error {
	claims, err := s.verifier().Verify(accessToken)
	if err != nil {
		return err
	}
	return s.revokeClaims(ctx, claims)
}

// Logout ends one session: the access token's jti is blacklisted and the
// session's refresh record is deleted so it can never rotate again. Both
// halves are best-effort idempotent; logging out twice is not an error.
func (s *TokenService) Logout(ctx context.Context, accessToken, refreshOpaque string) error {
	now := time.Now()
	log := slogx.FromContext(ctx)

	if claims, err := s.verifier().Verify(accessToken); err == nil {
		if err := s.revokeClaims(ctx, claims); err != nil {
			return err
		}
	} else {
		log.Warn("logout with unverifiable access token", "err", err)
	}

	if refreshOpaque == "" {
		return nil
	}

	fp := cryptox.FingerprintToken(refreshOpaque)
	rt, err := s.Store.RefreshTokens().GetValidByFingerprint(ctx, fp, now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.Store.RefreshTokens().Delete(ctx, rt.ID)
}

// RevokeAllForUser tears down every session for the presented token's
// subject: all refresh records are deleted and the presented jti is
// blacklisted. Other outstanding access tokens cannot be enumerated and
// ride out their (short) natural TTL.
func (s *TokenService) RevokeAllForUser(ctx context.Context, accessToken string) (int64, error) {
	claims, err := s.Validate(ctx, accessToken)
	if err != nil {
		return 0, err
	}

	n, err := s.Store.RefreshTokens().DeleteAllForUser(ctx, claims.Subject)
	if err != nil {
		return 0, err
	}

	if err := s.revokeClaims(ctx, claims); err != nil {
		return n, err
	}

	slogx.FromContext(ctx).Info("revoked all sessions",
		"subject", claims.Subject, "refresh_records_deleted", n)
	return n, nil
}

func (s *TokenService) revokeClaims(ctx context.Context, claims jwtx.Claims) error {
	ttl := revocation.ClampTTL(claims.RemainingTTL(time.Now()))
	if err := s.Revocations.Revoke(ctx, claims.ID, ttl); err != nil {
		return err
	}

	if s.Metadata != nil {
		if err := s.Metadata.Forget(ctx, claims.ID); err != nil {
			slogx.FromContext(ctx).Warn("forget token metadata failed", "err", err)
		}
	}
	return nil
}

// enforceSessionLimit deletes the oldest active refresh records so that
// after the new one is created the subject holds at most MaxSessions.
// Best-effort under concurrent issuance; this is a resource ceiling, not
// a security boundary.
func (s *TokenService) enforceSessionLimit(ctx context.Context, tx store.Tx, userID string, now time.Time) error {
	if s.MaxSessions <= 0 {
		return nil
	}

	count, err := tx.RefreshTokens().CountActiveForUser(ctx, userID, now)
	if err != nil {
		return err
	}
	if count < s.MaxSessions {
		return nil
	}

	evict := count - s.MaxSessions + 1
	oldest, err := tx.RefreshTokens().OldestActiveForUser(ctx, userID, evict, now)
	if err != nil {
		return err
	}
	for _, rec := range oldest {
		if err := tx.RefreshTokens().Delete(ctx, rec.ID); err != nil {
			return err
		}
	}

	slogx.FromContext(ctx).Info("session limit enforced",
		"subject", userID, "evicted", len(oldest))
	return nil
}

func (s *TokenService) rememberMetadata(ctx context.Context, claims jwtx.Claims) {
	if s.Metadata == nil {
		return
	}

	emailVerified, _ := claims.Custom[jwtx.ClaimEmailVerified].(bool)
	md := tokencache.Metadata{
		Subject:       claims.Subject,
		Scopes:        claims.Scopes(),
		Tier:          claims.Tier(),
		EmailVerified: emailVerified,
		ExpiresAt:     claims.ExpiresAt,
	}
	if err := s.Metadata.Remember(ctx, claims.ID, md); err != nil {
		slogx.FromContext(ctx).Warn("remember token metadata failed", "err", err)
	}
}

func (s *TokenService) verifier() *jwtx.Verifier {
	return jwtx.NewVerifier(s.Keys, jwtx.VerifyOptions{Issuer: s.Issuer})
}
