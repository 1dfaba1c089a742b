package tokencache_test

import (
	"context"
	"testing"
	"time"

	"github.com/harborview/identity/pkg/tokencache"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheRememberLookupForget(t *testing.T) {
	t.Parallel()

	cache := tokencache.NewMemoryCache()
	ctx := context.Background()

	md := tokencache.Metadata{
		Subject:       "user-1",
		Scopes:        []string{"subscription:read"},
		Tier:          "pro",
		EmailVerified: true,
		ExpiresAt:     time.Now().Add(time.Hour),
	}

	_, err := cache.Lookup(ctx, "jti-1")
	require.ErrorIs(t, err, tokencache.ErrNotFound)

	require.NoError(t, cache.Remember(ctx, "jti-1", md))

	got, err := cache.Lookup(ctx, "jti-1")
	require.NoError(t, err)
	require.Equal(t, md, got)

	require.NoError(t, cache.Forget(ctx, "jti-1"))
	_, err = cache.Lookup(ctx, "jti-1")
	require.ErrorIs(t, err, tokencache.ErrNotFound)
}

func TestMemoryCacheTTLBoundedByTokenExpiry(t *testing.T) {
	t.Parallel()

	now := time.Now()
	cache := tokencache.NewMemoryCacheWithClock(func() time.Time { return now })
	ctx := context.Background()

	md := tokencache.Metadata{Subject: "user-1", ExpiresAt: now.Add(time.Minute)}
	require.NoError(t, cache.Remember(ctx, "jti-1", md))

	// Entry dies with the token, even though nobody called Forget.
	now = now.Add(2 * time.Minute)
	_, err := cache.Lookup(ctx, "jti-1")
	require.ErrorIs(t, err, tokencache.ErrNotFound)
}
