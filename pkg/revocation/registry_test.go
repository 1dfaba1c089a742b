package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/harborview/identity/pkg/revocation"
	"github.com/stretchr/testify/require"
)

func TestMemoryRegistryRevokeVisibleImmediately(t *testing.T) {
	t.Parallel()

	reg := revocation.NewMemoryRegistry()
	ctx := context.Background()

	revoked, err := reg.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, reg.Revoke(ctx, "jti-1", time.Minute))

	revoked, err = reg.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestMemoryRegistryEntriesAgeOut(t *testing.T) {
	t.Parallel()

	now := time.Now()
	reg := revocation.NewMemoryRegistryWithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, reg.Revoke(ctx, "jti-1", 30*time.Second))

	now = now.Add(31 * time.Second)
	revoked, err := reg.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestClampTTLFloorsNonPositive(t *testing.T) {
	t.Parallel()

	require.Equal(t, revocation.MinTTL, revocation.ClampTTL(0))
	require.Equal(t, revocation.MinTTL, revocation.ClampTTL(-time.Hour))
	require.Equal(t, time.Minute, revocation.ClampTTL(time.Minute))
}

func TestMemoryRegistryClampsShortTTL(t *testing.T) {
	t.Parallel()

	now := time.Now()
	reg := revocation.NewMemoryRegistryWithClock(func() time.Time { return now })
	ctx := context.Background()

	// A negative remaining lifetime still produces a live entry.
	require.NoError(t, reg.Revoke(ctx, "jti-1", -time.Second))

	now = now.Add(revocation.MinTTL / 2)
	revoked, err := reg.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, revoked)
}
