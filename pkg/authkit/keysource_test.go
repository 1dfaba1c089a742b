package authkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harborview/identity/pkg/cryptox"
	"github.com/harborview/identity/pkg/jwtx"
)

func TestRemoteKeySourceStalenessCeiling(t *testing.T) {
	t.Parallel()

	pemKey, err := cryptox.GenerateRSAKey(2048)
	require.NoError(t, err)
	signer, err := jwtx.NewSigner("kid-1", pemKey)
	require.NoError(t, err)

	var down atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(jwtx.JWKS{Keys: []jwtx.JWK{signer.PublicJWK()}})
	}))
	defer srv.Close()

	now := time.Now()
	src := NewRemoteKeySource(NewClient(srv.URL, time.Second), time.Minute)
	src.clock = func() time.Time { return now }

	_, err = src.ResolveKey("kid-1")
	require.NoError(t, err)

	down.Store(true)

	// Inside the ceiling the stale set still resolves even though every
	// refetch fails.
	now = now.Add(MaxKeyStaleness - time.Second)
	_, err = src.ResolveKey("kid-1")
	require.NoError(t, err)

	// Past the ceiling resolution fails closed.
	now = now.Add(2 * time.Second)
	_, err = src.ResolveKey("kid-1")
	require.ErrorIs(t, err, ErrKeyUnavailable)

	// Recovery: once the issuer is back the next resolve refetches and
	// succeeds again.
	down.Store(false)
	_, err = src.ResolveKey("kid-1")
	require.NoError(t, err)
}
