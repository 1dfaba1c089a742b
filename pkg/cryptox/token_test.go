package cryptox_test

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/harborview/identity/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	a, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	b, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.Len(t, a, 43) // 32 bytes base64url, no padding

	_, err = cryptox.GenerateToken(0)
	require.Error(t, err)
}

func TestFingerprintTokenIsDeterministic(t *testing.T) {
	t.Parallel()

	fp1 := cryptox.FingerprintToken("secret")
	fp2 := cryptox.FingerprintToken("secret")
	other := cryptox.FingerprintToken("secret2")

	require.Equal(t, fp1, fp2)
	require.NotEqual(t, fp1, other)
	require.Len(t, fp1, 43)
}

func TestPublicKeyFingerprintIsStable(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	fp1, err := cryptox.PublicKeyFingerprint(&key.PublicKey)
	require.NoError(t, err)
	fp2, err := cryptox.PublicKeyFingerprint(&key.PublicKey)
	require.NoError(t, err)

	require.Equal(t, fp1, fp2)
	require.NotEmpty(t, fp1)
}
