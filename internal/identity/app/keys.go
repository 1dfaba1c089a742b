package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/harborview/identity/pkg/cryptox"
	"github.com/harborview/identity/pkg/jwtx"
)

// InitSigningKeys loads the issuer's RSA key material. With a configured
// key file the same kid is derived on every start, so verifiers holding
// cached trust material stay consistent across restarts. Without one, an
// ephemeral key is generated: fine for dev, useless for prod since every
// restart invalidates all outstanding tokens.
func InitSigningKeys(cfg Config, logger *slog.Logger) (*jwtx.Signer, *jwtx.KeySet, error) {
	var pemKey []byte

	if cfg.PrivateKeyFile != "" {
		b, err := os.ReadFile(cfg.PrivateKeyFile)
		if err != nil {
			return nil, nil, fmt.Errorf("read private key file: %w", err)
		}
		pemKey = b
	} else {
		logger.Warn("no AUTH_PRIVATE_KEY_FILE configured, generating ephemeral signing key")
		b, err := cryptox.GenerateRSAKey(2048)
		if err != nil {
			return nil, nil, err
		}
		pemKey = b
	}

	// Parse once to derive the kid, then rebuild the signer with it.
	probe, err := jwtx.NewSigner("", pemKey)
	if err != nil {
		return nil, nil, err
	}
	kid, err := cryptox.PublicKeyFingerprint(probe.PublicKey())
	if err != nil {
		return nil, nil, err
	}

	signer, err := jwtx.NewSigner(kid, pemKey)
	if err != nil {
		return nil, nil, err
	}
	if err := signer.Validate(); err != nil {
		return nil, nil, fmt.Errorf("signing key failed validation: %w", err)
	}

	keys := jwtx.NewKeySet()
	if err := keys.AddSigner(signer); err != nil {
		return nil, nil, err
	}

	logger.Info("signing key loaded", "kid", kid, "alg", signer.Alg())
	return signer, keys, nil
}
