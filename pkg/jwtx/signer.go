package jwtx

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer encodes claims into signed RS256 tokens. The signing scheme is
// fixed for the process lifetime; key rotation happens by redeploying new
// key material.
type Signer struct {
	kid string
	key *rsa.PrivateKey
	pub *rsa.PublicKey
}

// NewSigner loads an RSA private key from PEM bytes. Handles both PKCS1
// and PKCS8 blocks because provisioned key files come in either.
func NewSigner(kid string, pemKey []byte) (*Signer, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM for RSA key")
	}

	var key *rsa.PrivateKey

	switch block.Type {
	case "RSA PRIVATE KEY":
		k, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwtx: parse PKCS1: %w", err)
		}
		key = k
	case "PRIVATE KEY":
		priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwtx: parse PKCS8: %w", err)
		}
		rk, ok := priv.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("jwtx: not an RSA private key")
		}
		key = rk
	default:
		return nil, fmt.Errorf("jwtx: unsupported PEM type %q", block.Type)
	}

	return &Signer{kid: kid, key: key, pub: &key.PublicKey}, nil
}

func (s *Signer) Alg() string { return jwt.SigningMethodRS256.Alg() }
func (s *Signer) KID() string { return s.kid }

// PublicKey exposes the verification half; never the private key.
func (s *Signer) PublicKey() *rsa.PublicKey { return s.pub }

// Sign serializes claims into the three-part compact form and signs the
// first two segments. The kid travels in the header so verifiers can pick
// the right key.
func (s *Signer) Sign(c Claims) (string, error) {
	mc := jwt.MapClaims{
		"iss": c.Issuer,
		"sub": c.Subject,
		"iat": jwt.NewNumericDate(c.IssuedAt),
		"nbf": jwt.NewNumericDate(c.NotBefore),
		"exp": jwt.NewNumericDate(c.ExpiresAt),
		"jti": c.ID,
	}
	for k, v := range c.Custom {
		if isReservedClaim(k) {
			continue
		}
		mc[k] = v
	}

	t := jwt.NewWithClaims(jwt.SigningMethodRS256, mc)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

// PublicJWK returns the JWK published for this signer's key.
func (s *Signer) PublicJWK() JWK {
	return NewRSAJWK(s.kid, "sig", s.Alg(), s.pub)
}

// Validate sanity-checks the loaded key material.
func (s *Signer) Validate() error {
	if s.key == nil || s.pub == nil {
		return errors.New("jwtx: nil RSA key")
	}
	return s.key.Validate()
}
