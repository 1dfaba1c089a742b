package jwtx

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// KeyResolver maps a kid to the RSA public key that signed under it. The
// issuing side backs this with an in-process KeySet; remote verifiers
// back it with a fetched-and-cached trust store.
type KeyResolver interface {
	ResolveKey(kid string) (*rsa.PublicKey, error)
}

// VerifyOptions captures the standard-claim expectations of a verifier.
type VerifyOptions struct {
	// Issuer the token must carry. Empty means "don't enforce".
	Issuer string

	// Leeway tolerates small clock skew when validating exp/nbf.
	Leeway time.Duration
}

// Verifier decodes and validates RS256 tokens. Claims are never exposed
// to the caller before the signature has verified.
type Verifier struct {
	keys KeyResolver
	opts VerifyOptions
}

func NewVerifier(keys KeyResolver, opts VerifyOptions) *Verifier {
	return &Verifier{keys: keys, opts: opts}
}

// Verify checks structure, signature, and standard claims, in that order,
// and returns the decoded claims. Tokens declaring any algorithm other
// than RS256 are rejected before signature verification is even attempted.
func (v *Verifier) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithLeeway(v.opts.Leeway),
		jwt.WithExpirationRequired(),
	)

	token, err := parser.ParseWithClaims(tokenStr, jwt.MapClaims{}, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("%w: missing kid header", ErrUnknownKeyID)
		}
		pub, err := v.keys.ResolveKey(kid)
		if err != nil {
			return nil, fmt.Errorf("resolve kid %q: %w", kid, err)
		}
		return pub, nil
	})
	if err != nil {
		return Claims{}, mapParseError(err)
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Claims{}, ErrMalformed
	}

	claims, err := claimsFromMap(mc)
	if err != nil {
		return Claims{}, err
	}

	if v.opts.Issuer != "" && claims.Issuer != v.opts.Issuer {
		return Claims{}, ErrIssuerMismatch
	}

	return claims, nil
}

// mapParseError folds golang-jwt's error chain into the package taxonomy.
// Resolver errors (unknown kid, upstream key fetch failures) survive the
// fold so callers can still errors.Is against their own sentinels.
func mapParseError(err error) error {
	switch {
	case errors.Is(err, ErrUnknownKeyID):
		return fmt.Errorf("%w: %w", ErrUnknownKeyID, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return fmt.Errorf("%w: %w", ErrNotYetValid, err)
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %w", ErrSignatureInvalid, err)
	default:
		// Keep the original chain. Resolver failures arrive wrapped in
		// jwt.ErrTokenUnverifiable and land here so callers can errors.Is
		// against their own sentinels without a misleading signature error
		// in front.
		return err
	}
}

func claimsFromMap(mc jwt.MapClaims) (Claims, error) {
	c := Claims{}

	c.Issuer, _ = mc["iss"].(string)
	c.Subject, _ = mc["sub"].(string)
	c.ID, _ = mc["jti"].(string)

	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return Claims{}, ErrMalformed
	}
	c.ExpiresAt = exp.Time.UTC()

	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time.UTC()
	}
	if nbf, err := mc.GetNotBefore(); err == nil && nbf != nil {
		c.NotBefore = nbf.Time.UTC()
	}

	for k, v := range mc {
		if isReservedClaim(k) {
			continue
		}
		if c.Custom == nil {
			c.Custom = make(map[string]any)
		}
		c.Custom[k] = v
	}

	return c, nil
}
