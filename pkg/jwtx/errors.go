package jwtx

import "errors"

// Decode failures form a closed taxonomy so callers can branch on the
// lifecycle event without string matching. Verify errors wrap exactly one
// of these, except key-resolver failures, which pass through untouched so
// the resolver's own sentinels stay visible to errors.Is.
var (
	// ErrMalformed reports a structurally invalid token (wrong number of
	// segments, bad base64, bad JSON). Not retryable.
	ErrMalformed = errors.New("jwtx: malformed token")

	// ErrSignatureInvalid reports tampering, a wrong key, or an algorithm
	// other than the configured one (downgrade attempts land here).
	ErrSignatureInvalid = errors.New("jwtx: invalid signature")

	// ErrExpired is a normal lifecycle event; clients recover via the
	// refresh flow.
	ErrExpired = errors.New("jwtx: token expired")

	// ErrNotYetValid means nbf is in the future, usually clock skew.
	ErrNotYetValid = errors.New("jwtx: token not yet valid")

	// ErrUnknownKeyID means the kid header named a key the resolver does
	// not hold.
	ErrUnknownKeyID = errors.New("jwtx: unknown kid")

	// ErrIssuerMismatch means the iss claim did not match the expected
	// issuer.
	ErrIssuerMismatch = errors.New("jwtx: issuer mismatch")
)
