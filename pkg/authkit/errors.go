package authkit

import "errors"

var (
	// ErrMissingToken reports an absent or non-bearer credential.
	ErrMissingToken = errors.New("authkit: missing token")

	// ErrRevoked is terminal; the client must re-authenticate.
	ErrRevoked = errors.New("authkit: token revoked")

	// ErrKeyUnavailable is a transient infrastructure failure fetching
	// trust material. Safe to retry with backoff; verification fails
	// closed rather than assuming validity.
	ErrKeyUnavailable = errors.New("authkit: verification key unavailable")

	// ErrKeyNotFound means the token's kid is unknown even after a forced
	// key refresh. Terminal for the request.
	ErrKeyNotFound = errors.New("authkit: verification key not found")

	// ErrRevocationUnavailable reports that the revocation registry could
	// not be reached and no fresh mirror entry existed. Fails closed.
	ErrRevocationUnavailable = errors.New("authkit: revocation registry unavailable")
)
