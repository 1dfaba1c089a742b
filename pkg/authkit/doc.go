// Package authkit is the verification SDK embedded in every downstream
// service. It resolves the issuer's public keys (statically configured or
// fetched as a JWKS and cached), verifies access tokens locally, and
// consults a short-TTL mirror of the shared revocation registry, so the
// hot path never makes a per-request call to the issuer.
package authkit
