// Package jwt signs and verifies the stateless session token issued after a
// completed login.
//
// The token binds only the principal id (the "sub" claim) plus registered
// timing claims. It is never stored server-side, so it cannot be revoked
// before its fixed expiry; request-time authorization re-resolves the
// principal from the store on every call.
//
// HS256 and Ed25519 are supported. Verification pins the algorithm, and when
// a verify-key map is configured it selects the key by the "kid" header so
// signing keys can rotate without invalidating live tokens.
package jwt
