// Package middleware exposes net/http adapters for the two route gates of
// the marketplace: [Protect] and [RestrictTo].
//
// # Guards
//
//   - [Protect] resolves the bearer token to a live principal.
//   - [RestrictTo] admits a protected principal only for the listed roles.
//
// Rejections are written as the JSON error envelope
// {"code": ..., "message": ...} with the status from reeutil.Describe.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT implement
// authentication logic itself; all decisions are delegated to Engine.Authorize
// and Engine.Allowed.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Touch the principal store.
package middleware
