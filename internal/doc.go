// Package internal contains helper utilities that are intentionally private to the
// auth engine, including secure random generation for one-time codes.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - config: service configuration from .env, YAML and environment variables
//   - expiring: TTL-bound stores for captchas, codes and pending logins
//   - logging: slog handler construction
//   - rate: Redis-backed per-IP login throttle
//
// # What this package must NOT do
//
//   - Export types that appear in the public engine API.
//   - Be imported by any package outside this module.
package internal
