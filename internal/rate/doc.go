// Package rate provides the Redis-backed login throttle used in front of the
// credential check.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - rl:ip:: failed logins per client IP
//
// The throttle is independent of the per-principal lockout counter, which is
// persisted on the principal record itself.
package rate
