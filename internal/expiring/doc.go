// Package expiring provides short-lived keyed records for the login pipeline:
// CAPTCHA challenges, verification codes, and pending logins.
//
// # Design
//
// Every entry carries an absolute expiry instant. Expired entries are never
// returned: lookups treat them as absent, and pruning is opportunistic on
// writes and explicit through PruneExpired. There is no background timer.
//
// Two backends share one contract. [Memory] is a process-local map for
// single-instance deployments and tests. [Redis] shares entries across
// instances and relies on native key TTLs.
//
// # What this package must NOT do
//
//   - Import the root package or any sibling internal package.
//   - Return an error for a missing or expired key (absent is not a failure).
//   - Interpret stored values.
package expiring
