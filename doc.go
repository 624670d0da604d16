// Package reeutil is the authentication engine of the ReeUtil trade-in
// marketplace: CAPTCHA challenges, a credential check with a per-principal
// lockout counter, an emailed second factor for customers, standalone
// verification codes, signed session tokens, and role gating.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// reeutil is the public surface. It exposes [Engine], [Builder], [Config],
// and the principal types. Principal persistence and mail delivery are
// collaborators supplied through [PrincipalStore] and [Mailer]; expiring
// challenge state, the login throttle, and audit dispatch live under
// internal/ and are never exported.
//
// # Principals
//
// Two kinds share one login form. Employees (staff) are looked up first and,
// by default, bypass the lockout counter and the second factor. Customers
// (users) go through both. [SecurityConfig] switches close that gap.
//
// # What this package must NOT do
//
//   - Log passwords, codes, or tokens.
//   - Reveal whether an email exists through errors or timing.
//   - Keep challenge state anywhere but the expiring stores.
package reeutil
