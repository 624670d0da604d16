// Package password verifies stored password digests and produces new ones.
//
// # Supported formats
//
// Argon2id digests in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// and bcrypt digests ($2a$, $2b$, $2y$), which is what most existing
// principal records carry. [Verifier] inspects the digest prefix and
// dispatches to the matching algorithm, so a store may hold both.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. It never stores or
// logs plaintext passwords, and it does not import the engine.
package password
