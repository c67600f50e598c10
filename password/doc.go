// Package password verifies stored password hashes for the directory brokers.
//
// # Formats
//
// Argon2id hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// bcrypt hashes ($2a$, $2b$, $2y$) are verified as well, so user tables produced by
// other tools can be loaded unchanged. New hashes are always Argon2id.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other formlogin package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
