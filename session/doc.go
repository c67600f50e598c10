// Package session provides credential token stores for the login gate.
//
// Every store mints an opaque token (a random UUID) for a login identity, resolves a
// token back to its login, and revokes tokens. Three backends are available:
//
//   - [MemoryStore]: process-local map guarded by a RWMutex.
//   - [RedisStore]: shared store; one Redis key per token.
//   - [BadgerStore]: durable local store on BadgerDB.
//
// # Consistency
//
// All stores give read-your-writes: a token returned by Login resolves on the next
// LoginFor from any goroutine, and Logout is immediate and total. An optional TTL
// (see [WithTTL]) bounds a token's life; zero means tokens live until logout.
//
// # What this package must NOT do
//
//   - Import formlogin (no upward imports); the gate consumes these stores through its
//     CredentialBroker interface.
//   - Store anything but the login identity under a token.
package session
