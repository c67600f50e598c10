// Package directory provides user directories that act as both the password broker and
// the principals broker of the login gate.
//
// A directory maps a login identity (e.g. an email address) to a user id, a stored
// password hash and an ordered list of groups. Principals are the user id followed by
// the groups, in order.
//
//   - [Static]: in-memory table, optionally loaded from a YAML file.
//   - [SQL]: database/sql tables on SQLite (modernc.org/sqlite, no cgo).
//
// # What this package must NOT do
//
//   - Import formlogin; the gate consumes directories through its broker interfaces.
//   - Keep plaintext passwords; only hashes understood by the password package.
package directory
