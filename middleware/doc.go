// Package middleware provides authorization guards that sit behind the login gate.
//
// The gate only establishes who the caller is. These guards decide whether that caller
// may proceed, and answer 401 or 403 so the gate can turn the refusal into a login
// redirect.
//
// # Guards
//
//   - [RequireUser]: any authenticated user, 401 otherwise.
//   - [RequirePrincipal]: at least one of the given principals, 401 or 403.
//   - [Authorize]: a casbin enforcer decides on (principal, path, method).
//
// # What this package must NOT do
//
//   - Read the session cookie or call brokers; the identity comes from the request context.
//   - Write redirects itself; the gate owns the 401/403 to login translation.
package middleware
