// Package rate provides the Redis-backed failed-login counters behind the gate's
// optional login throttle.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - fl:  failed logins per login identity
//   - fli: failed logins per client IP
//
// # What this package must NOT do
//
//   - Decide what a rate-limited request looks like (the gate renders the form).
//   - Be imported outside the formlogin module.
package rate
