// Package formlogin provides a form-based login gate that wraps an HTTP application.
//
// The [Gate] intercepts the login and logout paths, checks credentials through a
// [PasswordBroker], issues an opaque credential token through a [CredentialBroker] and
// stores it in the session cookie (happy.login by default). Every other request is
// forwarded to the wrapped handler; when the cookie resolves, the request context carries
// an [Identity] built from the [PrincipalsBroker]. 401 and 403 responses from the wrapped
// handler can be turned into redirects to the login page.
//
// The package is designed for concurrent server workloads: a Gate is safe to use from
// multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// formlogin is the public surface. It owns routing between login, logout and
// pass-through, cookie handling, and the identity attached to forwarded requests. Where
// credentials live, how tokens are persisted, and how passwords are hashed belong to the
// broker adapters (session, directory, password sub-packages) or to the caller.
//
// # What this package must NOT do
//
//   - Store passwords, tokens or principals itself; brokers own all state.
//   - Treat a missing or stale cookie as an error; such requests continue anonymously.
//   - Propagate bad credentials as errors; they re-render the login form.
package formlogin
