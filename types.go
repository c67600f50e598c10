package formlogin

import "context"

// PasswordBroker verifies a login/password pair.
//
// CheckPassword reports false for unknown logins and wrong passwords alike; an error is
// reserved for backend failures.
type PasswordBroker interface {
	CheckPassword(ctx context.Context, login, password string) (bool, error)
}

// PrincipalsBroker resolves the user id and the principals of a login identity.
//
// Principals returns an ordered list whose first element is the user id, followed by
// group principals.
type PrincipalsBroker interface {
	UserID(ctx context.Context, login string) (string, error)
	Principals(ctx context.Context, login string) ([]string, error)
}

// CredentialBroker mints, revokes and resolves opaque credential tokens.
//
// Implementations must be safe for concurrent use and provide read-your-writes
// consistency: a token returned by Login resolves on the very next LoginFor, and a
// token passed to Logout never resolves again. Logout of an unknown token is a no-op.
type CredentialBroker interface {
	Login(ctx context.Context, login string) (string, error)
	Logout(ctx context.Context, token string) error
	LoginFor(ctx context.Context, token string) (string, bool, error)
}

// Identity is attached to requests whose session cookie resolves to a login.
type Identity struct {
	Login      string
	UserID     string
	Principals []string
}

// HasPrincipal reports whether p is one of the identity's principals.
func (i Identity) HasPrincipal(p string) bool {
	for _, have := range i.Principals {
		if have == p {
			return true
		}
	}
	return false
}

// FormOptions are the values handed to a [FormTemplate].
//
// For GET requests they come from the query parameters login, redirect_to and
// status_msg; after a failed POST they carry the submitted login and redirect_to and the
// failure message.
type FormOptions struct {
	Login      string
	RedirectTo string
	StatusMsg  string
}

// FormTemplate renders the login page. Its return value is written verbatim as the
// response body.
type FormTemplate func(opts FormOptions) string
