package formlogin

import "errors"

var (
	// ErrMissingPasswordBroker is returned by Build when no PasswordBroker was supplied.
	ErrMissingPasswordBroker = errors.New("password broker required")
	// ErrMissingPrincipalsBroker is returned by Build when no PrincipalsBroker was supplied.
	ErrMissingPrincipalsBroker = errors.New("principals broker required")
	// ErrMissingCredentialBroker is returned by Build when no CredentialBroker was supplied.
	ErrMissingCredentialBroker = errors.New("credential broker required")
	// ErrRedisRequired is returned by Build when login throttling is enabled without a Redis client.
	ErrRedisRequired = errors.New("login throttling requires redis client")
	// ErrBuilderUsed is returned when Build is called twice on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrInvalidConfig wraps every Config.Validate failure.
	ErrInvalidConfig = errors.New("invalid config")
)

// Messages rendered on the login form. They are part of the observable contract.
const (
	StatusBadCredentials  = "Bad username or password"
	StatusTooManyAttempts = "Too many login attempts, try again later"
)
