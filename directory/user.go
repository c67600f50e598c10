package directory

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/formlogin/password"
)

// ErrUnknownLogin is returned by UserID and Principals for logins not in the directory.
var ErrUnknownLogin = errors.New("unknown login")

// User is one directory entry.
type User struct {
	Login        string   `yaml:"login"`
	UserID       string   `yaml:"user_id"`
	PasswordHash string   `yaml:"password_hash"`
	Groups       []string `yaml:"groups"`
}

// Principals returns the user id followed by the groups.
func (u User) Principals() []string {
	out := make([]string, 0, len(u.Groups)+1)
	out = append(out, u.UserID)
	return append(out, u.Groups...)
}

func (u User) validate() error {
	if u.Login == "" {
		return errors.New("directory: user login is empty")
	}
	if u.UserID == "" {
		return fmt.Errorf("directory: user %q has no user_id", u.Login)
	}
	if u.PasswordHash == "" {
		return fmt.Errorf("directory: user %q has no password_hash", u.Login)
	}
	return nil
}

// Option configures a directory.
type Option func(*options)

type options struct {
	verifier password.Verifier
	rehash   *password.Argon2
}

// WithVerifier replaces the default [password.Any] verifier.
func WithVerifier(v password.Verifier) Option {
	return func(o *options) {
		if v != nil {
			o.verifier = v
		}
	}
}

// WithRehash replaces a stored hash after a successful login when it is bcrypt or an
// Argon2id hash with weaker parameters than h.
func WithRehash(h *password.Argon2) Option {
	return func(o *options) {
		o.rehash = h
	}
}

func buildOptions(opts []Option) options {
	o := options{verifier: password.Any}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func checkHash(v password.Verifier, login, plaintext, hash string) (bool, error) {
	ok, err := v.Verify(plaintext, hash)
	if err != nil {
		return false, fmt.Errorf("directory: verifying password of %q: %w", login, err)
	}
	return ok, nil
}

// upgradedHash returns a fresh hash of plaintext when the stored hash should be replaced,
// or "" to keep it.
func (o options) upgradedHash(plaintext, hash string) string {
	if o.rehash == nil {
		return ""
	}
	// Non-Argon2 hashes fail to parse and are always upgraded.
	if stale, err := o.rehash.NeedsUpgrade(hash); err == nil && !stale {
		return ""
	}
	fresh, err := o.rehash.Hash(plaintext)
	if err != nil {
		return ""
	}
	return fresh
}
