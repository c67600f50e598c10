package password

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Verifier checks a plaintext password against a stored hash.
type Verifier interface {
	Verify(password, encodedHash string) (bool, error)
}

// VerifierFunc adapts a function to [Verifier].
type VerifierFunc func(password, encodedHash string) (bool, error)

func (f VerifierFunc) Verify(password, encodedHash string) (bool, error) {
	return f(password, encodedHash)
}

// Any verifies Argon2id PHC strings and bcrypt hashes, picking the scheme from the
// hash prefix.
var Any Verifier = VerifierFunc(Verify)

// Verify dispatches on the hash prefix. A mismatching password is (false, nil); an
// unrecognized or malformed hash is an error wrapping [ErrInvalidHash].
func Verify(password, encodedHash string) (bool, error) {
	switch {
	case strings.HasPrefix(encodedHash, "$"+algorithmID+"$"):
		return verifyArgon2(password, encodedHash)
	case isBcrypt(encodedHash):
		err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
		if err == nil {
			return true, nil
		}
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	default:
		return false, fmt.Errorf("%w: unrecognized scheme", ErrInvalidHash)
	}
}

func isBcrypt(h string) bool {
	return strings.HasPrefix(h, "$2a$") || strings.HasPrefix(h, "$2b$") || strings.HasPrefix(h, "$2y$")
}
