package directory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Static is an in-memory directory. It is safe for concurrent use; Put may be called
// while the gate is serving.
type Static struct {
	mu    sync.RWMutex
	users map[string]User
	opts  options
}

type staticFile struct {
	Users []User `yaml:"users"`
}

// NewStatic builds a directory from users. Logins must be unique.
func NewStatic(users []User, opts ...Option) (*Static, error) {
	s := &Static{
		users: make(map[string]User, len(users)),
		opts:  buildOptions(opts),
	}
	for _, u := range users {
		if err := u.validate(); err != nil {
			return nil, err
		}
		if _, dup := s.users[u.Login]; dup {
			return nil, fmt.Errorf("directory: duplicate login %q", u.Login)
		}
		s.users[u.Login] = cloneUser(u)
	}
	return s, nil
}

// LoadFile reads a YAML document of the form
//
//	users:
//	  - login: chris@example.com
//	    user_id: user-1234
//	    password_hash: $argon2id$v=19$...
//	    groups: [group.Administrators]
func LoadFile(path string, opts ...Option) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("directory: read %s: %w", path, err)
	}

	var doc staticFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("directory: parse %s: %w", path, err)
	}
	return NewStatic(doc.Users, opts...)
}

// Put adds or replaces a user.
func (s *Static) Put(u User) error {
	if err := u.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.users[u.Login] = cloneUser(u)
	s.mu.Unlock()
	return nil
}

func (s *Static) lookup(login string) (User, bool) {
	s.mu.RLock()
	u, ok := s.users[login]
	s.mu.RUnlock()
	return u, ok
}

func (s *Static) CheckPassword(_ context.Context, login, plaintext string) (bool, error) {
	u, ok := s.lookup(login)
	if !ok {
		return false, nil
	}
	ok, err := checkHash(s.opts.verifier, login, plaintext, u.PasswordHash)
	if err != nil || !ok {
		return ok, err
	}

	if fresh := s.opts.upgradedHash(plaintext, u.PasswordHash); fresh != "" {
		s.mu.Lock()
		// Skip when the entry changed under us.
		if cur, found := s.users[login]; found && cur.PasswordHash == u.PasswordHash {
			cur.PasswordHash = fresh
			s.users[login] = cur
		}
		s.mu.Unlock()
	}
	return true, nil
}

func (s *Static) UserID(_ context.Context, login string) (string, error) {
	u, ok := s.lookup(login)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLogin, login)
	}
	return u.UserID, nil
}

func (s *Static) Principals(_ context.Context, login string) ([]string, error) {
	u, ok := s.lookup(login)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLogin, login)
	}
	return u.Principals(), nil
}

func cloneUser(u User) User {
	u.Groups = append([]string(nil), u.Groups...)
	return u
}
