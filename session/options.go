package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrStoreUnavailable wraps backend failures (network, disk, corrupt values).
var ErrStoreUnavailable = errors.New("credential store unavailable")

// ErrTokenCollision is returned when repeated token generation kept hitting existing keys.
var ErrTokenCollision = errors.New("credential token collision")

const maxMintAttempts = 3

// Option configures a store.
type Option func(*options)

type options struct {
	ttl    time.Duration
	prefix string
	now    func() time.Time
}

// WithTTL bounds how long a token resolves after Login. Zero disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithPrefix sets the key namespace used by the Redis and Badger stores.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithClock replaces time.Now; MemoryStore uses it to evaluate expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(defaultPrefix string, opts []Option) options {
	o := options{
		prefix: defaultPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func newToken() string {
	return uuid.NewString()
}
