package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one key per credential token, holding the login identity.
//
// Single-key SET/GET/DEL against one Redis primary are linearizable, which is what gives
// the store read-your-writes across gate instances.
//
//	Key layout: <prefix><token> -> login
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a [RedisStore]. The default key prefix is "hl:".
func NewRedisStore(client redis.UniversalClient, opts ...Option) *RedisStore {
	o := buildOptions("hl:", opts)
	return &RedisStore{
		redis:  client,
		prefix: o.prefix,
		ttl:    o.ttl,
	}
}

func (s *RedisStore) key(token string) string {
	return s.prefix + token
}

// Login mints a token for login.
//
//	Performance: 1 Redis SET NX (retried on the astronomically rare collision).
func (s *RedisStore) Login(ctx context.Context, login string) (string, error) {
	for i := 0; i < maxMintAttempts; i++ {
		token := newToken()
		ok, err := s.redis.SetNX(ctx, s.key(token), login, s.ttl).Result()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if ok {
			return token, nil
		}
	}
	return "", ErrTokenCollision
}

// Logout deletes the token. Unknown tokens are ignored.
//
//	Performance: 1 Redis DEL.
func (s *RedisStore) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.redis.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// LoginFor resolves a token.
//
//	Performance: 1 Redis GET.
func (s *RedisStore) LoginFor(ctx context.Context, token string) (string, bool, error) {
	if token == "" {
		return "", false, nil
	}

	login, err := s.redis.Get(ctx, s.key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return login, true, nil
}

// Ping measures a round-trip to Redis.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}
