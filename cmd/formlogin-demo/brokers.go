package main

import (
	"context"
	"fmt"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	formlogin "github.com/MrEthical07/formlogin"
	"github.com/MrEthical07/formlogin/directory"
	"github.com/MrEthical07/formlogin/internal/config"
	"github.com/MrEthical07/formlogin/password"
	"github.com/MrEthical07/formlogin/session"
)

const (
	demoLogin    = "chris@example.com"
	demoPassword = "12345678"
)

type userDirectory interface {
	formlogin.PasswordBroker
	formlogin.PrincipalsBroker
}

// openRedis connects to cfg.Addr, or starts an in-process miniredis when it is empty.
func openRedis(cfg config.RedisConfig, logger zerolog.Logger) (redis.UniversalClient, func(), error) {
	addr := cfg.Addr
	var mr *miniredis.Miniredis
	if addr == "" {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		addr = mr.Addr()
		logger.Warn().Str("addr", addr).Msg("using in-process miniredis")
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{addr},
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return client, func() {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
	}, nil
}

func openCredentials(ctx context.Context, cfg config.StoreConfig, rdb redis.UniversalClient, logger zerolog.Logger) (formlogin.CredentialBroker, func(), error) {
	opts := []session.Option{session.WithTTL(cfg.TTL)}
	if cfg.Prefix != "" {
		opts = append(opts, session.WithPrefix(cfg.Prefix))
	}

	switch cfg.Backend {
	case config.StoreRedis:
		store := session.NewRedisStore(rdb, opts...)
		rtt, err := store.Ping(ctx)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Dur("rtt", rtt).Msg("redis credential store ready")
		return store, func() {}, nil

	case config.StoreBadger:
		db, err := session.OpenBadger(cfg.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		return session.NewBadgerStore(db, opts...), func() { _ = db.Close() }, nil

	default:
		store := session.NewMemoryStore(opts...)
		if cfg.TTL <= 0 {
			return store, func() {}, nil
		}

		sweepCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			t := time.NewTicker(sweepInterval)
			defer t.Stop()
			for {
				select {
				case <-sweepCtx.Done():
					return
				case <-t.C:
					if n := store.Sweep(); n > 0 {
						logger.Debug().Int("removed", n).Msg("swept expired credentials")
					}
				}
			}
		}()
		return store, func() {
			cancel()
			<-done
		}, nil
	}
}

func openDirectory(ctx context.Context, cfg config.DirectoryConfig, logger zerolog.Logger) (userDirectory, func(), error) {
	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("argon2 init: %w", err)
	}
	// Legacy bcrypt and weaker Argon2id hashes are replaced on the next successful login.
	rehash := directory.WithRehash(hasher)

	var seed *directory.User
	if cfg.SeedDemoUser {
		u, err := demoUser(hasher)
		if err != nil {
			return nil, nil, err
		}
		seed = &u
	}

	if cfg.Backend == config.DirSQLite {
		db, err := directory.OpenSQLite(cfg.SQLiteDSN)
		if err != nil {
			return nil, nil, err
		}
		dir := directory.NewSQL(db, rehash)
		if err := dir.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		if seed != nil {
			if err := dir.AddUser(ctx, *seed); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
		}
		return dir, func() { _ = db.Close() }, nil
	}

	var dir *directory.Static
	if cfg.UsersFile != "" {
		dir, err = directory.LoadFile(cfg.UsersFile, rehash)
	} else {
		dir, err = directory.NewStatic(nil, rehash)
	}
	if err != nil {
		return nil, nil, err
	}
	if seed != nil {
		if err := dir.Put(*seed); err != nil {
			return nil, nil, err
		}
		logger.Warn().Str("login", demoLogin).Msg("seeded demo user")
	}
	return dir, func() {}, nil
}

func demoUser(hasher *password.Argon2) (directory.User, error) {
	hash, err := hasher.Hash(demoPassword)
	if err != nil {
		return directory.User{}, fmt.Errorf("argon2 hash: %w", err)
	}
	return directory.User{
		Login:        demoLogin,
		UserID:       "user-1234",
		PasswordHash: hash,
		Groups:       []string{"group.Administrators"},
	}, nil
}
