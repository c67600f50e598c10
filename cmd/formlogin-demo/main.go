// Command formlogin-demo serves a small application behind the form login gate.
//
// With no configuration it listens on :8080 with an in-memory credential store and a
// static directory holding one user:
//
//	login:    chris@example.com
//	password: 12345678
//
// Routes:
//
//	GET  /           public page, shows the current user if any
//	GET  /private    any authenticated user (401 becomes a login redirect)
//	GET  /admin/...  group.Administrators only, enforced by casbin
//	GET  /metrics    Prometheus exposition, outside the gate
//	GET  /login      login form (handled by the gate)
//	POST /login      credential check (handled by the gate)
//	GET  /logout     logout (handled by the gate)
//
// Run:
//
//	go run ./cmd/formlogin-demo -config formlogin.yaml
//
// Every setting can be overridden with FORMLOGIN_SECTION__FIELD, for example
// FORMLOGIN_STORE__BACKEND=redis FORMLOGIN_REDIS__ADDR=localhost:6379.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/formlogin/internal/config"
	"github.com/MrEthical07/formlogin/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "formlogin-demo: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Server.Addr).
			Str("store", cfg.Store.Backend).
			Str("directory", cfg.Directory.Backend).
			Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	logger.Info().Msg("shutting down")
	return srv.Shutdown(shutdownCtx)
}
