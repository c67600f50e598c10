package formlogin

import (
	"fmt"

	"github.com/MrEthical07/formlogin/internal/rate"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles a [Gate]. Every WithX method returns the same Builder so calls chain.
//
// A Builder is single-use: the second Build returns [ErrBuilderUsed].
type Builder struct {
	config Config
	redis  redis.UniversalClient

	passwords   PasswordBroker
	principals  PrincipalsBroker
	credentials CredentialBroker

	formTemplate FormTemplate
	auditSink    AuditSink
	logger       *zerolog.Logger

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

func (b *Builder) WithPasswordBroker(pb PasswordBroker) *Builder {
	b.passwords = pb
	return b
}

func (b *Builder) WithPrincipalsBroker(pb PrincipalsBroker) *Builder {
	b.principals = pb
	return b
}

func (b *Builder) WithCredentialBroker(cb CredentialBroker) *Builder {
	b.credentials = cb
	return b
}

// WithFormTemplate overrides the login page renderer.
func (b *Builder) WithFormTemplate(fn FormTemplate) *Builder {
	b.formTemplate = fn
	return b
}

// WithRedis supplies the client used by the login throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger used for broker failures and session diagnostics.
// Without it the gate logs nothing.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// Build validates the configuration and returns a ready Gate.
func (b *Builder) Build() (*Gate, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.passwords == nil {
		return nil, ErrMissingPasswordBroker
	}
	if b.principals == nil {
		return nil, ErrMissingPrincipalsBroker
	}
	if b.credentials == nil {
		return nil, ErrMissingCredentialBroker
	}

	var limiter *rate.Limiter
	if cfg.Throttle.Enabled {
		if b.redis == nil {
			return nil, ErrRedisRequired
		}
		limiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle: cfg.Throttle.EnableIPThrottle,
			MaxAttempts:      cfg.Throttle.MaxAttempts,
			Cooldown:         cfg.Throttle.Cooldown,
		})
	}

	form := b.formTemplate
	if form == nil {
		form = DefaultFormTemplate(cfg.LoginPath)
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}
	logger = logger.With().Str("component", "formlogin").Logger()

	g := &Gate{
		config:      cfg,
		passwords:   b.passwords,
		principals:  b.principals,
		credentials: b.credentials,
		form:        form,
		cookies:     newCookieCodec(cfg.Cookie),
		limiter:     limiter,
		metrics:     NewMetrics(cfg.Metrics),
		audit:       newAuditDispatcher(cfg.Audit, b.auditSink, logger),
		logger:      logger,
	}

	b.built = true
	logger.Debug().
		Str("login_path", cfg.LoginPath).
		Str("logout_path", cfg.LogoutPath).
		Bool("redirect_401", cfg.Redirect401).
		Bool("redirect_403", cfg.Redirect403).
		Bool("throttle", cfg.Throttle.Enabled).
		Msg("gate built")

	return g, nil
}

// MustBuild is Build for static wiring in main packages; it panics on error.
func (b *Builder) MustBuild() *Gate {
	g, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("formlogin: %v", err))
	}
	return g
}
