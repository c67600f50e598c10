// Package config loads the demo server configuration: struct defaults, then an optional
// YAML file, then FORMLOGIN_* environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	formlogin "github.com/MrEthical07/formlogin"
)

const (
	EnvPrefix     = "FORMLOGIN_"
	PathEnvVar    = "FORMLOGIN_CONFIG"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StoreBadger   = "badger"
	DirStatic     = "static"
	DirSQLite     = "sqlite"
	FormatJSON    = "json"
	FormatConsole = "console"
)

// DefaultConfigPaths are tried in order when no explicit path is given.
var DefaultConfigPaths = []string{
	"formlogin.yaml",
	"formlogin.yml",
	"/etc/formlogin/config.yaml",
}

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Gate      GateConfig      `koanf:"gate"`
	Cookie    CookieConfig    `koanf:"cookie"`
	Store     StoreConfig     `koanf:"store"`
	Directory DirectoryConfig `koanf:"directory"`
	Redis     RedisConfig     `koanf:"redis"`
	Throttle  ThrottleConfig  `koanf:"throttle"`
	Audit     AuditConfig     `koanf:"audit"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

type GateConfig struct {
	LoginPath             string `koanf:"login_path"`
	LogoutPath            string `koanf:"logout_path"`
	Redirect401           bool   `koanf:"redirect_401"`
	Redirect403           bool   `koanf:"redirect_403"`
	TrustForwardedHeaders bool   `koanf:"trust_forwarded_headers"`
}

// CookieConfig mirrors formlogin.CookieConfig. HashKey and BlockKey are hex encoded.
type CookieConfig struct {
	Name     string        `koanf:"name"`
	Domain   string        `koanf:"domain"`
	Secure   bool          `koanf:"secure"`
	SameSite string        `koanf:"same_site"`
	MaxAge   time.Duration `koanf:"max_age"`
	HashKey  string        `koanf:"hash_key"`
	BlockKey string        `koanf:"block_key"`
}

// StoreConfig selects the credential broker.
type StoreConfig struct {
	Backend    string        `koanf:"backend"`
	TTL        time.Duration `koanf:"ttl"`
	BadgerPath string        `koanf:"badger_path"`
	Prefix     string        `koanf:"prefix"`
}

// DirectoryConfig selects the password and principals brokers. SeedDemoUser adds
// chris@example.com with password 12345678.
type DirectoryConfig struct {
	Backend      string `koanf:"backend"`
	UsersFile    string `koanf:"users_file"`
	SQLiteDSN    string `koanf:"sqlite_dsn"`
	SeedDemoUser bool   `koanf:"seed_demo_user"`
}

// RedisConfig is shared by the redis store and the throttle. An empty Addr starts an
// in-process miniredis.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type ThrottleConfig struct {
	Enabled          bool          `koanf:"enabled"`
	MaxAttempts      int           `koanf:"max_attempts"`
	Cooldown         time.Duration `koanf:"cooldown"`
	EnableIPThrottle bool          `koanf:"ip_throttle"`
}

type AuditConfig struct {
	Enabled    bool `koanf:"enabled"`
	BufferSize int  `koanf:"buffer_size"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Latency bool   `koanf:"latency"`
	Path    string `koanf:"path"`
}

func defaultConfig() *Config {
	gate := formlogin.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: FormatJSON,
		},
		Gate: GateConfig{
			LoginPath:   gate.LoginPath,
			LogoutPath:  gate.LogoutPath,
			Redirect401: gate.Redirect401,
			Redirect403: gate.Redirect403,
		},
		Cookie: CookieConfig{
			Name:     gate.Cookie.Name,
			SameSite: "lax",
		},
		Store: StoreConfig{
			Backend: StoreMemory,
		},
		Directory: DirectoryConfig{
			Backend:      DirStatic,
			SQLiteDSN:    "file:formlogin.db?_pragma=busy_timeout(5000)",
			SeedDemoUser: true,
		},
		Throttle: ThrottleConfig{
			MaxAttempts: gate.Throttle.MaxAttempts,
			Cooldown:    gate.Throttle.Cooldown,
		},
		Audit: AuditConfig{
			BufferSize: gate.Audit.BufferSize,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load resolves the configuration. An empty path falls back to FORMLOGIN_CONFIG and then
// to DefaultConfigPaths; a missing default file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envKey maps FORMLOGIN_SECTION__FIELD_NAME to section.field_name.
func envKey(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if key == "config" {
		return ""
	}
	return strings.ReplaceAll(key, "__", ".")
}

// Validate checks the demo-specific settings. Gate settings are checked again by
// formlogin.Config.Validate during Build.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case StoreMemory, StoreRedis, StoreBadger:
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend))
	}
	if c.Store.TTL < 0 {
		errs = append(errs, errors.New("store.ttl: must not be negative"))
	}

	switch c.Directory.Backend {
	case DirStatic:
	case DirSQLite:
		if c.Directory.SQLiteDSN == "" {
			errs = append(errs, errors.New("directory.sqlite_dsn: required for sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("directory.backend: unknown backend %q", c.Directory.Backend))
	}

	switch c.Logging.Format {
	case FormatJSON, FormatConsole:
	default:
		errs = append(errs, fmt.Errorf("logging.format: unknown format %q", c.Logging.Format))
	}

	if _, err := parseSameSite(c.Cookie.SameSite); err != nil {
		errs = append(errs, err)
	}
	if _, err := decodeKey("cookie.hash_key", c.Cookie.HashKey); err != nil {
		errs = append(errs, err)
	}
	if _, err := decodeKey("cookie.block_key", c.Cookie.BlockKey); err != nil {
		errs = append(errs, err)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("metrics.path: %q must start with /", c.Metrics.Path))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", formlogin.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// GateConfig translates the loaded settings into a gate configuration.
func (c *Config) GateConfig() (formlogin.Config, error) {
	cfg := formlogin.DefaultConfig()
	cfg.LoginPath = c.Gate.LoginPath
	cfg.LogoutPath = c.Gate.LogoutPath
	cfg.Redirect401 = c.Gate.Redirect401
	cfg.Redirect403 = c.Gate.Redirect403
	cfg.TrustForwardedHeaders = c.Gate.TrustForwardedHeaders

	sameSite, err := parseSameSite(c.Cookie.SameSite)
	if err != nil {
		return formlogin.Config{}, err
	}
	hashKey, err := decodeKey("cookie.hash_key", c.Cookie.HashKey)
	if err != nil {
		return formlogin.Config{}, err
	}
	blockKey, err := decodeKey("cookie.block_key", c.Cookie.BlockKey)
	if err != nil {
		return formlogin.Config{}, err
	}
	cfg.Cookie.Name = c.Cookie.Name
	cfg.Cookie.Domain = c.Cookie.Domain
	cfg.Cookie.Secure = c.Cookie.Secure
	cfg.Cookie.SameSite = sameSite
	cfg.Cookie.MaxAge = int(c.Cookie.MaxAge / time.Second)
	cfg.Cookie.HashKey = hashKey
	cfg.Cookie.BlockKey = blockKey

	cfg.Throttle.Enabled = c.Throttle.Enabled
	cfg.Throttle.MaxAttempts = c.Throttle.MaxAttempts
	cfg.Throttle.Cooldown = c.Throttle.Cooldown
	cfg.Throttle.EnableIPThrottle = c.Throttle.EnableIPThrottle

	cfg.Audit.Enabled = c.Audit.Enabled
	cfg.Audit.BufferSize = c.Audit.BufferSize

	cfg.Metrics.Enabled = c.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = c.Metrics.Latency

	return cfg, cfg.Validate()
}

func parseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(v) {
	case "", "default":
		return http.SameSiteDefaultMode, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("cookie.same_site: unknown mode %q", v)
	}
}

func decodeKey(field, v string) ([]byte, error) {
	if v == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("%s: not hex: %w", field, err)
	}
	return b, nil
}
