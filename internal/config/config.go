package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Env  string `env:"APP_ENV" envDefault:"dev"`
	Port int    `env:"PORT" envDefault:"8080"`

	// DBURL is used by the session-bound pool; row level security applies to it.
	DBURL string `env:"DATABASE_URL"`
	// ServiceDBURL connects with a role that bypasses row level security.
	ServiceDBURL string `env:"SERVICE_DATABASE_URL"`

	JWTSecret        string        `env:"JWT_SECRET"`
	JWTAccessTTL     time.Duration `env:"JWT_ACCESS_TTL" envDefault:"1h"`
	JWTRefreshTTL    time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`
	RefreshThreshold time.Duration `env:"SESSION_REFRESH_THRESHOLD" envDefault:"5m"`

	// AdminDeleteSecret is the shared fallback secret for account deletion
	// until an admin sets one through the settings endpoint.
	AdminDeleteSecret string `env:"ADMIN_DELETE_SECRET"`

	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
	AdminName     string `env:"ADMIN_NAME" envDefault:"Administrator"`

	AdminPathPrefixes []string `env:"ADMIN_PATH_PREFIXES" envSeparator:"," envDefault:"/admin"`
	CORSOrigins       []string `env:"CORS_ORIGINS" envSeparator:","`
	// TrustedProxies lists the proxies whose X-Forwarded-For is believed. Empty trusts
	// none, and the client IP is the socket peer.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	ContentCacheTTL time.Duration `env:"CONTENT_CACHE_TTL" envDefault:"30s"`

	OTELEndpoint string `env:"OTEL_ENDPOINT"`
}

func Load() (Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DBURL == "" {
		cfg.DBURL = buildDBURL()
	}

	if cfg.ServiceDBURL == "" {
		cfg.ServiceDBURL = cfg.DBURL
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProd() {
			return Config{}, errors.New("JWT_SECRET is required in prod")
		}
		cfg.JWTSecret = "dev-only-secret-change-me"
	}

	cfg.TrustedProxies = nonEmpty(cfg.TrustedProxies)

	// a threshold at or past the access TTL would rotate on every request
	if cfg.RefreshThreshold >= cfg.JWTAccessTTL {
		return Config{}, fmt.Errorf("SESSION_REFRESH_THRESHOLD (%s) must be shorter than JWT_ACCESS_TTL (%s)",
			cfg.RefreshThreshold, cfg.JWTAccessTTL)
	}

	return cfg, nil
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c Config) IsProd() bool {
	return c.Env == "prod"
}

func (c Config) UseRedis() bool {
	return c.RedisAddr != ""
}

// dbParts mirrors the discrete DB_* variables some deployments still set.
type dbParts struct {
	Host     string `env:"DB_HOST" envDefault:"127.0.0.1"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"fellowship"`
	Password string `env:"DB_PASSWORD" envDefault:"fellowship"`
	Name     string `env:"DB_NAME" envDefault:"fellowship"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

func buildDBURL() string {
	p, err := env.ParseAs[dbParts]()
	if err != nil {
		p = dbParts{Host: "127.0.0.1", Port: "5432", User: "fellowship", Password: "fellowship", Name: "fellowship", SSLMode: "disable"}
	}

	return p.url()
}

func (p dbParts) url() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, p.Port),
		Path:     "/" + p.Name,
		RawQuery: url.Values{"sslmode": {p.SSLMode}}.Encode(),
	}
	return u.String()
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

// WithTimeoutFrom keeps request cancellation and tracing attached to the deadline.
func WithTimeoutFrom(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, duration)
}
