package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jetonpay/jeton/internal/token"
)

const (
	defaultAppName        = "Jeton"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultTokenSupply    = "1000000"
	defaultAccessTTL      = 15 * time.Minute
	defaultRefreshTTL     = 720 * time.Hour
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultDBMaxConns     = 16
	defaultDBMinConns     = 2
	defaultDBConnIdle     = 5 * time.Minute
	defaultRedisPoolSize  = 10
	defaultRedisMinIdle   = 2
)

// Config captures application runtime configuration loaded from environment
// variables.
type Config struct {
	AppName         string
	AppEnv          string
	Port            string
	LogLevel        string
	DatabaseURL     string
	RedisURL        string
	EventStream     string
	JWTSecret       string
	RefreshSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	ShutdownPeriod  time.Duration
	IdempotencyTTL  time.Duration

	DBMaxConns     int32
	DBMinConns     int32
	DBConnIdleTime time.Duration
	RedisPoolSize  int
	RedisMinIdle   int

	// TokenSupply is the total supply minted when the ledger is first
	// created; it is ignored when a persisted ledger already exists.
	TokenSupply token.Amount
	// TreasuryAccount receives the full supply on first boot. Empty means a
	// fresh account is generated at startup.
	TreasuryAccount string
}

// Load reads configuration values from the environment and populates a
// Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:         getEnv("APP_NAME", defaultAppName),
		AppEnv:          getEnv("APP_ENV", defaultAppEnv),
		Port:            getEnv("PORT", defaultPort),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		EventStream:     os.Getenv("EVENT_STREAM"),
		JWTSecret:       getEnv("JWT_SECRET", "dev-access-secret"),
		RefreshSecret:   getEnv("REFRESH_SECRET", "dev-refresh-secret"),
		AccessTokenTTL:  defaultAccessTTL,
		RefreshTokenTTL: defaultRefreshTTL,
		ShutdownPeriod:  defaultShutdownDelay,
		IdempotencyTTL:  defaultIdempotencyTTL,
		DBMaxConns:      defaultDBMaxConns,
		DBMinConns:      defaultDBMinConns,
		DBConnIdleTime:  defaultDBConnIdle,
		RedisPoolSize:   defaultRedisPoolSize,
		RedisMinIdle:    defaultRedisMinIdle,
		TreasuryAccount: os.Getenv("TREASURY_ACCOUNT_ID"),
	}

	supply, err := token.ParseAmount(getEnv("TOKEN_SUPPLY", defaultTokenSupply))
	if err != nil {
		return Config{}, fmt.Errorf("invalid TOKEN_SUPPLY: %w", err)
	}
	cfg.TokenSupply = supply

	if cfg.TreasuryAccount != "" {
		if _, err := token.ParseAccountID(cfg.TreasuryAccount); err != nil {
			return Config{}, fmt.Errorf("invalid TREASURY_ACCOUNT_ID: %w", err)
		}
	}

	for _, d := range []struct {
		env  string
		dst  *time.Duration
		secs string
	}{
		{"ACCESS_TOKEN_TTL", &cfg.AccessTokenTTL, ""},
		{"REFRESH_TOKEN_TTL", &cfg.RefreshTokenTTL, ""},
		{"SHUTDOWN_TIMEOUT", &cfg.ShutdownPeriod, "SHUTDOWN_TIMEOUT_SECONDS"},
		{"IDEMPOTENCY_TTL", &cfg.IdempotencyTTL, "IDEMPOTENCY_TTL_SECONDS"},
		{"DB_CONN_IDLE_TIME", &cfg.DBConnIdleTime, ""},
	} {
		if d.secs != "" {
			if v := os.Getenv(d.secs); v != "" {
				seconds, err := strconv.Atoi(v)
				if err != nil {
					return Config{}, fmt.Errorf("invalid %s: %w", d.secs, err)
				}
				*d.dst = time.Duration(seconds) * time.Second
				continue
			}
		}
		if v := os.Getenv(d.env); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", d.env, err)
			}
			*d.dst = parsed
		}
	}

	for _, n := range []struct {
		env string
		dst *int
	}{
		{"REDIS_POOL_SIZE", &cfg.RedisPoolSize},
		{"REDIS_MIN_IDLE_CONNS", &cfg.RedisMinIdle},
	} {
		if v := os.Getenv(n.env); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed < 0 {
				return Config{}, fmt.Errorf("invalid %s: %q", n.env, v)
			}
			*n.dst = parsed
		}
	}
	for _, n := range []struct {
		env string
		dst *int32
	}{
		{"DB_MAX_CONNS", &cfg.DBMaxConns},
		{"DB_MIN_CONNS", &cfg.DBMinConns},
	} {
		if v := os.Getenv(n.env); v != "" {
			parsed, err := strconv.ParseInt(v, 10, 32)
			if err != nil || parsed < 0 {
				return Config{}, fmt.Errorf("invalid %s: %q", n.env, v)
			}
			*n.dst = int32(parsed)
		}
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.JWTSecret == "dev-access-secret" || cfg.RefreshSecret == "dev-refresh-secret" {
			return Config{}, fmt.Errorf("JWT_SECRET and REFRESH_SECRET must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// IsDev reports whether the app runs in a development environment, where
// in-memory fallbacks for Postgres and Redis are allowed.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
