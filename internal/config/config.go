package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName          = "PlayForge"
	defaultAppEnv           = "development"
	defaultPort             = "3000"
	defaultLogLevel         = "info"
	defaultLogFormat        = "json"
	defaultShutdownDelay    = 10 * time.Second
	defaultIdempotencyTTL   = 24 * time.Hour
	defaultAccessTokenTTL   = 15 * time.Minute
	defaultRefreshTokenTTL  = 7 * 24 * time.Hour
	defaultAdminSessionTTL  = 24 * time.Hour
	defaultVerificationTTL  = 15 * time.Minute
	defaultStorageDir       = "./storage"
	defaultMaxUploadMB      = 100
	defaultLoginRateLimit   = 10
	devJWTSecret            = "dev-access-secret"
	devRefreshSecret        = "dev-refresh-secret"
	devAdminSecret          = "dev-admin-secret"
	idemTTLSecondsEnvVar    = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar        = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar   = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar  = "SHUTDOWN_TIMEOUT"
	accessTTLEnvVar         = "ACCESS_TOKEN_TTL"
	refreshTTLEnvVar        = "REFRESH_TOKEN_TTL"
	adminSessionTTLEnvVar   = "ADMIN_SESSION_TTL"
	verificationTTLEnvVar   = "VERIFICATION_TOKEN_TTL"
	maxUploadEnvVar         = "MAX_UPLOAD_MB"
	loginRateLimitEnvVar    = "LOGIN_RATE_LIMIT"
	cookieSecureEnvVar      = "COOKIE_SECURE"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	LogFormat      string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	JWTSecret       string
	RefreshSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	AdminJWTSecret  string
	AdminSessionTTL time.Duration
	CookieSecure    bool

	// VerificationTokenTTL bounds how long a device token stays redeemable.
	// Zero keeps tokens valid until consumed.
	VerificationTokenTTL time.Duration

	StorageDir     string
	MaxUploadBytes int
	LoginRateLimit int
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:              getEnv("APP_NAME", defaultAppName),
		AppEnv:               getEnv("APP_ENV", defaultAppEnv),
		Port:                 getEnv("PORT", defaultPort),
		LogLevel:             strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFormat:            strings.ToLower(getEnv("LOG_FORMAT", defaultLogFormat)),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisURL:             os.Getenv("REDIS_URL"),
		ShutdownPeriod:       defaultShutdownDelay,
		IdempotencyTTL:       defaultIdempotencyTTL,
		JWTSecret:            os.Getenv("JWT_SECRET"),
		RefreshSecret:        os.Getenv("REFRESH_SECRET"),
		AccessTokenTTL:       defaultAccessTokenTTL,
		RefreshTokenTTL:      defaultRefreshTokenTTL,
		AdminJWTSecret:       os.Getenv("ADMIN_JWT_SECRET"),
		AdminSessionTTL:      defaultAdminSessionTTL,
		VerificationTokenTTL: defaultVerificationTTL,
		StorageDir:           getEnv("STORAGE_DIR", defaultStorageDir),
		MaxUploadBytes:       defaultMaxUploadMB * 1024 * 1024,
		LoginRateLimit:       defaultLoginRateLimit,
	}

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = durationFromEnv("", accessTTLEnvVar, cfg.AccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = durationFromEnv("", refreshTTLEnvVar, cfg.RefreshTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.AdminSessionTTL, err = durationFromEnv("", adminSessionTTLEnvVar, cfg.AdminSessionTTL); err != nil {
		return Config{}, err
	}
	if cfg.VerificationTokenTTL, err = durationFromEnv("", verificationTTLEnvVar, cfg.VerificationTokenTTL); err != nil {
		return Config{}, err
	}

	if v := os.Getenv(maxUploadEnvVar); v != "" {
		mb, err := strconv.Atoi(v)
		if err != nil || mb <= 0 {
			return Config{}, fmt.Errorf("invalid %s: %q", maxUploadEnvVar, v)
		}
		cfg.MaxUploadBytes = mb * 1024 * 1024
	}

	if v := os.Getenv(loginRateLimitEnvVar); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", loginRateLimitEnvVar, err)
		}
		cfg.LoginRateLimit = n
	}

	if v := os.Getenv(cookieSecureEnvVar); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", cookieSecureEnvVar, err)
		}
		cfg.CookieSecure = secure
	} else {
		cfg.CookieSecure = !cfg.IsDev()
	}

	if err := cfg.applySecrets(); err != nil {
		return Config{}, err
	}

	if cfg.DatabaseURL == "" && !cfg.IsDev() {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}

	return cfg, nil
}

// applySecrets fills development secrets and refuses to start elsewhere without them.
func (c *Config) applySecrets() error {
	secrets := []struct {
		name string
		dst  *string
		dev  string
	}{
		{"JWT_SECRET", &c.JWTSecret, devJWTSecret},
		{"REFRESH_SECRET", &c.RefreshSecret, devRefreshSecret},
		{"ADMIN_JWT_SECRET", &c.AdminJWTSecret, devAdminSecret},
	}
	for _, s := range secrets {
		if *s.dst != "" {
			continue
		}
		if !c.IsDev() {
			return fmt.Errorf("%s must be set when APP_ENV=%s", s.name, c.AppEnv)
		}
		*s.dst = s.dev
	}
	return nil
}

// IsDev reports whether the application runs in a local development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
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

func durationFromEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if secondsKey != "" {
		if v := os.Getenv(secondsKey); v != "" {
			seconds, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
			}
			return time.Duration(seconds) * time.Second, nil
		}
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
