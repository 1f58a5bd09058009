package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Verifier  VerifierConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	SitesFile string
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	CookieDomain   string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// VerifierConfig points at the remote identity verification service
type VerifierConfig struct {
	URL           string
	EnvironmentID string
	APIKey        string
	Timeout       time.Duration
}

type SessionConfig struct {
	InactivityTimeout time.Duration
	VisitorSecret     string
	VisitorIdleTTL    time.Duration
	MaxVisitors       int
	CleanupInterval   time.Duration
}

type RateLimitConfig struct {
	MaxAttempts int
	Window      time.Duration
	// Per-IP ceiling applied by httprate in front of the access routes
	IPRequestsPerMinute int
}

// DatabaseConfig is only used when the Postgres audit sink is enabled
type DatabaseConfig struct {
	Enabled           bool
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// RedisConfig enables the shared rate-limit store when Addr is set
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	visitorSecret := getEnv("VISITOR_SECRET", "")
	if visitorSecret == "" {
		return nil, fmt.Errorf("VISITOR_SECRET is required")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: parseList(getEnv("TRUSTED_PROXIES", "")),
			CookieDomain:   getEnv("COOKIE_DOMAIN", ""),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Verifier: LoadVerifier(),
		Session: SessionConfig{
			InactivityTimeout: getEnvAsDuration("SESSION_INACTIVITY_TIMEOUT", 30*time.Minute),
			VisitorSecret:     visitorSecret,
			VisitorIdleTTL:    getEnvAsDuration("VISITOR_IDLE_TTL", 2*time.Hour),
			MaxVisitors:       getEnvAsInt("MAX_VISITORS", 10000),
			CleanupInterval:   getEnvAsDuration("CLEANUP_INTERVAL", 5*time.Minute),
		},
		RateLimit: RateLimitConfig{
			MaxAttempts:         getEnvAsInt("ACCESS_MAX_ATTEMPTS", 5),
			Window:              getEnvAsDuration("ACCESS_WINDOW", 15*time.Minute),
			IPRequestsPerMinute: getEnvAsInt("ACCESS_IP_REQUESTS_PER_MINUTE", 30),
		},
		Database: LoadDatabase(),
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", ""),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "giftgate:ratelimit:"),
		},
		SitesFile: getEnv("SITES_FILE", "sites.yaml"),
	}

	if cfg.Verifier.URL == "" {
		return nil, fmt.Errorf("VERIFIER_URL is required")
	}

	if cfg.Database.Enabled && cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required when AUDIT_DB_ENABLED is set")
	}

	if err := validateVisitorSecret(visitorSecret, env); err != nil {
		return nil, err
	}

	if env == "production" && cfg.Verifier.APIKey == "" {
		return nil, fmt.Errorf("VERIFIER_API_KEY is required in production")
	}

	return cfg, nil
}

// LoadVerifier reads the remote verifier settings from the environment
func LoadVerifier() VerifierConfig {
	return VerifierConfig{
		URL:           getEnv("VERIFIER_URL", ""),
		EnvironmentID: getEnv("VERIFIER_ENVIRONMENT_ID", ""),
		APIKey:        getEnv("VERIFIER_API_KEY", ""),
		Timeout:       getEnvAsDuration("VERIFIER_TIMEOUT", 10*time.Second),
	}
}

// LoadDatabase reads the audit database settings from the environment
func LoadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Enabled:           getEnvAsBool("AUDIT_DB_ENABLED", false),
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              getEnvAsInt("DB_PORT", 5432),
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", ""),
		Name:              getEnv("DB_NAME", "giftgate"),
		SSLMode:           getEnv("DB_SSLMODE", "disable"),
		MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 10)),
		MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 2)),
		MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
		MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
		HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
	}
}

// validateVisitorSecret enforces minimum strength for the visitor cookie signing key
func validateVisitorSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("VISITOR_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("VISITOR_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{}
		}
		return parseList(originsStr)
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
}

// parseList splits a comma-separated value, dropping empty entries
func parseList(value string) []string {
	out := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
