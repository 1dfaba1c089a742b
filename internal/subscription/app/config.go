package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/harborview/identity/pkg/authkit"
)

type Config struct {
	// JWKSURL points at the issuer's key set. The base URL is derived from
	// it for the PEM fetch endpoint too.
	JWKSURL string

	// PublicKeyFile selects static trust material instead of JWKS
	// fetching. Takes precedence over JWKSURL when both are set.
	PublicKeyFile string

	Issuer              string        // Issuer the tokens must carry
	KeyCacheTTL         time.Duration // Fetched key set lifetime (default: 5m)
	RevocationMirror    time.Duration // Local revocation answer lifetime (default: 10s)
	FetchTimeout        time.Duration // Trust material fetch timeout (default: 3s)
	RedisAddr           string        // Shared revocation registry / metadata cache
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (default: info)
	LogFormat           string        // Log format (default: json)
	Port                int           // HTTP server port (default: 8081)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

// IdentityBaseURL returns the issuer base URL derived from the JWKS URL.
func (c Config) IdentityBaseURL() string {
	return strings.TrimSuffix(c.JWKSURL, "/.well-known/jwks.json")
}

func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		JWKSURL:             getEnvOrDefault("SUBS_JWKS_URL", "http://localhost:8080/.well-known/jwks.json"),
		PublicKeyFile:       os.Getenv("SUBS_PUBLIC_KEY_FILE"),
		Issuer:              getEnvOrDefault("SUBS_ISSUER", "harborview-identity"),
		KeyCacheTTL:         getEnvDurationOrDefault("SUBS_KEY_CACHE_TTL", authkit.DefaultKeyTTL),
		RevocationMirror:    getEnvDurationOrDefault("SUBS_REVOCATION_MIRROR_TTL", 10*time.Second),
		FetchTimeout:        getEnvDurationOrDefault("SUBS_FETCH_TIMEOUT", authkit.DefaultFetchTimeout),
		RedisAddr:           os.Getenv("SUBS_REDIS_ADDR"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8081),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
