package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	KeywordsFile           string        // optional classifier rules file; empty = built-in rules only
	KeywordsReloadInterval time.Duration // interval to reload the keywords file (default: 24h)

	BatchWorkers int // max concurrent case numbers per intake batch

	// Rate limit on the intake endpoint
	IntakeBurst        int // token bucket size
	IntakeRefillPerMin int // tokens per IP per minute

	TrustProxy bool // true => trust X-Forwarded-For headers (e.g. cloudflared)

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("ANDAMENTO_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("ANDAMENTO_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("ANDAMENTO_LOG_LEVEL", "info"),
		PrettyLog: mustBool("ANDAMENTO_PRETTY_LOG", false),

		// Classifier keywords
		KeywordsFile:           getenv("ANDAMENTO_KEYWORDS_FILE", ""),
		KeywordsReloadInterval: mustDuration("ANDAMENTO_KEYWORDS_RELOAD_INTERVAL", 24*time.Hour),

		// Intake
		BatchWorkers:       getenvInt("ANDAMENTO_BATCH_WORKERS", 4),
		IntakeBurst:        getenvInt("ANDAMENTO_INTAKE_BURST", 20),
		IntakeRefillPerMin: getenvInt("ANDAMENTO_INTAKE_REFILL_PER_MIN", 60),
		TrustProxy:         mustBool("ANDAMENTO_TRUST_PROXY", false),

		// Redis settings
		RedisAddr:             requireEnv("ANDAMENTO_REDIS_ADDR"),
		RedisUser:             getenv("ANDAMENTO_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("ANDAMENTO_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("ANDAMENTO_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("ANDAMENTO_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),
	}

	// Validate Redis password configuration
	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("FATAL: ANDAMENTO_REDIS_PASSWORD is required when ANDAMENTO_REDIS_PASSWORD_REQUIRED=true")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
