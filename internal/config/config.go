package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds configuration for the resilience service.
type Config struct {
	HTTPPort  string
	JWTSecret []byte

	Store       StoreConfig
	Database    DatabaseConfig
	Tenancy     TenancyConfig
	Breaker     BreakerConfig
	Budget      BudgetConfig
	Backoff     BackoffConfig
	AttemptSink AttemptSinkConfig
}

// StoreConfig selects and configures the shared counter store
type StoreConfig struct {
	Backend string // "redis" or "memory"

	RedisAddress      string
	RedisPassword     string
	RedisDB           int
	RedisPoolSize     int
	RedisMinIdleConns int
	RedisDialTimeout  time.Duration
	RedisReadTimeout  time.Duration
	RedisWriteTimeout time.Duration
}

// DatabaseConfig holds settings for the tenant budget override store.
// An empty URL disables overrides entirely.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// TenancyConfig holds the multi-tenancy toggle
type TenancyConfig struct {
	Enabled bool
}

// BreakerConfig holds circuit breaker thresholds
type BreakerConfig struct {
	FailureThreshold int
	FailureWindow    time.Duration
	Cooldown         time.Duration
}

// BudgetConfig holds the static process-wide budget
type BudgetConfig struct {
	DailyLimitUSD float64
	Enforcement   string // "hard" or "soft"
}

// BackoffConfig holds retry backoff settings
type BackoffConfig struct {
	Strategy string // "exponential" or "constant"
	Base     time.Duration
	MaxDelay time.Duration
}

// AttemptSinkConfig configures where sealed attempt records are exported
type AttemptSinkConfig struct {
	Backend string // "noop", "file" or "s3"

	FilePathTemplate string
	FileMaxSize      int64
	FileMaxFiles     int

	BufferSize    int
	FlushSize     int
	FlushInterval time.Duration

	S3Bucket string
	S3Region string
	S3Prefix string
	PodName  string
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvInt64(key string, defaultValue int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	intVal, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return defaultValue
	}
	return intVal
}

func getEnvFloat(key string, defaultValue float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	floatVal, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultValue
	}
	return floatVal
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

func getEnvBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(val)
	if err != nil {
		return defaultValue
	}
	return boolVal
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	backend := getEnvString("STORE_BACKEND", "redis")
	if backend != "redis" && backend != "memory" {
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", backend)
	}

	cfg := &Config{
		HTTPPort:  getEnvString("HTTP_PORT", "8080"),
		JWTSecret: []byte(getEnvString("JWT_SECRET", "supersecretkey")),
		Store: StoreConfig{
			Backend:           backend,
			RedisAddress:      getEnvString("REDIS_ADDRESS", "localhost:6379"),
			RedisPassword:     getEnvString("REDIS_PASSWORD", ""),
			RedisDB:           getEnvInt("REDIS_DB", 0),
			RedisPoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			RedisMinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			RedisDialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			RedisReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			RedisWriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
		},
		Tenancy: TenancyConfig{
			Enabled: getEnvBool("MULTI_TENANCY_ENABLED", false),
		},
		Breaker: BreakerConfig{
			FailureThreshold: getEnvInt("BREAKER_FAILURE_THRESHOLD", 5),
			FailureWindow:    getEnvDuration("BREAKER_FAILURE_WINDOW", 1*time.Minute),
			Cooldown:         getEnvDuration("BREAKER_COOLDOWN", 5*time.Minute),
		},
		Budget: BudgetConfig{
			DailyLimitUSD: getEnvFloat("BUDGET_DAILY_LIMIT_USD", 0),
			Enforcement:   getEnvString("BUDGET_ENFORCEMENT", "hard"),
		},
		Backoff: BackoffConfig{
			Strategy: getEnvString("BACKOFF_STRATEGY", "exponential"),
			Base:     getEnvDuration("BACKOFF_BASE", 500*time.Millisecond),
			MaxDelay: getEnvDuration("BACKOFF_MAX_DELAY", 30*time.Second),
		},
		AttemptSink: AttemptSinkConfig{
			Backend:          getEnvString("ATTEMPT_SINK_BACKEND", "noop"),
			FilePathTemplate: getEnvString("ATTEMPT_SINK_FILE_PATH_TEMPLATE", "/var/log/llm-resilience/attempts-%s.jsonl"),
			FileMaxSize:      getEnvInt64("ATTEMPT_SINK_FILE_MAX_SIZE", 10_485_760), // default 10 MB
			FileMaxFiles:     getEnvInt("ATTEMPT_SINK_FILE_MAX_FILES", 5),
			BufferSize:       getEnvInt("ATTEMPT_SINK_BUFFER_SIZE", 10000),
			FlushSize:        getEnvInt("ATTEMPT_SINK_FLUSH_SIZE", 1000),
			FlushInterval:    getEnvDuration("ATTEMPT_SINK_FLUSH_INTERVAL", 1*time.Minute),
			S3Bucket:         getEnvString("ATTEMPT_SINK_S3_BUCKET", ""),
			S3Region:         getEnvString("ATTEMPT_SINK_S3_REGION", "us-east-1"),
			S3Prefix:         getEnvString("ATTEMPT_SINK_S3_PREFIX", "attempts/"),
			PodName:          getEnvString("POD_NAME", "guard-0"),
		},
	}

	if cfg.Budget.Enforcement != "hard" && cfg.Budget.Enforcement != "soft" {
		return nil, fmt.Errorf("unknown BUDGET_ENFORCEMENT %q", cfg.Budget.Enforcement)
	}
	if cfg.Backoff.Strategy != "exponential" && cfg.Backoff.Strategy != "constant" {
		return nil, fmt.Errorf("unknown BACKOFF_STRATEGY %q", cfg.Backoff.Strategy)
	}

	return cfg, nil
}
