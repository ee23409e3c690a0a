package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	// Connection settings
	Address  string // host:port
	Password string
	DB       int // Database number (0-15)

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// Timeouts
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultRedisConfig returns default Redis configuration
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Address:  "localhost:6379",
		Password: "",
		DB:       0,

		PoolSize:     10,
		MinIdleConns: 2,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// incrScript increments an integer counter and attaches the expiry only when
// the increment created the key, so a window keeps counting from its first
// failure rather than sliding on every write.
var incrScript = redis.NewScript(`
	local value = redis.call('INCRBY', KEYS[1], ARGV[1])
	if tonumber(ARGV[2]) > 0 and value == tonumber(ARGV[1]) then
		redis.call('PEXPIRE', KEYS[1], ARGV[2])
	end
	return value
`)

// incrFloatScript is the INCRBYFLOAT counterpart of incrScript. The expiry is
// attached only when the key had no TTL yet (fresh accumulator).
var incrFloatScript = redis.NewScript(`
	local value = redis.call('INCRBYFLOAT', KEYS[1], ARGV[1])
	if tonumber(ARGV[2]) > 0 and redis.call('PTTL', KEYS[1]) < 0 then
		redis.call('PEXPIRE', KEYS[1], ARGV[2])
	end
	return value
`)

// RedisStore implements Store on top of a shared Redis instance, giving
// counters that survive process restarts and are visible across replicas.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store and verifies connectivity.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client, mainly for tests.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Read returns the value for key, with ok=false when absent.
func (s *RedisStore) Read(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

// Write sets key to value with an optional expiry.
func (s *RedisStore) Write(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes key, reporting whether it existed.
func (s *RedisStore) Delete(ctx context.Context, key string) (bool, error) {
	removed, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return removed > 0, nil
}

// Exists reports whether key is present.
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", key, err)
	}
	return n > 0, nil
}

// Increment atomically adds by to the integer counter at key.
func (s *RedisStore) Increment(ctx context.Context, key string, by int64, ttl time.Duration) (int64, error) {
	result, err := incrScript.Run(ctx, s.client, []string{key}, by, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}
	return result, nil
}

// IncrementFloat atomically adds by to the float accumulator at key.
func (s *RedisStore) IncrementFloat(ctx context.Context, key string, by float64, ttl time.Duration) (float64, error) {
	result, err := incrFloatScript.Run(ctx, s.client, []string{key}, by, ttl.Milliseconds()).Float64()
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}
	return result, nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
