package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"llm_resilience/internal/breaker"
	"llm_resilience/internal/budget"
	"llm_resilience/internal/config"
	"llm_resilience/internal/logging"
	"llm_resilience/internal/middleware"
	"llm_resilience/internal/orchestrator"
	"llm_resilience/internal/retry"
	"llm_resilience/internal/storage"
	"llm_resilience/internal/store"
	"llm_resilience/internal/tenancy"
)

// Dependencies aggregates all services the HTTP layer needs.
type Dependencies struct {
	Store      store.Store
	Breaker    breaker.Config
	Budget     *budget.Tracker
	Tenancy    tenancy.Config
	Overrides  *storage.TenantBudgetRepository
	Records    logging.RecordSink
	Executor   *orchestrator.Executor
	Logger     *logging.Logger
	db         *storage.DB
	redisStore *store.RedisStore
}

// NewRouter creates an HTTP router with all dependencies wired up
func NewRouter(cfg *config.Config) (*http.ServeMux, *Dependencies, error) {
	logger := logging.NewLogger("httpapi")

	deps := &Dependencies{
		Tenancy: tenancy.Config{Enabled: cfg.Tenancy.Enabled},
		Breaker: breaker.Config{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			FailureWindow:    cfg.Breaker.FailureWindow,
			Cooldown:         cfg.Breaker.Cooldown,
		},
		Logger: logger,
	}

	// Initialize the shared counter store
	switch cfg.Store.Backend {
	case "redis":
		redisStore, err := store.NewRedisStore(store.RedisConfig{
			Address:      cfg.Store.RedisAddress,
			Password:     cfg.Store.RedisPassword,
			DB:           cfg.Store.RedisDB,
			PoolSize:     cfg.Store.RedisPoolSize,
			MinIdleConns: cfg.Store.RedisMinIdleConns,
			DialTimeout:  cfg.Store.RedisDialTimeout,
			ReadTimeout:  cfg.Store.RedisReadTimeout,
			WriteTimeout: cfg.Store.RedisWriteTimeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		deps.Store = redisStore
		deps.redisStore = redisStore
	case "memory":
		deps.Store = store.NewMemoryStore()
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	// Initialize the tenant budget override store when a database is configured
	var overrides budget.OverrideLookup
	if cfg.Database.URL != "" {
		db, err := storage.NewDB(storage.DBConfig{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		deps.db = db
		deps.Overrides = db.NewTenantBudgetRepository()
		overrides = deps.Overrides
	}

	deps.Budget = budget.NewTracker(
		deps.Store,
		budget.StaticConfig{
			DailyLimitUSD: cfg.Budget.DailyLimitUSD,
			Enforcement:   budget.Enforcement(cfg.Budget.Enforcement),
		},
		deps.Tenancy,
		overrides,
	)

	// Initialize the attempt record sink
	switch cfg.AttemptSink.Backend {
	case "file":
		sink, err := logging.NewFileSink(
			cfg.AttemptSink.FilePathTemplate,
			cfg.AttemptSink.FileMaxSize,
			cfg.AttemptSink.FileMaxFiles,
			cfg.AttemptSink.BufferSize,
			cfg.AttemptSink.FlushInterval,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize file sink: %w", err)
		}
		deps.Records = sink
	case "s3":
		writer, err := logging.NewS3Writer(
			context.Background(),
			cfg.AttemptSink.S3Bucket,
			cfg.AttemptSink.S3Region,
			cfg.AttemptSink.S3Prefix,
			cfg.AttemptSink.PodName,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize S3 sink: %w", err)
		}
		deps.Records = logging.NewS3Sink(
			writer,
			cfg.AttemptSink.BufferSize,
			cfg.AttemptSink.FlushSize,
			cfg.AttemptSink.FlushInterval,
		)
	default:
		deps.Records = logging.NewNoopRecordSink()
	}

	// The executor is the host-facing entry point; every sealed attempt it
	// produces is exported through the record sink selected above.
	deps.Executor = orchestrator.NewExecutor(
		deps.Store,
		deps.Breaker,
		deps.Budget,
		retry.BackoffSpec{
			Strategy: retry.Strategy(cfg.Backoff.Strategy),
			Base:     cfg.Backoff.Base,
			MaxDelay: cfg.Backoff.MaxDelay,
		},
		deps.Tenancy,
		nil,
		orchestrator.WithRecordSink(deps.Records),
	)

	mux := http.NewServeMux()
	registerRoutes(mux, deps, cfg)

	return mux, deps, nil
}

func registerRoutes(mux *http.ServeMux, deps *Dependencies, cfg *config.Config) {
	// Health check endpoint - public
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Admin endpoints - protected with AdminJWTMiddleware
	adminJWT := middleware.AdminJWTMiddleware(cfg.JWTSecret)
	mux.Handle("/admin/circuits", adminJWT(http.HandlerFunc(deps.handleAdminCircuits)))
	mux.Handle("/admin/circuits/reset", adminJWT(http.HandlerFunc(deps.handleAdminCircuitReset)))
	mux.Handle("/admin/budgets", adminJWT(http.HandlerFunc(deps.handleAdminBudgets)))
	mux.Handle("/admin/budgets/reset", adminJWT(http.HandlerFunc(deps.handleAdminBudgetReset)))
	mux.Handle("/admin/tenants/budgets", adminJWT(http.HandlerFunc(deps.handleAdminTenantBudgets)))
}

// Close releases connections held by the HTTP layer.
func (d *Dependencies) Close() error {
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			return err
		}
	}
	if d.redisStore != nil {
		return d.redisStore.Close()
	}
	return nil
}
