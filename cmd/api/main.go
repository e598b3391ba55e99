package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"

	"github.com/Valiantic/purehealth-api/internal/account"
	"github.com/Valiantic/purehealth-api/internal/billing"
	"github.com/Valiantic/purehealth-api/internal/common"
	"github.com/Valiantic/purehealth-api/internal/config"
	"github.com/Valiantic/purehealth-api/internal/db"
	"github.com/Valiantic/purehealth-api/internal/expense"
	"github.com/Valiantic/purehealth-api/internal/health"
	"github.com/Valiantic/purehealth-api/internal/obs"
	"github.com/Valiantic/purehealth-api/internal/queue"
	"github.com/Valiantic/purehealth-api/internal/receipt"
	"github.com/Valiantic/purehealth-api/internal/referrer"
	"github.com/Valiantic/purehealth-api/internal/report"
	"github.com/Valiantic/purehealth-api/internal/store"
	"github.com/Valiantic/purehealth-api/internal/testcatalog"
	"github.com/Valiantic/purehealth-api/internal/transaction"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "purehealth")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "purehealth-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, "purehealth-api")
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("apply migrations")
	}

	queries := store.New(pool)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	taskClient := asynq.NewClient(asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	validate := validator.New()
	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	debouncer := &receipt.Debouncer{Delay: cfg.ReceiptDebounce}
	defer debouncer.Stop()
	checker := &receipt.Checker{
		Q:        queries,
		Redis:    redisClient,
		TTL:      cfg.ReceiptCacheTTL,
		Debounce: debouncer,
	}
	receiptHandler := &receipt.Handler{Checker: checker}

	txSvc := &transaction.Service{
		Q:        queries,
		Pool:     pool,
		Validate: validate,
		Policy:   billing.ParsePolicy(cfg.AllocationPolicy),
		Tasks:    &queue.Enqueuer{Client: taskClient},
	}
	txHandler := &transaction.Handler{
		Svc:            txSvc,
		DefaultPerPage: cfg.DefaultPageSize,
		MaxPerPage:     cfg.MaxPageSize,
		OnSaved:        checker.Invalidate,
	}

	catalogSvc := &testcatalog.Service{
		Q:     queries,
		Cache: testcatalog.NewCache(redisClient, cfg.CatalogCacheTTL),
	}
	catalogHandler := &testcatalog.Handler{Svc: catalogSvc}

	referrerHandler := &referrer.Handler{Svc: &referrer.Service{Q: queries}}
	expenseHandler := &expense.Handler{Svc: &expense.Service{Q: queries}}
	accountHandler := &account.Handler{Svc: &account.Service{Q: queries}}

	reportSvc := &report.Service{Q: queries, Redis: redisClient, TTL: cfg.ReportCacheTTL}
	reportHandler := &report.Handler{Svc: reportSvc}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker:      readinessChecker{db: pool, redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/transactions", func(tr chi.Router) {
			tr.Get("/", txHandler.List)
			tr.Get("/receipt-check", receiptHandler.Check)
			tr.Get("/{id}", txHandler.Get)
			tr.Group(func(g chi.Router) {
				g.Use(idem.Middleware)
				g.Post("/", txHandler.Create)
				g.Put("/{id}", txHandler.Update)
			})
		})

		v.Route("/tests", func(tc chi.Router) {
			tc.Get("/", catalogHandler.ListTests)
			tc.Post("/", catalogHandler.CreateTest)
			tc.Put("/{id}", catalogHandler.UpdateTest)
			tc.Delete("/{id}", catalogHandler.DeleteTest)
		})
		v.Get("/departments", catalogHandler.ListDepartments)
		v.Post("/departments", catalogHandler.CreateDepartment)

		v.Route("/referrers", func(rf chi.Router) {
			rf.Get("/", referrerHandler.List)
			rf.Post("/", referrerHandler.Create)
			rf.Get("/{id}", referrerHandler.Get)
			rf.Put("/{id}", referrerHandler.Update)
			rf.Delete("/{id}", referrerHandler.Delete)
		})

		v.Route("/expenses", func(ex chi.Router) {
			ex.Get("/", expenseHandler.List)
			ex.Post("/", expenseHandler.Create)
			ex.Delete("/{id}", expenseHandler.Delete)
		})

		v.Route("/accounts", func(ac chi.Router) {
			ac.Get("/", accountHandler.List)
			ac.Post("/", accountHandler.Create)
			ac.Post("/login", accountHandler.Login)
			ac.Put("/{id}", accountHandler.Update)
			ac.Put("/{id}/password", accountHandler.ChangePassword)
			ac.Delete("/{id}", accountHandler.Delete)
		})

		v.Get("/reports/daily", reportHandler.Daily)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		health.SetReady(false)
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(drainCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}
