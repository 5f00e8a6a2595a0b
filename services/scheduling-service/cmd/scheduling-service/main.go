package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tiep1406/appointment--system/libs/config"
	"github.com/tiep1406/appointment--system/libs/db"
	"github.com/tiep1406/appointment--system/libs/httpx"
	"github.com/tiep1406/appointment--system/libs/kafkax"
	otelx "github.com/tiep1406/appointment--system/libs/otel"
	"github.com/tiep1406/appointment--system/libs/runtime"
	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/consumer"
	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/directory"
	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/handlers"
	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/inbox"
	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/outbox"
	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/scheduling"
	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/store"
)

func schedulingConfig(mode string) scheduling.Config {
	var cfg scheduling.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "simple":
		cfg = scheduling.SimpleConfig()
	case "rich":
		cfg = scheduling.RichConfig()
	default:
		panic("SCHEDULING_MODE must be simple or rich")
	}
	if mins := config.Int("CANCEL_LEAD_MINUTES", -1); mins >= 0 {
		cfg.CancelLeadTime = time.Duration(mins) * time.Minute
	}
	if g := config.Int("SLOT_GRANULARITY_MINUTES", 0); g > 0 {
		cfg.GranularityMinutes = g
	}
	return cfg
}

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "scheduling-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	engineCfg := schedulingConfig(config.String("SCHEDULING_MODE", "simple"))
	kafkaBrokers := config.String("KAFKA_BROKERS", "")

	var (
		reservations scheduling.Store
		dir          directory.Directory
		readyChecks  []runtime.ReadyCheck
	)

	// With DATABASE_URL the service persists to Postgres and syncs the
	// directory from the Kafka feed. Without it, everything is in memory
	// and the directory comes from DIRECTORY_FILE (or the built-in
	// single resource).
	if dbURL := config.String("DATABASE_URL", ""); dbURL != "" {
		pool, err := db.Open(ctx, dbURL)
		if err != nil {
			logger.Error("db connection failed", "err", err)
			panic(err)
		}
		defer pool.Close()

		outboxRepo := outbox.NewRepository(pool)
		reservations = store.NewPostgres(pool, outboxRepo)
		pgDir := directory.NewPostgres(pool)
		dir = pgDir
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})

		publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
			Brokers:   kafkaBrokers,
			PollEvery: 2 * time.Second,
			BatchSize: 50,
		})
		go publisher.Run(ctx)

		if topic := config.String("KAFKA_DIRECTORY_TOPIC", consumer.EventResourceUpdated); kafkaBrokers != "" && topic != "" {
			feed := consumer.New(logger, inbox.NewRepository(pool), consumer.Config{
				Brokers: kafkaBrokers,
				GroupID: config.String("KAFKA_GROUP_ID", service),
				Topic:   topic,
			}, consumer.DirectoryFeedHandler(logger, pgDir))
			go feed.Run(ctx)
			readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)})
		}
	} else {
		reservations = store.NewMemory()
		static, err := directory.LoadStatic(config.String("DIRECTORY_FILE", ""))
		if err != nil {
			logger.Error("directory load failed", "err", err)
			panic(err)
		}
		dir = static
	}

	engine := scheduling.New(reservations, dir, engineCfg)

	router := mux.NewRouter()
	runtime.MountHealth(router, readyChecks...)
	handlers.NewReservationHandler(engine, dir, logger).Register(router)

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecovery(logger),
		httpx.WithTimeout(time.Duration(config.Int("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second),
		httpx.WithBodyLimit(1 << 20),
	}
	if origins := config.String("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		middlewares = append(middlewares, httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: strings.Split(origins, ","),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
			AllowedHeaders: []string{"Content-Type", "X-Role"},
			MaxAge:         10 * time.Minute,
		}))
	}
	limit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		limiter := httpx.NewRedisRateLimiter(rdb, limit, time.Minute, service)
		failOpen := config.Bool("RATE_LIMIT_FAIL_OPEN", true)
		middlewares = append(middlewares, limiter.Middleware(logger, failOpen))
	} else {
		middlewares = append(middlewares, httpx.NewRateLimiter(limit, time.Minute).Middleware())
	}

	httpHandler := httpx.Chain(router, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, "scheduling")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "mode", config.String("SCHEDULING_MODE", "simple"))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
