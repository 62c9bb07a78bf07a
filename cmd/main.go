package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/sbilibin2017/gw-users/docs"
	"github.com/sbilibin2017/gw-users/internal/config"
	"github.com/sbilibin2017/gw-users/internal/handlers"
	"github.com/sbilibin2017/gw-users/internal/health"
	"github.com/sbilibin2017/gw-users/internal/logger"
	"github.com/sbilibin2017/gw-users/internal/migrations"
	"github.com/sbilibin2017/gw-users/internal/password"
	"github.com/sbilibin2017/gw-users/internal/repositories"
	"github.com/sbilibin2017/gw-users/internal/services"

	"github.com/sbilibin2017/gw-users/internal/middlewares"

	_ "github.com/jackc/pgx/v5/stdlib"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A" // Version of the service
	buildDate    = "N/A" // Build date
	buildCommit  = "N/A" // Git commit hash
)

// @title gw-users API
// @version 1.0.0
// @description Microservice for managing users
// @host localhost:8080
// @BasePath /
// @schemes http
func main() {
	printBuildInfo()
	configPath := parseFlags()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}

// printBuildInfo prints the build version, commit hash, and build date.
func printBuildInfo() {
	fmt.Printf("Build version: %s\nBuild date: %s\nBuild commit: %s\n", buildVersion, buildDate, buildCommit)
}

// parseFlags parses command-line flags and returns the config file path.
func parseFlags() string {
	c := flag.String("c", "config.env", "Path to configuration file")
	flag.Parse()
	return *c
}

// kafkaBatchTimeout bounds how long a single event waits for its batch to fill.
const kafkaBatchTimeout = 10 * time.Millisecond

// newKafkaWriter builds the user events writer. Events are sent one per
// request, so the batch is flushed after kafkaBatchTimeout instead of the
// kafka-go default of one second.
func newKafkaWriter(cfg *config.Config) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaUserEventsTopic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           kafkaBatchTimeout,
		WriteTimeout:           5 * time.Second,
	}
}

// run initializes the logger, database, Redis, Kafka and the HTTP and gRPC
// servers, then blocks until ctx is cancelled or a shutdown signal arrives.
func run(ctx context.Context, cfg *config.Config) error {
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()
	logger.Log.Infow("Logger initialized", "level", cfg.LogLevel)

	// Connect to PostgreSQL
	db, err := sqlx.ConnectContext(ctx, "pgx", cfg.DSN())
	if err != nil {
		return fmt.Errorf("PostgreSQL connection error: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.PGMaxOpenConns)
	db.SetMaxIdleConns(cfg.PGMaxIdleConns)

	if err := migrations.Run(ctx, db.DB); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	logger.Log.Info("Database migrations applied")

	// Rate limit counters are shared through Redis when it is configured
	var limitCounter httprate.LimitCounter
	if addr := cfg.RedisAddr(); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			PoolSize:     cfg.RedisPoolSize,
			MinIdleConns: cfg.RedisMinIdleConns,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("Redis connection error: %w", err)
		}
		defer rdb.Close()
		limitCounter = repositories.NewRateLimitCounterRepository(rdb, time.Second)
		logger.Log.Infow("Rate limit counters stored in Redis", "addr", addr)
	}

	// Kafka user events
	var kafkaWriter services.KafkaWriter
	if len(cfg.KafkaBrokers) > 0 {
		w := newKafkaWriter(cfg)
		defer w.Close()
		kafkaWriter = w
		logger.Log.Infow("Publishing user events to Kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaUserEventsTopic)
	}

	hasher, err := password.New(cfg.PasswordHashAlgorithm)
	if err != nil {
		return err
	}

	// Initialize repositories and services
	userRepo := repositories.NewUserRepository(db, middlewares.GetTxFromContext)
	userService := services.NewUserService(userRepo, userRepo, hasher, kafkaWriter, middlewares.AfterCommit)

	// Setup router
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middlewares.LoggingMiddleware(logger.Log))
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins, cfg.CORSMethods, cfg.CORSHeaders, cfg.CORSCredentials))

	r.Get("/health", handlers.NewHealthHandler(db))

	docs.SwaggerInfo.Title = cfg.ProjectName
	docs.SwaggerInfo.Host = cfg.HTTPAddr()

	r.Group(func(r chi.Router) {
		r.Use(middlewares.RateLimitMiddleware(cfg.RateLimitPerMinute, limitCounter))

		r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

		if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
			r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))
		}

		r.Route(cfg.APIV1Prefix+"/users", func(r chi.Router) {
			r.Use(middlewares.TxMiddleware(db))
			r.Get("/", handlers.NewListUsersHandler(userService))
			r.Post("/", handlers.NewCreateUserHandler(userService))
			r.Get("/{id:[0-9]+}", handlers.NewGetUserHandler(userService))
			r.Put("/{id:[0-9]+}", handlers.NewUpdateUserHandler(userService))
			r.Delete("/{id:[0-9]+}", handlers.NewDeleteUserHandler(userService))
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	errChan := make(chan error, 2)
	ctxShutdown, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	var healthServer *health.Server
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", net.JoinHostPort(cfg.AppHost, cfg.GRPCPort))
		if err != nil {
			return fmt.Errorf("failed to listen for gRPC: %w", err)
		}
		healthServer = health.NewServer()
		go func() {
			if err := healthServer.Serve(lis); err != nil {
				errChan <- fmt.Errorf("gRPC server failed: %w", err)
			}
		}()
	}

	go func() {
		logger.Log.Infow("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	select {
	case <-ctxShutdown.Done():
		logger.Log.Info("Shutdown signal received, stopping servers...")
	case serveErr := <-errChan:
		if healthServer != nil {
			healthServer.Shutdown()
		}
		return serveErr
	}

	if healthServer != nil {
		healthServer.Shutdown()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorw("HTTP server shutdown error", "error", err)
	}

	logger.Log.Info("HTTP server stopped gracefully")
	return nil
}
