package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/campaign-mailer/internal/api"
	"github.com/ignite/campaign-mailer/internal/config"
	"github.com/ignite/campaign-mailer/internal/pkg/distlock"
	"github.com/ignite/campaign-mailer/internal/pkg/logger"
	"github.com/ignite/campaign-mailer/internal/repository/postgres"
	"github.com/ignite/campaign-mailer/internal/service/campaign"
	"github.com/ignite/campaign-mailer/internal/service/sending"
	"github.com/ignite/campaign-mailer/internal/service/suppression"
	"github.com/ignite/campaign-mailer/internal/ses"
)

func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		logger.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.SetRedactPII(cfg.Log.Redact())

	if cfg.Database.URL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		logger.Error("database unavailable", "host", extractHost(cfg.Database.URL), "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database", "host", extractHost(cfg.Database.URL))

	redisClient := openRedis(ctx, cfg.Redis.URL)
	if redisClient != nil {
		defer redisClient.Close()
	}

	suppressions := postgres.NewSuppressionRepo(db)
	filter := suppression.NewFilter(suppressions)

	mailer := sending.NewService(
		postgres.NewSettingsRepo(db),
		postgres.NewContactRepo(db),
		postgres.NewDeliveryLogRepo(db),
		filter,
		ses.Factory{BaseEndpoint: cfg.SES.Endpoint},
		sending.Options{
			UnsubscribeBaseURL:   cfg.Unsubscribe.BaseURL,
			BatchPause:           cfg.Dispatch.BatchPause(),
			SendTimeout:          cfg.Dispatch.SendTimeout(),
			DefaultBulkBatchSize: cfg.Dispatch.BulkBatchSize,
			MaxBulkBatchSize:     cfg.Dispatch.MaxBulkBatchSize,
		},
	)

	dispatcher := campaign.NewDispatcher(postgres.NewCampaignRepo(db), mailer, filter, cfg.Dispatch.BatchSize).
		WithLocker(distlock.NewLocker(redisClient, db, cfg.Dispatch.LockTTL()))

	handlers := api.NewHandlers(dispatcher, mailer, suppression.NewService(suppressions), api.NewHealthChecker(db, redisClient))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.SetupRoutes(handlers, cfg.Server.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down")
	cancel()

	// Campaign sends in flight run detached from request contexts; give
	// them the same window as open requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server stopped")
}

func openDatabase(ctx context.Context, c config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", c.URL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(c.MaxOpenConns)
	db.SetMaxIdleConns(c.MaxIdleConns)
	db.SetConnMaxLifetime(c.ConnLifetime())

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// openRedis connects when a URL is configured. A nil client makes dispatch
// locks fall back to Postgres advisory locks.
func openRedis(ctx context.Context, url string) *redis.Client {
	if url == "" {
		logger.Info("redis not configured, using postgres advisory locks")
		return nil
	}
	var client *redis.Client
	opts, err := redis.ParseURL(url)
	if err != nil {
		client = redis.NewClient(&redis.Options{Addr: url})
	} else {
		client = redis.NewClient(opts)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis connection failed, falling back to postgres advisory locks", "error", err)
		client.Close()
		return nil
	}
	logger.Info("redis connected, distributed locking enabled")
	return client
}
