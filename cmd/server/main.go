package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/outreach-timeline/internal/api"
	"github.com/ignite/outreach-timeline/internal/config"
	"github.com/ignite/outreach-timeline/internal/domain"
	"github.com/ignite/outreach-timeline/internal/events"
	"github.com/ignite/outreach-timeline/internal/pkg/logger"
	"github.com/ignite/outreach-timeline/internal/repository/dynamo"
	"github.com/ignite/outreach-timeline/internal/repository/postgres"
	"github.com/ignite/outreach-timeline/internal/service/scheduling"
	"github.com/ignite/outreach-timeline/internal/settings"
	"github.com/ignite/outreach-timeline/internal/storage"
)

var version = "dev"

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Printf("Warning: %v, using INFO", err)
	}
	logger.SetLevel(level)
	logger.SetRedactPII(cfg.Log.ShouldRedact())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	rdb := openRedis(ctx, cfg.Redis.URL)
	if rdb != nil {
		defer rdb.Close()
	}

	awsCfg, err := storage.LoadAWSConfig(ctx, storage.AWSOptions{
		Region:    cfg.AWS.Region,
		Profile:   cfg.AWS.Profile,
		AccessKey: cfg.AWS.AccessKey,
		SecretKey: cfg.AWS.SecretKey,
	})
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	clients := storage.NewClients(awsCfg)

	var source settings.Source
	switch cfg.Settings.Source {
	case config.SettingsSourceFile:
		source = settings.NewFileSource(cfg.Settings.FilePath)
	default:
		source = settings.NewS3Source(clients.S3, cfg.Settings.Bucket, cfg.Settings.Prefix)
	}

	var provider scheduling.SettingsProvider = settings.Uncached{Source: source}
	var cache *settings.Cache
	if rdb != nil {
		cache = settings.NewCache(rdb, source, cfg.Redis.SettingsTTL())
		provider = cache
	} else {
		logger.Warn("redis not configured, settings are read from the source on every request")
	}

	repo := postgres.NewOutreachRepo(db)
	var history scheduling.HistoryRepository = repo
	if cfg.History.Backend == config.HistoryBackendDynamoDB {
		history = dynamo.NewHistoryRepo(clients.DynamoDB, cfg.History.DynamoDBTable)
	}

	svc := scheduling.NewService(repo, history, provider, scheduling.WithDefaults(scheduling.Defaults{
		Timezone:            cfg.Scheduling.Timezone,
		SlotIntervalMinutes: cfg.Scheduling.SlotIntervalMinutes,
		BusinessHours: domain.BusinessHours{
			Start: cfg.Scheduling.BusinessHoursStart,
			End:   cfg.Scheduling.BusinessHoursEnd,
		},
	}))

	var subscriber *events.Subscriber
	if cfg.Events.Enabled {
		if cache == nil {
			logger.Warn("settings events enabled without a cache, subscriber not started")
		} else {
			subscriber, err = events.NewSubscriber(ctx, events.Config{
				URL:          cfg.Events.AMQPURL,
				Exchange:     cfg.Events.Exchange,
				Queue:        cfg.Events.Queue,
				Workers:      cfg.Events.Workers,
				Prefetch:     cfg.Events.Prefetch,
				DialAttempts: 5,
				DialDelay:    time.Second,
			}, cache)
			if err != nil {
				log.Fatalf("Failed to connect settings subscriber: %v", err)
			}
			if err := subscriber.Start(); err != nil {
				log.Fatalf("Failed to start settings subscriber: %v", err)
			}
		}
	}

	health := newHealthChecker(db, rdb, clients, cfg)
	router := api.NewRouter(api.NewHandlers(svc), health, api.RouterOptions{
		DefaultOrgID:   cfg.Server.DefaultOrgID,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	server := api.NewServer(api.ServerConfig{Addr: cfg.Server.Addr()}, router)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case <-done:
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if subscriber != nil {
		if err := subscriber.Close(); err != nil {
			logger.Error("subscriber close", "error", err)
		}
	}
	logger.Info("server stopped")
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(30 * time.Second)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// openRedis returns nil when no URL is configured or Redis is unreachable.
func openRedis(ctx context.Context, url string) *redis.Client {
	if url == "" {
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, running without settings cache", "error", err)
		client.Close()
		return nil
	}
	return client
}

// newHealthChecker avoids handing typed nils to the checker's interfaces.
func newHealthChecker(db *sql.DB, rdb *redis.Client, clients *storage.Clients, cfg *config.Config) *api.HealthChecker {
	var cache redis.Cmdable
	if rdb != nil {
		cache = rdb
	}
	var bucket api.BucketHeader
	if cfg.Settings.Source == config.SettingsSourceS3 {
		bucket = clients.S3
	}
	return api.NewHealthChecker(db, cache, bucket, cfg.Settings.Bucket, version)
}

