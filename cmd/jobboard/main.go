package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/jobboard/internal/jobboard/auth"
	"github.com/gartstein/jobboard/internal/jobboard/cache"
	"github.com/gartstein/jobboard/internal/jobboard/config"
	"github.com/gartstein/jobboard/internal/jobboard/controller"
	"github.com/gartstein/jobboard/internal/jobboard/db"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"github.com/gartstein/jobboard/internal/jobboard/handlers"
	"github.com/gartstein/jobboard/internal/jobboard/logger"
	"github.com/gartstein/jobboard/internal/jobboard/storage"
	"github.com/gartstein/jobboard/internal/jobboard/validation"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const readinessInterval = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl := initLogger(cfg)
	defer func(zl *zap.Logger) {
		_ = zl.Sync()
	}(zl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := connectDatabase(cfg)
	if err != nil {
		zl.Fatal("failed to initialize database", zap.Error(err))
	}
	defer func() { _ = repo.Close() }()

	producer, closeProducer, err := initProducer(cfg, zl)
	if err != nil {
		zl.Fatal("failed to initialize Kafka producer", zap.Error(err))
	}
	defer closeProducer()

	lookupCache, closeCache := initCache(ctx, cfg, zl)
	defer closeCache()

	store, err := storage.NewLocalStore(cfg.Storage.UploadDir, cfg.Storage.PublicPrefix, cfg.Storage.MaxLogoBytes)
	if err != nil {
		zl.Fatal("failed to initialize logo storage", zap.Error(err))
	}

	validator, err := validation.New()
	if err != nil {
		zl.Fatal("failed to compile request schemas", zap.Error(err))
	}

	api := handlers.NewAPI(
		controller.NewUserService(repo, producer, cfg.Auth.JWTSecret, cfg.Auth.BcryptCost, zl),
		controller.NewCompanyService(repo, producer, lookupCache, store, zl),
		controller.NewJobService(repo, producer, lookupCache, zl),
		controller.NewApplicationService(repo, producer, zl),
		auth.NewGate(cfg.Auth.JWTSecret, repo, zl),
		validator,
		handlers.APIConfig{
			CookieSecure: cfg.Server.CookieSecure,
			MaxBodyBytes: cfg.Server.MaxBodyBytes,
			// room for the form fields next to the logo itself
			MaxUploadBytes: cfg.Storage.MaxLogoBytes + 1<<20,
		},
		zl,
	)

	server := handlers.NewServer(cfg.Server.GRPCPort, cfg.Server.HTTPPort, zl)
	server.WatchReadiness(ctx, repo, readinessInterval)

	if err := server.RegisterHTTPGateway(
		ctx,
		[]grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		},
		api,
		handlers.GatewayOptions{
			CORSOrigins: cfg.Server.CORSOrigins,
			Assets:      store.Handler(),
			AssetPrefix: store.Prefix(),
		}); err != nil {
		zl.Fatal("Failed to register HTTP gateway", zap.Error(err))
	}

	go func() {
		if err := server.Start(); err != nil {
			zl.Fatal("Failed to start servers", zap.Error(err))
		}
	}()

	waitForShutdown(server, zl)
}

// initLogger builds the zap logger from the logging settings.
func initLogger(cfg *config.Config) *zap.Logger {
	zl, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	return zl
}

// connectDatabase retries until the database accepts connections or the
// configured timeout passes.
func connectDatabase(cfg *config.Config) (*db.Repository, error) {
	dbConf := &db.Config{
		Driver:       cfg.Database.Driver,
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		DBName:       cfg.Database.Name,
		SSLMode:      cfg.Database.SSLMode,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = cfg.Database.ConnectTimeout

	var repo *db.Repository
	err := backoff.Retry(func() error {
		var err error
		repo, err = db.NewRepository(dbConf)
		return err
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("database unreachable after %s: %w", cfg.Database.ConnectTimeout, err)
	}
	return repo, nil
}

// initProducer publishes to Kafka when brokers are configured and discards
// events otherwise.
func initProducer(cfg *config.Config, zl *zap.Logger) (controller.EventProducer, func(), error) {
	if !cfg.KafkaEnabled() {
		zl.Info("Kafka disabled, domain events are discarded")
		return events.Discard{Logger: zl}, func() {}, nil
	}
	producer, err := events.NewProducer(cfg.Kafka.Brokers, zl, cfg.Kafka.Topic)
	if err != nil {
		return nil, nil, err
	}
	return producer, producer.Close, nil
}

// initCache falls back to no caching when Redis is not configured or not
// reachable at startup.
func initCache(ctx context.Context, cfg *config.Config, zl *zap.Logger) (controller.Cache, func()) {
	if cfg.Redis.Address == "" {
		return cache.Nop{}, func() {}
	}
	c, err := cache.NewRedis(ctx, cache.Config{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.Redis.TTL,
	})
	if err != nil {
		zl.Warn("Redis unavailable, running without cache", zap.Error(err))
		return cache.Nop{}, func() {}
	}
	return c, func() { _ = c.Close() }
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, then shuts down servers.
func waitForShutdown(server *handlers.Server, zl *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	server.Stop()
	zl.Info("Servers stopped properly")
}
