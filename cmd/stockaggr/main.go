package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"stockaggr/internal/api"
	"stockaggr/internal/cache"
	"stockaggr/internal/config"
	"stockaggr/internal/database"
	"stockaggr/internal/datasource"
	"stockaggr/internal/datasource/provider"
	"stockaggr/internal/logging"
	"stockaggr/internal/monitor"
	"stockaggr/internal/scheduler"
)

func main() {
	configFile := flag.String("config", "configs/config.yaml", "Configuration file path")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logging.SetGlobalLogger(logger)
	logger.Infof("starting %s %s", cfg.App.Name, cfg.App.Version)

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, cfg.Database.MigrationsPath)
	if err != nil {
		logger.Fatalf("Failed to create migrator: %v", err)
	}
	if err := migrator.Up(); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		redisCache, err = cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			logger.WithError(err).Warn("redis unavailable, caching in memory only")
			redisCache = nil
		}
	}

	var redisLayer cache.Cacher
	if redisCache != nil {
		redisLayer = redisCache
	}
	respCache := cache.NewResponseCache(redisLayer, cache.NewMemoryCache(cfg.Cache.MaxEntries), logger)
	defer respCache.Close()

	metrics := monitor.NewMetrics()

	adapters := map[string]datasource.Adapter{
		datasource.SourceEastmoney: provider.NewEastmoney(cfg.DataSource.CallTimeout),
		datasource.SourceSina:      provider.NewSina(cfg.DataSource.CallTimeout),
		datasource.SourceTencent:   provider.NewTencent(cfg.DataSource.CallTimeout),
		datasource.SourceTushare:   provider.NewTushare(cfg.DataSource.CallTimeout),
	}

	var bridge datasource.BridgeAdapter
	if cfg.DataSource.Bridge.Enabled {
		b, err := provider.NewBridge(&provider.BridgeConfig{
			Exchange:  cfg.DataSource.Bridge.Exchange,
			APIKey:    cfg.DataSource.Bridge.APIKey,
			APISecret: cfg.DataSource.Bridge.APISecret,
		})
		if err != nil {
			logger.WithError(err).Warn("bridge adapter unavailable, continuing without last-resort fallback")
		} else {
			bridge = b
		}
	}

	store := datasource.NewPostgresStore(db)
	manager := datasource.NewManager(store, adapters, bridge, datasource.Options{
		RefreshInterval: cfg.DataSource.RefreshInterval,
		CallTimeout:     cfg.DataSource.CallTimeout,
		Logger:          logger,
		Metrics:         metrics,
	})
	defer manager.CloseAll()

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := manager.Initialize(initCtx); err != nil {
		logger.WithError(err).Warn("initial source configuration load failed, will retry on demand")
	}
	cancel()

	var prewarmer *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		prewarmer = scheduler.New(manager, logger)
		if err := prewarmer.Register(&cfg.Scheduler); err != nil {
			logger.Fatalf("Failed to register pre-warm jobs: %v", err)
		}
		prewarmer.Start()
		defer prewarmer.Stop()
	}

	server := api.NewServer(cfg, api.Deps{
		DB:      db,
		Manager: manager,
		Cache:   respCache,
		Metrics: metrics,
		Logger:  logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("received signal %v, shutting down", sig)
	case err := <-errCh:
		logger.WithError(err).Error("server exited")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}
