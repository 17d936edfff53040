package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nidhogg/pulse/internal/api"
	"github.com/nidhogg/pulse/internal/cache"
	"github.com/nidhogg/pulse/internal/config"
	"github.com/nidhogg/pulse/internal/graph"
	"github.com/nidhogg/pulse/internal/notify"
	"github.com/nidhogg/pulse/internal/orchestrator"
	"github.com/nidhogg/pulse/internal/project"
	"github.com/nidhogg/pulse/internal/store"
	"github.com/nidhogg/pulse/internal/watch"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/pulse.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config %s: %v\n", cfgPath, err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Server.LogLevel)
	defer logger.Sync()
	logger.Info("Starting Pulse...", zap.String("config", cfgPath))

	ctx := context.Background()
	deps := api.Deps{
		Timeout: cfg.Orchestration.Timeout(),
	}

	// Project source: PostgreSQL, then a data file, then the sample project.
	var pgStore *store.Store
	if cfg.Database.Postgres.DSN != "" {
		ps, pgErr := store.New(ctx, cfg.Database.Postgres.DSN, logger)
		if pgErr != nil {
			logger.Warn("PostgreSQL unavailable, running without persistence", zap.Error(pgErr))
		} else {
			if mErr := ps.Migrate(ctx, cfg.MigrationsDir); mErr != nil {
				logger.Fatal("migration failed", zap.Error(mErr))
			}
			pgStore = ps
			deps.Source = ps
			deps.Runs = ps
		}
	}
	if deps.Source == nil && cfg.DataFile != "" {
		deps.Source = project.FileSource{Path: cfg.DataFile}
		logger.Info("Serving project data from file", zap.String("path", cfg.DataFile))
	}

	var rdb *redis.Client
	if cfg.Database.Redis.URL != "" {
		c, rErr := cache.Connect(ctx, cfg.Database.Redis.URL)
		if rErr != nil {
			logger.Warn("Redis unavailable, running without cache", zap.Error(rErr))
		} else {
			rdb = c
			deps.Cache = cache.New(rdb, cfg.Orchestration.CacheTTL(), logger)
			deps.Journal = orchestrator.NewStreamJournal(rdb, cfg.Orchestration.JournalLength, logger)
			logger.Info("Redis connected")
		}
	}

	var graphStore *graph.Store
	if cfg.Database.Neo4j.URI != "" {
		gs, gErr := graph.NewStore(cfg.Database.Neo4j.URI, cfg.Database.Neo4j.User, cfg.Database.Neo4j.Password, logger)
		if gErr == nil {
			gErr = gs.Ping(ctx)
		}
		if gErr != nil {
			logger.Warn("Neo4j unavailable, running without graph mirror", zap.Error(gErr))
		} else {
			graphStore = gs
			deps.Graph = gs
			logger.Info("Neo4j connected")
		}
	}

	var notifiers notify.Multi
	if sc := cfg.Notify.Slack; sc.Enabled && sc.BotToken != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(sc.BotToken, sc.Channel, logger,
			notify.WithSlackPersona(sc.Username, sc.Emoji)))
		logger.Info("Slack notifications enabled", zap.String("channel", sc.Channel))
	}
	if dc := cfg.Notify.Discord; dc.Enabled && dc.BotToken != "" {
		dn, dErr := notify.NewDiscordNotifier(dc.BotToken, dc.ChannelID, logger)
		if dErr != nil {
			logger.Warn("Discord notifier not created", zap.Error(dErr))
		} else {
			notifiers = append(notifiers, dn)
			logger.Info("Discord notifications enabled", zap.String("channel", dc.ChannelID))
		}
	}
	if len(notifiers) > 0 {
		deps.Notifier = notifiers
	}

	handler := api.NewHandler(deps, logger)

	port := fmt.Sprintf("%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Pulse listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	watcher := watch.New(cfg.Orchestration.WatchInterval(), 2*cfg.Orchestration.Timeout(),
		cfg.Orchestration.Watch, handler.Refresh, logger)
	if len(cfg.Orchestration.Watch) > 0 {
		watcher.Start(ctx)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Pulse...")
	watcher.Stop()
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if graphStore != nil {
		graphStore.Close(shutdownCtx)
	}
	if rdb != nil {
		rdb.Close()
	}
	if pgStore != nil {
		pgStore.Close()
	}
	logger.Info("Pulse stopped")
}

func newLogger(level string) *zap.Logger {
	zcfg := zap.NewDevelopmentConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := zcfg.Build()
	if err != nil {
		logger, _ = zap.NewDevelopment()
	}
	return logger
}
