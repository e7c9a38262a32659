package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/andamento/andamento/internal/config"
	"github.com/andamento/andamento/internal/domain"
	"github.com/andamento/andamento/internal/engine"
	"github.com/andamento/andamento/internal/httpserver"
	"github.com/andamento/andamento/internal/httpserver/deps"
	"github.com/andamento/andamento/internal/logger"
	"github.com/andamento/andamento/internal/redis"
	"github.com/andamento/andamento/internal/scheduler"
	redisstore "github.com/andamento/andamento/internal/store/redis"
	"github.com/andamento/andamento/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	reloader    *scheduler.KeywordReloader
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Initialize Redis early - fail fast if unavailable
	loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	redisClient, err := redis.New(redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("Redis initialized successfully")

	store := redisstore.NewStore(redisClient)
	classifier := domain.NewClassifier()
	eng := engine.New(store, classifier, loggerClient, cfg.BatchWorkers)

	// Keyword rules reloader (only when a file is configured; the
	// classifier ships with built-in defaults otherwise).
	var reloader *scheduler.KeywordReloader
	var reloadTrigger chan struct{}
	if cfg.KeywordsFile != "" {
		loggerClient.Info("keywords file configured, initializing reloader",
			logger.String("file", cfg.KeywordsFile))
		reloadTrigger = make(chan struct{}, 1)
		reloader = scheduler.NewKeywordReloader(
			cfg.KeywordsFile,
			classifier,
			loggerClient,
			cfg.KeywordsReloadInterval,
			reloadTrigger,
		)
	} else {
		loggerClient.Info("no keywords file configured, using built-in classifier rules")
	}

	d := deps.Deps{
		Logger:             loggerClient,
		StartTime:          time.Now(),
		Version:            version.Version,
		Commit:             version.Commit,
		BuildDate:          version.BuildDate,
		GoVersion:          version.GoVersion,
		TimeNow:            time.Now,
		Store:              store,
		Engine:             eng,
		RedisClient:        redisClient,
		TrustProxy:         cfg.TrustProxy,
		IntakeBurst:        cfg.IntakeBurst,
		IntakeRefillPerMin: cfg.IntakeRefillPerMin,
		ReloadTrigger:      reloadTrigger,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		reloader:    reloader,
	}
}

func (a *App) Run() error {
	a.logger.Infof("Starting andamento %s (commit=%s, built=%s, go=%s) on %s",
		version.Version, version.Commit, version.BuildDate, version.GoVersion, a.cfg.ListenPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.reloader != nil {
		if err := a.reloader.Start(ctx); err != nil {
			return fmt.Errorf("failed to start keyword reloader: %w", err)
		}
		a.logger.Info("keyword reloader started",
			logger.Duration("interval", a.cfg.KeywordsReloadInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	if a.reloader != nil {
		a.reloader.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("Redis closed cleanly")
		}
	}

	a.logger.Info("andamento stopped cleanly")
	return nil
}
