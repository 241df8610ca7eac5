package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mailrelay/backend/internal/config"
	"mailrelay/backend/internal/health"
	"mailrelay/backend/internal/logger"
	"mailrelay/backend/internal/middleware"
	"mailrelay/backend/internal/service"
	"mailrelay/backend/internal/storage"
	"mailrelay/backend/internal/storage/hybrid"
	"mailrelay/backend/internal/storage/memory"
	redisc "mailrelay/backend/internal/storage/redis"
	sqlstore "mailrelay/backend/internal/storage/sql"
	httptransport "mailrelay/backend/internal/transport/http"
	"mailrelay/backend/internal/transport/telegram"
)

// main 启动邮件中继服务：HTTP 回调入口 + Telegram 机器人。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     cfg.Log.LogFile,
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("starting mailrelay server",
		zap.String("log_level", cfg.Log.Level),
		zap.String("alias_domain", cfg.Alias.Domain),
	)

	store, cache, err := initializeStorage(cfg, log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize storage: %v", err))
	}
	defer store.Close()

	// 服务层
	poolService := service.NewNamePoolService(store)
	allocatorService := service.NewAllocatorService(store, store)
	directoryService := service.NewDirectoryService(store)
	userService := service.NewUserService(store)

	// 启动时播种名字池，文件缺失只是告警
	seeded, err := poolService.SeedFromFile(cfg.Alias.SeedFile)
	if err != nil {
		log.Warn("seeding name pool failed", zap.String("file", cfg.Alias.SeedFile), zap.Error(err))
	} else if seeded > 0 {
		log.Info("name pool seeded", zap.String("file", cfg.Alias.SeedFile), zap.Int("inserted", seeded))
	}
	if unused, err := poolService.UnusedCount(); err == nil {
		log.Info("name pool status", zap.Int("unused", unused))
	}

	// Telegram 机器人既是用户界面也是投递端
	bot, err := telegram.New(cfg, userService, allocatorService, directoryService, log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize telegram bot: %v", err))
	}

	inboundService := service.NewInboundService(directoryService, userService, bot, log, cfg.Alias.MaxChunkSize)

	healthChecker := health.NewChecker(store, cache, log)

	rateLimiter := middleware.NewRateLimiter(cfg.Inbound.RatePerMinute)

	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:         cfg,
		Inbound:        inboundService,
		WebhookHandler: bot.WebhookHandler(),
		HealthHandler:  healthChecker.Handler(),
		RateLimiter:    rateLimiter,
		Logger:         log,
	})

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bot.Start(ctx)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// webhook 注册放到后台，让服务先开始响应
	group.Go(func() error {
		url := cfg.WebhookURL()
		if url == "" {
			log.Warn("telegram.base_url not set, skipping webhook registration")
			return nil
		}
		if err := bot.RegisterWebhook(url); err != nil {
			log.Error("webhook registration failed", zap.String("url", url), zap.Error(err))
			return nil
		}
		log.Info("telegram webhook registered", zap.String("url", url))
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down")

		if err := bot.DeleteWebhook(); err != nil {
			log.Warn("failed to delete webhook", zap.Error(err))
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)

		// HTTP 停止接收后再收尾后台协程
		bot.Stop()
		rateLimiter.Stop()
		return err
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", zap.Error(err))
	}
	log.Info("server stopped")
}

// initializeStorage 根据配置选择存储实现。
// 配置了数据库时使用 SQL 存储，再叠加可选的 Redis 读缓存；
// 否则落到内存存储，适合开发和测试。
func initializeStorage(cfg *config.Config, log *zap.Logger) (storage.Store, *redisc.Cache, error) {
	if cfg.Database.Type == "" || cfg.Database.DSN == "" {
		log.Info("using memory storage (development mode)")
		return memory.NewStore(), nil, nil
	}

	if cfg.Redis.Enabled {
		store, err := hybrid.NewStore(
			cfg.Database.Type,
			cfg.Database.DSN,
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
		)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using hybrid storage",
			zap.String("type", cfg.Database.Type),
			zap.String("redis", cfg.Redis.Address))
		return store, store.Cache(), nil
	}

	store, err := sqlstore.NewStore(
		cfg.Database.Type,
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
	)
	if err != nil {
		return nil, nil, err
	}
	log.Info("using database storage", zap.String("type", cfg.Database.Type))
	return store, nil, nil
}
