package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"well_bbs/internal/api"
	"well_bbs/internal/core/config"
	"well_bbs/internal/core/database"
	"well_bbs/internal/core/logger"
	"well_bbs/internal/core/runtime"
	"well_bbs/internal/core/snowflake"
	"well_bbs/internal/pkg/eventbus"
	"well_bbs/internal/service"
)

func main() {
	// 1. 加载配置 (Viper)
	if err := config.Init("."); err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Get()

	// 2. 初始化 Logger
	if err := logger.Init(&cfg.Logging); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting well_bbs...")

	// 3. 初始化数据库（含迁移）
	if err := database.Init(&cfg.Database); err != nil {
		logger.Error("Failed to init database", logger.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close()

	// 4. 初始化 Redis (L2 Cache + 配置广播)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	defer redisClient.Close()

	// 5. 初始化 Snowflake
	if err := snowflake.Init(&cfg.Snowflake); err != nil {
		logger.Error("Failed to init snowflake", logger.String("error", err.Error()))
		os.Exit(1)
	}

	// 6. 指标与事件总线
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	clock := clockwork.NewRealClock()

	bus := eventbus.New(eventbus.Config{
		Workers:      cfg.Events.Workers,
		QueueSize:    cfg.Events.QueueSize,
		MaxAttempts:  cfg.Events.MaxAttempts,
		RetryBackoff: cfg.Events.GetRetryBackoff(),
		Clock:        clock,
		Registerer:   registry,
	})

	// 7. 初始化 Service
	svc := service.NewContainer(service.ContainerDeps{
		DB:         database.Get(),
		Redis:      redisClient,
		Config:     cfg,
		Clock:      clock,
		Registerer: registry,
		Events:     bus,
	})
	bus.Subscribe(service.TopicPostPublished, "notification_fanout", svc.Fanout.Handle)
	bus.Subscribe(service.TopicPostPublished, "image_linker", svc.Images.Handle)
	if indexer := service.NewSearchIndexer(cfg.Indexing, cfg.App.BaseURL, redisClient); indexer != nil {
		bus.Subscribe(service.TopicPostPublished, "search_indexer", indexer.Handle)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go svc.Moderation.WatchInvalidation(ctx)

	// 8. Runtime 预热
	rt := runtime.New(svc.Forums, svc.Moderation, clock)
	if err := rt.Warmup(ctx); err != nil {
		logger.Error("Failed to warm up runtime", logger.String("error", err.Error()))
	}
	go rt.Run(ctx, 5*time.Minute)

	// 9. 注册路由
	gin.SetMode(cfg.App.Mode)
	router := api.NewRouter(api.RouterDeps{
		Security: cfg.Security,
		Services: svc,
		Warmer:   rt,
		Clock:    clock,
	})

	router.GET("/health", func(c *gin.Context) {
		if err := database.Ping(); err != nil {
			c.JSON(503, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(200, gin.H{
			"status":    "healthy",
			"runtime":   rt.Status(),
			"timestamp": time.Now().Unix(),
		})
	})

	// Health Check (详细版 - 用于负载均衡)
	router.GET("/healthz", func(c *gin.Context) {
		code, status := 200, "ok"
		checks := make(map[string]string)

		if err := database.Ping(); err != nil {
			code, status = 503, "error"
			checks["database"] = err.Error()
		} else {
			checks["database"] = "ok"
		}

		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			code, status = 503, "error"
			checks["redis"] = err.Error()
		} else {
			checks["redis"] = "ok"
		}

		c.JSON(code, gin.H{
			"status":    status,
			"checks":    checks,
			"timestamp": time.Now().Unix(),
		})
	})

	router.GET("/runtime", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": rt.Status()})
	})

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// 10. 启动 HTTP Server
	srv := &http.Server{
		Addr:    cfg.App.GetServerAddr(),
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", logger.String("error", err.Error()))
		}
	}()

	// pprof Server (可选，用于性能分析)
	go func() {
		logger.Info("PProf server starting", logger.String("addr", "localhost:6060"))
		if err := http.ListenAndServe("localhost:6060", nil); err != nil && err != http.ErrServerClosed {
			logger.Error("PProf server error", logger.String("error", err.Error()))
		}
	}()

	// Graceful shutdown (优雅关闭)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 1. 停止接收新请求
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", logger.String("error", err.Error()))
	}

	// 2. 等待已提交的事件投递完成
	bus.Close()

	// 3. 停止后台任务
	stop()

	logger.Info("Server exited gracefully")
}
