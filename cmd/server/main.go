package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/DEV-OpenSCI/desci-form/config"
	"github.com/DEV-OpenSCI/desci-form/internal/api/handler"
	"github.com/DEV-OpenSCI/desci-form/internal/api/router"
	"github.com/DEV-OpenSCI/desci-form/internal/options"
	"github.com/DEV-OpenSCI/desci-form/internal/repository"
	"github.com/DEV-OpenSCI/desci-form/internal/service"
	"github.com/DEV-OpenSCI/desci-form/pkg/apiclient"
	"github.com/DEV-OpenSCI/desci-form/pkg/database"
	"github.com/DEV-OpenSCI/desci-form/pkg/jwt"
	applogger "github.com/DEV-OpenSCI/desci-form/pkg/logger"
	"github.com/DEV-OpenSCI/desci-form/pkg/metrics"
	"github.com/DEV-OpenSCI/desci-form/pkg/redis"
)

// version 构建时通过 -ldflags "-X main.version=..." 注入
var version = "dev"

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("DESCI_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("upstream", cfg.Upstream.BaseURL),
		zap.String("log_level", cfg.Log.Level),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	metrics.Register()
	checks := map[string]handler.Checker{}

	// 3. 连接 Redis（可选：连接失败时降级为进程内会话存储）
	var sessions repository.SessionStore
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，会话存储降级为内存，填写码校验不限流", zap.Error(err))
		mem := repository.NewMemorySessionStore(cfg.Auth.SessionTTL)
		defer mem.Stop()
		sessions = mem
		rdb = nil
	} else {
		sessions = repository.NewRedisSessionStore(rdb, cfg.Auth.SessionTTL)
		checks["redis"] = rdb.Ping
	}

	// 4. 连接数据库（可选：仅用于提交回执）
	var db *gorm.DB
	if cfg.Database.Enabled {
		db, err = database.NewDB(&cfg.Database, cfg.Log.Level, logger)
		if err != nil {
			logger.Fatal("数据库连接失败", zap.Error(err))
		}
		sqlDB, err := db.DB()
		if err != nil {
			logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
		}
		if err := database.RunMigrations(sqlDB, logger); err != nil {
			logger.Fatal("数据库迁移失败", zap.Error(err))
		}
		checks["database"] = sqlDB.PingContext
		logger.Info("数据库连接成功")
	}

	// 5. 选项目录：内置默认 + 可选 YAML 覆盖（热重载）+ 可选后端拉取
	catalog := options.Default()
	if cfg.Options.File != "" {
		if err := options.Watch(ctx, cfg.Options.File, catalog, logger); err != nil {
			logger.Fatal("加载选项目录失败", zap.String("file", cfg.Options.File), zap.Error(err))
		}
	}

	client := apiclient.New(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, logger,
		apiclient.WithLocale(cfg.Form.DefaultLocale))

	var remote *options.Remote
	if cfg.Options.Remote {
		remote = options.NewRemote(client, cfg.Options.CacheTTL)
	}

	// 6. 依赖注入: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(sessions, db)
	svc := service.NewService(cfg, repo, client, catalog, remote, nil, logger)
	defer svc.Form.Close()
	h := handler.NewHandler(svc, jwtMgr, handler.NewHealthHandler(version, checks))

	// 7. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 2*cfg.Upstream.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	if db != nil {
		if closeDB, _ := db.DB(); closeDB != nil {
			closeDB.Close()
		}
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
