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
	"go.uber.org/zap"

	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/config"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/api/handler"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/api/router"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/jobs"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/repository"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/service"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/storage"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/pkg/database"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/pkg/jwt"
	applogger "github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/pkg/logger"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/pkg/observability"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/pkg/redis"
)

func main() {
	// 0. 本地开发时从 .env 注入环境变量（文件不存在则忽略）
	_ = godotenv.Load()

	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("ERASMUS_CONFIG"))
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
		zap.String("log_level", cfg.Log.Level),
		zap.String("timezone", cfg.Period.Timezone),
	)

	// 2.1 错误上报
	flushSentry, err := observability.InitSentry(&cfg.Sentry)
	if err != nil {
		logger.Warn("Sentry 初始化失败，错误上报不可用", zap.Error(err))
	}
	defer flushSentry()

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var (
		rdb       *redis.Client
		blacklist service.TokenBlacklist
		locker    jobs.Locker
	)
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单不可用，限流降级为进程内", zap.Error(err))
		rdb = nil
	} else {
		blacklist = rdb
		locker = rdb
	}

	// 5. 初始化 JWT 管理器与文件存储
	jwtMgr := jwt.NewManager(&cfg.Auth)

	if err := os.MkdirAll(cfg.Storage.UploadDir, 0o750); err != nil {
		logger.Fatal("创建上传目录失败", zap.String("dir", cfg.Storage.UploadDir), zap.Error(err))
	}
	store := storage.NewLocalFileStore(&cfg.Storage, logger)

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, store, blacklist, logger)
	h := handler.NewHandler(cfg, svc)

	// 7. 后台任务
	jobCtx, stopJobs := context.WithCancel(context.Background())
	runner := jobs.New(jobCtx, logger)
	runner.Every(cfg.Period.SweepInterval, jobs.PeriodExpiryJob,
		jobs.PeriodExpiry(svc.Period, locker, cfg.Period.SweepInterval, logger))

	reaper := jobs.NewOrphanReaper(store, repo.Application, &cfg.Storage, logger)
	reaperCron, err := reaper.Schedule(cfg.Storage.OrphanSchedule)
	if err != nil {
		logger.Fatal("孤儿文件清理任务注册失败", zap.String("schedule", cfg.Storage.OrphanSchedule), zap.Error(err))
	}

	// 8. 初始化路由
	engine, err := router.Setup(cfg, h, jwtMgr, rdb, logger)
	if err != nil {
		logger.Fatal("初始化路由失败", zap.Error(err))
	}

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second, // 附件上传
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 停止后台任务
	stopJobs()
	runner.Wait()
	<-reaperCron.Stop().Done()

	// 关闭数据库连接
	if err := sqlDB.Close(); err != nil {
		logger.Warn("关闭数据库连接失败", zap.Error(err))
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
