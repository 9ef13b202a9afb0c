package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/config"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/api/handler"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/api/middleware"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/model"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/pkg/jwt"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/pkg/metrics"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 可为 nil：黑名单检查跳过，限流降级为进程内令牌桶
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) (*gin.Engine, error) {
	if cfg.Log.Format != "console" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := handler.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.BodyLimit()))
	r.Use(middleware.Metrics())

	// ── 健康检查与指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	var blacklist middleware.TokenChecker
	if rdb != nil {
		blacklist = rdb
	}
	jwtAuth := middleware.JWTAuth(jwtMgr, blacklist)
	adminOnly := middleware.RoleAuth(model.RoleAdministrator)
	applicant := middleware.RoleAuth(model.RoleRegistered, model.RoleAdministrator)

	loginLimit := middleware.RateLimit(rdb, cfg.RateLimit.LoginLimit, cfg.RateLimit.Window)
	submitLimit := middleware.RateLimit(rdb, cfg.RateLimit.SubmitLimit, cfg.RateLimit.Window)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", loginLimit, h.Auth.Login)
			auth.POST("/register", loginLimit, h.Auth.Register)
			auth.POST("/refresh", h.Auth.RefreshToken)
			auth.POST("/check-username", h.Auth.CheckUsername)
		}

		// 申请期与院校（公开）
		v1.GET("/periods/current", h.Period.GetCurrentPeriod)
		v1.GET("/periods/current.ics", h.Period.CurrentPeriodICS)
		v1.GET("/universities", h.University.ListUniversities)
		v1.GET("/universities/:id", h.University.GetUniversity)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(jwtAuth)
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 申请期管理
			authorized.GET("/periods", adminOnly, h.Period.ListPeriods)
			authorized.POST("/periods", adminOnly, h.Period.SetPeriod)

			authorized.POST("/universities", adminOnly, h.University.CreateUniversity)

			// 申请人（学生或管理员）
			apps := authorized.Group("/applications")
			{
				apps.POST("", applicant, submitLimit, h.Application.SubmitApplication)
				apps.GET("/check-status", applicant, h.Application.CheckStatus)
				apps.GET("/me", applicant, h.Application.GetMyApplication)
				// 管理员或申请人本人（Service 层鉴权）
				apps.GET("/:id/files/:type", h.Application.GetApplicationFile)
				apps.GET("/:id/files/:type/:index", h.Application.GetApplicationFile)
			}

			authorized.GET("/results", h.Result.PublishedResults)

			// 管理员
			admin := authorized.Group("/admin")
			admin.Use(adminOnly)
			{
				admin.GET("/applications", h.Application.ListApplications)
				admin.GET("/applications/accepted", h.Application.ListAccepted)
				admin.POST("/applications/accept", h.Result.BulkAccept)
				admin.DELETE("/applications/:id", h.Application.DeleteApplication)
				admin.POST("/results/publish", h.Result.PublishResults)
				admin.GET("/results/export", h.Result.ExportResults)
			}
		}
	}

	return r, nil
}
