package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/DEV-OpenSCI/desci-form/config"
	"github.com/DEV-OpenSCI/desci-form/internal/api/handler"
	"github.com/DEV-OpenSCI/desci-form/internal/api/middleware"
	"github.com/DEV-OpenSCI/desci-form/pkg/jwt"
	"github.com/DEV-OpenSCI/desci-form/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎；rdb 为 nil 时不限流
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查与指标 ──
	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 公开路由（可携带会话令牌）
		public := v1.Group("")
		public.Use(middleware.OptionalSession(jwtMgr))
		{
			public.POST("/fill-code/validate",
				middleware.RateLimit(rdb, cfg.Server.RateLimit.Limit, cfg.Server.RateLimit.Window, logger),
				h.FillCode.Validate)
			public.GET("/options/:type", h.Option.List)
		}

		// 需要填写码会话的路由
		session := v1.Group("")
		session.Use(middleware.SessionAuth(jwtMgr))
		{
			session.GET("/fill-code", h.FillCode.Get)
			session.DELETE("/fill-code", h.FillCode.Delete)

			// 表单模块
			f := session.Group("/form")
			{
				f.POST("", h.Form.Start)
				f.GET("", h.Form.Get)
				f.PATCH("/fields", h.Form.SetField)
				f.POST("/members", h.Form.AppendMember)
				f.DELETE("/members/:index", h.Form.RemoveMember)
				f.POST("/members/:index/resume", h.Form.UploadResume)
				f.POST("/budget-items", h.Form.AppendBudgetItem)
				f.DELETE("/budget-items/:index", h.Form.RemoveBudgetItem)
				f.POST("/next", h.Form.Next)
				f.POST("/prev", h.Form.Prev)
				f.POST("/goto", h.Form.GoTo)
				f.POST("/submit", h.Form.Submit)
				f.POST("/ai/parse-document", h.Form.ParseDocument)

				// 导出模块
				f.GET("/export/budget.xlsx", h.Export.BudgetWorkbook)
				f.GET("/export/milestones.ics", h.Export.MilestoneCalendar)
			}

			session.GET("/receipts/:application_no", h.Receipt.Get)
		}
	}

	return r
}
