package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/galaxy-explorer/internal/config"
	apperrors "github.com/wfunc/galaxy-explorer/internal/errors"
	"github.com/wfunc/galaxy-explorer/internal/middleware"
	"github.com/wfunc/galaxy-explorer/internal/service"
	ws "github.com/wfunc/galaxy-explorer/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Router API路由器
type Router struct {
	engine         *gin.Engine
	db             *gorm.DB
	services       *service.Services
	authHandler    *AuthHandler
	gameHandler    *GameHandler
	wsHandler      *WebSocketHandler
	authMiddleware *middleware.AuthMiddleware
	wsPath         string
	log            *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(db *gorm.DB, services *service.Services, hub *ws.Hub, wsConfig *config.WebSocketConfig, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()

	// 全局中间件
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Recovery())
	engine.Use(middleware.RequestLogger())

	wsPath := "/ws"
	if wsConfig != nil && wsConfig.Path != "" {
		wsPath = wsConfig.Path
	}

	router := &Router{
		engine:         engine,
		db:             db,
		services:       services,
		authHandler:    NewAuthHandler(services.Auth, services.User),
		gameHandler:    NewGameHandler(services.Game),
		authMiddleware: middleware.NewAuthMiddleware(services.Auth),
		wsPath:         wsPath,
		log:            log,
	}
	if hub != nil {
		router.wsHandler = NewWebSocketHandler(hub, wsConfig, log)
	}

	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.healthCheck)
	registerOpenAPIRoutes(r.engine)

	v1 := r.engine.Group("/api/v1")
	{
		// 认证相关路由
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/refresh", r.authHandler.RefreshToken)

			authRequired := auth.Group("")
			authRequired.Use(r.authMiddleware.RequireAuth())
			{
				authRequired.GET("/profile", r.authHandler.GetProfile)
				authRequired.PUT("/profile", r.authHandler.UpdateProfile)
				authRequired.PUT("/password", r.authHandler.UpdatePassword)
			}
		}

		// 公开数据
		v1.GET("/catalog", r.gameHandler.Catalog)
		v1.GET("/shop", r.gameHandler.Shop)

		// 游戏进度（需要认证）
		g := v1.Group("/game")
		g.Use(r.authMiddleware.RequireAuth())
		{
			g.GET("/state", r.gameHandler.State)
			g.GET("/claim", r.gameHandler.CanClaim)
			g.POST("/claim", r.gameHandler.ClaimFreeCredits)
			g.POST("/travel", r.gameHandler.Travel)
			g.POST("/explore", r.gameHandler.Explore)
			g.POST("/refuel", r.gameHandler.Refuel)
			g.POST("/purchase/credits", r.gameHandler.PurchaseCredits)
			g.POST("/purchase/fuel", r.gameHandler.PurchaseFuel)
		}

		if r.wsHandler != nil {
			v1.GET("/online", r.wsHandler.GetOnlineCount)
		}
	}

	// WebSocket握手通过 token 查询参数认证
	if r.wsHandler != nil {
		r.engine.GET(r.wsPath, r.authMiddleware.RequireAuth(), r.wsHandler.GameWebSocket)
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    apperrors.ErrNotFound,
			Message: "接口不存在",
		})
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	sqlDB, err := r.db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"message": "数据库连接失败",
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"message": "数据库ping失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
	})
}

// Handler 返回HTTP处理器
func (r *Router) Handler() http.Handler {
	return r.engine
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
