package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/tacss32/dalitmurasu-sub000/config"
	"github.com/tacss32/dalitmurasu-sub000/internal/api/handler"
	"github.com/tacss32/dalitmurasu-sub000/internal/api/middleware"
	"github.com/tacss32/dalitmurasu-sub000/internal/repository"
)

type Router struct {
	planHandler         *handler.PlanHandler
	subscriptionHandler *handler.SubscriptionHandler
	contentHandler      *handler.ContentHandler
	adminHandler        *handler.AdminHandler
	userRepo            *repository.UserRepository
	cfg                 *config.Config
	logger              *slog.Logger
}

func NewRouter(
	planHandler *handler.PlanHandler,
	subscriptionHandler *handler.SubscriptionHandler,
	contentHandler *handler.ContentHandler,
	adminHandler *handler.AdminHandler,
	userRepo *repository.UserRepository,
	cfg *config.Config,
	logger *slog.Logger,
) *Router {
	return &Router{
		planHandler:         planHandler,
		subscriptionHandler: subscriptionHandler,
		contentHandler:      contentHandler,
		adminHandler:        adminHandler,
		userRepo:            userRepo,
		cfg:                 cfg,
		logger:              logger,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(r.logger))
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// 公开接口 - 套餐
		api.GET("/plans", r.planHandler.List)

		// 内容（可选认证，付费墙按身份决定返回内容）
		contents := api.Group("/contents")
		contents.Use(middleware.OptionalAuth(r.cfg.JWT.Secret))
		{
			contents.GET("/:id", r.contentHandler.Get)
		}

		// 订阅（需要认证）
		subscriptions := api.Group("/subscriptions")
		subscriptions.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			subscriptions.POST("/orders", r.subscriptionHandler.CreateOrder)
			subscriptions.POST("/verify", r.subscriptionHandler.Verify)
			subscriptions.GET("/me", r.subscriptionHandler.Me)
		}

		// 管理后台
		admin := api.Group("/admin")
		admin.Use(middleware.Auth(r.cfg.JWT.Secret), middleware.AdminOnly(r.userRepo))
		{
			admin.POST("/plans", r.planHandler.Create)
			admin.PUT("/plans/:id", r.planHandler.Update)
			admin.DELETE("/plans/:id", r.planHandler.Delete)

			admin.GET("/subscriptions", r.adminHandler.List)
			admin.POST("/subscriptions/activate", r.adminHandler.Activate)
			admin.POST("/subscriptions/:id/cancel", r.adminHandler.Cancel)
			admin.DELETE("/subscriptions/:id", r.adminHandler.Delete)
		}
	}

	return engine
}
