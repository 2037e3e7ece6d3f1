package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/config"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/http/handlers"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/http/middleware"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/interface/http/handler"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/service"
)

// Handlers набор обработчиков API.
type Handlers struct {
	Requests *handler.RequestHandler
	Payments *handler.PaymentHandler
	Webhooks *handler.WebhookHandler
	Health   *handlers.HealthHandler
	WS       *handlers.WSHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokenManager *service.TokenManager, limitStore limiter.Store) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)

	api := r.Group("/api")
	api.GET("/ws", h.WS.Handle)

	// Уведомления шлюза: без JWT, с проверкой подписи.
	webhooks := api.Group("/webhooks")
	webhooks.Use(
		middleware.RateLimitMiddleware(limitStore, cfg.RateLimitLimit*10, cfg.RateLimitPeriod, middleware.ByClientIP),
		middleware.WebhookSignature(cfg.Gateway.WebhookSecret),
	)
	{
		webhooks.POST("/payments", h.Webhooks.Payments)
	}

	protected := api.Group("/")
	protected.Use(
		middleware.AuthMiddleware(tokenManager),
		middleware.RateLimitMiddleware(limitStore, cfg.RateLimitLimit, cfg.RateLimitPeriod, middleware.ByActor),
	)
	{
		protected.POST("/requests", h.Requests.Create)
		protected.GET("/requests", h.Requests.List)
		protected.GET("/requests/:id", middleware.UUIDValidator("id"), h.Requests.Get)
		protected.DELETE("/requests/:id", middleware.UUIDValidator("id"), h.Requests.Delete)
		protected.PUT("/requests/:id/status", middleware.UUIDValidator("id"), h.Requests.UpdateStatus)
		protected.GET("/requests/:id/history", middleware.UUIDValidator("id"), h.Requests.History)

		protected.POST("/requests/:id/payments", middleware.UUIDValidator("id"), h.Payments.Initiate)
		protected.POST("/requests/:id/release", middleware.UUIDValidator("id"), h.Payments.Release)
		protected.POST("/requests/:id/refund", middleware.UUIDValidator("id"), h.Payments.Refund)
		protected.GET("/requests/:id/escrow", middleware.UUIDValidator("id"), h.Payments.GetEscrow)
		protected.GET("/requests/:id/transactions", middleware.UUIDValidator("id"), h.Payments.ListTransactions)
	}

	return r
}
