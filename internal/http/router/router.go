package router

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/jobautomate-backend/internal/config"
	"github.com/ignatzorin/jobautomate-backend/internal/http/handlers"
	"github.com/ignatzorin/jobautomate-backend/internal/http/middleware"
	"github.com/ignatzorin/jobautomate-backend/internal/onboarding"
	"github.com/ignatzorin/jobautomate-backend/internal/service"
)

// Handlers собирает хэндлеры всех групп маршрутов.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Onboarding    *handlers.OnboardingHandler
	Wizard        *handlers.WizardHandler
	Offers        *handlers.OfferHandler
	Applications  *handlers.ApplicationHandler
	Documents     *handlers.DocumentHandler
	Dashboard     *handlers.DashboardHandler
	Notifications *handlers.NotificationHandler
	WS            *handlers.WSHandler
	Health        *handlers.HealthHandler
}

// Deps — зависимости middleware.
type Deps struct {
	Tokens   *service.TokenManager
	Sessions middleware.SessionChecker
	Stages   middleware.StageResolver
	Redis    *redis.Client
}

func SetupRouter(cfg *config.Config, h Handlers, deps Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)

	api := r.Group("/api")
	api.GET("/ws", h.WS.Handle)

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod, deps.Redis, "auth"))
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
	}

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(deps.Tokens, deps.Sessions))
	{
		protected.POST("/auth/logout", h.Auth.Logout)
		protected.GET("/session", h.Onboarding.Session)
		protected.POST("/onboarding/provider", h.Onboarding.ConnectProvider)

		protected.GET("/notifications", h.Notifications.ListNotifications)
		protected.GET("/notifications/unread/count", h.Notifications.CountUnread)
		protected.PUT("/notifications/read-all", h.Notifications.MarkAllAsRead)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), h.Notifications.MarkAsRead)
		protected.DELETE("/notifications/:id", middleware.UUIDValidator("id"), h.Notifications.DeleteNotification)

		protected.GET("/documents", h.Documents.List)
		protected.POST("/documents/:kind", h.Documents.Upload)
		protected.GET("/documents/:kind", h.Documents.Download)
		protected.DELETE("/documents/:kind", h.Documents.Delete)
	}

	// мастер и критерии доступны после входа; завершение мастера требует подключённого France Travail
	criteria := protected.Group("/")
	criteria.Use(middleware.RequireStage(deps.Stages, onboarding.StageCriteria))
	{
		criteria.POST("/wizard", h.Wizard.Start)
		criteria.GET("/wizard", h.Wizard.Get)
		criteria.PATCH("/wizard", h.Wizard.Update)
		criteria.DELETE("/wizard", h.Wizard.Discard)
		criteria.POST("/wizard/next", h.Wizard.Next)
		criteria.POST("/wizard/back", h.Wizard.Back)
		criteria.POST("/wizard/keywords", h.Wizard.AddKeyword)
		criteria.DELETE("/wizard/keywords/:keyword", h.Wizard.RemoveKeyword)

		criteria.GET("/criteria", h.Onboarding.GetCriteria)
		criteria.PUT("/criteria", h.Onboarding.SaveCriteria)
	}

	dashboard := protected.Group("/")
	dashboard.Use(middleware.RequireStage(deps.Stages, onboarding.StageDashboard))
	{
		dashboard.GET("/dashboard", h.Dashboard.Get)
		dashboard.GET("/automation", h.Dashboard.GetAutomation)
		dashboard.PUT("/automation", h.Dashboard.UpdateAutomation)

		dashboard.GET("/offers", h.Offers.Search)
		dashboard.GET("/offers/:id", h.Offers.Details)

		dashboard.POST("/applications",
			middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod, deps.Redis, "apply"),
			h.Applications.Apply)
		dashboard.GET("/applications", h.Applications.List)
		dashboard.GET("/applications/stats", h.Applications.Stats)
	}

	return r
}
