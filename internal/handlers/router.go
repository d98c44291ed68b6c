package handlers

import (
	"github.com/SAP-F-2025/test-engine-service/internal/monitoring"
	"github.com/SAP-F-2025/test-engine-service/internal/services"
	"github.com/SAP-F-2025/test-engine-service/internal/utils"
	"github.com/SAP-F-2025/test-engine-service/internal/validator"
	"github.com/gin-gonic/gin"
)

const serviceName = "test-engine-service"

// RouterOptions configures the transport-level middleware
type RouterOptions struct {
	Authority *TokenAuthority
	// StartRatePerMinute limits session starts per caller; 0 disables the limiter.
	StartRatePerMinute int
	StartBurst         int
}

type HandlerManager struct {
	sessionHandler *SessionHandler
	accessHandler  *AccessHandler
	historyHandler *HistoryHandler
	options        RouterOptions
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	options RouterOptions,
) *HandlerManager {
	return &HandlerManager{
		sessionHandler: NewSessionHandler(serviceManager.Session(), validator, logger),
		accessHandler:  NewAccessHandler(serviceManager.Access(), validator, logger),
		historyHandler: NewHistoryHandler(serviceManager.History(), logger),
		options:        options,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.Use(monitoring.MetricsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": serviceName,
		})
	})
	router.GET("/metrics", monitoring.PrometheusHandler())

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(IdentityMiddleware(hm.options.Authority))
	{
		tests := v1.Group("/tests")
		{
			// Identity is optional for access checks
			tests.GET("/:test_id/access", hm.accessHandler.CheckAccess)
			tests.POST("/access", hm.accessHandler.CheckAccessMany)

			tests.POST("/:test_id/sessions",
				RequireAuth(),
				RateLimiter(hm.options.StartRatePerMinute, hm.options.StartBurst),
				hm.sessionHandler.StartSession,
			)
			tests.GET("/:test_id/history", RequireAuth(), hm.historyHandler.GetTestHistory)
		}

		sessions := v1.Group("/sessions", RequireAuth())
		{
			sessions.GET("/active", hm.sessionHandler.GetActiveSession)
			sessions.GET("/:id", hm.sessionHandler.GetSession)
			sessions.GET("/:id/content", hm.sessionHandler.GetSessionContent)
			sessions.PATCH("/:id", hm.sessionHandler.UpdateSession)
			sessions.POST("/:id/answers", hm.sessionHandler.SubmitAnswers)
		}
	}
}
