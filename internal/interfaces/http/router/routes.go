package router

import (
	"net/http"

	"github.com/arflow/backend/internal/domain/identity"
	"github.com/arflow/backend/internal/infrastructure/logger"
	"github.com/arflow/backend/internal/interfaces/http/dto"
	"github.com/arflow/backend/internal/interfaces/http/handler"
	"github.com/arflow/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Config holds the middleware settings of the API
type Config struct {
	Logger       *zap.Logger
	JWT          middleware.JWTMiddlewareConfig
	CORS         middleware.CORSConfig
	Security     middleware.SecurityConfig
	MaxBodyBytes int64
	// RateLimiter limits every /api request per client IP. Nil disables it.
	RateLimiter *middleware.RateLimiter
	// AuthLimiter additionally limits login and refresh. Nil disables it.
	AuthLimiter *middleware.RateLimiter
	// Tracing is nil when telemetry is off
	Tracing *middleware.TracingConfig
	// Metrics is the HTTPMetrics middleware, nil when telemetry is off
	Metrics gin.HandlerFunc
	// Swagger serves the registered API docs under /swagger
	Swagger bool
}

// Handlers groups the API handlers
type Handlers struct {
	Auth         *handler.AuthHandler
	Organization *handler.OrganizationHandler
	Customer     *handler.CustomerHandler
	Document     *handler.DocumentHandler
	Payment      *handler.PaymentHandler
	Integration  *handler.IntegrationHandler
	Audit        *handler.AuditHandler
	Dashboard    *handler.DashboardHandler
	Webhook      *handler.WebhookHandler
	System       *handler.SystemHandler
}

// New builds the gin engine with every ARFlow route
func New(cfg Config, h Handlers) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(logger.Recovery(cfg.Logger), middleware.RequestID())
	if cfg.Tracing != nil {
		engine.Use(middleware.Tracing(*cfg.Tracing), middleware.TraceAttributes())
	}
	if cfg.Metrics != nil {
		engine.Use(cfg.Metrics)
	}
	engine.Use(
		logger.GinMiddleware(cfg.Logger),
		middleware.Secure(cfg.Security),
		middleware.CORS(cfg.CORS),
	)
	if cfg.MaxBodyBytes > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	}
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(dto.ErrCodeNotFound, "Route not found", middleware.GetRequestID(c)))
	})

	engine.GET("/health", h.System.Health)
	if cfg.Swagger {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r := NewRouter(engine, WithAPIVersion("v1"))
	if cfg.RateLimiter != nil {
		r.Use(middleware.RateLimit(cfg.RateLimiter, middleware.ClientIPKey))
	}

	authenticated := []gin.HandlerFunc{middleware.JWTAuth(cfg.JWT), middleware.TraceAttributes()}
	adminOnly := middleware.RequireRoles(identity.RoleAdmin)

	r.Register(
		authRoutes(h.Auth, cfg.AuthLimiter, authenticated),
		meRoutes(h.Auth, authenticated),
		organizationRoutes(h.Organization, authenticated, adminOnly),
		userRoutes(h.Organization, authenticated, adminOnly),
		customerRoutes(h.Customer, authenticated),
		documentRoutes(h.Document, authenticated),
		paymentRoutes(h.Payment, authenticated),
		integrationRoutes(h.Integration, authenticated),
		syncRoutes(h.Integration, authenticated),
		NewDomainGroup("audit", "/audit-logs").Use(authenticated...).Use(adminOnly).
			GET("", h.Audit.List),
		NewDomainGroup("dashboard", "/dashboard").Use(authenticated...).
			GET("/summary", h.Dashboard.Summary).
			GET("/aging", h.Dashboard.Aging),
		NewDomainGroup("webhooks", "/webhooks").
			POST("/stripe/:org", h.Webhook.Stripe),
	)
	r.Setup()
	return engine
}

func authRoutes(h *handler.AuthHandler, limiter *middleware.RateLimiter, authenticated []gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("auth", "/auth")
	public := g.Group("auth-public", "")
	if limiter != nil {
		public.Use(middleware.RateLimit(limiter, middleware.ClientIPKey))
	}
	public.POST("/login", h.Login).
		POST("/refresh", h.Refresh)
	g.Group("auth-session", "").Use(authenticated...).
		POST("/logout", h.Logout)
	return g
}

func meRoutes(h *handler.AuthHandler, authenticated []gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("me", "/me").Use(authenticated...).
		GET("", h.Me).
		PUT("/password", h.ChangePassword)
}

func organizationRoutes(h *handler.OrganizationHandler, authenticated []gin.HandlerFunc, adminOnly gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("organization", "/organization").Use(authenticated...).
		GET("", h.GetOrganization).
		PUT("", adminOnly, h.UpdateOrganization)
}

func userRoutes(h *handler.OrganizationHandler, authenticated []gin.HandlerFunc, adminOnly gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("users", "/users").Use(authenticated...).Use(adminOnly).
		GET("", h.ListUsers).
		POST("", h.CreateUser).
		GET("/:id", h.GetUser).
		PUT("/:id/role", h.ChangeUserRole).
		POST("/:id/disable", h.DisableUser).
		POST("/:id/enable", h.EnableUser)
}

func customerRoutes(h *handler.CustomerHandler, authenticated []gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("customers", "/customers").Use(authenticated...).
		GET("", h.List).
		POST("", h.Create).
		GET("/:id", h.Get).
		PUT("/:id", h.Update).
		DELETE("/:id", h.Delete).
		POST("/:id/activate", h.Activate).
		POST("/:id/deactivate", h.Deactivate).
		GET("/:id/statement", h.Statement)
}

func documentRoutes(h *handler.DocumentHandler, authenticated []gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("documents", "/documents").Use(authenticated...).
		GET("", h.List).
		POST("", h.Create).
		GET("/:id", h.Get).
		POST("/:id/void", h.Void)
}

func paymentRoutes(h *handler.PaymentHandler, authenticated []gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("payments", "/payments").Use(authenticated...).Use(middleware.IdempotencyKey()).
		GET("", h.List).
		GET("/:id", h.Get).
		POST("/manual", h.CreateManual).
		POST("/card", h.ProcessCard).
		POST("/:id/apply", h.Apply).
		POST("/:id/void", h.Void).
		POST("/:id/sync", h.Sync)
}

func integrationRoutes(h *handler.IntegrationHandler, authenticated []gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("integrations", "/integrations").Use(authenticated...).
		GET("", h.ListSettings).
		PUT("/:provider", h.UpdateSettings).
		POST("/:provider/test", h.TestConnection)
}

func syncRoutes(h *handler.IntegrationHandler, authenticated []gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("sync", "/sync").Use(authenticated...).
		POST("/customers", h.SyncCustomers).
		POST("/documents", h.SyncDocuments).
		POST("/payments/retry", h.RetryPayments).
		GET("/logs", h.ListLogs).
		GET("/logs/:id", h.GetLog)
}
