package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	auditapp "github.com/arflow/backend/internal/application/audit"
	customerapp "github.com/arflow/backend/internal/application/customer"
	financeapp "github.com/arflow/backend/internal/application/finance"
	identityapp "github.com/arflow/backend/internal/application/identity"
	integrationapp "github.com/arflow/backend/internal/application/integration"
	"github.com/arflow/backend/internal/domain/shared"
	"github.com/arflow/backend/internal/infrastructure/auth"
	"github.com/arflow/backend/internal/infrastructure/cache"
	"github.com/arflow/backend/internal/infrastructure/config"
	"github.com/arflow/backend/internal/infrastructure/email"
	"github.com/arflow/backend/internal/infrastructure/erp"
	"github.com/arflow/backend/internal/infrastructure/event"
	"github.com/arflow/backend/internal/infrastructure/jobs"
	"github.com/arflow/backend/internal/infrastructure/logger"
	"github.com/arflow/backend/internal/infrastructure/payment"
	"github.com/arflow/backend/internal/infrastructure/persistence"
	"github.com/arflow/backend/internal/infrastructure/scheduler"
	"github.com/arflow/backend/internal/infrastructure/secrets"
	"github.com/arflow/backend/internal/infrastructure/telemetry"
	"github.com/arflow/backend/internal/interfaces/http/handler"
	"github.com/arflow/backend/internal/interfaces/http/middleware"
	"github.com/arflow/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	_ "github.com/arflow/backend/docs"
)

//	@title			ARFlow API
//	@version		1.0
//	@description	Accounts receivable API: customers, invoices, payments and ERP synchronization for multi-tenant organizations

//	@contact.name	API Support

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}, cfg.App.Name)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// Telemetry comes first so the bridged logger reaches the collector
	tel, err := telemetry.Setup(ctx, telemetry.FromConfig(cfg.Telemetry, cfg.App.Name, version), log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil {
		level = zapcore.InfoLevel
	}
	log = tel.Bridge(log, level)
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting ARFlow",
		zap.String("version", version),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Bool("telemetry", tel.Enabled()),
		zap.Bool("profiling", tel.Profiling()),
	)

	// Database
	db, err := persistence.NewDatabase(cfg.Database, cfg.Log, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := telemetry.InstrumentGORM(db.DB, telemetry.DBTracingConfig{
		Enabled:         tel.Enabled() && cfg.Telemetry.DBTracing,
		SlowQueryThresh: cfg.Log.SlowSQL,
		DBSystem:        "postgresql",
		TracerProvider:  tel.TracerProvider(),
	}, log); err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Redis is optional outside production
	redisClient, err := cache.ConnectOptional(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	syncLock, err := cache.NewSyncLock(redisClient, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize sync lock", zap.Error(err))
	}
	var blacklist auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
	if redisClient != nil {
		blacklist = auth.NewRedisTokenBlacklist(redisClient)
	}

	key, err := cfg.Security.Key()
	if err != nil {
		log.Fatal("Invalid credential encryption key", zap.Error(err))
	}
	cipher := secrets.NewSecretboxCipher(key)
	jwtService := auth.NewJWTService(cfg.JWT)

	// Repositories
	orgRepo := persistence.NewGormOrganizationRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	documentRepo := persistence.NewGormDocumentRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	settingsRepo := persistence.NewGormSettingsRepository(db.DB)
	syncLogRepo := persistence.NewGormSyncLogRepository(db.DB)
	auditRepo := persistence.NewGormAuditLogRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Event bus
	eventBus := event.NewInMemoryEventBus(log)

	lockConfig := shared.LockConfig{
		SyncTTL:       cfg.Sync.LockTTL,
		SubmissionTTL: cfg.Sync.SubmissionTTL,
	}
	gatewayFactory := payment.NewGatewayFactory(log)
	erpFactory := erp.NewClientFactory(log,
		erp.WithRequestTimeout(cfg.Sync.RequestTimeout),
		erp.WithPageSize(cfg.Sync.PageSize),
	)

	// Application services
	auditService := auditapp.NewService(auditRepo, log)
	authService := identityapp.NewAuthService(userRepo, orgRepo, jwtService, blacklist, auditService,
		identityapp.AuthServiceConfig{
			MaxLoginAttempts: cfg.Auth.MaxLoginAttempts,
			LockDuration:     cfg.Auth.LockDuration,
		}, log)
	orgService := identityapp.NewOrganizationService(orgRepo, auditService, log)
	userService := identityapp.NewUserService(userRepo, customerRepo, jwtService, blacklist, eventBus, log)
	customerService := customerapp.NewService(customerRepo, documentRepo, paymentRepo, eventBus, log)
	documentService := financeapp.NewDocumentService(documentRepo, paymentRepo, customerRepo, eventBus, log)
	gateways := financeapp.NewGatewayResolver(settingsRepo, cipher, gatewayFactory)
	paymentService := financeapp.NewPaymentService(paymentRepo, documentRepo, customerRepo, txScope, gateways, syncLock, lockConfig, log)
	paymentService.SetEventPublisher(eventBus)
	dashboardService := financeapp.NewDashboardService(documentRepo, paymentRepo, syncLogRepo, log)
	webhookService := financeapp.NewWebhookService(paymentRepo, txScope, gateways, payment.NewStripeWebhookParser(), syncLock, lockConfig, eventBus, log)
	settingsService := integrationapp.NewSettingsService(settingsRepo, cipher, gatewayFactory, erpFactory, auditService, eventBus, log)
	syncService := integrationapp.NewSyncService(settingsRepo, syncLogRepo, customerRepo, documentRepo, paymentRepo, cipher, erpFactory, syncLock, lockConfig, log)
	syncService.SetRetryLimits(cfg.Scheduler.RetryBatch, cfg.Sync.MaxPaymentAttempts)
	syncService.SetEventPublisher(eventBus)

	// Sync work goes through asynq when a queue is available
	var (
		dispatcher  integrationapp.SyncDispatcher
		asynqClient *asynq.Client
		worker      *jobs.Worker
	)
	if cfg.Jobs.Enabled && redisClient != nil {
		redisOpt := asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
		asynqClient = asynq.NewClient(redisOpt)
		dispatcher = jobs.NewDispatcher(asynqClient, jobs.TaskOptions{
			MaxRetry:  cfg.Jobs.MaxRetry,
			Timeout:   cfg.Jobs.TaskTimeout,
			UniqueFor: cfg.Scheduler.TickInterval,
		}, log)
		worker = jobs.NewWorker(redisOpt, jobs.WorkerConfig{
			Concurrency:     cfg.Jobs.Concurrency,
			ShutdownTimeout: cfg.Jobs.ShutdownWait,
		}, jobs.NewHandlers(syncService, log), log)
	} else {
		log.Info("Job queue disabled, sync work runs in-process")
		dispatcher = integrationapp.NewInlineDispatcher(syncService, log)
	}
	syncService.SetDispatcher(dispatcher)

	// Event subscribers
	var sender financeapp.ReceiptSender = email.NewLogSender(log)
	if cfg.Email.Enabled {
		resendSender, err := email.NewResendSender(email.Config{
			APIKey:    cfg.Email.APIKey,
			FromEmail: cfg.Email.FromEmail,
			FromName:  cfg.Email.FromName,
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize email sender", zap.Error(err))
		}
		sender = resendSender
	}
	eventBus.Subscribe(auditapp.NewEventHandler(auditService))
	eventBus.Subscribe(financeapp.NewReceiptHandler(paymentRepo, documentRepo, customerRepo, orgRepo, sender, log))
	eventBus.Subscribe(integrationapp.NewPaymentSyncHandler(settingsRepo, dispatcher, log))
	arMetrics, err := telemetry.NewARMetrics(tel.Meter())
	if err != nil {
		log.Fatal("Failed to register AR metrics", zap.Error(err))
	}
	eventBus.Subscribe(arMetrics)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	if worker != nil {
		if err := worker.Start(); err != nil {
			log.Fatal("Failed to start job worker", zap.Error(err))
		}
	}

	var syncTrigger *scheduler.SyncTrigger
	if cfg.Scheduler.Enabled {
		syncTrigger, err = scheduler.NewSyncTrigger(scheduler.SyncTriggerConfig{
			CheckInterval: cfg.Scheduler.TickInterval,
			RetryInterval: cfg.Scheduler.RetryInterval,
			StaleAfter:    cfg.Scheduler.StaleAfter,
		}, syncService, syncService, log)
		if err != nil {
			log.Fatal("Failed to create sync scheduler", zap.Error(err))
		}
		if err := syncTrigger.Start(ctx); err != nil {
			log.Fatal("Failed to start sync scheduler", zap.Error(err))
		}
	}

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	stopCleanup := make(chan struct{})
	var apiLimiter, authLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		apiLimiter = middleware.NewRateLimiter(rate.Limit(cfg.HTTP.RateLimitRequests), cfg.HTTP.RateLimitBurst, 10*time.Minute)
		authLimiter = middleware.NewRateLimiter(middleware.PerMinute(cfg.HTTP.AuthRateLimitRequests), cfg.HTTP.AuthRateLimitRequests, 10*time.Minute)
		apiLimiter.StartCleanup(time.Minute, stopCleanup)
		authLimiter.StartCleanup(time.Minute, stopCleanup)
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	security := middleware.DefaultSecurityConfig()
	security.HSTSEnabled = cfg.IsProduction()

	routerConfig := router.Config{
		Logger: log,
		JWT: middleware.JWTMiddlewareConfig{
			JWTService:     jwtService,
			TokenBlacklist: blacklist,
			Logger:         log,
		},
		CORS:         cors,
		Security:     security,
		MaxBodyBytes: cfg.HTTP.MaxBodySize,
		RateLimiter:  apiLimiter,
		AuthLimiter:  authLimiter,
		Swagger:      cfg.HTTP.SwaggerEnabled,
	}
	if tel.Enabled() {
		routerConfig.Tracing = &middleware.TracingConfig{
			ServiceName:    cfg.App.Name,
			TracerProvider: tel.TracerProvider(),
			SkipPaths:      []string{"/health"},
		}
		httpMetrics, err := middleware.HTTPMetrics(tel.Meter())
		if err != nil {
			log.Fatal("Failed to register HTTP metrics", zap.Error(err))
		}
		routerConfig.Metrics = httpMetrics
	}

	engine := router.New(routerConfig, router.Handlers{
		Auth:         handler.NewAuthHandler(authService, log),
		Organization: handler.NewOrganizationHandler(orgService, userService, log),
		Customer:     handler.NewCustomerHandler(customerService, log),
		Document:     handler.NewDocumentHandler(documentService, log),
		Payment:      handler.NewPaymentHandler(paymentService, syncService, log),
		Integration:  handler.NewIntegrationHandler(settingsService, syncService, log),
		Audit:        handler.NewAuditHandler(auditService, log),
		Dashboard:    handler.NewDashboardHandler(dashboardService, log),
		Webhook:      handler.NewWebhookHandler(webhookService, log),
		System:       handler.NewSystemHandler(version, healthChecks(db, redisClient), log),
	})
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	close(stopCleanup)
	if syncTrigger != nil {
		if err := syncTrigger.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping sync scheduler", zap.Error(err))
		}
	}
	if worker != nil {
		worker.Stop()
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	// Bus handlers may start in-process pushes, so these are awaited after it
	if inline, ok := dispatcher.(*integrationapp.InlineDispatcher); ok {
		if err := inline.Wait(shutdownCtx); err != nil {
			log.Warn("In-process sync runs did not finish before shutdown", zap.Error(err))
		}
	}
	if asynqClient != nil {
		if err := asynqClient.Close(); err != nil {
			log.Error("Error closing job queue client", zap.Error(err))
		}
	}
	if err := syncLock.Close(); err != nil {
		log.Error("Error closing sync lock", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis", zap.Error(err))
		}
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down telemetry", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthChecks returns the dependency probes behind GET /health
func healthChecks(db *persistence.Database, redisClient *redis.Client) map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{
		"database": db.Ping,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}
