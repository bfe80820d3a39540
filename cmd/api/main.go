package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/modelforge/modelforge/config"
	"github.com/modelforge/modelforge/pkg/api/handlers"
	custommw "github.com/modelforge/modelforge/pkg/api/middleware"
	"github.com/modelforge/modelforge/pkg/auth"
	"github.com/modelforge/modelforge/pkg/billing"
	"github.com/modelforge/modelforge/pkg/cache"
	"github.com/modelforge/modelforge/pkg/email"
	"github.com/modelforge/modelforge/pkg/generation"
	"github.com/modelforge/modelforge/pkg/jobs"
	"github.com/modelforge/modelforge/pkg/metrics"
	custommiddleware "github.com/modelforge/modelforge/pkg/middleware"
	"github.com/modelforge/modelforge/pkg/plans"
	"github.com/modelforge/modelforge/pkg/users"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Printf("🔧 Configuration loaded (environment: %s)", cfg.APIEnvironment)

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: 1.0,
			AttachStacktrace: true,
		})
		if err != nil {
			log.Printf("⚠️  Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s)", cfg.SentryEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	} else {
		log.Printf("ℹ️  Sentry disabled (no DSN configured)")
	}

	// Initialize Redis
	redisClient, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize Prometheus metrics
	prometheusMetrics := metrics.New()
	log.Printf("✅ Prometheus metrics initialized")

	// Core services
	userStore := users.NewStore(redisClient)
	tokenBlacklist := auth.NewTokenBlacklist(redisClient)
	csrfService := auth.NewCSRFService(redisClient, cfg.JWTSecret, time.Duration(cfg.CSRFTokenTTLSec)*time.Second)
	planService := plans.NewService(userStore, redisClient)

	emailService := email.NewService(
		cfg.EmailFrom,
		cfg.EmailFromName,
		cfg.FrontendURL,
		cfg.SendGridAPIKey,
	)

	// Generation pipeline: enhancer → dispatcher → service
	enhancer := generation.NewPromptEnhancer(cfg.OpenAIAPIKey)
	dispatcher := generation.NewDispatcher(
		cfg.GenerationBackendURL,
		cfg.PlaceholderModelURL,
		csrfService,
		time.Duration(cfg.GenerationTimeoutSec)*time.Second,
	)
	generationService := generation.NewService(dispatcher, enhancer, redisClient)
	log.Printf("✅ Generation dispatcher targeting %s", cfg.GenerationBackendURL)

	// Billing
	billingService := billing.NewService(userStore, redisClient, &billing.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		PriceBasic:    cfg.StripePriceBasic,
		PricePro:      cfg.StripePricePro,
		PriceOneTime:  cfg.StripePriceOneTime,
		SuccessURL:    cfg.CheckoutSuccessURL,
		CancelURL:     cfg.CheckoutCancelURL,
		FrontendURL:   cfg.FrontendURL,
	})
	billingService.SetEmailSender(emailService)
	billingService.SetPlanInvalidator(planService)
	paymentGate := billing.Gate{OneTimePriceID: cfg.StripePriceOneTime}

	// Cron jobs
	cronManager := jobs.NewCronManager(redisClient, log.Default())
	if err := cronManager.SetupJobs(); err != nil {
		log.Fatalf("❌ Failed to set up cron jobs: %v", err)
	}
	cronManager.Start()

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Rate limiters
	globalRateLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	authRateLimiter := custommiddleware.NewRateLimiter(5, 2)       // login/register
	webhookRateLimiter := custommiddleware.NewRateLimiter(100, 20) // Stripe webhooks

	// Global middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("[%s] %s - Status: %d", c.Request().Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic: true,
		}))
	}

	e.Use(prometheusMetrics.Middleware())
	e.Use(middleware.CORSWithConfig(custommiddleware.CORSConfig(cfg.FrontendURL)))
	e.Use(middleware.Gzip())
	e.Use(middleware.Secure())
	e.Use(custommiddleware.SecurityHeaders(custommiddleware.SecurityHeadersConfig{}))
	e.Use(globalRateLimiter.RateLimitMiddleware())

	// Health and status endpoints (public)
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"name":        "ModelForge API",
			"version":     "0.1.0",
			"status":      "running",
			"environment": cfg.APIEnvironment,
			"timestamp":   time.Now().Unix(),
		})
	})

	e.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"version": "0.1.0"})
	})

	e.GET("/healthz", func(c echo.Context) error {
		if err := redisClient.Redis.Ping(c.Request().Context()).Err(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status": "unhealthy",
				"cache":  "down",
			})
		}
		return c.JSON(http.StatusOK, map[string]any{
			"status": "healthy",
			"cache":  "up",
		})
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Handlers
	authHandler := handlers.NewAuthHandler(userStore, cfg, tokenBlacklist, emailService, generationService, prometheusMetrics)
	tokenHandler := handlers.NewTokenHandler(csrfService)
	planHandler := handlers.NewPlanHandler(planService)
	generationHandler := handlers.NewGenerationHandler(generationService, prometheusMetrics, time.Duration(cfg.GenerationTimeoutSec)*time.Second)
	billingHandler := handlers.NewBillingHandler(billingService, paymentGate, planService, generationService, prometheusMetrics)

	// API v1 routes
	v1 := e.Group("/api/v1")

	v1.GET("/ping", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "pong"})
	})

	// Public
	v1.GET("/csrf-token", tokenHandler.IssueToken)
	v1.GET("/pricing", billingHandler.GetPricing)
	v1.POST("/auth/register", authHandler.Register, authRateLimiter.RateLimitMiddleware())
	v1.POST("/auth/login", authHandler.Login, authRateLimiter.RateLimitMiddleware())
	v1.POST("/webhooks/stripe", billingHandler.StripeWebhook, webhookRateLimiter.RateLimitMiddleware())

	// Optional auth: the payment gate decides what anonymous users may do
	v1.POST("/checkout", billingHandler.Checkout,
		custommw.OptionalJWTMiddleware(cfg.JWTSecret, tokenBlacklist))

	// Authenticated
	authed := v1.Group("", custommw.JWTMiddlewareWithBlacklist(cfg.JWTSecret, tokenBlacklist))
	authed.POST("/auth/logout", authHandler.Logout)
	authed.GET("/auth/me", authHandler.Me)
	authed.GET("/me/plan", planHandler.GetPlan)
	authed.GET("/result", generationHandler.CurrentResult)
	authed.POST("/generate", generationHandler.Generate, custommw.CSRFMiddleware(csrfService))

	// Start server
	address := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	log.Printf("🚀 ModelForge API starting on %s", address)
	log.Printf("🔐 JWT expiration: %d hours, CSRF token TTL: %ds", cfg.JWTExpirationHours, cfg.CSRFTokenTTLSec)
	log.Printf("🛡️  Rate limiting: %d req/min (burst: %d)", cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)

	// Graceful shutdown
	go func() {
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	cronManager.Stop()
	log.Println("✅ Cron jobs stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server gracefully stopped")
}
