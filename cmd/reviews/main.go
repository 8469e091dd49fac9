package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	sentry "github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/timeout"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/localperks/review-rewards/internal/businesses"
	"github.com/localperks/review-rewards/internal/coupons"
	"github.com/localperks/review-rewards/internal/fraud"
	"github.com/localperks/review-rewards/internal/notifications"
	"github.com/localperks/review-rewards/internal/reviews"
	"github.com/localperks/review-rewards/internal/scheduler"
	"github.com/localperks/review-rewards/pkg/common"
	"github.com/localperks/review-rewards/pkg/config"
	"github.com/localperks/review-rewards/pkg/database"
	"github.com/localperks/review-rewards/pkg/eventbus"
	"github.com/localperks/review-rewards/pkg/health"
	"github.com/localperks/review-rewards/pkg/logger"
	"github.com/localperks/review-rewards/pkg/middleware"
	"github.com/localperks/review-rewards/pkg/ratelimit"
	"github.com/localperks/review-rewards/pkg/redis"
	"github.com/localperks/review-rewards/pkg/validation"
)

const serviceVersion = "1.0.0"

// noopPush satisfies notifications.PushClient when no push provider is
// configured; delivery is recorded as sent without leaving the process.
type noopPush struct{}

func (noopPush) Push(_ context.Context, _ uuid.UUID, _, _ string, _ map[string]interface{}) error {
	return nil
}

func main() {
	cfg, err := config.Load("reviews")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Server.Environment,
			Release:     "reviews@" + serviceVersion,
		}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	pool, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer database.Close(pool)

	if err := database.RunMigrations(&cfg.Database); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	var bus *eventbus.Bus
	if cfg.NATS.Enabled {
		bus, err = eventbus.Connect(cfg.NATS.URL)
		if err != nil {
			logger.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer bus.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// repositories
	businessRepo := businesses.NewRepository(pool)
	reviewRepo := reviews.NewRepository(pool)
	couponRepo := coupons.NewRepository(pool)
	notifRepo := notifications.NewRepository(pool)

	// services
	businessSvc := businesses.NewService(businessRepo)
	couponSvc := coupons.NewService(couponRepo)
	recorder := fraud.NewRecorder(cfg.Fraud.SuspiciousLogCapacity)
	evaluator := fraud.NewEvaluator(cfg.Fraud, recorder, reviewRepo)
	notifSvc := notifications.NewService(notifRepo, noopPush{})

	var publisher reviews.EventPublisher = noopPublisher{}
	if bus != nil {
		publisher = bus
	}
	reviewSvc := reviews.NewService(reviewRepo, businessSvc, couponSvc, evaluator, publisher, cfg.Fraud)

	if bus != nil {
		eventHandler := notifications.NewEventHandler(notifSvc)
		if err := eventHandler.RegisterSubscriptions(ctx, bus); err != nil {
			logger.Fatal("failed to register event subscriptions", zap.Error(err))
		}
	}

	// background coupon expiry sweep
	sweepWorker := scheduler.NewWorker(couponSvc, cfg.Coupons.SweepInterval)
	sweepWorker.Start(ctx)

	// handlers
	businessHandler := businesses.NewHandler(businessSvc)
	reviewHandler := reviews.NewHandler(reviewSvc)
	couponHandler := coupons.NewHandler(couponSvc)
	fraudHandler := fraud.NewHandler(recorder)
	notifHandler := notifications.NewHandler(notifSvc)

	router := buildRouter(cfg, pool, redisClient, businessHandler, reviewHandler, couponHandler, fraudHandler, notifHandler)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("reviews service starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	sweepWorker.Wait()
	logger.Info("reviews service stopped")
}

type noopPublisher struct{}

func (noopPublisher) Publish(_ context.Context, _, _ string, _ interface{}) error {
	return nil
}

func buildRouter(
	cfg *config.Config,
	pool *pgxpool.Pool,
	redisClient *redis.Client,
	businessHandler *businesses.Handler,
	reviewHandler *reviews.Handler,
	couponHandler *coupons.Handler,
	fraudHandler *fraud.Handler,
	notifHandler *notifications.Handler,
) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	validation.RegisterCustomValidators()

	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Recovery())
	if cfg.Sentry.Enabled {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Metrics("reviews"))
	router.Use(middleware.MaxBodySize(1 << 20))

	corsConfig := cors.DefaultConfig()
	if cfg.Server.CORSOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = []string{cfg.Server.CORSOrigins}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Correlation-ID"}
	router.Use(cors.New(corsConfig))

	if cfg.Server.RequestTimeout > 0 {
		router.Use(timeout.New(
			timeout.WithTimeout(time.Duration(cfg.Server.RequestTimeout)*time.Second),
			timeout.WithResponse(func(c *gin.Context) {
				c.AbortWithStatusJSON(http.StatusRequestTimeout, gin.H{"error": "request timed out"})
			}),
		))
	}

	if cfg.RateLimit.Enabled {
		limiter := ratelimit.NewLimiter(redisClient.Client, cfg.RateLimit)
		router.Use(middleware.RateLimit(limiter))
	}

	router.GET("/healthz", common.HealthCheckWithDeps("reviews", serviceVersion, map[string]func() error{
		"postgres": health.DatabaseChecker(pool),
		"redis":    health.RedisChecker(redisClient.Client),
	}))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	jwtSecret := cfg.JWT.Secret
	auth := middleware.AuthMiddleware(jwtSecret)

	api := router.Group("/api/v1")
	{
		api.GET("/businesses/:id", businessHandler.GetBusiness)
		api.GET("/businesses/:id/reviews", reviewHandler.ListBusinessReviews)
		api.GET("/reviews/:id", reviewHandler.GetReview)
		api.GET("/coupons/validate/:code", couponHandler.ValidateCoupon)

		authed := api.Group("")
		authed.Use(auth)
		{
			authed.POST("/reviews", reviewHandler.SubmitReview)
			authed.POST("/reviews/:id/helpful", reviewHandler.MarkHelpful)
			authed.GET("/coupons", couponHandler.ListMyCoupons)
			authed.POST("/coupons/:id/discount", couponHandler.CalculateDiscount)
			authed.GET("/notifications", notifHandler.ListMyNotifications)
			authed.POST("/notifications/:id/read", notifHandler.MarkRead)

			owner := authed.Group("")
			owner.Use(middleware.RequireRole(middleware.RoleOwner, middleware.RoleAdmin))
			{
				owner.POST("/businesses", businessHandler.CreateBusiness)
				owner.PUT("/businesses/:id", businessHandler.UpdateBusiness)
				owner.POST("/coupons/:id/redeem", couponHandler.RedeemCoupon)
			}

			admin := authed.Group("/admin")
			admin.Use(middleware.RequireRole(middleware.RoleAdmin))
			{
				admin.PUT("/reviews/:id/status", reviewHandler.ModerateReview)
				admin.GET("/fraud/activity", fraudHandler.ListActivity)
				admin.DELETE("/fraud/activity", fraudHandler.ClearActivity)
			}
		}
	}

	return router
}
