package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/audit"
	"storefront/checkout"
	"storefront/config"
	"storefront/database"
	"storefront/events"
	"storefront/logger"
	"storefront/notify"
	"storefront/routes"
	"storefront/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := config.LoadEnv(); err != nil {
		log.Fatal("Error loading .env file:", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := logger.Init(cfg.IsDevelopment()); err != nil {
		log.Fatal("Failed to init logger:", err)
	}
	defer logger.Sync()
	zlog := logger.L()

	// Validate critical environment variables
	if err := config.ValidateEnv(zlog); err != nil {
		zlog.Fatal("Environment validation failed", zap.Error(err))
	}

	db, err := database.Connect(cfg.DB)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zlog.Fatal("Failed to run migrations", zap.Error(err))
	}
	if err := database.CreateDefaultStaff(db, zlog); err != nil {
		zlog.Warn("Could not create default staff user", zap.Error(err))
	}

	// Sessions live in Redis when configured so every instance sees the
	// same guest carts.
	var sessions session.Store = session.NewMemoryStore(cfg.Session.TTL)
	var closers []func()
	if cfg.Redis.Addr != "" {
		rdb, err := session.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger.Named("redis"))
		if err != nil {
			zlog.Fatal("Failed to connect to redis", zap.Error(err))
		}
		sessions = session.NewRedisStore(rdb, cfg.Session.TTL)
		closers = append(closers, func() { _ = rdb.Close() })
	}

	var recorders []audit.Recorder
	if cfg.Mongo.URI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		rec, err := audit.NewMongoRecorder(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
		cancel()
		if err != nil {
			zlog.Fatal("Failed to connect to mongo", zap.Error(err))
		}
		recorders = append(recorders, rec)
		closers = append(closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = rec.Close(ctx)
		})
	}
	auditLog := audit.New(logger.Named("audit"), recorders...)

	var mailer notify.Mailer = notify.NewLogMailer(logger.Named("mail"))
	if cfg.SMTP.Enabled() {
		mailer = notify.NewSMTPMailer(cfg.SMTP)
	}

	dispatcher := events.NewDispatcher(logger.Named("events"), cfg.Events.Workers, cfg.Events.QueueSize)
	dispatcher.Subscribe(events.CheckoutCompletedName, "order-confirmation",
		notify.New(mailer, auditLog, logger.Named("notify"), cfg.SiteURL))
	dispatcher.Subscribe(events.UserRegisteredName, "welcome-email",
		notify.NewWelcomer(mailer, logger.Named("notify"), cfg.SiteURL))
	if cfg.Kafka.Enabled() {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.OrdersTopic, logger.Named("kafka"))
		dispatcher.Subscribe(events.CheckoutCompletedName, "kafka-orders", kp)
		closers = append(closers, func() { _ = kp.Close() })
	}

	checkoutService := checkout.NewService(db, dispatcher, auditLog, logger.Named("checkout"))

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger())

	// CORS configuration - filter out empty strings from AllowOrigins
	var origins []string
	for _, o := range []string{cfg.FrontendURL, cfg.AdminURL} {
		if o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
		zlog.Warn("No CORS origins configured, defaulting to http://localhost:3000")
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Location", "X-Request-ID"},
		AllowCredentials: true,
	}))

	stopLimiters := routes.SetupRoutes(r, routes.Deps{
		DB:       db,
		Sessions: sessions,
		SessionOptions: session.Options{
			CookieName: cfg.Session.CookieName,
			TTL:        cfg.Session.TTL,
			Secure:     cfg.Session.Secure,
		},
		Checkout: checkoutService,
		Events:   dispatcher,
		Audit:    auditLog,
		Log:      zlog,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		zlog.Info("Server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("Server forced to shutdown", zap.Error(err))
	}
	stopLimiters()

	// Pending confirmation emails and stream messages go out before the
	// transports are closed.
	if err := dispatcher.Close(ctx); err != nil {
		zlog.Warn("Event queue not drained", zap.Error(err))
	}
	for _, closeFn := range closers {
		closeFn()
	}

	sqlDB, err := db.DB()
	if err == nil {
		if err := sqlDB.Close(); err != nil {
			zlog.Error("Error closing database connection", zap.Error(err))
		} else {
			zlog.Info("Database connection closed")
		}
	}

	zlog.Info("Server exited gracefully")
}
