package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"staybook/internal/config"
	"staybook/internal/database"
	"staybook/internal/middleware"
	"staybook/internal/modules/apartment"
	"staybook/internal/modules/booking"
	"staybook/internal/modules/image"
	"staybook/internal/modules/payment"
	"staybook/internal/modules/review"
	"staybook/internal/pkg/acquiring"
	"staybook/internal/pkg/cache"
	"staybook/internal/pkg/events"
	jwtsvc "staybook/internal/pkg/jwt"
	"staybook/internal/pkg/logger"
	"staybook/internal/pkg/storage"
	"staybook/internal/pkg/validator"
	"staybook/internal/repository"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.AppEnv)
	if cfg.IsProdLike() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL, database.Options{Logger: log})
	if err != nil {
		log.Error("database connect failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db, repository.Models()...); err != nil {
		log.Error("database migrate failed", "error", err)
		os.Exit(1)
	}

	appCache := newCache(ctx, cfg, log)
	publisher := newPublisher(cfg, log)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("event publisher close failed", "error", err)
		}
	}()
	store, err := newStore(cfg, log)
	if err != nil {
		log.Error("storage init failed", "error", err)
		os.Exit(1)
	}

	bookingRepo := repository.NewBookingRepository(db)
	apartmentRepo := repository.NewApartmentRepository(db)
	userRepo := repository.NewUserRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	imageRepo := repository.NewImageRepository(db)
	tx := repository.NewTxManager(db)

	bookingService := booking.NewService(bookingRepo, apartmentRepo, userRepo, paymentRepo, reviewRepo, tx, booking.Options{
		Cache:    appCache,
		CacheTTL: cfg.CacheTTL,
		Events:   publisher,
		Logger:   log,
	})

	mono := acquiring.NewMono(acquiring.Config{
		BaseURL: cfg.Mono.BaseURL,
		Token:   cfg.Mono.Token,
		Timeout: cfg.Mono.Timeout,
		Logger:  log,
	})
	paymentService := payment.NewService(paymentRepo, bookingRepo, bookingService, mono, tx, payment.Config{
		RedirectURL:   cfg.Mono.RedirectURL,
		WebhookURL:    cfg.Mono.WebhookURL,
		WebhookSecret: cfg.PaymentWebhookSecret,
	}, payment.Options{Events: publisher, Logger: log})

	reviewService := review.NewService(reviewRepo, ratingRepo, bookingRepo, tx, review.Options{
		Cache:         appCache,
		CacheTTL:      cfg.CacheTTL,
		DefaultRating: cfg.DefaultRating,
		Events:        publisher,
		Logger:        log,
	})

	apartmentService := apartment.NewService(
		apartmentRepo,
		bookingRepo,
		imageRepo,
		reviewService,
		image.NewResolver(store, imageRepo, "listings", log),
		tx,
		log,
	)

	tokens := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)
	validator.Register()

	r := gin.New()
	r.Use(
		middleware.CORS(cfg.CORSAllowedOrigins),
		middleware.RequestID(),
		middleware.RequestLogger(log),
		middleware.ErrorHandler(log),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if local, ok := store.(*storage.Local); ok {
		r.Static(local.StaticBase(), local.BaseDir())
	}

	api := r.Group("/api")
	paymentHandler := payment.NewHandler(paymentService)
	paymentHandler.RegisterPublicRoutes(api)

	protected := api.Group("", middleware.JWTAuth(tokens))
	booking.NewHandler(bookingService).RegisterRoutes(protected)
	paymentHandler.RegisterProtectedRoutes(protected)
	review.NewHandler(reviewService).RegisterRoutes(protected)
	apartment.NewHandler(apartmentService).RegisterRoutes(protected)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown failed", "error", err)
		}
	}()

	log.Info("HTTP server starting", "addr", cfg.HTTPAddr, "env", cfg.AppEnv)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("http server failed", "error", err)
		os.Exit(1)
	}
	log.Info("HTTP server stopped")
}

// newCache falls back to no caching when redis is not configured or not reachable.
func newCache(ctx context.Context, cfg *config.Config, log *slog.Logger) cache.Cache {
	if cfg.RedisURL == "" {
		log.Info("cache disabled")
		return cache.Noop{}
	}
	rc, err := cache.NewRedisFromURL(cfg.RedisURL, "staybook")
	if err != nil {
		log.Warn("cache disabled: invalid REDIS_URL", "error", err)
		return cache.Noop{}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		// Cache reads fail open, keep the client so it recovers once redis is back.
		log.Warn("redis not reachable", "error", err)
	}
	return rc
}

func newPublisher(cfg *config.Config, log *slog.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.Noop{}
	}
	k, err := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopicPrefix, nil)
	if err != nil {
		log.Warn("events disabled", "error", err)
		return events.Noop{}
	}
	return k
}

func newStore(cfg *config.Config, log *slog.Logger) (storage.Store, error) {
	if !cfg.S3.Enabled() {
		log.Info("storing uploads on local disk", "dir", cfg.UploadsDir)
		return storage.NewLocal(cfg.UploadsDir, ""), nil
	}
	return storage.NewMinio(storage.MinioConfig{
		Endpoint:       cfg.S3.Endpoint,
		AccessKey:      cfg.S3.AccessKey,
		SecretKey:      cfg.S3.SecretKey,
		Bucket:         cfg.S3.Bucket,
		UseSSL:         cfg.S3.UseSSL,
		PublicEndpoint: cfg.S3.PublicEndpoint,
		Region:         cfg.S3.Region,
	}, log)
}
