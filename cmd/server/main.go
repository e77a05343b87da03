package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/parkfinder/service-parking/internal/application"
	"github.com/parkfinder/service-parking/internal/config"
	"github.com/parkfinder/service-parking/internal/database"
	"github.com/parkfinder/service-parking/internal/domain/booking"
	"github.com/parkfinder/service-parking/internal/domain/spot"
	"github.com/parkfinder/service-parking/internal/events"
	"github.com/parkfinder/service-parking/internal/geocode"
	"github.com/parkfinder/service-parking/internal/handler"
	"github.com/parkfinder/service-parking/internal/health"
	"github.com/parkfinder/service-parking/internal/kafka"
	"github.com/parkfinder/service-parking/internal/logger"
	"github.com/parkfinder/service-parking/internal/middleware"
	"github.com/parkfinder/service-parking/internal/repository"
)

const (
	serviceName    = "service-parking"
	sessionMaxIdle = 2 * time.Hour
)

// pinger is implemented by every ledger store.
type pinger interface {
	booking.KVStore
	Ping(ctx context.Context) error
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("ledger_backend", cfg.LedgerConfig.Backend),
		zap.String("catalog_source", cfg.CatalogConfig.Source),
	)

	// Connect to database when a component needs it
	var db *gorm.DB
	if cfg.NeedsDatabase() {
		db, err = database.Connect(cfg.DBConfig.DSN(), database.PoolConfig{}, log)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		if cfg.AppEnv == "development" {
			if err := db.AutoMigrate(&repository.KVEntryModel{}, &repository.SpotModel{}); err != nil {
				log.Fatal("failed to run auto-migration", zap.Error(err))
			}
			log.Info("database migration completed (dev auto-migrate)")
		} else if err := database.RunMigrations(cfg.DBConfig.DatabaseURL(), "migrations", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize ledger store
	var store pinger
	switch cfg.LedgerConfig.Backend {
	case "postgres":
		store = repository.NewGormKVStore(db)
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Addr,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		defer func() { _ = rdb.Close() }()
		store = repository.NewRedisKVStore(rdb, "parking:")
	default:
		log.Warn("using in-memory ledger, bookings are lost on restart")
		store = repository.NewMemoryKVStore()
	}
	ledger := booking.NewLedger(store, cfg.LedgerConfig.Key)

	// Initialize catalog source
	var source spot.Source
	switch cfg.CatalogConfig.Source {
	case "postgres":
		source = repository.NewGormSpotRepository(db)
	case "http":
		source = repository.NewHTTPCatalogSource(cfg.CatalogConfig.URL, cfg.CatalogConfig.Timeout)
	default:
		source = repository.NewFileCatalogSource(cfg.CatalogConfig.Path)
	}
	catalog := application.NewCatalogCache(source, log.Named("catalog"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := catalog.Reload(ctx); err != nil {
		log.Warn("initial catalog load failed, serving empty catalog", zap.Error(err))
	}

	// Initialize Kafka producer
	var publisher application.EventPublisher = application.NoopPublisher{}
	if len(cfg.KafkaConfig.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
		defer func() { _ = producer.Close() }()
		publisher = producer

		groupID := cfg.KafkaConfig.GroupPrefix + serviceName
		catalogConsumer := events.NewCatalogEventConsumer(cfg.KafkaConfig.Brokers, groupID, catalog, log)
		defer func() { _ = catalogConsumer.Close() }()

		go func() {
			log.Info("starting catalog event consumer")
			if err := catalogConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("catalog event consumer error", zap.Error(err))
			}
		}()
	} else {
		log.Info("no Kafka brokers configured, events disabled")
	}

	// Initialize application services
	sessions := application.NewSessionStore()
	geocoder := geocode.NewNominatimClient(geocode.Config{
		BaseURL:        cfg.GeocoderConfig.URL,
		UserAgent:      cfg.GeocoderConfig.UserAgent,
		RequestsPerSec: cfg.GeocoderConfig.RequestsPerSec,
		Timeout:        cfg.GeocoderConfig.Timeout,
	}, log.Named("geocoder"))

	discoveryService := application.NewDiscoveryService(sessions, catalog, geocoder, application.DiscoveryDefaults{
		RadiusKm:       cfg.DiscoveryConfig.DefaultRadiusKm,
		ResultCap:      cfg.DiscoveryConfig.ResultCap,
		DefaultLat:     cfg.DiscoveryConfig.DefaultLat,
		DefaultLng:     cfg.DiscoveryConfig.DefaultLng,
		CurrencySymbol: cfg.DiscoveryConfig.CurrencySymbol,
		MapsKey:        cfg.DiscoveryConfig.MapsKey,
	}, log)
	bookingService := application.NewBookingService(
		sessions,
		catalog,
		ledger,
		booking.NewHourlyFareEstimator(),
		booking.NewClockIDGenerator(nil),
		publisher,
		cfg.DiscoveryConfig.CurrencySymbol,
		log,
	)
	adminService := application.NewAdminService(sessions, catalog, ledger, log)

	go evictIdleSessions(ctx, sessions, log)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(serviceName).
		AddCheck("ledger", store.Ping).
		AddCheck("catalog", catalog.Ready)
	healthHandler.RegisterRoutes(router)

	// Register routes
	handler.NewDiscoveryHandler(discoveryService).RegisterRoutes(&router.RouterGroup)
	handler.NewBookingHandler(bookingService).RegisterRoutes(&router.RouterGroup)
	handler.NewAdminHandler(adminService).RegisterRoutes(&router.RouterGroup)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
}

func evictIdleSessions(ctx context.Context, sessions *application.SessionStore, log *zap.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.EvictIdle(sessionMaxIdle); n > 0 {
				log.Info("evicted idle sessions", zap.Int("count", n))
			}
		}
	}
}
