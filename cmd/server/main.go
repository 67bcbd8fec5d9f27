package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/app"
	"dispatch/internal/config"
	"dispatch/internal/geocode"
	"dispatch/internal/handler"
	"dispatch/internal/logging"
	"dispatch/internal/notify"
	"dispatch/internal/payments"
	internalredis "dispatch/internal/redis"
	"dispatch/internal/repository/postgres"
	"dispatch/internal/service"
)

func main() {
	cfg := config.Load()
	logger := logging.NewLogger(cfg.Log.Level)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic first so the database and redis clients can be
	// instrumented.
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", "error", err)
		} else {
			logger.Info("New Relic enabled", "app", cfg.NewRelic.AppName)
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	var publisher service.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kp := notify.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kp.Close()
		publisher = kp
		logger.Info("kafka publisher enabled", "topic", cfg.Kafka.Topic)
	}

	server := wireServer(db, redisClient, nrApp, publisher, cfg, logger)

	go func() {
		logger.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	logger.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
	publisher service.Publisher,
	cfg *config.Config,
	logger *slog.Logger,
) *http.Server {
	// Redis stores.
	locationStore := internalredis.NewLocationStore(redisClient)
	lockStore := internalredis.NewLockStore(redisClient)
	walletStore := internalredis.NewWalletStore(redisClient)

	// Repositories.
	txManager := postgres.NewTxManager(db)
	rideRepo := postgres.NewRideRepository(db)
	offerRepo := postgres.NewOfferRepository(db)
	driverRepo := postgres.NewDriverRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	loyaltyRepo := postgres.NewLoyaltyRepository(db)
	favoriteRepo := postgres.NewFavoriteRepository(db)

	// Outbound collaborators.
	var geocoder service.Geocoder = geocode.Disabled{}
	if cfg.Maps.APIKey != "" {
		gc, err := geocode.NewClient(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("failed to create geocoding client: %v", err)
		}
		geocoder = gc
	} else {
		logger.Warn("no maps API key configured, fare estimation disabled")
	}
	stripeGateway := payments.NewStripeGateway(cfg.Stripe.APIKey)
	charger := service.NewWalletFirstCharger(walletStore, stripeGateway, cfg.Stripe.Currency, logger)

	// Services.
	notifier := service.NewNotificationService(publisher, logger)
	pricingService := service.NewPricingService(geocoder, logger)
	strategy := service.NewKinFirstStrategy(favoriteRepo, locationStore, logger)
	matchingService := service.NewMatchingService(
		txManager, rideRepo, offerRepo, driverRepo, lockStore, strategy, notifier, logger,
		service.MatchingOptions{
			OfferTTL:       cfg.Dispatch.OfferTTL,
			BatchSize:      cfg.Dispatch.MatchBatchSize,
			MaxMatchRounds: cfg.Dispatch.MaxMatchRounds,
		})
	settlementService := service.NewSettlementService(
		txManager, rideRepo, paymentRepo, loyaltyRepo, favoriteRepo, charger, logger)
	rideService := service.NewRideService(
		txManager, rideRepo, favoriteRepo, pricingService, matchingService, settlementService, notifier, logger)
	offerService := service.NewOfferService(txManager, rideRepo, offerRepo, notifier, logger)
	driverService := service.NewDriverService(driverRepo, locationStore, logger)
	sweeperService := service.NewSweeperService(rideRepo, offerRepo, matchingService, logger)

	// Handlers.
	rideHandler := handler.NewRideHandler(rideService)
	offerHandler := handler.NewOfferHandler(offerService)
	driverHandler := handler.NewDriverHandler(driverService)
	paymentHandler := handler.NewPaymentHandler(settlementService, paymentRepo)
	sweeperHandler := handler.NewSweeperHandler(sweeperService, cfg.Sweeper.Secret)

	router := app.NewRouter(app.RouterDeps{
		RideHandler:        rideHandler,
		OfferHandler:       offerHandler,
		DriverHandler:      driverHandler,
		PaymentHandler:     paymentHandler,
		SweeperHandler:     sweeperHandler,
		RedisClient:        redisClient,
		NewRelicApp:        nrApp,
		RateLimitPerMinute: cfg.Dispatch.RateLimitPerMinute,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
