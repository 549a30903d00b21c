package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Arseniy92/charterpay/api"
	"github.com/Arseniy92/charterpay/config"
	"github.com/Arseniy92/charterpay/internal/bootstrap"
	"github.com/Arseniy92/charterpay/internal/cache"
	"github.com/Arseniy92/charterpay/internal/kafka"
	"github.com/Arseniy92/charterpay/internal/payments"
	"github.com/Arseniy92/charterpay/internal/repository"
	"github.com/Arseniy92/charterpay/internal/service/booking"
	"github.com/Arseniy92/charterpay/internal/service/flights"
	"github.com/Arseniy92/charterpay/internal/service/reconcile"
	"github.com/Arseniy92/charterpay/internal/service/sweep"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.FlightsCacheTTL)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	gateway := payments.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret,
		time.Duration(cfg.Stripe.TimeoutSeconds)*time.Second)

	flightRepo := repository.NewFlightRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)

	flightService := flights.NewFlightService(flightRepo, redisCache, logger)
	bookingService := booking.NewBookingService(
		bookingRepo,
		flightRepo,
		gateway,
		redisCache,
		producer,
		cfg.Kafka.BookingTopic,
		logger,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)
	sweepService := sweep.NewService(flightRepo, bookingRepo, bookingService,
		time.Duration(cfg.Sweep.LookaheadDays)*24*time.Hour, logger)
	reconciler := reconcile.NewReconciler(bookingRepo, bookingService, redisCache,
		time.Duration(cfg.Booking.EventDedupTTL)*time.Second, logger)

	handlers := bootstrap.Handlers{
		Flights:  api.NewFlightHandler(flightService),
		Bookings: api.NewBookingHandler(bookingService),
		Admin:    api.NewAdminHandler(bookingService, bookingRepo, sweepService),
		Webhooks: api.NewWebhookHandler(gateway, reconciler, logger),
	}

	if err := bootstrap.Run(ctx, cfg, logger, handlers); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
