package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Arseniy92/charterpay/config"
	"github.com/Arseniy92/charterpay/internal/cache"
	"github.com/Arseniy92/charterpay/internal/email"
	"github.com/Arseniy92/charterpay/internal/kafka"
	"github.com/Arseniy92/charterpay/internal/payments"
	"github.com/Arseniy92/charterpay/internal/repository"
	"github.com/Arseniy92/charterpay/internal/service/booking"
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

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, logger)
	defer consumer.Close()

	emailSender := email.NewSender()

	go func() {
		for {
			err := consumer.ConsumeEvents(ctx, emailSender.Send)
			if err == nil {
				return
			}
			logger.Warn("notifications consumer stopped, reconnecting", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
		}
	}()

	sweepTicker := time.NewTicker(time.Duration(cfg.Sweep.IntervalMinutes) * time.Minute)
	defer sweepTicker.Stop()

	for {
		select {
		case <-sweepTicker.C:
			report, err := sweepService.Run(ctx)
			if err != nil {
				logger.Error("refund sweep failed", zap.Error(err))
				continue
			}
			if len(report.Results) > 0 {
				logger.Info("refund sweep completed",
					zap.Int("flights_checked", report.FlightsChecked),
					zap.Int("bookings_processed", len(report.Results)))
			}
		case <-ctx.Done():
			logger.Info("shutting down worker")
			return
		}
	}
}
