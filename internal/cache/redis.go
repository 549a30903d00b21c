package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Arseniy92/charterpay/config"
	"github.com/Arseniy92/charterpay/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client     *redis.Client
	flightsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, flightsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		flightsTTL: flightsTTL,
	}
}

func (c *RedisCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	data, err := c.client.Get(ctx, flightsKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var flights []domain.Flight
	if err := json.Unmarshal(data, &flights); err != nil {
		return nil, err
	}
	return flights, nil
}

func (c *RedisCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	payload, err := json.Marshal(flights)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, flightsKey(), payload, c.flightsTTL).Err()
}

func (c *RedisCache) InvalidateFlights(ctx context.Context) error {
	return c.client.Del(ctx, flightsKey()).Err()
}

// MarkEventProcessed records a webhook event id and reports whether this is
// the first delivery. Duplicate deliveries within the TTL short-circuit the
// reconciler; the booking state machine stays the authoritative guard when
// redis is unavailable.
func (c *RedisCache) MarkEventProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, eventKey(eventID), "processed", ttl).Result()
}

// ClearEvent removes a dedup mark so a redelivery of the event is processed
// again. Used when applying the event failed after the mark was taken.
func (c *RedisCache) ClearEvent(ctx context.Context, eventID string) error {
	return c.client.Del(ctx, eventKey(eventID)).Err()
}

func flightsKey() string {
	return "cache:flights"
}

func eventKey(eventID string) string {
	return "webhook:event:" + eventID
}
