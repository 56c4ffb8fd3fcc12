// Package cache keeps successful geolocation lookups in Redis.
package cache

import (
	"UTM-Backend/internal/geo"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "geo:"

// GeoCache реализует geo.Cache поверх Redis
type GeoCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewGeoCache подключается к Redis и проверяет соединение
func NewGeoCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*GeoCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &GeoCache{client: client, ttl: ttl}, nil
}

// Get возвращает закэшированный результат; ok=false при промахе
func (c *GeoCache) Get(ctx context.Context, ip string) (geo.Result, bool, error) {
	val, err := c.client.Get(ctx, keyPrefix+ip).Bytes()
	if errors.Is(err, redis.Nil) {
		return geo.Result{}, false, nil
	}
	if err != nil {
		return geo.Result{}, false, fmt.Errorf("failed to get key: %w", err)
	}

	var res geo.Result
	if err := json.Unmarshal(val, &res); err != nil {
		return geo.Result{}, false, fmt.Errorf("failed to decode cached geolocation: %w", err)
	}
	return res, true, nil
}

// Set сохраняет результат с TTL
func (c *GeoCache) Set(ctx context.Context, ip string, res geo.Result) error {
	val, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode geolocation: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+ip, val, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

// Ping проверяет доступность Redis
func (c *GeoCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *GeoCache) Close() error {
	return c.client.Close()
}
