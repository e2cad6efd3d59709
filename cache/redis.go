package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/pokebim/pricewatch/models"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

const keyPrefix = "pricewatch:quote:"

// Redis is a Store shared between service instances. Quotes are stored as
// JSON with a TTL; Redis errors degrade to cache misses.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to the Redis server at rawURL.
func NewRedis(ctx context.Context, rawURL string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "parse redis url")
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, eris.Wrap(err, "ping redis")
	}
	return NewRedisWithClient(client, ttl), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) (*models.Quote, bool) {
	raw, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("cache get failed", "error", err)
		}
		return nil, false
	}

	var q models.Quote
	if err := json.Unmarshal(raw, &q); err != nil {
		slog.Warn("cache entry is not a quote, ignoring", "error", err)
		return nil, false
	}
	return &q, true
}

func (r *Redis) Set(ctx context.Context, key string, quote *models.Quote) {
	if quote == nil {
		return
	}
	raw, err := json.Marshal(quote)
	if err != nil {
		slog.Warn("cache marshal failed", "error", err)
		return
	}
	if err := r.client.Set(ctx, keyPrefix+key, raw, r.ttl).Err(); err != nil {
		slog.Warn("cache set failed", "error", err)
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
