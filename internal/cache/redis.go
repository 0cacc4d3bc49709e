package cache

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/trackwell/attribution-service/internal/models"
)

// Connect initializes a Redis client from URL or host:port input. Supporting
// both formats keeps local and container config paths simple.
func Connect(addr string) (*redis.Client, error) {
	if strings.HasPrefix(addr, "redis://") {
		opt, err := redis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: addr}), nil
}

// RedisRateCache stores rate contexts as JSON under a TTL. Cache failures are
// logged and treated as misses; the conversion path never depends on Redis.
type RedisRateCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRateCache(client *redis.Client, ttl time.Duration) *RedisRateCache {
	return &RedisRateCache{client: client, ttl: ttl}
}

func rateKey(linkID uuid.UUID) string {
	return "attribution:rate:" + linkID.String()
}

func (c *RedisRateCache) Get(ctx context.Context, linkID uuid.UUID) (*models.RateContext, bool) {
	raw, err := c.client.Get(ctx, rateKey(linkID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("rate cache get: %v", err)
		}
		return nil, false
	}
	var rc models.RateContext
	if err := json.Unmarshal(raw, &rc); err != nil {
		log.Printf("rate cache decode: %v", err)
		return nil, false
	}
	return &rc, true
}

func (c *RedisRateCache) Set(ctx context.Context, linkID uuid.UUID, rc *models.RateContext) {
	raw, err := json.Marshal(rc)
	if err != nil {
		log.Printf("rate cache encode: %v", err)
		return
	}
	if err := c.client.Set(ctx, rateKey(linkID), raw, c.ttl).Err(); err != nil {
		log.Printf("rate cache set: %v", err)
	}
}
