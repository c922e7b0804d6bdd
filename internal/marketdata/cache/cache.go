// Package cache implements a Redis-backed cache for the last PriceSample
// seen per instrument, fronting a real (non-sim) market-data provider —
// the LastPriceSampleSource capability's external-provider counterpart
// (spec.md §4.D "Capabilities exposed:
// LastPriceSampleSource.get_last_price_sample(instrument)"). Grounded in
// libs/marketdata/cache.go, narrowed from that file's Quote/Candle shapes
// to domain.PriceSample.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"jax-eventengine/internal/domain"
)

// Config mirrors libs/marketdata/cache.go's CacheConfig.
type Config struct {
	RedisURL string
	TTL      time.Duration
}

// Cache is a domain.LastPriceSampleSource backed by Redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies connectivity with a bounded ping,
// matching libs/marketdata/cache.go's NewCache.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("%w: cache connect: %v", domain.ErrConnection, err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Cache{client: client, ttl: ttl}, nil
}

// wireSample is the JSON wire shape; decimal.Decimal round-trips via its
// own MarshalJSON/UnmarshalJSON, so this mirrors domain.PriceSample
// directly.
type wireSample struct {
	Instrument string          `json:"instrument"`
	Timestamp  time.Time       `json:"timestamp"`
	PriceType  string          `json:"price_type"`
	Price      decimal.Decimal `json:"price"`
}

func key(instrument domain.Instrument) string {
	return "price_sample:" + instrument.Key()
}

// GetLastPriceSample implements LastPriceSampleSource by reading the
// cached sample, or domain.ErrUnknownEntity if nothing is cached yet.
func (c *Cache) GetLastPriceSample(ctx context.Context, instrument domain.Instrument) (domain.PriceSample, error) {
	data, err := c.client.Get(ctx, key(instrument)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return domain.PriceSample{}, fmt.Errorf("%w: no cached price sample for %s", domain.ErrUnknownEntity, instrument.Key())
		}
		return domain.PriceSample{}, fmt.Errorf("%w: cache get: %v", domain.ErrConnection, err)
	}

	var w wireSample
	if err := json.Unmarshal(data, &w); err != nil {
		return domain.PriceSample{}, fmt.Errorf("%w: cache unmarshal: %v", domain.ErrConnection, err)
	}
	return domain.PriceSample{
		Instrument: instrument,
		Timestamp:  w.Timestamp,
		PriceType:  domain.PriceType(w.PriceType),
		Price:      w.Price,
	}, nil
}

// SetLastPriceSample writes sample to the cache under its TTL, called by
// the provider adapter on every new sample it observes.
func (c *Cache) SetLastPriceSample(ctx context.Context, sample domain.PriceSample) error {
	w := wireSample{
		Instrument: sample.Instrument.Key(),
		Timestamp:  sample.Timestamp,
		PriceType:  string(sample.PriceType),
		Price:      sample.Price,
	}
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("%w: cache marshal: %v", domain.ErrConnection, err)
	}
	if err := c.client.Set(ctx, key(sample.Instrument), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: cache set: %v", domain.ErrConnection, err)
	}
	return nil
}

// Close releases the underlying Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
