// Package rediscache puts a Redis read-through cache in front of the service
// catalog. Policies change rarely and are read on every slot query and admission.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"reservo/internal/domain"
	"reservo/internal/store"
)

const keyPrefix = "reservo:policy:"

// Client is the subset of *redis.Client the cache uses.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

type PolicyCache struct {
	rdb    Client
	next   store.ServiceCatalog
	ttl    time.Duration
	logger *slog.Logger
}

// NewPolicyCache wraps next. Redis failures are logged and the call falls through
// to next, so the cache can never make a lookup fail.
func NewPolicyCache(rdb Client, next store.ServiceCatalog, ttl time.Duration, logger *slog.Logger) *PolicyCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PolicyCache{
		rdb:    rdb,
		next:   next,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "policy_cache")),
	}
}

type cachedPolicy struct {
	ServiceID     string `json:"service_id"`
	ProviderID    string `json:"provider_id"`
	DurationValue int    `json:"duration"`
	DurationUnit  string `json:"duration_unit"`
}

func (c *PolicyCache) GetPolicy(ctx context.Context, serviceID string) (domain.ServicePolicy, error) {
	key := keyPrefix + serviceID

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cp cachedPolicy
		if err := json.Unmarshal(raw, &cp); err == nil {
			return domain.ServicePolicy{
				ServiceID:     cp.ServiceID,
				ProviderID:    cp.ProviderID,
				DurationValue: cp.DurationValue,
				DurationUnit:  domain.DurationUnit(cp.DurationUnit),
			}, nil
		}
		c.logger.Warn("discarding undecodable cache entry", slog.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("policy cache read failed", slog.String("key", key), slog.Any("err", err))
	}

	p, err := c.next.GetPolicy(ctx, serviceID)
	if err != nil {
		return domain.ServicePolicy{}, err
	}

	b, err := json.Marshal(cachedPolicy{
		ServiceID:     p.ServiceID,
		ProviderID:    p.ProviderID,
		DurationValue: p.DurationValue,
		DurationUnit:  string(p.DurationUnit),
	})
	if err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			c.logger.Warn("policy cache write failed", slog.String("key", key), slog.Any("err", err))
		}
	}
	return p, nil
}

func ReadyCheck(rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}
