package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maumtalk/counselgo/pkg/config"
	"github.com/maumtalk/counselgo/pkg/interfaces"
	"github.com/maumtalk/counselgo/pkg/types"
)

// PreferenceCache is a read-through Redis cache in front of a
// PreferenceStore. Profiles are read on every turn but change rarely,
// so they cache well; upserts invalidate before writing through.
// Cache failures degrade to the backing store and are only logged.
type PreferenceCache struct {
	backing interfaces.PreferenceStore
	client  *redis.Client
	ttl     time.Duration
	logger  interfaces.Logger
}

// NewPreferenceCache connects to Redis and wraps the backing store
func NewPreferenceCache(backing interfaces.PreferenceStore, cfg *config.StoreConfig, logger interfaces.Logger) (*PreferenceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	logger.Info("preference cache connected", map[string]interface{}{
		"addr": cfg.RedisAddr,
		"ttl":  ttl.String(),
	})
	return &PreferenceCache{
		backing: backing,
		client:  client,
		ttl:     ttl,
		logger:  logger,
	}, nil
}

func cacheKey(userID, personaID string) string {
	return fmt.Sprintf("counselgo:pref:%s:%s", userID, personaID)
}

// Profile returns the cached profile, falling back to the backing store
// and populating the cache on a miss
func (c *PreferenceCache) Profile(ctx context.Context, userID, personaID string) (*types.PreferenceProfile, error) {
	key := cacheKey(userID, personaID)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var profile types.PreferenceProfile
		if jsonErr := json.Unmarshal(payload, &profile); jsonErr == nil {
			return &profile, nil
		}
		// Undecodable entry, fall through to the store
		c.client.Del(ctx, key)
	} else if err != redis.Nil {
		c.logger.Warn("preference cache read failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}

	profile, err := c.backing.Profile(ctx, userID, personaID)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		c.populate(ctx, key, profile)
	}
	return profile, nil
}

// UpsertProfile invalidates the cache entry, writes through, then
// repopulates with the new profile
func (c *PreferenceCache) UpsertProfile(ctx context.Context, profile *types.PreferenceProfile) error {
	key := cacheKey(profile.UserID, profile.PersonaID)

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("preference cache invalidation failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
	if err := c.backing.UpsertProfile(ctx, profile); err != nil {
		return err
	}
	c.populate(ctx, key, profile)
	return nil
}

func (c *PreferenceCache) populate(ctx context.Context, key string, profile *types.PreferenceProfile) {
	payload, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("preference cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

// Close releases the Redis connection
func (c *PreferenceCache) Close() error {
	return c.client.Close()
}
