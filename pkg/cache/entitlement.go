package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// entitlementPrefix is the key prefix for per-user purchased-book sets
	entitlementPrefix = "entitlements:user:"

	// entitlementTTL bounds staleness of the derived set (refreshed on write)
	entitlementTTL = 7 * 24 * time.Hour
)

// EntitlementCache is the derived, denormalized view of completed purchases.
// The database stays the source of truth; authorization never reads the cache.
type EntitlementCache interface {
	// Grant adds a book to the user's purchased set.
	Grant(ctx context.Context, userID, bookID uuid.UUID) error

	// Revoke removes a book from the user's purchased set (refund path).
	Revoke(ctx context.Context, userID, bookID uuid.UUID) error

	// IsOwned reports whether the set contains the book.
	// found=false means the set is absent and the caller must fall back to the database.
	IsOwned(ctx context.Context, userID, bookID uuid.UUID) (owned bool, found bool, err error)

	// Warm replaces the user's set with the given book IDs.
	Warm(ctx context.Context, userID uuid.UUID, bookIDs []uuid.UUID) error

	Ping(ctx context.Context) error
	Close() error
}

type entitlementCache struct {
	client *redis.Client
}

// NewEntitlementCache creates a Redis-backed entitlement cache from a URL.
// URL format: redis://[:password@]host:port[/db]
func NewEntitlementCache(redisURL string) (EntitlementCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	return &entitlementCache{client: redis.NewClient(opts)}, nil
}

func key(userID uuid.UUID) string {
	return entitlementPrefix + userID.String()
}

func (c *entitlementCache) Grant(ctx context.Context, userID, bookID uuid.UUID) error {
	k := key(userID)

	pipe := c.client.Pipeline()
	pipe.SAdd(ctx, k, bookID.String())
	pipe.Expire(ctx, k, entitlementTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("grant entitlement %s for user %s: %w", bookID.String(), userID.String(), err)
	}

	return nil
}

func (c *entitlementCache) Revoke(ctx context.Context, userID, bookID uuid.UUID) error {
	if err := c.client.SRem(ctx, key(userID), bookID.String()).Err(); err != nil {
		return fmt.Errorf("revoke entitlement %s for user %s: %w", bookID.String(), userID.String(), err)
	}

	return nil
}

func (c *entitlementCache) IsOwned(ctx context.Context, userID, bookID uuid.UUID) (bool, bool, error) {
	k := key(userID)

	exists, err := c.client.Exists(ctx, k).Result()
	if err != nil {
		return false, false, fmt.Errorf("check entitlement set for user %s: %w", userID.String(), err)
	}
	if exists == 0 {
		return false, false, nil
	}

	owned, err := c.client.SIsMember(ctx, k, bookID.String()).Result()
	if err != nil {
		return false, false, fmt.Errorf("check entitlement %s for user %s: %w", bookID.String(), userID.String(), err)
	}

	return owned, true, nil
}

func (c *entitlementCache) Warm(ctx context.Context, userID uuid.UUID, bookIDs []uuid.UUID) error {
	k := key(userID)

	members := make([]any, len(bookIDs))
	for i, id := range bookIDs {
		members[i] = id.String()
	}

	pipe := c.client.Pipeline()
	pipe.Del(ctx, k)
	if len(members) > 0 {
		pipe.SAdd(ctx, k, members...)
	}
	pipe.Expire(ctx, k, entitlementTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("warm entitlement set for user %s: %w", userID.String(), err)
	}

	return nil
}

// Ping verifies the connection. Call on startup to fail fast.
func (c *entitlementCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (c *entitlementCache) Close() error {
	return c.client.Close()
}
