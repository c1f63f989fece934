// Package cache puts a Redis read-through layer in front of catalog lookups.
// Only reference data is cached; anything on the scheduling path that needs a
// row lock reads the store directly.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"examsite/internal/catalog/models"
	id "examsite/pkg/domain"
)

const keyPrefix = "examsite:catalog:"

type VenueReader interface {
	FindByID(ctx context.Context, venueID id.VenueID) (*models.Venue, error)
}

type ExamProductReader interface {
	FindByID(ctx context.Context, productID id.ExamProductID) (*models.ExamProduct, error)
}

// Cache is safe for concurrent use. A nil client turns every call into a
// pass-through.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

func New(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func venueKey(venueID id.VenueID) string {
	return keyPrefix + "venue:" + venueID.String()
}

func productKey(productID id.ExamProductID) string {
	return keyPrefix + "product:" + productID.String()
}

// Venue returns the cached venue or loads it through next and stores it.
func (c *Cache) Venue(ctx context.Context, venueID id.VenueID, next VenueReader) (*models.Venue, error) {
	var v models.Venue
	if c.get(ctx, venueKey(venueID), &v) {
		return &v, nil
	}
	loaded, err := next.FindByID(ctx, venueID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, venueKey(venueID), loaded)
	return loaded, nil
}

// ExamProduct returns the cached product or loads it through next.
func (c *Cache) ExamProduct(ctx context.Context, productID id.ExamProductID, next ExamProductReader) (*models.ExamProduct, error) {
	var p models.ExamProduct
	if c.get(ctx, productKey(productID), &p) {
		return &p, nil
	}
	loaded, err := next.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, productKey(productID), loaded)
	return loaded, nil
}

func (c *Cache) InvalidateVenue(ctx context.Context, venueID id.VenueID) {
	c.del(ctx, venueKey(venueID))
}

func (c *Cache) InvalidateExamProduct(ctx context.Context, productID id.ExamProductID) {
	c.del(ctx, productKey(productID))
}

func (c *Cache) get(ctx context.Context, key string, dst any) bool {
	if c == nil || c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "catalog cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.WarnContext(ctx, "catalog cache entry corrupt", "key", key, "error", err)
		c.del(ctx, key)
		return false
	}
	return true
}

func (c *Cache) set(ctx context.Context, key string, v any) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "catalog cache write failed", "key", key, "error", err)
	}
}

func (c *Cache) del(ctx context.Context, key string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.WarnContext(ctx, "catalog cache invalidation failed", "key", key, "error", err)
	}
}
