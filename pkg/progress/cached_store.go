package progress

import (
	"context"
	"log"
	"time"

	"academia/pkg/cache"
)

// CachedStore is a read-through decorator over a Store. Reads are
// served from Redis when possible; every Save invalidates the cached
// record so the next read repopulates it from the backing store.
type CachedStore struct {
	Store
	cache *cache.Cache
	ttl   time.Duration
}

func NewCachedStore(store Store, c *cache.Cache, ttl time.Duration) *CachedStore {
	return &CachedStore{Store: store, cache: c, ttl: ttl}
}

func (c *CachedStore) Get(userID string) (*PlayerProgress, error) {
	ctx := context.Background()
	key := c.cache.Key("progress", userID)

	cached := &PlayerProgress{}
	if err := c.cache.GetJSON(ctx, key, cached); err == nil && cached.UserID != "" {
		return cached, nil
	}

	record, err := c.Store.Get(userID)
	if err != nil {
		return nil, err
	}

	if err := c.cache.SetJSON(ctx, key, record, c.ttl); err != nil {
		log.Printf("[Progress] Failed to cache record for %s: %v", userID, err)
	}
	return record, nil
}

func (c *CachedStore) GetOrCreate(userID string) (*PlayerProgress, error) {
	record, err := c.Get(userID)
	if err == nil {
		return record, nil
	}
	return c.Store.GetOrCreate(userID)
}

func (c *CachedStore) Save(p *PlayerProgress) error {
	if err := c.Store.Save(p); err != nil {
		return err
	}

	ctx := context.Background()
	key := c.cache.Key("progress", p.UserID)
	if err := c.cache.Delete(ctx, key); err != nil {
		log.Printf("[Progress] Failed to invalidate cache for %s: %v", p.UserID, err)
	}
	return nil
}
