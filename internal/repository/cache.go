package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
)

const (
	documentKeyPrefix   = "doc:"
	collectionKeyPrefix = "col:"
	defaultCacheTTL     = 5 * time.Minute
)

// Cache is a byte cache with per-entry expiry. Get returns nil, nil on a
// miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// RedisCache implements Cache using Redis.
type RedisCache struct {
	client *redis.Client
	logger *logging.LoggerV2
}

// NewRedisCache creates a Redis-backed cache.
func NewRedisCache(cfg config.RedisConfig) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisCache{
		client: client,
		logger: logging.NewLoggerV2("document-cache"),
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		c.logger.Error("Cache get error", logging.Fields{
			"key":   key,
			"error": err.Error(),
		})
		return nil, err
	}
	return data, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Error("Cache set error", logging.Fields{
			"key":   key,
			"error": err.Error(),
		})
		return err
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Ping checks the Redis connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// CachedStore is a read-through cache in front of a DocumentStore. Writes go
// to the store first and then drop the affected cache keys. Cache failures
// are logged and never fail the operation.
type CachedStore struct {
	DocumentStore
	cache  Cache
	ttl    time.Duration
	logger *logging.LoggerV2
}

// NewCachedStore wraps store with cache. A zero ttl uses five minutes.
func NewCachedStore(store DocumentStore, cache Cache, ttl time.Duration) *CachedStore {
	if ttl == 0 {
		ttl = defaultCacheTTL
	}
	return &CachedStore{
		DocumentStore: store,
		cache:         cache,
		ttl:           ttl,
		logger:        logging.NewLoggerV2("document-cache"),
	}
}

func documentKey(collection, id string) string {
	return documentKeyPrefix + collection + "/" + id
}

func collectionKey(collection string) string {
	return collectionKeyPrefix + collection
}

func (s *CachedStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	key := documentKey(collection, id)

	if data, err := s.cache.Get(ctx, key); err == nil && data != nil {
		s.logger.Debug("Cache hit", logging.Fields{"key": key})
		return &Document{Collection: collection, ID: id, Data: data}, nil
	}
	s.logger.Debug("Cache miss", logging.Fields{"key": key})

	doc, err := s.DocumentStore.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, doc.Data, s.ttl); err != nil {
		s.logger.Warn("Failed to cache document", logging.Fields{"key": key, "error": err.Error()})
	}
	return doc, nil
}

func (s *CachedStore) List(ctx context.Context, collection string) ([]*Document, error) {
	key := collectionKey(collection)

	if data, err := s.cache.Get(ctx, key); err == nil && data != nil {
		var docs []*Document
		if err := json.Unmarshal(data, &docs); err == nil {
			s.logger.Debug("Cache hit", logging.Fields{"key": key})
			return docs, nil
		}
	}

	docs, err := s.DocumentStore.List(ctx, collection)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(docs); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			s.logger.Warn("Failed to cache collection", logging.Fields{"key": key, "error": err.Error()})
		}
	}
	return docs, nil
}

func (s *CachedStore) Set(ctx context.Context, collection, id string, data json.RawMessage) error {
	if err := s.DocumentStore.Set(ctx, collection, id, data); err != nil {
		return err
	}
	s.invalidate(ctx, Write{Collection: collection, ID: id})
	return nil
}

func (s *CachedStore) Create(ctx context.Context, collection, id string, data json.RawMessage) error {
	if err := s.DocumentStore.Create(ctx, collection, id, data); err != nil {
		return err
	}
	s.invalidate(ctx, Write{Collection: collection, ID: id})
	return nil
}

func (s *CachedStore) Add(ctx context.Context, collection string, data json.RawMessage) (string, error) {
	id, err := s.DocumentStore.Add(ctx, collection, data)
	if err != nil {
		return "", err
	}
	s.invalidate(ctx, Write{Collection: collection, ID: id})
	return id, nil
}

func (s *CachedStore) Delete(ctx context.Context, collection, id string) error {
	if err := s.DocumentStore.Delete(ctx, collection, id); err != nil {
		return err
	}
	s.invalidate(ctx, Write{Collection: collection, ID: id})
	return nil
}

func (s *CachedStore) Batch(ctx context.Context, writes ...Write) error {
	if err := s.DocumentStore.Batch(ctx, writes...); err != nil {
		return err
	}
	s.invalidate(ctx, writes...)
	return nil
}

func (s *CachedStore) invalidate(ctx context.Context, writes ...Write) {
	keys := make([]string, 0, 2*len(writes))
	for _, w := range writes {
		keys = append(keys, documentKey(w.Collection, w.ID), collectionKey(w.Collection))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("Failed to invalidate cache", logging.Fields{
			"keys":  keys,
			"error": err.Error(),
		})
	}
}
