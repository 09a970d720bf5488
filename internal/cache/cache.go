package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/redis/go-redis/v9"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache stores JSON-encoded values with an expiration.
type Cache interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Flush(ctx context.Context) error
}

// GetJSON reads key and decodes it into target.
func GetJSON(ctx context.Context, c Cache, key string, target any) error {
	raw, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return fmt.Errorf("invalid cache entry %q: %w", key, err)
	}
	return nil
}

// NormalizeKey joins parts into a cache key, stripping diacritics and case so
// "Zürich" and "zurich" share an entry.
func NormalizeKey(prefix string, parts ...string) (string, error) {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	normalized := make([]string, 0, len(parts)+1)
	normalized = append(normalized, prefix)
	for _, p := range parts {
		if !utf8.ValidString(p) {
			return "", fmt.Errorf("input string is not valid UTF-8")
		}
		out, _, err := transform.String(t, strings.TrimSpace(p))
		if err != nil {
			return "", err
		}
		normalized = append(normalized, strings.Join(strings.Fields(strings.ToLower(out)), " "))
	}
	return strings.Join(normalized, ":"), nil
}

// RedisCache stores entries in Redis. Keys are expected to be built with
// NormalizeKey under namespace so that Flush can find them.
type RedisCache struct {
	client    *redis.Client
	namespace string
}

func NewRedisCache(client *redis.Client, namespace string) *RedisCache {
	return &RedisCache{
		client:    client,
		namespace: namespace,
	}
}

func (c *RedisCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	p, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, p, expiration).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	v, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return v, err
}

// Flush deletes every key under the cache's namespace. Other keys in the same
// database are left alone.
func (c *RedisCache) Flush(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.namespace+":*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

type memoryEntry struct {
	value   string
	expires time.Time
}

// MemoryCache is the in-process Cache used when no Redis URL is configured.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryEntry
	now   func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		items: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

func (c *MemoryCache) Set(_ context.Context, key string, value any, expiration time.Duration) error {
	p, err := json.Marshal(value)
	if err != nil {
		return err
	}

	entry := memoryEntry{value: string(p)}
	if expiration > 0 {
		entry.expires = c.now().Add(expiration)
	}

	c.mu.Lock()
	c.items[key] = entry
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items[key]
	if !ok {
		return "", ErrMiss
	}
	if !entry.expires.IsZero() && !c.now().Before(entry.expires) {
		delete(c.items, key)
		return "", ErrMiss
	}
	return entry.value, nil
}

func (c *MemoryCache) Flush(_ context.Context) error {
	c.mu.Lock()
	c.items = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}
