package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ai-interviewer/interviewer/internal/helpers"
)

type CacheOptions struct {
	Enabled  bool
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
	// Secret keys the digest of session cookies, so raw cookies never
	// appear in Redis keys.
	Secret string
}

// Cache remembers which uid a verified session cookie belongs to for a short
// TTL. A nil *Cache is valid and caches nothing.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	secret []byte
}

func NewCache(ctx context.Context, opts CacheOptions) (*Cache, error) {
	if !opts.Enabled {
		return nil, nil
	}
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required when cache is enabled")
	}
	if opts.Secret == "" {
		return nil, fmt.Errorf("cache secret is required when cache is enabled")
	}
	prefix := strings.TrimSpace(opts.Prefix)
	if prefix == "" {
		prefix = "interviewer:session:v1"
	}

	c := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: strings.TrimSpace(opts.Username),
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Cache{client: c, prefix: prefix, ttl: opts.TTL, secret: []byte(opts.Secret)}, nil
}

func (c *Cache) Close() {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Close()
}

func (c *Cache) key(cookie string) (string, error) {
	digest, err := helpers.KeyedDigestHex(c.secret, []byte(cookie))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s", c.prefix, digest), nil
}

// Get returns the cached uid for cookie.
func (c *Cache) Get(ctx context.Context, cookie string) (string, bool, error) {
	if c == nil || c.client == nil {
		return "", false, nil
	}
	key, err := c.key(cookie)
	if err != nil {
		return "", false, err
	}
	uid, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if uid == "" {
		return "", false, nil
	}
	return uid, true, nil
}

func (c *Cache) Set(ctx context.Context, cookie, uid string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if uid == "" {
		return fmt.Errorf("empty uid")
	}
	key, err := c.key(cookie)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, uid, c.ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, cookie string) error {
	if c == nil || c.client == nil {
		return nil
	}
	key, err := c.key(cookie)
	if err != nil {
		return err
	}
	return c.client.Del(ctx, key).Err()
}
