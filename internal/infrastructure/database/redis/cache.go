package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/molnotation/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molnotation/pkg/errors"
)

var (
	ErrCacheMiss           = errors.New(errors.ErrCodeNotFound, "cache miss")
	ErrSerializationFailed = errors.New(errors.ErrCodeSerialization, "cache serialization failed")
)

// AnalysisCache stores JSON-encoded analysis results by content key.
type AnalysisCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// GetOrCompute fills dest from the cache, or runs compute once per key
	// across concurrent callers and stores its result. hit reports whether
	// dest came from the cache. A cache outage degrades to compute.
	GetOrCompute(ctx context.Context, key string, dest interface{}, compute func(ctx context.Context) (interface{}, error)) (hit bool, err error)
	Ping(ctx context.Context) error
}

// CacheObserver receives hit and miss events; EngineMetrics implements it.
type CacheObserver interface {
	RecordCacheHit(cache string)
	RecordCacheMiss(cache string)
}

// Key derives a stable cache key from the kind of result, the notation and
// any parameters that change the result.
func Key(kind, notation string, params interface{}) string {
	h := sha256.New()
	h.Write([]byte(notation))
	h.Write([]byte{0})
	if params != nil {
		if b, err := json.Marshal(params); err == nil {
			h.Write(b)
		}
	}
	return kind + ":" + hex.EncodeToString(h.Sum(nil))
}

type redisCache struct {
	client     *Client
	logger     logging.Logger
	prefix     string
	defaultTTL time.Duration
	jitter     float64
	name       string
	observer   CacheObserver
	group      singleflight.Group
}

type CacheOption func(*redisCache)

func WithPrefix(prefix string) CacheOption {
	return func(c *redisCache) { c.prefix = prefix }
}

func WithDefaultTTL(ttl time.Duration) CacheOption {
	return func(c *redisCache) { c.defaultTTL = ttl }
}

// WithJitter spreads expiries by +/- fraction of the TTL. Zero disables it.
func WithJitter(fraction float64) CacheOption {
	return func(c *redisCache) { c.jitter = fraction }
}

func WithObserver(name string, o CacheObserver) CacheOption {
	return func(c *redisCache) {
		c.name = name
		c.observer = o
	}
}

// NewAnalysisCache builds a cache with prefix "molnote:", a one hour TTL
// and 10% jitter unless overridden.
func NewAnalysisCache(client *Client, log logging.Logger, opts ...CacheOption) AnalysisCache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &redisCache{
		client:     client,
		logger:     log.Named("cache"),
		prefix:     "molnote:",
		defaultTTL: time.Hour,
		jitter:     0.1,
		name:       "analysis",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *redisCache) fullKey(key string) string {
	return c.prefix + key
}

func (c *redisCache) ttl(ttl time.Duration) time.Duration {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	if c.jitter == 0 {
		return ttl
	}
	delta := float64(ttl) * c.jitter * (rand.Float64()*2 - 1)
	return ttl + time.Duration(delta)
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	rdb, err := c.client.Redis()
	if err != nil {
		return err
	}
	data, err := rdb.Get(ctx, c.fullKey(key)).Bytes()
	if err == redis.Nil {
		return ErrCacheMiss
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache get failed")
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	return nil
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	return c.setRaw(ctx, key, data, ttl)
}

func (c *redisCache) setRaw(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	rdb, err := c.client.Redis()
	if err != nil {
		return err
	}
	if err := rdb.Set(ctx, c.fullKey(key), string(data), c.ttl(ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache set failed")
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	rdb, err := c.client.Redis()
	if err != nil {
		return err
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.fullKey(k)
	}
	return rdb.Del(ctx, full...).Err()
}

func (c *redisCache) GetOrCompute(ctx context.Context, key string, dest interface{}, compute func(ctx context.Context) (interface{}, error)) (bool, error) {
	err := c.Get(ctx, key, dest)
	switch {
	case err == nil:
		c.hit()
		return true, nil
	case err == ErrCacheMiss:
	default:
		c.logger.Warn("cache read failed, computing directly", logging.String("key", key), logging.Err(err))
	}
	c.miss()

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		val, cerr := compute(ctx)
		if cerr != nil {
			return nil, cerr
		}
		data, merr := json.Marshal(val)
		if merr != nil {
			return nil, ErrSerializationFailed.WithCause(merr)
		}
		if serr := c.setRaw(ctx, key, data, 0); serr != nil {
			c.logger.Warn("cache write failed", logging.String("key", key), logging.Err(serr))
		}
		return data, nil
	})
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(v.([]byte), dest); err != nil {
		return false, ErrSerializationFailed.WithCause(err)
	}
	return false, nil
}

func (c *redisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}

func (c *redisCache) hit() {
	if c.observer != nil {
		c.observer.RecordCacheHit(c.name)
	}
}

func (c *redisCache) miss() {
	if c.observer != nil {
		c.observer.RecordCacheMiss(c.name)
	}
}
