package state

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// Option configures NewStore.
type Option func(*storeConfig)

type storeConfig struct {
	redisClient *redis.Client
	keyPrefix   string
	ttl         time.Duration
	db          *sqlx.DB
}

// WithRedisClient sets the client used by the redis driver.
func WithRedisClient(client *redis.Client) Option {
	return func(c *storeConfig) { c.redisClient = client }
}

// WithKeyPrefix sets the redis key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(c *storeConfig) { c.keyPrefix = prefix }
}

// WithTTL sets the redis key TTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *storeConfig) { c.ttl = ttl }
}

// WithDB sets the connection used by the postgres driver.
func WithDB(db *sqlx.DB) Option {
	return func(c *storeConfig) { c.db = db }
}

// NewStore builds a store for the named driver. The codec is ignored by the
// memory driver.
func NewStore[T any](driver string, codec Codec[T], opts ...Option) (Store[T], error) {
	cfg := &storeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverMemory:
		return NewMemoryStore[T](), nil
	case DriverRedis:
		if cfg.redisClient == nil || codec == nil {
			return nil, fmt.Errorf("%w: redis driver needs a client and codec", ErrInvalidConfig)
		}
		return NewRedisStore(cfg.redisClient, codec, cfg.keyPrefix, cfg.ttl), nil
	case DriverPostgres:
		if cfg.db == nil || codec == nil {
			return nil, fmt.Errorf("%w: postgres driver needs a db and codec", ErrInvalidConfig)
		}
		return NewPostgresStore(cfg.db, codec), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDriver, driver)
	}
}
