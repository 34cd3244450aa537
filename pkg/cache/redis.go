package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/stacklicense/pkg/errors"
	"github.com/matzehuels/stacklicense/pkg/pkglist"
)

// KeyPrefix namespaces every key written by [RedisStore].
const KeyPrefix = "stacklicense:licenses:"

// DefaultRedisTTL is how long a shared entry lives without being refreshed.
const DefaultRedisTTL = 30 * 24 * time.Hour

// RedisStore keeps the encoded package list of a project in Redis, so CI
// runners without a warm cargo registry can share license text.
type RedisStore struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// NewRedisStore creates a store for project (usually the crate name or
// [ProjectKey]). A ttl of 0 uses [DefaultRedisTTL].
func NewRedisStore(client redis.UniversalClient, project string, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisStore{client: client, key: KeyPrefix + project, ttl: ttl}
}

// OpenRedis creates a client from a redis:// or rediss:// URL.
func OpenRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse redis url")
	}
	return redis.NewClient(opts), nil
}

// Name returns "redis".
func (s *RedisStore) Name() string { return "redis" }

// Key returns the Redis key holding the project's list.
func (s *RedisStore) Key() string { return s.key }

// Load fetches and decodes the stored list. A missing key is Invalid; an
// unreachable server is NotApplicable, since a shared cache is optional.
func (s *RedisStore) Load(ctx context.Context) (Entries, error) {
	if s.client == nil {
		return nil, notApplicable("redis", "no client configured")
	}
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil, invalid("redis", err, "no cache at %s", s.key)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrCodeCacheUnavailable, err, "redis: get %s", s.key)
	}
	list, err := pkglist.Decode(data)
	if err != nil {
		return nil, invalid("redis", err, "decode %s", s.key)
	}
	return FromList(list), nil
}

// Save stores the encoded list with the configured TTL.
func (s *RedisStore) Save(ctx context.Context, list pkglist.PackageList) error {
	if s.client == nil {
		return notApplicable("redis", "no client configured")
	}
	data, err := pkglist.EncodeWith(list, pkglist.CompressionZstd)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return errors.Wrap(errors.ErrCodeCacheWrite, err, "redis: set %s", s.key)
	}
	return nil
}

// Clear deletes the project's key.
func (s *RedisStore) Clear(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Del(ctx, s.key).Err()
}

// Ensure RedisStore implements Store.
var _ Store = (*RedisStore)(nil)

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
