package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shrek82/jdao/core"
	"github.com/shrek82/jdao/logger"
)

// RedisCacheMiddleware caches read results in Redis.
// Enable it per call with WithCacheTTL. Successful writes drop every
// cached result of the same owner.
type RedisCacheMiddleware struct {
	Client redis.UniversalClient
	log    logger.Logger
}

func NewRedisCache(opt *redis.Options) *RedisCacheMiddleware {
	return NewRedisCacheWithClient(redis.NewClient(opt))
}

// NewRedisCacheWithClient uses an existing client, for example a cluster client.
func NewRedisCacheWithClient(client redis.UniversalClient) *RedisCacheMiddleware {
	return &RedisCacheMiddleware{Client: client, log: logger.Discard()}
}

func (m *RedisCacheMiddleware) Name() string {
	return "RedisCache"
}

func (m *RedisCacheMiddleware) Init(db *core.DB) error {
	m.log = db.Logger()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Client.Ping(ctx).Err()
}

func (m *RedisCacheMiddleware) Shutdown() error {
	return m.Client.Close()
}

// Invalidate drops every cached result of owner.
func (m *RedisCacheMiddleware) Invalidate(ctx context.Context, owner string) error {
	iter := m.Client.Scan(ctx, 0, ownerPrefix(owner)+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return m.Client.Del(ctx, keys...).Err()
}

func (m *RedisCacheMiddleware) Process(ctx context.Context, stmt *core.Statement, next core.StatementFunc) (*core.Result, error) {
	ttl, ok := cacheTTL(ctx, stmt)
	if !ok {
		res, err := next(ctx, stmt)
		if err == nil && invalidates(stmt) {
			invalidateOnWrite(ctx, stmt, func(ctx context.Context) {
				if ierr := m.Invalidate(ctx, stmt.Owner); ierr != nil {
					m.log.Warn("invalidating cache of %s: %v", stmt.Owner, ierr)
				}
			})
		}
		return res, err
	}

	key := cacheKey(stmt)
	data, err := m.Client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if entry, perr := parseCacheEntry(data); perr == nil {
			if res, derr := entry.result(stmt); derr == nil {
				return res, nil
			}
		}
	case !errors.Is(err, redis.Nil):
		m.log.Warn("reading cache of %s.%s: %v", stmt.Owner, stmt.Key, err)
	}

	res, err := next(ctx, stmt)
	if err != nil {
		return res, err
	}

	// redis expires keys itself; 0 means no expiry
	expiry := ttl
	if ttl == Forever {
		expiry = 0
	}
	data, err = newCacheEntry(stmt, res, 0)
	if err == nil {
		err = m.Client.Set(ctx, key, data, expiry).Err()
	}
	if err != nil {
		logCacheSkip(m.log, stmt, err)
	}
	return res, nil
}
